package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/boardnode/internal/api/models"
	"github.com/smazurov/boardnode/internal/device"
)

func (s *Server) registerSpeakerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "write-speaker",
		Method:      http.MethodPost,
		Path:        "/api/speaker",
		Summary:     "Write speaker",
		Description: `Write one byte to the speaker device: "0" turns it off, anything else on`,
		Tags:        []string{"speaker"},
		Errors:      []int{400, 401, 500},
		Security:    withAuth(),
	}, func(ctx context.Context, input *models.SpeakerWriteRequest) (*models.SpeakerResponse, error) {
		h, err := s.board.Devices().Open(device.Speaker)
		if err != nil {
			return nil, toHTTPError("Failed to open speaker device", err)
		}
		defer h.Close()

		if _, err := h.Write([]byte(input.Body.Value)); err != nil {
			return nil, toHTTPError("Failed to write speaker", err)
		}
		on, err := s.board.Speaker().State()
		if err != nil {
			return nil, toHTTPError("Failed to read speaker state", err)
		}
		return &models.SpeakerResponse{Body: models.SpeakerData{On: on}}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "read-speaker",
		Method:      http.MethodGet,
		Path:        "/api/speaker",
		Summary:     "Read speaker",
		Description: "Reading the speaker device is not supported; the current state is reported by /api/board",
		Tags:        []string{"speaker"},
		Errors:      []int{401, 405},
		Security:    withAuth(),
	}, func(ctx context.Context, _ *struct{}) (*models.SpeakerResponse, error) {
		h, err := s.board.Devices().Open(device.Speaker)
		if err != nil {
			return nil, toHTTPError("Failed to open speaker device", err)
		}
		defer h.Close()

		var buf [1]byte
		if _, err := h.Read(buf[:]); err != nil {
			return nil, toHTTPError("Speaker is write-only", err)
		}
		return &models.SpeakerResponse{Body: models.SpeakerData{On: buf[0] != '0'}}, nil
	})
}
