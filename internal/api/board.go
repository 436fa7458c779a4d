package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/boardnode/internal/api/models"
)

func (s *Server) registerBoardRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-board",
		Method:      http.MethodGet,
		Path:        "/api/board",
		Summary:     "Board status",
		Description: "Pin table, owned lines, button debounce state and deferred queue counters",
		Tags:        []string{"board"},
		Errors:      []int{401, 500},
		Security:    withAuth(),
	}, func(ctx context.Context, _ *struct{}) (*models.BoardResponse, error) {
		info, err := s.board.Info()
		if err != nil {
			return nil, toHTTPError("Failed to read board state", err)
		}
		return &models.BoardResponse{Body: info}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "press-button",
		Method:      http.MethodPost,
		Path:        "/api/buttons/{button}/press",
		Summary:     "Press button",
		Description: "Inject one falling edge on a button line. Only the simulated GPIO backend supports this; " +
			"the edge goes through the same debounce path as a real press.",
		Tags:     []string{"board"},
		Errors:   []int{401, 404, 405},
		Security: withAuth(),
	}, func(ctx context.Context, input *models.PressRequest) (*models.PressResponse, error) {
		if err := s.board.Press(input.Button); err != nil {
			return nil, toHTTPError("Failed to press "+input.Button, err)
		}
		return &models.PressResponse{
			Body: models.PressData{Button: input.Button, Message: "edge delivered"},
		}, nil
	})
}
