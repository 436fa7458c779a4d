package api

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/boardnode/internal/api/models"
	"github.com/smazurov/boardnode/internal/board"
	"github.com/smazurov/boardnode/internal/device"
	"github.com/smazurov/boardnode/internal/led"
)

// Source recorded on LED events caused by the increment and decrement
// endpoints. Reads and writes go through the device and are tagged there.
const sourceAPI = "api"

func (s *Server) registerLEDRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-leds",
		Method:      http.MethodGet,
		Path:        "/api/leds",
		Summary:     "Read LEDs",
		Description: "Read the LED bank value through a fresh handle on the leds device",
		Tags:        []string{"leds"},
		Errors:      []int{401, 500},
		Security:    withAuth(),
	}, func(ctx context.Context, _ *struct{}) (*models.LEDResponse, error) {
		data, err := s.readLEDs()
		if err != nil {
			return nil, toHTTPError("Failed to read LEDs", err)
		}
		return &models.LEDResponse{Body: data}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "write-leds",
		Method:      http.MethodPut,
		Path:        "/api/leds",
		Summary:     "Write LEDs",
		Description: "Write one byte to the leds device. Bits 7..6 select absolute (00), set bits (01) " +
			"or clear bits (10); 11 is rejected and leaves the bank untouched.",
		Tags:     []string{"leds"},
		Errors:   []int{400, 401, 500},
		Security: withAuth(),
	}, func(ctx context.Context, input *models.LEDWriteRequest) (*models.LEDResponse, error) {
		h, err := s.board.Devices().Open(device.LEDs)
		if err != nil {
			return nil, toHTTPError("Failed to open LED device", err)
		}
		defer h.Close()

		if _, err := h.Write([]byte{input.Body.Value}); err != nil {
			return nil, toHTTPError(fmt.Sprintf("Failed to write 0x%02x", input.Body.Value), err)
		}

		data, err := s.readLEDs()
		if err != nil {
			return nil, toHTTPError("Failed to read LEDs", err)
		}
		return &models.LEDResponse{Body: data}, nil
	})

	for _, step := range []struct {
		name string
		fn   func(*led.Bank) (uint8, error)
	}{
		{"increment", func(b *led.Bank) (uint8, error) { return b.Increment(sourceAPI) }},
		{"decrement", func(b *led.Bank) (uint8, error) { return b.Decrement(sourceAPI) }},
	} {
		huma.Register(s.api, huma.Operation{
			OperationID: step.name + "-leds",
			Method:      http.MethodPost,
			Path:        "/api/leds/" + step.name,
			Summary:     "LEDs " + step.name,
			Description: "Apply one " + step.name + " of the LED bank value modulo 64, as a button press would",
			Tags:        []string{"leds"},
			Errors:      []int{401, 500},
			Security:    withAuth(),
		}, func(ctx context.Context, _ *struct{}) (*models.LEDResponse, error) {
			v, err := step.fn(s.board.Bank())
			if err != nil {
				return nil, toHTTPError("Failed to "+step.name+" LEDs", err)
			}
			return &models.LEDResponse{Body: ledData(v)}, nil
		})
	}
}

// readLEDs reads the bank the way a device client would: open, read to
// EOF, close.
func (s *Server) readLEDs() (models.LEDData, error) {
	h, err := s.board.Devices().Open(device.LEDs)
	if err != nil {
		return models.LEDData{}, err
	}
	defer h.Close()

	buf, err := io.ReadAll(h)
	if err != nil {
		return models.LEDData{}, err
	}
	if len(buf) != 1 {
		return models.LEDData{}, fmt.Errorf("leds device returned %d bytes", len(buf))
	}
	return ledData(buf[0]), nil
}

func ledData(v uint8) models.LEDData {
	data := models.LEDData{
		Value:  v,
		Binary: fmt.Sprintf("%06b", v),
		Lines:  make([]models.LEDLine, 0, led.NumLines),
	}
	for i, p := range board.LEDPins {
		data.Lines = append(data.Lines, models.LEDLine{
			Bit:  i,
			Name: p.Name,
			On:   v&(1<<i) != 0,
		})
	}
	return data
}
