package api

import (
	"errors"
	"fmt"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/boardnode/internal/board"
	"github.com/smazurov/boardnode/internal/device"
	"github.com/smazurov/boardnode/internal/errcode"
)

// toHTTPError maps a board error to an HTTP status. The negative errno a
// device caller would see is appended to the message.
func toHTTPError(msg string, err error) huma.StatusError {
	if code := errcode.Of(err); code != "" {
		msg = fmt.Sprintf("%s (errno %d)", msg, errcode.Errno(err))
	}

	switch {
	case errors.Is(err, board.ErrUnknownButton), errors.Is(err, device.ErrNotFound):
		return huma.Error404NotFound(msg, err)
	}

	switch errcode.Of(err) {
	case errcode.InvalidMode, errcode.Fault:
		return huma.Error400BadRequest(msg, err)
	case errcode.NotSupported:
		return huma.Error405MethodNotAllowed(msg, err)
	case errcode.QueueFull, errcode.Closed:
		return huma.Error503ServiceUnavailable(msg, err)
	default:
		return huma.Error500InternalServerError(msg, err)
	}
}
