package presenter

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/artem13815/cvchat/pkg/chat"
	"github.com/artem13815/cvchat/pkg/cv"
	"github.com/artem13815/cvchat/pkg/llm"
	"github.com/artem13815/cvchat/pkg/turn"
)

type ErrorResponse struct {
	Message string `json:"message"`
}

func JSON(c *fiber.Ctx, status int, v any) error {
	return c.Status(status).JSON(v)
}

func Error(c *fiber.Ctx, status int, message string) error {
	return JSON(c, status, ErrorResponse{Message: message})
}

// StatusOf maps domain errors to HTTP status codes.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, turn.ErrTurnInFlight), errors.Is(err, turn.ErrConversationStarted):
		return http.StatusConflict
	case errors.Is(err, chat.ErrNotFound), errors.Is(err, turn.ErrUnknownWidget):
		return http.StatusNotFound
	case errors.Is(err, turn.ErrEmptyMessage),
		errors.Is(err, chat.ErrInvalidMessage),
		errors.Is(err, chat.ErrInvalidRole),
		errors.Is(err, cv.ErrUnknownSection),
		errors.Is(err, cv.ErrInvalidSection):
		return http.StatusBadRequest
	case errors.Is(err, llm.ErrCompletionFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// Fail writes err with the status StatusOf picks. Internal errors are not echoed.
func Fail(c *fiber.Ctx, err error, fallback string) error {
	status := StatusOf(err)
	if status == http.StatusInternalServerError {
		return Error(c, status, fallback)
	}
	return Error(c, status, err.Error())
}

// Turn writes a finished turn. A failed turn still carries its stored
// messages and notifications, so the body is the full result.
func Turn(c *fiber.Ctx, res turn.Result) error {
	status := http.StatusOK
	if res.State == turn.StateFailed {
		status = http.StatusBadGateway
	}
	return JSON(c, status, res)
}
