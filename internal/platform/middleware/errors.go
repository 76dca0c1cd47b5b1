package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/registry/internal/platform/apperr"
)

// ErrorBody is the JSON shape of every error response. Detail and Stack are
// only populated when diagnostics are enabled.
type ErrorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
	Detail string            `json:"detail,omitempty"`
	Stack  string            `json:"stack,omitempty"`
}

// ErrorHandler maps apperr kinds and echo errors onto status codes. With
// diagnostics on, the underlying cause and a stack trace are included.
func ErrorHandler(logger zerolog.Logger, diagnostics bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := render(err)
		if status >= 500 {
			logger.Error().Err(err).Str("request_id", GetRequestID(c)).Msg("request failed")
		}

		if diagnostics {
			body.Detail = err.Error()
			var pe *panicError
			if errors.As(err, &pe) {
				body.Stack = string(pe.stack)
			} else if status >= 500 {
				body.Stack = string(debug.Stack())
			}
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, body)
		}
		if writeErr != nil {
			logger.Error().Err(writeErr).Msg("write error response")
		}
	}
}

func render(err error) (int, ErrorBody) {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		status := ae.Kind.Status()
		msg := ae.Message
		if msg == "" || status >= 500 {
			msg = "Server error"
		}
		return status, ErrorBody{Error: msg, Fields: ae.Fields}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok && s != "" {
			msg = s
		} else if he.Message != nil {
			msg = fmt.Sprint(he.Message)
		}
		return he.Code, ErrorBody{Error: msg}
	}

	return http.StatusInternalServerError, ErrorBody{Error: "Server error"}
}

func statusOf(err error) int {
	status, _ := render(err)
	return status
}
