package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Recovery turns a handler panic into an error so ErrorHandler answers 500.
func Recovery(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					stack := debug.Stack()

					logger.Error().
						Str("request_id", GetRequestID(c)).
						Str("panic", fmt.Sprintf("%v", r)).
						Bytes("stack", stack).
						Msg("panic recovered")

					err = &panicError{value: r, stack: stack}
				}
			}()
			return next(c)
		}
	}
}

type panicError struct {
	value interface{}
	stack []byte
}

func (p *panicError) Error() string {
	return fmt.Sprintf("panic: %v", p.value)
}
