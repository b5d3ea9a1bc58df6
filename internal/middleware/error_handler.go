package middleware

import (
	"errors"
	"net/http"

	"priceSense/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ErrorHandler renders errors that reach echo as {code, message}.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := http.StatusText(code)

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		} else {
			message = http.StatusText(code)
		}
	}

	if code >= http.StatusInternalServerError {
		logger.Error("http_error", "trace_id", c.Get(traceIDKey), "path", c.Path(), "error", err)
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(code)
	} else {
		writeErr = c.JSON(code, errorBody(http.StatusText(code), message))
	}
	if writeErr != nil {
		logger.Error("http_error_write_failed", "error", writeErr)
	}
}
