package apperror

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// errorBody is the JSON shape of every non-2xx response.
type errorBody struct {
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// statusFor maps an error kind to its HTTP status code.
func statusFor(kind Kind) int {
	switch kind {
	case KindValidation, KindInsufficientStock, KindInvalidTransition:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// HTTPErrorHandler returns an echo error handler that maps classified
// business errors to structured responses. Unclassified errors are logged
// with their cause and surfaced as a generic 500 so internal detail never
// reaches the client.
func HTTPErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var ae *Error
		if errors.As(err, &ae) {
			_ = c.JSON(statusFor(ae.Kind), errorBody{Message: ae.Msg, Errors: ae.Fields})
			return
		}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			msg := http.StatusText(he.Code)
			if s, ok := he.Message.(string); ok {
				msg = s
			}
			_ = c.JSON(he.Code, errorBody{Message: msg})
			return
		}

		rid, _ := c.Get("request_id").(string)
		logger.Error().
			Err(err).
			Str("request_id", rid).
			Str("path", c.Request().URL.Path).
			Msg("unhandled error")
		_ = c.JSON(http.StatusInternalServerError, errorBody{Message: "internal server error"})
	}
}
