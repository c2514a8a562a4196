package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Response is the JSON body written for every failed request.
type Response struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// HTTPErrorHandler converts handler errors into the {error, details}
// envelope. Server-side failures are logged with the request id.
func HTTPErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := render(err)
		if status >= http.StatusInternalServerError {
			rid, _ := c.Get("request_id").(string)
			logger.Error().
				Err(err).
				Str("request_id", rid).
				Str("path", c.Request().URL.Path).
				Int("status", status).
				Msg("request failed")
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

func render(err error) (int, Response) {
	var appErr *Error
	if errors.As(err, &appErr) {
		body := Response{Error: appErr.Message, Details: appErr.Details}
		if body.Details == nil && appErr.Err != nil && appErr.Status() >= http.StatusInternalServerError {
			body.Details = appErr.Err.Error()
		}
		return appErr.Status(), body
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		msg := fmt.Sprintf("%v", httpErr.Message)
		if httpErr.Code == http.StatusMethodNotAllowed {
			msg = "Method Not Allowed"
		}
		body := Response{Error: msg}
		if httpErr.Internal != nil {
			body.Details = httpErr.Internal.Error()
		}
		return httpErr.Code, body
	}

	return http.StatusInternalServerError, Response{Error: "Internal Server Error", Details: err.Error()}
}
