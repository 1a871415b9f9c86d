package handler

import (
	"net/http"

	"rental-service/internal/apperr"
	"rental-service/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	msgInvalidData   = "Dữ liệu không hợp lệ"
	msgRouteNotFound = "Endpoint không tồn tại"
	msgServerError   = "Lỗi máy chủ nội bộ"
)

// errorBody is the failure envelope
type errorBody struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Errors  interface{} `json:"errors,omitempty"`
	Path    string      `json:"path,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// NewHTTPErrorHandler maps application errors to status codes and the
// {success:false} envelope. Internal details are only exposed when debug is set.
func NewHTTPErrorHandler(v *Validator) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		log := logger.FromEcho(c)

		code := http.StatusInternalServerError
		body := errorBody{Message: msgServerError}

		var (
			httpErr  *echo.HTTPError
			valErr   *apperr.ValidationError
			dupErr   *apperr.DuplicateError
			preErr   *apperr.PreconditionError
			nfErr    *apperr.NotFoundError
			upErr    *apperr.UpstreamError
			fieldErr validator.ValidationErrors
		)

		switch {
		case errors.As(err, &fieldErr):
			fields := make([]apperr.FieldError, 0, len(fieldErr))
			for _, fe := range fieldErr {
				fields = append(fields, apperr.FieldError{Field: fe.Field(), Message: v.Translate(fe)})
			}
			code = http.StatusBadRequest
			body.Message = msgInvalidData
			body.Errors = fields
		case errors.As(err, &valErr):
			code = http.StatusBadRequest
			body.Message = valErr.Error()
			body.Errors = valErr.Fields
		case errors.As(err, &dupErr):
			code = http.StatusBadRequest
			body.Message = dupErr.Error()
		case errors.As(err, &preErr):
			code = http.StatusBadRequest
			body.Message = preErr.Message
		case errors.As(err, &nfErr):
			code = http.StatusNotFound
			body.Message = nfErr.Message
		case errors.As(err, &upErr):
			code = http.StatusInternalServerError
			body.Message = upErr.Message
			if upErr.Err != nil {
				body.Error = upErr.Err.Error()
			}
			log.Error("Upstream call failed", zap.String("service", upErr.Service), zap.Error(err))
		case errors.As(err, &httpErr):
			if herr, ok := httpErr.Internal.(*echo.HTTPError); ok {
				httpErr = herr
			}
			code = httpErr.Code
			switch {
			case code == http.StatusNotFound:
				body.Message = msgRouteNotFound
				body.Path = c.Request().URL.Path
			default:
				if m, ok := httpErr.Message.(string); ok {
					body.Message = m
				} else {
					body.Message = http.StatusText(code)
				}
			}
		default:
			log.Error("Request failed", zap.Error(err))
		}

		if c.Echo().Debug && code == http.StatusInternalServerError && body.Error == "" {
			body.Error = err.Error()
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, body)
		}
		if err != nil {
			log.Error("Failed to write error response", zap.Error(err))
		}
	}
}
