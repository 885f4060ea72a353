package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/smallbiznis/mockpay/internal/invoice/domain"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrInternal       = errors.New("internal_error")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if meta, ok := validationErrorMeta(err); ok {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   meta.field,
					Code:    meta.code,
					Message: meta.message,
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, invoicedomain.ErrNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "invoice not found",
		}
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_request",
			Message: "invalid request",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) {
		return vErr
	}
	return nil
}

type validationMeta struct {
	field, code, message string
}

// validation sentinels surfaced by the invoice service, keyed to the
// request field they reject.
var validationSentinels = map[error]validationMeta{
	invoicedomain.ErrMissingAmount:     {"amount", "required", "amount is required"},
	invoicedomain.ErrNegativeAmount:    {"amount", "non_negative", "amount must be >= 0"},
	invoicedomain.ErrMissingWebhookURL: {"webhook_url", "required", "webhook_url is required"},
	invoicedomain.ErrInvalidWebhookURL: {"webhook_url", "invalid_url", "webhook_url must be an absolute http or https URL"},
	invoicedomain.ErrInvalidEmitStatus: {"emit_status", "invalid_status", "emit_status must be one of paid, failed, canceled, expired, chargeback"},
	invoicedomain.ErrInvalidEmitAfter:  {"emit_after_ms", "out_of_range", "emit_after_ms must be between 0 and 86400000"},
}

func validationErrorMeta(err error) (validationMeta, bool) {
	for sentinel, meta := range validationSentinels {
		if errors.Is(err, sentinel) {
			return meta, true
		}
	}
	return validationMeta{}, false
}

func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	if vErr := asValidationErrors(err); vErr != nil {
		code := ""
		if len(vErr.Errors) > 0 {
			code = vErr.Errors[0].Code
		}
		return "validation_error", code
	}
	if meta, ok := validationErrorMeta(err); ok {
		return "validation_error", meta.code
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, invoicedomain.ErrNotFound) {
		return "not_found", "not_found"
	}
	return "internal_error", "internal_error"
}
