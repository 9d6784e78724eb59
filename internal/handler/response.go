package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"cardlens/internal/domain"
)

// APIResponse is the standard envelope for all API responses.
type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

// APIError holds error details in the response. Stage names the pipeline
// stage (normalize/infer/parse) that produced the failure, when known.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Stage   string `json:"stage,omitempty"`
}

// RespondOK sends a 200 success response.
func RespondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: msg},
	})
}

// MapDomainError translates domain errors to HTTP status codes and error codes.
func MapDomainError(err error) (status int, code, msg string) {
	switch {
	case errors.Is(err, domain.ErrUnsupportedFormat):
		return http.StatusBadRequest, "UNSUPPORTED_FORMAT", "unsupported file format; allowed: pdf, png, jpg, jpeg"
	case errors.Is(err, domain.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "file exceeds maximum allowed size"
	case errors.Is(err, domain.ErrConversion):
		return http.StatusUnprocessableEntity, "CONVERSION_FAILED", "could not convert the uploaded file to images"
	case errors.Is(err, domain.ErrAuthentication):
		return http.StatusUnauthorized, "MODEL_AUTH_FAILED", "authentication with the model provider failed; check credentials"
	case errors.Is(err, domain.ErrAccessDenied):
		return http.StatusForbidden, "MODEL_ACCESS_DENIED", "the configured model is not enabled for this account"
	case errors.Is(err, domain.ErrThrottled):
		return http.StatusTooManyRequests, "MODEL_THROTTLED", "the model provider throttled the request; resubmit later"
	case errors.Is(err, domain.ErrTimeout):
		return http.StatusGatewayTimeout, "MODEL_TIMEOUT", "the model request timed out; resubmit"
	case errors.Is(err, domain.ErrTransientService):
		return http.StatusBadGateway, "MODEL_UNAVAILABLE", "the model service failed transiently; resubmit"
	case errors.Is(err, domain.ErrParse):
		return http.StatusBadGateway, "UNPARSEABLE_RESPONSE", "the model response could not be parsed"
	case errors.Is(err, domain.ErrNotInsuranceCard):
		return http.StatusUnprocessableEntity, "NOT_INSURANCE_CARD", "the submitted document is not an insurance card"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"
	}
}

// HandleError maps a domain error and sends the appropriate error response,
// naming the pipeline stage when the error carries one.
func HandleError(c *gin.Context, err error) {
	status, code, msg := MapDomainError(err)
	if status >= 500 {
		requestID, _ := c.Get("request_id")
		slog.Error("pipeline error", "request_id", requestID, "error", err)
	}
	c.JSON(status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: msg, Stage: domain.StageOf(err)},
	})
}
