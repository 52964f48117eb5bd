package handlers

import (
	"net/http"

	"ridepool/internal/domain"
	"ridepool/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

// ErrorResponse standardizes error payloads.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func respondError(c *gin.Context, status int, code, message string, details any) {
	if code == "" {
		code = http.StatusText(status)
	}
	c.JSON(status, ErrorResponse{
		Error:     message,
		Code:      code,
		Details:   details,
		RequestID: middleware.GetRequestID(c),
	})
}

// RespondDomainError maps domain errors to HTTP responses. Capacity and
// concurrency losses are conflicts; declined charges are 402; a failed
// payout after a successful charge is an upstream failure; transient
// gateway trouble asks the client to retry later.
func RespondDomainError(c *gin.Context, err error) {
	switch {
	case domain.IsValidation(err):
		respondError(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case domain.IsNotFound(err):
		respondError(c, http.StatusNotFound, "not_found", err.Error(), nil)
	case domain.IsCapacity(err):
		respondError(c, http.StatusConflict, "capacity_exceeded", err.Error(), nil)
	case domain.IsConflict(err):
		respondError(c, http.StatusConflict, "conflict", err.Error(), nil)
	case domain.IsPaymentDeclined(err):
		respondError(c, http.StatusPaymentRequired, "payment_declined", err.Error(), nil)
	case domain.IsPayoutFailed(err):
		respondError(c, http.StatusBadGateway, "payout_failed", err.Error(), nil)
	case domain.IsTransientGateway(err):
		c.Header("Retry-After", "60")
		respondError(c, http.StatusServiceUnavailable, "gateway_unavailable", err.Error(), nil)
	default:
		respondError(c, http.StatusInternalServerError, "internal_error", "something went wrong", nil)
	}
}
