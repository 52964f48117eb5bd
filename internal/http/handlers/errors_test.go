package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"ridepool/internal/domain"

	"github.com/gin-gonic/gin"
)

func TestRespondDomainErrorStatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", domain.ValidationError{Field: "seats", Msg: "must be at least 1"}, http.StatusBadRequest, "validation_error"},
		{"not found", domain.NotFoundError{Resource: "ride"}, http.StatusNotFound, "not_found"},
		{"capacity", domain.CapacityError{RideID: 7, Requested: 3, Available: 1}, http.StatusConflict, "capacity_exceeded"},
		{"conflict", domain.ConflictError{Resource: "booking", Msg: "status changed concurrently"}, http.StatusConflict, "conflict"},
		{"declined", domain.PaymentDeclinedError{BookingID: 42, Reason: "insufficient funds"}, http.StatusPaymentRequired, "payment_declined"},
		{"payout failed", domain.PayoutFailedError{BookingID: 42, Refunded: true}, http.StatusBadGateway, "payout_failed"},
		{"transient", domain.TransientGatewayError{Op: "charge"}, http.StatusServiceUnavailable, "gateway_unavailable"},
		{"internal", domain.InternalError{Msg: "boom"}, http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			RespondDomainError(c, tc.err)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			var body ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("bad body: %v", err)
			}
			if body.Code != tc.wantCode {
				t.Fatalf("code = %q, want %q", body.Code, tc.wantCode)
			}
		})
	}
}

func TestTransientResponseAsksForRetry(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/bookings", nil)

	RespondDomainError(c, domain.TransientGatewayError{Op: "charge"})

	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("transient responses must carry Retry-After")
	}
}
