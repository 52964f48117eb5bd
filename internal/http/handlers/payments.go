package handlers

import (
	"net/http"

	"ridepool/internal/repositories"

	"github.com/gin-gonic/gin"
)

// Payment rows are written only by the booking saga and the
// reconciler; the HTTP surface is read-only.

// GET /api/payments?page=1&limit=50
func GetPayments(c *gin.Context) {
	limit, offset := pageParams(c)
	payments, err := repositories.PaymentRepo{}.ListPayments(limit, offset)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": payments})
}

// GET /api/payments/:id
func GetPaymentByID(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	payment, err := repositories.PaymentRepo{}.GetPaymentByID(id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment": payment})
}

// GET /api/bookings/:id/payment
func GetBookingPayment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	payment, err := repositories.PaymentRepo{}.GetByBookingID(id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	out := gin.H{"payment": payment}
	if payout, err := (repositories.PayoutRepo{}).GetByBookingID(id); err == nil {
		out["payout"] = payout
	}
	c.JSON(http.StatusOK, out)
}
