package handlers

import (
	"net/http"
	"strings"

	"ridepool/internal/domain"
	"ridepool/internal/http/middleware"
	"ridepool/internal/repositories"
	"ridepool/internal/services"

	"github.com/gin-gonic/gin"
)

type placeBookingRequest struct {
	RideID        int64   `json:"ride_id" binding:"required"`
	Seats         int     `json:"seats" binding:"required"`
	FundingMSISDN string  `json:"funding_msisdn" binding:"required"`
	PickupLat     float64 `json:"pickup_lat"`
	PickupLng     float64 `json:"pickup_lng"`
	DropoffLat    float64 `json:"dropoff_lat"`
	DropoffLng    float64 `json:"dropoff_lng"`
}

// POST /api/bookings
//
// Reserves seats, charges the passenger and pays the driver as one
// saga. Retries with the same Idempotency-Key header return the
// original booking instead of reserving again.
func PlaceBooking(c *gin.Context) {
	var req placeBookingRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	if req.Seats < 1 {
		RespondDomainError(c, domain.ValidationError{Field: "seats", Msg: "must be at least 1"})
		return
	}

	passengerID := middleware.AuthUserID(c)
	if passengerID == 0 {
		respondError(c, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		return
	}

	co := coordinator()
	co.RequestID = middleware.GetRequestID(c)

	booking, err := co.PlaceBooking(c.Request.Context(), services.PlaceBookingInput{
		RideID:         req.RideID,
		PassengerID:    passengerID,
		Seats:          req.Seats,
		FundingMSISDN:  req.FundingMSISDN,
		PickupLat:      req.PickupLat,
		PickupLng:      req.PickupLng,
		DropoffLat:     req.DropoffLat,
		DropoffLng:     req.DropoffLng,
		IdempotencyKey: strings.TrimSpace(c.GetHeader("Idempotency-Key")),
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"booking": booking})
}

// GET /api/bookings?page=1&limit=50
func GetBookings(c *gin.Context) {
	limit, offset := pageParams(c)
	bookings, err := repositories.BookingRepo{}.ListBookings(limit, offset)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

// GET /api/bookings/:id
func GetBookingByID(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	booking, err := repositories.BookingRepo{}.GetBookingByID(id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

// POST /api/bookings/:id/cancel
//
// Cancelling a paid booking refunds the charge and frees the seats.
// Cancelling twice is a no-op.
func CancelBooking(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	co := coordinator()
	co.RequestID = middleware.GetRequestID(c)

	booking, err := co.CancelBooking(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

// GET /api/bookings/:id/receipt
func GetBookingReceipt(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	svc := services.ReceiptService{
		BookingRepo: repositories.BookingRepo{},
		PaymentRepo: repositories.PaymentRepo{},
		RideRepo:    repositories.RideRepo{},
		UserRepo:    repositories.UserRepo{},
		RequestID:   middleware.GetRequestID(c),
	}
	pdf, filename, err := svc.GenerateReceipt(id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}
