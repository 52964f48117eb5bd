package handlers

import (
	"net/http"
	"strings"
	"time"

	"ridepool/internal/domain"
	"ridepool/internal/domain/models"
	"ridepool/internal/repositories"
	"ridepool/internal/utils"

	"github.com/gin-gonic/gin"
)

type ridePayload struct {
	DriverID       int64   `json:"driver_id" binding:"required"`
	VehicleID      int64   `json:"vehicle_id" binding:"required"`
	OriginLat      float64 `json:"origin_lat"`
	OriginLng      float64 `json:"origin_lng"`
	DestinationLat float64 `json:"destination_lat"`
	DestinationLng float64 `json:"destination_lng"`
	DepartureTime  string  `json:"departure_time" binding:"required"`
	TotalSeats     int     `json:"total_seats" binding:"required"`
	PricePerSeat   int64   `json:"price_per_seat" binding:"required"` // minor units
	Currency       string  `json:"currency"`
}

// GET /api/rides?page=1&limit=50
func GetRides(c *gin.Context) {
	limit, offset := pageParams(c)
	rides, err := repositories.RideRepo{}.ListRides(limit, offset)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rides": rides})
}

// GET /api/rides/:id
func GetRideByID(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ride, err := repositories.RideRepo{}.GetRideByID(id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ride": ride, "seats_available": ride.SeatsAvailable()})
}

// POST /api/rides
func CreateRide(c *gin.Context) {
	var req ridePayload
	if !BindJSONOrError(c, &req) {
		return
	}

	departure, err := utils.ParseDepartureTime(req.DepartureTime)
	if err != nil {
		RespondDomainError(c, domain.ValidationError{Field: "departure_time", Msg: err.Error()})
		return
	}
	if departure.Before(time.Now()) {
		RespondDomainError(c, domain.ValidationError{Field: "departure_time", Msg: "must be in the future"})
		return
	}
	if req.TotalSeats < 1 {
		RespondDomainError(c, domain.ValidationError{Field: "total_seats", Msg: "must be at least 1"})
		return
	}
	if req.PricePerSeat < 0 {
		RespondDomainError(c, domain.ValidationError{Field: "price_per_seat", Msg: "must not be negative"})
		return
	}

	driver, err := repositories.UserRepo{}.GetUserByID(req.DriverID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	if driver.Role == models.RolePassenger {
		RespondDomainError(c, domain.ValidationError{Field: "driver_id", Msg: "user is not a driver"})
		return
	}

	vehicle, err := repositories.VehicleRepo{}.GetVehicleByID(req.VehicleID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	if vehicle.OwnerID != driver.ID {
		RespondDomainError(c, domain.ValidationError{Field: "vehicle_id", Msg: "vehicle does not belong to driver"})
		return
	}
	if req.TotalSeats > vehicle.Capacity {
		RespondDomainError(c, domain.ValidationError{Field: "total_seats", Msg: "exceeds vehicle capacity"})
		return
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = coordinatorCurrency()
	}

	repo := repositories.RideRepo{}
	id, err := repo.CreateRide(models.Ride{
		DriverID:       req.DriverID,
		VehicleID:      req.VehicleID,
		OriginLat:      req.OriginLat,
		OriginLng:      req.OriginLng,
		DestinationLat: req.DestinationLat,
		DestinationLng: req.DestinationLng,
		DepartureTime:  departure,
		TotalSeats:     req.TotalSeats,
		PricePerSeat:   req.PricePerSeat,
		Currency:       currency,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	ride, err := repo.GetRideByID(id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ride": ride})
}

type rideUpdateRequest struct {
	DepartureTime *string `json:"departure_time"`
	PricePerSeat  *int64  `json:"price_per_seat"`
	Status        *string `json:"status"`
}

// PATCH /api/rides/:id
func UpdateRide(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req rideUpdateRequest
	if !BindJSONOrError(c, &req) {
		return
	}

	upd := models.RideUpdate{PricePerSeat: req.PricePerSeat}
	if req.DepartureTime != nil {
		departure, err := utils.ParseDepartureTime(*req.DepartureTime)
		if err != nil {
			RespondDomainError(c, domain.ValidationError{Field: "departure_time", Msg: err.Error()})
			return
		}
		upd.DepartureTime = &departure
	}
	if req.Status != nil {
		status := strings.ToUpper(strings.TrimSpace(*req.Status))
		switch status {
		case models.RideScheduled, models.RideInProgress, models.RideCompleted, models.RideCancelled:
		default:
			RespondDomainError(c, domain.ValidationError{Field: "status", Msg: "unknown ride status"})
			return
		}
		upd.Status = &status
	}

	repo := repositories.RideRepo{}
	if err := repo.UpdateRide(id, upd); err != nil {
		RespondDomainError(c, err)
		return
	}
	ride, err := repo.GetRideByID(id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ride": ride})
}

// DELETE /api/rides/:id
func DeleteRide(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := (repositories.RideRepo{}).DeleteRide(id); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ride deleted"})
}
