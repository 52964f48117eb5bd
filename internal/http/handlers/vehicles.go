package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"ridepool/internal/domain"
	"ridepool/internal/domain/models"
	"ridepool/internal/repositories"

	"github.com/gin-gonic/gin"
)

type vehiclePayload struct {
	OwnerID      int64  `json:"owner_id" binding:"required"`
	Make         string `json:"make" binding:"required"`
	Model        string `json:"model" binding:"required"`
	Year         int    `json:"year"`
	Color        string `json:"color"`
	LicensePlate string `json:"license_plate" binding:"required"`
	Capacity     int    `json:"capacity" binding:"required"`
}

// GET /api/vehicles?owner_id=3&page=1&limit=50
func GetVehicles(c *gin.Context) {
	limit, offset := pageParams(c)
	var ownerID int64
	if v := strings.TrimSpace(c.Query("owner_id")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			RespondDomainError(c, domain.ValidationError{Field: "owner_id", Msg: "invalid id"})
			return
		}
		ownerID = id
	}
	vehicles, err := repositories.VehicleRepo{}.ListVehicles(ownerID, limit, offset)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicles": vehicles})
}

// GET /api/vehicles/:id
func GetVehicleByID(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	vehicle, err := repositories.VehicleRepo{}.GetVehicleByID(id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicle": vehicle})
}

// POST /api/vehicles
func CreateVehicle(c *gin.Context) {
	var req vehiclePayload
	if !BindJSONOrError(c, &req) {
		return
	}
	if req.Capacity < 1 {
		RespondDomainError(c, domain.ValidationError{Field: "capacity", Msg: "must be at least 1"})
		return
	}

	repo := repositories.VehicleRepo{}
	id, err := repo.CreateVehicle(models.Vehicle{
		OwnerID:      req.OwnerID,
		Make:         req.Make,
		Model:        req.Model,
		Year:         req.Year,
		Color:        req.Color,
		LicensePlate: req.LicensePlate,
		Capacity:     req.Capacity,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	vehicle, err := repo.GetVehicleByID(id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"vehicle": vehicle})
}

type vehicleUpdateRequest struct {
	Make     *string `json:"make"`
	Model    *string `json:"model"`
	Year     *int    `json:"year"`
	Color    *string `json:"color"`
	Capacity *int    `json:"capacity"`
}

// PATCH /api/vehicles/:id
func UpdateVehicle(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req vehicleUpdateRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	if req.Capacity != nil && *req.Capacity < 1 {
		RespondDomainError(c, domain.ValidationError{Field: "capacity", Msg: "must be at least 1"})
		return
	}

	repo := repositories.VehicleRepo{}
	err := repo.UpdateVehicle(id, models.VehicleUpdate{
		Make:     req.Make,
		Model:    req.Model,
		Year:     req.Year,
		Color:    req.Color,
		Capacity: req.Capacity,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	vehicle, err := repo.GetVehicleByID(id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicle": vehicle})
}

// DELETE /api/vehicles/:id
func DeleteVehicle(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := (repositories.VehicleRepo{}).DeleteVehicle(id); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "vehicle deleted"})
}
