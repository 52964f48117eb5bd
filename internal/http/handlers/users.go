package handlers

import (
	"net/http"

	"ridepool/internal/domain"
	"ridepool/internal/domain/models"
	"ridepool/internal/repositories"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// GET /api/users?page=1&limit=50
func GetUsers(c *gin.Context) {
	limit, offset := pageParams(c)
	users, err := repositories.UserRepo{}.ListUsers(limit, offset)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// GET /api/users/:id
func GetUserByID(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	user, err := repositories.UserRepo{}.GetUserByID(id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

type userUpdateRequest struct {
	FullName      *string `json:"full_name"`
	Phone         *string `json:"phone"`
	DriverLicense *string `json:"driver_license"`
	Role          *string `json:"role"`
	Password      *string `json:"password"`
}

// PATCH /api/users/:id
func UpdateUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req userUpdateRequest
	if !BindJSONOrError(c, &req) {
		return
	}

	var passwordHash *string
	if req.Password != nil {
		if len(*req.Password) < 8 {
			RespondDomainError(c, domain.ValidationError{Field: "password", Msg: "must be at least 8 characters"})
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			RespondDomainError(c, domain.InternalError{Msg: "failed to hash password", Err: err})
			return
		}
		s := string(hash)
		passwordHash = &s
	}

	repo := repositories.UserRepo{}
	err := repo.UpdateUser(id, models.UserUpdate{
		FullName:      req.FullName,
		Phone:         req.Phone,
		DriverLicense: req.DriverLicense,
		Role:          req.Role,
		Password:      passwordHash,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}

	user, err := repo.GetUserByID(id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// DELETE /api/users/:id
func DeleteUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := (repositories.UserRepo{}).DeleteUser(id); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}
