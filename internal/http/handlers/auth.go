package handlers

import (
	"net/http"
	"strings"
	"time"

	"ridepool/internal/domain"
	"ridepool/internal/domain/models"
	"ridepool/internal/repositories"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type registerRequest struct {
	Email         string `json:"email" binding:"required"`
	Password      string `json:"password" binding:"required"`
	FullName      string `json:"full_name" binding:"required"`
	Phone         string `json:"phone"`
	IdentityID    string `json:"identity_id" binding:"required"`
	DriverLicense string `json:"driver_license"`
	Role          string `json:"role"`
}

// POST /api/auth/register
func Register(c *gin.Context) {
	var req registerRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	if len(req.Password) < 8 {
		RespondDomainError(c, domain.ValidationError{Field: "password", Msg: "must be at least 8 characters"})
		return
	}
	role := strings.ToUpper(strings.TrimSpace(req.Role))
	if role == "" {
		role = models.RolePassenger
	}
	switch role {
	case models.RoleDriver, models.RolePassenger, models.RoleBoth:
	default:
		RespondDomainError(c, domain.ValidationError{Field: "role", Msg: "must be DRIVER, PASSENGER or BOTH"})
		return
	}
	if role != models.RolePassenger && req.DriverLicense == "" {
		RespondDomainError(c, domain.ValidationError{Field: "driver_license", Msg: "required for drivers"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		RespondDomainError(c, domain.InternalError{Msg: "failed to hash password", Err: err})
		return
	}

	repo := repositories.UserRepo{}
	id, err := repo.CreateUser(models.User{
		Email:         req.Email,
		PasswordHash:  string(hash),
		FullName:      req.FullName,
		Phone:         req.Phone,
		IdentityID:    req.IdentityID,
		DriverLicense: req.DriverLicense,
		Role:          role,
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
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// POST /api/auth/login
func Login(c *gin.Context) {
	var req loginRequest
	if !BindJSONOrError(c, &req) {
		return
	}

	user, err := repositories.UserRepo{}.GetUserByEmail(req.Email)
	if err != nil {
		if domain.IsNotFound(err) {
			respondError(c, http.StatusUnauthorized, "unauthorized", "invalid email or password", nil)
			return
		}
		RespondDomainError(c, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		respondError(c, http.StatusUnauthorized, "unauthorized", "invalid email or password", nil)
		return
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"role":    user.Role,
		"exp":     time.Now().Add(24 * time.Hour).Unix(),
	})
	signed, err := token.SignedString(secret())
	if err != nil {
		RespondDomainError(c, domain.InternalError{Msg: "failed to sign token", Err: err})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": signed, "user": user})
}
