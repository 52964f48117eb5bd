package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"ridepool/internal/domain"
	"ridepool/internal/domain/models"
	"ridepool/internal/http/middleware"
	"ridepool/internal/repositories"

	"github.com/gin-gonic/gin"
)

type reviewPayload struct {
	RideID     int64  `json:"ride_id" binding:"required"`
	RevieweeID int64  `json:"reviewee_id" binding:"required"`
	Rating     int    `json:"rating" binding:"required"`
	Comment    string `json:"comment"`
}

// POST /api/reviews
func CreateReview(c *gin.Context) {
	var req reviewPayload
	if !BindJSONOrError(c, &req) {
		return
	}

	reviewerID := middleware.AuthUserID(c)
	if reviewerID == 0 {
		respondError(c, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		return
	}
	if reviewerID == req.RevieweeID {
		RespondDomainError(c, domain.ValidationError{Field: "reviewee_id", Msg: "cannot review yourself"})
		return
	}

	repo := repositories.ReviewRepo{}
	id, err := repo.CreateReview(models.Review{
		RideID:     req.RideID,
		ReviewerID: reviewerID,
		RevieweeID: req.RevieweeID,
		Rating:     req.Rating,
		Comment:    req.Comment,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	review, err := repo.GetReviewByID(id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"review": review})
}

// GET /api/reviews?ride_id=7&page=1&limit=50
func GetReviews(c *gin.Context) {
	limit, offset := pageParams(c)
	var rideID int64
	if v := strings.TrimSpace(c.Query("ride_id")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			RespondDomainError(c, domain.ValidationError{Field: "ride_id", Msg: "invalid id"})
			return
		}
		rideID = id
	}
	reviews, err := repositories.ReviewRepo{}.ListReviews(rideID, limit, offset)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}

// DELETE /api/reviews/:id
func DeleteReview(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := (repositories.ReviewRepo{}).DeleteReview(id); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "review deleted"})
}
