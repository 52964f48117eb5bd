package handlers

import (
	"net/http"

	"ridepool/internal/domain/models"
	"ridepool/internal/http/middleware"
	"ridepool/internal/repositories"

	"github.com/gin-gonic/gin"
)

type groupPayload struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// POST /api/groups
func CreateGroup(c *gin.Context) {
	var req groupPayload
	if !BindJSONOrError(c, &req) {
		return
	}

	repo := repositories.GroupRepo{}
	id, err := repo.CreateGroup(models.Group{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	group, err := repo.GetGroupByID(id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"group": group})
}

// GET /api/groups?page=1&limit=50
func GetGroups(c *gin.Context) {
	limit, offset := pageParams(c)
	groups, err := repositories.GroupRepo{}.ListGroups(limit, offset)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

// GET /api/groups/:id
func GetGroupByID(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	group, err := repositories.GroupRepo{}.GetGroupByID(id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"group": group})
}

// DELETE /api/groups/:id
func DeleteGroup(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := (repositories.GroupRepo{}).DeleteGroup(id); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "group deleted"})
}

// POST /api/groups/:id/members
func JoinGroup(c *gin.Context) {
	groupID, ok := pathID(c)
	if !ok {
		return
	}
	userID := middleware.AuthUserID(c)
	if userID == 0 {
		respondError(c, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		return
	}
	if _, err := (repositories.GroupRepo{}).AddMember(groupID, userID); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "joined group"})
}

// DELETE /api/groups/:id/members
func LeaveGroup(c *gin.Context) {
	groupID, ok := pathID(c)
	if !ok {
		return
	}
	userID := middleware.AuthUserID(c)
	if userID == 0 {
		respondError(c, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		return
	}
	if err := (repositories.GroupRepo{}).RemoveMember(groupID, userID); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "left group"})
}

// GET /api/groups/:id/members
func GetGroupMembers(c *gin.Context) {
	groupID, ok := pathID(c)
	if !ok {
		return
	}
	members, err := repositories.GroupRepo{}.ListMembers(groupID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}
