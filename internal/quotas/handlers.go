package quotas

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bakehouse-backend/internal/database"
	apperrors "bakehouse-backend/internal/errors"
	"bakehouse-backend/internal/membership"
	"bakehouse-backend/internal/models"
	"bakehouse-backend/pkg/utils"
)

var authority *membership.Authority

// Init wires the membership authority into this package
func Init(a *membership.Authority) {
	authority = a
}

// HandleListQuotas lists the caller's account quotas, or an
// organization's quotas when ?organization= is given (members only).
func HandleListQuotas(c *gin.Context) {
	username := c.GetString("username")

	owner := username
	if organization := c.Query("organization"); organization != "" {
		if !authority.IsMember(organization, username) {
			c.JSON(http.StatusForbidden, gin.H{"error": "You are not a member of this organization"})
			return
		}
		owner = organization
	}

	var rows []models.Quota
	if err := database.DB.Where("owner = ?", owner).Order("key ASC").Find(&rows).Error; err != nil {
		utils.SendErrorResponse(c, http.StatusInternalServerError, &apperrors.AppError{
			Code:    "DATABASE_ERROR",
			Message: "Failed to list quotas",
			Err:     err,
		})
		return
	}
	c.JSON(http.StatusOK, rows)
}
