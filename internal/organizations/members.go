package organizations

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"bakehouse-backend/internal/database"
	apperrors "bakehouse-backend/internal/errors"
	"bakehouse-backend/internal/membership"
	"bakehouse-backend/internal/models"
	"bakehouse-backend/pkg/utils"
)

// HandleListOwnMemberships lists the caller's membership rows
func HandleListOwnMemberships(c *gin.Context) {
	username := c.GetString("username")

	var members []models.Member
	if err := database.DB.Where("account = ?", username).Order("date_created DESC").Find(&members).Error; err != nil {
		utils.SendErrorResponse(c, http.StatusInternalServerError, &apperrors.AppError{
			Code:    "DATABASE_ERROR",
			Message: "Failed to list memberships",
			Err:     err,
		})
		return
	}
	c.JSON(http.StatusOK, members)
}

// HandleListMembers lists the members of an organization
func HandleListMembers(c *gin.Context) {
	username := c.GetString("username")
	organization := c.Param("organization")

	if !authority.IsMember(organization, username) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not a member of this organization"})
		return
	}

	var members []models.Member
	if err := database.DB.Where("organization = ?", organization).Order("date_created ASC").Find(&members).Error; err != nil {
		utils.SendErrorResponse(c, http.StatusInternalServerError, &apperrors.AppError{
			Code:    "DATABASE_ERROR",
			Message: "Failed to list members",
			Err:     err,
		})
		return
	}
	c.JSON(http.StatusOK, members)
}

// HandleUpdateMember changes a member's admin flag. The owner's roles
// are immutable.
func HandleUpdateMember(c *gin.Context) {
	username := c.GetString("username")
	organization := c.Param("organization")

	if !authority.IsMember(organization, username) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
		return
	}
	if !authority.HasRole(organization, username, membership.RoleAdmin) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Admin privileges required"})
		return
	}

	var req struct {
		Account *string `json:"account" binding:"required"`
		IsAdmin *bool   `json:"is_admin" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Account and is_admin are required"})
		return
	}

	var member models.Member
	err := database.DB.Where("organization = ? AND account = ?", organization, *req.Account).First(&member).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Member not found"})
			return
		}
		utils.SendErrorResponse(c, http.StatusInternalServerError, &apperrors.AppError{
			Code:    "DATABASE_ERROR",
			Message: "Failed to query member",
			Err:     err,
		})
		return
	}

	if member.IsOwner {
		c.JSON(http.StatusForbidden, gin.H{"error": "The owner's roles cannot be changed"})
		return
	}

	member.IsAdmin = *req.IsAdmin
	if err := database.DB.Save(&member).Error; err != nil {
		utils.SendErrorResponse(c, http.StatusInternalServerError, &apperrors.AppError{
			Code:    "DATABASE_ERROR",
			Message: "Failed to update member",
			Err:     err,
		})
		return
	}

	log.Printf("✅ Updated member %s in %s (admin=%t)", member.Account, organization, member.IsAdmin)
	c.Status(http.StatusNoContent)
}

// HandleDeleteMember removes a member. Admins can remove anyone but the
// owner; a member can always remove themself.
func HandleDeleteMember(c *gin.Context) {
	username := c.GetString("username")
	organization := c.Param("organization")
	target := c.Param("account")

	if !authority.IsMember(organization, username) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
		return
	}
	if target != username && !authority.HasRole(organization, username, membership.RoleAdmin) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Admin privileges required"})
		return
	}

	var member models.Member
	err := database.DB.Where("organization = ? AND account = ?", organization, target).First(&member).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Member not found"})
			return
		}
		utils.SendErrorResponse(c, http.StatusInternalServerError, &apperrors.AppError{
			Code:    "DATABASE_ERROR",
			Message: "Failed to query member",
			Err:     err,
		})
		return
	}

	if member.IsOwner {
		c.JSON(http.StatusForbidden, gin.H{"error": "The owner cannot be removed"})
		return
	}

	if err := database.DB.Delete(&member).Error; err != nil {
		utils.SendErrorResponse(c, http.StatusInternalServerError, &apperrors.AppError{
			Code:    "DATABASE_ERROR",
			Message: "Failed to remove member",
			Err:     err,
		})
		return
	}

	provisioner.MemberDeleted(c.Request.Context(), &member)
	log.Printf("✅ Removed member %s from %s", target, organization)
	c.Status(http.StatusNoContent)
}
