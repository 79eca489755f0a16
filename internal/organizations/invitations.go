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

// HandleListOwnInvitations lists the invitations addressed to the caller
func HandleListOwnInvitations(c *gin.Context) {
	username := c.GetString("username")

	var invitations []models.Invitation
	if err := database.DB.Where("account = ?", username).Order("date_created DESC").Find(&invitations).Error; err != nil {
		utils.SendErrorResponse(c, http.StatusInternalServerError, &apperrors.AppError{
			Code:    "DATABASE_ERROR",
			Message: "Failed to list invitations",
			Err:     err,
		})
		return
	}
	c.JSON(http.StatusOK, invitations)
}

// HandleCreateInvitation invites an account into an organization. The
// organization, the inviter's admin membership and the invited account
// all read as 404 when missing, so outsiders learn nothing.
func HandleCreateInvitation(c *gin.Context) {
	username := c.GetString("username")

	var req struct {
		Organization string `json:"organization" binding:"required"`
		Account      string `json:"account" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Organization and account are required"})
		return
	}

	if !authority.HasRole(req.Organization, username, membership.RoleAdmin) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
		return
	}

	var accountCount int64
	database.DB.Model(&models.Account{}).Where("username = ?", req.Account).Count(&accountCount)
	if accountCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
		return
	}

	if authority.IsMember(req.Organization, req.Account) {
		c.JSON(http.StatusConflict, gin.H{"error": "Account is already a member"})
		return
	}

	invitation := models.Invitation{
		Organization: req.Organization,
		Account:      req.Account,
	}
	if err := database.DB.Create(&invitation).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invitation already exists"})
		return
	}

	log.Printf("✅ Invited %s to %s", req.Account, req.Organization)
	c.JSON(http.StatusCreated, invitation)
}

// HandleListInvitations lists an organization's pending invitations
func HandleListInvitations(c *gin.Context) {
	username := c.GetString("username")
	organization := c.Param("organization")

	if !authority.IsMember(organization, username) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
		return
	}

	var invitations []models.Invitation
	if err := database.DB.Where("organization = ?", organization).Order("date_created DESC").Find(&invitations).Error; err != nil {
		utils.SendErrorResponse(c, http.StatusInternalServerError, &apperrors.AppError{
			Code:    "DATABASE_ERROR",
			Message: "Failed to list invitations",
			Err:     err,
		})
		return
	}
	c.JSON(http.StatusOK, invitations)
}

// HandleAcceptInvitation converts the caller's invitation into a
// membership. Accepting twice reads as 404 because the first accept
// consumed the invitation.
func HandleAcceptInvitation(c *gin.Context) {
	username := c.GetString("username")
	organization := c.Param("organization")

	var invitation models.Invitation
	err := database.DB.Where("organization = ? AND account = ?", organization, username).First(&invitation).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Invitation not found"})
			return
		}
		utils.SendErrorResponse(c, http.StatusInternalServerError, &apperrors.AppError{
			Code:    "DATABASE_ERROR",
			Message: "Failed to query invitation",
			Err:     err,
		})
		return
	}

	member := models.Member{
		Organization: organization,
		Account:      username,
	}
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&invitation).Error; err != nil {
			return err
		}
		return tx.Create(&member).Error
	})
	if err != nil {
		utils.SendErrorResponse(c, http.StatusInternalServerError, &apperrors.AppError{
			Code:    "DATABASE_ERROR",
			Message: "Failed to accept invitation",
			Err:     err,
		})
		return
	}

	provisioner.MemberCreated(c.Request.Context(), &member)
	log.Printf("✅ %s joined %s", username, organization)
	c.Status(http.StatusNoContent)
}

// HandleDeleteInvitation withdraws an invitation. Allowed for the
// invited account and for organization admins; everyone else gets 404.
func HandleDeleteInvitation(c *gin.Context) {
	username := c.GetString("username")
	organization := c.Param("organization")
	target := c.Param("account")

	if target != username && !authority.HasRole(organization, username, membership.RoleAdmin) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invitation not found"})
		return
	}

	var invitation models.Invitation
	err := database.DB.Where("organization = ? AND account = ?", organization, target).First(&invitation).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Invitation not found"})
			return
		}
		utils.SendErrorResponse(c, http.StatusInternalServerError, &apperrors.AppError{
			Code:    "DATABASE_ERROR",
			Message: "Failed to query invitation",
			Err:     err,
		})
		return
	}

	if err := database.DB.Delete(&invitation).Error; err != nil {
		utils.SendErrorResponse(c, http.StatusInternalServerError, &apperrors.AppError{
			Code:    "DATABASE_ERROR",
			Message: "Failed to delete invitation",
			Err:     err,
		})
		return
	}

	log.Printf("✅ Withdrew invitation for %s to %s", target, organization)
	c.Status(http.StatusNoContent)
}
