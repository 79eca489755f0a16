package organizations

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"bakehouse-backend/internal/cascade"
	"bakehouse-backend/internal/config"
	"bakehouse-backend/internal/database"
	apperrors "bakehouse-backend/internal/errors"
	"bakehouse-backend/internal/membership"
	"bakehouse-backend/internal/models"
	"bakehouse-backend/internal/quotas"
	"bakehouse-backend/pkg/utils"
)

var (
	authority   *membership.Authority
	enforcer    *quotas.Enforcer
	provisioner *cascade.Cascade
)

// Init wires the access, quota and cascade components into this package
func Init(a *membership.Authority, e *quotas.Enforcer, p *cascade.Cascade) {
	authority = a
	enforcer = e
	provisioner = p
}

// HandleCreateOrganization creates an organization with the caller as
// owner, plus its default VPC and quota rows.
func HandleCreateOrganization(c *gin.Context) {
	username := c.GetString("username")

	var req struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Organization name is required"})
		return
	}

	name := strings.ToLower(strings.TrimSpace(req.Name))
	if !utils.IsValidSlug(name) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Organization name must be a lowercase slug"})
		return
	}

	// Organizations and accounts share one name namespace.
	if nameTaken(name) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name is already taken"})
		return
	}

	if !enforcer.CanCreate(username, config.QuotaMaxOrganizations) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Organization quota exceeded"})
		return
	}

	org := models.Organization{
		Name:        name,
		Description: req.Description,
		Deletable:   true,
	}
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&org).Error; err != nil {
			return err
		}
		member := models.Member{
			Organization: org.Name,
			Account:      username,
			IsAdmin:      true,
			IsOwner:      true,
		}
		return tx.Create(&member).Error
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name is already taken"})
		return
	}

	if err := provisioner.OrganizationCreated(c.Request.Context(), &org, username); err != nil {
		utils.SendErrorResponse(c, http.StatusInternalServerError, &apperrors.AppError{
			Code:    "PROVISIONING_FAILED",
			Message: "Organization created but provisioning failed",
			Err:     err,
		})
		return
	}

	log.Printf("✅ Created organization %s (owner %s)", org.Name, username)
	c.JSON(http.StatusCreated, org)
}

// HandleListOrganizations lists the organizations the caller belongs to
func HandleListOrganizations(c *gin.Context) {
	username := c.GetString("username")

	orgs, err := authority.OrganizationsOf(username)
	if err != nil {
		utils.SendErrorResponse(c, http.StatusInternalServerError, &apperrors.AppError{
			Code:    "DATABASE_ERROR",
			Message: "Failed to list organizations",
			Err:     err,
		})
		return
	}
	c.JSON(http.StatusOK, orgs)
}

// HandleGetOrganization returns one organization with membership stats.
// Non-members get 404, not 403: outsiders cannot probe for existence.
func HandleGetOrganization(c *gin.Context) {
	username := c.GetString("username")
	name := c.Param("organization")

	if !authority.IsMember(name, username) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
		return
	}

	var org models.Organization
	if err := database.DB.Where("name = ?", name).First(&org).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
		return
	}

	var memberCount, invitationCount int64
	database.DB.Model(&models.Member{}).Where("organization = ?", name).Count(&memberCount)
	database.DB.Model(&models.Invitation{}).Where("organization = ?", name).Count(&invitationCount)

	c.JSON(http.StatusOK, gin.H{
		"organization": org,
		"stats": gin.H{
			"members":     memberCount,
			"invitations": invitationCount,
		},
	})
}

// HandleDeleteOrganization removes an organization, its members and its
// pending invitations, emitting one delete-member per removed member
// before the delete-organization event.
func HandleDeleteOrganization(c *gin.Context) {
	username := c.GetString("username")
	name := c.Param("organization")

	if !authority.IsMember(name, username) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
		return
	}
	if !authority.HasRole(name, username, membership.RoleOwner) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the owner can delete an organization"})
		return
	}

	var org models.Organization
	if err := database.DB.Where("name = ?", name).First(&org).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
		return
	}
	if !org.Deletable {
		c.JSON(http.StatusForbidden, gin.H{"error": "This organization cannot be deleted"})
		return
	}

	var removedMembers []string
	database.DB.Model(&models.Member{}).Where("organization = ?", name).Pluck("account", &removedMembers)

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("organization = ?", name).Delete(&models.Member{}).Error; err != nil {
			return err
		}
		if err := tx.Where("organization = ?", name).Delete(&models.Invitation{}).Error; err != nil {
			return err
		}
		return tx.Delete(&org).Error
	})
	if err != nil {
		utils.SendErrorResponse(c, http.StatusInternalServerError, &apperrors.AppError{
			Code:    "DATABASE_ERROR",
			Message: "Failed to delete organization",
			Err:     err,
		})
		return
	}

	provisioner.OrganizationDeleted(c.Request.Context(), &org, removedMembers)
	log.Printf("✅ Deleted organization %s", name)
	c.Status(http.StatusNoContent)
}

func nameTaken(name string) bool {
	var count int64
	database.DB.Model(&models.Account{}).Where("username = ?", name).Count(&count)
	if count > 0 {
		return true
	}
	database.DB.Model(&models.Organization{}).Where("name = ?", name).Count(&count)
	return count > 0
}
