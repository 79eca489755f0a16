package vpcs

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

// HandleCreateVPC creates a VPC in an organization (admins only)
func HandleCreateVPC(c *gin.Context) {
	username := c.GetString("username")
	organization := c.Param("organization")

	if !authority.HasRole(organization, username, membership.RoleAdmin) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Admin privileges required"})
		return
	}

	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "VPC name is required"})
		return
	}

	name := strings.ToLower(strings.TrimSpace(req.Name))
	if !utils.IsValidSlug(name) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "VPC name must be a lowercase slug"})
		return
	}

	if !enforcer.CanCreate(organization, config.QuotaMaxVPCs) {
		c.JSON(http.StatusForbidden, gin.H{"error": "VPC quota exceeded"})
		return
	}

	vpc := models.VPC{
		Name:      name,
		Owner:     organization,
		Deletable: true,
	}
	if err := database.DB.Create(&vpc).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A VPC with this name already exists"})
		return
	}

	provisioner.VPCCreated(c.Request.Context(), &vpc)
	log.Printf("✅ Created VPC %s-%s", organization, name)
	c.JSON(http.StatusCreated, vpc)
}

// HandleListVPCs lists an organization's VPCs (members only)
func HandleListVPCs(c *gin.Context) {
	username := c.GetString("username")
	organization := c.Param("organization")

	if !authority.IsMember(organization, username) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not a member of this organization"})
		return
	}

	var rows []models.VPC
	if err := database.DB.Where("owner = ?", organization).Order("date_created ASC").Find(&rows).Error; err != nil {
		utils.SendErrorResponse(c, http.StatusInternalServerError, &apperrors.AppError{
			Code:    "DATABASE_ERROR",
			Message: "Failed to list VPCs",
			Err:     err,
		})
		return
	}
	c.JSON(http.StatusOK, rows)
}

// HandleGetVPC returns one VPC (members only)
func HandleGetVPC(c *gin.Context) {
	username := c.GetString("username")
	organization := c.Param("organization")
	name := c.Param("name")

	if !authority.IsMember(organization, username) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not a member of this organization"})
		return
	}

	var vpc models.VPC
	if err := database.DB.Where("name = ? AND owner = ?", name, organization).First(&vpc).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "VPC not found"})
		return
	}
	c.JSON(http.StatusOK, vpc)
}

// HandleDeleteVPC removes a VPC (admins only; the default VPC is
// non-deletable).
func HandleDeleteVPC(c *gin.Context) {
	username := c.GetString("username")
	organization := c.Param("organization")
	name := c.Param("name")

	if !authority.HasRole(organization, username, membership.RoleAdmin) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Admin privileges required"})
		return
	}

	var vpc models.VPC
	err := database.DB.Where("name = ? AND owner = ?", name, organization).First(&vpc).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "VPC not found"})
			return
		}
		utils.SendErrorResponse(c, http.StatusInternalServerError, &apperrors.AppError{
			Code:    "DATABASE_ERROR",
			Message: "Failed to query VPC",
			Err:     err,
		})
		return
	}

	if !vpc.Deletable {
		c.JSON(http.StatusForbidden, gin.H{"error": "This VPC cannot be deleted"})
		return
	}

	if err := database.DB.Delete(&vpc).Error; err != nil {
		utils.SendErrorResponse(c, http.StatusInternalServerError, &apperrors.AppError{
			Code:    "DATABASE_ERROR",
			Message: "Failed to delete VPC",
			Err:     err,
		})
		return
	}

	provisioner.VPCDeleted(c.Request.Context(), &vpc)
	log.Printf("✅ Deleted VPC %s-%s", organization, name)
	c.Status(http.StatusNoContent)
}
