package keys

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
	"bakehouse-backend/internal/models"
	"bakehouse-backend/internal/quotas"
	"bakehouse-backend/pkg/utils"
)

var (
	enforcer    *quotas.Enforcer
	provisioner *cascade.Cascade
)

// Init wires the quota and cascade components into this package
func Init(e *quotas.Enforcer, p *cascade.Cascade) {
	enforcer = e
	provisioner = p
}

// HandleCreateKey registers an SSH public key for the caller. The
// fingerprint is derived server-side and must be globally unique.
func HandleCreateKey(c *gin.Context) {
	username := c.GetString("username")

	var req struct {
		Name   string `json:"name" binding:"required"`
		Public string `json:"public" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name and public key are required"})
		return
	}

	name := strings.ToLower(strings.TrimSpace(req.Name))
	if !utils.IsValidSlug(name) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Key name must be a lowercase slug"})
		return
	}

	if !enforcer.CanCreate(username, config.QuotaMaxKeys) {
		c.JSON(http.StatusForbidden, gin.H{"error": "SSH key quota exceeded"})
		return
	}

	fingerprint, err := Fingerprint(req.Public)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid SSH public key"})
		return
	}

	key := models.SSHKey{
		Name:        name,
		Owner:       username,
		Public:      strings.TrimSpace(req.Public),
		Fingerprint: fingerprint,
	}
	if err := database.DB.Create(&key).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A key with this name or fingerprint already exists"})
		return
	}

	provisioner.KeyCreated(c.Request.Context(), &key, false)
	log.Printf("✅ Added SSH key %s for %s (%s)", name, username, fingerprint)
	c.JSON(http.StatusCreated, key)
}

// HandleListKeys lists the caller's SSH keys
func HandleListKeys(c *gin.Context) {
	username := c.GetString("username")

	var rows []models.SSHKey
	if err := database.DB.Where("owner = ?", username).Order("date_created DESC").Find(&rows).Error; err != nil {
		utils.SendErrorResponse(c, http.StatusInternalServerError, &apperrors.AppError{
			Code:    "DATABASE_ERROR",
			Message: "Failed to list keys",
			Err:     err,
		})
		return
	}
	c.JSON(http.StatusOK, rows)
}

// HandleGetKey returns one of the caller's SSH keys
func HandleGetKey(c *gin.Context) {
	username := c.GetString("username")
	name := c.Param("name")

	var key models.SSHKey
	if err := database.DB.Where("name = ? AND owner = ?", name, username).First(&key).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Key not found"})
		return
	}
	c.JSON(http.StatusOK, key)
}

// HandleDeleteKey removes one of the caller's SSH keys
func HandleDeleteKey(c *gin.Context) {
	username := c.GetString("username")
	name := c.Param("name")

	var key models.SSHKey
	err := database.DB.Where("name = ? AND owner = ?", name, username).First(&key).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Key not found"})
			return
		}
		utils.SendErrorResponse(c, http.StatusInternalServerError, &apperrors.AppError{
			Code:    "DATABASE_ERROR",
			Message: "Failed to query key",
			Err:     err,
		})
		return
	}

	if err := database.DB.Delete(&key).Error; err != nil {
		utils.SendErrorResponse(c, http.StatusInternalServerError, &apperrors.AppError{
			Code:    "DATABASE_ERROR",
			Message: "Failed to delete key",
			Err:     err,
		})
		return
	}

	provisioner.KeyDeleted(c.Request.Context(), &key)
	log.Printf("✅ Deleted SSH key %s for %s", name, username)
	c.Status(http.StatusNoContent)
}
