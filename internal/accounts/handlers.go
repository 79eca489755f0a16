package accounts

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"bakehouse-backend/internal/auth"
	"bakehouse-backend/internal/cascade"
	"bakehouse-backend/internal/database"
	apperrors "bakehouse-backend/internal/errors"
	"bakehouse-backend/internal/keys"
	"bakehouse-backend/internal/models"
	"bakehouse-backend/pkg/utils"
)

var provisioner *cascade.Cascade

// Init wires the provisioning cascade into this package
func Init(p *cascade.Cascade) {
	provisioner = p
}

// HandleRegister creates an account together with its default
// organization, VPC, quotas and SSH key. The generated private key is
// returned in the response and never stored.
func HandleRegister(c *gin.Context) {
	var req struct {
		Username  string `json:"username" binding:"required"`
		Email     string `json:"email" binding:"required,email"`
		Password  string `json:"password" binding:"required,min=8"`
		Firstname string `json:"firstname"`
		Lastname  string `json:"lastname"`
		Company   string `json:"company"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid registration payload"})
		return
	}

	username := strings.ToLower(strings.TrimSpace(req.Username))
	if !utils.IsValidSlug(username) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username must be a lowercase slug"})
		return
	}

	// Accounts and organizations share one name namespace.
	if nameTaken(username) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username is already taken"})
		return
	}

	var emailCount int64
	database.DB.Model(&models.Account{}).Where("email = ?", req.Email).Count(&emailCount)
	if emailCount > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email is already registered"})
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		utils.SendErrorResponse(c, http.StatusInternalServerError, &apperrors.AppError{
			Code:    "PASSWORD_HASH_FAILED",
			Message: "Failed to process password",
			Err:     err,
		})
		return
	}

	account := models.Account{
		Username:  username,
		Email:     req.Email,
		Password:  hashed,
		Firstname: req.Firstname,
		Lastname:  req.Lastname,
		Company:   req.Company,
	}
	if err := database.DB.Create(&account).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username is already taken"})
		return
	}

	if err := provisioner.AccountCreated(c.Request.Context(), &account); err != nil {
		utils.SendErrorResponse(c, http.StatusInternalServerError, &apperrors.AppError{
			Code:    "PROVISIONING_FAILED",
			Message: "Account created but provisioning failed",
			Err:     err,
		})
		return
	}

	private, public, err := keys.GenerateKeyPair()
	if err != nil {
		utils.SendErrorResponse(c, http.StatusInternalServerError, &apperrors.AppError{
			Code:    "KEY_GENERATION_FAILED",
			Message: "Failed to generate default SSH key",
			Err:     err,
		})
		return
	}
	fingerprint, err := keys.Fingerprint(public)
	if err != nil {
		utils.SendErrorResponse(c, http.StatusInternalServerError, &apperrors.AppError{
			Code:    "KEY_GENERATION_FAILED",
			Message: "Failed to fingerprint default SSH key",
			Err:     err,
		})
		return
	}

	key := models.SSHKey{
		Name:        "default",
		Owner:       username,
		Public:      public,
		Fingerprint: fingerprint,
	}
	if err := database.DB.Create(&key).Error; err != nil {
		utils.SendErrorResponse(c, http.StatusInternalServerError, &apperrors.AppError{
			Code:    "PROVISIONING_FAILED",
			Message: "Failed to store default SSH key",
			Err:     err,
		})
		return
	}
	provisioner.KeyCreated(c.Request.Context(), &key, true)

	log.Printf("✅ Registered account %s", username)
	c.JSON(http.StatusCreated, gin.H{
		"account": account,
		"key": gin.H{
			"name":        key.Name,
			"public":      key.Public,
			"private":     private,
			"fingerprint": key.Fingerprint,
		},
	})
}

// HandleGetAccount returns the authenticated account's profile
func HandleGetAccount(c *gin.Context) {
	value, _ := c.Get("account")
	c.JSON(http.StatusOK, value)
}

// HandleDeleteAccount removes the authenticated account and notifies
// downstream consumers. Owned organizations are left for external cleanup.
func HandleDeleteAccount(c *gin.Context) {
	username := c.GetString("username")

	var account models.Account
	if err := database.DB.Where("username = ?", username).First(&account).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
		return
	}

	if err := database.DB.Delete(&account).Error; err != nil {
		utils.SendErrorResponse(c, http.StatusInternalServerError, &apperrors.AppError{
			Code:    "DATABASE_ERROR",
			Message: "Failed to delete account",
			Err:     err,
		})
		return
	}

	provisioner.AccountDeleted(c.Request.Context(), &account)
	log.Printf("✅ Deleted account %s", username)
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
