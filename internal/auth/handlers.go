package auth

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"bakehouse-backend/internal/database"
	apperrors "bakehouse-backend/internal/errors"
	"bakehouse-backend/internal/models"
	"bakehouse-backend/pkg/utils"
)

// HandleLogin handles account login
func HandleLogin(c *gin.Context) {
	clientIP := utils.GetClientIP(c)

	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
		return
	}

	var account models.Account
	if err := database.DB.Where("username = ?", req.Username).First(&account).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			log.Printf("🔐 LOGIN failed for unknown account from %s", clientIP)
			respondInvalidCredentials(c)
			return
		}
		utils.SendErrorResponse(c, http.StatusInternalServerError, &apperrors.AppError{
			Code:    "DATABASE_ERROR",
			Message: "Database error occurred",
			Details: "Failed to query account",
			Err:     err,
		})
		return
	}

	if IsAccountLocked(&account) {
		lockRemaining := time.Until(*account.LockedUntil)
		utils.SendErrorResponse(c, http.StatusLocked, &apperrors.AppError{
			Code:    apperrors.ErrAccountLocked.Code,
			Message: apperrors.ErrAccountLocked.Message,
			Details: fmt.Sprintf("Account locked until %s (%.0f minutes remaining)",
				account.LockedUntil.Format(time.RFC3339), lockRemaining.Minutes()),
		})
		return
	}

	if !CheckPassword(req.Password, account.Password) {
		if err := RecordFailedLogin(database.DB, &account); err != nil {
			utils.HandleError(err, fmt.Sprintf("Failed to record failed login for account %s", account.Username))
		}

		if IsAccountLocked(&account) {
			utils.SendErrorResponse(c, http.StatusLocked, &apperrors.AppError{
				Code:    apperrors.ErrAccountLocked.Code,
				Message: apperrors.ErrAccountLocked.Message,
				Details: fmt.Sprintf("Account locked until %s", account.LockedUntil.Format(time.RFC3339)),
			})
		} else {
			respondInvalidCredentials(c)
		}
		return
	}

	if err := RecordSuccessfulLogin(database.DB, &account); err != nil {
		utils.HandleError(err, fmt.Sprintf("Failed to reset login attempts for account %s", account.Username))
	}

	token, expiry, err := GenerateToken(account)
	if err != nil {
		utils.SendErrorResponse(c, http.StatusInternalServerError, &apperrors.AppError{
			Code:    "TOKEN_GENERATION_FAILED",
			Message: "Failed to generate token",
			Err:     err,
		})
		return
	}

	log.Printf("✅ LOGIN %s from %s", account.Username, clientIP)
	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": expiry.Format(time.RFC3339),
		"account":    account,
	})
}

// HandleLogout revokes the current token
func HandleLogout(c *gin.Context) {
	username := c.GetString("username")
	tokenString := c.GetString("token")

	expiry := time.Now().Add(24 * time.Hour)
	if value, exists := c.Get("token_expiry"); exists {
		if t, ok := value.(time.Time); ok {
			expiry = t
		}
	}

	BlacklistToken(database.DB, tokenString, username, expiry)
	log.Printf("✅ LOGOUT %s", username)
	c.Status(http.StatusNoContent)
}

func respondInvalidCredentials(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
}
