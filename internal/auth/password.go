package auth

import (
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"bakehouse-backend/internal/models"
)

const bcryptCost = 14

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}

// CheckPassword verifies a password against a hash
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// IsAccountLocked checks if an account is locked
func IsAccountLocked(account *models.Account) bool {
	return account.LockedUntil != nil && time.Now().Before(*account.LockedUntil)
}

// RecordFailedLogin records a failed login attempt
func RecordFailedLogin(db *gorm.DB, account *models.Account) error {
	now := time.Now()
	account.FailedLoginAttempts++
	account.LastFailedLogin = &now

	// Lock account after 5 failed attempts
	if account.FailedLoginAttempts >= 5 {
		lockUntil := now.Add(30 * time.Minute)
		account.LockedUntil = &lockUntil
	}

	return db.Save(account).Error
}

// RecordSuccessfulLogin resets failed login attempts
func RecordSuccessfulLogin(db *gorm.DB, account *models.Account) error {
	account.FailedLoginAttempts = 0
	account.LastFailedLogin = nil
	account.LockedUntil = nil
	return db.Save(account).Error
}
