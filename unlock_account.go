package main

import (
	"fmt"
	"log"
	"os"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"bakehouse-backend/internal/models"
)

// One-off admin helper: reset a locked account and set a fresh password.
// Usage: go run unlock_account.go <username> <new-password>
func main() {
	if len(os.Args) != 3 {
		log.Fatal("usage: unlock_account <username> <new-password>")
	}
	username, password := os.Args[1], os.Args[2]

	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		dsn = "host=postgres user=bakehouse password=bakehouse dbname=bakehouse port=5432 sslmode=require"
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), 14)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	var account models.Account
	if err := db.Where("username = ?", username).First(&account).Error; err != nil {
		log.Fatalf("Failed to find account: %v", err)
	}

	account.Password = string(hashedBytes)
	account.FailedLoginAttempts = 0
	account.LockedUntil = nil

	if err := db.Save(&account).Error; err != nil {
		log.Fatalf("Failed to update account: %v", err)
	}

	fmt.Println("Account unlocked successfully!")
}
