package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"bakehouse-backend/internal/models"
)

func init() {
	jwtSecret = []byte("test-secret")
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func TestTokenRoundTrip(t *testing.T) {
	account := models.Account{Username: "alice"}

	token, expiry, err := GenerateToken(account)
	require.NoError(t, err)
	assert.True(t, expiry.After(time.Now()))

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	account := models.Account{Username: "alice"}

	token, _, err := GenerateTokenWithTTL(account, -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(token)
	assert.Error(t, err)
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	_, err := ParseToken("not.a.token")
	assert.Error(t, err)
}

func TestTokenBlacklist(t *testing.T) {
	db := newTestDB(t)
	account := models.Account{Username: "alice"}
	token, expiry, err := GenerateToken(account)
	require.NoError(t, err)

	assert.False(t, IsTokenBlacklisted(db, token))
	BlacklistToken(db, token, "alice", expiry)
	assert.True(t, IsTokenBlacklisted(db, token))

	// Expired entries get swept.
	past := time.Now().Add(-time.Hour)
	db.Model(&models.TokenBlacklist{}).Where("account = ?", "alice").Update("expires_at", past)
	CleanupTokenBlacklist(db)
	assert.False(t, IsTokenBlacklisted(db, token))
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("sourdough42")
	require.NoError(t, err)
	assert.NotEqual(t, "sourdough42", hash)

	assert.True(t, CheckPassword("sourdough42", hash))
	assert.False(t, CheckPassword("wrong", hash))
}

func TestFailedLoginLockout(t *testing.T) {
	db := newTestDB(t)
	account := models.Account{Username: "alice", Email: "alice@example.com", Password: "x"}
	require.NoError(t, db.Create(&account).Error)

	for i := 0; i < 4; i++ {
		require.NoError(t, RecordFailedLogin(db, &account))
		assert.False(t, IsAccountLocked(&account))
	}

	// Fifth failure locks for 30 minutes.
	require.NoError(t, RecordFailedLogin(db, &account))
	assert.True(t, IsAccountLocked(&account))
	assert.Equal(t, 5, account.FailedLoginAttempts)

	require.NoError(t, RecordSuccessfulLogin(db, &account))
	assert.False(t, IsAccountLocked(&account))
	assert.Zero(t, account.FailedLoginAttempts)
	assert.Nil(t, account.LockedUntil)
}
