package keys

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"bakehouse-backend/internal/broker"
	"bakehouse-backend/internal/cascade"
	"bakehouse-backend/internal/config"
	"bakehouse-backend/internal/database"
	"bakehouse-backend/internal/models"
	"bakehouse-backend/internal/quotas"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB, *broker.Recorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := newTestDB(t)
	database.DB = db
	require.NoError(t, db.Create(&models.Quota{Key: config.QuotaMaxKeys, Owner: "alice", Value: 2}).Error)

	recorder := &broker.Recorder{}
	defaults := config.QuotaDefaults{MaxKeys: 2, MaxOrganizations: 2, MaxProjects: 5, MaxVPCs: 2}
	Init(quotas.New(db), cascade.New(db, recorder, defaults))

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("username", c.GetHeader("X-Test-User"))
		c.Next()
	})
	router.POST("/keys", HandleCreateKey)
	router.GET("/keys", HandleListKeys)
	router.GET("/keys/:name", HandleGetKey)
	router.DELETE("/keys/:name", HandleDeleteKey)
	return router, db, recorder
}

func do(router *gin.Engine, method, path, user string, body interface{}) *httptest.ResponseRecorder {
	var raw []byte
	if body != nil {
		raw, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-User", user)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestFingerprintFormat(t *testing.T) {
	_, public, err := GenerateKeyPair()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(public, "ssh-rsa "))

	fingerprint, err := Fingerprint(public)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(fingerprint, "MD5:"))
	// 16 colon-separated hex bytes after the prefix.
	assert.Len(t, strings.Split(strings.TrimPrefix(fingerprint, "MD5:"), ":"), 16)

	// Deterministic for the same material.
	again, err := Fingerprint(public)
	require.NoError(t, err)
	assert.Equal(t, fingerprint, again)
}

func TestFingerprintRejectsGarbage(t *testing.T) {
	_, err := Fingerprint("not an ssh key")
	assert.Error(t, err)
}

func TestCreateKey(t *testing.T) {
	router, db, recorder := newTestRouter(t)
	_, public, err := GenerateKeyPair()
	require.NoError(t, err)

	w := do(router, http.MethodPost, "/keys", "alice", gin.H{"name": "laptop", "public": public})
	require.Equal(t, http.StatusCreated, w.Code)

	var key models.SSHKey
	require.NoError(t, db.Where("name = ? AND owner = ?", "laptop", "alice").First(&key).Error)
	assert.True(t, strings.HasPrefix(key.Fingerprint, "MD5:"))

	events := recorder.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "create-key", events[0].RoutingKey)
	assert.Equal(t, public, events[0].Payload["key"])
	assert.Equal(t, "alice", events[0].Payload["user"])
	assert.NotContains(t, events[0].Payload, "user_creation")
}

func TestCreateKeyInvalidMaterial(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := do(router, http.MethodPost, "/keys", "alice", gin.H{"name": "laptop", "public": "garbage"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateKeyDuplicateFingerprint(t *testing.T) {
	router, _, _ := newTestRouter(t)
	_, public, err := GenerateKeyPair()
	require.NoError(t, err)

	require.Equal(t, http.StatusCreated,
		do(router, http.MethodPost, "/keys", "alice", gin.H{"name": "laptop", "public": public}).Code)

	// Same material under a different name still collides on fingerprint.
	w := do(router, http.MethodPost, "/keys", "alice", gin.H{"name": "desktop", "public": public})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateKeyQuota(t *testing.T) {
	router, _, _ := newTestRouter(t)

	for _, name := range []string{"one", "two"} {
		_, public, err := GenerateKeyPair()
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated,
			do(router, http.MethodPost, "/keys", "alice", gin.H{"name": name, "public": public}).Code)
	}

	_, public, err := GenerateKeyPair()
	require.NoError(t, err)
	w := do(router, http.MethodPost, "/keys", "alice", gin.H{"name": "three", "public": public})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDeleteKey(t *testing.T) {
	router, db, recorder := newTestRouter(t)
	_, public, err := GenerateKeyPair()
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated,
		do(router, http.MethodPost, "/keys", "alice", gin.H{"name": "laptop", "public": public}).Code)
	recorder.Reset()

	// Another account cannot see it.
	w := do(router, http.MethodDelete, "/keys/laptop", "bob", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(router, http.MethodDelete, "/keys/laptop", "alice", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	var count int64
	db.Model(&models.SSHKey{}).Where("owner = ?", "alice").Count(&count)
	assert.Zero(t, count)

	events := recorder.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "delete-key", events[0].RoutingKey)
	assert.Equal(t, public, events[0].Payload["key"])
}
