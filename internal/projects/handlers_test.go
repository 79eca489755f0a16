package projects

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
	"bakehouse-backend/internal/membership"
	"bakehouse-backend/internal/models"
	"bakehouse-backend/internal/quotas"
)

func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB, *broker.Recorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	database.DB = db

	require.NoError(t, db.Create(&models.Organization{Name: "bakers", Deletable: true}).Error)
	require.NoError(t, db.Create(&models.Member{Organization: "bakers", Account: "alice", IsAdmin: true, IsOwner: true}).Error)
	require.NoError(t, db.Create(&models.Member{Organization: "bakers", Account: "bob"}).Error)
	require.NoError(t, db.Create(&models.Quota{Key: config.QuotaMaxProjects, Owner: "bakers", Value: 1}).Error)

	recorder := &broker.Recorder{}
	defaults := config.QuotaDefaults{MaxKeys: 5, MaxOrganizations: 2, MaxProjects: 1, MaxVPCs: 2}
	Init(membership.New(db), quotas.New(db), cascade.New(db, recorder, defaults), "ssh://git@git.local/%s/%s.git")

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("username", c.GetHeader("X-Test-User"))
		c.Next()
	})
	router.POST("/projects/:organization", HandleCreateProject)
	router.GET("/projects/:organization", HandleListProjects)
	router.GET("/projects/:organization/:name", HandleGetProject)
	router.DELETE("/projects/:organization/:name", HandleDeleteProject)
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

func TestCreateProject(t *testing.T) {
	router, db, recorder := newTestRouter(t)

	w := do(router, http.MethodPost, "/projects/bakers", "alice", gin.H{"name": "tarts"})
	require.Equal(t, http.StatusCreated, w.Code)

	var project models.Project
	require.NoError(t, db.Where("owner = ? AND name = ?", "bakers", "tarts").First(&project).Error)
	assert.Equal(t, "ssh://git@git.local/bakers/tarts.git", project.URI)
	assert.True(t, project.Deletable)

	events := recorder.Events()
	require.Len(t, events, 1)
	assert.Equal(t, config.ExchangeGit, events[0].Exchange)
	assert.Equal(t, "create-repo", events[0].RoutingKey)
	assert.Equal(t, "bakers.tarts", events[0].Payload["repo"])
	assert.Equal(t, "bakers", events[0].Payload["organization"])
}

func TestCreateProjectAuthorizationAndQuota(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := do(router, http.MethodPost, "/projects/bakers", "bob", gin.H{"name": "tarts"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	require.Equal(t, http.StatusCreated,
		do(router, http.MethodPost, "/projects/bakers", "alice", gin.H{"name": "tarts"}).Code)

	// Quota is 1.
	w = do(router, http.MethodPost, "/projects/bakers", "alice", gin.H{"name": "pies"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCreateProjectDuplicate(t *testing.T) {
	router, db, _ := newTestRouter(t)
	require.NoError(t, db.Model(&models.Quota{}).
		Where("owner = ? AND key = ?", "bakers", config.QuotaMaxProjects).
		Update("value", 5).Error)

	require.Equal(t, http.StatusCreated,
		do(router, http.MethodPost, "/projects/bakers", "alice", gin.H{"name": "tarts"}).Code)
	w := do(router, http.MethodPost, "/projects/bakers", "alice", gin.H{"name": "tarts"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListAndGetProject(t *testing.T) {
	router, _, _ := newTestRouter(t)
	require.Equal(t, http.StatusCreated,
		do(router, http.MethodPost, "/projects/bakers", "alice", gin.H{"name": "tarts"}).Code)

	w := do(router, http.MethodGet, "/projects/bakers", "bob", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.Project
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	w = do(router, http.MethodGet, "/projects/bakers", "mallory", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(router, http.MethodGet, "/projects/bakers/tarts", "bob", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(router, http.MethodGet, "/projects/bakers/ghost", "bob", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteProject(t *testing.T) {
	router, db, recorder := newTestRouter(t)
	require.Equal(t, http.StatusCreated,
		do(router, http.MethodPost, "/projects/bakers", "alice", gin.H{"name": "tarts"}).Code)
	recorder.Reset()

	w := do(router, http.MethodDelete, "/projects/bakers/tarts", "bob", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(router, http.MethodDelete, "/projects/bakers/ghost", "alice", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(router, http.MethodDelete, "/projects/bakers/tarts", "alice", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	var count int64
	db.Model(&models.Project{}).Where("owner = ?", "bakers").Count(&count)
	assert.Zero(t, count)

	events := recorder.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "delete-repo", events[0].RoutingKey)
	assert.Equal(t, "bakers.tarts", events[0].Payload["repo"])
}
