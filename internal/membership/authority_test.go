package membership

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"bakehouse-backend/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func seedMembers(t *testing.T, db *gorm.DB) {
	t.Helper()
	rows := []models.Member{
		{Organization: "bakers", Account: "alice", IsAdmin: true, IsOwner: true},
		{Organization: "bakers", Account: "bob", IsAdmin: true},
		{Organization: "bakers", Account: "carol"},
		{Organization: "millers", Account: "alice"},
	}
	for i := range rows {
		require.NoError(t, db.Create(&rows[i]).Error)
	}
	for _, name := range []string{"bakers", "millers"} {
		require.NoError(t, db.Create(&models.Organization{Name: name, Deletable: true}).Error)
	}
}

func TestIsMember(t *testing.T) {
	db := newTestDB(t)
	seedMembers(t, db)
	authority := New(db)

	assert.True(t, authority.IsMember("bakers", "alice"))
	assert.True(t, authority.IsMember("bakers", "carol"))
	assert.False(t, authority.IsMember("bakers", "mallory"))
	assert.False(t, authority.IsMember("ghosts", "alice"))
	assert.False(t, authority.IsMember("", "alice"))
	assert.False(t, authority.IsMember("bakers", ""))
}

func TestHasRole(t *testing.T) {
	db := newTestDB(t)
	seedMembers(t, db)
	authority := New(db)

	assert.True(t, authority.HasRole("bakers", "alice", RoleAdmin))
	assert.True(t, authority.HasRole("bakers", "alice", RoleOwner))
	assert.True(t, authority.HasRole("bakers", "bob", RoleAdmin))
	assert.False(t, authority.HasRole("bakers", "bob", RoleOwner))
	assert.False(t, authority.HasRole("bakers", "carol", RoleAdmin))
	assert.False(t, authority.HasRole("bakers", "alice", Role("stranger")))
}

func TestOrganizationsOf(t *testing.T) {
	db := newTestDB(t)
	seedMembers(t, db)
	authority := New(db)

	orgs, err := authority.OrganizationsOf("alice")
	require.NoError(t, err)
	assert.Len(t, orgs, 2)

	owned, err := authority.OrganizationsOf("alice", RoleOwner)
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, "bakers", owned[0].Name)

	none, err := authority.OrganizationsOf("mallory")
	require.NoError(t, err)
	assert.Empty(t, none)
}
