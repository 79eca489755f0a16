package cascade

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"bakehouse-backend/internal/broker"
	"bakehouse-backend/internal/config"
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

func testDefaults() config.QuotaDefaults {
	return config.QuotaDefaults{MaxKeys: 5, MaxOrganizations: 2, MaxProjects: 5, MaxVPCs: 2}
}

func TestAccountCreatedProvisionsDefaults(t *testing.T) {
	db := newTestDB(t)
	recorder := &broker.Recorder{}
	cascade := New(db, recorder, testDefaults())

	account := models.Account{Username: "alice", Email: "alice@example.com", Password: "x"}
	require.NoError(t, db.Create(&account).Error)
	require.NoError(t, cascade.AccountCreated(context.Background(), &account))

	var org models.Organization
	require.NoError(t, db.Where("name = ?", "alice-default").First(&org).Error)
	assert.False(t, org.Deletable)
	assert.Equal(t, "default", org.Description)

	var member models.Member
	require.NoError(t, db.Where("organization = ? AND account = ?", "alice-default", "alice").First(&member).Error)
	assert.True(t, member.IsAdmin)
	assert.True(t, member.IsOwner)

	var vpc models.VPC
	require.NoError(t, db.Where("owner = ? AND name = ?", "alice-default", "default").First(&vpc).Error)
	assert.False(t, vpc.Deletable)

	var accountQuotas []models.Quota
	require.NoError(t, db.Where("owner = ?", "alice").Order("key ASC").Find(&accountQuotas).Error)
	require.Len(t, accountQuotas, 2)
	assert.Equal(t, config.QuotaMaxKeys, accountQuotas[0].Key)
	assert.Equal(t, int64(5), accountQuotas[0].Value)
	assert.Equal(t, config.QuotaMaxOrganizations, accountQuotas[1].Key)
	assert.Equal(t, int64(2), accountQuotas[1].Value)

	var orgQuotas []models.Quota
	require.NoError(t, db.Where("owner = ?", "alice-default").Order("key ASC").Find(&orgQuotas).Error)
	require.Len(t, orgQuotas, 2)
	assert.Equal(t, config.QuotaMaxProjects, orgQuotas[0].Key)
	assert.Equal(t, config.QuotaMaxVPCs, orgQuotas[1].Key)

	// The bootstrap membership must not announce itself; only the
	// default VPC's namespace is published.
	events := recorder.Events()
	require.Len(t, events, 1)
	assert.Equal(t, config.ExchangeNamespace, events[0].Exchange)
	assert.Equal(t, "create", events[0].RoutingKey)
	assert.Equal(t, "alice-default-default", events[0].Payload["namespace"])
}

func TestOrganizationCreatedProvisionsAndAnnounces(t *testing.T) {
	db := newTestDB(t)
	recorder := &broker.Recorder{}
	cascade := New(db, recorder, testDefaults())

	org := models.Organization{Name: "bakers", Deletable: true}
	require.NoError(t, db.Create(&org).Error)
	require.NoError(t, cascade.OrganizationCreated(context.Background(), &org, "alice"))

	var vpc models.VPC
	require.NoError(t, db.Where("owner = ? AND name = ?", "bakers", "default").First(&vpc).Error)
	assert.False(t, vpc.Deletable)

	var quotaCount int64
	db.Model(&models.Quota{}).Where("owner = ?", "bakers").Count(&quotaCount)
	assert.Equal(t, int64(2), quotaCount)

	events := recorder.Events()
	require.Len(t, events, 2)
	assert.Equal(t, config.ExchangeNamespace, events[0].Exchange)
	assert.Equal(t, "create", events[0].RoutingKey)
	assert.Equal(t, "bakers-default", events[0].Payload["namespace"])
	assert.Equal(t, config.ExchangeGit, events[1].Exchange)
	assert.Equal(t, "create-member", events[1].RoutingKey)
	assert.Equal(t, "bakers", events[1].Payload["organization"])
	assert.Equal(t, "alice", events[1].Payload["account"])
}

func TestOrganizationDeletedEventOrdering(t *testing.T) {
	db := newTestDB(t)
	recorder := &broker.Recorder{}
	cascade := New(db, recorder, testDefaults())

	org := models.Organization{Name: "bakers", Deletable: true}
	cascade.OrganizationDeleted(context.Background(), &org, []string{"alice", "bob"})

	events := recorder.Events()
	require.Len(t, events, 3)
	assert.Equal(t, "delete-member", events[0].RoutingKey)
	assert.Equal(t, "alice", events[0].Payload["account"])
	assert.Equal(t, "delete-member", events[1].RoutingKey)
	assert.Equal(t, "bob", events[1].Payload["account"])
	assert.Equal(t, "delete-organization", events[2].RoutingKey)
	assert.Equal(t, "bakers", events[2].Payload["organization"])
}

func TestKeyCreatedBootstrapPayload(t *testing.T) {
	db := newTestDB(t)
	recorder := &broker.Recorder{}
	cascade := New(db, recorder, testDefaults())

	key := models.SSHKey{Name: "default", Owner: "alice", Public: "ssh-rsa AAAA", Fingerprint: "MD5:aa"}
	cascade.KeyCreated(context.Background(), &key, true)
	cascade.KeyCreated(context.Background(), &key, false)

	events := recorder.Events()
	require.Len(t, events, 2)

	bootstrap := events[0]
	assert.Equal(t, config.ExchangeGit, bootstrap.Exchange)
	assert.Equal(t, "create-key", bootstrap.RoutingKey)
	assert.Equal(t, "ssh-rsa AAAA", bootstrap.Payload["key"])
	assert.Equal(t, "alice", bootstrap.Payload["user"])
	assert.Equal(t, true, bootstrap.Payload["user_creation"])
	assert.Equal(t, true, bootstrap.Payload["organization_creation"])
	assert.Equal(t, "alice-default", bootstrap.Payload["organization"])

	plain := events[1]
	assert.Equal(t, "create-key", plain.RoutingKey)
	assert.NotContains(t, plain.Payload, "user_creation")
	assert.NotContains(t, plain.Payload, "organization")
}

func TestProjectEvents(t *testing.T) {
	db := newTestDB(t)
	recorder := &broker.Recorder{}
	cascade := New(db, recorder, testDefaults())

	project := models.Project{Name: "tarts", Owner: "bakers"}
	cascade.ProjectCreated(context.Background(), &project)
	cascade.ProjectDeleted(context.Background(), &project)

	events := recorder.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "create-repo", events[0].RoutingKey)
	assert.Equal(t, "bakers.tarts", events[0].Payload["repo"])
	assert.Equal(t, "bakers", events[0].Payload["organization"])
	assert.Equal(t, "delete-repo", events[1].RoutingKey)
	assert.Equal(t, "bakers.tarts", events[1].Payload["repo"])
	assert.NotContains(t, events[1].Payload, "organization")
}
