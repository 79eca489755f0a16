package quotas

import (
	"gorm.io/gorm"

	"bakehouse-backend/internal/config"
	"bakehouse-backend/internal/models"
)

// Enforcer decides whether an owner may create one more resource of a
// kind. It only ever gates creation; reads and deletes are never quota
// checked. The count-then-compare has a benign race under concurrent
// creations (quotas are soft administrative limits, not security
// boundaries); the hard guarantees live in the store's unique
// constraints.
type Enforcer struct {
	db *gorm.DB
}

// New returns an Enforcer backed by the given database.
func New(db *gorm.DB) *Enforcer {
	return &Enforcer{db: db}
}

// CanCreate reports whether owner is below its threshold for the quota
// key. Every owner gets its quota rows at creation time, so a missing
// row signals a data-integrity problem and the check fails closed.
func (e *Enforcer) CanCreate(owner, key string) bool {
	var quota models.Quota
	if err := e.db.Where("owner = ? AND key = ?", owner, key).First(&quota).Error; err != nil {
		return false
	}
	return e.currentCount(owner, key) < quota.Value
}

func (e *Enforcer) currentCount(owner, key string) int64 {
	var count int64
	switch key {
	case config.QuotaMaxKeys:
		e.db.Model(&models.SSHKey{}).Where("owner = ?", owner).Count(&count)
	case config.QuotaMaxOrganizations:
		// Only organizations the account actually owns count against it;
		// the bootstrap "<owner>-default" organization is exempt.
		e.db.Model(&models.Member{}).
			Where("account = ? AND is_owner = ? AND organization <> ?", owner, true, owner+"-default").
			Count(&count)
	case config.QuotaMaxProjects:
		e.db.Model(&models.Project{}).Where("owner = ?", owner).Count(&count)
	case config.QuotaMaxVPCs:
		e.db.Model(&models.VPC{}).Where("owner = ?", owner).Count(&count)
	}
	return count
}
