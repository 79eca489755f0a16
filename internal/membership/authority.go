package membership

import (
	"gorm.io/gorm"

	"bakehouse-backend/internal/models"
)

// Role is a membership role filter.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleOwner Role = "owner"
)

// Authority is the single source of truth for organization access
// decisions. Every org-scoped handler consults it before touching the
// store. It is purely a query layer: it never mutates and never errors
// on missing rows. A nonexistent organization or account simply reads
// as "not a member", so callers cannot leak organization existence to
// outsiders.
type Authority struct {
	db *gorm.DB
}

// New returns an Authority backed by the given database.
func New(db *gorm.DB) *Authority {
	return &Authority{db: db}
}

// IsMember reports whether account belongs to organization.
func (a *Authority) IsMember(organization, account string) bool {
	if organization == "" || account == "" {
		return false
	}
	var count int64
	a.db.Model(&models.Member{}).
		Where("organization = ? AND account = ?", organization, account).
		Count(&count)
	return count > 0
}

// HasRole reports whether account holds the given role in organization.
func (a *Authority) HasRole(organization, account string, role Role) bool {
	if organization == "" || account == "" {
		return false
	}
	query := a.db.Model(&models.Member{}).
		Where("organization = ? AND account = ?", organization, account)
	switch role {
	case RoleAdmin:
		query = query.Where("is_admin = ?", true)
	case RoleOwner:
		query = query.Where("is_owner = ?", true)
	default:
		return false
	}
	var count int64
	query.Count(&count)
	return count > 0
}

// OrganizationsOf returns the organizations account belongs to,
// optionally filtered by role.
func (a *Authority) OrganizationsOf(account string, role ...Role) ([]models.Organization, error) {
	query := a.db.Model(&models.Member{}).Where("account = ?", account)
	if len(role) > 0 {
		switch role[0] {
		case RoleAdmin:
			query = query.Where("is_admin = ?", true)
		case RoleOwner:
			query = query.Where("is_owner = ?", true)
		}
	}

	var names []string
	if err := query.Pluck("organization", &names).Error; err != nil {
		return nil, err
	}

	var organizations []models.Organization
	if len(names) == 0 {
		return organizations, nil
	}
	if err := a.db.Where("name IN ?", names).Order("date_created DESC").Find(&organizations).Error; err != nil {
		return nil, err
	}
	return organizations, nil
}
