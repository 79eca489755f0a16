package models

import (
	"time"
)

// Account is a registered user. The username doubles as the slug identity
// used everywhere else (quota owner, key owner, member account).
type Account struct {
	Username  string `json:"username" gorm:"primaryKey;size:50"`
	Email     string `json:"email" gorm:"uniqueIndex;not null"`
	Password  string `json:"-" gorm:"not null"`
	Firstname string `json:"firstname,omitempty"`
	Lastname  string `json:"lastname,omitempty"`
	Company   string `json:"company,omitempty"`
	IsAdmin   bool   `json:"is_admin" gorm:"default:false"`

	FailedLoginAttempts int        `json:"-" gorm:"default:0"`
	LockedUntil         *time.Time `json:"-"`
	LastFailedLogin     *time.Time `json:"-"`

	DateCreated  time.Time `json:"date_created" gorm:"autoCreateTime"`
	DateModified time.Time `json:"date_modified" gorm:"autoUpdateTime"`
}

// Organization shares its slug namespace with Account usernames: an
// organization can never have the same name as an existing account, and
// vice versa. The auto-created "<account>-default" organization is the
// only one with Deletable=false.
type Organization struct {
	Name         string    `json:"name" gorm:"primaryKey;size:50"`
	Description  string    `json:"description"`
	Deletable    bool      `json:"deletable" gorm:"default:true"`
	DateCreated  time.Time `json:"date_created" gorm:"autoCreateTime"`
	DateModified time.Time `json:"date_modified" gorm:"autoUpdateTime"`
}

// Member links an account to an organization. Exactly one member per
// organization carries IsOwner=true, set at organization creation and
// immutable afterwards.
type Member struct {
	ID           uint      `json:"-" gorm:"primaryKey"`
	Organization string    `json:"organization" gorm:"uniqueIndex:idx_member_org_account;size:50;not null"`
	Account      string    `json:"account" gorm:"uniqueIndex:idx_member_org_account;size:50;not null"`
	IsAdmin      bool      `json:"is_admin" gorm:"default:false"`
	IsOwner      bool      `json:"is_owner" gorm:"default:false"`
	DateCreated  time.Time `json:"date_created" gorm:"autoCreateTime"`
	DateModified time.Time `json:"date_modified" gorm:"autoUpdateTime"`
}

// Invitation is a pending invite of an account into an organization.
// Accepting it deletes the row and creates a Member; there is no other
// state to track, so only the creation timestamp is stored.
type Invitation struct {
	ID           uint      `json:"-" gorm:"primaryKey"`
	Organization string    `json:"organization" gorm:"uniqueIndex:idx_invitation_org_account;size:50;not null"`
	Account      string    `json:"account" gorm:"uniqueIndex:idx_invitation_org_account;size:50;not null"`
	DateCreated  time.Time `json:"date_created" gorm:"autoCreateTime"`
}

// Quota is a per-owner creation threshold. Owner is either an account
// username (max_keys, max_organizations) or an organization name
// (max_projects, max_vpcs). Rows are created once at owner creation and
// are read-only through the API.
type Quota struct {
	ID           uint      `json:"-" gorm:"primaryKey"`
	Key          string    `json:"key" gorm:"uniqueIndex:idx_quota_key_owner;size:50;not null"`
	Owner        string    `json:"-" gorm:"uniqueIndex:idx_quota_key_owner;size:50;not null"`
	Value        int64     `json:"value" gorm:"not null"`
	DateCreated  time.Time `json:"date_created" gorm:"autoCreateTime"`
	DateModified time.Time `json:"date_modified" gorm:"autoUpdateTime"`
}

// SSHKey is public key material owned by an account. The fingerprint is
// globally unique across all owners.
type SSHKey struct {
	ID           uint      `json:"-" gorm:"primaryKey"`
	Name         string    `json:"name" gorm:"uniqueIndex:idx_key_name_owner;size:50;not null"`
	Owner        string    `json:"-" gorm:"uniqueIndex:idx_key_name_owner;size:50;not null"`
	Public       string    `json:"public" gorm:"type:text;not null"`
	Fingerprint  string    `json:"fingerprint" gorm:"uniqueIndex;size:500;not null"`
	DateCreated  time.Time `json:"date_created" gorm:"autoCreateTime"`
	DateModified time.Time `json:"date_modified" gorm:"autoUpdateTime"`
}

// Project is an organization-owned repository. URI is derived from the
// configured template at creation time.
type Project struct {
	ID           uint      `json:"-" gorm:"primaryKey"`
	Name         string    `json:"name" gorm:"uniqueIndex:idx_project_name_owner;size:50;not null"`
	Owner        string    `json:"-" gorm:"uniqueIndex:idx_project_name_owner;size:50;not null"`
	URI          string    `json:"uri" gorm:"size:350;not null"`
	Deletable    bool      `json:"deletable" gorm:"default:true"`
	DateCreated  time.Time `json:"date_created" gorm:"autoCreateTime"`
	DateModified time.Time `json:"date_modified" gorm:"autoUpdateTime"`
}

// VPC is an organization-owned network namespace. Every organization gets
// one non-deletable VPC named "default" at creation.
type VPC struct {
	ID           uint      `json:"-" gorm:"primaryKey"`
	Name         string    `json:"name" gorm:"uniqueIndex:idx_vpc_name_owner;size:50;not null"`
	Owner        string    `json:"-" gorm:"uniqueIndex:idx_vpc_name_owner;size:50;not null"`
	Deletable    bool      `json:"deletable" gorm:"default:true"`
	DateCreated  time.Time `json:"date_created" gorm:"autoCreateTime"`
	DateModified time.Time `json:"date_modified" gorm:"autoUpdateTime"`
}

// TokenBlacklist represents revoked JWT tokens.
type TokenBlacklist struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	TokenHash string    `json:"-" gorm:"uniqueIndex;not null"`
	Account   string    `json:"account" gorm:"index;size:50"`
	ExpiresAt time.Time `json:"expires_at"`
	Reason    string    `json:"reason" gorm:"default:'logout'"`
	CreatedAt time.Time `json:"created_at"`
}

// All returns every model migrated at startup.
func All() []interface{} {
	return []interface{}{
		&Account{},
		&Organization{},
		&Member{},
		&Invitation{},
		&Quota{},
		&SSHKey{},
		&Project{},
		&VPC{},
		&TokenBlacklist{},
	}
}
