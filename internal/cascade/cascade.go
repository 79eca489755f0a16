package cascade

import (
	"context"

	"gorm.io/gorm"

	"bakehouse-backend/internal/broker"
	"bakehouse-backend/internal/config"
	"bakehouse-backend/internal/models"
)

// Cascade runs the ordered side effects that follow entity mutations:
// dependent default records first, broker events last. Sub-steps run
// strictly in sequence; a failing sub-step aborts the ones after it but
// never rolls back what was already committed. Broker publishes happen
// only after the mutation they report is durable, and a failed publish
// is logged by the notifier and otherwise ignored; delivery is
// best-effort and reconciliation is the consumer's problem.
type Cascade struct {
	db       *gorm.DB
	notifier broker.Notifier
	quotas   config.QuotaDefaults
}

// New returns a Cascade bound to the store, the notifier and the
// configured quota defaults.
func New(db *gorm.DB, notifier broker.Notifier, quotas config.QuotaDefaults) *Cascade {
	return &Cascade{db: db, notifier: notifier, quotas: quotas}
}

// AccountCreated provisions everything a fresh account needs:
//
//  1. the "<username>-default" organization with its owner member
//     (the bootstrap member skips the usual create-member event),
//  2. the organization's default VPC,
//  3. the account quota rows (max_keys, max_organizations),
//  4. the organization quota rows (max_projects, max_vpcs).
func (c *Cascade) AccountCreated(ctx context.Context, account *models.Account) error {
	org := &models.Organization{
		Name:        account.Username + "-default",
		Description: "default",
		Deletable:   false,
	}
	err := c.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(org).Error; err != nil {
			return err
		}
		member := &models.Member{
			Organization: org.Name,
			Account:      account.Username,
			IsAdmin:      true,
			IsOwner:      true,
		}
		return tx.Create(member).Error
	})
	if err != nil {
		return err
	}

	if err := c.createDefaultVPC(ctx, org.Name); err != nil {
		return err
	}
	if err := c.createQuotas(account.Username, config.QuotaMaxKeys, config.QuotaMaxOrganizations); err != nil {
		return err
	}
	return c.createQuotas(org.Name, config.QuotaMaxProjects, config.QuotaMaxVPCs)
}

// AccountDeleted notifies downstream consumers. Owned organizations are
// deliberately left in place (weak references, external cleanup).
func (c *Cascade) AccountDeleted(ctx context.Context, account *models.Account) {
	c.publish(ctx, config.ExchangeGit, "delete-user", map[string]interface{}{
		"user": account.Username,
	})
}

// OrganizationCreated provisions a user-initiated organization: default
// VPC, quota rows, then the create-member event for the owner member
// created alongside it.
func (c *Cascade) OrganizationCreated(ctx context.Context, org *models.Organization, requester string) error {
	if err := c.createDefaultVPC(ctx, org.Name); err != nil {
		return err
	}
	if err := c.createQuotas(org.Name, config.QuotaMaxProjects, config.QuotaMaxVPCs); err != nil {
		return err
	}
	c.publish(ctx, config.ExchangeGit, "create-member", map[string]interface{}{
		"organization": org.Name,
		"account":      requester,
	})
	return nil
}

// OrganizationDeleted emits one delete-member per removed member, then
// the delete-organization event itself.
func (c *Cascade) OrganizationDeleted(ctx context.Context, org *models.Organization, removedMembers []string) {
	for _, account := range removedMembers {
		c.publish(ctx, config.ExchangeGit, "delete-member", map[string]interface{}{
			"organization": org.Name,
			"account":      account,
		})
	}
	c.publish(ctx, config.ExchangeGit, "delete-organization", map[string]interface{}{
		"organization": org.Name,
	})
}

// MemberCreated emits the create-member event for a non-bootstrap member.
func (c *Cascade) MemberCreated(ctx context.Context, member *models.Member) {
	c.publish(ctx, config.ExchangeGit, "create-member", map[string]interface{}{
		"organization": member.Organization,
		"account":      member.Account,
	})
}

// MemberDeleted emits the delete-member event.
func (c *Cascade) MemberDeleted(ctx context.Context, member *models.Member) {
	c.publish(ctx, config.ExchangeGit, "delete-member", map[string]interface{}{
		"organization": member.Organization,
		"account":      member.Account,
	})
}

// KeyCreated emits the create-key event. A bootstrap key (generated
// during registration) carries the extra fields that let downstream git
// hosting provision the account and its default namespace in one shot.
func (c *Cascade) KeyCreated(ctx context.Context, key *models.SSHKey, bootstrap bool) {
	payload := map[string]interface{}{
		"key":  key.Public,
		"user": key.Owner,
	}
	if bootstrap {
		payload["user_creation"] = true
		payload["organization_creation"] = true
		payload["organization"] = key.Owner + "-default"
	}
	c.publish(ctx, config.ExchangeGit, "create-key", payload)
}

// KeyDeleted emits the delete-key event.
func (c *Cascade) KeyDeleted(ctx context.Context, key *models.SSHKey) {
	c.publish(ctx, config.ExchangeGit, "delete-key", map[string]interface{}{
		"key":  key.Public,
		"user": key.Owner,
	})
}

// VPCCreated emits the namespace create event.
func (c *Cascade) VPCCreated(ctx context.Context, vpc *models.VPC) {
	c.publish(ctx, config.ExchangeNamespace, "create", map[string]interface{}{
		"namespace": vpc.Owner + "-" + vpc.Name,
	})
}

// VPCDeleted emits the namespace delete event.
func (c *Cascade) VPCDeleted(ctx context.Context, vpc *models.VPC) {
	c.publish(ctx, config.ExchangeNamespace, "delete", map[string]interface{}{
		"namespace": vpc.Owner + "-" + vpc.Name,
	})
}

// ProjectCreated emits the create-repo event.
func (c *Cascade) ProjectCreated(ctx context.Context, project *models.Project) {
	c.publish(ctx, config.ExchangeGit, "create-repo", map[string]interface{}{
		"repo":         project.Owner + "." + project.Name,
		"organization": project.Owner,
	})
}

// ProjectDeleted emits the delete-repo event.
func (c *Cascade) ProjectDeleted(ctx context.Context, project *models.Project) {
	c.publish(ctx, config.ExchangeGit, "delete-repo", map[string]interface{}{
		"repo": project.Owner + "." + project.Name,
	})
}

func (c *Cascade) createDefaultVPC(ctx context.Context, owner string) error {
	vpc := &models.VPC{Name: "default", Owner: owner, Deletable: false}
	if err := c.db.Create(vpc).Error; err != nil {
		return err
	}
	c.VPCCreated(ctx, vpc)
	return nil
}

func (c *Cascade) createQuotas(owner string, keys ...string) error {
	for _, key := range keys {
		quota := &models.Quota{Key: key, Owner: owner, Value: c.quotas.DefaultFor(key)}
		if err := c.db.Create(quota).Error; err != nil {
			return err
		}
	}
	return nil
}

// publish is fire-and-forget: the notifier already logs failures.
func (c *Cascade) publish(ctx context.Context, exchange, routingKey string, payload map[string]interface{}) {
	_ = c.notifier.Publish(ctx, exchange, routingKey, payload)
}
