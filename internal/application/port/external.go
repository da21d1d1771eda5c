package port

import (
	"context"
	"time"

	"github.com/flowbooks/docflow/internal/domain/status"
)

// OrgUnitLookup resolves organizational roles and permissions to users.
// Implementations may be slow or unavailable; failures must surface as
// errors (wrapped into workflow.ErrLookupUnavailable by the resolver), never
// as empty sets.
type OrgUnitLookup interface {
	// UsersWithRole returns users holding a role level within an
	// organizational unit. Role levels compare case-sensitively.
	UsersWithRole(ctx context.Context, orgUnitID, roleLevel string) ([]string, error)

	// UsersWithPermission returns users in a tenant holding a named system
	// permission, optionally restricted to an org-unit subtree.
	UsersWithPermission(ctx context.Context, tenantID, permission string, orgUnitID *string) ([]string, error)
}

// DelegateLookup resolves a user's designated delegate, if any.
type DelegateLookup interface {
	// DelegateFor returns the delegate's user id, or "" when none is set.
	DelegateFor(ctx context.Context, userID string) (string, error)
}

// StatusChange is the notification payload published after an axis moves.
type StatusChange struct {
	TenantID   string           `json:"tenant_id"`
	DocumentID string           `json:"document_id"`
	Event      status.EventKind `json:"event"`
	Snapshot   status.Snapshot  `json:"snapshot"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// EventPublisher fans status changes out to the rest of the system
// (mail, broadcast). Fire-and-forget: this core neither formats nor
// delivers notifications.
type EventPublisher interface {
	Publish(ctx context.Context, change StatusChange) error
}

// LockHandle releases a held document lock.
type LockHandle interface {
	Release(ctx context.Context) error
}

// DocumentLocker serializes concurrent work on one document. RecordDecision
// acquires the lock for the instance's document before reading it.
type DocumentLocker interface {
	Acquire(ctx context.Context, documentID string, ttl time.Duration) (LockHandle, error)
}
