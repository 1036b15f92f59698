package workflowrequest

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/cms-workflow/pkg/types"
)

// Version identifies one stored revision of a page.
type Version struct {
	Number    int
	CreatedAt time.Time
}

// Page is the slice of the content store the workflow needs: a title for
// notification subjects and the last-edited time the registry sorts by.
type Page struct {
	ID         uuid.UUID
	Title      string
	LastEdited time.Time
}

// PermissionOracle answers whether an actor may act on a page. Account and
// role management live in the hosting application.
type PermissionOracle interface {
	CanPublish(ctx context.Context, actor types.Actor, pageID uuid.UUID) (bool, error)
	CanEdit(ctx context.Context, actor types.Actor, pageID uuid.UUID) (bool, error)
}

// VersionLookup resolves the page versions snapshotted into ChangeRecords.
// Either stage may be absent; that is a valid state, not an error.
type VersionLookup interface {
	CurrentDraft(ctx context.Context, pageID uuid.UUID) (*Version, error)
	CurrentLive(ctx context.Context, pageID uuid.UUID) (*Version, error)
}

// PageDirectory resolves page metadata from the external content store.
type PageDirectory interface {
	Get(ctx context.Context, pageID uuid.UUID) (*Page, error)
}

// NotificationGateway delivers a single notification. Composing and
// transporting the message is the gateway's concern; the workflow only
// decides when to notify and whom.
type NotificationGateway interface {
	Send(ctx context.Context, sender types.Actor, recipientID uuid.UUID, subject, template string, data map[string]string) error
}
