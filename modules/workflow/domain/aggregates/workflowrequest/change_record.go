package workflowrequest

import (
	"time"

	"github.com/google/uuid"
)

// ChangeRecord is an immutable audit entry: who changed the request, what the
// status became, and which page versions were current at that moment.
// AuthorID is the acting user, not necessarily the request author.
type ChangeRecord struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	RequestID uuid.UUID
	AuthorID  uuid.UUID
	Status    Status
	// DraftVersion is nil when the page was deleted from the draft stage,
	// LiveVersion when the page has never been published.
	DraftVersion *int
	LiveVersion  *int
	CreatedAt    time.Time
}
