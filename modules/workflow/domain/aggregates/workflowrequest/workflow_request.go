// Package workflowrequest models the review process for a single CMS page.
// A page carries at most one open request at a time; every status change is
// recorded as an immutable ChangeRecord so the full review history survives
// the request being closed.
package workflowrequest

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusAwaitingApproval Status = "awaiting_approval"
	StatusApproved         Status = "approved"
	StatusDenied           Status = "denied"
	// StatusAwaitingEdit is reserved for review-cycle flows. Approve/Deny never
	// produce it; it is only reachable by direct assignment.
	StatusAwaitingEdit Status = "awaiting_edit"
)

// terminalStatuses is the canonical closed set. Membership is checked against
// the enum values themselves, never against free-form strings.
var terminalStatuses = map[Status]struct{}{
	StatusApproved: {},
	StatusDenied:   {},
}

func (s Status) IsTerminal() bool {
	_, ok := terminalStatuses[s]
	return ok
}

func (s Status) Valid() bool {
	switch s {
	case StatusAwaitingApproval, StatusApproved, StatusDenied, StatusAwaitingEdit:
		return true
	}
	return false
}

// Description returns the English display label. Localization is the hosting
// application's concern.
func (s Status) Description() string {
	switch s {
	case StatusAwaitingApproval:
		return "Awaiting Approval"
	case StatusApproved:
		return "Approved"
	case StatusDenied:
		return "Denied"
	case StatusAwaitingEdit:
		return "Awaiting Edit"
	default:
		return "Unknown"
	}
}

// Type discriminates what a request asks reviewers to sign off on. Each type
// defines its own creation policy; the set mirrors the request subclasses of
// the CMS this module plugs into.
type Type string

const (
	TypePublication Type = "publication"
	TypeDeletion    Type = "deletion"
)

func (t Type) Valid() bool {
	return t == TypePublication || t == TypeDeletion
}

func (t Type) Title() string {
	switch t {
	case TypePublication:
		return "Publication Request"
	case TypeDeletion:
		return "Deletion Request"
	default:
		return "Workflow Request"
	}
}

// WorkflowRequest is the aggregate root for one review of one page.
//
// PublisherID records the actor who finalized the request. The name is kept
// from the CMS vocabulary even though a denial is also recorded here.
type WorkflowRequest struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Type        Type
	PageID      uuid.UUID
	AuthorID    uuid.UUID
	PublisherID uuid.UUID
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsOpen reports whether the request still blocks creation of another request
// for the same page.
func (wr *WorkflowRequest) IsOpen() bool {
	return !wr.Status.IsTerminal()
}

func (wr *WorkflowRequest) Title() string {
	return wr.Type.Title()
}

func (wr *WorkflowRequest) StatusDescription() string {
	return wr.Status.Description()
}
