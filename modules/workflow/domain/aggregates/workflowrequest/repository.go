package workflowrequest

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/cms-workflow/pkg/serrors"
)

var (
	ErrNotFound    = serrors.NewError("WORKFLOW_NOT_FOUND", "workflow request not found", "Workflow.Errors.NotFound")
	ErrAlreadyOpen = serrors.NewError("WORKFLOW_ALREADY_OPEN", "an open workflow request already exists for this page", "Workflow.Errors.AlreadyOpen")
	ErrForbidden   = serrors.NewError("WORKFLOW_FORBIDDEN", "permission denied", "Workflow.Errors.Forbidden")
	// ErrAlreadyClosed signals a lost race: another actor finalized the
	// request between read and decision.
	ErrAlreadyClosed = serrors.NewError("WORKFLOW_ALREADY_CLOSED", "workflow request has already been decided", "Workflow.Errors.AlreadyClosed")
	// ErrNotificationFailed is returned after a transition has committed; the
	// request is in its new state even when this error is reported.
	ErrNotificationFailed = serrors.NewError("WORKFLOW_NOTIFY_FAILED", "notification could not be delivered", "Workflow.Errors.NotifyFailed")
)

// FindParams filters the registry queries. An empty Type matches every
// request type; empty Statuses match every status.
type FindParams struct {
	Type        Type
	AuthorID    uuid.UUID
	PublisherID uuid.UUID
	Statuses    []Status
	Limit       int
	Offset      int
}

// PageResult is a page joined with its matching request, ordered by the
// page's last-edited time.
type PageResult struct {
	PageID     uuid.UUID
	Title      string
	LastEdited time.Time
	RequestID  uuid.UUID
	Type       Type
	Status     Status
}

type Repository interface {
	Create(ctx context.Context, wr *WorkflowRequest) (*WorkflowRequest, error)
	Update(ctx context.Context, wr *WorkflowRequest) (*WorkflowRequest, error)
	GetByID(ctx context.Context, id uuid.UUID) (*WorkflowRequest, error)
	// GetByIDForUpdate locks the row for the remainder of the transaction so
	// concurrent decisions serialize instead of double-finalizing.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*WorkflowRequest, error)
	// GetOpenByPage returns ErrNotFound when the page has no open request.
	GetOpenByPage(ctx context.Context, pageID uuid.UUID) (*WorkflowRequest, error)

	AddChange(ctx context.Context, rec *ChangeRecord) (*ChangeRecord, error)
	CountChanges(ctx context.Context, requestID uuid.UUID) (int64, error)
	Changes(ctx context.Context, requestID uuid.UUID) ([]*ChangeRecord, error)

	SetPublishers(ctx context.Context, requestID uuid.UUID, publisherIDs []uuid.UUID) error
	Publishers(ctx context.Context, requestID uuid.UUID) ([]uuid.UUID, error)

	FindPagesByAuthor(ctx context.Context, params *FindParams) ([]*PageResult, error)
	FindPagesByPublisher(ctx context.Context, params *FindParams) ([]*PageResult, error)
}
