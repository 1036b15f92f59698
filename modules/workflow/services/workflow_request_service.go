package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/iota-uz/cms-workflow/modules/workflow/domain/aggregates/workflowrequest"
	"github.com/iota-uz/cms-workflow/pkg/composables"
	"github.com/iota-uz/cms-workflow/pkg/eventbus"
	"github.com/iota-uz/cms-workflow/pkg/serrors"
	"github.com/iota-uz/cms-workflow/pkg/types"
)

const (
	TemplateAwaitingApproval = "workflow_awaiting_approval"
	TemplateApproved         = "workflow_approved"
	// Denials get their own template. The CMS this module replaces reused the
	// approval template for denials, which was a defect.
	TemplateDenied = "workflow_denied"
)

type WorkflowRequestService struct {
	repo      workflowrequest.Repository
	oracle    workflowrequest.PermissionOracle
	versions  workflowrequest.VersionLookup
	pages     workflowrequest.PageDirectory
	gateway   workflowrequest.NotificationGateway
	publisher eventbus.EventBus
}

func NewWorkflowRequestService(
	repo workflowrequest.Repository,
	oracle workflowrequest.PermissionOracle,
	versions workflowrequest.VersionLookup,
	pages workflowrequest.PageDirectory,
	gateway workflowrequest.NotificationGateway,
	publisher eventbus.EventBus,
) *WorkflowRequestService {
	return &WorkflowRequestService{
		repo:      repo,
		oracle:    oracle,
		versions:  versions,
		pages:     pages,
		gateway:   gateway,
		publisher: publisher,
	}
}

type CreateParams struct {
	Type       workflowrequest.Type
	PageID     uuid.UUID
	Publishers []uuid.UUID
}

// Create opens a new request for a page. The author must hold edit rights,
// and a page can carry only one open request; a concurrent creation losing
// the race surfaces as ErrAlreadyOpen, backed by a partial unique index.
func (s *WorkflowRequestService) Create(ctx context.Context, actor types.Actor, params CreateParams) (*workflowrequest.WorkflowRequest, error) {
	if !params.Type.Valid() {
		return nil, serrors.NewFieldRequiredError("type", "Workflow.Fields.Type")
	}
	if params.PageID == uuid.Nil {
		return nil, serrors.NewFieldRequiredError("page_id", "Workflow.Fields.PageID")
	}

	allowed, err := s.CanCreate(ctx, actor, params.PageID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, workflowrequest.ErrForbidden
	}

	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	wr := &workflowrequest.WorkflowRequest{
		TenantID: tenantID,
		Type:     params.Type,
		PageID:   params.PageID,
		AuthorID: actor.ID,
		Status:   workflowrequest.StatusAwaitingApproval,
	}

	err = composables.InTx(ctx, func(txCtx context.Context) error {
		if _, err := s.repo.GetOpenByPage(txCtx, params.PageID); err == nil {
			return workflowrequest.ErrAlreadyOpen
		} else if !errors.Is(err, workflowrequest.ErrNotFound) {
			return err
		}
		if err := s.persist(txCtx, actor, wr); err != nil {
			return err
		}
		return s.repo.SetPublishers(txCtx, wr.ID, params.Publishers)
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(workflowrequest.NewCreatedEvent(ctx, wr))

	if err := s.notifyAwaitingApproval(ctx, actor, wr); err != nil {
		composables.UseLogger(ctx).WithError(err).Warn("workflow: awaiting-approval notification failed")
		return wr, err
	}
	return wr, nil
}

// Approve finalizes the request and notifies the author. Requires publish
// rights; without them nothing is written.
func (s *WorkflowRequestService) Approve(ctx context.Context, actor types.Actor, id uuid.UUID) (*workflowrequest.WorkflowRequest, error) {
	return s.decide(ctx, actor, id, workflowrequest.StatusApproved)
}

// Deny finalizes the request negatively. Denying takes the same publish
// permission as approving; the denier is recorded as the publisher of record.
func (s *WorkflowRequestService) Deny(ctx context.Context, actor types.Actor, id uuid.UUID) (*workflowrequest.WorkflowRequest, error) {
	return s.decide(ctx, actor, id, workflowrequest.StatusDenied)
}

func (s *WorkflowRequestService) decide(ctx context.Context, actor types.Actor, id uuid.UUID, decision workflowrequest.Status) (*workflowrequest.WorkflowRequest, error) {
	wr, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	allowed, err := s.oracle.CanPublish(ctx, actor, wr.PageID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, workflowrequest.ErrForbidden
	}

	err = composables.InTx(ctx, func(txCtx context.Context) error {
		locked, err := s.repo.GetByIDForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if !locked.IsOpen() {
			return workflowrequest.ErrAlreadyClosed
		}
		wr = locked

		// Record the decider first, then flip the status. Each write runs the
		// change-tracking protocol, so only the second one appends a record.
		wr.PublisherID = actor.ID
		if err := s.persist(txCtx, actor, wr); err != nil {
			return err
		}
		wr.Status = decision
		return s.persist(txCtx, actor, wr)
	})
	if err != nil {
		return nil, err
	}

	if decision == workflowrequest.StatusApproved {
		s.publisher.Publish(workflowrequest.NewApprovedEvent(ctx, wr))
	} else {
		s.publisher.Publish(workflowrequest.NewDeniedEvent(ctx, wr))
	}

	if err := s.notifyDecision(ctx, actor, wr, decision); err != nil {
		composables.UseLogger(ctx).WithError(err).Warn("workflow: decision notification failed")
		return wr, err
	}
	return wr, nil
}

// persist runs the two-phase change-tracking write protocol. An update whose
// status differs from the stored non-empty value appends a ChangeRecord
// before the row is written. A request that still has no ChangeRecords after
// the write gets its first one there: the row ID does not exist before the
// insert, so the very first record can only be attached afterwards.
func (s *WorkflowRequestService) persist(ctx context.Context, actor types.Actor, wr *workflowrequest.WorkflowRequest) error {
	return composables.InTx(ctx, func(txCtx context.Context) error {
		if wr.ID != uuid.Nil {
			prev, err := s.repo.GetByID(txCtx, wr.ID)
			if err != nil {
				return err
			}
			if prev.Status != "" && prev.Status != wr.Status {
				if _, err := s.addNewChange(txCtx, actor, wr); err != nil {
					return err
				}
			}
			saved, err := s.repo.Update(txCtx, wr)
			if err != nil {
				return err
			}
			*wr = *saved
		} else {
			saved, err := s.repo.Create(txCtx, wr)
			if err != nil {
				return err
			}
			*wr = *saved
		}

		count, err := s.repo.CountChanges(txCtx, wr.ID)
		if err != nil {
			return err
		}
		if count == 0 {
			if _, err := s.addNewChange(txCtx, actor, wr); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *WorkflowRequestService) addNewChange(ctx context.Context, actor types.Actor, wr *workflowrequest.WorkflowRequest) (*workflowrequest.ChangeRecord, error) {
	rec := &workflowrequest.ChangeRecord{
		TenantID:  wr.TenantID,
		RequestID: wr.ID,
		AuthorID:  actor.ID,
		Status:    wr.Status,
	}

	draft, err := s.versions.CurrentDraft(ctx, wr.PageID)
	if err != nil {
		return nil, err
	}
	if draft != nil {
		v := draft.Number
		rec.DraftVersion = &v
	}

	live, err := s.versions.CurrentLive(ctx, wr.PageID)
	if err != nil {
		return nil, err
	}
	if live != nil {
		v := live.Number
		rec.LiveVersion = &v
	}

	return s.repo.AddChange(ctx, rec)
}

// CanCreate reports whether actor may open a request for the page. A zero
// actor falls back to the actor on the context.
func (s *WorkflowRequestService) CanCreate(ctx context.Context, actor types.Actor, pageID uuid.UUID) (bool, error) {
	if actor.IsZero() {
		ctxActor, err := composables.UseActor(ctx)
		if err != nil {
			return false, err
		}
		actor = ctxActor
	}
	return s.oracle.CanEdit(ctx, actor, pageID)
}

func (s *WorkflowRequestService) GetByID(ctx context.Context, id uuid.UUID) (*workflowrequest.WorkflowRequest, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *WorkflowRequestService) Changes(ctx context.Context, requestID uuid.UUID) ([]*workflowrequest.ChangeRecord, error) {
	return s.repo.Changes(ctx, requestID)
}

func (s *WorkflowRequestService) Publishers(ctx context.Context, requestID uuid.UUID) ([]uuid.UUID, error) {
	return s.repo.Publishers(ctx, requestID)
}

// FindPagesByAuthor lists pages with a request opened by params.AuthorID,
// most recently edited pages first.
func (s *WorkflowRequestService) FindPagesByAuthor(ctx context.Context, params *workflowrequest.FindParams) ([]*workflowrequest.PageResult, error) {
	return s.repo.FindPagesByAuthor(ctx, params)
}

// FindPagesByPublisher lists pages whose request was finalized by
// params.PublisherID as the publisher of record.
func (s *WorkflowRequestService) FindPagesByPublisher(ctx context.Context, params *workflowrequest.FindParams) ([]*workflowrequest.PageResult, error) {
	return s.repo.FindPagesByPublisher(ctx, params)
}

// DiffLinkToLastPublished returns a CMS comparison link from the current
// version to the latest published one, or "" for never-published pages.
func (s *WorkflowRequestService) DiffLinkToLastPublished(ctx context.Context, wr *workflowrequest.WorkflowRequest) (string, error) {
	live, err := s.versions.CurrentLive(ctx, wr.PageID)
	if err != nil {
		return "", err
	}
	if live == nil {
		return "", nil
	}

	from := live.Number
	draft, err := s.versions.CurrentDraft(ctx, wr.PageID)
	if err != nil {
		return "", err
	}
	if draft != nil {
		from = draft.Number
	}

	return fmt.Sprintf("/admin/pages/%s/compare?from=%d&to=%d", wr.PageID, from, live.Number), nil
}

func (s *WorkflowRequestService) notifyAwaitingApproval(ctx context.Context, actor types.Actor, wr *workflowrequest.WorkflowRequest) error {
	page, err := s.pages.Get(ctx, wr.PageID)
	if err != nil {
		return fmt.Errorf("%w: %v", workflowrequest.ErrNotificationFailed, err)
	}
	publishers, err := s.repo.Publishers(ctx, wr.ID)
	if err != nil {
		return fmt.Errorf("%w: %v", workflowrequest.ErrNotificationFailed, err)
	}

	subject := fmt.Sprintf("The %q page is awaiting approval", page.Title)
	data := s.templateData(ctx, wr)

	var errs []error
	for _, publisherID := range publishers {
		if err := s.gateway.Send(ctx, actor, publisherID, subject, TemplateAwaitingApproval, data); err != nil {
			errs = append(errs, err)
		}
	}
	if combined := errors.Join(errs...); combined != nil {
		return fmt.Errorf("%w: %v", workflowrequest.ErrNotificationFailed, combined)
	}
	return nil
}

// notifyDecision informs the request author. The transition is already
// committed; a failing gateway is reported but never rolls it back.
func (s *WorkflowRequestService) notifyDecision(ctx context.Context, actor types.Actor, wr *workflowrequest.WorkflowRequest, decision workflowrequest.Status) error {
	page, err := s.pages.Get(ctx, wr.PageID)
	if err != nil {
		return fmt.Errorf("%w: %v", workflowrequest.ErrNotificationFailed, err)
	}

	subject := fmt.Sprintf("The %q page has been approved", page.Title)
	template := TemplateApproved
	if decision == workflowrequest.StatusDenied {
		subject = fmt.Sprintf("The request for the %q page has been declined", page.Title)
		template = TemplateDenied
	}

	if err := s.gateway.Send(ctx, actor, wr.AuthorID, subject, template, s.templateData(ctx, wr)); err != nil {
		return fmt.Errorf("%w: %v", workflowrequest.ErrNotificationFailed, err)
	}
	return nil
}

func (s *WorkflowRequestService) templateData(ctx context.Context, wr *workflowrequest.WorkflowRequest) map[string]string {
	diffLink, err := s.DiffLinkToLastPublished(ctx, wr)
	if err != nil {
		diffLink = ""
	}
	return map[string]string{
		"request_title": wr.Title(),
		"page_cms_link": "/admin/pages/" + wr.PageID.String(),
		"stage_link":    "/pages/" + wr.PageID.String() + "?stage=stage",
		"live_link":     "/pages/" + wr.PageID.String() + "?stage=live",
		"diff_link":     diffLink,
	}
}
