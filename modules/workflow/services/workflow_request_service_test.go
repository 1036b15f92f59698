package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/cms-workflow/modules/workflow/domain/aggregates/workflowrequest"
	"github.com/iota-uz/cms-workflow/modules/workflow/services"
	"github.com/iota-uz/cms-workflow/pkg/composables"
	"github.com/iota-uz/cms-workflow/pkg/eventbus"
	"github.com/iota-uz/cms-workflow/pkg/types"
)

// fakeTx satisfies pgx.Tx for InTx reuse; the mocks never touch the database,
// so none of the embedded methods are ever called.
type fakeTx struct {
	pgx.Tx
}

type mockRepository struct {
	requests   map[uuid.UUID]*workflowrequest.WorkflowRequest
	changes    []*workflowrequest.ChangeRecord
	publishers map[uuid.UUID][]uuid.UUID
	pages      []*workflowrequest.PageResult

	lastFindParams *workflowrequest.FindParams
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		requests:   map[uuid.UUID]*workflowrequest.WorkflowRequest{},
		publishers: map[uuid.UUID][]uuid.UUID{},
	}
}

func (m *mockRepository) Create(_ context.Context, wr *workflowrequest.WorkflowRequest) (*workflowrequest.WorkflowRequest, error) {
	saved := *wr
	saved.ID = uuid.New()
	saved.CreatedAt = time.Now()
	saved.UpdatedAt = saved.CreatedAt
	m.requests[saved.ID] = &saved
	out := saved
	return &out, nil
}

func (m *mockRepository) Update(_ context.Context, wr *workflowrequest.WorkflowRequest) (*workflowrequest.WorkflowRequest, error) {
	if _, ok := m.requests[wr.ID]; !ok {
		return nil, workflowrequest.ErrNotFound
	}
	saved := *wr
	saved.UpdatedAt = time.Now()
	m.requests[saved.ID] = &saved
	out := saved
	return &out, nil
}

func (m *mockRepository) GetByID(_ context.Context, id uuid.UUID) (*workflowrequest.WorkflowRequest, error) {
	wr, ok := m.requests[id]
	if !ok {
		return nil, workflowrequest.ErrNotFound
	}
	out := *wr
	return &out, nil
}

func (m *mockRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*workflowrequest.WorkflowRequest, error) {
	return m.GetByID(ctx, id)
}

func (m *mockRepository) GetOpenByPage(_ context.Context, pageID uuid.UUID) (*workflowrequest.WorkflowRequest, error) {
	for _, wr := range m.requests {
		if wr.PageID == pageID && wr.IsOpen() {
			out := *wr
			return &out, nil
		}
	}
	return nil, workflowrequest.ErrNotFound
}

func (m *mockRepository) AddChange(_ context.Context, rec *workflowrequest.ChangeRecord) (*workflowrequest.ChangeRecord, error) {
	saved := *rec
	saved.ID = uuid.New()
	saved.CreatedAt = time.Now()
	m.changes = append(m.changes, &saved)
	out := saved
	return &out, nil
}

func (m *mockRepository) CountChanges(_ context.Context, requestID uuid.UUID) (int64, error) {
	var n int64
	for _, rec := range m.changes {
		if rec.RequestID == requestID {
			n++
		}
	}
	return n, nil
}

func (m *mockRepository) Changes(_ context.Context, requestID uuid.UUID) ([]*workflowrequest.ChangeRecord, error) {
	var out []*workflowrequest.ChangeRecord
	for _, rec := range m.changes {
		if rec.RequestID == requestID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *mockRepository) SetPublishers(_ context.Context, requestID uuid.UUID, publisherIDs []uuid.UUID) error {
	m.publishers[requestID] = publisherIDs
	return nil
}

func (m *mockRepository) Publishers(_ context.Context, requestID uuid.UUID) ([]uuid.UUID, error) {
	return m.publishers[requestID], nil
}

func (m *mockRepository) FindPagesByAuthor(_ context.Context, params *workflowrequest.FindParams) ([]*workflowrequest.PageResult, error) {
	m.lastFindParams = params
	return m.pages, nil
}

func (m *mockRepository) FindPagesByPublisher(_ context.Context, params *workflowrequest.FindParams) ([]*workflowrequest.PageResult, error) {
	m.lastFindParams = params
	return m.pages, nil
}

type mockOracle struct {
	canPublish bool
	canEdit    bool
}

func (m *mockOracle) CanPublish(context.Context, types.Actor, uuid.UUID) (bool, error) {
	return m.canPublish, nil
}

func (m *mockOracle) CanEdit(context.Context, types.Actor, uuid.UUID) (bool, error) {
	return m.canEdit, nil
}

type mockVersions struct {
	draft *workflowrequest.Version
	live  *workflowrequest.Version
}

func (m *mockVersions) CurrentDraft(context.Context, uuid.UUID) (*workflowrequest.Version, error) {
	return m.draft, nil
}

func (m *mockVersions) CurrentLive(context.Context, uuid.UUID) (*workflowrequest.Version, error) {
	return m.live, nil
}

type mockPages struct {
	page *workflowrequest.Page
}

func (m *mockPages) Get(_ context.Context, pageID uuid.UUID) (*workflowrequest.Page, error) {
	if m.page == nil || m.page.ID != pageID {
		return nil, errors.New("page not found")
	}
	return m.page, nil
}

type sentNote struct {
	RecipientID uuid.UUID
	Subject     string
	Template    string
	Data        map[string]string
}

type mockGateway struct {
	sent    []sentNote
	failErr error
}

func (m *mockGateway) Send(_ context.Context, _ types.Actor, recipientID uuid.UUID, subject, template string, data map[string]string) error {
	if m.failErr != nil {
		return m.failErr
	}
	m.sent = append(m.sent, sentNote{RecipientID: recipientID, Subject: subject, Template: template, Data: data})
	return nil
}

type fixture struct {
	repo     *mockRepository
	oracle   *mockOracle
	versions *mockVersions
	pages    *mockPages
	gateway  *mockGateway
	service  *services.WorkflowRequestService

	tenantID uuid.UUID
	pageID   uuid.UUID
	author   types.Actor
	approver types.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	pageID := uuid.New()
	f := &fixture{
		repo:   newMockRepository(),
		oracle: &mockOracle{canPublish: true, canEdit: true},
		versions: &mockVersions{
			draft: &workflowrequest.Version{Number: 7},
			live:  &workflowrequest.Version{Number: 5},
		},
		pages: &mockPages{
			page: &workflowrequest.Page{ID: pageID, Title: "Contact Us", LastEdited: time.Now()},
		},
		gateway:  &mockGateway{},
		tenantID: uuid.New(),
		pageID:   pageID,
		author:   types.Actor{ID: uuid.New(), Email: "author@example.com", Name: "Author"},
		approver: types.Actor{ID: uuid.New(), Email: "approver@example.com", Name: "Approver"},
	}
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	f.service = services.NewWorkflowRequestService(
		f.repo, f.oracle, f.versions, f.pages, f.gateway, eventbus.NewEventPublisher(log),
	)
	return f
}

func (f *fixture) ctx(actor types.Actor) context.Context {
	ctx := composables.WithTx(context.Background(), fakeTx{})
	ctx = composables.WithTenantID(ctx, f.tenantID)
	return composables.WithActor(ctx, actor)
}

func TestCreate_FirstSaveAppendsOneChangeRecord(t *testing.T) {
	f := newFixture(t)

	wr, err := f.service.Create(f.ctx(f.author), f.author, services.CreateParams{
		Type:       workflowrequest.TypePublication,
		PageID:     f.pageID,
		Publishers: []uuid.UUID{f.approver.ID},
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, wr.ID)
	require.Equal(t, workflowrequest.StatusAwaitingApproval, wr.Status)
	require.Equal(t, f.author.ID, wr.AuthorID)
	require.True(t, wr.IsOpen())

	changes, err := f.service.Changes(f.ctx(f.author), wr.ID)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	require.Equal(t, workflowrequest.StatusAwaitingApproval, changes[0].Status)
	require.Equal(t, f.author.ID, changes[0].AuthorID)
	require.NotNil(t, changes[0].DraftVersion)
	require.Equal(t, 7, *changes[0].DraftVersion)
	require.NotNil(t, changes[0].LiveVersion)
	require.Equal(t, 5, *changes[0].LiveVersion)
}

func TestCreate_NotifiesEveryPublisher(t *testing.T) {
	f := newFixture(t)
	second := uuid.New()

	_, err := f.service.Create(f.ctx(f.author), f.author, services.CreateParams{
		Type:       workflowrequest.TypePublication,
		PageID:     f.pageID,
		Publishers: []uuid.UUID{f.approver.ID, second},
	})
	require.NoError(t, err)
	require.Len(t, f.gateway.sent, 2)
	require.Equal(t, f.approver.ID, f.gateway.sent[0].RecipientID)
	require.Equal(t, second, f.gateway.sent[1].RecipientID)
	require.Equal(t, services.TemplateAwaitingApproval, f.gateway.sent[0].Template)
	require.Contains(t, f.gateway.sent[0].Subject, "Contact Us")
	require.Contains(t, f.gateway.sent[0].Data["diff_link"], "compare?from=7&to=5")
}

func TestCreate_WithoutEditPermission(t *testing.T) {
	f := newFixture(t)
	f.oracle.canEdit = false

	_, err := f.service.Create(f.ctx(f.author), f.author, services.CreateParams{
		Type:   workflowrequest.TypePublication,
		PageID: f.pageID,
	})
	require.ErrorIs(t, err, workflowrequest.ErrForbidden)
	require.Empty(t, f.repo.requests)
	require.Empty(t, f.repo.changes)
	require.Empty(t, f.gateway.sent)
}

func TestCreate_SecondOpenRequestForPage(t *testing.T) {
	f := newFixture(t)
	ctx := f.ctx(f.author)

	_, err := f.service.Create(ctx, f.author, services.CreateParams{
		Type:   workflowrequest.TypePublication,
		PageID: f.pageID,
	})
	require.NoError(t, err)

	_, err = f.service.Create(ctx, f.author, services.CreateParams{
		Type:   workflowrequest.TypeDeletion,
		PageID: f.pageID,
	})
	require.ErrorIs(t, err, workflowrequest.ErrAlreadyOpen)
	require.Len(t, f.repo.requests, 1)
}

func TestCreate_InvalidParams(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Create(f.ctx(f.author), f.author, services.CreateParams{
		Type:   workflowrequest.Type("archive"),
		PageID: f.pageID,
	})
	require.Error(t, err)

	_, err = f.service.Create(f.ctx(f.author), f.author, services.CreateParams{
		Type: workflowrequest.TypePublication,
	})
	require.Error(t, err)
}

func TestCreate_MissingVersionsLeaveNilSnapshots(t *testing.T) {
	f := newFixture(t)
	f.versions.draft = nil
	f.versions.live = nil

	wr, err := f.service.Create(f.ctx(f.author), f.author, services.CreateParams{
		Type:   workflowrequest.TypePublication,
		PageID: f.pageID,
	})
	require.NoError(t, err)

	changes, err := f.service.Changes(f.ctx(f.author), wr.ID)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	require.Nil(t, changes[0].DraftVersion)
	require.Nil(t, changes[0].LiveVersion)
}

func TestApprove_HappyPath(t *testing.T) {
	f := newFixture(t)
	created, err := f.service.Create(f.ctx(f.author), f.author, services.CreateParams{
		Type:       workflowrequest.TypePublication,
		PageID:     f.pageID,
		Publishers: []uuid.UUID{f.approver.ID},
	})
	require.NoError(t, err)
	f.gateway.sent = nil

	wr, err := f.service.Approve(f.ctx(f.approver), f.approver, created.ID)
	require.NoError(t, err)
	require.Equal(t, workflowrequest.StatusApproved, wr.Status)
	require.Equal(t, f.approver.ID, wr.PublisherID)
	require.False(t, wr.IsOpen())

	changes, err := f.service.Changes(f.ctx(f.approver), wr.ID)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	require.Equal(t, workflowrequest.StatusAwaitingApproval, changes[0].Status)
	require.Equal(t, workflowrequest.StatusApproved, changes[1].Status)
	require.Equal(t, f.approver.ID, changes[1].AuthorID)

	require.Len(t, f.gateway.sent, 1)
	require.Equal(t, f.author.ID, f.gateway.sent[0].RecipientID)
	require.Equal(t, services.TemplateApproved, f.gateway.sent[0].Template)
	require.Contains(t, f.gateway.sent[0].Subject, "approved")
}

func TestDeny_UsesDeniedTemplate(t *testing.T) {
	f := newFixture(t)
	created, err := f.service.Create(f.ctx(f.author), f.author, services.CreateParams{
		Type:   workflowrequest.TypePublication,
		PageID: f.pageID,
	})
	require.NoError(t, err)
	f.gateway.sent = nil

	wr, err := f.service.Deny(f.ctx(f.approver), f.approver, created.ID)
	require.NoError(t, err)
	require.Equal(t, workflowrequest.StatusDenied, wr.Status)
	require.Equal(t, f.approver.ID, wr.PublisherID)
	require.False(t, wr.IsOpen())

	require.Len(t, f.gateway.sent, 1)
	require.Equal(t, f.author.ID, f.gateway.sent[0].RecipientID)
	require.Equal(t, services.TemplateDenied, f.gateway.sent[0].Template)
	require.Contains(t, f.gateway.sent[0].Subject, "declined")
}

func TestDecide_WithoutPublishPermission(t *testing.T) {
	f := newFixture(t)
	created, err := f.service.Create(f.ctx(f.author), f.author, services.CreateParams{
		Type:   workflowrequest.TypePublication,
		PageID: f.pageID,
	})
	require.NoError(t, err)
	f.oracle.canPublish = false

	_, err = f.service.Approve(f.ctx(f.author), f.author, created.ID)
	require.ErrorIs(t, err, workflowrequest.ErrForbidden)

	_, err = f.service.Deny(f.ctx(f.author), f.author, created.ID)
	require.ErrorIs(t, err, workflowrequest.ErrForbidden)

	stored, err := f.service.GetByID(f.ctx(f.author), created.ID)
	require.NoError(t, err)
	require.Equal(t, workflowrequest.StatusAwaitingApproval, stored.Status)
	require.Equal(t, uuid.Nil, stored.PublisherID)

	changes, err := f.service.Changes(f.ctx(f.author), created.ID)
	require.NoError(t, err)
	require.Len(t, changes, 1)
}

func TestDecide_AlreadyFinalized(t *testing.T) {
	f := newFixture(t)
	created, err := f.service.Create(f.ctx(f.author), f.author, services.CreateParams{
		Type:   workflowrequest.TypePublication,
		PageID: f.pageID,
	})
	require.NoError(t, err)

	_, err = f.service.Approve(f.ctx(f.approver), f.approver, created.ID)
	require.NoError(t, err)

	_, err = f.service.Deny(f.ctx(f.approver), f.approver, created.ID)
	require.ErrorIs(t, err, workflowrequest.ErrAlreadyClosed)

	stored, err := f.service.GetByID(f.ctx(f.approver), created.ID)
	require.NoError(t, err)
	require.Equal(t, workflowrequest.StatusApproved, stored.Status)
}

func TestDecide_NotificationFailureDoesNotRollBack(t *testing.T) {
	f := newFixture(t)
	created, err := f.service.Create(f.ctx(f.author), f.author, services.CreateParams{
		Type:   workflowrequest.TypePublication,
		PageID: f.pageID,
	})
	require.NoError(t, err)
	f.gateway.failErr = errors.New("smtp timeout")

	wr, err := f.service.Approve(f.ctx(f.approver), f.approver, created.ID)
	require.ErrorIs(t, err, workflowrequest.ErrNotificationFailed)
	require.NotNil(t, wr)
	require.Equal(t, workflowrequest.StatusApproved, wr.Status)

	stored, err := f.service.GetByID(f.ctx(f.approver), created.ID)
	require.NoError(t, err)
	require.Equal(t, workflowrequest.StatusApproved, stored.Status)
	require.Equal(t, f.approver.ID, stored.PublisherID)
}

func TestEachStatusTransitionAppendsOneRecord(t *testing.T) {
	f := newFixture(t)
	created, err := f.service.Create(f.ctx(f.author), f.author, services.CreateParams{
		Type:   workflowrequest.TypePublication,
		PageID: f.pageID,
	})
	require.NoError(t, err)

	_, err = f.service.Deny(f.ctx(f.approver), f.approver, created.ID)
	require.NoError(t, err)

	changes, err := f.service.Changes(f.ctx(f.approver), created.ID)
	require.NoError(t, err)
	require.Len(t, changes, 2)

	seen := map[workflowrequest.Status]int{}
	for _, rec := range changes {
		seen[rec.Status]++
	}
	require.Equal(t, 1, seen[workflowrequest.StatusAwaitingApproval])
	require.Equal(t, 1, seen[workflowrequest.StatusDenied])
}

func TestCanCreate_FallsBackToContextActor(t *testing.T) {
	f := newFixture(t)

	ok, err := f.service.CanCreate(f.ctx(f.author), types.Actor{}, f.pageID)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.service.CanCreate(composables.WithTenantID(context.Background(), f.tenantID), types.Actor{}, f.pageID)
	require.ErrorIs(t, err, composables.ErrNoActor)
}

func TestFindPages_PassesFilters(t *testing.T) {
	f := newFixture(t)
	f.repo.pages = []*workflowrequest.PageResult{
		{PageID: f.pageID, Title: "Contact Us", Status: workflowrequest.StatusAwaitingApproval},
	}

	results, err := f.service.FindPagesByAuthor(f.ctx(f.author), &workflowrequest.FindParams{
		Type:     workflowrequest.TypePublication,
		AuthorID: f.author.ID,
		Statuses: []workflowrequest.Status{workflowrequest.StatusAwaitingApproval, workflowrequest.StatusDenied},
		Limit:    10,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, workflowrequest.TypePublication, f.repo.lastFindParams.Type)
	require.Equal(t, f.author.ID, f.repo.lastFindParams.AuthorID)
	require.Len(t, f.repo.lastFindParams.Statuses, 2)
	require.Equal(t, 10, f.repo.lastFindParams.Limit)

	_, err = f.service.FindPagesByPublisher(f.ctx(f.approver), &workflowrequest.FindParams{
		Type:        workflowrequest.TypeDeletion,
		PublisherID: f.approver.ID,
	})
	require.NoError(t, err)
	require.Equal(t, f.approver.ID, f.repo.lastFindParams.PublisherID)
	require.Empty(t, f.repo.lastFindParams.Statuses)
}

func TestDiffLinkToLastPublished(t *testing.T) {
	f := newFixture(t)
	wr := &workflowrequest.WorkflowRequest{PageID: f.pageID}
	ctx := f.ctx(f.author)

	link, err := f.service.DiffLinkToLastPublished(ctx, wr)
	require.NoError(t, err)
	require.Contains(t, link, f.pageID.String())
	require.Contains(t, link, "from=7&to=5")

	f.versions.live = nil
	link, err = f.service.DiffLinkToLastPublished(ctx, wr)
	require.NoError(t, err)
	require.Empty(t, link)
}
