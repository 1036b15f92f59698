package persistence

import (
	"context"

	"github.com/google/uuid"

	"github.com/iota-uz/cms-workflow/modules/workflow/domain/aggregates/workflowrequest"
	"github.com/iota-uz/cms-workflow/modules/workflow/infrastructure/persistence/models"
	"github.com/iota-uz/cms-workflow/pkg/composables"
)

// WorkflowPageRepository reads the workflow_pages projection the hosting CMS
// keeps in sync with its content store. It backs both PageDirectory and
// VersionLookup for deployments where the CMS pushes page state here instead
// of serving lookups itself.
type WorkflowPageRepository struct{}

func NewWorkflowPageRepository() *WorkflowPageRepository {
	return &WorkflowPageRepository{}
}

var (
	_ workflowrequest.PageDirectory = (*WorkflowPageRepository)(nil)
	_ workflowrequest.VersionLookup = (*WorkflowPageRepository)(nil)
)

func (r *WorkflowPageRepository) Get(ctx context.Context, pageID uuid.UUID) (*workflowrequest.Page, error) {
	row, err := r.get(ctx, pageID)
	if err != nil {
		return nil, err
	}
	return toDomainPage(row), nil
}

func (r *WorkflowPageRepository) CurrentDraft(ctx context.Context, pageID uuid.UUID) (*workflowrequest.Version, error) {
	row, err := r.get(ctx, pageID)
	if err != nil {
		return nil, err
	}
	if row.DraftVersion == nil {
		return nil, nil
	}
	return &workflowrequest.Version{Number: *row.DraftVersion, CreatedAt: row.LastEdited}, nil
}

func (r *WorkflowPageRepository) CurrentLive(ctx context.Context, pageID uuid.UUID) (*workflowrequest.Version, error) {
	row, err := r.get(ctx, pageID)
	if err != nil {
		return nil, err
	}
	if row.LiveVersion == nil {
		return nil, nil
	}
	return &workflowrequest.Version{Number: *row.LiveVersion, CreatedAt: row.LastEdited}, nil
}

// Upsert lets the hosting application sync a page into the projection.
func (r *WorkflowPageRepository) Upsert(ctx context.Context, page *models.WorkflowPage) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO workflow_pages (id, tenant_id, title, draft_version, live_version, last_edited)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (id) DO UPDATE
		SET title = EXCLUDED.title,
		    draft_version = EXCLUDED.draft_version,
		    live_version = EXCLUDED.live_version,
		    last_edited = now()`,
		page.ID,
		tenantID,
		page.Title,
		page.DraftVersion,
		page.LiveVersion,
	)
	return mapPgError(err)
}

func (r *WorkflowPageRepository) get(ctx context.Context, pageID uuid.UUID) (*models.WorkflowPage, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	var row models.WorkflowPage
	err = tx.QueryRow(ctx, `
		SELECT id, tenant_id, title, draft_version, live_version, last_edited, created_at
		FROM workflow_pages
		WHERE tenant_id = $1 AND id = $2`,
		tenantID,
		pageID,
	).Scan(
		&row.ID, &row.TenantID, &row.Title, &row.DraftVersion,
		&row.LiveVersion, &row.LastEdited, &row.CreatedAt,
	)
	if err != nil {
		return nil, mapPgError(err)
	}
	return &row, nil
}
