package persistence

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/iota-uz/cms-workflow/modules/workflow/domain/aggregates/workflowrequest"
	"github.com/iota-uz/cms-workflow/modules/workflow/infrastructure/persistence/models"
	"github.com/iota-uz/cms-workflow/pkg/composables"
	"github.com/iota-uz/cms-workflow/pkg/repo"
)

const requestColumns = "id, tenant_id, type, page_id, author_id, publisher_id, status, created_at, updated_at"

type WorkflowRequestRepository struct{}

func NewWorkflowRequestRepository() workflowrequest.Repository {
	return &WorkflowRequestRepository{}
}

func (r *WorkflowRequestRepository) Create(ctx context.Context, wr *workflowrequest.WorkflowRequest) (*workflowrequest.WorkflowRequest, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	dbRow := toDBRequest(wr)
	var row models.WorkflowRequest
	err = tx.QueryRow(ctx, `
		INSERT INTO workflow_requests (tenant_id, type, page_id, author_id, publisher_id, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+requestColumns,
		tenantID,
		dbRow.Type,
		dbRow.PageID,
		dbRow.AuthorID,
		dbRow.PublisherID,
		dbRow.Status,
	).Scan(
		&row.ID, &row.TenantID, &row.Type, &row.PageID, &row.AuthorID,
		&row.PublisherID, &row.Status, &row.CreatedAt, &row.UpdatedAt,
	)
	if err != nil {
		return nil, mapPgError(err)
	}
	return toDomainRequest(&row), nil
}

func (r *WorkflowRequestRepository) Update(ctx context.Context, wr *workflowrequest.WorkflowRequest) (*workflowrequest.WorkflowRequest, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	dbRow := toDBRequest(wr)
	var row models.WorkflowRequest
	err = tx.QueryRow(ctx, `
		UPDATE workflow_requests
		SET publisher_id = $3, status = $4, updated_at = now()
		WHERE tenant_id = $1 AND id = $2
		RETURNING `+requestColumns,
		tenantID,
		dbRow.ID,
		dbRow.PublisherID,
		dbRow.Status,
	).Scan(
		&row.ID, &row.TenantID, &row.Type, &row.PageID, &row.AuthorID,
		&row.PublisherID, &row.Status, &row.CreatedAt, &row.UpdatedAt,
	)
	if err != nil {
		return nil, mapPgError(err)
	}
	return toDomainRequest(&row), nil
}

func (r *WorkflowRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*workflowrequest.WorkflowRequest, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	var row models.WorkflowRequest
	err = tx.QueryRow(ctx, `
		SELECT `+requestColumns+`
		FROM workflow_requests
		WHERE tenant_id = $1 AND id = $2`,
		tenantID,
		id,
	).Scan(
		&row.ID, &row.TenantID, &row.Type, &row.PageID, &row.AuthorID,
		&row.PublisherID, &row.Status, &row.CreatedAt, &row.UpdatedAt,
	)
	if err != nil {
		return nil, mapPgError(err)
	}
	return toDomainRequest(&row), nil
}

func (r *WorkflowRequestRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*workflowrequest.WorkflowRequest, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	var row models.WorkflowRequest
	err = tx.QueryRow(ctx, `
		SELECT `+requestColumns+`
		FROM workflow_requests
		WHERE tenant_id = $1 AND id = $2
		FOR UPDATE`,
		tenantID,
		id,
	).Scan(
		&row.ID, &row.TenantID, &row.Type, &row.PageID, &row.AuthorID,
		&row.PublisherID, &row.Status, &row.CreatedAt, &row.UpdatedAt,
	)
	if err != nil {
		return nil, mapPgError(err)
	}
	return toDomainRequest(&row), nil
}

func (r *WorkflowRequestRepository) GetOpenByPage(ctx context.Context, pageID uuid.UUID) (*workflowrequest.WorkflowRequest, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	var row models.WorkflowRequest
	err = tx.QueryRow(ctx, `
		SELECT `+requestColumns+`
		FROM workflow_requests
		WHERE tenant_id = $1 AND page_id = $2 AND status NOT IN ($3, $4)
		ORDER BY created_at DESC
		LIMIT 1`,
		tenantID,
		pageID,
		string(workflowrequest.StatusApproved),
		string(workflowrequest.StatusDenied),
	).Scan(
		&row.ID, &row.TenantID, &row.Type, &row.PageID, &row.AuthorID,
		&row.PublisherID, &row.Status, &row.CreatedAt, &row.UpdatedAt,
	)
	if err != nil {
		return nil, mapPgError(err)
	}
	return toDomainRequest(&row), nil
}

func (r *WorkflowRequestRepository) AddChange(ctx context.Context, rec *workflowrequest.ChangeRecord) (*workflowrequest.ChangeRecord, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	var row models.WorkflowRequestChange
	err = tx.QueryRow(ctx, `
		INSERT INTO workflow_request_changes (tenant_id, request_id, author_id, status, draft_version, live_version)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, tenant_id, request_id, author_id, status, draft_version, live_version, created_at`,
		tenantID,
		rec.RequestID,
		rec.AuthorID,
		string(rec.Status),
		rec.DraftVersion,
		rec.LiveVersion,
	).Scan(
		&row.ID, &row.TenantID, &row.RequestID, &row.AuthorID,
		&row.Status, &row.DraftVersion, &row.LiveVersion, &row.CreatedAt,
	)
	if err != nil {
		return nil, mapPgError(err)
	}
	return toDomainChange(&row), nil
}

func (r *WorkflowRequestRepository) CountChanges(ctx context.Context, requestID uuid.UUID) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM workflow_request_changes
		WHERE tenant_id = $1 AND request_id = $2`,
		tenantID,
		requestID,
	).Scan(&count); err != nil {
		return 0, mapPgError(err)
	}
	return count, nil
}

func (r *WorkflowRequestRepository) Changes(ctx context.Context, requestID uuid.UUID) ([]*workflowrequest.ChangeRecord, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT id, tenant_id, request_id, author_id, status, draft_version, live_version, created_at
		FROM workflow_request_changes
		WHERE tenant_id = $1 AND request_id = $2
		ORDER BY created_at ASC`,
		tenantID,
		requestID,
	)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var results []*workflowrequest.ChangeRecord
	for rows.Next() {
		var row models.WorkflowRequestChange
		if err := rows.Scan(
			&row.ID, &row.TenantID, &row.RequestID, &row.AuthorID,
			&row.Status, &row.DraftVersion, &row.LiveVersion, &row.CreatedAt,
		); err != nil {
			return nil, err
		}
		results = append(results, toDomainChange(&row))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *WorkflowRequestRepository) SetPublishers(ctx context.Context, requestID uuid.UUID, publisherIDs []uuid.UUID) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM workflow_request_publishers WHERE request_id = $1`, requestID); err != nil {
		return mapPgError(err)
	}
	for _, publisherID := range publisherIDs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO workflow_request_publishers (request_id, publisher_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING`,
			requestID,
			publisherID,
		); err != nil {
			return mapPgError(err)
		}
	}
	return nil
}

func (r *WorkflowRequestRepository) Publishers(ctx context.Context, requestID uuid.UUID) ([]uuid.UUID, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT publisher_id FROM workflow_request_publishers
		WHERE request_id = $1
		ORDER BY publisher_id`,
		requestID,
	)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *WorkflowRequestRepository) FindPagesByAuthor(ctx context.Context, params *workflowrequest.FindParams) ([]*workflowrequest.PageResult, error) {
	return r.findPages(ctx, params, "wr.author_id")
}

func (r *WorkflowRequestRepository) FindPagesByPublisher(ctx context.Context, params *workflowrequest.FindParams) ([]*workflowrequest.PageResult, error) {
	return r.findPages(ctx, params, "wr.publisher_id")
}

func (r *WorkflowRequestRepository) findPages(ctx context.Context, params *workflowrequest.FindParams, actorColumn string) ([]*workflowrequest.PageResult, error) {
	if params == nil {
		params = &workflowrequest.FindParams{}
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	actorID := params.AuthorID
	if actorColumn == "wr.publisher_id" {
		actorID = params.PublisherID
	}

	where := []string{"wr.tenant_id = $1", actorColumn + " = $2"}
	args := []interface{}{tenantID, actorID}
	argPos := 3

	if params.Type != "" {
		where = append(where, "wr.type = $"+strconv.Itoa(argPos))
		args = append(args, string(params.Type))
		argPos++
	}
	if len(params.Statuses) > 0 {
		statuses := make([]string, 0, len(params.Statuses))
		for _, s := range params.Statuses {
			statuses = append(statuses, string(s))
		}
		where = append(where, "wr.status = ANY($"+strconv.Itoa(argPos)+")")
		args = append(args, statuses)
		argPos++
	}

	rows, err := tx.Query(ctx, `
		SELECT p.id, p.title, p.last_edited, wr.id, wr.type, wr.status
		FROM workflow_pages p
		JOIN workflow_requests wr ON wr.page_id = p.id
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY p.last_edited DESC
		`+repo.FormatLimitOffset(params.Limit, params.Offset),
		args...,
	)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var results []*workflowrequest.PageResult
	for rows.Next() {
		var result workflowrequest.PageResult
		var reqType, status string
		if err := rows.Scan(
			&result.PageID, &result.Title, &result.LastEdited,
			&result.RequestID, &reqType, &status,
		); err != nil {
			return nil, err
		}
		result.Type = workflowrequest.Type(reqType)
		result.Status = workflowrequest.Status(status)
		results = append(results, &result)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
