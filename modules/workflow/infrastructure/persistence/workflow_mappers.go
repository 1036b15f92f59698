package persistence

import (
	"github.com/google/uuid"

	"github.com/iota-uz/cms-workflow/modules/workflow/domain/aggregates/workflowrequest"
	"github.com/iota-uz/cms-workflow/modules/workflow/infrastructure/persistence/models"
)

func toDomainRequest(row *models.WorkflowRequest) *workflowrequest.WorkflowRequest {
	publisherID := uuid.Nil
	if row.PublisherID != nil {
		publisherID = *row.PublisherID
	}
	return &workflowrequest.WorkflowRequest{
		ID:          row.ID,
		TenantID:    row.TenantID,
		Type:        workflowrequest.Type(row.Type),
		PageID:      row.PageID,
		AuthorID:    row.AuthorID,
		PublisherID: publisherID,
		Status:      workflowrequest.Status(row.Status),
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

func toDBRequest(wr *workflowrequest.WorkflowRequest) *models.WorkflowRequest {
	var publisherID *uuid.UUID
	if wr.PublisherID != uuid.Nil {
		id := wr.PublisherID
		publisherID = &id
	}
	return &models.WorkflowRequest{
		ID:          wr.ID,
		TenantID:    wr.TenantID,
		Type:        string(wr.Type),
		PageID:      wr.PageID,
		AuthorID:    wr.AuthorID,
		PublisherID: publisherID,
		Status:      string(wr.Status),
		CreatedAt:   wr.CreatedAt,
		UpdatedAt:   wr.UpdatedAt,
	}
}

func toDomainChange(row *models.WorkflowRequestChange) *workflowrequest.ChangeRecord {
	return &workflowrequest.ChangeRecord{
		ID:           row.ID,
		TenantID:     row.TenantID,
		RequestID:    row.RequestID,
		AuthorID:     row.AuthorID,
		Status:       workflowrequest.Status(row.Status),
		DraftVersion: row.DraftVersion,
		LiveVersion:  row.LiveVersion,
		CreatedAt:    row.CreatedAt,
	}
}

func toDomainPage(row *models.WorkflowPage) *workflowrequest.Page {
	return &workflowrequest.Page{
		ID:         row.ID,
		Title:      row.Title,
		LastEdited: row.LastEdited,
	}
}
