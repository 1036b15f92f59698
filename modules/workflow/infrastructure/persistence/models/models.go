package models

import (
	"time"

	"github.com/google/uuid"
)

type WorkflowRequest struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Type        string
	PageID      uuid.UUID
	AuthorID    uuid.UUID
	PublisherID *uuid.UUID
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type WorkflowRequestChange struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	RequestID    uuid.UUID
	AuthorID     uuid.UUID
	Status       string
	DraftVersion *int
	LiveVersion  *int
	CreatedAt    time.Time
}

type WorkflowPage struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	Title        string
	DraftVersion *int
	LiveVersion  *int
	LastEdited   time.Time
	CreatedAt    time.Time
}
