package workflowrequest

import (
	"context"

	"github.com/iota-uz/cms-workflow/pkg/composables"
	"github.com/iota-uz/cms-workflow/pkg/types"
)

type CreatedEvent struct {
	Actor  types.Actor
	Result *WorkflowRequest
}

type ApprovedEvent struct {
	Actor  types.Actor
	Result *WorkflowRequest
}

type DeniedEvent struct {
	Actor  types.Actor
	Result *WorkflowRequest
}

func NewCreatedEvent(ctx context.Context, result *WorkflowRequest) *CreatedEvent {
	actor, _ := composables.UseActor(ctx)
	return &CreatedEvent{Actor: actor, Result: result}
}

func NewApprovedEvent(ctx context.Context, result *WorkflowRequest) *ApprovedEvent {
	actor, _ := composables.UseActor(ctx)
	return &ApprovedEvent{Actor: actor, Result: result}
}

func NewDeniedEvent(ctx context.Context, result *WorkflowRequest) *DeniedEvent {
	actor, _ := composables.UseActor(ctx)
	return &DeniedEvent{Actor: actor, Result: result}
}
