package composables

import (
	"context"
	"errors"

	"github.com/iota-uz/cms-workflow/pkg/constants"
	"github.com/iota-uz/cms-workflow/pkg/types"
)

var ErrNoActor = errors.New("no actor found in context")

func WithActor(ctx context.Context, actor types.Actor) context.Context {
	return context.WithValue(ctx, constants.ActorKey, actor)
}

func UseActor(ctx context.Context) (types.Actor, error) {
	actor, ok := ctx.Value(constants.ActorKey).(types.Actor)
	if !ok || actor.IsZero() {
		return types.Actor{}, ErrNoActor
	}
	return actor, nil
}
