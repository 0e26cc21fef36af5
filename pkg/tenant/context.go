package tenant

import (
	"context"

	"github.com/platinummonkey/estatehub/pkg/apperrors"
	"github.com/platinummonkey/estatehub/pkg/auth"
	"github.com/platinummonkey/estatehub/pkg/contextkeys"
)

// WithActor stores the authenticated actor on the context
func WithActor(ctx context.Context, actor auth.Actor) context.Context {
	return contextkeys.WithActor(ctx, actor)
}

// ActorFrom returns the actor stored on the context, if any
func ActorFrom(ctx context.Context) (auth.Actor, bool) {
	actor, ok := ctx.Value(contextkeys.ActorKey).(auth.Actor)
	return actor, ok
}

// RequireActor returns the actor stored on the context or an authentication error
func RequireActor(ctx context.Context) (auth.Actor, error) {
	actor, ok := ActorFrom(ctx)
	if !ok || actor.ID == "" || actor.TenantID == "" {
		return auth.Actor{}, apperrors.Authentication("authentication required")
	}
	return actor, nil
}
