package audit

import "context"

// Actor identifies who triggered an audited action.
type Actor struct {
	UserID    uint
	IPAddress string
	UserAgent string
}

type actorKey struct{}

// WithActor returns a context carrying the acting user.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the actor stored in ctx. Background jobs have the zero actor.
func ActorFrom(ctx context.Context) Actor {
	actor, _ := ctx.Value(actorKey{}).(Actor)
	return actor
}
