package shared

import "context"

type actorContextKey struct{}

// Actor identifies the authenticated user performing an operation. Identity
// is established by an upstream provider; the core treats it as opaque.
type Actor struct {
	ID   string
	Role string
}

// ContextWithActor stores the acting user in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the acting user from context. The second return
// reports whether an actor was stamped on the request at all.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}
