package audit

import "context"

// Sources recorded on audit entries.
const (
	SourceAPI       = "api"
	SourceScheduler = "scheduler"
	SourceGuest     = "guest_portal"
)

// SystemActor is recorded when no authenticated actor is attached to the context.
const SystemActor = "system"

type actorKey struct{}

// Actor identifies who triggered a change.
type Actor struct {
	ID     string
	Source string
}

// WithActor attaches the acting user (or "system") to ctx.
func WithActor(ctx context.Context, id, source string) context.Context {
	return context.WithValue(ctx, actorKey{}, Actor{ID: id, Source: source})
}

// ActorFrom returns the actor on ctx, defaulting to SystemActor via the API source.
func ActorFrom(ctx context.Context) Actor {
	if a, ok := ctx.Value(actorKey{}).(Actor); ok && a.ID != "" {
		if a.Source == "" {
			a.Source = SourceAPI
		}
		return a
	}
	return Actor{ID: SystemActor, Source: SourceAPI}
}
