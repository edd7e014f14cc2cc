package middleware

import (
	"context"
	"net/http"
	"strings"
)

const (
	ActorKey     contextKey = "actor"
	HeaderUserID            = "X-User-ID"
	SystemActor             = "system"
)

// Actor records who is making the request so services can stamp the
// modification timeline. Authentication happens upstream of this service.
func Actor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := strings.TrimSpace(r.Header.Get(HeaderUserID))
		if actor == "" {
			actor = SystemActor
		}
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, ActorKey, actor)
}

func ActorFromContext(ctx context.Context) string {
	if actor, ok := ctx.Value(ActorKey).(string); ok && actor != "" {
		return actor
	}
	return SystemActor
}
