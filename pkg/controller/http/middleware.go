package http

import (
	"context"
	"net/http"
	"strings"
)

// ActorHeader carries the principal that triggered a request
const ActorHeader = "X-Actor"

const anonymousActor = "anonymous"

type ctxActorKey struct{}

// actorMiddleware stores the requesting principal in the context. Requests
// without the header act as anonymous, which holds no role.
func actorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := strings.TrimSpace(r.Header.Get(ActorHeader))
		if actor == "" {
			actor = anonymousActor
		}
		ctx := context.WithValue(r.Context(), ctxActorKey{}, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func actorFrom(ctx context.Context) string {
	if actor, ok := ctx.Value(ctxActorKey{}).(string); ok {
		return actor
	}
	return anonymousActor
}
