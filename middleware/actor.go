package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/bracketforge/tourney-server/models"
)

type contextKey string

const actorContextKey contextKey = "actor"

const organizerHeader = "X-Organizer-ID"

var ErrActorMissing = errors.New("no organizer identity on request")

// Actor reads the organizer identity from the X-Organizer-ID header and
// stores it on the request context. Identity verification happens upstream
// at the gateway; this layer only carries the id for attribution.
func Actor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(organizerHeader)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}

		organizerID, err := strconv.Atoi(raw)
		if err != nil || organizerID < 1 {
			http.Error(w, "invalid "+organizerHeader+" header", http.StatusBadRequest)
			return
		}

		ctx := context.WithValue(r.Context(), actorContextKey, models.ActorContext{OrganizerID: organizerID})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireActor rejects requests that did not carry an organizer identity.
// Mutating fixture routes sit behind it.
func RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := ActorFromContext(r.Context()); err != nil {
			http.Error(w, organizerHeader+" header is required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func ActorFromContext(ctx context.Context) (models.ActorContext, error) {
	actor, ok := ctx.Value(actorContextKey).(models.ActorContext)
	if !ok {
		return models.ActorContext{}, ErrActorMissing
	}
	return actor, nil
}
