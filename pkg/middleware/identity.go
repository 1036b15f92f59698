package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/iota-uz/cms-workflow/pkg/composables"
	"github.com/iota-uz/cms-workflow/pkg/types"
)

const (
	TenantIDHeader   = "X-Tenant-ID"
	ActorIDHeader    = "X-Actor-ID"
	ActorEmailHeader = "X-Actor-Email"
	ActorNameHeader  = "X-Actor-Name"
)

// RequireIdentity resolves the tenant and acting user from the headers set by
// the hosting CMS's auth layer. Requests arriving without them are rejected
// before any handler runs.
func RequireIdentity() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenantID, err := uuid.Parse(strings.TrimSpace(r.Header.Get(TenantIDHeader)))
			if err != nil || tenantID == uuid.Nil {
				http.Error(w, "missing or invalid tenant", http.StatusUnauthorized)
				return
			}
			actorID, err := uuid.Parse(strings.TrimSpace(r.Header.Get(ActorIDHeader)))
			if err != nil || actorID == uuid.Nil {
				http.Error(w, "missing or invalid actor", http.StatusUnauthorized)
				return
			}

			ctx := composables.WithTenantID(r.Context(), tenantID)
			ctx = composables.WithActor(ctx, types.Actor{
				ID:    actorID,
				Email: strings.TrimSpace(r.Header.Get(ActorEmailHeader)),
				Name:  strings.TrimSpace(r.Header.Get(ActorNameHeader)),
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
