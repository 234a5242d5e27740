package server

import (
	"context"
	"net/http"

	"github.com/venturescope/scout/internal/model"
)

type contextKey struct{}

var requestContextKey contextKey

// RequestScope returns the caller identity resolved by the middleware.
func RequestScope(r *http.Request) model.RequestContext {
	rc, _ := r.Context().Value(requestContextKey).(model.RequestContext)
	return rc
}

// RequestContext resolves the caller's identity from the auth headers the
// gateway sets. An `organizationId` query parameter is accepted as a
// fallback for the org header; requests with no organization at all are
// rejected before any handler runs.
func RequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		orgID := r.Header.Get("X-Organization-ID")
		if orgID == "" {
			orgID = r.URL.Query().Get("organizationId")
		}
		if orgID == "" {
			writeJSONError(w, http.StatusBadRequest, "organization not identified")
			return
		}

		tier := model.Tier(r.Header.Get("X-Subscription-Tier"))
		switch tier {
		case model.TierFree, model.TierTrial, model.TierPremium:
		default:
			tier = model.TierFree
		}

		rc := model.RequestContext{
			UserID:         r.Header.Get("X-User-ID"),
			OrganizationID: orgID,
			Tier:           tier,
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestContextKey, rc)))
	})
}
