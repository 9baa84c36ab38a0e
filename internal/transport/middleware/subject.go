package middleware

import (
	"net/http"

	"github.com/avelines/creator-ledger/internal"
	"github.com/go-chi/chi"
)

// SubjectContext lifts the named chi URL parameter into the request context
// as the acting ledger subject, so handlers and service logs can read it
// without re-parsing the route.
func SubjectContext(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if subjectID := chi.URLParam(r, param); subjectID != "" {
				r = r.WithContext(internal.ContextWithSubjectID(r.Context(), subjectID))
			}
			next.ServeHTTP(w, r)
		})
	}
}
