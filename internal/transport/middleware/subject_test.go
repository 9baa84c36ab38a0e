package middleware_test

import (
	"net/http"
	"net/http/httptest"

	"github.com/avelines/creator-ledger/internal"
	"github.com/avelines/creator-ledger/internal/transport/middleware"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("SubjectContext", func() {
	newRouter := func(seen *string) *chi.Mux {
		router := chi.NewRouter()
		router.Route("/wallets/{subjectID}", func(r chi.Router) {
			r.Use(middleware.SubjectContext("subjectID"))
			r.Get("/", func(w http.ResponseWriter, req *http.Request) {
				*seen = internal.SubjectIDFromContext(req.Context())
				w.WriteHeader(http.StatusOK)
			})
		})
		return router
	}

	It("should stamp the route subject into the request context", func() {
		var seen string
		router := newRouter(&seen)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wallets/creator-1", nil))

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(seen).To(Equal("creator-1"))
	})

	It("should leave the context untouched when the parameter is absent", func() {
		var seen string
		router := chi.NewRouter()
		router.With(middleware.SubjectContext("subjectID")).Get("/ping", func(w http.ResponseWriter, req *http.Request) {
			seen = internal.SubjectIDFromContext(req.Context())
			w.WriteHeader(http.StatusOK)
		})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(seen).To(BeEmpty())
	})
})
