package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/keeleklass/keeleklass/internal/cert"
	"github.com/keeleklass/keeleklass/internal/rbac"
)

// GetCertificateHandler returns (issuing on first call) the student's
// certificate for an exam template. 403 until a passing attempt exists.
func GetCertificateHandler(issuer *cert.Issuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := rbac.SubjectFromContext(r.Context())
		c, err := issuer.Issue(r.Context(), sub, chi.URLParam(r, "templateID"))
		if errors.Is(err, cert.ErrNotPassed) {
			http.Error(w, err.Error(), 403)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		_ = json.NewEncoder(w).Encode(c)
	}
}
