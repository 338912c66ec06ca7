package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/keeleklass/keeleklass/internal/auth"
	"github.com/keeleklass/keeleklass/internal/catalog"
	"github.com/keeleklass/keeleklass/internal/entitlement"
	"github.com/keeleklass/keeleklass/internal/rbac"
)

type moduleView struct {
	catalog.Module
	AccessStatus entitlement.Status     `json:"access_status"`
	AccessType   entitlement.AccessType `json:"access_type"`
}

// ListModulesHandler annotates every module with the caller's access
// decision. Works for anonymous visitors too: the demo tier must render
// before login.
func ListModulesHandler(store catalog.Store, settings entitlement.Settings) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sub := rbac.SubjectFromContext(ctx)
		loggedIn := sub != ""

		var completed map[int]bool
		if loggedIn {
			var err error
			completed, err = store.CompletedModules(ctx, sub)
			if err != nil {
				http.Error(w, err.Error(), 500)
				return
			}
		}
		tier := entitlement.Subscription(auth.SubscriptionFromContext(ctx))
		if tier == "" {
			tier = entitlement.SubscriptionFree
		}
		ectx := entitlement.NewContext(loggedIn, tier, completed, settings)

		mods, err := store.ListModules(ctx)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		out := make([]moduleView, 0, len(mods))
		for _, m := range mods {
			out = append(out, moduleView{
				Module:       m,
				AccessStatus: entitlement.Resolve(m.ID, ectx),
				AccessType:   entitlement.TypeOf(m.ID, settings.FreeModuleLimit),
			})
		}
		_ = json.NewEncoder(w).Encode(out)
	}
}

// CompleteModuleHandler marks a module finished for the current
// student, which also sequentially unlocks the next one.
func CompleteModuleHandler(store catalog.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(chi.URLParam(r, "moduleID"))
		if err != nil || id < 1 {
			http.Error(w, "bad module id", 400)
			return
		}
		sub := rbac.SubjectFromContext(r.Context())
		if err := store.CompleteModule(r.Context(), sub, id); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	}
}

// PutModuleHandler upserts a catalog module (admin).
func PutModuleHandler(store catalog.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var m catalog.Module
		if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		if m.ID < 1 || m.Title == "" {
			http.Error(w, "id and title required", 400)
			return
		}
		if err := store.PutModule(r.Context(), m); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		_ = json.NewEncoder(w).Encode(m)
	}
}
