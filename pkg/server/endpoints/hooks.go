package endpoints

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/doodlesbykumbi/membersync/pkg/crm"
	"github.com/doodlesbykumbi/membersync/pkg/reconcile"
	"github.com/doodlesbykumbi/membersync/pkg/server"
)

// RegisterHooksEndpoints registers the CRM membership event receiver. It is
// a no-op when the server has no hooks.
func RegisterHooksEndpoints(s *server.Server) {
	if s.Hooks == nil {
		return
	}
	// POST /hooks/memberships/{event} - created, pre_update, updated or deleted
	s.Router.HandleFunc("/hooks/memberships/{event:created|pre_update|updated|deleted}", handleMembershipHook(s)).Methods("POST")
}

func handleMembershipHook(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var m crm.Membership
		if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
			respondWithError(w, http.StatusBadRequest, map[string]string{"message": "invalid request body: " + err.Error()})
			return
		}
		ctx := r.Context()

		var (
			results []reconcile.Result
			err     error
		)
		switch mux.Vars(r)["event"] {
		case "created":
			results, err = s.Hooks.MembershipSaved(ctx, m)
		case "pre_update":
			s.Hooks.MembershipBeforeUpdate(m)
			w.WriteHeader(http.StatusNoContent)
			return
		case "updated":
			results, err = s.Hooks.MembershipUpdated(ctx, m)
		case "deleted":
			results, err = s.Hooks.MembershipDeleted(ctx, m)
		}
		if err != nil {
			s.Logger.Warn("membership hook failed", "membership_id", m.ID, "contact_id", m.ContactID, "error", err)
			respondWithErr(w, err)
			return
		}
		if results == nil {
			results = []reconcile.Result{}
		}
		respondWithJSON(w, http.StatusOK, map[string]interface{}{"results": results})
	}
}
