package endpoints

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/doodlesbykumbi/membersync/pkg/reconcile"
	"github.com/doodlesbykumbi/membersync/pkg/server"
)

// SyncResponse is the outcome of syncing one contact
type SyncResponse struct {
	ContactID int                `json:"contact_id"`
	Simulate  bool               `json:"simulate"`
	Results   []reconcile.Result `json:"results"`
}

// RegisterContactsEndpoints registers the per-contact sync endpoint
func RegisterContactsEndpoints(s *server.Server) {
	// POST /contacts/{id}/sync[?simulate=true] - Sync one contact
	s.Router.HandleFunc("/contacts/{id:[0-9]+}/sync", handleContactSync(s)).Methods("POST")
}

func handleContactSync(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contactID, err := strconv.Atoi(mux.Vars(r)["id"])
		if err != nil {
			respondWithError(w, http.StatusBadRequest, map[string]string{"message": "invalid contact id"})
			return
		}
		simulate, _ := strconv.ParseBool(r.URL.Query().Get("simulate"))
		ctx := r.Context()

		memberships, err := s.Aggregator.ForContact(ctx, contactID, s.Engine.Method())
		if err != nil {
			respondWithError(w, http.StatusBadGateway, map[string]string{"message": err.Error()})
			return
		}

		var results []reconcile.Result
		if simulate {
			results, err = s.Engine.Simulate(ctx, memberships)
		} else {
			u, ferr := s.Directory.FindUserByContact(ctx, contactID)
			if ferr != nil {
				respondWithErr(w, ferr)
				return
			}
			results, err = s.Engine.Sync(ctx, *u, memberships)
		}
		if err != nil {
			s.Logger.Warn("contact sync failed", "contact_id", contactID, "error", err)
			respondWithErr(w, err)
			return
		}
		if results == nil {
			results = []reconcile.Result{}
		}
		respondWithJSON(w, http.StatusOK, SyncResponse{ContactID: contactID, Simulate: simulate, Results: results})
	}
}
