package endpoints

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/doodlesbykumbi/membersync/pkg/rule"
	"github.com/doodlesbykumbi/membersync/pkg/server"
)

// RuleResponse is the JSON form of an association rule
type RuleResponse struct {
	MembershipTypeID int    `json:"membership_type_id"`
	Method           string `json:"method"`
	CurrentStatusIDs []int  `json:"current_status_ids"`
	ExpiryStatusIDs  []int  `json:"expiry_status_ids"`
	CurrentRole      string `json:"current_role,omitempty"`
	ExpiredRole      string `json:"expired_role,omitempty"`
}

// RuleRequest is the body of PUT /rules/{method}/{type_id}
type RuleRequest struct {
	CurrentStatusIDs []int  `json:"current_status_ids"`
	ExpiryStatusIDs  []int  `json:"expiry_status_ids"`
	CurrentRole      string `json:"current_role"`
	ExpiredRole      string `json:"expired_role"`
}

func (req RuleRequest) rule(typeID int, method rule.Method) rule.Rule {
	if method == rule.MethodCapability {
		return rule.NewCapabilityRule(typeID, req.CurrentStatusIDs, req.ExpiryStatusIDs)
	}
	return rule.NewRoleRule(typeID, req.CurrentStatusIDs, req.ExpiryStatusIDs, req.CurrentRole, req.ExpiredRole)
}

func toRuleResponse(r rule.Rule) RuleResponse {
	resp := RuleResponse{
		MembershipTypeID: r.MembershipTypeID,
		Method:           r.Method().String(),
		CurrentStatusIDs: r.CurrentStatusIDs,
		ExpiryStatusIDs:  r.ExpiryStatusIDs,
	}
	if roles, ok := r.Roles(); ok {
		resp.CurrentRole = roles.CurrentRole
		resp.ExpiredRole = roles.ExpiredRole
	}
	return resp
}

// RegisterRulesEndpoints registers the association rule endpoints
func RegisterRulesEndpoints(s *server.Server) {
	rulesRouter := s.Router.PathPrefix("/rules").Subrouter()

	// GET /rules/{method} - List rules
	rulesRouter.HandleFunc("/{method}", handleListRules(s)).Methods("GET")

	// DELETE /rules/{method} - Delete every rule of a method
	rulesRouter.HandleFunc("/{method}", handleClearRules(s)).Methods("DELETE")

	// GET /rules/{method}/{type_id} - Show one rule
	rulesRouter.HandleFunc("/{method}/{type_id:[0-9]+}", handleGetRule(s)).Methods("GET")

	// PUT /rules/{method}/{type_id} - Create or replace a rule
	rulesRouter.HandleFunc("/{method}/{type_id:[0-9]+}", handlePutRule(s)).Methods("PUT")

	// DELETE /rules/{method}/{type_id} - Delete a rule
	rulesRouter.HandleFunc("/{method}/{type_id:[0-9]+}", handleDeleteRule(s)).Methods("DELETE")
}

// ruleVars parses the method and, when present, the type id of the route.
func ruleVars(w http.ResponseWriter, r *http.Request) (rule.Method, int, bool) {
	vars := mux.Vars(r)
	method, err := rule.MethodString(vars["method"])
	if err != nil {
		respondWithError(w, http.StatusNotFound, map[string]string{"message": "unknown sync method " + vars["method"]})
		return 0, 0, false
	}
	typeID := 0
	if raw, ok := vars["type_id"]; ok {
		typeID, err = strconv.Atoi(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, map[string]string{"message": "invalid membership type " + raw})
			return 0, 0, false
		}
	}
	return method, typeID, true
}

func handleListRules(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		method, _, ok := ruleVars(w, r)
		if !ok {
			return
		}
		all, err := s.Rules.List(r.Context(), method)
		if err != nil {
			respondWithErr(w, err)
			return
		}
		resp := make([]RuleResponse, 0, len(all))
		for _, rl := range all {
			resp = append(resp, toRuleResponse(rl))
		}
		respondWithJSON(w, http.StatusOK, resp)
	}
}

func handleGetRule(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		method, typeID, ok := ruleVars(w, r)
		if !ok {
			return
		}
		rl, err := s.Rules.Get(r.Context(), typeID, method)
		if err != nil {
			respondWithErr(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, toRuleResponse(*rl))
	}
}

func handlePutRule(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		method, typeID, ok := ruleVars(w, r)
		if !ok {
			return
		}
		var req RuleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, map[string]string{"message": "invalid request body: " + err.Error()})
			return
		}
		rl := req.rule(typeID, method)
		if err := s.Rules.Save(r.Context(), rl); err != nil {
			respondWithErr(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, toRuleResponse(rl))
	}
}

func handleDeleteRule(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		method, typeID, ok := ruleVars(w, r)
		if !ok {
			return
		}
		if err := s.Rules.Delete(r.Context(), typeID, method); err != nil {
			respondWithErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleClearRules(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		method, _, ok := ruleVars(w, r)
		if !ok {
			return
		}
		n, err := s.Rules.Clear(r.Context(), method)
		if err != nil {
			respondWithErr(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]int{"deleted": n})
	}
}
