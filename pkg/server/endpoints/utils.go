package endpoints

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/doodlesbykumbi/membersync/pkg/crm"
	"github.com/doodlesbykumbi/membersync/pkg/directory"
	"github.com/doodlesbykumbi/membersync/pkg/rule"
	"github.com/doodlesbykumbi/membersync/pkg/store"
)

func respondWithError(w http.ResponseWriter, code int, payload interface{}) {
	respondWithJSON(w, code, map[string]interface{}{"error": payload})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// respondWithErr maps err to a status code. Validation errors carry the
// offending fields.
func respondWithErr(w http.ResponseWriter, err error) {
	var invalid rule.ValidationErrors
	switch {
	case errors.As(err, &invalid):
		respondWithError(w, http.StatusUnprocessableEntity, map[string]interface{}{"fields": invalid})
	case errors.Is(err, store.ErrRuleNotFound),
		errors.Is(err, directory.ErrUserNotFound),
		errors.Is(err, crm.ErrContactNotFound):
		respondWithError(w, http.StatusNotFound, map[string]string{"message": err.Error()})
	default:
		respondWithError(w, http.StatusInternalServerError, map[string]string{"message": err.Error()})
	}
}
