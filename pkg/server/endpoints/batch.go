package endpoints

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/doodlesbykumbi/membersync/pkg/batch"
	"github.com/doodlesbykumbi/membersync/pkg/server"
)

// StepRequest overrides the configured batch parameters for one step.
// Absent fields keep their configured value.
type StepRequest struct {
	From        *int  `json:"from"`
	To          *int  `json:"to"`
	BatchSize   *int  `json:"batch_size"`
	CreateUsers *bool `json:"create_users"`
	DryRun      *bool `json:"dry_run"`
}

func (req StepRequest) apply(p batch.Params) batch.Params {
	if req.From != nil {
		p.From = *req.From
	}
	if req.To != nil {
		p.To = *req.To
	}
	if req.BatchSize != nil {
		p.BatchSize = *req.BatchSize
	}
	if req.CreateUsers != nil {
		p.CreateUsers = *req.CreateUsers
	}
	if req.DryRun != nil {
		p.DryRun = *req.DryRun
	}
	return p
}

// RegisterBatchEndpoints registers the batch run endpoints
func RegisterBatchEndpoints(s *server.Server) {
	// GET /batch - Show the batch run status
	s.Router.HandleFunc("/batch", handleBatchStatus(s)).Methods("GET")

	// POST /batch/step - Process the next chunk
	s.Router.HandleFunc("/batch/step", handleBatchStep(s)).Methods("POST")

	// POST /batch/stop - Stop the batch run
	s.Router.HandleFunc("/batch/stop", handleBatchStop(s)).Methods("POST")
}

func handleBatchStatus(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := s.Coordinator.Status(r.Context())
		if err != nil {
			respondWithErr(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, status)
	}
}

func handleBatchStep(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req StepRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			respondWithError(w, http.StatusBadRequest, map[string]string{"message": "invalid request body: " + err.Error()})
			return
		}
		p := req.apply(s.Config.BatchParams(0, 0))

		step, err := s.Coordinator.Step(r.Context(), p)
		if err != nil {
			respondWithErr(w, err)
			return
		}
		code := http.StatusOK
		if step.Failed {
			code = http.StatusBadGateway
		}
		respondWithJSON(w, code, step)
	}
}

func handleBatchStop(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.Coordinator.Stop(r.Context()); err != nil {
			respondWithErr(w, err)
			return
		}
		handleBatchStatus(s)(w, r)
	}
}
