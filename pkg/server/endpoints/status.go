package endpoints

import (
	"context"
	"html/template"
	"net/http"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/doodlesbykumbi/membersync/pkg/batch"
	"github.com/doodlesbykumbi/membersync/pkg/server"
)

// StatusResponse is the JSON form of the status page
type StatusResponse struct {
	Version    string       `json:"version"`
	SyncMethod string       `json:"sync_method"`
	Batch      batch.Status `json:"batch"`
}

var statusPage = template.Must(template.New("status").Parse(`<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8">
    <title>membersync status</title>
  </head>
  <body>
    <h1>Status</h1>
    <p>membersync is running.</p>
    <dl>
      <dt>Version</dt><dd>{{.Version}}</dd>
      <dt>Sync method</dt><dd>{{.SyncMethod}}</dd>
      <dt>Batch</dt><dd>{{.Batch.State}} at offset {{.Batch.Offset}} of {{.Batch.Total}}</dd>
    </dl>
  </body>
</html>
`))

// RegisterStatusEndpoints registers the status page
func RegisterStatusEndpoints(s *server.Server) {
	s.Router.HandleFunc("/", handleStatus(s)).Methods("GET")
}

// RegisterMetricsEndpoint exposes the prometheus registry
func RegisterMetricsEndpoint(s *server.Server) {
	s.Router.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{})).Methods("GET")
}

func handleStatus(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		version := os.Getenv("MEMBERSYNC_VERSION")
		if version == "" {
			version = "0.1.0"
		}

		resp := StatusResponse{
			Version:    version,
			SyncMethod: s.Engine.Method().String(),
			Batch:      batchStatus(r.Context(), s),
		}

		accept := r.Header.Get("Accept")
		format := r.URL.Query().Get("format")
		if format == "json" || strings.Contains(accept, "application/json") {
			respondWithJSON(w, http.StatusOK, resp)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = statusPage.Execute(w, resp)
	}
}

// batchStatus never fails the status page; an unreadable cursor reports idle.
func batchStatus(ctx context.Context, s *server.Server) batch.Status {
	if s.Coordinator == nil {
		return batch.Status{}
	}
	status, err := s.Coordinator.Status(ctx)
	if err != nil {
		s.Logger.Warn("failed to read batch status", "error", err)
	}
	return status
}
