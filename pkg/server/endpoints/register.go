package endpoints

import (
	"github.com/doodlesbykumbi/membersync/pkg/server"
)

// RegisterAll registers all API endpoints on the server
func RegisterAll(srv *server.Server) {
	RegisterStatusEndpoints(srv)
	RegisterMetricsEndpoint(srv)
	RegisterRulesEndpoints(srv)
	RegisterBatchEndpoints(srv)
	RegisterContactsEndpoints(srv)
	RegisterHooksEndpoints(srv)
}
