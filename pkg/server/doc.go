// Package server provides the HTTP admin API for membersync.
//
// The server uses gorilla/mux for routing and gorilla/handlers for access
// logging. It holds the sync components; the endpoints subpackage registers
// the routes that drive them.
//
// # Server Setup
//
//	srv := server.NewServer(server.Components{...}, logger, "0.0.0.0", "8080")
//	endpoints.RegisterAll(srv)
//	if err := srv.Start(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Endpoints
//
//   - GET / - status
//   - GET /metrics - prometheus metrics
//   - /rules/{method}[/{type_id}] - association rule administration
//   - /batch, /batch/step, /batch/stop - batch runs
//   - POST /contacts/{id}/sync - sync or simulate one contact
//   - POST /hooks/memberships/{event} - CRM membership events
package server
