package integration

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"

	"github.com/doodlesbykumbi/membersync/pkg/server"
	"github.com/doodlesbykumbi/membersync/pkg/server/endpoints"
)

// ServerInstance is an in-process membersync server for a single scenario
type ServerInstance struct {
	Server     *server.Server
	ServerURL  string
	HTTPClient *http.Client

	LastStatus int
	LastBody   []byte

	ts *httptest.Server
}

// StartServer registers every endpoint over c and serves them on a random
// local port.
func StartServer(c server.Components, logger *slog.Logger) *ServerInstance {
	s := server.NewServer(c, logger, "127.0.0.1", "0")
	endpoints.RegisterAll(s)

	ts := httptest.NewServer(s.Handler())
	return &ServerInstance{
		Server:     s,
		ServerURL:  ts.URL,
		HTTPClient: ts.Client(),
		ts:         ts,
	}
}

// Do sends a body-less request and records the response.
func (si *ServerInstance) Do(method, path string) error {
	req, err := http.NewRequest(method, si.ServerURL+path, nil)
	if err != nil {
		return err
	}
	if method == http.MethodGet {
		req.Header.Set("Accept", "application/json")
	}
	resp, err := si.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	si.LastStatus = resp.StatusCode
	si.LastBody = body
	return nil
}

// Close stops the server
func (si *ServerInstance) Close() {
	si.ts.Close()
}
