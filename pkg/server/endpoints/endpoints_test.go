package endpoints

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doodlesbykumbi/membersync/internal/memory"
	"github.com/doodlesbykumbi/membersync/pkg/batch"
	"github.com/doodlesbykumbi/membersync/pkg/config"
	"github.com/doodlesbykumbi/membersync/pkg/crm"
	"github.com/doodlesbykumbi/membersync/pkg/directory"
	"github.com/doodlesbykumbi/membersync/pkg/effect"
	"github.com/doodlesbykumbi/membersync/pkg/membership"
	"github.com/doodlesbykumbi/membersync/pkg/metrics"
	"github.com/doodlesbykumbi/membersync/pkg/reconcile"
	"github.com/doodlesbykumbi/membersync/pkg/rule"
	"github.com/doodlesbykumbi/membersync/pkg/rules"
	"github.com/doodlesbykumbi/membersync/pkg/server"
)

var (
	discard = slog.New(slog.NewTextHandler(io.Discard, nil))
	late    = time.Date(2030, 12, 31, 0, 0, 0, 0, time.UTC)
)

type fixture struct {
	srv  *server.Server
	crm  *memory.CRM
	dir  *memory.Directory
	user directory.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := config.Default()
	store := memory.NewRulesStore(rule.NewRoleRule(5, []int{1, 2}, []int{3, 4}, "member", "expired_member"))
	client := memory.NewCRM()
	dir := memory.NewDirectory()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	engine := reconcile.NewEngine(cfg.SyncMethod, store, effect.New(dir, cfg.EffectOptions(), discard, m), discard)
	agg := membership.New(client, store)
	coord := batch.NewCoordinator(client, dir, agg, engine, memory.NewCursorStore(), batch.Options{
		Logger:    discard,
		Recorders: []batch.Recorder{m},
	})

	s := server.NewServer(server.Components{
		Config:      cfg,
		Rules:       rules.NewManager(store, discard, m),
		Coordinator: coord,
		Engine:      engine,
		Aggregator:  agg,
		Hooks:       reconcile.NewHooks(engine, agg, dir, reconcile.NewSnapshots(cfg.SnapshotDuration()), discard),
		Directory:   dir,
		Gatherer:    reg,
	}, discard, "127.0.0.1", "0")
	RegisterAll(s)

	return &fixture{
		srv:  s,
		crm:  client,
		dir:  dir,
		user: dir.AddUser(42, "jane"),
	}
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	w := httptest.NewRecorder()
	f.srv.Router.ServeHTTP(w, req)
	return w
}

func (f *fixture) roles(t *testing.T) []string {
	t.Helper()
	roles, err := f.dir.Roles(context.Background(), f.user)
	require.NoError(t, err)
	return roles
}

// Results only marshal, so responses carrying them decode into these.
type resultBody struct {
	ContactID int    `json:"contact_id"`
	UserID    int64  `json:"user_id"`
	IsNewUser bool   `json:"is_new_user"`
	Flag      string `json:"flag"`
	Error     string `json:"error"`
}

type stepBody struct {
	Started  bool         `json:"started"`
	Finished bool         `json:"finished"`
	Failed   bool         `json:"failed"`
	Error    string       `json:"error"`
	Feedback []resultBody `json:"feedback"`
}

type syncBody struct {
	Simulate bool         `json:"simulate"`
	Results  []resultBody `json:"results"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestHandleStatus(t *testing.T) {
	f := newFixture(t)

	t.Run("returns HTML status page", func(t *testing.T) {
		w := f.do("GET", "/", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, w.Body.String(), "membersync is running")
	})

	t.Run("returns JSON when requested", func(t *testing.T) {
		w := f.do("GET", "/?format=json", "")

		assert.Equal(t, http.StatusOK, w.Code)
		var resp StatusResponse
		decode(t, w, &resp)
		assert.Equal(t, "role", resp.SyncMethod)
		assert.Equal(t, batch.StateIdle, resp.Batch.State)
	})
}

func TestRulesEndpoints(t *testing.T) {
	f := newFixture(t)

	w := f.do("PUT", "/rules/role/7", `{"current_status_ids":[1],"expiry_status_ids":[3],"current_role":"gold","expired_role":"former_gold"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do("GET", "/rules/role/7", "")
	require.Equal(t, http.StatusOK, w.Code)
	var got RuleResponse
	decode(t, w, &got)
	assert.Equal(t, RuleResponse{
		MembershipTypeID: 7,
		Method:           "role",
		CurrentStatusIDs: []int{1},
		ExpiryStatusIDs:  []int{3},
		CurrentRole:      "gold",
		ExpiredRole:      "former_gold",
	}, got)

	w = f.do("GET", "/rules/role", "")
	var list []RuleResponse
	decode(t, w, &list)
	require.Len(t, list, 2)
	assert.Equal(t, 5, list[0].MembershipTypeID)
	assert.Equal(t, 7, list[1].MembershipTypeID)

	w = f.do("DELETE", "/rules/role/7", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = f.do("GET", "/rules/role/7", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do("DELETE", "/rules/role", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"deleted":1}`, w.Body.String())
}

func TestPutRuleErrors(t *testing.T) {
	f := newFixture(t)

	t.Run("validation errors name the fields", func(t *testing.T) {
		w := f.do("PUT", "/rules/role/7", `{"current_status_ids":[1],"expiry_status_ids":[1],"current_role":"gold"}`)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.JSONEq(t, `{"error":{"fields":{"expiry_status_ids":"status_overlap","expired_role":"expired_role_missing"}}}`, w.Body.String())
	})

	t.Run("capability rules need no roles", func(t *testing.T) {
		w := f.do("PUT", "/rules/capability/7", `{"current_status_ids":[1],"expiry_status_ids":[3]}`)
		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	})

	t.Run("unknown method", func(t *testing.T) {
		w := f.do("GET", "/rules/group", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		w := f.do("PUT", "/rules/role/7", `{`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestBatchEndpoints(t *testing.T) {
	f := newFixture(t)
	f.crm.PutContact(crm.Contact{ID: 43, DisplayName: "Sam", Email: "sam@example.org"})
	f.crm.PutMembership(crm.Membership{ID: 1, ContactID: 42, TypeID: 5, StatusID: 1, EndDate: late})
	f.crm.PutMembership(crm.Membership{ID: 2, ContactID: 43, TypeID: 5, StatusID: 3, EndDate: late})

	w := f.do("POST", "/batch/step", `{"batch_size": 1}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var step stepBody
	decode(t, w, &step)
	assert.True(t, step.Started)
	assert.False(t, step.Finished)
	require.Len(t, step.Feedback, 1)

	w = f.do("GET", "/batch", "")
	var status batch.Status
	decode(t, w, &status)
	assert.Equal(t, batch.StateRunning, status.State)
	assert.Equal(t, 1, status.Offset)
	assert.Equal(t, 2, status.Total)

	// No body uses the configured parameters.
	w = f.do("POST", "/batch/step", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	step = stepBody{}
	decode(t, w, &step)
	assert.False(t, step.Finished)
	require.Len(t, step.Feedback, 1)
	assert.Equal(t, 43, step.Feedback[0].ContactID)
	assert.True(t, step.Feedback[0].IsNewUser)
	assert.Equal(t, "expired", step.Feedback[0].Flag)

	w = f.do("POST", "/batch/step", "")
	step = stepBody{}
	decode(t, w, &step)
	assert.True(t, step.Finished)
	assert.Empty(t, step.Feedback)

	assert.Equal(t, []string{"member"}, f.roles(t))

	w = f.do("POST", "/batch/stop", "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &status)
	assert.Equal(t, batch.StateStopped, status.State)

	w = f.do("GET", "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "membersync_batch_steps_total")
}

func TestBatchStepCRMFailure(t *testing.T) {
	f := newFixture(t)
	f.crm.Err = errors.New("crm unreachable")

	w := f.do("POST", "/batch/step", "")

	assert.Equal(t, http.StatusBadGateway, w.Code)
	var step stepBody
	decode(t, w, &step)
	assert.True(t, step.Failed)
	assert.Contains(t, step.Error, "crm unreachable")
	assert.Empty(t, step.Feedback)
}

func TestContactSync(t *testing.T) {
	f := newFixture(t)
	f.crm.PutMembership(crm.Membership{ID: 1, ContactID: 42, TypeID: 5, StatusID: 1, EndDate: late})

	t.Run("simulate writes nothing", func(t *testing.T) {
		w := f.do("POST", "/contacts/42/sync?simulate=true", "")

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var resp syncBody
		decode(t, w, &resp)
		assert.True(t, resp.Simulate)
		require.Len(t, resp.Results, 1)
		assert.Zero(t, f.dir.Writes)
	})

	t.Run("sync applies the rule", func(t *testing.T) {
		w := f.do("POST", "/contacts/42/sync", "")

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, []string{"member"}, f.roles(t))
	})

	t.Run("unlinked contact", func(t *testing.T) {
		w := f.do("POST", "/contacts/99/sync", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestMembershipHooks(t *testing.T) {
	f := newFixture(t)
	m := crm.Membership{ID: 1, ContactID: 42, TypeID: 5, StatusID: 1, EndDate: late}
	f.crm.PutMembership(m)

	w := f.do("POST", "/hooks/memberships/created", `{"id":1,"contact_id":42,"membership_type_id":5,"status_id":1}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []string{"member"}, f.roles(t))

	w = f.do("POST", "/hooks/memberships/pre_update", `{"id":1,"contact_id":42,"membership_type_id":5,"status_id":1}`)
	assert.Equal(t, http.StatusNoContent, w.Code)

	f.crm.DeleteMembership(1)
	w = f.do("POST", "/hooks/memberships/deleted", `{"id":1,"contact_id":42,"membership_type_id":5,"status_id":1}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []string{"expired_member"}, f.roles(t))

	w = f.do("POST", "/hooks/memberships/renamed", `{}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
