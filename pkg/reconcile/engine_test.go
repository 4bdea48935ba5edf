package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doodlesbykumbi/membersync/internal/memory"
	"github.com/doodlesbykumbi/membersync/pkg/crm"
	"github.com/doodlesbykumbi/membersync/pkg/directory"
	"github.com/doodlesbykumbi/membersync/pkg/effect"
	"github.com/doodlesbykumbi/membersync/pkg/resolve"
	"github.com/doodlesbykumbi/membersync/pkg/rule"
)

var (
	discard = slog.New(slog.NewTextHandler(io.Discard, nil))
	early   = time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)
	late    = time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
)

type fixture struct {
	rules  *memory.RulesStore
	dir    *memory.Directory
	engine *Engine
	user   directory.User
}

func newFixture(method rule.Method, rules ...rule.Rule) *fixture {
	store := memory.NewRulesStore(rules...)
	dir := memory.NewDirectory()
	applier := effect.New(dir, effect.Options{}, discard)
	return &fixture{
		rules:  store,
		dir:    dir,
		engine: NewEngine(method, store, applier, discard),
		user:   dir.AddUser(42, "jane@example.org"),
	}
}

func (f *fixture) roles(t *testing.T) []string {
	roles, err := f.dir.Roles(context.Background(), f.user)
	require.NoError(t, err)
	return roles
}

func (f *fixture) capabilities(t *testing.T) []string {
	caps, err := f.dir.Capabilities(context.Background(), f.user)
	require.NoError(t, err)
	return caps
}

func memberRule() rule.Rule {
	return rule.NewRoleRule(5, []int{1, 2}, []int{3, 4}, "member", "expired_member")
}

func TestSyncExampleScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(rule.MethodRole, memberRule())

	lapsed := crm.Membership{ID: 1, ContactID: 42, TypeID: 5, StatusID: 3, EndDate: early}
	current := crm.Membership{ID: 2, ContactID: 42, TypeID: 5, StatusID: 1, EndDate: late}

	results, err := f.engine.Sync(ctx, f.user, []crm.Membership{lapsed, current})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, rule.FlagExpired, results[0].Flag)
	assert.Equal(t, rule.FlagCurrent, results[1].Flag)
	assert.Equal(t, []string{"member"}, f.roles(t))

	// The current membership is deleted; the lapsed one is all that is left.
	undo, err := f.engine.Undo(ctx, f.user, lapsed, nil)
	require.NoError(t, err)
	require.Len(t, undo, 1)
	assert.True(t, undo[0].Undo)
	assert.Equal(t, []string{"expired_member"}, f.roles(t))
}

func TestSyncOrderingIsDeterministic(t *testing.T) {
	lapsed := crm.Membership{ID: 1, ContactID: 42, TypeID: 5, StatusID: 3, EndDate: early}
	current := crm.Membership{ID: 2, ContactID: 42, TypeID: 5, StatusID: 1, EndDate: early}

	for name, input := range map[string][]crm.Membership{
		"lapsed first":  {lapsed, current},
		"current first": {current, lapsed},
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(rule.MethodRole, memberRule())
			results, err := f.engine.Sync(context.Background(), f.user, input)
			require.NoError(t, err)
			assert.Equal(t, rule.FlagCurrent, results[len(results)-1].Flag)
			assert.Equal(t, []string{"member"}, f.roles(t))
		})
	}
}

func TestSyncIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(rule.MethodRole, memberRule())
	memberships := []crm.Membership{
		{ID: 1, ContactID: 42, TypeID: 5, StatusID: 3, EndDate: early},
		{ID: 2, ContactID: 42, TypeID: 5, StatusID: 1, EndDate: late},
	}

	_, err := f.engine.Sync(ctx, f.user, memberships)
	require.NoError(t, err)
	_, err = f.engine.Sync(ctx, f.user, memberships)
	require.NoError(t, err)
	assert.Equal(t, []string{"member"}, f.roles(t))

	// A single resolution applied again writes nothing.
	only := memberships[1:]
	_, err = f.engine.Sync(ctx, f.user, only)
	require.NoError(t, err)
	writes := f.dir.Writes
	_, err = f.engine.Sync(ctx, f.user, only)
	require.NoError(t, err)
	assert.Equal(t, writes, f.dir.Writes)
	assert.Equal(t, []string{"member"}, f.roles(t))
}

func TestSyncSkipsMembershipsWithoutRule(t *testing.T) {
	f := newFixture(rule.MethodRole, memberRule())

	results, err := f.engine.Sync(context.Background(), f.user, []crm.Membership{
		{ID: 1, TypeID: 6, StatusID: 1},
	})
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Zero(t, f.dir.Writes)

	results, err = f.engine.Sync(context.Background(), f.user, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSyncRecordsInvalidRuleAndContinues(t *testing.T) {
	broken := rule.NewRoleRule(6, []int{1}, []int{3}, "gold", "")
	f := newFixture(rule.MethodRole, memberRule(), broken)

	results, err := f.engine.Sync(context.Background(), f.user, []crm.Membership{
		{ID: 1, TypeID: 6, StatusID: 1, EndDate: early},
		{ID: 2, TypeID: 5, StatusID: 1, EndDate: late},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.ErrorIs(t, results[0].Err, resolve.ErrInvalidRule)
	assert.True(t, results[0].Failed())
	assert.NoError(t, results[1].Err)
	assert.Equal(t, []string{"member"}, f.roles(t))
}

func TestSyncPropagatesDirectoryErrors(t *testing.T) {
	f := newFixture(rule.MethodRole, memberRule())
	f.dir.FailUser, f.dir.FailErr = f.user.ID, errors.New("directory unavailable")

	_, err := f.engine.Sync(context.Background(), f.user, []crm.Membership{{ID: 1, TypeID: 5, StatusID: 1}})
	assert.ErrorIs(t, err, f.dir.FailErr)
}

func TestSimulate(t *testing.T) {
	f := newFixture(rule.MethodRole, memberRule())

	results, err := f.engine.Simulate(context.Background(), []crm.Membership{
		{ID: 2, ContactID: 42, TypeID: 5, StatusID: 1, EndDate: late},
		{ID: 1, ContactID: 42, TypeID: 5, StatusID: 3, EndDate: early},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 1, results[0].MembershipID)
	assert.Equal(t, rule.FlagCurrent, results[1].Flag)
	assert.Zero(t, results[1].UserID)
	assert.Zero(t, f.dir.Writes)
}

func TestRuleExistsFor(t *testing.T) {
	f := newFixture(rule.MethodRole, memberRule())

	ok, err := f.engine.RuleExistsFor([]crm.Membership{{TypeID: 6}, {TypeID: 5}})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.engine.RuleExistsFor([]crm.Membership{{TypeID: 6}})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUndoRoleWithRemainingMemberships(t *testing.T) {
	ctx := context.Background()
	gold := rule.NewRoleRule(6, []int{1}, []int{3}, "gold", "former_gold")
	f := newFixture(rule.MethodRole, memberRule(), gold)

	basic := crm.Membership{ID: 1, ContactID: 42, TypeID: 5, StatusID: 1, EndDate: late}
	premium := crm.Membership{ID: 2, ContactID: 42, TypeID: 6, StatusID: 1, EndDate: late}
	_, err := f.engine.Sync(ctx, f.user, []crm.Membership{basic, premium})
	require.NoError(t, err)
	assert.Equal(t, []string{"gold", "member"}, f.roles(t))

	results, err := f.engine.Undo(ctx, f.user, premium, []crm.Membership{basic})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].Undo)
	assert.False(t, results[1].Undo)
	assert.Equal(t, []string{"member"}, f.roles(t))
}

func TestUndoSoleMembershipNeverOrphans(t *testing.T) {
	ctx := context.Background()

	for _, status := range []int{1, 2, 3, 4, 9} {
		f := newFixture(rule.MethodRole, memberRule())
		m := crm.Membership{ID: 1, ContactID: 42, TypeID: 5, StatusID: status}

		_, err := f.engine.Sync(ctx, f.user, []crm.Membership{m})
		require.NoError(t, err)
		_, err = f.engine.Undo(ctx, f.user, m, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"expired_member"}, f.roles(t), "status %d", status)
	}
}

func TestUndoCapability(t *testing.T) {
	ctx := context.Background()
	f := newFixture(rule.MethodCapability,
		rule.NewCapabilityRule(7, []int{1}, []int{3}),
		rule.NewCapabilityRule(8, []int{1}, []int{3}),
	)

	a := crm.Membership{ID: 1, ContactID: 42, TypeID: 7, StatusID: 1}
	b := crm.Membership{ID: 2, ContactID: 42, TypeID: 8, StatusID: 1}
	_, err := f.engine.Sync(ctx, f.user, []crm.Membership{a, b})
	require.NoError(t, err)
	assert.Equal(t, []string{"civimember_7", "civimember_7_1", "civimember_8", "civimember_8_1"}, f.capabilities(t))

	results, err := f.engine.Undo(ctx, f.user, a, []crm.Membership{b})
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, []string{"civimember_8", "civimember_8_1"}, f.capabilities(t))

	results, err = f.engine.Undo(ctx, f.user, b, nil)
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Empty(t, f.capabilities(t))
}

func TestUndoWithoutRule(t *testing.T) {
	f := newFixture(rule.MethodRole, memberRule())

	results, err := f.engine.Undo(context.Background(), f.user, crm.Membership{ID: 1, TypeID: 6}, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Zero(t, f.dir.Writes)
}

func TestResultJSON(t *testing.T) {
	r := memberRule()
	out, err := json.Marshal(Result{
		ContactID:    42,
		MembershipID: 2,
		TypeID:       5,
		StatusID:     1,
		UserID:       7,
		IsNewUser:    true,
		Flag:         rule.FlagCurrent,
		Rule:         &r,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"contact_id": 42,
		"membership_id": 2,
		"membership_type_id": 5,
		"status_id": 1,
		"user_id": 7,
		"is_new_user": true,
		"flag": "current",
		"method": "role",
		"current_role": "member",
		"expired_role": "expired_member"
	}`, string(out))

	out, err = json.Marshal(Result{ContactID: 42, Err: errors.New("boom")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"contact_id": 42, "is_new_user": false, "error": "boom"}`, string(out))
}
