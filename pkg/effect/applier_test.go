package effect

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/doodlesbykumbi/membersync/internal/memory"
	"github.com/doodlesbykumbi/membersync/pkg/directory"
	"github.com/doodlesbykumbi/membersync/pkg/rule"
)

type recorder struct {
	applied []Change
	undone  []Change
}

func (r *recorder) Name() string { return "recorder" }

func (r *recorder) OnApply(_ context.Context, ev Event) error {
	r.applied = append(r.applied, ev.Change)
	return nil
}

func (r *recorder) OnUndo(_ context.Context, ev Event) error {
	r.undone = append(r.undone, ev.Change)
	return nil
}

type mockObserver struct {
	mock.Mock
}

func (m *mockObserver) Name() string { return "mock" }

func (m *mockObserver) OnApply(ctx context.Context, ev Event) error {
	return m.Called(ctx, ev).Error(0)
}

func (m *mockObserver) OnUndo(ctx context.Context, ev Event) error {
	return m.Called(ctx, ev).Error(0)
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func setup(opts Options) (*Applier, *memory.Directory, *recorder, directory.User) {
	dir := memory.NewDirectory()
	rec := &recorder{}
	u := dir.AddUser(42, "jane@example.org")
	return New(dir, opts, discard, rec), dir, rec, u
}

func TestApplyRole(t *testing.T) {
	ctx := context.Background()
	a, dir, rec, u := setup(Options{})
	r := rule.NewRoleRule(5, []int{1, 2}, []int{3, 4}, "member", "expired_member")

	require.NoError(t, a.ApplyExpired(ctx, u, r, 3))
	roles, _ := dir.Roles(ctx, u)
	assert.Equal(t, []string{"expired_member"}, roles)

	require.NoError(t, a.ApplyCurrent(ctx, u, r, 1))
	roles, _ = dir.Roles(ctx, u)
	assert.Equal(t, []string{"member"}, roles)

	assert.Equal(t, []Change{
		{Op: OpAdd, Kind: KindRole, Name: "expired_member"},
		{Op: OpAdd, Kind: KindRole, Name: "member"},
		{Op: OpRemove, Kind: KindRole, Name: "expired_member"},
	}, rec.applied)
}

func TestApplyIsIdempotent(t *testing.T) {
	ctx := context.Background()

	t.Run("role", func(t *testing.T) {
		a, dir, rec, u := setup(Options{})
		r := rule.NewRoleRule(5, []int{1}, []int{3}, "member", "expired_member")

		require.NoError(t, a.ApplyCurrent(ctx, u, r, 1))
		writes, events := dir.Writes, len(rec.applied)

		require.NoError(t, a.ApplyCurrent(ctx, u, r, 1))
		assert.Equal(t, writes, dir.Writes)
		assert.Len(t, rec.applied, events)
	})

	t.Run("capability", func(t *testing.T) {
		a, dir, rec, u := setup(Options{ContentRestriction: true, ContentRestrictionCapability: "restrict_content"})
		r := rule.NewCapabilityRule(7, []int{1, 2}, []int{3})

		require.NoError(t, a.ApplyCurrent(ctx, u, r, 2))
		before, _ := dir.Capabilities(ctx, u)
		writes, events := dir.Writes, len(rec.applied)

		require.NoError(t, a.ApplyCurrent(ctx, u, r, 2))
		after, _ := dir.Capabilities(ctx, u)
		assert.Equal(t, before, after)
		assert.Equal(t, writes, dir.Writes)
		assert.Len(t, rec.applied, events)
	})
}

func TestApplyCapability(t *testing.T) {
	ctx := context.Background()
	a, dir, _, u := setup(Options{ContentRestriction: true, ContentRestrictionCapability: "restrict_content"})
	r := rule.NewCapabilityRule(7, []int{1, 2}, []int{3, 4})

	require.NoError(t, a.ApplyCurrent(ctx, u, r, 1))
	caps, _ := dir.Capabilities(ctx, u)
	assert.Equal(t, []string{"civimember_7", "civimember_7_1", "restrict_content"}, caps)

	// A status change replaces the status capability.
	require.NoError(t, a.ApplyCurrent(ctx, u, r, 2))
	caps, _ = dir.Capabilities(ctx, u)
	assert.Equal(t, []string{"civimember_7", "civimember_7_2", "restrict_content"}, caps)

	require.NoError(t, a.ApplyExpired(ctx, u, r, 3))
	caps, _ = dir.Capabilities(ctx, u)
	assert.Equal(t, []string{"restrict_content"}, caps)
}

func TestApplyCapabilityClearsUnknownStatuses(t *testing.T) {
	ctx := context.Background()
	a, dir, _, u := setup(Options{})
	r := rule.NewCapabilityRule(7, []int{1}, []int{3})

	require.NoError(t, dir.AddCapability(ctx, u, "civimember_7_9"))
	require.NoError(t, dir.AddCapability(ctx, u, "civimember_70"))
	require.NoError(t, dir.AddCapability(ctx, u, "civimember_7_notes"))

	require.NoError(t, a.ApplyCurrent(ctx, u, r, 1))
	caps, _ := dir.Capabilities(ctx, u)
	assert.Equal(t, []string{"civimember_7", "civimember_70", "civimember_7_1", "civimember_7_notes"}, caps)
}

func TestApplyCapabilityWithoutContentRestriction(t *testing.T) {
	ctx := context.Background()
	a, dir, _, u := setup(Options{CapabilityPrefix: "club_", ContentRestrictionCapability: "restrict_content"})
	r := rule.NewCapabilityRule(7, []int{1}, []int{3})

	require.NoError(t, a.ApplyCurrent(ctx, u, r, 1))
	caps, _ := dir.Capabilities(ctx, u)
	assert.Equal(t, []string{"club_7", "club_7_1"}, caps)
}

func TestUndo(t *testing.T) {
	ctx := context.Background()

	t.Run("capability", func(t *testing.T) {
		a, dir, rec, u := setup(Options{ContentRestriction: true, ContentRestrictionCapability: "restrict_content"})
		r := rule.NewCapabilityRule(7, []int{1}, []int{3})

		require.NoError(t, a.ApplyCurrent(ctx, u, r, 1))
		require.NoError(t, a.Undo(ctx, u, r))

		caps, _ := dir.Capabilities(ctx, u)
		assert.Empty(t, caps)
		assert.Len(t, rec.undone, 3)
	})

	t.Run("role", func(t *testing.T) {
		a, dir, _, u := setup(Options{})
		r := rule.NewRoleRule(5, []int{1}, []int{3}, "member", "expired_member")

		require.NoError(t, dir.AddRole(ctx, u, "member"))
		require.NoError(t, dir.AddRole(ctx, u, "expired_member"))
		require.NoError(t, dir.AddRole(ctx, u, "subscriber"))
		require.NoError(t, a.Undo(ctx, u, r))

		roles, _ := dir.Roles(ctx, u)
		assert.Equal(t, []string{"subscriber"}, roles)
	})
}

func TestReplaceWithExpired(t *testing.T) {
	ctx := context.Background()
	a, dir, rec, u := setup(Options{})
	r := rule.NewRoleRule(5, []int{1}, []int{3}, "member", "expired_member")

	require.NoError(t, a.ApplyCurrent(ctx, u, r, 1))
	require.NoError(t, a.ReplaceWithExpired(ctx, u, r))

	roles, _ := dir.Roles(ctx, u)
	assert.Equal(t, []string{"expired_member"}, roles)
	assert.Equal(t, []Change{
		{Op: OpRemove, Kind: KindRole, Name: "member"},
		{Op: OpAdd, Kind: KindRole, Name: "expired_member"},
	}, rec.undone)

	err := a.ReplaceWithExpired(ctx, u, rule.NewCapabilityRule(7, []int{1}, []int{3}))
	assert.Error(t, err)
}

func TestApplyPlaceholderUser(t *testing.T) {
	a, _, _, _ := setup(Options{})
	r := rule.NewRoleRule(5, []int{1}, []int{3}, "member", "expired_member")

	err := a.ApplyCurrent(context.Background(), directory.User{Login: "new"}, r, 1)
	assert.ErrorIs(t, err, ErrPlaceholderUser)
}

func TestApplyDirectoryError(t *testing.T) {
	ctx := context.Background()
	a, dir, rec, u := setup(Options{})
	boom := errors.New("directory unavailable")
	dir.FailUser, dir.FailErr = u.ID, boom

	err := a.ApplyCurrent(ctx, u, rule.NewRoleRule(5, []int{1}, []int{3}, "member", "expired_member"), 1)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, rec.applied)
}

func TestObserverErrorsAreIgnored(t *testing.T) {
	ctx := context.Background()
	dir := memory.NewDirectory()
	u := dir.AddUser(42, "jane@example.org")

	failing := &mockObserver{}
	failing.On("OnApply", mock.Anything, mock.MatchedBy(func(ev Event) bool {
		return ev.Change.Name == "member" && ev.Flag == rule.FlagCurrent
	})).Return(errors.New("bridge offline")).Once()
	rec := &recorder{}

	a := New(dir, Options{}, discard, failing, rec)
	require.NoError(t, a.ApplyCurrent(ctx, u, rule.NewRoleRule(5, []int{1}, []int{3}, "member", "expired_member"), 1))

	failing.AssertExpectations(t)
	assert.Equal(t, []Change{{Op: OpAdd, Kind: KindRole, Name: "member"}}, rec.applied)
}
