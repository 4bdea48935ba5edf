package resolve

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doodlesbykumbi/membersync/internal/memory"
	"github.com/doodlesbykumbi/membersync/pkg/rule"
)

func TestResolve(t *testing.T) {
	rules := memory.NewRulesStore(
		rule.NewRoleRule(5, []int{1, 2}, []int{3, 4}, "member", "expired_member"),
		rule.NewCapabilityRule(7, []int{1}, []int{3}),
	)
	r := New(rules)

	tests := []struct {
		name     string
		typeID   int
		statusID int
		method   rule.Method
		wantFlag rule.Flag
		wantErr  error
	}{
		{name: "current status", typeID: 5, statusID: 1, method: rule.MethodRole, wantFlag: rule.FlagCurrent},
		{name: "expiry status", typeID: 5, statusID: 3, method: rule.MethodRole, wantFlag: rule.FlagExpired},
		{name: "unlisted status is expired", typeID: 5, statusID: 99, method: rule.MethodRole, wantFlag: rule.FlagExpired},
		{name: "capability rule", typeID: 7, statusID: 1, method: rule.MethodCapability, wantFlag: rule.FlagCurrent},
		{name: "no rule for type", typeID: 6, statusID: 1, method: rule.MethodRole, wantErr: ErrNoApplicableRule},
		{name: "no rule for method", typeID: 5, statusID: 1, method: rule.MethodCapability, wantErr: ErrNoApplicableRule},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.Resolve(tt.typeID, tt.statusID, tt.method)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFlag, res.Flag)
			assert.Equal(t, tt.typeID, res.Rule.MembershipTypeID)
		})
	}
}

func TestResolveClosedWorld(t *testing.T) {
	r := New(memory.NewRulesStore(rule.NewRoleRule(5, []int{1, 2}, []int{3, 4}, "member", "expired_member")))

	for status := -5; status < 50; status++ {
		if status == 1 || status == 2 {
			continue
		}
		res, err := r.Resolve(5, status, rule.MethodRole)
		require.NoError(t, err)
		assert.Equal(t, rule.FlagExpired, res.Flag, "status %d", status)
	}
}

func TestResolveInvalidRule(t *testing.T) {
	rules := memory.NewRulesStore(rule.NewRoleRule(5, []int{1}, []int{3}, "member", ""))
	r := New(rules)

	_, err := r.Resolve(5, 1, rule.MethodRole)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidRule)
	assert.False(t, errors.Is(err, ErrNoApplicableRule))
	assert.Contains(t, err.Error(), rule.CodeExpiredRoleMissing)

	ok, err := r.Applies(5, rule.MethodRole)
	require.NoError(t, err)
	assert.True(t, ok)
}

type failingStore struct {
	*memory.RulesStore
	err error
}

func (s failingStore) Get(int, rule.Method) (*rule.Rule, error) { return nil, s.err }

func TestResolveStoreError(t *testing.T) {
	boom := errors.New("connection refused")
	r := New(failingStore{RulesStore: memory.NewRulesStore(), err: boom})

	_, err := r.Resolve(5, 1, rule.MethodRole)
	assert.ErrorIs(t, err, boom)

	_, err = r.Applies(5, rule.MethodRole)
	assert.ErrorIs(t, err, boom)
}
