package rule

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestClassify(t *testing.T) {
	r := NewRoleRule(5, []int{1, 2}, []int{3, 4}, "member", "expired_member")

	tests := []struct {
		name     string
		statusID int
		expected Flag
	}{
		{name: "listed current", statusID: 1, expected: FlagCurrent},
		{name: "second current", statusID: 2, expected: FlagCurrent},
		{name: "listed expired", statusID: 3, expected: FlagExpired},
		{name: "unknown status is expired", statusID: 99, expected: FlagExpired},
		{name: "zero status is expired", statusID: 0, expected: FlagExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, r.Classify(tt.statusID))
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		rule     Rule
		expected ValidationErrors
	}{
		{
			name: "valid role rule",
			rule: NewRoleRule(5, []int{1, 2}, []int{3, 4}, "member", "expired_member"),
		},
		{
			name: "valid capability rule",
			rule: NewCapabilityRule(7, []int{1}, []int{3}),
		},
		{
			name:     "missing expired role",
			rule:     NewRoleRule(5, []int{1}, []int{3}, "member", ""),
			expected: ValidationErrors{FieldExpiredRole: CodeExpiredRoleMissing},
		},
		{
			name:     "blank current role",
			rule:     NewRoleRule(5, []int{1}, []int{3}, "  ", "expired_member"),
			expected: ValidationErrors{FieldCurrentRole: CodeCurrentRoleMissing},
		},
		{
			name:     "overlapping statuses",
			rule:     NewCapabilityRule(5, []int{1, 2}, []int{2, 3}),
			expected: ValidationErrors{FieldExpiryStatuses: CodeStatusOverlap},
		},
		{
			name: "empty everything",
			rule: Rule{},
			expected: ValidationErrors{
				FieldTypeID:          CodeTypeIDInvalid,
				FieldCurrentStatuses: CodeCurrentStatusesEmpty,
				FieldExpiryStatuses:  CodeExpiryStatusesEmpty,
				FieldMethod:          CodeMethodInvalid,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			if tt.expected == nil {
				assert.NoError(t, err)
				return
			}
			var verrs ValidationErrors
			require.True(t, errors.As(err, &verrs))
			assert.Equal(t, tt.expected, verrs)
		})
	}
}

func TestValidationErrorsMessageIsSorted(t *testing.T) {
	err := ValidationErrors{
		FieldExpiredRole: CodeExpiredRoleMissing,
		FieldCurrentRole: CodeCurrentRoleMissing,
	}
	assert.Equal(t, "invalid rule: current_role: current_role_missing, expired_role: expired_role_missing", err.Error())
}

func TestCapabilityNames(t *testing.T) {
	assert.Equal(t, "civimember_5", CapabilityName(DefaultCapabilityPrefix, 5))
	assert.Equal(t, "civimember_5_2", StatusCapabilityName(DefaultCapabilityPrefix, 5, 2))
	assert.Equal(t, "x12_3", StatusCapabilityName("x", 12, 3))
}

func TestStatusIDs(t *testing.T) {
	r := NewCapabilityRule(5, []int{2, 1}, []int{4, 3, 2})
	assert.Equal(t, []int{1, 2, 3, 4}, r.StatusIDs())
}

func TestCloneIsIndependent(t *testing.T) {
	r := NewCapabilityRule(5, []int{1}, []int{3})
	c := r.Clone()
	c.CurrentStatusIDs[0] = 9
	assert.Equal(t, 1, r.CurrentStatusIDs[0])
}

func TestMethodEncoding(t *testing.T) {
	m, err := MethodString("Capability")
	require.NoError(t, err)
	assert.Equal(t, MethodCapability, m)

	_, err = MethodString("group")
	assert.Error(t, err)

	data, err := json.Marshal(MethodRole)
	require.NoError(t, err)
	assert.Equal(t, `"role"`, string(data))

	var parsed struct {
		Method Method `yaml:"method"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("method: capability\n"), &parsed))
	assert.Equal(t, MethodCapability, parsed.Method)
}

func TestRuleMethodFollowsEffect(t *testing.T) {
	assert.Equal(t, MethodRole, NewRoleRule(1, nil, nil, "a", "b").Method())
	assert.Equal(t, MethodCapability, NewCapabilityRule(1, nil, nil).Method())

	_, ok := NewCapabilityRule(1, nil, nil).Roles()
	assert.False(t, ok)
}
