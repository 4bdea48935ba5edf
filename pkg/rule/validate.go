package rule

import (
	"fmt"
	"sort"
	"strings"
)

// Validation codes reported per field.
const (
	CodeTypeIDInvalid        = "type_id_invalid"
	CodeMethodInvalid        = "method_invalid"
	CodeCurrentStatusesEmpty = "current_statuses_empty"
	CodeExpiryStatusesEmpty  = "expiry_statuses_empty"
	CodeStatusOverlap        = "status_overlap"
	CodeCurrentRoleMissing   = "current_role_missing"
	CodeExpiredRoleMissing   = "expired_role_missing"
)

// Field names used as ValidationErrors keys.
const (
	FieldTypeID          = "membership_type_id"
	FieldMethod          = "method"
	FieldCurrentStatuses = "current_status_ids"
	FieldExpiryStatuses  = "expiry_status_ids"
	FieldCurrentRole     = "current_role"
	FieldExpiredRole     = "expired_role"
)

// ValidationErrors maps a field name to the code of the problem found on it.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, v[f]))
	}
	return "invalid rule: " + strings.Join(parts, ", ")
}

// Validate checks the rule for configuration errors. It returns nil when the
// rule is valid.
func (r Rule) Validate() error {
	errs := ValidationErrors{}

	if r.MembershipTypeID <= 0 {
		errs[FieldTypeID] = CodeTypeIDInvalid
	}
	if len(r.CurrentStatusIDs) == 0 {
		errs[FieldCurrentStatuses] = CodeCurrentStatusesEmpty
	}
	if len(r.ExpiryStatusIDs) == 0 {
		errs[FieldExpiryStatuses] = CodeExpiryStatusesEmpty
	}

	current := make(map[int]struct{}, len(r.CurrentStatusIDs))
	for _, id := range r.CurrentStatusIDs {
		current[id] = struct{}{}
	}
	for _, id := range r.ExpiryStatusIDs {
		if _, ok := current[id]; ok {
			errs[FieldExpiryStatuses] = CodeStatusOverlap
			break
		}
	}

	switch e := r.Effect.(type) {
	case RoleEffect:
		if strings.TrimSpace(e.CurrentRole) == "" {
			errs[FieldCurrentRole] = CodeCurrentRoleMissing
		}
		if strings.TrimSpace(e.ExpiredRole) == "" {
			errs[FieldExpiredRole] = CodeExpiredRoleMissing
		}
	case CapabilityEffect:
	default:
		errs[FieldMethod] = CodeMethodInvalid
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}
