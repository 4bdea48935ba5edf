package reconcile

import (
	"encoding/json"

	"github.com/doodlesbykumbi/membersync/pkg/crm"
	"github.com/doodlesbykumbi/membersync/pkg/rule"
)

// Result records what happened to one membership of one user.
type Result struct {
	ContactID    int
	MembershipID int
	TypeID       int
	StatusID     int
	UserID       int64
	IsNewUser    bool
	Flag         rule.Flag
	Undo         bool
	Rule         *rule.Rule
	Err          error
}

func newResult(userID int64, m crm.Membership) Result {
	return Result{
		ContactID:    m.ContactID,
		MembershipID: m.ID,
		TypeID:       m.TypeID,
		StatusID:     m.StatusID,
		UserID:       userID,
	}
}

// Failed reports whether the membership could not be processed.
func (r Result) Failed() bool {
	return r.Err != nil
}

type resultJSON struct {
	ContactID    int        `json:"contact_id"`
	MembershipID int        `json:"membership_id,omitempty"`
	TypeID       int        `json:"membership_type_id,omitempty"`
	StatusID     int        `json:"status_id,omitempty"`
	UserID       int64      `json:"user_id,omitempty"`
	IsNewUser    bool       `json:"is_new_user"`
	Flag         *rule.Flag `json:"flag,omitempty"`
	Undo         bool       `json:"undo,omitempty"`
	Method       string     `json:"method,omitempty"`
	CurrentRole  string     `json:"current_role,omitempty"`
	ExpiredRole  string     `json:"expired_role,omitempty"`
	Error        string     `json:"error,omitempty"`
}

func (r Result) MarshalJSON() ([]byte, error) {
	out := resultJSON{
		ContactID:    r.ContactID,
		MembershipID: r.MembershipID,
		TypeID:       r.TypeID,
		StatusID:     r.StatusID,
		UserID:       r.UserID,
		IsNewUser:    r.IsNewUser,
		Undo:         r.Undo,
	}
	if r.Rule != nil {
		flag := r.Flag
		out.Flag = &flag
		out.Method = r.Rule.Method().String()
		if roles, ok := r.Rule.Roles(); ok {
			out.CurrentRole = roles.CurrentRole
			out.ExpiredRole = roles.ExpiredRole
		}
	}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return json.Marshal(out)
}
