package audit

import (
	"fmt"
	"strconv"
)

// RuleEvent represents a change to an association rule
type RuleEvent struct {
	TypeID       int
	Method       string
	Operation    string // "save", "delete"
	CurrentRole  string
	ExpiredRole  string
	Success      bool
	ErrorMessage string
}

func (e RuleEvent) MessageID() string {
	return "rule"
}

func (e RuleEvent) Message() string {
	var verb string
	switch e.Operation {
	case "save":
		verb = "saved"
	case "delete":
		verb = "deleted"
	default:
		verb = e.Operation + "d"
	}
	if e.Success {
		return fmt.Sprintf("%s rule for membership type %d %s", e.Method, e.TypeID, verb)
	}
	msg := fmt.Sprintf("failed to %s %s rule for membership type %d", e.Operation, e.Method, e.TypeID)
	if e.ErrorMessage != "" {
		msg += ": " + e.ErrorMessage
	}
	return msg
}

func (e RuleEvent) Severity() Severity {
	if e.Success {
		return SeverityNotice
	}
	return SeverityWarning
}

func (e RuleEvent) Facility() int {
	return FacilityAuthPriv
}

func (e RuleEvent) StructuredData() map[string]map[string]string {
	sd := map[string]map[string]string{
		SDIDRule: {
			"membership_type": strconv.Itoa(e.TypeID),
			"method":          e.Method,
		},
		SDIDAction: {
			"operation": e.Operation,
		},
	}
	if e.CurrentRole != "" {
		sd[SDIDRule]["current_role"] = e.CurrentRole
	}
	if e.ExpiredRole != "" {
		sd[SDIDRule]["expired_role"] = e.ExpiredRole
	}
	if e.Success {
		sd[SDIDAction]["result"] = "success"
	} else {
		sd[SDIDAction]["result"] = "failure"
	}
	return sd
}

// EffectEvent represents a role or capability granted to or withdrawn from
// a user
type EffectEvent struct {
	UserID     int64
	Login      string
	TypeID     int
	Method     string
	Flag       string
	Operation  string // "add", "remove"
	Permission string // "role", "capability"
	Name       string
	Undo       bool
}

func (e EffectEvent) MessageID() string {
	return "effect"
}

func (e EffectEvent) Message() string {
	verb, prep := "granted", "to"
	if e.Operation == "remove" {
		verb, prep = "withdrew", "from"
	}
	reason := "membership type " + strconv.Itoa(e.TypeID) + " " + e.Flag
	if e.Undo {
		reason = "membership type " + strconv.Itoa(e.TypeID) + " removed"
	}
	return fmt.Sprintf("%s %s %s %s %s (%s)", verb, e.Permission, e.Name, prep, e.Login, reason)
}

func (e EffectEvent) Severity() Severity {
	return SeverityInfo
}

func (e EffectEvent) Facility() int {
	return FacilityAuthPriv
}

func (e EffectEvent) StructuredData() map[string]map[string]string {
	sd := map[string]map[string]string{
		SDIDSubject: {
			"user":       e.Login,
			"id":         strconv.FormatInt(e.UserID, 10),
			e.Permission: e.Name,
		},
		SDIDRule: {
			"membership_type": strconv.Itoa(e.TypeID),
			"method":          e.Method,
		},
		SDIDAction: {
			"operation": e.Operation,
			"result":    "success",
		},
	}
	if e.Undo {
		sd[SDIDAction]["reason"] = "undo"
	} else {
		sd[SDIDAction]["reason"] = e.Flag
	}
	return sd
}

// BatchEvent represents a batch run milestone
type BatchEvent struct {
	RunID        string
	Phase        string // "started", "complete", "stopped", "failed"
	From         int
	To           int
	Processed    int
	Failed       int
	DryRun       bool
	ErrorMessage string
}

func (e BatchEvent) MessageID() string {
	return "batch"
}

func (e BatchEvent) Message() string {
	mode := ""
	if e.DryRun {
		mode = " (dry run)"
	}
	switch e.Phase {
	case "started":
		return fmt.Sprintf("batch run %s started at offset %d%s", e.RunID, e.From, mode)
	case "complete":
		return fmt.Sprintf("batch run %s complete at offset %d%s", e.RunID, e.From, mode)
	case "stopped":
		return fmt.Sprintf("batch run %s stopped%s", e.RunID, mode)
	}
	msg := fmt.Sprintf("batch run %s failed at offset %d%s", e.RunID, e.From, mode)
	if e.ErrorMessage != "" {
		msg += ": " + e.ErrorMessage
	}
	return msg
}

func (e BatchEvent) Severity() Severity {
	switch e.Phase {
	case "failed":
		return SeverityError
	case "stopped":
		return SeverityNotice
	}
	if e.Failed > 0 {
		return SeverityWarning
	}
	return SeverityInfo
}

func (e BatchEvent) Facility() int {
	return FacilityDaemon
}

func (e BatchEvent) StructuredData() map[string]map[string]string {
	return map[string]map[string]string{
		SDIDBatch: {
			"run":       e.RunID,
			"from":      strconv.Itoa(e.From),
			"to":        strconv.Itoa(e.To),
			"processed": strconv.Itoa(e.Processed),
			"failed":    strconv.Itoa(e.Failed),
			"dry_run":   strconv.FormatBool(e.DryRun),
		},
		SDIDAction: {
			"operation": e.Phase,
		},
	}
}
