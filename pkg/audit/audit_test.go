package audit

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/doodlesbykumbi/membersync/pkg/batch"
	"github.com/doodlesbykumbi/membersync/pkg/directory"
	"github.com/doodlesbykumbi/membersync/pkg/effect"
	"github.com/doodlesbykumbi/membersync/pkg/reconcile"
	"github.com/doodlesbykumbi/membersync/pkg/rule"
)

func TestLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger()
	logger.SetWriter(&buf)

	event := RuleEvent{
		TypeID:      5,
		Method:      "role",
		Operation:   "save",
		CurrentRole: "member",
		ExpiredRole: "expired_member",
		Success:     true,
	}

	logger.Log(event)

	output := buf.String()

	// Check RFC5424 format components
	if !strings.HasPrefix(output, "<85>1 ") {
		t.Errorf("Expected PRI 85 and version 1, got %q", output)
	}
	if !strings.Contains(output, " membersync ") {
		t.Error("Expected app name 'membersync' in output")
	}
	if !strings.Contains(output, " rule ") {
		t.Error("Expected message ID 'rule' in output")
	}
	if !strings.Contains(output, `[action@32473 operation="save" result="success"][rule@32473 current_role="member" expired_role="expired_member" membership_type="5" method="role"]`) {
		t.Errorf("Expected sorted structured data in output, got %q", output)
	}
	if !strings.HasSuffix(output, "role rule for membership type 5 saved\n") {
		t.Errorf("Expected message at end of line, got %q", output)
	}
}

func TestRuleEvent(t *testing.T) {
	tests := []struct {
		name    string
		event   RuleEvent
		wantMsg string
		wantSev Severity
	}{
		{
			name:    "saved",
			event:   RuleEvent{TypeID: 5, Method: "role", Operation: "save", Success: true},
			wantMsg: "role rule for membership type 5 saved",
			wantSev: SeverityNotice,
		},
		{
			name:    "deleted",
			event:   RuleEvent{TypeID: 7, Method: "capability", Operation: "delete", Success: true},
			wantMsg: "capability rule for membership type 7 deleted",
			wantSev: SeverityNotice,
		},
		{
			name:    "failed",
			event:   RuleEvent{TypeID: 7, Method: "role", Operation: "save", ErrorMessage: "connection refused"},
			wantMsg: "failed to save role rule for membership type 7: connection refused",
			wantSev: SeverityWarning,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.event.Message(); got != tt.wantMsg {
				t.Errorf("Message() = %q, want %q", got, tt.wantMsg)
			}
			if tt.event.Severity() != tt.wantSev {
				t.Errorf("Severity() = %v, want %v", tt.event.Severity(), tt.wantSev)
			}
			if tt.event.Facility() != FacilityAuthPriv {
				t.Errorf("Facility() = %v, want %v", tt.event.Facility(), FacilityAuthPriv)
			}
			if tt.event.MessageID() != "rule" {
				t.Errorf("MessageID() = %v, want 'rule'", tt.event.MessageID())
			}
		})
	}
}

func TestEffectEvent(t *testing.T) {
	tests := []struct {
		name       string
		event      EffectEvent
		wantMsg    string
		wantReason string
	}{
		{
			name: "grant",
			event: EffectEvent{
				UserID: 3, Login: "jane", TypeID: 5, Method: "role", Flag: "current",
				Operation: "add", Permission: "role", Name: "member",
			},
			wantMsg:    "granted role member to jane (membership type 5 current)",
			wantReason: "current",
		},
		{
			name: "withdraw",
			event: EffectEvent{
				UserID: 3, Login: "jane", TypeID: 7, Method: "capability", Flag: "expired",
				Operation: "remove", Permission: "capability", Name: "civimember_7",
			},
			wantMsg:    "withdrew capability civimember_7 from jane (membership type 7 expired)",
			wantReason: "expired",
		},
		{
			name: "undo",
			event: EffectEvent{
				UserID: 3, Login: "jane", TypeID: 5, Method: "role",
				Operation: "remove", Permission: "role", Name: "member", Undo: true,
			},
			wantMsg:    "withdrew role member from jane (membership type 5 removed)",
			wantReason: "undo",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.event.Message(); got != tt.wantMsg {
				t.Errorf("Message() = %q, want %q", got, tt.wantMsg)
			}
			sd := tt.event.StructuredData()
			if sd[SDIDAction]["reason"] != tt.wantReason {
				t.Errorf("StructuredData action.reason = %v, want %v", sd[SDIDAction]["reason"], tt.wantReason)
			}
			if sd[SDIDSubject][tt.event.Permission] != tt.event.Name {
				t.Errorf("StructuredData subject.%s = %v, want %v", tt.event.Permission, sd[SDIDSubject][tt.event.Permission], tt.event.Name)
			}
			if sd[SDIDSubject]["id"] != "3" {
				t.Errorf("StructuredData subject.id = %v, want '3'", sd[SDIDSubject]["id"])
			}
		})
	}
}

func TestBatchEvent(t *testing.T) {
	tests := []struct {
		name    string
		event   BatchEvent
		wantMsg string
		wantSev Severity
	}{
		{
			name:    "started",
			event:   BatchEvent{RunID: "r1", Phase: "started", From: 0},
			wantMsg: "batch run r1 started at offset 0",
			wantSev: SeverityInfo,
		},
		{
			name:    "complete with failures",
			event:   BatchEvent{RunID: "r1", Phase: "complete", From: 30, Failed: 2, DryRun: true},
			wantMsg: "batch run r1 complete at offset 30 (dry run)",
			wantSev: SeverityWarning,
		},
		{
			name:    "stopped",
			event:   BatchEvent{RunID: "r1", Phase: "stopped"},
			wantMsg: "batch run r1 stopped",
			wantSev: SeverityNotice,
		},
		{
			name:    "failed",
			event:   BatchEvent{RunID: "r1", Phase: "failed", From: 10, ErrorMessage: "crm unreachable"},
			wantMsg: "batch run r1 failed at offset 10: crm unreachable",
			wantSev: SeverityError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.event.Message(); got != tt.wantMsg {
				t.Errorf("Message() = %q, want %q", got, tt.wantMsg)
			}
			if tt.event.Severity() != tt.wantSev {
				t.Errorf("Severity() = %v, want %v", tt.event.Severity(), tt.wantSev)
			}
			if tt.event.Facility() != FacilityDaemon {
				t.Errorf("Facility() = %v, want %v", tt.event.Facility(), FacilityDaemon)
			}
		})
	}
}

func newTestTrail() (*Trail, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := NewLogger()
	logger.SetWriter(&buf)
	return NewTrail(logger, nil, nil), &buf
}

func TestTrailObservers(t *testing.T) {
	ctx := context.Background()
	trail, buf := newTestTrail()
	r := rule.NewRoleRule(5, []int{1}, []int{3}, "member", "expired_member")

	_ = trail.OnAfterSave(ctx, r)
	_ = trail.OnBeforeDelete(ctx, r)
	_ = trail.OnApply(ctx, effect.Event{
		User:   directory.User{ID: 3, Login: "jane"},
		Rule:   r,
		Flag:   rule.FlagCurrent,
		Change: effect.Change{Op: effect.OpAdd, Kind: effect.KindRole, Name: "member"},
	})
	_ = trail.OnUndo(ctx, effect.Event{
		User:   directory.User{ID: 3, Login: "jane"},
		Rule:   r,
		Change: effect.Change{Op: effect.OpRemove, Kind: effect.KindRole, Name: "member"},
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 audit lines, got %d: %q", len(lines), buf.String())
	}
	wants := []string{
		"role rule for membership type 5 saved",
		"role rule for membership type 5 deleted",
		"granted role member to jane (membership type 5 current)",
		"withdrew role member from jane (membership type 5 removed)",
	}
	for i, want := range wants {
		if !strings.HasSuffix(lines[i], want) {
			t.Errorf("line %d = %q, want suffix %q", i, lines[i], want)
		}
	}
}

func TestTrailRecordStep(t *testing.T) {
	ctx := context.Background()
	trail, buf := newTestTrail()

	trail.RecordStep(ctx, batch.Step{RunID: "r1", Started: true, From: 0, To: 10})
	trail.RecordStep(ctx, batch.Step{RunID: "r1", From: 10, To: 20})
	trail.RecordStep(ctx, batch.Step{
		RunID:    "r1",
		Finished: true,
		From:     20,
		To:       30,
		Feedback: []reconcile.Result{{ContactID: 1}, {ContactID: 2, Err: errors.New("boom")}},
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 audit lines, got %d: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "batch run r1 started at offset 0") {
		t.Errorf("unexpected first line %q", lines[0])
	}
	if !strings.Contains(lines[1], `failed="1"`) || !strings.Contains(lines[1], `processed="1"`) {
		t.Errorf("expected counts in structured data, got %q", lines[1])
	}
	// LOG_DAEMON (3) * 8 + warning (4)
	if !strings.HasPrefix(lines[1], "<28>1 ") {
		t.Errorf("expected warning priority, got %q", lines[1])
	}
}

func TestTrailToggle(t *testing.T) {
	trail, buf := newTestTrail()

	trail.SetEnabled(false)
	if trail.Enabled() {
		t.Error("Expected audit to be disabled")
	}
	trail.Log(BatchEvent{RunID: "r1", Phase: "stopped"})
	if buf.Len() != 0 {
		t.Errorf("Expected no output while disabled, got %q", buf.String())
	}

	trail.SetEnabled(true)
	trail.Log(BatchEvent{RunID: "r1", Phase: "stopped"})
	if buf.Len() == 0 {
		t.Error("Expected output while enabled")
	}

	var nilTrail *Trail
	nilTrail.Log(BatchEvent{})
	if err := nilTrail.Close(); err != nil {
		t.Errorf("Close() on nil trail error = %v", err)
	}
}

func TestEscapeSDValue(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"simple", `"simple"`},
		{`with"quote`, `"with\"quote"`},
		{`with\backslash`, `"with\\backslash"`},
		{`with]bracket`, `"with\]bracket"`},
		{`all"special\chars]`, `"all\"special\\chars\]"`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := escapeSDValue(tt.input)
			if got != tt.want {
				t.Errorf("escapeSDValue(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
