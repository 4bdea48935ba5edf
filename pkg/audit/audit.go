package audit

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"
	"sync"
	"time"
)

// Structured data IDs. 32473 is the example Private Enterprise Number from
// RFC5612.
const (
	SDIDSubject = "subject@32473"
	SDIDAction  = "action@32473"
	SDIDRule    = "rule@32473"
	SDIDBatch   = "batch@32473"
)

// Syslog facilities. Directory changes are authorization events; batch
// progress belongs to the daemon.
const (
	FacilityDaemon   = 3
	FacilityAuthPriv = 10
)

// AppName is the APP-NAME field of every record.
const AppName = "membersync"

// Severity is a syslog severity. Only the levels membersync emits are named.
type Severity int

const (
	SeverityError   Severity = 3
	SeverityWarning Severity = 4
	SeverityNotice  Severity = 5
	SeverityInfo    Severity = 6
)

// Event is anything that can be written to the audit trail.
type Event interface {
	MessageID() string
	Message() string
	Severity() Severity
	Facility() int
	StructuredData() map[string]map[string]string
}

// origin identifies the process emitting records.
type origin struct {
	hostname string
	pid      int
}

func currentOrigin() origin {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "-"
	}
	return origin{hostname: hostname, pid: os.Getpid()}
}

// Logger writes one syslog line per event.
type Logger struct {
	mu     sync.Mutex
	w      io.Writer
	origin origin
}

// NewLogger returns a Logger writing to stdout.
func NewLogger() *Logger {
	return &Logger{w: os.Stdout, origin: currentOrigin()}
}

func (l *Logger) SetWriter(w io.Writer) {
	l.mu.Lock()
	l.w = w
	l.mu.Unlock()
}

func (l *Logger) Log(event Event) {
	line := l.origin.line(event, time.Now())

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = io.WriteString(l.w, line)
}

// line renders <PRI>1 TIMESTAMP HOSTNAME APP-NAME PROCID MSGID SD MSG.
func (o origin) line(event Event, at time.Time) string {
	sd := formatStructuredData(event.StructuredData())
	if sd == "" {
		sd = "-"
	}
	return fmt.Sprintf("<%d>1 %s %s %s %d %s %s %s\n",
		event.Facility()*8+int(event.Severity()),
		at.UTC().Format("2006-01-02T15:04:05.000Z"),
		o.hostname,
		AppName,
		o.pid,
		event.MessageID(),
		sd,
		event.Message(),
	)
}

// formatStructuredData renders elements and their params in key order.
func formatStructuredData(sd map[string]map[string]string) string {
	var b strings.Builder
	for _, id := range slices.Sorted(maps.Keys(sd)) {
		b.WriteByte('[')
		b.WriteString(id)
		params := sd[id]
		for _, name := range slices.Sorted(maps.Keys(params)) {
			b.WriteByte(' ')
			b.WriteString(name)
			b.WriteByte('=')
			b.WriteString(escapeSDValue(params[name]))
		}
		b.WriteByte(']')
	}
	return b.String()
}

var sdEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, `]`, `\]`)

// escapeSDValue quotes a PARAM-VALUE (RFC5424 section 6.3.3).
func escapeSDValue(value string) string {
	return `"` + sdEscaper.Replace(value) + `"`
}
