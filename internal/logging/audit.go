package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// =============================================================================
// AUDIT EVENT TYPES
// =============================================================================

// AuditEventType names one security-relevant event. Each type renders as a
// queryable fact in the audit log.
type AuditEventType string

const (
	// Session lifecycle -> session_event/4
	AuditSessionRestore AuditEventType = "session_restore"
	AuditLogin          AuditEventType = "login"
	AuditSignup         AuditEventType = "signup"
	AuditLogout         AuditEventType = "logout"

	// View changes -> route/4
	AuditRoute AuditEventType = "route"

	// Tool panel switches -> tool_select/3
	AuditToolSelect AuditEventType = "tool_select"
)

// AuditEvent is one JSON line of the audit log.
type AuditEvent struct {
	Timestamp int64          `json:"ts"`    // Unix milliseconds
	EventType AuditEventType `json:"event"` // Maps to the fact predicate
	User      string         `json:"user"`
	From      string         `json:"from,omitempty"`
	Target    string         `json:"target"`
	Success   bool           `json:"success"`
	Message   string         `json:"msg,omitempty"`
	Fact      string         `json:"fact"`
}

// =============================================================================
// AUDIT LOGGER
// =============================================================================

var (
	auditFile *os.File
	auditMu   sync.Mutex
)

// AuditLogger appends events to <dir>/<date>_audit.log. It is a no-op until
// InitAudit succeeds.
type AuditLogger struct{}

// InitAudit opens the audit log in the logging directory. It does nothing
// unless debug mode is on.
func InitAudit() error {
	if !IsDebugMode() {
		return nil
	}

	cfgMu.RLock()
	dir := cfg.Dir
	cfgMu.RUnlock()

	auditMu.Lock()
	defer auditMu.Unlock()
	if auditFile != nil {
		return nil
	}

	date := time.Now().Format("2006-01-02")
	file, err := os.OpenFile(filepath.Join(dir, date+"_audit.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	auditFile = file
	fmt.Fprintf(auditFile, "# Audit log started at %s\n", time.Now().Format(time.RFC3339))
	return nil
}

// CloseAudit closes the audit log file.
func CloseAudit() {
	auditMu.Lock()
	defer auditMu.Unlock()
	if auditFile != nil {
		auditFile.Close()
		auditFile = nil
	}
}

// Audit returns the audit logger.
func Audit() *AuditLogger {
	return &AuditLogger{}
}

// Log writes one event. Passwords and tokens never reach this layer.
func (a *AuditLogger) Log(event AuditEvent) {
	auditMu.Lock()
	defer auditMu.Unlock()
	if auditFile == nil {
		return
	}

	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}
	event.Fact = generateFact(event)

	data, err := json.Marshal(event)
	if err == nil {
		auditFile.Write(append(data, '\n'))
	}
}

// generateFact renders an event as a Datalog-style fact string.
func generateFact(e AuditEvent) string {
	switch e.EventType {
	case AuditSessionRestore, AuditLogin, AuditSignup, AuditLogout:
		return fmt.Sprintf("session_event(%d, /%s, \"%s\", %v).",
			e.Timestamp, e.EventType, escapeString(e.User), e.Success)
	case AuditRoute:
		return fmt.Sprintf("route(%d, /%s, /%s, \"%s\").",
			e.Timestamp, strings.ToLower(e.From), strings.ToLower(e.Target), escapeString(e.Message))
	case AuditToolSelect:
		return fmt.Sprintf("tool_select(%d, \"%s\", /%s).",
			e.Timestamp, escapeString(e.User), strings.ToLower(e.Target))
	default:
		return fmt.Sprintf("audit_event(%d, /%s, \"%s\", %v).",
			e.Timestamp, e.EventType, escapeString(e.Message), e.Success)
	}
}

func escapeString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + len(s)/10)

	for _, c := range s {
		switch c {
		case '"':
			b.WriteString("\\\"")
		case '\\':
			b.WriteString("\\\\")
		case '\n':
			b.WriteString("\\n")
		case '\r':
			b.WriteString("\\r")
		case '\t':
			b.WriteString("\\t")
		default:
			b.WriteRune(c)
		}
	}
	return b.String()
}

// =============================================================================
// CONVENIENCE METHODS
// =============================================================================

// SessionEvent records a restore, login, signup or logout.
func (a *AuditLogger) SessionEvent(kind AuditEventType, user string, success bool, msg string) {
	a.Log(AuditEvent{EventType: kind, User: user, Target: user, Success: success, Message: msg})
}

// Route records a view change and what caused it.
func (a *AuditLogger) Route(from, to, cause string) {
	a.Log(AuditEvent{EventType: AuditRoute, From: from, Target: to, Success: true, Message: cause})
}

// ToolSelect records a dashboard panel switch.
func (a *AuditLogger) ToolSelect(user, tool string) {
	a.Log(AuditEvent{EventType: AuditToolSelect, User: user, Target: tool, Success: true})
}
