package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// =============================================================================
// AUDIT EVENT TYPES
// =============================================================================

// AuditEventType names a credit- or identity-affecting event.
type AuditEventType string

const (
	// Credits earned
	AuditBonusClaimed AuditEventType = "bonus_claimed"
	AuditAdRewarded   AuditEventType = "ad_rewarded"

	// Purchases
	AuditPurchaseVerified AuditEventType = "purchase_verified"
	AuditPurchaseFailed   AuditEventType = "purchase_failed"

	// Credits spent
	AuditToolInvoked AuditEventType = "tool_invoked"
	AuditToolFailed  AuditEventType = "tool_failed"

	// Identity
	AuditSignedIn  AuditEventType = "signed_in"
	AuditSignedOut AuditEventType = "signed_out"
)

// AuditEvent is one line of the audit log.
type AuditEvent struct {
	Timestamp  int64          `json:"ts"` // Unix milliseconds
	EventType  AuditEventType `json:"event"`
	User       string         `json:"user,omitempty"`
	Target     string         `json:"target,omitempty"` // tool key, order id
	Credits    int            `json:"credits,omitempty"`
	Balance    int            `json:"balance,omitempty"`
	Success    bool           `json:"success"`
	DurationMs int64          `json:"dur_ms,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// =============================================================================
// AUDIT LOGGER
// =============================================================================

var (
	auditFile *os.File
	auditMu   sync.Mutex
)

// AuditLogger appends events as JSON lines to <logs dir>/<date>_audit.log.
type AuditLogger struct {
	user string
}

// InitAudit opens the audit log. No-op unless debug mode is on.
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
	path := filepath.Join(dir, fmt.Sprintf("%s_audit.log", date))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	auditFile = f
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

// Audit returns an audit logger with no user attached.
func Audit() *AuditLogger {
	return &AuditLogger{}
}

// AuditFor returns an audit logger that stamps events with user.
func AuditFor(user string) *AuditLogger {
	return &AuditLogger{user: user}
}

// Log writes an event.
func (a *AuditLogger) Log(event AuditEvent) {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}
	if event.User == "" {
		event.User = a.user
	}

	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	auditFile.Write(append(data, '\n'))
}

// =============================================================================
// CONVENIENCE METHODS
// =============================================================================

// Earned records credits granted by the backend.
func (a *AuditLogger) Earned(kind AuditEventType, credits, balance int) {
	a.Log(AuditEvent{EventType: kind, Credits: credits, Balance: balance, Success: true})
}

// Purchase records the outcome of a checkout.
func (a *AuditLogger) Purchase(orderID string, credits int, err error) {
	e := AuditEvent{EventType: AuditPurchaseVerified, Target: orderID, Credits: credits, Success: err == nil}
	if err != nil {
		e.EventType = AuditPurchaseFailed
		e.Error = err.Error()
	}
	a.Log(e)
}

// ToolInvoke records a tool call and what it was expected to cost.
func (a *AuditLogger) ToolInvoke(tool string, cost int, dur time.Duration, err error) {
	e := AuditEvent{EventType: AuditToolInvoked, Target: tool, Credits: cost, DurationMs: dur.Milliseconds(), Success: err == nil}
	if err != nil {
		e.EventType = AuditToolFailed
		e.Error = err.Error()
	}
	a.Log(e)
}

// Identity records a sign-in or sign-out.
func (a *AuditLogger) Identity(kind AuditEventType) {
	a.Log(AuditEvent{EventType: kind, Success: true})
}
