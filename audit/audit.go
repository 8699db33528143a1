// Package audit records identity events: logins, failed attempts, token
// refreshes, password resets and account changes. Recording is best-effort;
// a sink failure must never fail the operation being audited.
package audit

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Entry is a single audit trail record.
type Entry struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	UserID    string    `json:"user_id,omitempty"`
	Username  string    `json:"username,omitempty"`
	RemoteIP  string    `json:"remote_ip,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Actions recorded by the auth flows.
const (
	ActionLogin         = "login"
	ActionLoginFailed   = "login_failed"
	ActionRegister      = "register"
	ActionApprove       = "approve"
	ActionRefresh       = "refresh"
	ActionLogout        = "logout"
	ActionResetRequest  = "reset_request"
	ActionResetConfirm  = "reset_confirm"
	ActionReplayRefused = "replay_refused"
)

// Sink persists audit entries.
type Sink interface {
	Record(ctx context.Context, entry Entry) error
}

// LogSink writes audit entries to the structured log.
type LogSink struct {
	log zerolog.Logger
}

var _ Sink = (*LogSink)(nil)

func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Record(_ context.Context, entry Entry) error {
	event := s.log.Info().
		Str("action", entry.Action)
	if entry.UserID != "" {
		event = event.Str("user_id", entry.UserID)
	}
	if entry.Username != "" {
		event = event.Str("username", entry.Username)
	}
	if entry.RemoteIP != "" {
		event = event.Str("remote_ip", entry.RemoteIP)
	}
	if entry.Detail != "" {
		event = event.Str("detail", entry.Detail)
	}
	event.Msg("audit")
	return nil
}
