package storage

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned by a store used after Close.
var ErrClosed = errors.New("storage closed")

// DefaultAuditLimit applies when RecentAudit is called with limit <= 0.
const DefaultAuditLimit = 50

// Config selects and configures a backend. Driver is "file" (JSON lines),
// "sqlite" or "sqlite3"; empty or "none" disables storage.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// AuditEntry records one broadcast trigger and its delivery outcome.
type AuditEntry struct {
	At         time.Time `json:"at"`
	Trigger    string    `json:"trigger"`
	SessionID  string    `json:"session_id,omitempty"`
	Recipients int       `json:"recipients"`
	Delivered  int       `json:"delivered"`
	Failed     int       `json:"failed"`
	Error      string    `json:"error,omitempty"`
	TookMS     int64     `json:"took_ms"`
}

// Store is the minimal persistence API.
type Store interface {
	AppendAudit(ctx context.Context, e AuditEntry) error
	// RecentAudit returns up to limit entries, newest first.
	RecentAudit(ctx context.Context, limit int) ([]AuditEntry, error)
	Close() error
}
