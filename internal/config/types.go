package config

// Config is the on-disk configuration (JSON or YAML).
//
// Only the logging section is applied on hot reload; the rest is read at
// startup and changes are reported as "restart required".
type Config struct {
	Source    SourceConfig    `json:"source"`
	Server    ServerConfig    `json:"server"`
	Watch     WatchConfig     `json:"watch"`
	Broadcast BroadcastConfig `json:"broadcast"`
	Refresh   RefreshConfig   `json:"refresh,omitempty"`
	Logging   LoggingConfig   `json:"logging"`
	Storage   *StorageConfig  `json:"storage,omitempty"`
	Diag      DiagConfig      `json:"diag,omitempty"`
}

// SourceConfig points at the spreadsheet and names its columns.
//
// Example:
//
//	"source": {
//	  "path": "./data/hiring.xlsx",
//	  "sheet": "B2C Team Hiring-MIS",
//	  "columns": { "recruiter": "Recruiter Name", "date": "Date" }
//	}
//
// Omitted column bindings fall back to the defaults of the hiring package.
type SourceConfig struct {
	Path    string        `json:"path"`
	Sheet   string        `json:"sheet,omitempty"`
	Columns ColumnsConfig `json:"columns,omitempty"`
}

type ColumnsConfig struct {
	Recruiter string `json:"recruiter,omitempty"`
	Date      string `json:"date,omitempty"`
	Status    string `json:"status,omitempty"`
	TechStack string `json:"tech_stack,omitempty"`
	Week      string `json:"week,omitempty"`
	Month     string `json:"month,omitempty"`
}

// ServerConfig controls the viewer-facing HTTP/WebSocket listener.
type ServerConfig struct {
	Addr string `json:"addr"` // default: "0.0.0.0:8000"
	// ReadHeaderTimeout is a Go duration string (e.g. "5s").
	ReadHeaderTimeout string `json:"read_header_timeout,omitempty"`
	// SendQueue bounds per-viewer outbound messages; extra messages are dropped.
	SendQueue int `json:"send_queue,omitempty"`
	// AllowedOrigins lists accepted WebSocket origins. Empty or "*" accepts all.
	AllowedOrigins []string `json:"allowed_origins,omitempty"`
}

// WatchConfig controls the spreadsheet change watcher.
//
// Enabled is a pointer so an omitted value defaults to true.
// Debounce "0s" (default) broadcasts once per filesystem event.
type WatchConfig struct {
	Enabled  *bool  `json:"enabled,omitempty"`
	Debounce string `json:"debounce,omitempty"`
}

// BroadcastConfig controls the broadcaster loop.
type BroadcastConfig struct {
	// ComputeRatePerSec paces snapshot recomputations; 0 means unlimited.
	ComputeRatePerSec float64 `json:"compute_rate_per_sec,omitempty"`
	QueueSize         int     `json:"queue_size,omitempty"`
}

// RefreshConfig triggers a broadcast on a schedule, in addition to file events.
//
// Schedule accepts cron ("*/15 * * * *", "@hourly"), HH:MM ("00:30") or a Go
// duration ("10m"). Empty disables it.
type RefreshConfig struct {
	Schedule string `json:"schedule,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// StorageConfig controls the optional audit trail.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./data/audit.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// DiagConfig controls the optional diagnostics listener (/metrics, pprof).
//
// Security note:
//   - Prefer binding to localhost (default "127.0.0.1:6060").
//   - A non-loopback address requires a token.
type DiagConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"`
	Prefix  string `json:"prefix,omitempty"` // default: "/debug/pprof/"
	Token   string `json:"token,omitempty"`  // optional bearer token (do not log)
}

// WatchEnabled reports the effective watch.enabled value.
func (c *Config) WatchEnabled() bool {
	if c == nil || c.Watch.Enabled == nil {
		return true
	}
	return *c.Watch.Enabled
}
