package config

import (
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"time"

	"recruitpulse/internal/hiring"
	"recruitpulse/internal/refresh"
	"recruitpulse/internal/storage"
)

const (
	DefaultServerAddr = "0.0.0.0:8000"
	DefaultDiagAddr   = "127.0.0.1:6060"
	DefaultSendQueue  = 16
	DefaultQueueSize  = 64
)

// Validate checks a decoded config. It does not touch the filesystem: a
// missing spreadsheet is a runtime condition reported to viewers, not a
// startup error.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error

	if err := cfg.HiringConfig().Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := cfg.Timings(); err != nil {
		errs = append(errs, err)
	}
	if cfg.Server.SendQueue < 0 {
		errs = append(errs, errors.New("server.send_queue must be >= 0"))
	}
	if cfg.Broadcast.ComputeRatePerSec < 0 {
		errs = append(errs, errors.New("broadcast.compute_rate_per_sec must be >= 0"))
	}
	if cfg.Broadcast.QueueSize < 0 {
		errs = append(errs, errors.New("broadcast.queue_size must be >= 0"))
	}
	if sch := strings.TrimSpace(cfg.Refresh.Schedule); sch != "" {
		if _, err := refresh.ParseSchedule(sch); err != nil {
			errs = append(errs, fmt.Errorf("refresh.schedule: %w", err))
		}
	}
	if tz := strings.TrimSpace(cfg.Refresh.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			errs = append(errs, fmt.Errorf("refresh.timezone: %w", err))
		}
	}
	if s := cfg.Storage; s != nil {
		switch {
		case storage.Disabled(s.Driver):
		case !storage.Known(s.Driver):
			errs = append(errs, fmt.Errorf("storage.driver: unknown driver %q (want one of %s)", s.Driver, strings.Join(storage.Drivers(), ", ")))
		case strings.TrimSpace(s.Path) == "":
			errs = append(errs, errors.New("storage.path is required"))
		}
	}
	if cfg.Diag.Enabled {
		if !IsLoopbackAddr(cfg.DiagAddr()) && strings.TrimSpace(cfg.Diag.Token) == "" {
			errs = append(errs, errors.New("diag: token is required for non-loopback addr"))
		}
	}
	return errors.Join(errs...)
}

// IsLoopbackAddr reports whether a host:port listens on loopback only.
func IsLoopbackAddr(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// resolveRelative makes relative file paths relative to the config file.
func (c *Config) resolveRelative(base string) {
	abs := func(p string) string {
		p = strings.TrimSpace(p)
		if p == "" || filepath.IsAbs(p) || base == "" {
			return p
		}
		return filepath.Join(base, p)
	}
	c.Source.Path = abs(c.Source.Path)
	if c.Logging.File.Enabled {
		c.Logging.File.Path = abs(c.Logging.File.Path)
	}
	if c.Storage != nil {
		c.Storage.Path = abs(c.Storage.Path)
	}
}

// HiringConfig maps the source section onto the loader config.
func (c *Config) HiringConfig() hiring.Config {
	cols := c.Source.Columns
	return hiring.Config{
		Path:  strings.TrimSpace(c.Source.Path),
		Sheet: strings.TrimSpace(c.Source.Sheet),
		Columns: hiring.Columns{
			Recruiter: cols.Recruiter,
			Date:      cols.Date,
			Status:    cols.Status,
			TechStack: cols.TechStack,
			Week:      cols.Week,
			Month:     cols.Month,
		}.WithDefaults(),
	}
}

func (c *Config) ServerAddr() string {
	if a := strings.TrimSpace(c.Server.Addr); a != "" {
		return a
	}
	return DefaultServerAddr
}

func (c *Config) SendQueue() int {
	if c.Server.SendQueue > 0 {
		return c.Server.SendQueue
	}
	return DefaultSendQueue
}

func (c *Config) QueueSize() int {
	if c.Broadcast.QueueSize > 0 {
		return c.Broadcast.QueueSize
	}
	return DefaultQueueSize
}

func (c *Config) DiagAddr() string {
	if a := strings.TrimSpace(c.Diag.Addr); a != "" {
		return a
	}
	return DefaultDiagAddr
}
