package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DefaultReadHeaderTimeout  = 10 * time.Second
	DefaultStorageBusyTimeout = time.Second
)

// Timings holds the parsed duration fields of a Config with defaults applied.
type Timings struct {
	ReadHeaderTimeout time.Duration
	// WatchDebounce 0 broadcasts once per qualifying filesystem event.
	WatchDebounce      time.Duration
	StorageBusyTimeout time.Duration
}

// Timings parses every duration string in c. All invalid fields are reported.
func (c *Config) Timings() (Timings, error) {
	var (
		t    Timings
		errs []error
	)
	parse := func(field, raw string, def time.Duration, dst *time.Duration) {
		d, err := parseDuration(field, raw)
		if err != nil {
			errs = append(errs, err)
			return
		}
		if d == 0 {
			d = def
		}
		*dst = d
	}
	parse("server.read_header_timeout", c.Server.ReadHeaderTimeout, DefaultReadHeaderTimeout, &t.ReadHeaderTimeout)
	parse("watch.debounce", c.Watch.Debounce, 0, &t.WatchDebounce)
	busy := ""
	if c.Storage != nil {
		busy = c.Storage.BusyTimeout
	}
	parse("storage.busy_timeout", busy, DefaultStorageBusyTimeout, &t.StorageBusyTimeout)
	return t, errors.Join(errs...)
}

// parseDuration accepts "" (zero) or a non-negative Go duration.
func parseDuration(field, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", field, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", field)
	}
	return d, nil
}
