package storage

import (
	"fmt"
	"slices"
	"strings"

	logx "recruitpulse/pkg/logx"
)

type opener func(Config, logx.Logger) (Store, error)

var drivers = map[string]opener{
	"file":    openFile,
	"sqlite":  openSQLite,
	"sqlite3": openSQLite,
}

// Disabled reports whether driver turns the audit trail off.
func Disabled(driver string) bool {
	d := strings.ToLower(strings.TrimSpace(driver))
	return d == "" || d == "none"
}

// Known reports whether driver names a backend Open can build.
func Known(driver string) bool {
	_, ok := drivers[strings.ToLower(strings.TrimSpace(driver))]
	return ok
}

// Drivers lists the accepted driver names, sorted.
func Drivers() []string {
	out := make([]string, 0, len(drivers))
	for k := range drivers {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Open builds the configured store, or returns (nil, nil) when disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if Disabled(cfg.Driver) {
		return nil, nil
	}
	open, ok := drivers[strings.ToLower(strings.TrimSpace(cfg.Driver))]
	if !ok {
		return nil, fmt.Errorf("unknown storage driver %q (want one of %s)", cfg.Driver, strings.Join(Drivers(), ", "))
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return open(cfg, log)
}
