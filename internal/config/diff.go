package config

import (
	"reflect"
	"sort"
	"strings"

	logx "recruitpulse/pkg/logx"
)

// Sections that take effect without a restart.
var hotSections = map[string]bool{"logging": true}

// SummarizeConfigChange returns the list of changed sections, safe
// structured attrs for logging (never includes secrets like tokens), and
// the subset of changed sections that need a process restart.
func SummarizeConfigChange(oldCfg, newCfg *Config) (changed []string, attrs []logx.Field, restart []string) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed = make([]string, 0, 8)
	attrs = make([]logx.Field, 0, 16)

	if !reflect.DeepEqual(oldCfg.Source, newCfg.Source) {
		changed = append(changed, "source")
		attrs = append(attrs,
			logx.String("source.path", newCfg.Source.Path),
			logx.String("source.sheet", newCfg.Source.Sheet),
		)
	}

	if !reflect.DeepEqual(oldCfg.Server, newCfg.Server) {
		changed = append(changed, "server")
		attrs = append(attrs,
			logx.String("server.addr", newCfg.ServerAddr()),
			logx.Int("server.send_queue", newCfg.SendQueue()),
			logx.Int("server.origins", len(newCfg.Server.AllowedOrigins)),
		)
	}

	if oldCfg.WatchEnabled() != newCfg.WatchEnabled() ||
		strings.TrimSpace(oldCfg.Watch.Debounce) != strings.TrimSpace(newCfg.Watch.Debounce) {
		changed = append(changed, "watch")
		attrs = append(attrs,
			logx.Bool("watch.enabled", newCfg.WatchEnabled()),
			logx.String("watch.debounce", strings.TrimSpace(newCfg.Watch.Debounce)),
		)
	}

	if oldCfg.Broadcast != newCfg.Broadcast {
		changed = append(changed, "broadcast")
		attrs = append(attrs,
			logx.Any("broadcast.compute_rate_per_sec", newCfg.Broadcast.ComputeRatePerSec),
			logx.Int("broadcast.queue_size", newCfg.QueueSize()),
		)
	}

	if strings.TrimSpace(oldCfg.Refresh.Schedule) != strings.TrimSpace(newCfg.Refresh.Schedule) ||
		strings.TrimSpace(oldCfg.Refresh.Timezone) != strings.TrimSpace(newCfg.Refresh.Timezone) {
		changed = append(changed, "refresh")
		attrs = append(attrs,
			logx.String("refresh.schedule", strings.TrimSpace(newCfg.Refresh.Schedule)),
			logx.String("refresh.timezone", strings.TrimSpace(newCfg.Refresh.Timezone)),
		)
	}

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logx.level", newCfg.Logging.Level),
			logx.Bool("logx.console", newCfg.Logging.Console),
			logx.Bool("logx.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	// Nil means disabled.
	var oDriver, nDriver, oBusy, nBusy, oPath, nPath string
	if s := oldCfg.Storage; s != nil {
		oDriver, oBusy, oPath = strings.TrimSpace(s.Driver), strings.TrimSpace(s.BusyTimeout), strings.TrimSpace(s.Path)
	}
	if s := newCfg.Storage; s != nil {
		nDriver, nBusy, nPath = strings.TrimSpace(s.Driver), strings.TrimSpace(s.BusyTimeout), strings.TrimSpace(s.Path)
	}
	if oDriver != nDriver || oBusy != nBusy || oPath != nPath {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", nDriver),
			logx.Bool("storage.path_set", nPath != ""),
			logx.String("storage.busy_timeout", nBusy),
		)
	}

	// Diag (never log token)
	if oldCfg.Diag.Enabled != newCfg.Diag.Enabled ||
		strings.TrimSpace(oldCfg.Diag.Addr) != strings.TrimSpace(newCfg.Diag.Addr) ||
		strings.TrimSpace(oldCfg.Diag.Prefix) != strings.TrimSpace(newCfg.Diag.Prefix) ||
		oldCfg.Diag.Token != newCfg.Diag.Token {
		changed = append(changed, "diag")
		attrs = append(attrs,
			logx.Bool("diag.enabled", newCfg.Diag.Enabled),
			logx.String("diag.addr", newCfg.DiagAddr()),
			logx.Bool("diag.token_set", strings.TrimSpace(newCfg.Diag.Token) != ""),
		)
	}

	sort.Strings(changed)
	for _, s := range changed {
		if !hotSections[s] {
			restart = append(restart, s)
		}
	}
	return changed, attrs, restart
}

// LogxConfig converts the logging section for logx.
func (c *Config) LogxConfig() logx.Config {
	return logx.Config{
		Level:   c.Logging.Level,
		Console: c.Logging.Console,
		File: logx.FileConfig{
			Enabled: c.Logging.File.Enabled,
			Path:    c.Logging.File.Path,
		},
	}
}
