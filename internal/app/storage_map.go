package app

import (
	"strings"

	"recruitpulse/internal/config"
	"recruitpulse/internal/storage"
)

func mapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	if cfg == nil || cfg.Storage == nil {
		return storage.Config{}, false, nil
	}
	sc := cfg.Storage
	if storage.Disabled(sc.Driver) {
		return storage.Config{}, false, nil
	}
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	t, err := cfg.Timings()
	if err != nil {
		return storage.Config{}, false, err
	}
	return storage.Config{Driver: driver, Path: strings.TrimSpace(sc.Path), BusyTimeout: t.StorageBusyTimeout}, true, nil
}

func mapDiagConfig(cfg *config.Config) diagConfig {
	return diagConfig{
		Enabled: cfg.Diag.Enabled,
		Addr:    cfg.DiagAddr(),
		Prefix:  cfg.Diag.Prefix,
		Token:   cfg.Diag.Token,
	}
}
