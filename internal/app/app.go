package app

import (
	"context"
	"fmt"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"recruitpulse/internal/broadcast"
	"recruitpulse/internal/eventbus"
	"recruitpulse/internal/hiring"
	"recruitpulse/internal/observability/diag"
	"recruitpulse/internal/observability/metrics"
	"recruitpulse/internal/refresh"
	"recruitpulse/internal/storage"
	"recruitpulse/internal/transport/ws"
	"recruitpulse/internal/watch"
	logx "recruitpulse/pkg/logx"
)

type App struct {
	cfgPath string

	cfgm *ConfigManager
	sup  *Supervisor

	log     logx.Logger
	logs    *logx.Service
	bus     eventbus.Bus
	store   storage.Store
	metrics *metrics.Metrics

	loader  *hiring.Loader
	bcast   *broadcast.Service
	watcher *watch.Watcher
	server  *ws.Server
	refresh *refresh.Service
	diag    *diag.Service
}

func NewApp(cfgPath string) (*App, error) {
	cfgm := NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(cfg.LogxConfig())
	log = log.With(logx.String("comp", "app"))

	bus := eventbus.New()
	m := metrics.New()

	// Storage (optional)
	var store storage.Store
	if sc, enabled, err := mapStorageConfig(cfg); err != nil {
		return nil, err
	} else if enabled {
		st, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
		if err != nil {
			return nil, err
		}
		store = st
		log.Info("storage enabled", logx.String("driver", sc.Driver))
	}

	loader := hiring.NewLoader(cfg.HiringConfig(),
		log.With(logx.String("comp", "loader")),
		hiring.WithObserver(m.ObserveCompute),
	)

	timings, err := cfg.Timings()
	if err != nil {
		return nil, err
	}
	bcast := broadcast.New(broadcast.Config{
		QueueSize:         cfg.QueueSize(),
		Debounce:          timings.WatchDebounce,
		ComputeRatePerSec: cfg.Broadcast.ComputeRatePerSec,
	}, loader, log.With(logx.String("comp", "broadcast")),
		broadcast.WithBus(bus),
		broadcast.WithStore(store),
		broadcast.WithMetrics(m),
	)

	var w *watch.Watcher
	if cfg.WatchEnabled() {
		w = watch.ForSource(loader.Config().Path, bcast, log.With(logx.String("comp", "watch")),
			watch.WithObserver(m.ObserveWatchEvent),
		)
	}

	server := ws.New(ws.Config{
		Addr:              cfg.ServerAddr(),
		ReadHeaderTimeout: timings.ReadHeaderTimeout,
		SendQueue:         cfg.SendQueue(),
		AllowedOrigins:    cfg.Server.AllowedOrigins,
	}, bcast, loader, log.With(logx.String("comp", "http")), ws.WithAudit(store))

	ref, err := refresh.New(refresh.Config{
		Schedule: cfg.Refresh.Schedule,
		Timezone: cfg.Refresh.Timezone,
	}, bcast.Trigger, log.With(logx.String("comp", "refresh")))
	if err != nil {
		return nil, err
	}

	diagSvc := diag.New(mapDiagConfig(cfg), m.Handler(), log.With(logx.String("comp", "diag")))

	return &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		bus:     bus,
		store:   store,
		metrics: m,
		loader:  loader,
		bcast:   bcast,
		watcher: w,
		server:  server,
		refresh: ref,
		diag:    diagSvc,
	}, nil
}

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = NewSupervisor(ctx, WithLogger(a.log), WithCancelOnError(true))
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	runCtx := a.sup.Context()

	a.bcast.Start(runCtx)
	if a.watcher != nil {
		a.sup.Go("source.watch", a.watcher.Run)
	}
	a.server.Start(runCtx)
	if a.refresh != nil {
		if err := a.refresh.Start(runCtx); err != nil {
			return fmt.Errorf("refresh: %w", err)
		}
	}
	if a.diag.Enabled() {
		a.diag.Start(runCtx)
	}

	// Log events for observability/debug (components can also subscribe themselves).
	events, unsub := a.bus.Subscribe(128)
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time), logx.Any("data", e.Data))
			}
		}
	})

	// hot reload config fan-out
	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				a.applyConfig(lastApplied, newCfg)
				lastApplied = newCfg
			}
		}
	})
	a.sup.Go("config.watch", a.cfgm.Watch)

	if sent, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		a.log.Warn("sd_notify ready failed", logx.Err(err))
	} else if sent {
		a.log.Debug("sd_notify ready sent")
	}

	src := a.loader.Config()
	a.log.Info("app started",
		logx.String("source", src.Path),
		logx.String("sheet", src.Sheet),
		logx.Bool("watch", a.watcher != nil),
		logx.Bool("refresh", a.refresh != nil),
		logx.Bool("audit", a.store != nil),
	)
	return nil
}

// applyConfig applies the hot-reloadable sections and reports the rest.
func (a *App) applyConfig(prev, next *Config) {
	sections, attrs, restart := SummarizeConfigChange(prev, next)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}
	fields := append([]logx.Field{logx.Strings("changed", sections)}, attrs...)
	a.log.Debug("config change summary", fields...)

	a.logs.Apply(next.LogxConfig())

	if len(restart) > 0 {
		a.log.Warn("config sections changed; restart required for changes to take effect",
			logx.Strings("sections", restart))
	}
	a.log.Info("config reloaded", logx.Strings("changed", sections))
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	// Cancel the run context first so background loops start unwinding immediately.
	a.sup.Cancel()

	// Helper: run a shutdown step with an upper bound so one component can't stall the whole stop.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		stepCtx := ctx
		if max > 0 {
			// respect the caller's deadline; never extend it
			if dl, ok := ctx.Deadline(); ok && time.Until(dl) < max {
				max = time.Until(dl)
			}
			var cancel context.CancelFunc
			stepCtx, cancel = context.WithTimeout(ctx, max)
			defer cancel()
		}

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)",
				logx.String("name", name),
				logx.Duration("elapsed", time.Since(start)),
			)
		}
	}

	// Triggers first, then delivery, then persistence.
	step("refresh", 1*time.Second, func(c context.Context) error {
		if a.refresh != nil {
			a.refresh.Stop(c)
		}
		return nil
	})
	step("server", 2*time.Second, func(c context.Context) error { a.server.Stop(c); return nil })
	step("broadcast", 2*time.Second, func(c context.Context) error { a.bcast.Stop(c); return nil })
	step("diag", 1*time.Second, func(c context.Context) error { a.diag.Stop(c); return nil })
	step("storage", 1*time.Second, func(c context.Context) error {
		if a.store != nil {
			return a.store.Close()
		}
		return nil
	})
	// Finally, wait for supervised goroutines (watchers, config reload, event log).
	step("supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })

	a.log.Info("stopped")
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}
