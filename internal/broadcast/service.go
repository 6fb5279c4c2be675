package broadcast

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"recruitpulse/internal/eventbus"
	"recruitpulse/internal/observability/metrics"
	rtsup "recruitpulse/internal/runtime/supervisor"
	"recruitpulse/internal/storage"
	logx "recruitpulse/pkg/logx"
)

// Service is the broadcaster. Its loop goroutine owns the session set and
// runs every computation; the public methods only enqueue commands, so
// they are safe to call from any goroutine (watcher, HTTP handlers, cron).
type Service struct {
	mu sync.Mutex

	cfg     Config
	src     Source
	log     logx.Logger
	bus     eventbus.Bus
	store   storage.Store
	metrics *metrics.Metrics
	limiter *rate.Limiter

	// keep queue across restarts (commands remain pending)
	queue  chan command
	stopCh chan struct{}
	sup    *rtsup.Supervisor

	// loop-owned; kept on the Service so a restarted loop picks them up
	sessions map[string]Session
	order    []string
	// pendingChange is the path of a coalesced change not yet delivered
	pendingChange string

	sessionCount atomic.Int64
	onResult     func(Result)
}

type Option func(*Service)

func WithBus(bus eventbus.Bus) Option { return func(s *Service) { s.bus = bus } }

// WithStore records one audit entry per delivered trigger.
func WithStore(st storage.Store) Option { return func(s *Service) { s.store = st } }

func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }

// WithResultHook is called on the loop goroutine after every delivery.
func WithResultHook(fn func(Result)) Option { return func(s *Service) { s.onResult = fn } }

func New(cfg Config, src Source, log logx.Logger, opts ...Option) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Debounce < 0 {
		cfg.Debounce = 0
	}
	s := &Service{
		cfg:      cfg,
		src:      src,
		log:      log,
		bus:      eventbus.Nop(),
		queue:    make(chan command, cfg.QueueSize),
		sessions: map[string]Session{},
	}
	if cfg.ComputeRatePerSec > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.ComputeRatePerSec), 1)
	}
	for _, o := range opts {
		o(s)
	}
	if s.bus == nil {
		s.bus = eventbus.Nop()
	}
	return s
}

// Start launches the loop. It is idempotent.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopCh != nil {
		return
	}
	s.stopCh = make(chan struct{})
	s.sup = rtsup.New(ctx,
		rtsup.WithLogger(s.log),
		// a failing loop should not take down the whole app
		rtsup.WithCancelOnError(false),
	)
	stopCh := s.stopCh
	s.sup.GoRestart("broadcast.loop", func(c context.Context) error {
		return s.loop(c, stopCh)
	}, 100*time.Millisecond, 5*time.Second)

	s.log.Info("service started",
		logx.Int("queue", cap(s.queue)),
		logx.Duration("debounce", s.cfg.Debounce),
		logx.Any("compute_rps", s.cfg.ComputeRatePerSec),
	)
}

// Stop ends the loop and waits for it (bounded by ctx). Sessions are
// forgotten; closing their transports is the caller's job.
func (s *Service) Stop(ctx context.Context) {
	start := time.Now()
	s.mu.Lock()
	if s.stopCh == nil {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	s.stopCh = nil
	sup := s.sup
	s.sup = nil
	s.mu.Unlock()

	if err := sup.Stop(ctx); err != nil {
		s.log.Warn("service stop incomplete", logx.Err(err))
		return
	}
	s.log.Info("service stopped", logx.Duration("took", time.Since(start)))
}

// Sessions returns the number of connected sessions.
func (s *Service) Sessions() int { return int(s.sessionCount.Load()) }

// Connect registers sess and sends it a fresh payload.
func (s *Service) Connect(sess Session) error {
	return s.enqueue(command{kind: cmdConnect, session: sess})
}

// Disconnect forgets sess. Nothing is broadcast.
func (s *Service) Disconnect(sess Session) error {
	return s.enqueue(command{kind: cmdDisconnect, session: sess})
}

// Refresh computes once and sends to every connected session, not just sess.
func (s *Service) Refresh(sess Session) error {
	return s.enqueue(command{kind: cmdRefresh, session: sess})
}

// Trigger broadcasts to every session on behalf of a scheduler.
func (s *Service) Trigger() error {
	return s.enqueue(command{kind: cmdSchedule})
}

// SourceChanged is the watcher hand-off. It only enqueues.
func (s *Service) SourceChanged(path string) {
	if err := s.enqueue(command{kind: cmdSourceChanged, path: path}); err != nil {
		s.log.Debug("change signal ignored", logx.String("path", path), logx.Err(err))
	}
}

func (s *Service) enqueue(c command) error {
	s.mu.Lock()
	stop := s.stopCh
	s.mu.Unlock()
	if stop == nil {
		return ErrStopped
	}
	select {
	case s.queue <- c:
		return nil
	case <-stop:
		return ErrStopped
	}
}
