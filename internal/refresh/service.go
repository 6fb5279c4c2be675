// Package refresh triggers broadcasts on a schedule, for sources whose
// filesystem does not deliver change events (network shares, sync clients).
package refresh

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	logx "recruitpulse/pkg/logx"
)

// Trigger is called on every tick. broadcast.Service.Trigger satisfies it.
type Trigger func() error

type Config struct {
	Schedule string
	Timezone string
}

type Service struct {
	mu sync.Mutex

	spec ParsedSpec
	loc  *time.Location
	fire Trigger
	log  logx.Logger

	c *cron.Cron
}

// New validates cfg. An empty schedule returns (nil, nil): refresh disabled.
func New(cfg Config, fire Trigger, log logx.Logger) (*Service, error) {
	if strings.TrimSpace(cfg.Schedule) == "" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	spec, err := ParseSchedule(cfg.Schedule)
	if err != nil {
		return nil, err
	}
	loc := time.Local
	if tz := strings.TrimSpace(cfg.Timezone); tz != "" {
		if loc, err = time.LoadLocation(tz); err != nil {
			return nil, err
		}
	}
	return &Service{spec: spec, loc: loc, fire: fire, log: log}, nil
}

func (s *Service) Spec() ParsedSpec { return s.spec }

// Start begins ticking. It is idempotent.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return nil
	}
	sched, err := s.spec.Schedule()
	if err != nil {
		return err
	}
	// A slow broadcast must not pile up ticks behind it.
	s.c = cron.New(
		cron.WithLocation(s.loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	s.c.Schedule(sched, cron.FuncJob(func() {
		if ctx.Err() != nil {
			return
		}
		s.tick()
	}))
	s.c.Start()
	s.log.Info("scheduled refresh started",
		logx.String("schedule", s.spec.String()),
		logx.String("tz", s.loc.String()),
		logx.Time("next", sched.Next(time.Now().In(s.loc))),
	)
	return nil
}

func (s *Service) tick() {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic in scheduled refresh", logx.Any("panic", r))
		}
	}()
	if err := s.fire(); err != nil {
		s.log.Warn("scheduled refresh rejected", logx.Err(err))
		return
	}
	s.log.Debug("scheduled refresh triggered")
}

// Stop halts ticking and waits for a running tick, bounded by ctx.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
	s.log.Info("scheduled refresh stopped")
}
