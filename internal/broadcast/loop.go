package broadcast

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"recruitpulse/internal/eventbus"
	"recruitpulse/internal/hiring"
	"recruitpulse/internal/storage"
	logx "recruitpulse/pkg/logx"
)

const auditTimeout = 2 * time.Second

func (s *Service) loop(ctx context.Context, stopCh <-chan struct{}) error {
	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	arm := func() {
		if timer == nil {
			timer = time.NewTimer(s.cfg.Debounce)
		} else {
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(s.cfg.Debounce)
		}
		timerC = timer.C
	}
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	// a burst coalesced before a restart is still owed to viewers
	if s.pendingChange != "" {
		s.log.Debug("rearming coalesced change", logx.String("path", s.pendingChange))
		arm()
	}

	for {
		// fast-exit so stop wins over queued work
		select {
		case <-ctx.Done():
			return nil
		case <-stopCh:
			return nil
		default:
		}

		select {
		case <-ctx.Done():
			return nil
		case <-stopCh:
			return nil
		case <-timerC:
			timerC = nil
			path := s.pendingChange
			s.pendingChange = ""
			s.deliver(ctx, TriggerFileChange, "", s.all())
			s.log.Debug("coalesced change delivered", logx.String("path", path))
		case c := <-s.queue:
			switch c.kind {
			case cmdConnect:
				s.add(c.session)
				s.deliver(ctx, TriggerConnect, c.session.ID(), []Session{c.session})
			case cmdDisconnect:
				s.remove(c.session)
			case cmdRefresh:
				id := ""
				if c.session != nil {
					id = c.session.ID()
				}
				s.deliver(ctx, TriggerRefresh, id, s.all())
			case cmdSchedule:
				s.deliver(ctx, TriggerSchedule, "", s.all())
			case cmdSourceChanged:
				s.bus.Publish(eventbus.Event{Type: eventbus.TypeSourceChanged, Data: map[string]any{"path": c.path}})
				if s.cfg.Debounce <= 0 {
					s.deliver(ctx, TriggerFileChange, "", s.all())
					continue
				}
				// trailing edge: the last signal in a burst wins
				s.pendingChange = c.path
				arm()
			}
		}
	}
}

func (s *Service) add(sess Session) {
	if sess == nil {
		return
	}
	id := sess.ID()
	if _, ok := s.sessions[id]; !ok {
		s.order = append(s.order, id)
	}
	s.sessions[id] = sess
	n := len(s.sessions)
	s.sessionCount.Store(int64(n))
	s.metrics.SetSessions(n)
	s.bus.Publish(eventbus.Event{Type: eventbus.TypeSessionConnected, Data: map[string]any{"session": id, "sessions": n}})
	s.log.Debug("session connected", logx.String("session", id), logx.Int("sessions", n))
}

func (s *Service) remove(sess Session) {
	if sess == nil {
		return
	}
	id := sess.ID()
	if _, ok := s.sessions[id]; !ok {
		return
	}
	delete(s.sessions, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	n := len(s.sessions)
	s.sessionCount.Store(int64(n))
	s.metrics.SetSessions(n)
	s.bus.Publish(eventbus.Event{Type: eventbus.TypeSessionDisconnected, Data: map[string]any{"session": id, "sessions": n}})
	s.log.Debug("session disconnected", logx.String("session", id), logx.Int("sessions", n))
}

// all returns the connected sessions in connection order.
func (s *Service) all() []Session {
	out := make([]Session, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.sessions[id])
	}
	return out
}

// deliver computes one payload and sends that same payload to every recipient.
func (s *Service) deliver(ctx context.Context, trig Trigger, sessionID string, recipients []Session) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return
		}
	}

	start := time.Now()
	p := s.src.ComputeSnapshot()
	s.bus.Publish(eventbus.Event{Type: eventbus.TypeSnapshotComputed, Data: map[string]any{
		"trigger": string(trig),
		"error":   p.Error,
		"took":    time.Since(start),
	}})

	res := Result{Trigger: trig, SessionID: sessionID, Recipients: len(recipients), Error: p.Error}
	for _, sess := range recipients {
		if err := s.sendOne(sess, p); err != nil {
			res.Failed++
			s.log.Warn("send failed", logx.String("session", sess.ID()), logx.String("trigger", string(trig)), logx.Err(err))
			continue
		}
		res.Delivered++
	}
	res.Took = time.Since(start)

	fields := []logx.Field{
		logx.String("trigger", string(trig)),
		logx.Int("recipients", res.Recipients),
		logx.Int("failed", res.Failed),
		logx.Duration("took", res.Took),
	}
	if res.Error != "" {
		s.log.Info("error payload broadcast", append(fields, logx.String("error", res.Error))...)
	} else {
		s.log.Debug("payload broadcast", fields...)
	}

	s.metrics.ObserveBroadcast(string(trig), res.Delivered, res.Failed)
	s.bus.Publish(eventbus.Event{Type: eventbus.TypeBroadcastSent, Data: map[string]any{
		"trigger":    string(trig),
		"recipients": res.Recipients,
		"delivered":  res.Delivered,
		"failed":     res.Failed,
	}})
	s.audit(ctx, res)
	if s.onResult != nil {
		s.onResult(res)
	}
}

func (s *Service) sendOne(sess Session, p hiring.Payload) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic in session send", logx.String("session", sess.ID()), logx.Any("panic", r), logx.Stack(string(debug.Stack())))
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return sess.Send(EventDataUpdated, p)
}

func (s *Service) audit(ctx context.Context, res Result) {
	if s.store == nil {
		return
	}
	actx, cancel := context.WithTimeout(ctx, auditTimeout)
	defer cancel()
	err := s.store.AppendAudit(actx, storage.AuditEntry{
		At:         time.Now(),
		Trigger:    string(res.Trigger),
		SessionID:  res.SessionID,
		Recipients: res.Recipients,
		Delivered:  res.Delivered,
		Failed:     res.Failed,
		Error:      res.Error,
		TookMS:     res.Took.Milliseconds(),
	})
	if err != nil {
		s.log.Debug("audit append failed", logx.Err(err))
	}
}
