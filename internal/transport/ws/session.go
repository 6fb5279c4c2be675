package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"recruitpulse/internal/hiring"
	logx "recruitpulse/pkg/logx"
)

// Inbound event names.
const EventManualRefresh = "manual_refresh"

var (
	ErrSessionClosed = errors.New("session closed")
	ErrQueueFull     = errors.New("session send queue full")
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxInboundSize = 4 << 10
)

// Frame is the envelope for every message in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outFrame struct {
	Event string         `json:"event"`
	Data  hiring.Payload `json:"data"`
}

// Session is one WebSocket viewer. gorilla/websocket allows a single
// concurrent writer, so every outbound frame goes through out and writePump.
type Session struct {
	id     string
	remote string
	conn   *websocket.Conn
	log    logx.Logger

	out       chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newSession(conn *websocket.Conn, remote string, queue int, log logx.Logger) *Session {
	if queue <= 0 {
		queue = 16
	}
	id := uuid.NewString()
	return &Session{
		id:     id,
		remote: remote,
		conn:   conn,
		log:    log.With(logx.String("session", id)),
		out:    make(chan []byte, queue),
		done:   make(chan struct{}),
	}
}

func (s *Session) ID() string { return s.id }

// Send enqueues a frame. It never blocks: a full queue drops the frame.
func (s *Session) Send(event string, p hiring.Payload) error {
	b, err := json.Marshal(outFrame{Event: event, Data: p})
	if err != nil {
		return err
	}
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}
	select {
	case s.out <- b:
		return nil
	case <-s.done:
		return ErrSessionClosed
	default:
		s.log.Warn("send queue full; dropping frame", logx.String("event", event), logx.Int("queue_cap", cap(s.out)))
		return ErrQueueFull
	}
}

// Close stops the writer and closes the connection. Safe to call twice.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.conn != nil {
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
				time.Now().Add(time.Second))
			_ = s.conn.Close()
		}
	})
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case msg := <-s.out:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				s.log.Debug("write failed", logx.Err(err))
				s.Close()
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.Close()
				return
			}
		}
	}
}

// readPump blocks until the peer goes away. onRefresh runs for each
// manual_refresh frame; other events are ignored.
func (s *Session) readPump(onRefresh func()) {
	s.conn.SetReadLimit(maxInboundSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("read failed", logx.Err(err))
			}
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))

		var f Frame
		if err := json.Unmarshal(msg, &f); err != nil {
			s.log.Debug("malformed frame ignored", logx.Err(err))
			continue
		}
		switch f.Event {
		case EventManualRefresh:
			onRefresh()
		default:
			s.log.Debug("unknown event ignored", logx.String("event", f.Event))
		}
	}
}
