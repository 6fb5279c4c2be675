package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"recruitpulse/internal/broadcast"
	rtsup "recruitpulse/internal/runtime/supervisor"
	"recruitpulse/internal/storage"
	logx "recruitpulse/pkg/logx"
)

// Broadcaster is the subset of broadcast.Service the server drives.
type Broadcaster interface {
	Connect(broadcast.Session) error
	Disconnect(broadcast.Session) error
	Refresh(broadcast.Session) error
	Sessions() int
}

type Config struct {
	Addr              string
	ReadHeaderTimeout time.Duration
	SendQueue         int
	// AllowedOrigins empty or containing "*" accepts any origin.
	AllowedOrigins []string
}

type Server struct {
	mu  sync.Mutex
	cfg Config
	log logx.Logger

	b     Broadcaster
	src   broadcast.Source
	audit storage.Store

	upgrader websocket.Upgrader

	srv      *http.Server
	sup      *rtsup.Supervisor
	sessions map[*Session]struct{}
}

type Option func(*Server)

// WithAudit exposes GET /api/audit backed by st.
func WithAudit(st storage.Store) Option { return func(s *Server) { s.audit = st } }

func New(cfg Config, b Broadcaster, src broadcast.Source, log logx.Logger, opts ...Option) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Server{
		cfg:      cfg,
		log:      log,
		b:        b,
		src:      src,
		sessions: map[*Session]struct{}{},
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 16 << 10,
		CheckOrigin:     s.checkOrigin,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler returns the HTTP routes. Tests mount it on httptest servers.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("GET /api/snapshot", s.handleSnapshot)
	mux.HandleFunc("GET /api/audit", s.handleAudit)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

// Start runs the listener under a restart loop. It is idempotent.
func (s *Server) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sup != nil {
		return
	}
	s.sup = rtsup.New(ctx,
		rtsup.WithLogger(s.log),
		rtsup.WithCancelOnError(false),
	)
	s.sup.GoRestart("http.serve", s.serveOnce, 500*time.Millisecond, 10*time.Second)
}

// Stop closes every session and shuts the listener down.
func (s *Server) Stop(ctx context.Context) {
	s.mu.Lock()
	sup := s.sup
	srv := s.srv
	s.sup = nil
	s.srv = nil
	sessions := make([]*Session, 0, len(s.sessions))
	for sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	// Hijacked connections are not covered by Shutdown.
	for _, sess := range sessions {
		sess.Close()
	}
	if srv != nil {
		_ = srv.Shutdown(ctx)
	}
	if sup != nil {
		_ = sup.Stop(ctx)
	}
	s.log.Info("server stopped", logx.Int("sessions_closed", len(sessions)))
}

func (s *Server) serveOnce(ctx context.Context) error {
	addr := strings.TrimSpace(s.cfg.Addr)
	if addr == "" {
		addr = "0.0.0.0:8000"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		s.log.Error("listen failed", logx.String("addr", addr), logx.Err(err))
		if ctx.Err() != nil {
			return context.Canceled
		}
		return err
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	if srv.ReadHeaderTimeout <= 0 {
		srv.ReadHeaderTimeout = 10 * time.Second
	}
	s.mu.Lock()
	s.srv = srv
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		cctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = srv.Shutdown(cctx)
		cancel()
	}()

	s.log.Info("server started", logx.String("addr", ln.Addr().String()))
	err = srv.Serve(ln)
	if ctx.Err() != nil {
		return context.Canceled
	}
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return errors.New("server exited unexpectedly")
	}
	return err
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	for _, o := range s.cfg.AllowedOrigins {
		o = strings.TrimSpace(o)
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	s.log.Debug("origin rejected", logx.String("origin", origin))
	return false
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return
	}
	sess := newSession(conn, r.RemoteAddr, s.cfg.SendQueue, s.log)
	s.track(sess, true)
	defer s.track(sess, false)
	defer sess.Close()

	go sess.writePump()
	sess.log.Debug("viewer connected", logx.String("remote", sess.remote))

	if err := s.b.Connect(sess); err != nil {
		sess.log.Warn("connect rejected", logx.Err(err))
		return
	}
	sess.readPump(func() {
		if err := s.b.Refresh(sess); err != nil {
			sess.log.Warn("refresh rejected", logx.Err(err))
		}
	})
	if err := s.b.Disconnect(sess); err != nil && !errors.Is(err, broadcast.ErrStopped) {
		sess.log.Warn("disconnect failed", logx.Err(err))
	}
	sess.log.Debug("viewer disconnected")
}

func (s *Server) track(sess *Session, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.sessions[sess] = struct{}{}
		return
	}
	delete(s.sessions, sess)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.src.ComputeSnapshot())
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		http.Error(w, "audit trail disabled", http.StatusNotFound)
		return
	}
	limit := storage.DefaultAuditLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 1000 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	entries, err := s.audit.RecentAudit(r.Context(), limit)
	if err != nil {
		s.log.Warn("audit read failed", logx.Err(err))
		http.Error(w, "audit read failed", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []storage.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": s.b.Sessions()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
