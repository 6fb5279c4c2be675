package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"recruitpulse/internal/runtime/supervisor"
	logx "recruitpulse/pkg/logx"
)

// Signal receives qualifying change notifications.
type Signal interface {
	SourceChanged(path string)
}

// SignalFunc adapts a plain function to Signal.
type SignalFunc func(path string)

func (f SignalFunc) SourceChanged(path string) { f(path) }

// State is the lifecycle state of a Watcher.
type State int32

const (
	StateIdle State = iota
	StateWatching
	StateNotifying
)

func (s State) String() string {
	switch s {
	case StateWatching:
		return "watching"
	case StateNotifying:
		return "notifying"
	default:
		return "idle"
	}
}

// Watcher observes one directory (non-recursive) and forwards qualifying
// events to a Signal. Delivery never blocks the event loop on anything but
// the Signal itself, which is expected to enqueue and return.
type Watcher struct {
	dir    string
	accept func(path string) bool
	ops    fsnotify.Op
	sig    Signal
	log    logx.Logger

	onEvent func(path string, accepted bool)

	state atomic.Int32
}

type Option func(*Watcher)

// WithFilter replaces the path filter. The default accepts spreadsheet files.
func WithFilter(fn func(path string) bool) Option {
	return func(w *Watcher) {
		if fn != nil {
			w.accept = fn
		}
	}
}

// WithOps sets which fsnotify operations qualify. Default: Write|Create.
func WithOps(ops fsnotify.Op) Option {
	return func(w *Watcher) {
		if ops != 0 {
			w.ops = ops
		}
	}
}

// WithObserver is called for every raw event after filtering (metrics hook).
func WithObserver(fn func(path string, accepted bool)) Option {
	return func(w *Watcher) { w.onEvent = fn }
}

// New returns a watcher for dir. Run starts it.
func New(dir string, sig Signal, log logx.Logger, opts ...Option) *Watcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	w := &Watcher{
		dir:    dir,
		accept: IsSpreadsheet,
		ops:    fsnotify.Write | fsnotify.Create,
		sig:    sig,
		log:    log,
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// ForSource watches the directory containing the spreadsheet at path.
//
// Any spreadsheet in that directory qualifies, not only the configured file.
func ForSource(path string, sig Signal, log logx.Logger, opts ...Option) *Watcher {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return New(filepath.Dir(abs), sig, log, opts...)
}

// IsSpreadsheet reports whether path has a .xlsx or .xls extension.
func IsSpreadsheet(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xls":
		return true
	}
	return false
}

func (w *Watcher) Dir() string  { return w.dir }
func (w *Watcher) State() State { return State(w.state.Load()) }

// Run blocks until ctx is canceled. When fsnotify breaks (closed channels,
// failed Add) the underlying watcher is recreated with jittered backoff.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.state.Store(int32(StateIdle))

	var bo supervisor.Backoff
	sleep := func(reason string, err error) bool {
		wait := bo.Next()
		w.log.Warn(reason, logx.String("dir", w.dir), logx.Duration("backoff", wait), logx.Err(err))
		select {
		case <-ctx.Done():
			return false
		case <-time.After(wait):
			return true
		}
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		fw, err := fsnotify.NewWatcher()
		if err != nil {
			if !sleep("watch init failed", err) {
				return nil
			}
			continue
		}
		if err := fw.Add(w.dir); err != nil {
			_ = fw.Close()
			if !sleep("watch add failed", err) {
				return nil
			}
			continue
		}

		bo.Reset()
		w.state.Store(int32(StateWatching))
		w.log.Debug("watcher started", logx.String("dir", w.dir))

		broken := w.loop(ctx, fw)
		_ = fw.Close()
		w.state.Store(int32(StateIdle))
		if !broken || ctx.Err() != nil {
			return nil
		}
		if !sleep("watcher stopped; restarting", nil) {
			return nil
		}
	}
}

// loop returns true when the fsnotify watcher broke and must be recreated.
func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-fw.Events:
			if !ok {
				return true
			}
			w.handle(ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return true
			}
			if err == nil {
				continue
			}
			w.log.Warn("watch error", logx.String("dir", w.dir), logx.Err(err))
			if strings.Contains(strings.ToLower(err.Error()), "closed") {
				return true
			}
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	ok := w.qualifies(ev)
	if w.onEvent != nil {
		w.onEvent(ev.Name, ok)
	}
	if !ok {
		return
	}
	w.log.Debug("change detected", logx.String("path", ev.Name), logx.String("op", ev.Op.String()))
	w.state.Store(int32(StateNotifying))
	if w.sig != nil {
		w.sig.SourceChanged(ev.Name)
	}
	w.state.Store(int32(StateWatching))
}

func (w *Watcher) qualifies(ev fsnotify.Event) bool {
	if ev.Op&w.ops == 0 {
		return false
	}
	if !w.accept(ev.Name) {
		return false
	}
	// A vanished path is treated as a file.
	if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
		return false
	}
	return true
}
