package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logx "recruitpulse/pkg/logx"
)

type recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *recorder) SourceChanged(path string) {
	r.mu.Lock()
	r.paths = append(r.paths, path)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func TestIsSpreadsheet(t *testing.T) {
	t.Parallel()
	cases := map[string]bool{
		"a.xlsx":          true,
		"B.XLSX":          true,
		"legacy.xls":      true,
		"notes.txt":       false,
		"~$lock.xlsx.tmp": false,
		"noext":           false,
		"dir/x.Xls":       true,
	}
	for in, want := range cases {
		assert.Equal(t, want, IsSpreadsheet(in), in)
	}
}

func TestQualifies(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	sub := filepath.Join(dir, "folder.xlsx")
	require.NoError(t, os.Mkdir(sub, 0o755))

	w := New(dir, nil, logx.Nop())
	tests := []struct {
		name string
		ev   fsnotify.Event
		want bool
	}{
		{"write xlsx", fsnotify.Event{Name: filepath.Join(dir, "a.xlsx"), Op: fsnotify.Write}, true},
		{"create xls", fsnotify.Event{Name: filepath.Join(dir, "a.xls"), Op: fsnotify.Create}, true},
		{"remove", fsnotify.Event{Name: filepath.Join(dir, "a.xlsx"), Op: fsnotify.Remove}, false},
		{"chmod", fsnotify.Event{Name: filepath.Join(dir, "a.xlsx"), Op: fsnotify.Chmod}, false},
		{"other ext", fsnotify.Event{Name: filepath.Join(dir, "a.csv"), Op: fsnotify.Write}, false},
		{"directory", fsnotify.Event{Name: sub, Op: fsnotify.Write}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, w.qualifies(tt.ev), tt.name)
	}
}

func TestRunSignalsOnSpreadsheetWrite(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	rec := &recorder{}
	var seen sync.Map
	w := New(dir, rec, logx.Nop(), WithObserver(func(path string, accepted bool) {
		seen.Store(filepath.Base(path), accepted)
	}))
	assert.Equal(t, StateIdle, w.State())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return w.State() == StateWatching }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), 0o644))
	target := filepath.Join(dir, "hiring.xlsx")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))

	require.Eventually(t, func() bool { return len(rec.snapshot()) > 0 }, 2*time.Second, 10*time.Millisecond)
	for _, p := range rec.snapshot() {
		assert.Equal(t, "hiring.xlsx", filepath.Base(p))
	}
	require.Eventually(t, func() bool {
		v, ok := seen.Load("ignored.txt")
		return ok && v == false
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
	assert.Equal(t, StateIdle, w.State())
}

func TestWithFilterAndOps(t *testing.T) {
	t.Parallel()
	w := New("/tmp", SignalFunc(func(string) {}), logx.Nop(),
		WithFilter(func(p string) bool { return filepath.Base(p) == "config.yaml" }),
		WithOps(fsnotify.Write|fsnotify.Rename),
	)
	assert.True(t, w.qualifies(fsnotify.Event{Name: "/nonexistent/config.yaml", Op: fsnotify.Rename}))
	assert.False(t, w.qualifies(fsnotify.Event{Name: "/nonexistent/config.yaml", Op: fsnotify.Create}))
	assert.False(t, w.qualifies(fsnotify.Event{Name: "/nonexistent/a.xlsx", Op: fsnotify.Write}))
}
