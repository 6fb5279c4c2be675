package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logx "recruitpulse/pkg/logx"
)

const sampleYAML = `
source:
  path: data/hiring.xlsx
  columns:
    recruiter: Owner
server:
  addr: 127.0.0.1:9000
  allowed_origins: ["http://localhost:3000"]
watch:
  debounce: 500ms
broadcast:
  compute_rate_per_sec: 2
refresh:
  schedule: "*/15 * * * *"
  timezone: UTC
logging:
  level: debug
  console: true
  file:
    enabled: false
    path: ""
storage:
  driver: sqlite
  path: data/audit.db
`

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestParseYAML(t *testing.T) {
	t.Parallel()
	p := writeConfig(t, "config.yaml", sampleYAML)
	cfg, err := NewConfigManager(p).Parse()
	require.NoError(t, err)

	dir := filepath.Dir(p)
	assert.Equal(t, filepath.Join(dir, "data/hiring.xlsx"), cfg.Source.Path)
	assert.Equal(t, filepath.Join(dir, "data/audit.db"), cfg.Storage.Path)
	assert.Equal(t, "127.0.0.1:9000", cfg.ServerAddr())
	assert.True(t, cfg.WatchEnabled())
	assert.Equal(t, 2.0, cfg.Broadcast.ComputeRatePerSec)
	assert.Equal(t, DefaultSendQueue, cfg.SendQueue())
	assert.Equal(t, DefaultQueueSize, cfg.QueueSize())

	hc := cfg.HiringConfig()
	assert.Equal(t, "Owner", hc.Columns.Recruiter)
	assert.Equal(t, "Date", hc.Columns.Date)
}

func TestParseJSONStrict(t *testing.T) {
	t.Parallel()
	_, err := NewConfigManager(writeConfig(t, "c.json", `{"source":{"path":"x.xlsx"},"bogus":1}`)).Parse()
	require.Error(t, err)

	_, err = NewConfigManager(writeConfig(t, "c.json", `{"source":{"path":"x.xlsx"}}{}`)).Parse()
	require.Error(t, err)

	cfg, err := NewConfigManager(writeConfig(t, "c.json", `{"source":{"path":"/abs/x.xlsx"},"watch":{"enabled":false}}`)).Parse()
	require.NoError(t, err)
	assert.Equal(t, "/abs/x.xlsx", cfg.Source.Path)
	assert.False(t, cfg.WatchEnabled())
	assert.Equal(t, DefaultServerAddr, cfg.ServerAddr())
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"ok", Config{Source: SourceConfig{Path: "x.xlsx"}}, ""},
		{"missing path", Config{}, "source.path is required"},
		{"bad debounce", Config{Source: SourceConfig{Path: "x"}, Watch: WatchConfig{Debounce: "soon"}}, "watch.debounce"},
		{"negative rate", Config{Source: SourceConfig{Path: "x"}, Broadcast: BroadcastConfig{ComputeRatePerSec: -1}}, "compute_rate_per_sec"},
		{"bad schedule", Config{Source: SourceConfig{Path: "x"}, Refresh: RefreshConfig{Schedule: "sometimes"}}, "refresh.schedule"},
		{"bad tz", Config{Source: SourceConfig{Path: "x"}, Refresh: RefreshConfig{Timezone: "Mars/Base"}}, "refresh.timezone"},
		{"bad driver", Config{Source: SourceConfig{Path: "x"}, Storage: &StorageConfig{Driver: "redis"}}, "unknown driver"},
		{"storage path", Config{Source: SourceConfig{Path: "x"}, Storage: &StorageConfig{Driver: "file"}}, "storage.path is required"},
		{"diag public no token", Config{Source: SourceConfig{Path: "x"}, Diag: DiagConfig{Enabled: true, Addr: "0.0.0.0:6060"}}, "token is required"},
		{"diag public token", Config{Source: SourceConfig{Path: "x"}, Diag: DiagConfig{Enabled: true, Addr: "0.0.0.0:6060", Token: "t"}}, ""},
		{"xls source", Config{Source: SourceConfig{Path: "data/hiring.xls"}}, "legacy .xls"},
		{"dup columns", Config{Source: SourceConfig{Path: "x", Columns: ColumnsConfig{Week: "Date"}}}, "both bind"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Validate(&tt.cfg)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestIsLoopbackAddr(t *testing.T) {
	t.Parallel()
	assert.True(t, IsLoopbackAddr("127.0.0.1:6060"))
	assert.True(t, IsLoopbackAddr("localhost:1"))
	assert.True(t, IsLoopbackAddr("[::1]:1"))
	assert.False(t, IsLoopbackAddr("0.0.0.0:6060"))
	assert.False(t, IsLoopbackAddr(":6060"))
	assert.False(t, IsLoopbackAddr("garbage"))
}

func TestSummarizeConfigChange(t *testing.T) {
	t.Parallel()
	a := &Config{Source: SourceConfig{Path: "x"}, Logging: LoggingConfig{Level: "info"}}
	b := *a
	b.Logging.Level = "debug"

	changed, attrs, restart := SummarizeConfigChange(a, &b)
	assert.Equal(t, []string{"logging"}, changed)
	assert.NotEmpty(t, attrs)
	assert.Empty(t, restart)

	c := b
	c.Diag = DiagConfig{Enabled: true, Token: "secret"}
	c.Source.Sheet = "Other"
	changed, _, restart = SummarizeConfigChange(&b, &c)
	assert.Equal(t, []string{"diag", "source"}, changed)
	assert.Equal(t, []string{"diag", "source"}, restart)

	changed, _, _ = SummarizeConfigChange(&c, &c)
	assert.Empty(t, changed)
}

func TestSubscribeLatestWins(t *testing.T) {
	t.Parallel()
	m := NewConfigManager("unused.json")
	ch := m.Subscribe(1)
	first, second := &Config{}, &Config{}
	m.publish(first)
	m.publish(second)
	assert.Same(t, second, <-ch)
	m.Unsubscribe(ch)
	_, ok := <-ch
	assert.False(t, ok)
}

func TestWatchPublishesOnChange(t *testing.T) {
	t.Parallel()
	p := writeConfig(t, "config.json", `{"source":{"path":"x.xlsx"},"logging":{"level":"info","console":false,"file":{"enabled":false,"path":""}}}`)
	m := NewConfigManager(p)
	m.SetLogger(logx.Nop())
	_, err := m.Load()
	require.NoError(t, err)
	ch := m.Subscribe(4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- m.Watch(ctx) }()

	// Give the watcher time to register before rewriting.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(p, []byte(`{"source":{"path":"x.xlsx"},"logging":{"level":"debug","console":false,"file":{"enabled":false,"path":""}}}`), 0o644))

	select {
	case cfg := <-ch:
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, "debug", m.Get().Logging.Level)
	case <-time.After(3 * time.Second):
		t.Fatal("no config published")
	}

	cancel()
	require.NoError(t, <-done)
}

func TestTimings(t *testing.T) {
	t.Parallel()
	tm, err := (&Config{}).Timings()
	require.NoError(t, err)
	assert.Equal(t, DefaultReadHeaderTimeout, tm.ReadHeaderTimeout)
	assert.Zero(t, tm.WatchDebounce)
	assert.Equal(t, DefaultStorageBusyTimeout, tm.StorageBusyTimeout)

	tm, err = (&Config{Watch: WatchConfig{Debounce: "250ms"}, Storage: &StorageConfig{BusyTimeout: "3s"}}).Timings()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, tm.WatchDebounce)
	assert.Equal(t, 3*time.Second, tm.StorageBusyTimeout)

	_, err = (&Config{Server: ServerConfig{ReadHeaderTimeout: "-1s"}, Watch: WatchConfig{Debounce: "soon"}}).Timings()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.read_header_timeout")
	assert.Contains(t, err.Error(), "watch.debounce")
}

func TestDecodeYAMLRejectsNonStringKeys(t *testing.T) {
	t.Parallel()
	var cfg Config
	err := decodeStrict("c.yaml", []byte("source:\n  1: x\n"), &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source")
}

func TestFormatOf(t *testing.T) {
	t.Parallel()
	assert.Equal(t, FormatYAML, FormatOf("a.YML"))
	assert.Equal(t, FormatYAML, FormatOf("dir/a.yaml"))
	assert.Equal(t, FormatJSON, FormatOf("a.conf"))
	assert.Equal(t, FormatJSON, FormatOf("a.json"))
}
