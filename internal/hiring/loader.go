package hiring

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/xuri/excelize/v2"

	logx "recruitpulse/pkg/logx"
)

// Stats describes one snapshot computation.
type Stats struct {
	TotalRows   int
	DroppedRows int
	Took        time.Duration
	Err         error
}

// Loader is the single reader of the source spreadsheet.
// It keeps no cache: every call reads the file again.
type Loader struct {
	cfg      Config
	log      logx.Logger
	observer func(Stats)

	last atomic.Pointer[Stats]
}

type LoaderOption func(*Loader)

// WithObserver installs a hook called after every computation (success or not).
func WithObserver(fn func(Stats)) LoaderOption {
	return func(l *Loader) { l.observer = fn }
}

func NewLoader(cfg Config, log logx.Logger, opts ...LoaderOption) *Loader {
	if log.IsZero() {
		log = logx.Nop()
	}
	if strings.TrimSpace(cfg.Sheet) == "" {
		cfg.Sheet = DefaultSheet
	}
	cfg.Columns = cfg.Columns.WithDefaults()
	l := &Loader{cfg: cfg, log: log}
	for _, o := range opts {
		o(l)
	}
	return l
}

func (l *Loader) Config() Config { return l.cfg }

// LastStats returns the stats of the most recent ComputeSnapshot call.
func (l *Loader) LastStats() (Stats, bool) {
	st := l.last.Load()
	if st == nil {
		return Stats{}, false
	}
	return *st, true
}

// ComputeSnapshot runs load → filter → aggregate → normalize and never fails:
// errors (and panics) come back as an error Payload.
func (l *Loader) ComputeSnapshot() (p Payload) {
	start := time.Now()
	var st Stats
	defer func() {
		if r := recover(); r != nil {
			err := unexpected(l.cfg.Path, fmt.Errorf("%v", r))
			l.log.Error("snapshot computation panicked", logx.Any("panic", r), logx.Stack(string(debug.Stack())))
			st.Err = err
			p = ErrorPayload(err)
		}
		st.Took = time.Since(start)
		l.last.Store(&st)
		if l.observer != nil {
			l.observer(st)
		}
	}()

	snap, stats, err := l.Load()
	st = stats
	if err != nil {
		st.Err = err
		l.log.Warn("snapshot computation failed", logx.String("path", l.cfg.Path), logx.Err(err))
		return ErrorPayload(err)
	}
	l.log.Debug("snapshot computed",
		logx.Int("rows", stats.TotalRows),
		logx.Int("dropped", stats.DroppedRows),
		logx.Duration("took", time.Since(start)),
	)
	return Normalize(snap, l.cfg.Columns)
}

// Load reads the sheet and returns the typed snapshot.
func (l *Loader) Load() (Snapshot, Stats, error) {
	rows, err := l.readRows()
	if err != nil {
		return Snapshot{}, Stats{}, err
	}
	kept, dropped := FilterByDate(rows)
	if dropped > 0 {
		l.log.Debug("rows without a valid date dropped", logx.Int("dropped", dropped), logx.Int("total", len(rows)))
	}
	return Aggregate(kept), Stats{TotalRows: len(rows), DroppedRows: dropped}, nil
}

func (l *Loader) readRows() ([]Row, error) {
	path := l.cfg.Path
	fi, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, sourceNotFound(path, err)
		}
		return nil, unexpected(path, err)
	}
	if fi.IsDir() {
		return nil, unexpected(path, fmt.Errorf("%s is a directory", path))
	}

	// Raw values keep date cells as serial numbers instead of locale-formatted text.
	f, err := excelize.OpenFile(path, excelize.Options{RawCellValue: true})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, sourceNotFound(path, err)
		}
		return nil, unexpected(path, err)
	}
	defer func() { _ = f.Close() }()

	l.log.Trace("workbook opened", logx.String("path", path), logx.String("size", humanize.Bytes(uint64(fi.Size()))))

	if idx, err := f.GetSheetIndex(l.cfg.Sheet); err != nil || idx < 0 {
		return nil, unexpected(path, fmt.Errorf("Worksheet named '%s' not found", l.cfg.Sheet))
	}
	grid, err := f.GetRows(l.cfg.Sheet)
	if err != nil {
		return nil, unexpected(path, err)
	}
	return rowsFromGrid(path, grid, l.cfg.Columns)
}

// rowsFromGrid maps a header + data grid onto Rows. The first line is the header.
func rowsFromGrid(path string, grid [][]string, cols Columns) ([]Row, error) {
	var header []string
	if len(grid) > 0 {
		header = grid[0]
	}
	index := map[string]int{}
	for i, h := range header {
		h = strings.TrimSpace(h)
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}
	for _, name := range cols.lookupOrder() {
		if _, ok := index[strings.TrimSpace(name)]; !ok {
			return nil, schemaMismatch(path, name)
		}
	}
	at := func(line []string, name string) string {
		i := index[strings.TrimSpace(name)]
		if i >= len(line) {
			return ""
		}
		return line[i]
	}

	rows := make([]Row, 0, max(len(grid)-1, 0))
	for _, line := range grid[1:] {
		rows = append(rows, Row{
			Recruiter: strings.TrimSpace(at(line, cols.Recruiter)),
			RawDate:   at(line, cols.Date),
			Status:    at(line, cols.Status),
			TechStack: strings.TrimSpace(at(line, cols.TechStack)),
			Week:      cellText(at(line, cols.Week)),
			Month:     strings.TrimSpace(at(line, cols.Month)),
		})
	}
	return rows, nil
}
