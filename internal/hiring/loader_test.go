package hiring

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	logx "recruitpulse/pkg/logx"
)

var testHeader = []any{"Recruiter Name", "Date", "Interview Status", "Requirement Name", "Week Number", "Month Name"}

// writeWorkbook saves a single-sheet workbook and returns its path.
func writeWorkbook(t *testing.T, dir, sheet string, header []any, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	if sheet != "Sheet1" {
		_, err := f.NewSheet(sheet)
		require.NoError(t, err)
		require.NoError(t, f.DeleteSheet("Sheet1"))
	}
	all := append([][]any{header}, rows...)
	for i, line := range all {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &line))
	}
	path := filepath.Join(dir, "hiring.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func testRows() [][]any {
	return [][]any{
		{"A", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "Scheduled", "Go", 1, "January"},
		{"A", "2024-01-02", "Selected", "Go", 1, "January"},
		{"B", "pending", "Rejected", "Java", 1, "January"},
		{"B", time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), "", "Java", 2, "January"},
	}
}

func TestComputeSnapshotFromWorkbook(t *testing.T) {
	t.Parallel()
	path := writeWorkbook(t, t.TempDir(), DefaultSheet, testHeader, testRows())

	var seen []Stats
	l := NewLoader(Config{Path: path}, logx.Nop(), WithObserver(func(s Stats) { seen = append(seen, s) }))
	p := l.ComputeSnapshot()
	require.False(t, p.IsError(), p.Error)

	b, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"individualPerformance": [{"Name": "A", "Value": 2}, {"Name": "B", "Value": 1}],
		"dateWisePerformance": [
			{"Date": "2024-01-01", "Count": 1},
			{"Date": "2024-01-02", "Count": 1},
			{"Date": "2024-01-08", "Count": 1}
		],
		"weeklyPerformance": [
			{"Week": "Week 1", "Recruiter Name": "A", "Count": 2},
			{"Week": "Week 2", "Recruiter Name": "B", "Count": 1}
		],
		"interviewStatus": [
			{"Status": "Scheduled", "Count": 1},
			{"Status": "Selected", "Count": 1},
			{"Status": "Empty", "Count": 1}
		],
		"techStack": [{"Name": "Go", "Count": 2}, {"Name": "Java", "Count": 1}],
		"monthlyPerformance": [
			{"Month": "January", "Recruiter Name": "A", "Count": 2},
			{"Month": "January", "Recruiter Name": "B", "Count": 1}
		]
	}`, string(b))

	require.Len(t, seen, 1)
	assert.Equal(t, 4, seen[0].TotalRows)
	assert.Equal(t, 1, seen[0].DroppedRows)
	assert.NoError(t, seen[0].Err)

	last, ok := l.LastStats()
	require.True(t, ok)
	assert.Equal(t, seen[0], last)
}

func TestComputeSnapshotIsIdempotent(t *testing.T) {
	t.Parallel()
	path := writeWorkbook(t, t.TempDir(), DefaultSheet, testHeader, testRows())
	l := NewLoader(Config{Path: path}, logx.Nop())
	_, ok := l.LastStats()
	assert.False(t, ok)
	assert.Equal(t, l.ComputeSnapshot(), l.ComputeSnapshot())
}

func TestComputeSnapshotMissingFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nope.xlsx")
	p := NewLoader(Config{Path: path}, logx.Nop()).ComputeSnapshot()
	require.True(t, p.IsError())
	assert.Equal(t, "Excel file '"+path+"' not found.", p.Error)
}

func TestLoadMissingFileIsSourceNotFound(t *testing.T) {
	t.Parallel()
	_, _, err := NewLoader(Config{Path: filepath.Join(t.TempDir(), "nope.xlsx")}, logx.Nop()).Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSourceNotFound))
}

func TestComputeSnapshotMissingColumn(t *testing.T) {
	t.Parallel()
	header := []any{"Recruiter Name", "Date", "Interview Status", "Requirement Name", "Week Number"}
	path := writeWorkbook(t, t.TempDir(), DefaultSheet, header, [][]any{{"A", "2024-01-01", "Scheduled", "Go", 1}})

	l := NewLoader(Config{Path: path}, logx.Nop())
	p := l.ComputeSnapshot()
	require.True(t, p.IsError())
	assert.Equal(t, "Excel sheet column 'Month Name' not found.", p.Error)

	_, _, err := l.Load()
	assert.True(t, errors.Is(err, ErrSchemaMismatch))
	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, "Month Name", le.Column)
}

func TestComputeSnapshotMissingSheet(t *testing.T) {
	t.Parallel()
	path := writeWorkbook(t, t.TempDir(), "Other", testHeader, testRows())
	p := NewLoader(Config{Path: path}, logx.Nop()).ComputeSnapshot()
	require.True(t, p.IsError())
	assert.Equal(t, "error: Worksheet named '"+DefaultSheet+"' not found", p.Error)
}

func TestComputeSnapshotCorruptFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a zip"), 0o600))
	p := NewLoader(Config{Path: path}, logx.Nop()).ComputeSnapshot()
	require.True(t, p.IsError())
	assert.Contains(t, p.Error, "error: ")
}

func TestComputeSnapshotCustomColumnsAndSheet(t *testing.T) {
	t.Parallel()
	header := []any{"Owner", "When", "State", "Stack", "Wk", "Mon"}
	path := writeWorkbook(t, t.TempDir(), "Pipeline", header, [][]any{{"Z", "2024-05-05", "Done", "Go", 18, "May"}})
	cols := Columns{Recruiter: "Owner", Date: "When", Status: "State", TechStack: "Stack", Week: "Wk", Month: "Mon"}
	p := NewLoader(Config{Path: path, Sheet: "Pipeline", Columns: cols}, logx.Nop()).ComputeSnapshot()
	require.False(t, p.IsError(), p.Error)

	rec := p.Datasets[KeyWeeklyPerformance][0]
	wk, _ := rec.Get("Week")
	owner, _ := rec.Get("Owner")
	assert.Equal(t, "Week 18", wk)
	assert.Equal(t, "Z", owner)
	st, _ := p.Datasets[KeyInterviewStatus][0].Get("Status")
	assert.Equal(t, "Interview Done", st)
}

func TestRowsFromGridEmptySheet(t *testing.T) {
	t.Parallel()
	_, err := rowsFromGrid("x.xlsx", nil, DefaultColumns())
	assert.True(t, errors.Is(err, ErrSchemaMismatch))
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()
	assert.Error(t, Config{}.Validate())
	assert.NoError(t, Config{Path: "a.xlsx"}.Validate())
	assert.NoError(t, Config{Path: "data/A.XLSX"}.Validate())
	err := Config{Path: "data/legacy.XLS"}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".xls")
	dup := Config{Path: "a.xlsx", Columns: Columns{Recruiter: "Date"}}
	assert.Error(t, dup.Validate())
}
