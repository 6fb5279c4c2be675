package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"recruitpulse/internal/hiring"
)

func writeSheet(t *testing.T, dir string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	_, err := f.NewSheet(hiring.DefaultSheet)
	require.NoError(t, err)
	require.NoError(t, f.DeleteSheet("Sheet1"))

	rows := [][]any{
		{"Recruiter Name", "Date", "Interview Status", "Requirement Name", "Week Number", "Month Name"},
		{"A", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "Selected", "Go", 1, "January"},
		{"B", "not a date", "Rejected", "Java", 1, "January"},
	}
	for i, line := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(hiring.DefaultSheet, cell, &line))
	}
	require.NoError(t, f.SaveAs(filepath.Join(dir, "hiring.xlsx")))
}

func writeCfg(t *testing.T, dir string) string {
	t.Helper()
	p := filepath.Join(dir, "config.yaml")
	body := "source:\n  path: hiring.xlsx\nlogging:\n  level: error\n"
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestSnapshotCommandPrintsDatasets(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeSheet(t, dir)
	cfg := writeCfg(t, dir)

	var stdout, stderr bytes.Buffer
	require.NoError(t, runSnapshot(&stdout, &stderr, cfg, true, true))

	var out map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	assert.Contains(t, out, hiring.KeyIndividualPerformance)
	assert.NotContains(t, out, "error")
	assert.JSONEq(t, `[{"Name":"A","Value":1}]`, string(out[hiring.KeyIndividualPerformance]))
	assert.Contains(t, stderr.String(), "rows: 2, dropped: 1")
}

func TestSnapshotCommandMissingSource(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfg := writeCfg(t, dir)

	var stdout, stderr bytes.Buffer
	err := runSnapshot(&stdout, &stderr, cfg, false, false)
	require.ErrorIs(t, err, errSnapshotFailed)

	var out map[string]string
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	assert.Contains(t, out["error"], "not found")
}

func TestSnapshotCommandBadConfig(t *testing.T) {
	t.Parallel()
	var stdout, stderr bytes.Buffer
	err := runSnapshot(&stdout, &stderr, filepath.Join(t.TempDir(), "missing.yaml"), false, false)
	require.Error(t, err)
	assert.Empty(t, stdout.String())
}
