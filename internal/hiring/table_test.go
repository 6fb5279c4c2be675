package hiring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{raw: "2024-01-15", want: "2024-01-15", ok: true},
		{raw: " 2024-01-15 ", want: "2024-01-15", ok: true},
		{raw: "2024-01-15 13:45:00", want: "2024-01-15", ok: true},
		{raw: "2024-01-15T23:59:59Z", want: "2024-01-15", ok: true},
		{raw: "15/01/2024", want: "2024-01-15", ok: true},
		{raw: "01/15/2024", want: "2024-01-15", ok: true},
		{raw: "03/04/2024", want: "2024-03-04", ok: true},
		{raw: "1/2/2024", want: "2024-01-02", ok: true},
		{raw: "12/01/2024", want: "2024-12-01", ok: true},
		{raw: "13/1/2024", want: "2024-01-13", ok: true},
		{raw: "03-04-2024", want: "2024-03-04", ok: true},
		{raw: "15-Jan-2024", want: "2024-01-15", ok: true},
		{raw: "Jan 15, 2024", want: "2024-01-15", ok: true},
		{raw: "45306", want: "2024-01-15", ok: true},
		{raw: "45306.75", want: "2024-01-15", ok: true},
		{raw: "", ok: false},
		{raw: "TBD", ok: false},
		{raw: "0", ok: false},
		{raw: "-3", ok: false},
		{raw: "2024-13-45", ok: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()
			got, ok := ParseDate(tt.raw)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, DayOf(got).String())
			}
		})
	}
}

func TestFilterByDateCountsDroppedRows(t *testing.T) {
	t.Parallel()
	rows := []Row{
		{Recruiter: "A", RawDate: "2024-01-01"},
		{Recruiter: "B", RawDate: "not a date"},
		{Recruiter: "C", RawDate: ""},
		{Recruiter: "D", RawDate: "45292"},
	}
	kept, dropped := FilterByDate(rows)
	assert.Equal(t, 2, dropped)
	require.Len(t, kept, 2)
	assert.Equal(t, "A", kept[0].Recruiter)
	assert.Equal(t, "D", kept[1].Recruiter)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), kept[1].Date.UTC())
	// input untouched
	assert.True(t, rows[0].Date.IsZero())
}

func TestCellText(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "3", cellText("3"))
	assert.Equal(t, "3", cellText("3.0"))
	assert.Equal(t, "3.5", cellText("3.5"))
	assert.Equal(t, "W3", cellText(" W3 "))
	assert.Equal(t, "", cellText("  "))
}

func TestDayStringDropsTimeOfDay(t *testing.T) {
	t.Parallel()
	d := DayOf(time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC))
	assert.Equal(t, "2024-02-29", d.String())
	back, err := time.Parse(DateLayout, d.String())
	require.NoError(t, err)
	assert.Equal(t, d.Time(), back)
}
