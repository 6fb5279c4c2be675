package hiring

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// DateLayout is the wire form of every calendar date.
const DateLayout = "2006-01-02"

// Row is one spreadsheet line after cell extraction.
// RawDate keeps the cell text; Date is only meaningful after FilterByDate.
type Row struct {
	Recruiter string
	RawDate   string
	Date      time.Time
	Status    string
	TechStack string
	Week      string
	Month     string
}

// Day is a calendar date without time of day.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// DayOf truncates t to its calendar date (in t's own location).
func DayOf(t time.Time) Day {
	y, m, d := t.Date()
	return Day{Year: y, Month: m, Day: d}
}

func (d Day) Time() time.Time { return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC) }

func (d Day) String() string { return d.Time().Format(DateLayout) }

// Text layouts tried in order after the Excel serial form.
// Numeric dates are month-first; the day-first forms only match when the
// leading number cannot be a month.
var dateLayouts = []string{
	DateLayout,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"2006/01/02",
	"1/2/2006",
	"2/1/2006",
	"1-2-2006",
	"2-1-2006",
	"2-Jan-2006",
	"02-Jan-2006",
	"2-Jan-06",
	"2 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"1.2.2006",
	"2.1.2006",
}

// Excel stores dates as days since 1899-12-30; anything past 9999-12-31 is noise.
const maxExcelSerial = 2958465

// ParseDate parses a date cell: an Excel serial number (raw numeric cell)
// or one of the accepted text layouts. ok is false for anything else.
func ParseDate(raw string) (t time.Time, ok bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if f <= 0 || f > maxExcelSerial || math.IsNaN(f) {
			return time.Time{}, false
		}
		t, err := excelize.ExcelDateToTime(f, false)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FilterByDate parses the date column of every row and keeps only the rows
// that parse. The input slice is not modified.
func FilterByDate(rows []Row) (kept []Row, dropped int) {
	kept = make([]Row, 0, len(rows))
	for _, r := range rows {
		t, ok := ParseDate(r.RawDate)
		if !ok {
			dropped++
			continue
		}
		r.Date = t
		kept = append(kept, r)
	}
	return kept, dropped
}

// cellText renders an integer-like cell ("3", "3.0") as "3"; other values are trimmed text.
func cellText(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == math.Trunc(f) && !math.IsInf(f, 0) {
		return strconv.FormatInt(int64(f), 10)
	}
	return s
}
