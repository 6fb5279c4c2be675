package hiring

import (
	"bytes"
	"encoding/json"
	"time"
)

// Dataset keys of a snapshot payload, in wire order.
const (
	KeyIndividualPerformance = "individualPerformance"
	KeyDateWisePerformance   = "dateWisePerformance"
	KeyWeeklyPerformance     = "weeklyPerformance"
	KeyInterviewStatus       = "interviewStatus"
	KeyTechStack             = "techStack"
	KeyMonthlyPerformance    = "monthlyPerformance"
)

var DatasetKeys = []string{
	KeyIndividualPerformance,
	KeyDateWisePerformance,
	KeyWeeklyPerformance,
	KeyInterviewStatus,
	KeyTechStack,
	KeyMonthlyPerformance,
}

// Field is one key/value pair of a wire record.
type Field struct {
	Key   string
	Value any
}

// Record is a wire record; its JSON object keeps field order.
type Record []Field

// Get returns the value stored under key.
func (r Record) Get(key string) (any, bool) {
	for _, f := range r {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

func (r Record) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			b.WriteByte(',')
		}
		k, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		b.Write(k)
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// Payload is what leaves the pipeline: either the six datasets or an error text.
type Payload struct {
	Datasets map[string][]Record
	Error    string
}

// IsError reports whether the payload carries an error instead of data.
func (p Payload) IsError() bool { return p.Error != "" || p.Datasets == nil }

func (p Payload) MarshalJSON() ([]byte, error) {
	if p.IsError() {
		msg := p.Error
		if msg == "" {
			msg = "error: empty snapshot"
		}
		return json.Marshal(map[string]string{"error": msg})
	}
	var b bytes.Buffer
	b.WriteByte('{')
	for i, key := range DatasetKeys {
		if i > 0 {
			b.WriteByte(',')
		}
		k, _ := json.Marshal(key)
		recs := p.Datasets[key]
		if recs == nil {
			recs = []Record{}
		}
		v, err := json.Marshal(recs)
		if err != nil {
			return nil, err
		}
		b.Write(k)
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// Normalize renders a snapshot into its wire payload. The recruiter column
// name of cols becomes the recruiter key of the weekly and monthly records.
func Normalize(s Snapshot, cols Columns) Payload {
	rk := cols.Recruiter
	return Payload{Datasets: map[string][]Record{
		KeyIndividualPerformance: records(s.IndividualPerformance, func(r NameValue) Record {
			return Record{{"Name", r.Name}, {"Value", r.Value}}
		}),
		KeyDateWisePerformance: records(s.DateWisePerformance, func(r DateCount) Record {
			return Record{{"Date", r.Date}, {"Count", r.Count}}
		}),
		KeyWeeklyPerformance: records(s.WeeklyPerformance, func(r WeekCount) Record {
			return Record{{"Week", r.Week}, {rk, r.Recruiter}, {"Count", r.Count}}
		}),
		KeyInterviewStatus: records(s.InterviewStatus, func(r StatusCount) Record {
			return Record{{"Status", r.Status}, {"Count", r.Count}}
		}),
		KeyTechStack: records(s.TechStack, func(r NameCount) Record {
			return Record{{"Name", r.Name}, {"Count", r.Count}}
		}),
		KeyMonthlyPerformance: records(s.MonthlyPerformance, func(r MonthCount) Record {
			return Record{{"Month", r.Month}, {rk, r.Recruiter}, {"Count", r.Count}}
		}),
	}}
}

func records[T any](in []T, shape func(T) Record) []Record {
	out := make([]Record, 0, len(in))
	for _, r := range in {
		rec := shape(r)
		for i := range rec {
			rec[i].Value = normalizeValue(rec[i].Value)
		}
		out = append(out, rec)
	}
	return out
}

// normalizeValue turns date-like values into YYYY-MM-DD text and named
// string types into plain strings; other values pass through.
func normalizeValue(v any) any {
	switch x := v.(type) {
	case Day:
		return x.String()
	case time.Time:
		return x.Format(DateLayout)
	case *time.Time:
		if x == nil {
			return nil
		}
		return x.Format(DateLayout)
	case Status:
		return string(x)
	default:
		return v
	}
}
