package hiring

import "sort"

// Record shapes of the six datasets.
type (
	NameValue struct {
		Name  string
		Value int
	}
	DateCount struct {
		Date  Day
		Count int
	}
	WeekCount struct {
		Week      string
		Recruiter string
		Count     int
	}
	StatusCount struct {
		Status Status
		Count  int
	}
	NameCount struct {
		Name  string
		Count int
	}
	MonthCount struct {
		Month     string
		Recruiter string
		Count     int
	}
)

// Snapshot is the typed aggregation result. It is rebuilt on every trigger.
type Snapshot struct {
	IndividualPerformance []NameValue
	DateWisePerformance   []DateCount
	WeeklyPerformance     []WeekCount
	InterviewStatus       []StatusCount
	TechStack             []NameCount
	MonthlyPerformance    []MonthCount
}

// tally counts keys and remembers the order in which each key was first seen.
type tally[K comparable] struct {
	pos    map[K]int
	keys   []K
	counts []int
}

func newTally[K comparable]() *tally[K] {
	return &tally[K]{pos: map[K]int{}}
}

func (t *tally[K]) add(k K) {
	i, ok := t.pos[k]
	if !ok {
		i = len(t.keys)
		t.pos[k] = i
		t.keys = append(t.keys, k)
		t.counts = append(t.counts, 0)
	}
	t.counts[i]++
}

// order returns key indexes in first-seen order.
func (t *tally[K]) order() []int {
	idx := make([]int, len(t.keys))
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// byCountDesc returns key indexes by descending count; ties keep first-seen order.
func (t *tally[K]) byCountDesc() []int {
	idx := t.order()
	sort.SliceStable(idx, func(a, b int) bool { return t.counts[idx[a]] > t.counts[idx[b]] })
	return idx
}

type pair struct{ group, recruiter string }

// Aggregate builds the six datasets from date-filtered rows.
//
// Rows missing a grouping key (recruiter, tech stack, week, month) are left
// out of the datasets grouped on that key only.
func Aggregate(rows []Row) Snapshot {
	recruiters := newTally[string]()
	days := newTally[string]()
	dayOf := map[string]Day{}
	weeks := newTally[pair]()
	statuses := newTally[Status]()
	stacks := newTally[string]()
	months := newTally[pair]()

	for _, r := range rows {
		if r.Recruiter != "" {
			recruiters.add(r.Recruiter)
		}

		d := DayOf(r.Date)
		key := d.String()
		dayOf[key] = d
		days.add(key)

		if r.Recruiter != "" && r.Week != "" {
			weeks.add(pair{group: "Week " + r.Week, recruiter: r.Recruiter})
		}

		statuses.add(NormalizeStatus(r.Status))

		if r.TechStack != "" {
			stacks.add(r.TechStack)
		}

		if r.Recruiter != "" && r.Month != "" {
			months.add(pair{group: r.Month, recruiter: r.Recruiter})
		}
	}

	var s Snapshot

	s.IndividualPerformance = make([]NameValue, 0, len(recruiters.keys))
	for _, i := range recruiters.byCountDesc() {
		s.IndividualPerformance = append(s.IndividualPerformance, NameValue{Name: recruiters.keys[i], Value: recruiters.counts[i]})
	}

	s.DateWisePerformance = make([]DateCount, 0, len(days.keys))
	for _, i := range days.order() {
		s.DateWisePerformance = append(s.DateWisePerformance, DateCount{Date: dayOf[days.keys[i]], Count: days.counts[i]})
	}
	// ISO strings sort chronologically.
	sort.SliceStable(s.DateWisePerformance, func(a, b int) bool {
		return s.DateWisePerformance[a].Date.String() < s.DateWisePerformance[b].Date.String()
	})

	s.WeeklyPerformance = make([]WeekCount, 0, len(weeks.keys))
	for _, i := range weeks.order() {
		k := weeks.keys[i]
		s.WeeklyPerformance = append(s.WeeklyPerformance, WeekCount{Week: k.group, Recruiter: k.recruiter, Count: weeks.counts[i]})
	}

	s.InterviewStatus = make([]StatusCount, 0, len(statuses.keys))
	for _, i := range statuses.byCountDesc() {
		s.InterviewStatus = append(s.InterviewStatus, StatusCount{Status: statuses.keys[i], Count: statuses.counts[i]})
	}

	s.TechStack = make([]NameCount, 0, len(stacks.keys))
	for _, i := range stacks.byCountDesc() {
		s.TechStack = append(s.TechStack, NameCount{Name: stacks.keys[i], Count: stacks.counts[i]})
	}

	s.MonthlyPerformance = make([]MonthCount, 0, len(months.keys))
	for _, i := range months.order() {
		k := months.keys[i]
		s.MonthlyPerformance = append(s.MonthlyPerformance, MonthCount{Month: k.group, Recruiter: k.recruiter, Count: months.counts[i]})
	}

	return s
}
