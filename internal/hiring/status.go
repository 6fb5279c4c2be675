package hiring

import "strings"

// Status is the normalized interview status taxonomy.
type Status string

const (
	StatusEmpty         Status = "Empty"
	StatusScheduled     Status = "Scheduled"
	StatusShortlisted   Status = "Shortlisted"
	StatusNotSelected   Status = "Not Selected"
	StatusOnHold        Status = "On Hold"
	StatusInterviewDone Status = "Interview Done"
	StatusSelected      Status = "Selected"
	StatusOthers        Status = "Others"
)

// NormalizeStatus maps a free-text status cell onto the fixed taxonomy.
//
// Matching is case-insensitive substring matching and the first rule wins.
// "not selected" is tested before "selected", and the "selected" rule still
// refuses anything containing "not".
func NormalizeStatus(raw string) Status {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case s == "":
		return StatusEmpty
	case strings.Contains(s, "scheduled"):
		return StatusScheduled
	case strings.Contains(s, "shortlisted"):
		return StatusShortlisted
	case strings.Contains(s, "not selected"), strings.Contains(s, "rejected"):
		return StatusNotSelected
	case strings.Contains(s, "on hold"):
		return StatusOnHold
	case strings.Contains(s, "done"), strings.Contains(s, "completed"):
		return StatusInterviewDone
	case strings.Contains(s, "selected") && !strings.Contains(s, "not"):
		return StatusSelected
	default:
		return StatusOthers
	}
}
