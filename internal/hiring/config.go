package hiring

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

const DefaultSheet = "B2C Team Hiring-MIS"

// Columns binds each logical field to its header text in the sheet.
type Columns struct {
	Recruiter string
	Date      string
	Status    string
	TechStack string
	Week      string
	Month     string
}

func DefaultColumns() Columns {
	return Columns{
		Recruiter: "Recruiter Name",
		Date:      "Date",
		Status:    "Interview Status",
		TechStack: "Requirement Name",
		Week:      "Week Number",
		Month:     "Month Name",
	}
}

// WithDefaults fills empty bindings from DefaultColumns.
func (c Columns) WithDefaults() Columns {
	def := DefaultColumns()
	fill := func(v *string, d string) {
		if strings.TrimSpace(*v) == "" {
			*v = d
		}
	}
	fill(&c.Recruiter, def.Recruiter)
	fill(&c.Date, def.Date)
	fill(&c.Status, def.Status)
	fill(&c.TechStack, def.TechStack)
	fill(&c.Week, def.Week)
	fill(&c.Month, def.Month)
	return c
}

// lookupOrder is the order in which columns are resolved; the first missing
// one is reported.
func (c Columns) lookupOrder() []string {
	return []string{c.Date, c.Recruiter, c.Week, c.Status, c.TechStack, c.Month}
}

// Config describes the single source spreadsheet.
type Config struct {
	Path    string
	Sheet   string
	Columns Columns
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Path) == "" {
		return errors.New("source.path is required")
	}
	// excelize reads OOXML workbooks only
	if strings.EqualFold(filepath.Ext(c.Path), ".xls") {
		return fmt.Errorf("source.path: %s: legacy .xls workbooks are not supported, save it as .xlsx", c.Path)
	}
	seen := map[string]string{}
	cols := c.Columns.WithDefaults()
	for name, v := range map[string]string{
		"recruiter":  cols.Recruiter,
		"date":       cols.Date,
		"status":     cols.Status,
		"tech_stack": cols.TechStack,
		"week":       cols.Week,
		"month":      cols.Month,
	} {
		if prev, ok := seen[v]; ok {
			return fmt.Errorf("source.columns: %s and %s both bind %q", prev, name, v)
		}
		seen[v] = name
	}
	return nil
}
