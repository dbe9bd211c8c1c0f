package timetrack

import (
	"strings"
	"unicode/utf8"
)

// ProjectInfo is the configured metadata of a project.
type ProjectInfo struct {
	Name        string  `json:"name"`
	FilterTerm  string  `json:"filter_term,omitempty"`
	BudgetHours float64 `json:"budget_hours,omitempty"`
	HourlyRate  float64 `json:"hourly_rate,omitempty"`
	Color       string  `json:"color,omitempty"`
	Hidden      bool    `json:"hidden,omitempty"`
}

// MatchProject finds the configured project for an event. A case-insensitive
// name match on the parsed project wins; otherwise the first project whose
// FilterTerm occurs in the raw title is used.
func MatchProject(title string, parsed ParsedTitle, projects []ProjectInfo) (ProjectInfo, bool) {
	for _, p := range projects {
		if SameLabel(p.Name, parsed.Project) {
			return p, true
		}
	}
	lower := strings.ToLower(title)
	for _, p := range projects {
		if p.FilterTerm != "" && strings.Contains(lower, strings.ToLower(p.FilterTerm)) {
			return p, true
		}
	}
	return ProjectInfo{}, false
}

// BudgetStatus summarizes tracked hours against a project's budget.
type BudgetStatus struct {
	Hours     float64 `json:"hours"`
	Budget    float64 `json:"budget,omitempty"`
	Remaining float64 `json:"remaining,omitempty"`
	Percent   float64 `json:"percent,omitempty"`
	Value     float64 `json:"value,omitempty"`
}

// Budget computes remaining budget hours and billable value. Remaining may be
// negative when the project is over budget.
func Budget(p ProjectInfo, hours float64) BudgetStatus {
	st := BudgetStatus{Hours: hours}
	if p.BudgetHours > 0 {
		st.Budget = p.BudgetHours
		st.Remaining = p.BudgetHours - hours
		st.Percent = hours / p.BudgetHours * 100
	}
	if p.HourlyRate > 0 {
		st.Value = hours * p.HourlyRate
	}
	return st
}

// ProjectTag derives a short badge for a project name.
func ProjectTag(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if utf8.RuneCountInString(name) <= 3 {
		return strings.ToUpper(name)
	}
	if name == strings.ToUpper(name) && utf8.RuneCountInString(name) <= 5 {
		return name
	}
	return strings.ToUpper(string([]rune(name)[:3]))
}
