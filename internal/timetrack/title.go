// Package timetrack turns calendar events into tracked hours: it decodes the
// "Project#activity description" title convention, computes durations,
// filters event sets and aggregates hours per project and activity.
//
// Every function here is pure. Malformed input never produces an error; it
// degrades to default labels or is left out of the totals.
package timetrack

import (
	"strings"
	"unicode"
)

const (
	// DefaultProject is used when a title carries no project segment.
	DefaultProject = "Other"
	// DefaultActivity is used when a title carries no activity segment.
	DefaultActivity = "other"

	delimiter = "#"
)

// ParsedTitle is the decoded form of an event title.
type ParsedTitle struct {
	Project     string `json:"project"`
	Activity    string `json:"activity"`
	Description string `json:"description"`
}

// ParseTitle decodes "Project#activity description".
//
// The title is split on the first '#'. The trimmed left side is the project.
// The right side is split at its first whitespace rune into the activity
// token and a trimmed description. Any later '#' belongs to the right side.
// Missing parts fall back to DefaultProject / DefaultActivity; an empty
// right side ("Marvel#") yields DefaultActivity rather than "".
func ParseTitle(title string) ParsedTitle {
	out := ParsedTitle{
		Project:     DefaultProject,
		Activity:    DefaultActivity,
		Description: title,
	}

	left, right, found := strings.Cut(title, delimiter)
	if !found {
		return out
	}

	if p := strings.TrimSpace(left); p != "" {
		out.Project = p
	}

	right = strings.TrimLeftFunc(right, unicode.IsSpace)
	out.Description = ""

	if i := strings.IndexFunc(right, unicode.IsSpace); i >= 0 {
		out.Activity = right[:i]
		out.Description = strings.TrimSpace(right[i:])
	} else if right != "" {
		out.Activity = right
	}

	return out
}

// Key normalizes a project or activity label for grouping and lookups.
func Key(label string) string {
	return strings.ToLower(label)
}

// SameLabel reports whether two labels group together.
func SameLabel(a, b string) bool {
	return Key(a) == Key(b)
}
