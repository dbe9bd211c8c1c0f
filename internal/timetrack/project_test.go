package timetrack

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchProject(t *testing.T) {
	projects := []ProjectInfo{
		{Name: "Marvel", BudgetHours: 40},
		{Name: "Acme Corp", FilterTerm: "acme"},
	}

	p, ok := MatchProject("marvel#dev", ParseTitle("marvel#dev"), projects)
	assert.True(t, ok)
	assert.Equal(t, "Marvel", p.Name)

	p, ok = MatchProject("Call with ACME about invoices", ParseTitle("Call with ACME about invoices"), projects)
	assert.True(t, ok)
	assert.Equal(t, "Acme Corp", p.Name)

	_, ok = MatchProject("Lunch", ParseTitle("Lunch"), projects)
	assert.False(t, ok)
}

func TestBudget(t *testing.T) {
	st := Budget(ProjectInfo{BudgetHours: 10, HourlyRate: 50}, 4)
	assert.InDelta(t, 6, st.Remaining, 1e-9)
	assert.InDelta(t, 40, st.Percent, 1e-9)
	assert.InDelta(t, 200, st.Value, 1e-9)

	over := Budget(ProjectInfo{BudgetHours: 2}, 3)
	assert.InDelta(t, -1, over.Remaining, 1e-9)

	none := Budget(ProjectInfo{}, 3)
	assert.Zero(t, none.Budget)
	assert.Zero(t, none.Value)
}

func TestProjectTag(t *testing.T) {
	tests := map[string]string{
		"":        "",
		"abc":     "ABC",
		"NASA":    "NASA",
		"Marvel":  "MAR",
		"ACMECO":  "ACM",
		" io ":    "IO",
		"émile co": "ÉMI",
	}
	for in, want := range tests {
		assert.Equal(t, want, ProjectTag(in), in)
	}
}

func TestColors(t *testing.T) {
	assert.Equal(t, "#22C55F", ActivityColor("Design", nil))
	assert.Equal(t, "#123456", ActivityColor("Design", map[string]string{"design": "#123456"}))

	c := ActivityColor("research", nil)
	assert.Contains(t, alternateActivityColors, c)
	assert.Equal(t, c, ActivityColor("research", nil))

	assert.Equal(t, ProjectColor("Marvel"), ProjectColor("marvel"))
	assert.Contains(t, projectPalette, ProjectColor("Acme"))
}
