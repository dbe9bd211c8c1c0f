package timetrack

var defaultActivityColors = map[string]string{
	"design":    "#22C55F",
	"dev":       "#6EE7B7",
	"meeting":   "#D1FAE5",
	"marketing": "#FEF18B",
	"other":     "#FED8AA",
	"admin":     "#7ED3FC",
}

var alternateActivityColors = []string{"#FEF18B", "#FED8AA", "#7ED3FC"}

var projectPalette = []string{
	"#8B5CF6",
	"#D946EF",
	"#F97316",
	"#0EA5E9",
	"#14B8A6",
	"#22C55E",
	"#EAB308",
	"#EC4899",
	"#3B82F6",
	"#EF4444",
}

// ActivityColor picks the colour of an activity: a configured override
// (keyed by normalized label), a built-in default, or a palette entry derived
// from the label.
func ActivityColor(label string, overrides map[string]string) string {
	key := Key(label)
	if c, ok := overrides[key]; ok && c != "" {
		return c
	}
	if c, ok := defaultActivityColors[key]; ok {
		return c
	}
	return alternateActivityColors[runeSum(label)%len(alternateActivityColors)]
}

// ProjectColor deterministically maps a project name onto the palette.
func ProjectColor(name string) string {
	return projectPalette[runeSum(Key(name))%len(projectPalette)]
}

func runeSum(s string) int {
	sum := 0
	for _, r := range s {
		sum += int(r)
	}
	if sum < 0 {
		return -sum
	}
	return sum
}
