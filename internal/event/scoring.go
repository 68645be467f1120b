package event

// categoryScores is the verification scoring rule: a fixed point value per
// category. Scores are computed server-side at decision time; any value a
// client submits is ignored.
var categoryScores = map[Category]int{
	CategoryWindows: 10,
	CategoryRTU:     10,
	CategoryAMT:     15,
	CategoryPLC:     15,
	CategoryLinux:   10,
	CategoryOther:   10,
}

// CategoryScore returns the fixed score awarded when an observation in the
// given category is verified. Unknown categories score as "other".
func CategoryScore(c Category) int {
	if s, ok := categoryScores[c]; ok {
		return s
	}
	return categoryScores[CategoryOther]
}

// DecisionScore is the verification transition's score function:
// verified observations earn the category score, rejected ones are forced
// to zero.
func DecisionScore(heading string, verified bool) int {
	if !verified {
		return 0
	}
	return CategoryScore(CategoryOf(heading))
}
