package scoring

import "github.com/khanhnv2901/siteaudit/internal/analyzer"

// Penalty weights per severity. The score is a multiset sum, so the
// result never depends on issue order.
const (
	penaltyCritical = 20
	penaltyHigh     = 10
	penaltyMedium   = 5
	penaltyLow      = 2
)

// Penalty returns the score deduction for one severity level.
func Penalty(s analyzer.Severity) int {
	switch s {
	case analyzer.SeverityCritical:
		return penaltyCritical
	case analyzer.SeverityHigh:
		return penaltyHigh
	case analyzer.SeverityMedium:
		return penaltyMedium
	case analyzer.SeverityLow:
		return penaltyLow
	default:
		return 0
	}
}

// Score converts an issue list into a 0-100 category score. It is total
// and deterministic: an empty list scores 100 and the floor is 0.
func Score(issues []analyzer.Issue) int {
	score := 100
	for _, issue := range issues {
		score -= Penalty(issue.Severity)
	}
	if score < 0 {
		return 0
	}
	return score
}
