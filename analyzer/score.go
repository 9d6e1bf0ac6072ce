package analyzer

import "math"

// countIssues tallies issues by severity for the summary gauge.
func countIssues(issues []Issue) SeverityCounts {
	var counts SeverityCounts
	for _, issue := range issues {
		switch issue.Level {
		case SeverityError:
			counts.Errors++
		case SeverityWarning:
			counts.Warnings++
		case SeverityInfo:
			counts.Infos++
		case SeveritySuccess:
			counts.Successes++
		}
	}
	return counts
}

// scoreFromCounts computes the weighted pass/warn/fail ratio on a 0-100
// scale: passes count fully, warnings half, errors not at all. Informational
// findings carry no weight.
func scoreFromCounts(counts SeverityCounts) int {
	checks := counts.Successes + counts.Warnings + counts.Errors
	if checks == 0 {
		return 0
	}
	weighted := float64(counts.Successes) + 0.5*float64(counts.Warnings)
	return int(math.Round(weighted / float64(checks) * 100))
}
