package scoring

import (
	"fmt"
	"sort"
	"strings"

	"github.com/khanhnv2901/siteaudit/internal/analyzer"
)

// Priority labels attached to roadmap entries.
const (
	PriorityHigh     = "High"
	PriorityMedium   = "Medium"
	PriorityQuickWin = "Quick-Win"
	PriorityTip      = "Tip"
)

// RoadmapEntry is one recommended fix: a short imperative action, a
// priority label, and an estimated completion time bucket.
type RoadmapEntry struct {
	Action   string `json:"action"`
	Priority string `json:"priority"`
	Effort   string `json:"effort"`
}

const maxRoadmapEntries = 4

// Roadmap selects up to four fixes across all categories. Slot policy:
// the top Critical/High finding, the best remaining finding, a quick win
// (a Low/Medium issue fixable by one static file or tag), and an AEO tip
// when one exists. Unfilled slots backfill by descending severity; with
// fewer issues the roadmap simply stays shorter, it is never padded.
//
// Ties within a severity keep detection order, which makes the roadmap
// stable for identical documents.
func Roadmap(issues []analyzer.Issue) []RoadmapEntry {
	if len(issues) == 0 {
		return nil
	}

	ranked := make([]analyzer.Issue, len(issues))
	copy(ranked, issues)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Severity > ranked[j].Severity
	})

	used := make(map[int]bool, maxRoadmapEntries)
	var entries []RoadmapEntry

	take := func(idx int, priority string) {
		used[idx] = true
		entries = append(entries, RoadmapEntry{
			Action:   actionFor(ranked[idx]),
			Priority: priority,
			Effort:   effortFor(ranked[idx]),
		})
	}

	// Slot 1: highest-ranked Critical/High issue.
	for i, issue := range ranked {
		if issue.Severity >= analyzer.SeverityHigh {
			take(i, PriorityHigh)
			break
		}
	}

	// Slot 2: best remaining issue overall.
	for i := range ranked {
		if !used[i] {
			take(i, priorityForSeverity(ranked[i].Severity))
			break
		}
	}

	// Slot 3: quick win - lowest-effort unused Low/Medium issue.
	for i := len(ranked) - 1; i >= 0; i-- {
		issue := ranked[i]
		if used[i] || !issue.QuickWin || issue.Severity > analyzer.SeverityMedium {
			continue
		}
		take(i, PriorityQuickWin)
		break
	}

	// Slot 4: one AEO-specific tip when available.
	if len(entries) < maxRoadmapEntries {
		for i, issue := range ranked {
			if !used[i] && issue.Category == analyzer.CategoryAEO {
				take(i, PriorityTip)
				break
			}
		}
	}

	// Backfill remaining slots by descending severity.
	for i := range ranked {
		if len(entries) >= maxRoadmapEntries {
			break
		}
		if !used[i] {
			take(i, priorityForSeverity(ranked[i].Severity))
		}
	}

	if len(entries) > maxRoadmapEntries {
		entries = entries[:maxRoadmapEntries]
	}
	return entries
}

func priorityForSeverity(s analyzer.Severity) string {
	if s >= analyzer.SeverityHigh {
		return PriorityHigh
	}
	return PriorityMedium
}

// actionFor turns an issue into a short imperative instruction derived
// from the title. The roadmap is computed before the explanation stage
// runs, so the title is the only fix text guaranteed to exist.
func actionFor(issue analyzer.Issue) string {
	title := strings.TrimSpace(issue.Title)
	switch {
	case strings.HasPrefix(title, "Missing "):
		return "Add " + strings.TrimPrefix(title, "Missing ")
	case strings.HasPrefix(title, "No "):
		return "Add " + strings.TrimPrefix(title, "No ")
	default:
		return fmt.Sprintf("Fix: %s", title)
	}
}

func effortFor(issue analyzer.Issue) string {
	switch {
	case issue.QuickWin:
		return "minutes"
	case issue.Severity >= analyzer.SeverityHigh:
		return "days"
	default:
		return "hours"
	}
}
