package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khanhnv2901/siteaudit/internal/analyzer"
)

func TestRoadmapEmpty(t *testing.T) {
	assert.Nil(t, Roadmap(nil))
	assert.Nil(t, Roadmap([]analyzer.Issue{}))
}

func TestRoadmapSingleIssue(t *testing.T) {
	entries := Roadmap([]analyzer.Issue{{
		Category: analyzer.CategorySecurity,
		Title:    "Exposed Credential",
		Severity: analyzer.SeverityCritical,
	}})

	require.Len(t, entries, 1)
	assert.Equal(t, PriorityHigh, entries[0].Priority)
	assert.Equal(t, "days", entries[0].Effort)
	assert.Equal(t, "Fix: Exposed Credential", entries[0].Action)
}

func TestRoadmapSlotPolicy(t *testing.T) {
	issues := []analyzer.Issue{
		{Category: analyzer.CategorySEO, Title: "Missing H1 Heading", Severity: analyzer.SeverityHigh, QuickWin: true},
		{Category: analyzer.CategorySecurity, Title: "Insecure Connection (No HTTPS)", Severity: analyzer.SeverityCritical},
		{Category: analyzer.CategorySecurity, Title: "Missing security.txt", Severity: analyzer.SeverityMedium, QuickWin: true},
		{Category: analyzer.CategoryAEO, Title: "Missing llms.txt", Severity: analyzer.SeverityLow, QuickWin: true},
		{Category: analyzer.CategorySEO, Title: "No H2 Headings", Severity: analyzer.SeverityLow},
	}

	entries := Roadmap(issues)
	require.Len(t, entries, 4)

	// Slot 1: the Critical finding.
	assert.Equal(t, "Fix: Insecure Connection (No HTTPS)", entries[0].Action)
	assert.Equal(t, PriorityHigh, entries[0].Priority)

	// Slot 2: best remaining, the High finding.
	assert.Equal(t, "Add H1 Heading", entries[1].Action)
	assert.Equal(t, PriorityHigh, entries[1].Priority)

	// Slot 3: the lowest-ranked unused quick win.
	assert.Equal(t, PriorityQuickWin, entries[2].Priority)
	assert.Equal(t, "Add llms.txt", entries[2].Action)
	assert.Equal(t, "minutes", entries[2].Effort)

	// Slot 4: an AEO tip; the llms.txt issue is taken, so no AEO issue
	// remains and the slot backfills by severity.
	assert.Equal(t, "Add security.txt", entries[3].Action)
}

func TestRoadmapReservesAEOTip(t *testing.T) {
	issues := []analyzer.Issue{
		{Category: analyzer.CategorySecurity, Title: "Insecure Connection (No HTTPS)", Severity: analyzer.SeverityCritical},
		{Category: analyzer.CategorySEO, Title: "Multiple H1 Headings", Severity: analyzer.SeverityHigh},
		{Category: analyzer.CategoryAEO, Title: "Missing AI-Friendly Schema", Severity: analyzer.SeverityMedium, QuickWin: true},
		{Category: analyzer.CategorySEO, Title: "Missing Meta Description", Severity: analyzer.SeverityMedium, QuickWin: true},
		{Category: analyzer.CategorySEO, Title: "Thin Content", Severity: analyzer.SeverityMedium},
	}

	entries := Roadmap(issues)
	require.Len(t, entries, 4)

	tips := 0
	for _, e := range entries {
		if e.Priority == PriorityTip {
			tips++
			assert.Equal(t, "Add AI-Friendly Schema", e.Action)
		}
	}
	assert.Equal(t, 1, tips, "exactly one AEO tip slot")
}

func TestRoadmapNeverExceedsFourEntries(t *testing.T) {
	var issues []analyzer.Issue
	for i := 0; i < 12; i++ {
		issues = append(issues, analyzer.Issue{
			Category: analyzer.CategorySEO,
			Title:    "Thin Content",
			Severity: analyzer.SeverityMedium,
		})
	}
	assert.Len(t, Roadmap(issues), 4)
}

func TestRoadmapTiesKeepDetectionOrder(t *testing.T) {
	issues := []analyzer.Issue{
		{Category: analyzer.CategorySecurity, Title: "First Critical", Severity: analyzer.SeverityCritical},
		{Category: analyzer.CategorySecurity, Title: "Second Critical", Severity: analyzer.SeverityCritical},
	}
	entries := Roadmap(issues)
	require.Len(t, entries, 2)
	assert.Equal(t, "Fix: First Critical", entries[0].Action)
	assert.Equal(t, "Fix: Second Critical", entries[1].Action)
}

func TestActionFor(t *testing.T) {
	t.Run("derived from the title even when fix text is set", func(t *testing.T) {
		// The roadmap runs before the explanation stage fills Fix, so
		// the action must never depend on it.
		issue := analyzer.Issue{Title: "Missing robots.txt", Fix: "Create a robots.txt allowing the crawlers you want."}
		assert.Equal(t, "Add robots.txt", actionFor(issue))
	})

	t.Run("missing prefix", func(t *testing.T) {
		assert.Equal(t, "Add robots.txt", actionFor(analyzer.Issue{Title: "Missing robots.txt"}))
	})

	t.Run("no prefix", func(t *testing.T) {
		assert.Equal(t, "Add H2 Headings", actionFor(analyzer.Issue{Title: "No H2 Headings"}))
	})

	t.Run("generic", func(t *testing.T) {
		assert.Equal(t, "Fix: Thin Content", actionFor(analyzer.Issue{Title: "Thin Content"}))
	})
}
