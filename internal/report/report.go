package report

import (
	"time"

	"github.com/google/uuid"

	"github.com/khanhnv2901/siteaudit/internal/analyzer"
	"github.com/khanhnv2901/siteaudit/internal/scoring"
)

// CategoryResult groups one audit category's issues with its score.
type CategoryResult struct {
	Score  int              `json:"score"`
	Issues []analyzer.Issue `json:"issues"`
}

// Report is the aggregate audit result. It is assembled once at the end
// of the pipeline and immutable afterwards; persistence receives exactly
// what the caller receives.
type Report struct {
	ID         string                 `json:"id"`
	URL        string                 `json:"url"`
	FetchedAt  time.Time              `json:"fetched_at"`
	SEO        CategoryResult         `json:"seo"`
	Security   CategoryResult         `json:"security"`
	AEO        CategoryResult         `json:"aeo"`
	Overall    int                    `json:"overall_score"`
	QuickFixes []scoring.RoadmapEntry `json:"quick_fixes"`
	CreatedAt  time.Time              `json:"created_at"`
}

// Assemble composes the final report. Pure given valid inputs: no I/O,
// no failure modes.
func Assemble(url string, fetchedAt time.Time, seo, security, aeo []analyzer.Issue, roadmap []scoring.RoadmapEntry) *Report {
	seoScore := scoring.Score(seo)
	secScore := scoring.Score(security)
	aeoScore := scoring.Score(aeo)

	return &Report{
		ID:         uuid.NewString(),
		URL:        url,
		FetchedAt:  fetchedAt,
		SEO:        CategoryResult{Score: seoScore, Issues: seo},
		Security:   CategoryResult{Score: secScore, Issues: security},
		AEO:        CategoryResult{Score: aeoScore, Issues: aeo},
		Overall:    (seoScore + secScore + aeoScore) / 3,
		QuickFixes: roadmap,
		CreatedAt:  time.Now().UTC(),
	}
}

// AllIssues returns the three category lists flattened in the fixed
// category order (SEO, Security, AEO) with per-category detection order
// preserved.
func (r *Report) AllIssues() []analyzer.Issue {
	out := make([]analyzer.Issue, 0, len(r.SEO.Issues)+len(r.Security.Issues)+len(r.AEO.Issues))
	out = append(out, r.SEO.Issues...)
	out = append(out, r.Security.Issues...)
	out = append(out, r.AEO.Issues...)
	return out
}

// TotalIssues counts findings across all categories.
func (r *Report) TotalIssues() int {
	return len(r.SEO.Issues) + len(r.Security.Issues) + len(r.AEO.Issues)
}
