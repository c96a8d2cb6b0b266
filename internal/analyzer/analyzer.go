package analyzer

import "github.com/khanhnv2901/siteaudit/internal/document"

// checkFunc is one independent detection over the canonical document.
// Checks never mutate the document and never depend on each other, so a
// module is free to run its checks in any order.
type checkFunc func(doc *document.Document) []Issue

// runChecks executes every check, isolating failures per check: a
// panicking check contributes nothing but never aborts its siblings.
func runChecks(doc *document.Document, checks []checkFunc) []Issue {
	issues := make([]Issue, 0, len(checks))
	for _, check := range checks {
		issues = append(issues, safeCheck(check, doc)...)
	}
	return issues
}

func safeCheck(check checkFunc, doc *document.Document) (issues []Issue) {
	defer func() {
		if recover() != nil {
			// Scoped degradation: this check's contribution is omitted.
			issues = nil
		}
	}()
	return check(doc)
}
