package analyzer

import (
	"fmt"
	"regexp"

	"github.com/khanhnv2901/siteaudit/internal/document"
)

// secretPattern is one credential family the scanner knows. Patterns are
// anchored on fixed issuer prefixes so generic base64 or hex strings can
// never match; precision beats recall here.
type secretPattern struct {
	family  string
	pattern *regexp.Regexp
}

var secretPatterns = []secretPattern{
	{
		family:  "AWS access key",
		pattern: regexp.MustCompile(`\b(?:AKIA|ASIA)[A-Z0-9]{16}\b`),
	},
	{
		family:  "Stripe secret key",
		pattern: regexp.MustCompile(`\bsk_(?:live|test)_[A-Za-z0-9]{24,}\b`),
	},
	{
		family:  "Google API key",
		pattern: regexp.MustCompile(`\bAIza[0-9A-Za-z_\-]{35}\b`),
	},
	{
		family:  "Slack token",
		pattern: regexp.MustCompile(`\bxox[baprs]-[0-9A-Za-z\-]{10,}\b`),
	},
	{
		family:  "GitHub personal access token",
		pattern: regexp.MustCompile(`\bghp_[A-Za-z0-9]{36}\b`),
	},
	{
		family:  "Private key material",
		pattern: regexp.MustCompile(`-----BEGIN (?:RSA |EC |DSA |OPENSSH )?PRIVATE KEY-----`),
	},
}

// ScanSecrets pattern-matches credential-shaped substrings in the raw
// page source. Each family yields at most one Critical issue no matter
// how often it occurs, and the issue text never repeats the matched
// value - only the family and a redacted positional hint - so the audit
// report cannot re-expose the leak.
func ScanSecrets(doc *document.Document) []Issue {
	var issues []Issue
	for _, sp := range secretPatterns {
		loc := sp.pattern.FindStringIndex(doc.RawHTML)
		if loc == nil {
			continue
		}
		issues = append(issues, Issue{
			Category: CategorySecurity,
			Title:    "Exposed Credential",
			Severity: SeverityCritical,
			Details: fmt.Sprintf("A string shaped like a %s was found in the page source (%s at byte offset %d). Rotate it immediately.",
				sp.family, redact(doc.RawHTML[loc[0]:loc[1]]), loc[0]),
		})
	}
	return issues
}

// redact keeps just enough of the match to locate it in the source.
func redact(match string) string {
	const keep = 4
	if len(match) <= keep {
		return "****"
	}
	return match[:keep] + "…"
}
