package analyzer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/khanhnv2901/siteaudit/internal/document"
)

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

// Security analyzes the document for surface-level security and trust
// issues. All checks are passive: they only look at what the crawl
// already exposed, nothing is probed or exploited.
func Security(doc *document.Document) []Issue {
	return runChecks(doc, []checkFunc{
		checkHTTPS,
		checkWellKnownFiles,
		checkExposedEmails,
		checkMalformedLinks,
		ScanSecrets,
	})
}

func checkHTTPS(doc *document.Document) []Issue {
	if doc.HTTPS {
		return nil
	}
	return []Issue{{
		Category: CategorySecurity,
		Title:    "Insecure Connection (No HTTPS)",
		Severity: SeverityCritical,
		Details:  "The site is served over plain HTTP. Data sent to it is not encrypted in transit.",
	}}
}

// advisoryFiles maps well-known files to the issue emitted when absent.
// llms.txt is deliberately not here: answer-engine advisories belong to
// the AEO module.
var advisoryFiles = []struct {
	name     string
	title    string
	severity Severity
	details  string
}{
	{"robots.txt", "Missing robots.txt", SeverityLow,
		"robots.txt tells crawlers which parts of the site they may visit."},
	{"security.txt", "Missing security.txt", SeverityMedium,
		"security.txt gives security researchers a way to report problems responsibly."},
	{"humans.txt", "Missing humans.txt", SeverityLow,
		"humans.txt is an optional file crediting the people behind the site."},
}

func checkWellKnownFiles(doc *document.Document) []Issue {
	var issues []Issue
	for _, f := range advisoryFiles {
		if doc.WellKnown[f.name] {
			continue
		}
		issues = append(issues, Issue{
			Category: CategorySecurity,
			Title:    f.title,
			Severity: f.severity,
			Details:  f.details,
			QuickWin: true,
		})
	}
	return issues
}

func checkExposedEmails(doc *document.Document) []Issue {
	matches := emailPattern.FindAllString(doc.PlainText, -1)
	unique := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		unique[strings.ToLower(m)] = struct{}{}
	}
	if len(unique) == 0 {
		return nil
	}
	// Addresses are counted, never echoed: repeating them in the audit
	// output would hand scrapers the same harvest.
	return []Issue{{
		Category: CategorySecurity,
		Title:    "Exposed Email Addresses",
		Severity: SeverityMedium,
		Details:  fmt.Sprintf("Found %d email address(es) in plain text. Spammers can scrape these directly from the page.", len(unique)),
	}}
}

func checkMalformedLinks(doc *document.Document) []Issue {
	malformed := 0
	for _, link := range doc.Links {
		if !strings.HasPrefix(link, "/") {
			continue
		}
		if strings.Contains(link[1:], "//") || len(link) < 2 {
			malformed++
		}
	}
	if malformed == 0 {
		return nil
	}
	return []Issue{{
		Category: CategorySecurity,
		Title:    "Malformed Internal Links",
		Severity: SeverityLow,
		Details:  fmt.Sprintf("Found %d internal link(s) that look broken (double slashes or empty paths). Check the navigation markup.", malformed),
	}}
}
