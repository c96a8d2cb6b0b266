package analyzer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/khanhnv2901/siteaudit/internal/document"
	"github.com/khanhnv2901/siteaudit/internal/shared/constants"
)

// SEO analyzes the document for search engine optimization issues.
// Detection order within the module is fixed; it defines the stable
// insertion order the roadmap tie-break relies on.
func SEO(doc *document.Document) []Issue {
	return runChecks(doc, []checkFunc{
		checkTitle,
		checkMetaDescription,
		checkH1Count,
		checkH2Count,
		checkImageAlt,
		checkHeadingHierarchy,
		checkThinContent,
		checkReadability,
		checkDOMComplexity,
	})
}

func checkTitle(doc *document.Document) []Issue {
	if doc.Title == "" {
		return []Issue{{
			Category: CategorySEO,
			Title:    "Missing Page Title",
			Severity: SeverityHigh,
			Details:  "The page does not have a <title> tag. This is the most important SEO element.",
			QuickWin: true,
		}}
	}
	if doc.TitleCount > 1 {
		return []Issue{{
			Category: CategorySEO,
			Title:    "Duplicate Page Title",
			Severity: SeverityHigh,
			Details:  fmt.Sprintf("Found %d <title> tags. Browsers and search engines honor only one; the extras produce unpredictable snippets.", doc.TitleCount),
		}}
	}
	if len(doc.Title) < 10 {
		return []Issue{{
			Category: CategorySEO,
			Title:    "Title Too Short",
			Severity: SeverityMedium,
			Details:  fmt.Sprintf("The title %q is only %d characters. Aim for 50-60 characters.", doc.Title, len(doc.Title)),
			QuickWin: true,
		}}
	}
	return nil
}

func checkMetaDescription(doc *document.Document) []Issue {
	desc := doc.MetaDescription
	if desc == "" {
		return []Issue{{
			Category: CategorySEO,
			Title:    "Missing Meta Description",
			Severity: SeverityMedium,
			Details:  "Meta descriptions tell searchers what the page is about before they click.",
			QuickWin: true,
		}}
	}
	if len(desc) < constants.MetaDescriptionMin || len(desc) > constants.MetaDescriptionMax {
		return []Issue{{
			Category: CategorySEO,
			Title:    "Meta Description Length",
			Severity: SeverityMedium,
			Details: fmt.Sprintf("The meta description is %d characters. The optimal length is %d-%d characters.",
				len(desc), constants.MetaDescriptionMin, constants.MetaDescriptionMax),
			QuickWin: true,
		}}
	}
	return nil
}

func checkH1Count(doc *document.Document) []Issue {
	count := 0
	for _, h := range doc.Headings {
		if h.Level == 1 {
			count++
		}
	}
	switch {
	case count == 0:
		return []Issue{{
			Category: CategorySEO,
			Title:    "Missing H1 Heading",
			Severity: SeverityHigh,
			Details:  "Every page should have exactly one H1 tag naming its main topic.",
			QuickWin: true,
		}}
	case count > 1:
		return []Issue{{
			Category: CategorySEO,
			Title:    "Multiple H1 Headings",
			Severity: SeverityHigh,
			Details:  fmt.Sprintf("Found %d H1 tags. Keep a single main heading per page.", count),
		}}
	}
	return nil
}

func checkH2Count(doc *document.Document) []Issue {
	for _, h := range doc.Headings {
		if h.Level == 2 {
			return nil
		}
	}
	return []Issue{{
		Category: CategorySEO,
		Title:    "No H2 Headings",
		Severity: SeverityLow,
		Details:  "Subheadings (H2) organize content for readers and search engines.",
	}}
}

func checkImageAlt(doc *document.Document) []Issue {
	var issues []Issue
	missing := 0
	for _, img := range doc.Images {
		if img.HasAlt {
			continue
		}
		missing++
		if missing <= constants.MaxAltIssues {
			issues = append(issues, Issue{
				Category: CategorySEO,
				Title:    "Image Missing Alt Text",
				Severity: SeverityLow,
				Details:  fmt.Sprintf("Image %q has no descriptive alt attribute.", img.Src),
				QuickWin: true,
			})
		}
	}
	if missing > constants.MaxAltIssues {
		issues = append(issues, Issue{
			Category: CategorySEO,
			Title:    "Images Missing Alt Text",
			Severity: SeverityLow,
			Details:  fmt.Sprintf("%d more images are missing alt attributes.", missing-constants.MaxAltIssues),
		})
	}
	return issues
}

func checkHeadingHierarchy(doc *document.Document) []Issue {
	last := 0
	for _, h := range doc.Headings {
		if last != 0 && h.Level-last > 1 {
			return []Issue{{
				Category: CategorySEO,
				Title:    "Incorrect Heading Hierarchy",
				Severity: SeverityLow,
				Details:  fmt.Sprintf("Found <h%d> immediately after <h%d>. Heading levels should not be skipped.", h.Level, last),
			}}
		}
		last = h.Level
	}
	return nil
}

func checkThinContent(doc *document.Document) []Issue {
	if doc.WordCount >= constants.ThinContentWords {
		return nil
	}
	return []Issue{{
		Category: CategorySEO,
		Title:    "Thin Content",
		Severity: SeverityMedium,
		Details: fmt.Sprintf("The page has only %d words. Search engines prefer substantial content (at least %d words).",
			doc.WordCount, constants.ThinContentWords),
	}}
}

var sentenceEnd = regexp.MustCompile(`[.!?]+`)

// checkReadability estimates the Flesch reading ease of the page text.
// Pages without enough sentence-structured prose are skipped; a score
// fragment cannot be computed meaningfully from them.
func checkReadability(doc *document.Document) []Issue {
	words := strings.Fields(doc.PlainText)
	sentences := 0
	for _, chunk := range sentenceEnd.Split(doc.PlainText, -1) {
		if strings.TrimSpace(chunk) != "" {
			sentences++
		}
	}
	if len(words) < constants.ReadabilityMinWords || sentences < constants.ReadabilityMinSentences {
		return nil
	}

	syllableCount := 0
	for _, w := range words {
		syllableCount += syllables(w)
	}
	score := 206.835 -
		1.015*float64(len(words))/float64(sentences) -
		84.6*float64(syllableCount)/float64(len(words))
	if score >= constants.ReadabilityFloor {
		return nil
	}
	return []Issue{{
		Category: CategorySEO,
		Title:    "Poor Readability",
		Severity: SeverityMedium,
		Details:  fmt.Sprintf("Flesch Reading Ease score is %.1f. Aim for 60+. Use shorter sentences and simpler words.", score),
	}}
}

// syllables approximates the syllable count of one word by counting
// vowel groups, discounting a trailing silent e.
func syllables(word string) int {
	word = strings.ToLower(strings.Trim(word, ".,;:!?\"'()"))
	count := 0
	prevVowel := false
	for _, r := range word {
		isVowel := strings.ContainsRune("aeiouy", r)
		if isVowel && !prevVowel {
			count++
		}
		prevVowel = isVowel
	}
	if strings.HasSuffix(word, "e") && count > 1 {
		count--
	}
	if count == 0 {
		count = 1
	}
	return count
}

func checkDOMComplexity(doc *document.Document) []Issue {
	if doc.ElementCount <= constants.MaxDOMElements {
		return nil
	}
	return []Issue{{
		Category: CategorySEO,
		Title:    "Excessive DOM Size",
		Severity: SeverityLow,
		Details: fmt.Sprintf("The page contains %d HTML elements. Pages above %d elements are slow to parse and render.",
			doc.ElementCount, constants.MaxDOMElements),
	}}
}
