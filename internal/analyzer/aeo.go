package analyzer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/khanhnv2901/siteaudit/internal/document"
	"github.com/khanhnv2901/siteaudit/internal/shared/constants"
)

var faqContentPattern = regexp.MustCompile(`(?i)freq(uently)?\s*asked\s*quest(ions)?|\bfaq\b`)

// questionStarters are the leading words answer engines scan headings
// for when matching user questions.
var questionStarters = []string{
	"what", "how", "why", "where", "when", "who", "can", "does", "is", "are",
}

// AEO analyzes the document for answer engine optimization: the
// structural signals AI assistants use when deciding which pages to
// cite as answers.
func AEO(doc *document.Document) []Issue {
	return runChecks(doc, []checkFunc{
		checkQuestionHeadings,
		checkAnswerAlignment,
		checkFAQPresence,
		checkAnswerSchema,
		checkLLMSAdvisory,
		checkAIBlocking,
	})
}

// checkQuestionHeadings flags FAQ-style pages whose headings never take
// the question form AI assistants match against.
func checkQuestionHeadings(doc *document.Document) []Issue {
	if !faqContentPattern.MatchString(doc.RawHTML) {
		return nil
	}
	for _, h := range doc.Headings {
		if h.Level > 3 {
			continue
		}
		if isQuestion(h.Text) {
			return nil
		}
	}
	return []Issue{{
		Category: CategoryAEO,
		Title:    "No Question-Based Headings",
		Severity: SeverityMedium,
		Details:  "The page has FAQ-style content but no heading phrased as a question. Answer engines match headings like \"What is…\" or \"How do…\" against user queries.",
	}}
}

func isQuestion(heading string) bool {
	text := strings.ToLower(strings.TrimSpace(heading))
	if text == "" {
		return false
	}
	if strings.Contains(text, "?") {
		return true
	}
	first := strings.Fields(text)
	if len(first) == 0 {
		return false
	}
	for _, starter := range questionStarters {
		if first[0] == starter {
			return true
		}
	}
	return false
}

// checkAnswerAlignment looks for at least one heading immediately
// followed by a paragraph in the 40-60 word range - the snippet shape
// answer engines quote verbatim.
func checkAnswerAlignment(doc *document.Document) []Issue {
	if len(doc.Headings) == 0 {
		return nil
	}
	for _, h := range doc.Headings {
		if h.AnswerWords >= constants.AnswerWordsMin && h.AnswerWords <= constants.AnswerWordsMax {
			return nil
		}
	}
	return []Issue{{
		Category: CategoryAEO,
		Title:    "Missing Strict Answer Alignment",
		Severity: SeverityLow,
		Details:  "No heading is followed directly by a 40-60 word answer paragraph. AI assistants prefer quoting concise answers placed right under the question.",
	}}
}

// checkFAQPresence flags pages with no FAQ-style section at all. A
// short list of real questions and answers is the content shape answer
// engines extract from most reliably.
func checkFAQPresence(doc *document.Document) []Issue {
	if faqContentPattern.MatchString(doc.RawHTML) {
		return nil
	}
	return []Issue{{
		Category: CategoryAEO,
		Title:    "Missing FAQ Section",
		Severity: SeverityMedium,
		Details:  "An FAQ section is the easiest way to rank in AI answers. No obvious FAQ section was detected.",
	}}
}

func checkAnswerSchema(doc *document.Document) []Issue {
	for _, block := range doc.SchemaBlocks {
		lower := strings.ToLower(block)
		if strings.Contains(lower, `"faqpage"`) || strings.Contains(lower, `"howto"`) {
			return nil
		}
	}
	return []Issue{{
		Category: CategoryAEO,
		Title:    "Missing AI-Friendly Schema",
		Severity: SeverityMedium,
		Details:  "No FAQPage or HowTo JSON-LD schema markup was found. Structured data lets machines understand the content without guessing.",
		QuickWin: true,
	}}
}

func checkLLMSAdvisory(doc *document.Document) []Issue {
	if doc.WellKnown["llms.txt"] {
		return nil
	}
	return []Issue{{
		Category: CategoryAEO,
		Title:    "Missing llms.txt",
		Severity: SeverityLow,
		Details:  "llms.txt is an emerging advisory file that tells AI crawlers how to read the site.",
		QuickWin: true,
	}}
}

// aiCrawlerAgents are the user-agent tokens of the major AI assistants'
// crawlers.
var aiCrawlerAgents = []string{"GPTBot", "CCBot", "Google-Extended", "PerplexityBot", "Bytespider"}

// checkAIBlocking looks for two blocking signals: a meta robots tag
// that removes the page from crawl results, and robots.txt groups that
// disallow known AI crawlers from the whole site.
func checkAIBlocking(doc *document.Document) []Issue {
	robots := strings.ToLower(doc.MetaRobots)
	if robots != "" && (strings.Contains(robots, "noindex") || strings.Contains(robots, "noai")) {
		return []Issue{{
			Category: CategoryAEO,
			Title:    "AI Crawler Blocking Detected",
			Severity: SeverityHigh,
			Details:  "The meta robots tag tells crawlers to ignore this page, which also removes it from AI answers.",
		}}
	}
	if agent := blockedAIAgent(doc.RobotsTxt); agent != "" {
		return []Issue{{
			Category: CategoryAEO,
			Title:    "AI Crawler Blocking Detected",
			Severity: SeverityHigh,
			Details:  fmt.Sprintf("robots.txt disallows %s from the entire site. Blocked AI crawlers cannot read or cite this page.", agent),
		}}
	}
	return nil
}

// blockedAIAgent walks robots.txt groups and reports the first known AI
// crawler whose group disallows the site root. A wildcard group that
// disallows everything blocks those crawlers too.
func blockedAIAgent(robotsTxt string) string {
	var agents []string
	inDirectives := false
	for _, raw := range strings.Split(robotsTxt, "\n") {
		line := raw
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		switch key {
		case "user-agent":
			// A user-agent line after directives starts a new group.
			if inDirectives {
				agents = agents[:0]
				inDirectives = false
			}
			agents = append(agents, value)
		case "disallow":
			inDirectives = true
			if value != "/" {
				continue
			}
			for _, agent := range agents {
				if agent == "*" {
					return "all crawlers"
				}
				for _, known := range aiCrawlerAgents {
					if strings.EqualFold(agent, known) {
						return known
					}
				}
			}
		default:
			inDirectives = true
		}
	}
	return ""
}
