package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"

	"github.com/khanhnv2901/siteaudit/internal/analyzer"
)

// MarkdownWriter renders a report as GitHub-flavored markdown, suitable
// for dropping into an issue tracker or sharing with a site owner.
type MarkdownWriter struct {
	output io.Writer
}

// NewMarkdownWriter creates a writer targeting the given output.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{output: output}
}

// Write renders the full report.
func (w *MarkdownWriter) Write(r *Report) error {
	md := markdown.NewMarkdown(w.output)

	md.H1("Site Audit Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Target", "`" + r.URL + "`"},
			{"Fetched", r.FetchedAt.Format("2006-01-02 15:04:05 MST")},
			{"Overall Score", strconv.Itoa(r.Overall) + "/100"},
		},
	})
	md.PlainText("")

	md.H2("Scores")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Category", "Score", "Issues"},
		Rows: [][]string{
			{"SEO", strconv.Itoa(r.SEO.Score), strconv.Itoa(len(r.SEO.Issues))},
			{"Security", strconv.Itoa(r.Security.Score), strconv.Itoa(len(r.Security.Issues))},
			{"AEO", strconv.Itoa(r.AEO.Score), strconv.Itoa(len(r.AEO.Issues))},
		},
	})
	md.PlainText("")

	w.writeCategory(md, "SEO Issues", r.SEO.Issues)
	w.writeCategory(md, "Security Issues", r.Security.Issues)
	w.writeCategory(md, "AEO Issues", r.AEO.Issues)

	if len(r.QuickFixes) > 0 {
		md.H2("Roadmap")
		md.PlainText("")
		rows := make([][]string, 0, len(r.QuickFixes))
		for _, fix := range r.QuickFixes {
			rows = append(rows, []string{fix.Priority, fix.Action, fix.Effort})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Priority", "Action", "Effort"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	return md.Build()
}

func (w *MarkdownWriter) writeCategory(md *markdown.Markdown, title string, issues []analyzer.Issue) {
	md.H2(title)
	md.PlainText("")
	if len(issues) == 0 {
		md.PlainText("No issues found.")
		md.PlainText("")
		return
	}
	for _, issue := range issues {
		md.H3(severityBadge(issue.Severity) + " " + issue.Title)
		md.PlainText(issue.Details)
		if issue.Impact != "" {
			md.BulletList("Impact: "+issue.Impact, "Fix: "+issue.Fix)
		}
		md.PlainText("")
	}
}

func severityBadge(s analyzer.Severity) string {
	switch s {
	case analyzer.SeverityCritical:
		return "🔴"
	case analyzer.SeverityHigh:
		return "🟠"
	case analyzer.SeverityMedium:
		return "🟡"
	default:
		return "🔵"
	}
}
