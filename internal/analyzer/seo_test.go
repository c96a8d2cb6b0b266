package analyzer

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/khanhnv2901/siteaudit/internal/document"
)

func buildDoc(t *testing.T, rawURL, rawHTML string, wellKnown map[string]bool) *document.Document {
	t.Helper()
	doc, err := document.Build(rawURL, rawHTML, nil, 200, wellKnown)
	if err != nil {
		t.Fatalf("failed to build document: %v", err)
	}
	return doc
}

func filler(words int) string {
	return strings.TrimSpace(strings.Repeat("substantial content here ", (words+2)/3))
}

func cleanPage() string {
	return fmt.Sprintf(`<html><head>
<title>A Perfectly Reasonable Page Title</title>
<meta name="description" content="This description sits comfortably inside the optimal length range for search snippets.">
</head><body>
<h1>Main Topic</h1>
<h2>Subtopic</h2>
<p>%s</p>
<img src="/hero.png" alt="A described image">
</body></html>`, filler(320))
}

func hasIssue(issues []Issue, title string) *Issue {
	for i := range issues {
		if issues[i].Title == title {
			return &issues[i]
		}
	}
	return nil
}

func TestSEOCleanPage(t *testing.T) {
	doc := buildDoc(t, "https://example.com/", cleanPage(), nil)
	issues := SEO(doc)
	if len(issues) != 0 {
		t.Fatalf("expected no SEO issues on a clean page, got %v", issues)
	}
}

func TestSEOTitleChecks(t *testing.T) {
	t.Run("missing title", func(t *testing.T) {
		doc := buildDoc(t, "https://example.com/", "<html><body><h1>x</h1></body></html>", nil)
		issue := hasIssue(SEO(doc), "Missing Page Title")
		if issue == nil {
			t.Fatal("expected Missing Page Title issue")
		}
		if issue.Severity != SeverityHigh {
			t.Fatalf("expected High severity, got %v", issue.Severity)
		}
		if !issue.QuickWin {
			t.Fatal("missing title should be flagged as a quick win")
		}
	})

	t.Run("short title", func(t *testing.T) {
		doc := buildDoc(t, "https://example.com/", "<html><head><title>Hi</title></head></html>", nil)
		issue := hasIssue(SEO(doc), "Title Too Short")
		if issue == nil {
			t.Fatal("expected Title Too Short issue")
		}
		if issue.Severity != SeverityMedium {
			t.Fatalf("expected Medium severity, got %v", issue.Severity)
		}
	})

	t.Run("duplicate title", func(t *testing.T) {
		page := "<html><head><title>First Descriptive Title</title><title>Second Descriptive Title</title></head><body></body></html>"
		doc := buildDoc(t, "https://example.com/", page, nil)
		issue := hasIssue(SEO(doc), "Duplicate Page Title")
		if issue == nil {
			t.Fatal("expected Duplicate Page Title issue for a page with two title tags")
		}
		if issue.Severity != SeverityHigh {
			t.Fatalf("expected High severity, got %v", issue.Severity)
		}
		if !strings.Contains(issue.Details, "2") {
			t.Fatalf("details should carry the title count, got %q", issue.Details)
		}
	})
}

func TestSEOHeadingChecks(t *testing.T) {
	t.Run("missing h1", func(t *testing.T) {
		doc := buildDoc(t, "https://example.com/", "<html><body><h2>only h2</h2></body></html>", nil)
		issue := hasIssue(SEO(doc), "Missing H1 Heading")
		if issue == nil {
			t.Fatal("expected Missing H1 Heading issue")
		}
		if issue.Severity != SeverityHigh {
			t.Fatalf("expected High severity, got %v", issue.Severity)
		}
	})

	t.Run("multiple h1", func(t *testing.T) {
		doc := buildDoc(t, "https://example.com/", "<html><body><h1>one</h1><h1>two</h1></body></html>", nil)
		issue := hasIssue(SEO(doc), "Multiple H1 Headings")
		if issue == nil {
			t.Fatal("expected Multiple H1 Headings issue")
		}
		if issue.Severity != SeverityHigh {
			t.Fatalf("expected High severity, got %v", issue.Severity)
		}
	})

	t.Run("skipped level", func(t *testing.T) {
		doc := buildDoc(t, "https://example.com/", "<html><body><h1>top</h1><h4>deep</h4></body></html>", nil)
		if hasIssue(SEO(doc), "Incorrect Heading Hierarchy") == nil {
			t.Fatal("expected Incorrect Heading Hierarchy issue")
		}
	})
}

func TestSEOImageAltCap(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 0; i < 8; i++ {
		fmt.Fprintf(&b, `<img src="/img%d.png">`, i)
	}
	b.WriteString("</body></html>")

	issues := SEO(buildDoc(t, "https://example.com/", b.String(), nil))

	individual := 0
	for _, issue := range issues {
		if issue.Title == "Image Missing Alt Text" {
			individual++
		}
	}
	if individual != 5 {
		t.Fatalf("expected 5 individual alt issues, got %d", individual)
	}
	summary := hasIssue(issues, "Images Missing Alt Text")
	if summary == nil {
		t.Fatal("expected overflow summary issue")
	}
	if !strings.Contains(summary.Details, "3 more") {
		t.Fatalf("summary should count the 3 remaining images, got %q", summary.Details)
	}
}

func TestSEOThinContent(t *testing.T) {
	doc := buildDoc(t, "https://example.com/", fmt.Sprintf("<html><body><p>%s</p></body></html>", filler(100)), nil)
	issue := hasIssue(SEO(doc), "Thin Content")
	if issue == nil {
		t.Fatal("expected Thin Content issue")
	}
	if issue.Severity != SeverityMedium {
		t.Fatalf("expected Medium severity, got %v", issue.Severity)
	}
}

func TestSEOReadability(t *testing.T) {
	t.Run("dense prose is flagged", func(t *testing.T) {
		sentence := "Organizational transformation initiatives necessitate comprehensive standardization of internationalization infrastructure considerations. "
		page := fmt.Sprintf("<html><body><p>%s</p></body></html>", strings.Repeat(sentence, 12))
		issue := hasIssue(SEO(buildDoc(t, "https://example.com/", page, nil)), "Poor Readability")
		if issue == nil {
			t.Fatal("expected Poor Readability issue for dense long-word prose")
		}
		if issue.Severity != SeverityMedium {
			t.Fatalf("expected Medium severity, got %v", issue.Severity)
		}
	})

	t.Run("plain prose passes", func(t *testing.T) {
		page := fmt.Sprintf("<html><body><p>%s</p></body></html>", strings.Repeat("The cat sat on the mat. ", 20))
		if hasIssue(SEO(buildDoc(t, "https://example.com/", page, nil)), "Poor Readability") != nil {
			t.Fatal("short simple sentences must not be flagged")
		}
	})

	t.Run("fragments without sentences are skipped", func(t *testing.T) {
		page := fmt.Sprintf("<html><body><p>%s</p></body></html>", filler(320))
		if hasIssue(SEO(buildDoc(t, "https://example.com/", page, nil)), "Poor Readability") != nil {
			t.Fatal("unpunctuated fragments carry no sentence structure to score")
		}
	})
}

func TestSEOIsDeterministic(t *testing.T) {
	doc := buildDoc(t, "https://example.com/", "<html><body><h2>heading</h2><img src='a.png'></body></html>", nil)
	first := SEO(doc)
	second := SEO(doc)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("same document must produce identical issue lists")
	}
}
