package explain

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/khanhnv2901/siteaudit/internal/analyzer"
)

type fakeExplainer struct {
	fn    func(ctx context.Context, issue analyzer.Issue) (string, string, error)
	calls int32
}

func (f *fakeExplainer) Explain(ctx context.Context, issue analyzer.Issue) (string, string, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.fn(ctx, issue)
}

func sampleIssues() []analyzer.Issue {
	return []analyzer.Issue{
		{Category: analyzer.CategorySEO, Title: "Missing Page Title", Severity: analyzer.SeverityHigh},
		{Category: analyzer.CategorySecurity, Title: "Exposed Credential", Severity: analyzer.SeverityCritical},
		{Category: analyzer.CategoryAEO, Title: "Missing llms.txt", Severity: analyzer.SeverityLow},
	}
}

func TestExplainAllFillsEveryIssue(t *testing.T) {
	fake := &fakeExplainer{fn: func(_ context.Context, issue analyzer.Issue) (string, string, error) {
		return "Traffic drops while this persists.", "Apply the fix for " + issue.Title + ".", nil
	}}
	o := NewOrchestrator(fake, nil)

	out := o.ExplainAll(context.Background(), sampleIssues())

	if len(out) != 3 {
		t.Fatalf("expected 3 issues, got %d", len(out))
	}
	for _, issue := range out {
		if issue.Impact == "" || issue.Fix == "" {
			t.Fatalf("issue %q missing explanation: %+v", issue.Title, issue)
		}
	}
	if !strings.Contains(out[1].Fix, "Exposed Credential") {
		t.Errorf("order not preserved: %+v", out[1])
	}
}

func TestExplainAllNeverMutatesInput(t *testing.T) {
	in := sampleIssues()
	o := NewOrchestrator(nil, nil)

	_ = o.ExplainAll(context.Background(), in)

	for _, issue := range in {
		if issue.Impact != "" || issue.Fix != "" {
			t.Fatalf("input issue mutated: %+v", issue)
		}
	}
}

func TestExplainAllDegradesPerIssue(t *testing.T) {
	// One call fails; only that issue gets the template.
	fake := &fakeExplainer{fn: func(_ context.Context, issue analyzer.Issue) (string, string, error) {
		if issue.Title == "Exposed Credential" {
			return "", "", errors.New("upstream 503")
		}
		return "Real impact.", "Real fix.", nil
	}}
	o := NewOrchestrator(fake, nil, WithConcurrency(1))

	out := o.ExplainAll(context.Background(), sampleIssues())

	if out[0].Impact != "Real impact." {
		t.Errorf("healthy call should keep model output, got %+v", out[0])
	}
	if out[1].Impact != "This weakens the trust and safety posture visitors and browsers expect." {
		t.Errorf("failed call should degrade to the security template, got %q", out[1].Impact)
	}
	if out[2].Impact != "Real impact." {
		t.Errorf("sibling after a failure should be unaffected, got %+v", out[2])
	}
}

func TestExplainValidationRejectsImplausibleOutput(t *testing.T) {
	cases := []struct {
		name   string
		impact string
		fix    string
	}{
		{"empty impact", "", "fix"},
		{"oversized", strings.Repeat("x", 700), "fix"},
		{"novel link", "See https://totally-unrelated.example for details.", "fix"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fake := &fakeExplainer{fn: func(context.Context, analyzer.Issue) (string, string, error) {
				return tc.impact, tc.fix, nil
			}}
			o := NewOrchestrator(fake, nil)

			issue := analyzer.Issue{Category: analyzer.CategorySEO, Title: "Thin Content", Details: "The page has only 80 words."}
			out := o.ExplainAll(context.Background(), []analyzer.Issue{issue})

			if out[0].Impact != "Search engines may rank this page lower until this is resolved." {
				t.Fatalf("expected template fallback, got %q", out[0].Impact)
			}
		})
	}
}

func TestExplainAllowsLinksTheFindingMentions(t *testing.T) {
	fake := &fakeExplainer{fn: func(context.Context, analyzer.Issue) (string, string, error) {
		return "The form posts to http://example.com over plain HTTP.", "Switch the endpoint to HTTPS.", nil
	}}
	o := NewOrchestrator(fake, nil)

	issue := analyzer.Issue{
		Category: analyzer.CategorySecurity,
		Title:    "Insecure Connection (No HTTPS)",
		Details:  "The site is served over plain http://example.com.",
	}
	out := o.ExplainAll(context.Background(), []analyzer.Issue{issue})
	if out[0].Impact != "The form posts to http://example.com over plain HTTP." {
		t.Fatalf("links already present in the finding should pass validation, got %q", out[0].Impact)
	}
}

func TestExplainTimeoutDegrades(t *testing.T) {
	fake := &fakeExplainer{fn: func(ctx context.Context, _ analyzer.Issue) (string, string, error) {
		<-ctx.Done()
		return "", "", ctx.Err()
	}}
	o := NewOrchestrator(fake, nil, WithTimeout(10*time.Millisecond))

	issue := analyzer.Issue{Category: analyzer.CategoryAEO, Title: "Missing llms.txt"}
	done := make(chan []analyzer.Issue, 1)
	go func() { done <- o.ExplainAll(context.Background(), []analyzer.Issue{issue}) }()

	select {
	case out := <-done:
		if out[0].Impact != "AI answer engines are less likely to cite this page as a source." {
			t.Fatalf("timed-out call should degrade to template, got %q", out[0].Impact)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("ExplainAll hung past the per-call timeout")
	}
}

func TestNilExplainerUsesTemplates(t *testing.T) {
	o := NewOrchestrator(nil, nil)
	out := o.ExplainAll(context.Background(), sampleIssues())
	for _, issue := range out {
		if issue.Impact == "" || issue.Fix == "" {
			t.Fatalf("template fallback missing for %q", issue.Title)
		}
	}
}
