package explain

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/khanhnv2901/siteaudit/internal/analyzer"
	"github.com/khanhnv2901/siteaudit/internal/shared/constants"
)

// Explainer is the external LLM capability. Each call is stateless and
// receives only the public fields of one issue.
type Explainer interface {
	Explain(ctx context.Context, issue analyzer.Issue) (impact, fix string, err error)
}

// Orchestrator maps every issue to a business-impact sentence and a fix
// instruction. Calls fan out with bounded concurrency; a slow or failed
// call degrades that one issue to a deterministic template and never
// blocks or fails its siblings.
type Orchestrator struct {
	explainer   Explainer
	pacer       *rate.Limiter
	concurrency int
	timeout     time.Duration
	logger      *zap.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithConcurrency caps concurrent explanation calls.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithTimeout bounds each individual explanation call.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithPacing limits outbound calls per second to respect upstream
// throughput limits.
func WithPacing(callsPerSecond float64) Option {
	return func(o *Orchestrator) {
		if callsPerSecond > 0 {
			o.pacer = rate.NewLimiter(rate.Limit(callsPerSecond), 1)
		}
	}
}

// NewOrchestrator builds an orchestrator over the given capability.
// A nil explainer is valid: every issue then gets the template fallback.
func NewOrchestrator(explainer Explainer, logger *zap.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Orchestrator{
		explainer:   explainer,
		concurrency: constants.DefaultExplainConcurrency,
		timeout:     constants.DefaultExplainTimeout,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ExplainAll returns a copy of the issue list with impact and fix filled
// for every entry. Input issues are never mutated. The method cannot
// fail: degraded calls fall back per issue.
func (o *Orchestrator) ExplainAll(ctx context.Context, issues []analyzer.Issue) []analyzer.Issue {
	out := make([]analyzer.Issue, len(issues))
	copy(out, issues)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)

	for i := range out {
		g.Go(func() error {
			out[i] = o.explainOne(gctx, out[i])
			return nil
		})
	}
	_ = g.Wait() // workers never return errors, they degrade instead

	return out
}

func (o *Orchestrator) explainOne(ctx context.Context, issue analyzer.Issue) analyzer.Issue {
	if o.explainer == nil {
		return fallback(issue)
	}
	if o.pacer != nil {
		if err := o.pacer.Wait(ctx); err != nil {
			return fallback(issue)
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	impact, fix, err := o.explainer.Explain(callCtx, issue)
	if err != nil {
		o.logger.Warn("explanation degraded",
			zap.String("issue", issue.Title),
			zap.Error(err),
		)
		return fallback(issue)
	}
	if !plausible(issue, impact) || !plausible(issue, fix) {
		o.logger.Warn("explanation rejected by validation",
			zap.String("issue", issue.Title),
		)
		return fallback(issue)
	}
	return issue.WithExplanation(strings.TrimSpace(impact), strings.TrimSpace(fix))
}

const maxExplanationChars = 600

// plausible applies the structural side of the non-fabrication contract:
// the response must be non-empty, bounded, and must not introduce links
// the finding never mentioned. Wording itself stays the model's job.
func plausible(issue analyzer.Issue, text string) bool {
	text = strings.TrimSpace(text)
	if text == "" || len(text) > maxExplanationChars {
		return false
	}
	if strings.Contains(text, "http://") || strings.Contains(text, "https://") {
		if !strings.Contains(issue.Details, "http") {
			return false
		}
	}
	return true
}

// fallback fills impact and fix from deterministic category templates so
// a report never ships with empty explanations.
func fallback(issue analyzer.Issue) analyzer.Issue {
	var impact, fix string
	switch issue.Category {
	case analyzer.CategorySEO:
		impact = "Search engines may rank this page lower until this is resolved."
		fix = "Update the page markup to address the finding, then re-run the audit."
	case analyzer.CategorySecurity:
		impact = "This weakens the trust and safety posture visitors and browsers expect."
		fix = "Apply the standard remediation for this finding and verify it from a fresh crawl."
	case analyzer.CategoryAEO:
		impact = "AI answer engines are less likely to cite this page as a source."
		fix = "Restructure the content to match the pattern this finding describes."
	default:
		impact = "This finding may affect how the page is ranked and cited."
		fix = "Review the finding details and apply the recommended change."
	}
	return issue.WithExplanation(impact, fix)
}
