package audit

import (
	"context"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/khanhnv2901/siteaudit/internal/analyzer"
	"github.com/khanhnv2901/siteaudit/internal/document"
	"github.com/khanhnv2901/siteaudit/internal/explain"
	"github.com/khanhnv2901/siteaudit/internal/fetch"
	"github.com/khanhnv2901/siteaudit/internal/guard"
	"github.com/khanhnv2901/siteaudit/internal/ratelimit"
	"github.com/khanhnv2901/siteaudit/internal/report"
	"github.com/khanhnv2901/siteaudit/internal/scoring"
	sharedErrors "github.com/khanhnv2901/siteaudit/internal/shared/errors"
	"github.com/khanhnv2901/siteaudit/internal/store"
)

// State names the pipeline stages. Transitions are strictly forward;
// a failed stage terminates the request with its error kind.
type State string

const (
	StateValidating State = "validating"
	StateGuarding   State = "guarding"
	StateFetching   State = "fetching"
	StateAnalyzing  State = "analyzing"
	StateScoring    State = "scoring"
	StateExplaining State = "explaining"
	StateAssembling State = "assembling"
	StateDone       State = "done"
)

// Request is one audit invocation.
type Request struct {
	// URL is the target to audit.
	URL string

	// ClientKey identifies the caller for admission control.
	ClientKey string

	// Owner is the optional caller identity forwarded to persistence.
	// The pipeline does not validate it; that is the auth layer's job.
	Owner string
}

// Pipeline sequences guard, fetch, analysis, scoring, recommendation,
// and explanation into the end-to-end audit flow.
type Pipeline struct {
	guard     *guard.Guard
	limiter   *ratelimit.Limiter
	fetcher   *fetch.Adapter
	explainer *explain.Orchestrator
	store     store.Store
	logger    *zap.Logger
}

// Config wires the pipeline's collaborators. Store may be nil (reports
// are then not persisted); Explainer may be nil (template fallbacks).
type Config struct {
	Guard     *guard.Guard
	Limiter   *ratelimit.Limiter
	Fetcher   *fetch.Adapter
	Explainer *explain.Orchestrator
	Store     store.Store
	Logger    *zap.Logger
}

// New builds a pipeline from its collaborators.
func New(cfg Config) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		guard:     cfg.Guard,
		limiter:   cfg.Limiter,
		fetcher:   cfg.Fetcher,
		explainer: cfg.Explainer,
		store:     cfg.Store,
		logger:    logger,
	}
}

// Run executes one audit request. Data flows strictly forward with no
// retries at this level; the three analysis modules fan out over the
// same read-only document and fan back in before scoring begins.
func (p *Pipeline) Run(ctx context.Context, req Request) (*report.Report, error) {
	logger := p.logger.With(zap.String("target", req.URL))
	start := time.Now()

	// Validating
	logger.Debug("stage", zap.String("state", string(StateValidating)))
	target := strings.TrimSpace(req.URL)
	if target == "" {
		return nil, sharedErrors.ErrEmptyURL
	}
	if u, err := url.Parse(target); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, sharedErrors.ErrInvalidURL
	}
	if p.limiter != nil && req.ClientKey != "" {
		if err := p.limiter.Allow(req.ClientKey); err != nil {
			return nil, err
		}
	}

	// Guarding - mandatory, no caller can skip it.
	logger.Debug("stage", zap.String("state", string(StateGuarding)))
	if err := p.guard.CheckURL(ctx, target); err != nil {
		return nil, err
	}

	// Fetching
	logger.Debug("stage", zap.String("state", string(StateFetching)))
	doc, err := p.fetcher.Document(ctx, target)
	if err != nil {
		return nil, err
	}

	// Analyzing: 3-way fan-out over the immutable document, barrier
	// before scoring. Modules are pure, so no locks are needed.
	logger.Debug("stage", zap.String("state", string(StateAnalyzing)))
	seo, security, aeo := p.analyze(ctx, doc)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Scoring + Recommendation
	logger.Debug("stage", zap.String("state", string(StateScoring)))
	roadmap := scoring.Roadmap(concat(seo, security, aeo))

	// Explaining: per-issue fan-out with bounded concurrency. Cannot
	// fail; degraded calls fall back to templates per issue.
	logger.Debug("stage", zap.String("state", string(StateExplaining)))
	if p.explainer != nil {
		seo = p.explainer.ExplainAll(ctx, seo)
		security = p.explainer.ExplainAll(ctx, security)
		aeo = p.explainer.ExplainAll(ctx, aeo)
	}

	if err := ctx.Err(); err != nil {
		// The caller is gone; assembling or persisting now would write
		// a report nobody will receive.
		return nil, err
	}

	// Assembling - pure composition, infallible given valid inputs.
	logger.Debug("stage", zap.String("state", string(StateAssembling)))
	rep := report.Assemble(target, doc.FetchedAt, seo, security, aeo, roadmap)

	p.persist(rep, req.Owner, logger)

	logger.Info("audit complete",
		zap.String("state", string(StateDone)),
		zap.String("report_id", rep.ID),
		zap.Int("issues", rep.TotalIssues()),
		zap.Int("overall_score", rep.Overall),
		zap.Duration("duration", time.Since(start)),
	)
	return rep, nil
}

// analyze fans out the three category modules and fans back in. Each
// module is independent; a panic inside one module's check is contained
// by the module itself, so the group never sees errors.
func (p *Pipeline) analyze(ctx context.Context, doc *document.Document) (seo, security, aeo []analyzer.Issue) {
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		seo = analyzer.SEO(doc)
		return nil
	})
	g.Go(func() error {
		security = analyzer.Security(doc)
		return nil
	})
	g.Go(func() error {
		aeo = analyzer.AEO(doc)
		return nil
	})
	_ = g.Wait()
	return seo, security, aeo
}

// persist hands the finished report to the persistence collaborator.
// Failures are logged and absorbed: the response already computed is
// never affected by storage trouble.
func (p *Pipeline) persist(rep *report.Report, owner string, logger *zap.Logger) {
	if p.store == nil {
		return
	}
	// Detached context: the request is complete, persistence gets its
	// own bounded lifetime.
	saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := p.store.SaveReport(saveCtx, rep, owner); err != nil {
		logger.Warn("persistence failed",
			zap.String("report_id", rep.ID),
			zap.Error(err),
		)
	}
}

func concat(lists ...[]analyzer.Issue) []analyzer.Issue {
	var out []analyzer.Issue
	for _, list := range lists {
		out = append(out, list...)
	}
	return out
}
