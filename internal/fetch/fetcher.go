package fetch

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/khanhnv2901/siteaudit/internal/document"
	"github.com/khanhnv2901/siteaudit/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/siteaudit/internal/shared/errors"
)

// Page is the raw result of the crawl capability: markup, response
// headers, and status. Everything else is derived during normalization.
type Page struct {
	HTML       string
	Headers    http.Header
	StatusCode int
}

// Client is the external crawl capability. Implementations fetch one
// guard-approved URL with a bounded timeout and no retry contract.
type Client interface {
	Fetch(ctx context.Context, target string) (*Page, error)
}

// WellKnownFiles are the advisory files probed alongside every page fetch.
var WellKnownFiles = []string{"robots.txt", "humans.txt", "security.txt", "llms.txt"}

// Adapter wraps the crawl capability and normalizes its output into the
// canonical document model. It performs exactly one fetch attempt per
// audit; crawl failures are terminal for that request.
type Adapter struct {
	client Client
	prober Prober
	logger *zap.Logger
}

// Prober checks a well-known file under the target origin. Probe
// returns the file body for files whose directives matter downstream
// (robots.txt) and an empty body with a plain existence answer for the
// rest.
type Prober interface {
	Probe(ctx context.Context, target, filename string) (content string, ok bool)
}

// NewAdapter builds an adapter over the given crawl client and prober.
func NewAdapter(client Client, prober Prober, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{client: client, prober: prober, logger: logger}
}

// Document fetches the target and returns its canonical document.
// Upstream errors are logged server-side; the caller only ever sees
// ErrCrawlFailed with no upstream internals attached.
func (a *Adapter) Document(ctx context.Context, target string) (*document.Document, error) {
	page, err := a.client.Fetch(ctx, target)
	if err != nil {
		a.logger.Warn("crawl failed", zap.String("target", target), zap.Error(err))
		return nil, sharedErrors.ErrCrawlFailed
	}
	if page.StatusCode < 200 || page.StatusCode >= 300 {
		a.logger.Warn("crawl returned non-2xx",
			zap.String("target", target),
			zap.Int("status", page.StatusCode),
		)
		return nil, sharedErrors.ErrCrawlFailed
	}

	wellKnown := make(map[string]bool, len(WellKnownFiles))
	var robotsTxt string
	if a.prober != nil {
		for _, name := range WellKnownFiles {
			content, ok := a.prober.Probe(ctx, target, name)
			wellKnown[name] = ok
			if name == "robots.txt" {
				robotsTxt = content
			}
		}
	}

	doc, err := document.Build(target, page.HTML, page.Headers, page.StatusCode, wellKnown)
	if err != nil {
		a.logger.Warn("document normalization failed", zap.String("target", target), zap.Error(err))
		return nil, sharedErrors.ErrCrawlFailed
	}
	doc.RobotsTxt = robotsTxt
	return doc, nil
}

// HTTPFetcher is the default Client: a plain HTTP GET with a bounded
// timeout and a capped body read.
type HTTPFetcher struct {
	Timeout time.Duration
	client  *http.Client
}

// NewHTTPFetcher returns a fetcher with sane TLS defaults.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = constants.DefaultFetchTimeout
	}
	return &HTTPFetcher{
		Timeout: timeout,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: false,
					MinVersion:         tls.VersionTLS12,
				},
			},
		},
	}
}

// Fetch performs a single GET against the target.
func (f *HTTPFetcher) Fetch(ctx context.Context, target string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, constants.MaxBodyBytes))
	if err != nil {
		return nil, err
	}

	return &Page{
		HTML:       string(body),
		Headers:    resp.Header,
		StatusCode: resp.StatusCode,
	}, nil
}

// Probe checks for a well-known file with a short request. robots.txt
// is fetched outright because its directives feed the AI-crawler
// blocking check; the other advisory files only need an existence
// answer, probed with HEAD and a GET fallback for servers that reject
// HEAD. Only a 200 counts; soft-404 pages that answer everything are
// accepted as-is since the checks treating these files are advisory.
func (f *HTTPFetcher) Probe(ctx context.Context, target, filename string) (string, bool) {
	u, err := url.Parse(target)
	if err != nil {
		return "", false
	}
	fileURL := u.Scheme + "://" + u.Host + "/" + strings.TrimPrefix(filename, "/")

	probeCtx, cancel := context.WithTimeout(ctx, constants.WellKnownProbeTimeout)
	defer cancel()

	if filename == "robots.txt" {
		return f.fetchRobots(probeCtx, fileURL)
	}

	for _, method := range []string{http.MethodHead, http.MethodGet} {
		req, err := http.NewRequestWithContext(probeCtx, method, fileURL, nil)
		if err != nil {
			return "", false
		}
		resp, err := f.client.Do(req)
		if err != nil {
			continue
		}
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			return "", true
		}
		if resp.StatusCode != http.StatusMethodNotAllowed {
			return "", false
		}
	}
	return "", false
}

func (f *HTTPFetcher) fetchRobots(ctx context.Context, fileURL string) (string, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return "", false
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return "", false
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, constants.MaxRobotsBytes))
	if err != nil {
		return "", false
	}
	return string(body), true
}
