package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/khanhnv2901/siteaudit/internal/report"
	sharedErrors "github.com/khanhnv2901/siteaudit/internal/shared/errors"
	"github.com/khanhnv2901/siteaudit/internal/store"
)

type stubAudits struct {
	rep *report.Report
	err error

	gotURL    string
	gotKey    string
	gotOwner  string
	callCount int
}

func (s *stubAudits) Analyze(ctx context.Context, url, clientKey, owner string) (*report.Report, error) {
	s.callCount++
	s.gotURL = url
	s.gotKey = clientKey
	s.gotOwner = owner
	return s.rep, s.err
}

type stubReports struct {
	reports map[string]*report.Report
	list    []store.ReportSummary
}

func (s *stubReports) GetReport(ctx context.Context, id string) (*report.Report, error) {
	if r, ok := s.reports[id]; ok {
		return r, nil
	}
	return nil, sharedErrors.ErrReportNotFound
}

func (s *stubReports) ListReports(ctx context.Context, limit int) ([]store.ReportSummary, error) {
	if limit < len(s.list) {
		return s.list[:limit], nil
	}
	return s.list, nil
}

type stubHealth struct {
	checkErr error
	readyErr error
}

func (s *stubHealth) Check(ctx context.Context) error { return s.checkErr }
func (s *stubHealth) Ready(ctx context.Context) error { return s.readyErr }

type stubRetry struct{ wait time.Duration }

func (s *stubRetry) RetryAfter(key string) time.Duration { return s.wait }

func sampleReport() *report.Report {
	return report.Assemble("https://example.com/", time.Now().UTC(), nil, nil, nil, nil)
}

func newTestServer(cfg Config) *Server {
	return NewServer(cfg)
}

func postAnalyze(t *testing.T, srv *Server, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestAnalyzeSuccess(t *testing.T) {
	audits := &stubAudits{rep: sampleReport()}
	srv := newTestServer(Config{Audits: audits})

	rec := postAnalyze(t, srv, `{"url": "https://example.com/"}`, map[string]string{
		"X-Caller-Identity": "team-web",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var got report.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("response is not a report: %v", err)
	}
	if got.URL != "https://example.com/" {
		t.Errorf("report url = %q", got.URL)
	}
	if audits.gotOwner != "team-web" {
		t.Errorf("owner = %q, expected caller identity header", audits.gotOwner)
	}
	if audits.gotKey == "" {
		t.Error("client key should be derived from the request")
	}
}

func TestAnalyzeErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"empty url", sharedErrors.ErrEmptyURL, http.StatusBadRequest, sharedErrors.ErrEmptyURL.Error()},
		{"invalid url", sharedErrors.ErrInvalidURL, http.StatusBadRequest, sharedErrors.ErrInvalidURL.Error()},
		{"blocked target", sharedErrors.ErrBlockedTarget, http.StatusBadRequest, "cannot analyze this target"},
		{"rate limited", sharedErrors.ErrRateLimitExceeded, http.StatusTooManyRequests, sharedErrors.ErrRateLimitExceeded.Error()},
		{"crawl failed", sharedErrors.ErrCrawlFailed, http.StatusBadGateway, "failed to crawl the website"},
		{"cancelled", context.Canceled, http.StatusRequestTimeout, "request cancelled"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(Config{Audits: &stubAudits{err: tc.err}})
			rec := postAnalyze(t, srv, `{"url": "https://example.com/"}`, nil)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("non-JSON error body: %s", rec.Body.String())
			}
			if body["error"] != tc.wantBody {
				t.Errorf("error = %q, want %q", body["error"], tc.wantBody)
			}
		})
	}
}

func TestAnalyzeInternalErrorIsSanitized(t *testing.T) {
	srv := newTestServer(Config{Audits: &stubAudits{err: errors.New("pq: connection to 10.0.3.7 lost")}})
	rec := postAnalyze(t, srv, `{"url": "https://example.com/"}`, nil)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "10.0.3.7") {
		t.Fatal("internal error details must not reach the caller")
	}
	if !strings.Contains(rec.Body.String(), "internal server error") {
		t.Fatalf("expected generic message, got %s", rec.Body.String())
	}
}

func TestAnalyzeRetryAfterHeader(t *testing.T) {
	srv := newTestServer(Config{
		Audits:     &stubAudits{err: sharedErrors.ErrRateLimitExceeded},
		RetryHints: &stubRetry{wait: 30 * time.Second},
	})
	rec := postAnalyze(t, srv, `{"url": "https://example.com/"}`, nil)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "31" {
		t.Errorf("Retry-After = %q, want 31", got)
	}
}

func TestAnalyzeRejectsBadInput(t *testing.T) {
	srv := newTestServer(Config{Audits: &stubAudits{rep: sampleReport()}})

	t.Run("malformed body", func(t *testing.T) {
		rec := postAnalyze(t, srv, `{not json`, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("wrong method", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/analyze", nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("status = %d", rec.Code)
		}
	})
}

func TestAuthToken(t *testing.T) {
	srv := newTestServer(Config{
		Audits:    &stubAudits{rep: sampleReport()},
		AuthToken: "secret-token",
	})

	t.Run("missing token", func(t *testing.T) {
		rec := postAnalyze(t, srv, `{"url": "https://example.com/"}`, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("wrong token", func(t *testing.T) {
		rec := postAnalyze(t, srv, `{"url": "https://example.com/"}`, map[string]string{"X-Auth-Token": "nope"})
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("correct token", func(t *testing.T) {
		rec := postAnalyze(t, srv, `{"url": "https://example.com/"}`, map[string]string{"X-Auth-Token": "secret-token"})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
	})
}

func TestHealthEndpoints(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		srv := newTestServer(Config{Health: &stubHealth{}})
		req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("not ready", func(t *testing.T) {
		srv := newTestServer(Config{Health: &stubHealth{readyErr: errors.New("db down")}})
		req := httptest.NewRequest(http.MethodGet, "/api/v1/ready", nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d", rec.Code)
		}
	})
}

func TestReportEndpoints(t *testing.T) {
	rep := sampleReport()
	reports := &stubReports{
		reports: map[string]*report.Report{rep.ID: rep},
		list: []store.ReportSummary{
			{ID: rep.ID, URL: rep.URL, Overall: rep.Overall},
		},
	}
	srv := newTestServer(Config{Reports: reports})

	t.Run("list", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/reports?limit=10", nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var items []store.ReportSummary
		if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
			t.Fatalf("bad list body: %v", err)
		}
		if len(items) != 1 || items[0].ID != rep.ID {
			t.Fatalf("items = %+v", items)
		}
	})

	t.Run("get by id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/"+rep.ID, nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/does-not-exist", nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d", rec.Code)
		}
	})
}

func TestRequestIDEchoedOnResponse(t *testing.T) {
	srv := newTestServer(Config{Health: &stubHealth{}})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "trace-me-123")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "trace-me-123" {
		t.Errorf("X-Request-ID = %q", got)
	}

	// Without a client-supplied ID the server mints one.
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("server should generate a request ID")
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(Config{CORSOrigins: []string{"https://dashboard.example.com"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/analyze", nil)
	req.Header.Set("Origin", "https://dashboard.example.com")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://dashboard.example.com" {
		t.Errorf("allow-origin = %q", got)
	}

	// Unlisted origins get no CORS headers.
	req = httptest.NewRequest(http.MethodOptions, "/api/v1/analyze", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("unlisted origin must not be allowed")
	}
}

func TestClientIPForwarding(t *testing.T) {
	cases := []struct {
		name      string
		forwarded string
		want      string
	}{
		{"first hop wins", "203.0.113.9, 10.0.0.2", "203.0.113.9"},
		{"ipv4 with port is trimmed", "203.0.113.9:4312", "203.0.113.9"},
		// A bare IPv6 address has no port; colons inside it must
		// survive untouched.
		{"bare ipv6 is kept whole", "2001:db8::1", "2001:db8::1"},
		{"bracketed ipv6 with port is trimmed", "[2001:db8::1]:4312", "2001:db8::1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			audits := &stubAudits{rep: sampleReport()}
			srv := newTestServer(Config{Audits: audits})

			rec := postAnalyze(t, srv, `{"url": "https://example.com/"}`, map[string]string{
				"X-Forwarded-For": tc.forwarded,
			})
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			if audits.gotKey != tc.want {
				t.Errorf("client key = %q, want %q", audits.gotKey, tc.want)
			}
		})
	}
}
