package errors

import "errors"

// Domain errors
var (
	// Request validation errors (surfaced verbatim to the caller)
	ErrInvalidURL = errors.New("invalid URL: only http and https targets are supported")
	ErrEmptyURL   = errors.New("url cannot be empty")

	// Guard errors (surfaced generically; the address-range logic stays internal)
	ErrBlockedTarget = errors.New("cannot analyze this target")

	// Admission errors
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// Fetch errors (no upstream internals cross this boundary)
	ErrCrawlFailed = errors.New("failed to crawl the website")

	// Store errors
	ErrReportNotFound = errors.New("report not found")
)
