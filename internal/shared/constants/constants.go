package constants

import (
	"io/fs"
	"time"
)

const (
	// DefaultDirPerm is the default permission used when creating directories.
	DefaultDirPerm fs.FileMode = 0o755
	// DefaultFilePerm is the default permission used when creating files.
	DefaultFilePerm fs.FileMode = 0o644
)

const (
	// MaxBodyBytes caps how much of a crawled page body is read and analyzed.
	MaxBodyBytes = 2 * 1024 * 1024
	// MaxRobotsBytes caps the robots.txt body read during the probe.
	MaxRobotsBytes = 64 * 1024
	// DefaultFetchTimeout bounds the single crawl attempt per audit.
	DefaultFetchTimeout = 15 * time.Second
	// WellKnownProbeTimeout bounds each advisory-file existence probe.
	WellKnownProbeTimeout = 5 * time.Second
	// DefaultExplainTimeout bounds one explanation call.
	DefaultExplainTimeout = 20 * time.Second
	// DefaultExplainConcurrency caps concurrent explanation calls per audit.
	DefaultExplainConcurrency = 4
)

const (
	// DefaultAuditLimit is how many audits a single client may start
	// inside one rolling window.
	DefaultAuditLimit = 5
	// DefaultAuditWindow is the rolling admission window.
	DefaultAuditWindow = time.Hour
)

const (
	// ThinContentWords is the minimum word count before a page is
	// flagged as thin content.
	ThinContentWords = 300
	// MaxDOMElements is the element count above which a page is flagged
	// as overly complex.
	MaxDOMElements = 1500
	// MetaDescriptionMin and MetaDescriptionMax bound the recommended
	// meta description length.
	MetaDescriptionMin = 50
	MetaDescriptionMax = 160
	// AnswerWordsMin and AnswerWordsMax bound the answer-paragraph
	// length that answer engines prefer.
	AnswerWordsMin = 40
	AnswerWordsMax = 60
	// MaxAltIssues caps per-image alt-text findings before they collapse
	// into a single summary finding.
	MaxAltIssues = 5
	// ReadabilityMinWords and ReadabilityMinSentences gate the reading
	// ease check; shorter fragments do not carry enough prose to score.
	ReadabilityMinWords     = 100
	ReadabilityMinSentences = 3
	// ReadabilityFloor is the Flesch reading ease score below which the
	// text is flagged as hard to read.
	ReadabilityFloor = 50
)
