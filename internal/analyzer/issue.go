package analyzer

import (
	"encoding/json"
	"fmt"
)

// Category identifies which audit surface an issue belongs to.
type Category string

const (
	CategorySEO      Category = "seo"
	CategorySecurity Category = "security"
	CategoryAEO      Category = "aeo"
)

// Severity represents the risk level of a detected issue.
// Higher values are more severe, so findings can be compared directly.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// String returns a human-readable representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "Low"
	case SeverityMedium:
		return "Medium"
	case SeverityHigh:
		return "High"
	case SeverityCritical:
		return "Critical"
	default:
		return "Unknown"
	}
}

// MarshalJSON encodes the severity as its string form so API consumers
// never see raw enum values.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a severity from its string form.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw {
	case "Low":
		*s = SeverityLow
	case "Medium":
		*s = SeverityMedium
	case "High":
		*s = SeverityHigh
	case "Critical":
		*s = SeverityCritical
	default:
		return fmt.Errorf("unknown severity %q", raw)
	}
	return nil
}

// Issue is one detected audit finding. Issues are immutable once emitted
// by an analysis module; the explanation layer produces enriched copies
// via WithExplanation rather than mutating in place.
type Issue struct {
	Category Category `json:"category"`
	Title    string   `json:"title"`
	Severity Severity `json:"severity"`
	Details  string   `json:"details"`
	Impact   string   `json:"impact,omitempty"`
	Fix      string   `json:"fix,omitempty"`

	// QuickWin marks findings fixable by adding a single static file
	// or tag. The roadmap generator reserves a slot for these.
	QuickWin bool `json:"quick_win,omitempty"`
}

// WithExplanation returns a copy of the issue with impact and fix filled in.
func (i Issue) WithExplanation(impact, fix string) Issue {
	i.Impact = impact
	i.Fix = fix
	return i
}
