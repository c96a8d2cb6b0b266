package cmd

import (
	"github.com/fatih/color"

	"github.com/khanhnv2901/siteaudit/internal/analyzer"
)

var (
	colorSuccess = color.New(color.FgGreen).SprintFunc()
	colorInfo    = color.New(color.FgCyan).SprintFunc()
	colorWarn    = color.New(color.FgYellow).SprintFunc()
	colorError   = color.New(color.FgRed).SprintFunc()
)

func colorSeverity(s analyzer.Severity) string {
	switch s {
	case analyzer.SeverityCritical, analyzer.SeverityHigh:
		return colorError(s.String())
	case analyzer.SeverityMedium:
		return colorWarn(s.String())
	default:
		return colorInfo(s.String())
	}
}

func colorScore(score int) string {
	switch {
	case score >= 90:
		return colorSuccess(score)
	case score >= 70:
		return colorWarn(score)
	default:
		return colorError(score)
	}
}
