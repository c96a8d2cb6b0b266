package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/khanhnv2901/siteaudit/internal/audit"
	"github.com/khanhnv2901/siteaudit/internal/explain"
	"github.com/khanhnv2901/siteaudit/internal/fetch"
	"github.com/khanhnv2901/siteaudit/internal/guard"
	"github.com/khanhnv2901/siteaudit/internal/report"
	"github.com/khanhnv2901/siteaudit/internal/shared/constants"
	"github.com/khanhnv2901/siteaudit/internal/shared/security"
	"github.com/khanhnv2901/siteaudit/internal/store"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <url>",
	Short: "Run a one-shot audit against a single URL",
	Args:  cobra.ExactArgs(1),
}

func init() {
	analyzeCmd.RunE = func(cmd *cobra.Command, args []string) error {
		target := args[0]
		format, save := outputOptions(cmd.Flags())

		pipeline, st, err := buildPipeline()
		if err != nil {
			return err
		}
		if st != nil {
			defer st.Close()
		}

		fmt.Printf("%s Auditing %s\n", colorInfo("→"), target)
		rep, err := pipeline.Run(cmd.Context(), audit.Request{URL: target})
		if err != nil {
			return err
		}

		printReport(rep)

		if save {
			path, err := writeReportFile(rep, format)
			if err != nil {
				return err
			}
			fmt.Printf("%s Report written to %s\n", colorSuccess("✓"), path)
		}
		return nil
	}
	analyzeCmd.Flags().String("format", "markdown", "Saved report format (markdown or json)")
	analyzeCmd.Flags().Bool("save", false, "Write the report into the results directory")
	analyzeCmd.Flags().Bool("no-explain", false, "Skip LLM explanations (template fallbacks only)")
}

func outputOptions(fs *pflag.FlagSet) (format string, save bool) {
	format, _ = fs.GetString("format")
	save, _ = fs.GetBool("save")
	return format, save
}

// buildPipeline wires the audit pipeline from config. The CLI runs
// without admission control: rate limiting protects the shared API
// deployment, not an operator's own terminal.
func buildPipeline() (*audit.Pipeline, store.Store, error) {
	fetchTimeout := viper.GetDuration("fetch_timeout")
	fetcher := fetch.NewHTTPFetcher(fetchTimeout)
	adapter := fetch.NewAdapter(fetcher, fetcher, logger)

	var explainer *explain.Orchestrator
	noExplain, _ := analyzeCmd.Flags().GetBool("no-explain")
	settings := explainConfig()
	if !noExplain && settings.APIKey != "" {
		client := explain.NewChatClient(settings.Endpoint, settings.APIKey, settings.Model, settings.Timeout)
		explainer = explain.NewOrchestrator(client, logger,
			explain.WithConcurrency(settings.Concurrency),
			explain.WithTimeout(settings.Timeout),
		)
	} else {
		explainer = explain.NewOrchestrator(nil, logger)
	}

	st, err := store.Open(resultsDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open report store: %w", err)
	}

	pipeline := audit.New(audit.Config{
		Guard:     guard.New(),
		Fetcher:   adapter,
		Explainer: explainer,
		Store:     st,
		Logger:    logger,
	})
	return pipeline, st, nil
}

func printReport(rep *report.Report) {
	fmt.Println()
	fmt.Printf("Overall score: %v/100\n", colorScore(rep.Overall))
	fmt.Printf("  SEO:      %v (%d issue(s))\n", colorScore(rep.SEO.Score), len(rep.SEO.Issues))
	fmt.Printf("  Security: %v (%d issue(s))\n", colorScore(rep.Security.Score), len(rep.Security.Issues))
	fmt.Printf("  AEO:      %v (%d issue(s))\n", colorScore(rep.AEO.Score), len(rep.AEO.Issues))
	fmt.Println()

	for _, issue := range rep.AllIssues() {
		fmt.Printf("  [%s] %s — %s\n", colorSeverity(issue.Severity), issue.Title, issue.Details)
		if issue.Fix != "" {
			fmt.Printf("      fix: %s\n", issue.Fix)
		}
	}

	if len(rep.QuickFixes) > 0 {
		fmt.Printf("\n%s Roadmap:\n", colorInfo("→"))
		for i, fix := range rep.QuickFixes {
			fmt.Printf("  %d. [%s] %s (%s)\n", i+1, fix.Priority, fix.Action, fix.Effort)
		}
	}
}

func writeReportFile(rep *report.Report, format string) (string, error) {
	stamp := time.Now().UTC().Format("20060102-150405")
	switch format {
	case "json":
		path, err := security.ResolveWithin(resultsDir, fmt.Sprintf("audit-%s.json", stamp))
		if err != nil {
			return "", err
		}
		data, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal report: %w", err)
		}
		if err := os.WriteFile(path, data, constants.DefaultFilePerm); err != nil {
			return "", fmt.Errorf("write report: %w", err)
		}
		return path, nil
	case "markdown":
		path, err := security.ResolveWithin(resultsDir, fmt.Sprintf("audit-%s.md", stamp))
		if err != nil {
			return "", err
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, constants.DefaultFilePerm)
		if err != nil {
			return "", fmt.Errorf("create report file: %w", err)
		}
		defer f.Close()
		if err := report.NewMarkdownWriter(f).Write(rep); err != nil {
			return "", fmt.Errorf("render report: %w", err)
		}
		return path, nil
	default:
		return "", fmt.Errorf("unsupported format %q (use markdown or json)", format)
	}
}
