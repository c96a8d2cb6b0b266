package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/khanhnv2901/siteaudit/internal/shared/constants"
)

var cfgFile string
var logger *zap.Logger
var resultsDir string

var rootCmd = &cobra.Command{
	Use:   "siteaudit",
	Short: "Audit a web page for SEO, security, and AI answer-engine readiness",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// init config
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			viper.AddConfigPath("$HOME")
			viper.SetConfigName(".siteaudit")
			viper.SetConfigType("yaml")
		}
		viper.SetEnvPrefix("SITEAUDIT")
		viper.AutomaticEnv()

		setConfigDefaults()
		_ = viper.ReadInConfig()

		resultsDir = viper.GetString("results_dir")
		if resultsDir == "" {
			resultsDir = "./results"
		}
		if err := os.MkdirAll(resultsDir, constants.DefaultDirPerm); err != nil {
			return fmt.Errorf("failed to create results directory: %s", err.Error())
		}
		if abs, err := filepath.Abs(resultsDir); err == nil {
			resultsDir = abs
		}

		// init logger
		l, err := zap.NewProduction()
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		logger = l

		return nil
	},
}

func setConfigDefaults() {
	viper.SetDefault("fetch_timeout", constants.DefaultFetchTimeout)
	viper.SetDefault("audit_limit", constants.DefaultAuditLimit)
	viper.SetDefault("audit_window", constants.DefaultAuditWindow)
	viper.SetDefault("explain_endpoint", "https://api.groq.com/openai/v1")
	viper.SetDefault("explain_model", "llama3-8b-8192")
	viper.SetDefault("explain_timeout", constants.DefaultExplainTimeout)
	viper.SetDefault("explain_concurrency", constants.DefaultExplainConcurrency)
	viper.SetDefault("server_port", 8080)
	viper.SetDefault("http_rate_limit", 10)
	viper.SetDefault("http_rate_burst", 20)
}

type explainSettings struct {
	Endpoint    string
	APIKey      string
	Model       string
	Timeout     time.Duration
	Concurrency int
}

func explainConfig() explainSettings {
	return explainSettings{
		Endpoint:    viper.GetString("explain_endpoint"),
		APIKey:      viper.GetString("explain_api_key"),
		Model:       viper.GetString("explain_model"),
		Timeout:     viper.GetDuration("explain_timeout"),
		Concurrency: viper.GetInt("explain_concurrency"),
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.siteaudit.yaml)")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}
