package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/khanhnv2901/siteaudit/internal/api"
	"github.com/khanhnv2901/siteaudit/internal/audit"
	"github.com/khanhnv2901/siteaudit/internal/explain"
	"github.com/khanhnv2901/siteaudit/internal/fetch"
	"github.com/khanhnv2901/siteaudit/internal/guard"
	"github.com/khanhnv2901/siteaudit/internal/ratelimit"
	"github.com/khanhnv2901/siteaudit/internal/report"
	"github.com/khanhnv2901/siteaudit/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run siteaudit as a REST API service",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		authToken, _ := cmd.Flags().GetString("auth-token")
		shutdownTimeout, _ := cmd.Flags().GetDuration("shutdown-timeout")
		corsOrigins, _ := cmd.Flags().GetStringSlice("cors-origins")

		if addr == "" {
			addr = fmt.Sprintf("127.0.0.1:%d", viper.GetInt("server_port"))
		}
		if authToken == "" {
			authToken = viper.GetString("auth_token")
		}

		defer func() {
			if err := logger.Sync(); err != nil {
				fmt.Fprintf(os.Stderr, "failed to sync logger: %v\n", err)
			}
		}()

		st, err := store.Open(resultsDir)
		if err != nil {
			return fmt.Errorf("open report store: %w", err)
		}
		defer st.Close()

		limiter := ratelimit.New(viper.GetInt("audit_limit"), viper.GetDuration("audit_window"))

		fetcher := fetch.NewHTTPFetcher(viper.GetDuration("fetch_timeout"))
		adapter := fetch.NewAdapter(fetcher, fetcher, logger)

		var explainer *explain.Orchestrator
		settings := explainConfig()
		if settings.APIKey != "" {
			client := explain.NewChatClient(settings.Endpoint, settings.APIKey, settings.Model, settings.Timeout)
			explainer = explain.NewOrchestrator(client, logger,
				explain.WithConcurrency(settings.Concurrency),
				explain.WithTimeout(settings.Timeout),
			)
		} else {
			logger.Warn("no explain API key configured, using template explanations")
			explainer = explain.NewOrchestrator(nil, logger)
		}

		pipeline := audit.New(audit.Config{
			Guard:     guard.New(),
			Limiter:   limiter,
			Fetcher:   adapter,
			Explainer: explainer,
			Store:     st,
			Logger:    logger,
		})

		server := api.NewServer(api.Config{
			Audits:      &auditAPIService{pipeline: pipeline},
			Reports:     st,
			Health:      &healthAPIService{store: st},
			RetryHints:  limiter,
			AuthToken:   authToken,
			Logger:      logger,
			CORSOrigins: corsOrigins,
			RateLimit:   viper.GetInt("http_rate_limit"),
			RateBurst:   viper.GetInt("http_rate_burst"),
		})

		httpServer := &http.Server{
			Addr:         addr,
			Handler:      server,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		}

		// Drop idle admission windows so the limiter map cannot grow
		// without bound across long uptimes.
		evictDone := make(chan struct{})
		go func() {
			ticker := time.NewTicker(5 * time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					limiter.Evict()
				case <-evictDone:
					return
				}
			}
		}()
		defer close(evictDone)

		// Channel to listen for errors from the server
		serverErrors := make(chan error, 1)

		// Start server in a goroutine
		go func() {
			fmt.Printf("%s API server listening on %s (results dir: %s)\n", colorInfo("→"), addr, resultsDir)
			fmt.Printf("%s Press Ctrl+C to gracefully shutdown\n", colorInfo("→"))
			serverErrors <- httpServer.ListenAndServe()
		}()

		// Channel to listen for interrupt signals
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		// Block until we receive a signal or an error
		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
		case sig := <-shutdown:
			fmt.Printf("\n%s Received signal %v, initiating graceful shutdown...\n", colorInfo("→"), sig)

			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := httpServer.Shutdown(ctx); err != nil {
				// Force close if graceful shutdown fails
				if closeErr := httpServer.Close(); closeErr != nil {
					return fmt.Errorf("failed to gracefully shutdown server: %w (close error: %v)", err, closeErr)
				}
				return fmt.Errorf("failed to gracefully shutdown server: %w", err)
			}

			fmt.Printf("%s Server shutdown complete\n", colorSuccess("✓"))
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Address for the API server (default 127.0.0.1:<server_port>)")
	serveCmd.Flags().String("auth-token", "", "Optional shared secret for API requests")
	serveCmd.Flags().Duration("shutdown-timeout", 30*time.Second, "Graceful shutdown timeout")
	serveCmd.Flags().StringSlice("cors-origins", nil, "Allowed CORS origins (empty allows all)")
}

// auditAPIService adapts the audit pipeline to the API contract.
type auditAPIService struct {
	pipeline *audit.Pipeline
}

func (s *auditAPIService) Analyze(ctx context.Context, url, clientKey, owner string) (*report.Report, error) {
	return s.pipeline.Run(ctx, audit.Request{URL: url, ClientKey: clientKey, Owner: owner})
}

// healthAPIService reports liveness and readiness. Readiness requires
// the report database to answer a query.
type healthAPIService struct {
	store store.Store
}

func (s *healthAPIService) Check(ctx context.Context) error {
	return nil
}

func (s *healthAPIService) Ready(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	_, err := s.store.ListReports(ctx, 1)
	return err
}
