package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/loopwork-ai/sercop-mcp/internal"
	"github.com/loopwork-ai/sercop-mcp/internal/config"
	"github.com/loopwork-ai/sercop-mcp/mcp"
	"github.com/loopwork-ai/sercop-mcp/sercop"
)

const serverName = "sercop-mcp"

var rootCmd = &cobra.Command{
	Use:   "sercop-mcp",
	Short: "An MCP server for the SERCOP open contracting data API",
	Long: `sercop-mcp exposes the open data API of Ecuador's public procurement
service (SERCOP) as Model Context Protocol tools over stdio:

- list-datasets: list the datasets published by the API
- search-processes: search contracting processes by keyword and year
- get-process-by-ocid: fetch one contracting process by its OCID

JSON-RPC requests are read from stdin and responses written to stdout.
Diagnostics go to stderr.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		g, ctx := errgroup.WithContext(ctx)

		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}))

		g.Go(func() error {
			cfg, err := config.LoadFile(configPath)
			if err != nil {
				return fmt.Errorf("error loading config: %w", err)
			}

			server, err := newServer(cfg, logger)
			if err != nil {
				return fmt.Errorf("error creating server: %w", err)
			}

			transport := mcp.NewStdioTransport(os.Stdin, os.Stdout, os.Stderr)
			logger.Info("SERCOP MCP Server running on stdio")
			if err := transport.Run(ctx, server); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})

		return g.Wait()
	},
}

func newServer(cfg *config.Config, logger *slog.Logger) (*mcp.Server, error) {
	catalog, err := sercop.DefaultCatalog()
	if err != nil {
		return nil, err
	}
	if catalog.ServerURL() != sercop.BaseURL {
		return nil, fmt.Errorf("API description points at %q, expected %q", catalog.ServerURL(), sercop.BaseURL)
	}

	client := sercop.NewClient(
		sercop.WithHTTPClient(newHTTPClient(cfg, logger)),
		sercop.WithLogger(logger),
	)

	var toolOpts []sercop.ToolsOption
	if cfg.DatasetsEndpoint != "" {
		toolOpts = append(toolOpts, sercop.WithDatasetsEndpoint(cfg.DatasetsEndpoint))
	}

	var tools []mcp.ToolDefinition
	for _, def := range sercop.NewTools(client, catalog, toolOpts...).Definitions() {
		if cfg.IsToolDisabled(def.Tool.Name) {
			logger.Debug("tool disabled by config", "tool", def.Tool.Name)
			continue
		}
		tools = append(tools, def)
	}

	return mcp.NewServer(
		mcp.WithServerInfo(serverName, version),
		mcp.WithInstructions("Query Ecuador's public procurement (SERCOP) open contracting data. Search by year and keyword, then fetch full records by OCID."),
		mcp.WithLogger(logger),
		mcp.WithTools(tools...),
	)
}

// newHTTPClient returns a client that makes exactly one attempt per call.
// Non-2xx responses are passed through so the caller sees the status.
func newHTTPClient(cfg *config.Config, logger *slog.Logger) *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 0
	retryClient.CheckRetry = func(ctx context.Context, _ *http.Response, _ error) (bool, error) {
		return false, ctx.Err()
	}
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.HTTPClient.Timeout = timeout
	retryClient.Logger = nil
	if verbose {
		retryClient.Logger = debugLogger{logger}
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = serverName + "/" + version
	}

	client := retryClient.StandardClient()
	client.Transport = &internal.HeaderTransport{
		Base: client.Transport,
		Headers: http.Header{
			"User-Agent": {userAgent},
			"Accept":     {"application/json"},
		},
	}
	return client
}

// debugLogger records every HTTP client message at debug level.
// Upstream failures are already reported once by the tool that made the call.
type debugLogger struct {
	logger *slog.Logger
}

func (l debugLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l debugLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l debugLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l debugLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

var (
	verbose    bool
	timeout    time.Duration
	configPath string

	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func init() {
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging to stderr")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 0, "HTTP request timeout (0 uses the platform default)")
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to an optional YAML config file")

	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built at: %s)", version, commit, date)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Fatal error:", err)
		os.Exit(1)
	}
}
