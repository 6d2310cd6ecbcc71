package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/marquee/internal/config"
	"github.com/jackzampolin/marquee/internal/schema"
	"github.com/jackzampolin/marquee/internal/server"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Marquee server",
	Long: `Start the Marquee HTTP server.

The server provides:
  - /             - Upload form
  - /api/schemas  - Schema names
  - /api/extract  - Poster extraction (multipart: schema, upload)
  - /health       - Basic server health check
  - /ready        - Readiness check (a default LLM provider is configured)
  - /swagger      - API documentation

The config file is watched; provider changes apply without a restart.

Examples:
  marquee serve                    # Start on default port 8080
  marquee serve --port 3000        # Start on custom port
  marquee serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfgMgr, err := loadConfig()
		if err != nil {
			return err
		}
		cfg := cfgMgr.Get()

		logger, err := newLogger(os.Stdout, cfg.Log)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		cfgMgr.SetLogger(logger)

		schemas, err := schema.NewRegistry(cfg.SchemaDefinitions()...)
		if err != nil {
			return err
		}
		if err := schemas.Check(); err != nil {
			return fmt.Errorf("invalid schema configuration: %w", err)
		}

		host, port := cfg.Server.Host, cfg.Server.Port
		if cmd.Flags().Changed("host") {
			host = serveHost
		}
		if cmd.Flags().Changed("port") {
			port = servePort
		}

		if file := cfgMgr.ConfigFile(); file != "" {
			logger.Info("loaded config", "file", file)
		} else {
			logger.Info("no config file found, using defaults")
		}

		srv, err := server.New(server.Config{
			Host:          host,
			Port:          port,
			ConfigManager: cfgMgr,
			Logger:        logger,
			Schemas:       schemas,
		})
		if err != nil {
			return err
		}

		cfgMgr.WatchConfig()

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

// newLogger builds the process logger from the log config.
func newLogger(w io.Writer, cfg config.LogCfg) (*slog.Logger, error) {
	var level slog.Level
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
	}
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(cfg.Format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q (want text or json)", cfg.Format)
	}
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Host to bind to (overrides server.host)")
	serveCmd.Flags().StringVar(&servePort, "port", "8080", "Port to listen on (overrides server.port)")

	rootCmd.AddCommand(serveCmd)
}
