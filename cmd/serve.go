package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/zjrosen/dispatch/internal/config"
	"github.com/zjrosen/dispatch/internal/log"
	"github.com/zjrosen/dispatch/internal/mcp"
	"github.com/zjrosen/dispatch/internal/pubsub"
)

var (
	serveTransport string
	serveAddr      string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the registry to MCP clients",
	Long: `Expose the command registry over the Model Context Protocol.

The stdio transport speaks newline-delimited JSON-RPC on stdin/stdout
and suits editor and agent integrations. The http transport serves
JSON-RPC over POST with a server-sent-event stream of tool calls.

Examples:
  dispatch serve
  dispatch serve --transport http --addr 127.0.0.1:3100`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if serveTransport != "" {
			cfg.Server.Transport = serveTransport
		}
		if serveAddr != "" {
			cfg.Server.Addr = serveAddr
		}

		a, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close(context.Background()) //nolint:errcheck

		events := pubsub.NewBroker[mcp.ToolCallEvent]()
		adapter := mcp.NewAdapter(a.reg, mcp.AdapterConfig{
			Info: mcp.ServerInfo{
				Name:    cfg.Server.Name,
				Version: cfg.Server.Version,
			},
			Instructions: cfg.Server.Instructions,
			Events:       events,
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		go logPipelineProgress(ctx, a)
		go logSessionChanges(ctx, a)
		watchLogLevel(ctx)

		switch cfg.Server.Transport {
		case "stdio":
			return mcp.NewStdioServer(adapter).Serve(ctx)
		case "http":
			a.reg.MustRegister(mcp.NewEventsCommand(cfg.Server.Addr))
			return serveHTTP(ctx, mcp.NewHTTPServer(adapter, cfg.Server.Addr, events))
		default:
			return fmt.Errorf("unknown transport %q, expected stdio or http", cfg.Server.Transport)
		}
	},
}

// logPipelineProgress mirrors per-step pipeline progress into the log
// so long chains can be followed while the server runs.
func logPipelineProgress(ctx context.Context, a *app) {
	events := a.progress.Subscribe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			update := ev.Payload
			log.Debug(log.CatPipeline, "pipeline step",
				"pipelineId", update.PipelineID,
				"command", update.Command,
				"status", string(update.Status),
				"step", update.StepIndex+1,
				"total", update.TotalSteps,
			)
		}
	}
}

// logSessionChanges mirrors sign-ins and sign-outs into the log.
func logSessionChanges(ctx context.Context, a *app) {
	events := a.sessions.Subscribe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			state := ev.Payload
			fields := []any{"status", string(state.Status)}
			if state.User != nil {
				fields = append(fields, "user", state.User.ID)
			}
			log.Info(log.CatAuth, "session changed", fields...)
		}
	}
}

// watchLogLevel re-reads the config file on change and applies the log
// level, so verbosity can be adjusted without restarting the server.
func watchLogLevel(ctx context.Context) {
	if cfgUsed == "" {
		return
	}
	w, err := config.NewWatcher(cfgUsed, config.DefaultDebounce)
	if err != nil {
		return
	}
	changes, err := w.Start()
	if err != nil {
		w.Stop()
		return
	}
	go func() {
		defer w.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
				reloaded, _, err := config.Load(cfgUsed)
				if err != nil {
					log.Warn(log.CatConfig, "config reload failed", "error", err.Error())
					continue
				}
				log.SetMinLevel(logLevel(reloaded.Log.Level))
				log.Info(log.CatConfig, "log level applied", "level", reloaded.Log.Level)
			}
		}
	}()
}

func serveHTTP(ctx context.Context, server *mcp.HTTPServer) error {
	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info(log.CatMCP, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		return <-errCh
	}
}

func init() {
	serveCmd.Flags().StringVar(&serveTransport, "transport", "", "transport to serve on (stdio or http, overrides config)")
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address for the http transport (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
