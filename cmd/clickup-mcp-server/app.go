package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"pkt.systems/pslog"

	"github.com/WayneSimpson/clickup-mcp-server/internal/svcfields"
	"github.com/WayneSimpson/clickup-mcp-server/internal/version"
	"github.com/WayneSimpson/clickup-mcp-server/mcpserver"
)

func submain(ctx context.Context) int {
	baseLogger := pslog.LoggerFromEnv(
		pslog.WithEnvPrefix("CLICKUP_MCP_LOG_"),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeStructured, MinLevel: pslog.InfoLevel}),
		pslog.WithEnvWriter(os.Stderr),
	).With("app", "clickup-mcp-server")

	cmd := newRootCommand(baseLogger)
	ctx = withSignalCancel(ctx)
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			svcfields.WithSubsystem(baseLogger, "cli.root").Error("command failed", "error", err)
		}
		return 1
	}
	return 0
}

func newRootCommand(baseLogger pslog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "clickup-mcp-server",
		Short:         "MCP connector exposing ClickUp task search and retrieval",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := mcpserver.Config{
				Listen:             viper.GetString("listen"),
				ServerVersion:      version.Current(),
				MCPPath:            viper.GetString("mcp-path"),
				ClickUpAPIToken:    viper.GetString("clickup-token"),
				ClickUpTeamID:      viper.GetString("clickup-team-id"),
				ClickUpBaseURL:     viper.GetString("clickup-base-url"),
				ClickUpHTTPTimeout: viper.GetDuration("clickup-timeout"),
				SessionIdleTimeout: viper.GetDuration("session-idle-timeout"),
				ShutdownTimeout:    viper.GetDuration("shutdown-timeout"),
				EnableHTTPTracing:  viper.GetBool("enable-http-tracing"),
			}
			srv, err := mcpserver.NewServer(mcpserver.NewServerRequest{
				Config: cfg,
				Logger: baseLogger,
			})
			if err != nil {
				return err
			}
			return srv.Run(cmd.Context())
		},
	}

	flags := cmd.Flags()
	flags.String("listen", ":8787", "host:port the HTTP server binds to")
	flags.String("mcp-path", "/mcp", "path serving the streamable HTTP transport")
	flags.String("clickup-token", "", "ClickUp personal API token (empty serves catalog-only results)")
	flags.String("clickup-team-id", "", "ClickUp workspace (team) id used for task listings")
	flags.String("clickup-base-url", "", "override for the ClickUp API base URL")
	flags.Duration("clickup-timeout", 30*time.Second, "HTTP timeout for ClickUp API calls")
	flags.Duration("session-idle-timeout", 30*time.Minute, "idle duration after which sessions are closed")
	flags.Duration("shutdown-timeout", 10*time.Second, "grace period for draining connections on shutdown")
	flags.Bool("enable-http-tracing", false, "wrap the HTTP handler in otel instrumentation")

	viper.SetEnvPrefix("CLICKUP_MCP")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	for _, name := range []string{
		"listen", "mcp-path",
		"clickup-token", "clickup-team-id", "clickup-base-url", "clickup-timeout",
		"session-idle-timeout", "shutdown-timeout", "enable-http-tracing",
	} {
		mustBindFlag(name, flags.Lookup(name))
	}

	cmd.AddCommand(newVersionCommand())
	return cmd
}

func mustBindFlag(key string, flag *pflag.Flag) {
	if flag == nil {
		panic(fmt.Sprintf("flag %q not found", key))
	}
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}

func withSignalCancel(ctx context.Context) context.Context {
	ctx, cancel := context.WithCancel(ctx)
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(signals)
	}()
	return ctx
}
