package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yungbote/crawler-api/internal/app"
)

var flagConfigPath string

func main() {
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "YAML config overlay (overrides CRAWLER_CONFIG_PATH)")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		if flagConfigPath != "" {
			return os.Setenv("CRAWLER_CONFIG_PATH", flagConfigPath)
		}
		return nil
	}
	rootCmd.AddCommand(serveCmd, migrateCmd, versionCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "crawler-api: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "crawler-api",
	Short:         "Scan orchestration API for the datasheet crawler",
	SilenceUsage:  true,
	SilenceErrors: true,
	// Running without a subcommand serves, matching container entrypoints.
	RunE: serve,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API until SIGINT/SIGTERM",
	RunE:  serve,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return app.Migrate()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, _ []string) {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "crawler-api: build info not available")
			return
		}
		fmt.Fprintf(cmd.OutOrStdout(), "crawler-api: %s\ngo:          %s\n", info.Main.Version, info.GoVersion)
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" {
				fmt.Fprintf(cmd.OutOrStdout(), "commit:      %s\n", s.Value)
			}
		}
	},
}

func serve(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := app.New(ctx)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()

	if err := a.Run(ctx); err != nil {
		a.Log.Error("Server exited with error", "error", err)
		return err
	}
	a.Log.Info("Server stopped")
	return nil
}
