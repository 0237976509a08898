package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sha1n/ruleflat/internal/app"
	"github.com/sha1n/ruleflat/internal/config"
	"github.com/spf13/cobra"
)

var (
	// Version is injected at build time
	Version = "dev"
	// Build is injected at build time
	Build = "unknown"
	// ProgramName is injected at build time
	ProgramName = "ruleflat"
)

func main() {
	runMain(os.Args, os.Exit)
}

func runMain(args []string, exit func(int)) {
	if err := Execute(Version, Build, ProgramName, args[1:]); err != nil {
		exit(1)
	}
}

// Execute is the entry point for the CLI, extracted for testing
func Execute(version, build, programName string, args []string) error {
	rootCmd := &cobra.Command{
		Use:   programName,
		Short: "Flatten sing-box domain rule sets into tagged text lists",
		Long: `Downloads sing-box rule-set JSON files from the configured remote folders,
flattens them into full:/domain:/keyword:/regexp: lines, merges rule sets that
share a file name across folders and writes one deduplicated file per rule set.`,
		Version:      version,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return app.RunWithDeps(ctx, app.DefaultRunParams(), cmd.Flags(), version)
		},
	}

	rootCmd.SetVersionTemplate(`{{.Version}}
`)
	app.RegisterFlags(rootCmd.Flags())

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the generated rule sets over MCP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return app.ServeWithDeps(ctx, app.DefaultServeParams(), cmd.Flags(), version)
		},
	}
	app.RegisterServeFlags(serveCmd.Flags())

	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find rules in the index built by the last run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := app.SearchParams{
				LoadSettings: config.LoadSettingsWithFlags,
				Out:          cmd.OutOrStdout(),
			}
			return app.SearchWithDeps(params, cmd.Flags(), args[0])
		},
	}
	app.RegisterSearchFlags(searchCmd.Flags())

	rootCmd.AddCommand(serveCmd, searchCmd)
	rootCmd.SetArgs(args)

	return rootCmd.ExecuteContext(context.Background())
}
