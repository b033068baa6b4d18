package main

import (
	"context"
	"os"
	"os/signal"
	rdebug "runtime/debug"
	"syscall"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/msbuildls/cmd/msbuildls/inspect"
	"github.com/walteh/msbuildls/cmd/msbuildls/proxy"
	serve_lsp "github.com/walteh/msbuildls/cmd/msbuildls/serve-lsp"
	"github.com/walteh/msbuildls/cmd/msbuildls/symbols"
	"github.com/walteh/msbuildls/pkg/debug"
	"gitlab.com/tozd/go/errors"
)

func main() {
	if err := run(); err != nil {
		println(err.Error())
		os.Exit(1)
	}
}

func run() error {
	rootCmd := &cobra.Command{
		Use:          "msbuildls",
		Short:        "A language server for MSBuild project files",
		SilenceUsage: true,
	}

	info, ok := rdebug.ReadBuildInfo()
	if !ok {
		rootCmd.Version = "unknown"
	} else {
		rootCmd.Version = info.Main.Version
	}

	var logLevel string
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: trace, debug, info, warn or error")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		level := zerolog.WarnLevel
		if logLevel != "" {
			lvl, err := zerolog.ParseLevel(logLevel)
			if err != nil {
				return errors.Errorf("parsing log level: %w", err)
			}
			level = lvl
		}
		logger := debug.NewLogger(os.Stderr, level, true, !color.NoColor)
		cmd.SetContext(logger.WithContext(cmd.Context()))
		return nil
	}

	cmdVersion := &cobra.Command{
		Use: "raw-version",
		Run: func(cmdz *cobra.Command, args []string) {
			cmdz.Println(rootCmd.Version)
		},
		Hidden: true,
	}

	rootCmd.AddCommand(cmdVersion)
	rootCmd.AddCommand(serve_lsp.NewServeLSPCommand())
	rootCmd.AddCommand(inspect.NewInspectCommand())
	rootCmd.AddCommand(symbols.NewSymbolsCommand())
	rootCmd.AddCommand(proxy.NewProxyCommand())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return errors.Errorf("failed to execute command: %w", err)
	}

	return nil
}
