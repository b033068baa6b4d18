package serve_lsp

import (
	"context"
	"io"
	"net"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/walteh/msbuildls/pkg/config"
	"github.com/walteh/msbuildls/pkg/lsp"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

type Handler struct {
	mirrorLogs bool
	logFile    string
	socket     string
	logLevel   string
	version    string
}

func NewServeLSPCommand() *cobra.Command {
	me := &Handler{}

	cmd := &cobra.Command{
		Use:   "serve-lsp",
		Short: "start the language server on stdio or a unix socket",
	}

	cmd.Flags().BoolVar(&me.mirrorLogs, "mirror-logs", false, "also send log entries to the client as window/logMessage")
	cmd.Flags().StringVar(&me.logFile, "log-file", "", "write the server log to this file instead of stderr")
	cmd.Flags().StringVar(&me.socket, "socket", "", "listen on this unix socket and serve every connection; see the proxy command")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		me.version = cmd.Root().Version
		me.logLevel, _ = cmd.Flags().GetString("log-level")
		return me.Run(cmd.Context())
	}

	return cmd
}

func (me *Handler) Run(ctx context.Context) error {
	fs := afero.NewOsFs()

	dir, err := os.Getwd()
	if err != nil {
		return errors.Errorf("getting working directory: %w", err)
	}
	settings, err := config.Load(fs, dir)
	if err != nil {
		return errors.Errorf("loading settings: %w", err)
	}
	settings = settings.Merge(config.Settings{LogLevel: me.logLevel, LogFile: me.logFile})

	var out io.Writer = os.Stderr
	if settings.LogFile != "" {
		f, err := fs.OpenFile(settings.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return errors.Errorf("opening log file: %w", err)
		}
		defer f.Close()
		out = f
	}

	opts := lsp.Options{
		Fs:         fs,
		Settings:   settings,
		Version:    me.version,
		LogOutput:  out,
		MirrorLogs: me.mirrorLogs,
	}

	if me.socket != "" {
		return me.ServeSocket(ctx, me.socket, opts)
	}

	server := lsp.NewServer(ctx, opts)
	if err := server.Serve(ctx, lsp.NewStdio(os.Stdin, os.Stdout)); err != nil && !errors.Is(err, context.Canceled) {
		return errors.Errorf("error running language server: %w", err)
	}

	return nil
}

// ServeSocket accepts connections on the unix socket until ctx is done. Each
// connection gets its own server and session.
func (me *Handler) ServeSocket(ctx context.Context, socket string, opts lsp.Options) error {
	logger := zerolog.Ctx(ctx)

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "unix", socket)
	if err != nil {
		return errors.Errorf("listening on %s: %w", socket, err)
	}
	defer ln.Close()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	logger.Info().Str("socket", socket).Msg("listening")

	var g errgroup.Group
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return g.Wait()
			}
			return errors.Errorf("accepting connection: %w", err)
		}

		g.Go(func() error {
			server := lsp.NewServer(ctx, opts)
			if err := server.Serve(ctx, conn); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("connection failed")
			}
			return nil
		})
	}
}
