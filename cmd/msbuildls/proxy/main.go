package proxy

import (
	"context"
	"io"
	"net"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
)

type Handler struct {
	socket string

	in  io.Reader
	out io.Writer
}

func NewHandler(socket string, in io.Reader, out io.Writer) *Handler {
	return &Handler{socket: socket, in: in, out: out}
}

func NewProxyCommand() *cobra.Command {
	me := &Handler{}

	cmd := &cobra.Command{
		Use:   "proxy <socket-path>",
		Short: "connect stdio to a language server started with serve-lsp --socket",
	}

	cmd.Args = cobra.ExactArgs(1)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		me.socket = args[0]
		me.in = os.Stdin
		me.out = cmd.OutOrStdout()
		return me.Run(cmd.Context())
	}

	return cmd
}

// Run copies in to the socket and the socket to out until either side is
// closed or ctx is done.
func (me *Handler) Run(ctx context.Context) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", me.socket)
	if err != nil {
		return errors.Errorf("connecting to socket %s: %w", me.socket, err)
	}
	defer conn.Close()

	zerolog.Ctx(ctx).Debug().Str("socket", me.socket).Msg("proxy connected")

	done := make(chan error, 2)
	go func() {
		_, err := io.Copy(conn, me.in)
		done <- err
	}()
	go func() {
		_, err := io.Copy(me.out, conn)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil && !errors.Is(err, net.ErrClosed) {
			return errors.Errorf("proxying %s: %w", me.socket, err)
		}
		return nil
	case <-ctx.Done():
		return nil
	}
}
