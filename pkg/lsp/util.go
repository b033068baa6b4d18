package lsp

import (
	"io"

	"go.uber.org/multierr"
)

// Stdio joins a reader and a writer, such as os.Stdin and os.Stdout, into
// the io.ReadWriteCloser the transport needs.
type Stdio struct {
	io.Reader
	io.Writer
	closers []io.Closer
}

func NewStdio(r io.ReadCloser, w io.WriteCloser) *Stdio {
	return &Stdio{Reader: r, Writer: w, closers: []io.Closer{r, w}}
}

// Close closes both halves and reports every failure.
func (s *Stdio) Close() error {
	var err error
	for _, c := range s.closers {
		err = multierr.Append(err, c.Close())
	}
	return err
}
