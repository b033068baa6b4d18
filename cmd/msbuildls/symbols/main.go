package symbols

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/walteh/msbuildls/pkg/config"
	"github.com/walteh/msbuildls/pkg/document"
	"github.com/walteh/msbuildls/pkg/finder"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

var (
	file = color.New(color.Bold).SprintFunc()
	kind = color.New(color.FgCyan).SprintFunc()
	warn = color.New(color.FgYellow).SprintFunc()
)

type Handler struct {
	files []string

	fs  afero.Fs
	out io.Writer
}

func NewSymbolsCommand() *cobra.Command {
	me := &Handler{}

	cmd := &cobra.Command{
		Use:   "symbols <file-or-dir>...",
		Short: "list the semantic objects of project and solution files",
		Long:  "list the semantic objects of project and solution files; a directory argument is searched for project files",
	}

	cmd.Args = cobra.MinimumNArgs(1)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		me.files = args
		me.fs = afero.NewOsFs()
		me.out = cmd.OutOrStdout()
		return me.Run(cmd.Context())
	}

	return cmd
}

// Symbol is one line of output.
type Symbol struct {
	Kind  string
	Name  string
	Range string
}

// Listing is the result for one file. Err is set when the file was read but
// could not be evaluated.
type Listing struct {
	Path    string
	Symbols []Symbol
	Err     error
}

func (me *Handler) Run(ctx context.Context) error {
	listings, err := me.List(ctx)
	if err != nil {
		return err
	}
	for _, l := range listings {
		fmt.Fprintln(me.out, file(l.Path))
		if l.Err != nil {
			fmt.Fprintf(me.out, "  %s %v\n", warn("unavailable:"), l.Err)
			continue
		}
		for _, s := range l.Symbols {
			fmt.Fprintf(me.out, "  %-20s %-30s %s\n", kind(s.Kind), s.Name, s.Range)
		}
	}
	return nil
}

// List loads every file concurrently and returns the listings in argument
// order.
func (me *Handler) List(ctx context.Context) ([]Listing, error) {
	dir := "."
	if len(me.files) > 0 {
		dir = me.files[0]
		if isDir, err := afero.IsDir(me.fs, dir); err != nil || !isDir {
			dir = filepath.Dir(dir)
		}
	}
	settings, err := config.Load(me.fs, dir)
	if err != nil {
		return nil, errors.Errorf("loading settings: %w", err)
	}

	ws := document.NewWorkspace(me.fs, settings.EvaluationOptions(), *zerolog.Ctx(ctx))
	defer ws.CloseAll(context.WithoutCancel(ctx))

	paths, err := me.expand(ctx)
	if err != nil {
		return nil, err
	}

	listings := make([]Listing, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			data, err := afero.ReadFile(me.fs, path)
			if err != nil {
				return errors.Errorf("reading %s: %w", path, err)
			}
			_, gen, err := ws.Open(ctx, path, 1, string(data))
			if err != nil {
				return errors.Errorf("loading %s: %w", path, err)
			}
			listings[i] = listingOf(path, gen)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return listings, nil
}

// expand resolves the arguments to absolute file paths, replacing each
// directory with the project files found under it.
func (me *Handler) expand(ctx context.Context) ([]string, error) {
	find := finder.NewDefaultFinder(me.fs)

	var paths []string
	for _, name := range me.files {
		path, err := filepath.Abs(name)
		if err != nil {
			return nil, errors.Errorf("resolving %s: %w", name, err)
		}
		isDir, err := afero.IsDir(me.fs, path)
		if err != nil || !isDir {
			// missing files are reported when they are read
			paths = append(paths, path)
			continue
		}
		found, err := find.FindProjects(ctx, path, nil)
		if err != nil {
			return nil, err
		}
		paths = append(paths, found...)
	}
	return paths, nil
}

func listingOf(path string, gen *document.Generation) Listing {
	l := Listing{Path: path, Symbols: []Symbol{}}
	switch {
	case gen.Semantic != nil:
		for _, obj := range gen.Semantic.AllObjects() {
			l.Symbols = append(l.Symbols, Symbol{Kind: obj.Kind().String(), Name: obj.Name(), Range: obj.XmlRange().String()})
		}
	case gen.Solution != nil:
		for _, obj := range gen.Solution.AllObjects() {
			l.Symbols = append(l.Symbols, Symbol{Kind: obj.Kind.String(), Name: obj.Name, Range: obj.XmlRange.String()})
		}
	default:
		l.Err = gen.EvaluationErr
	}
	return l
}
