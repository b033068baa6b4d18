package inspect

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/apparentlymart/go-textseg/v13/textseg"
	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/walteh/msbuildls/pkg/config"
	"github.com/walteh/msbuildls/pkg/document"
	"github.com/walteh/msbuildls/pkg/hover"
	"github.com/walteh/msbuildls/pkg/position"
	"gitlab.com/tozd/go/errors"
)

var (
	label   = color.New(color.FgCyan).SprintFunc()
	caret   = color.New(color.FgRed, color.Bold).SprintFunc()
	heading = color.New(color.Bold).SprintFunc()
	faint   = color.New(color.Faint).SprintFunc()
)

type Handler struct {
	file  string
	at    string
	hover bool

	fs  afero.Fs
	out io.Writer
}

func NewInspectCommand() *cobra.Command {
	me := &Handler{}

	cmd := &cobra.Command{
		Use:   "inspect <file> <line:col>",
		Short: "show what the language server sees at a position",
	}

	cmd.Flags().BoolVar(&me.hover, "hover", false, "also print the hover text")
	cmd.Args = cobra.ExactArgs(2)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		me.file, me.at = args[0], args[1]
		me.fs = afero.NewOsFs()
		me.out = cmd.OutOrStdout()
		return me.Run(cmd.Context())
	}

	return cmd
}

// ParsePosition reads a one-based "line:col".
func ParsePosition(s string) (position.Position, error) {
	line, col, ok := strings.Cut(s, ":")
	if !ok {
		return position.Zero, errors.Errorf("position %q is not line:col", s)
	}
	l, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return position.Zero, errors.Errorf("parsing line: %w", err)
	}
	c, err := strconv.Atoi(strings.TrimSpace(col))
	if err != nil {
		return position.Zero, errors.Errorf("parsing column: %w", err)
	}
	if l < 1 || c < 1 {
		return position.Zero, errors.Errorf("position %q is not one-based", s)
	}
	return position.OneBased(l, c), nil
}

func (me *Handler) Run(ctx context.Context) error {
	pos, err := ParsePosition(me.at)
	if err != nil {
		return err
	}

	path, err := filepath.Abs(me.file)
	if err != nil {
		return errors.Errorf("resolving %s: %w", me.file, err)
	}
	data, err := afero.ReadFile(me.fs, path)
	if err != nil {
		return errors.Errorf("reading %s: %w", path, err)
	}

	settings, err := config.Load(me.fs, filepath.Dir(path))
	if err != nil {
		return errors.Errorf("loading settings: %w", err)
	}

	ws := document.NewWorkspace(me.fs, settings.EvaluationOptions(), *zerolog.Ctx(ctx))
	defer ws.CloseAll(context.WithoutCancel(ctx))

	_, gen, err := ws.Open(ctx, path, 1, string(data))
	if err != nil {
		return errors.Errorf("loading %s: %w", path, err)
	}

	fmt.Fprintf(me.out, "%s:%d:%d\n", heading(path), pos.Line, pos.Column)
	if err := me.printSource(gen, pos); err != nil {
		return err
	}

	loc, err := gen.XML.Inspect(ctx, pos)
	if err != nil {
		return err
	}
	if loc == nil {
		fmt.Fprintf(me.out, "%s  nothing here\n", label("node:"))
		return nil
	}
	fmt.Fprintf(me.out, "%s %s\n", label("flags: "), loc.Flags)
	fmt.Fprintf(me.out, "%s %s %s\n", label("node:  "), loc.Node, faint(loc.Range()))

	switch {
	case gen.Semantic != nil:
		obj, err := gen.Semantic.Find(ctx, pos)
		if err != nil {
			return err
		}
		if obj != nil {
			fmt.Fprintf(me.out, "%s %s\n", label("object:"), obj)
		}
	case gen.Solution != nil:
		obj, err := gen.Solution.Find(ctx, pos)
		if err != nil {
			return err
		}
		if obj != nil {
			fmt.Fprintf(me.out, "%s %s\n", label("object:"), obj)
		}
	case gen.EvaluationErr != nil:
		fmt.Fprintf(me.out, "%s %v\n", label("object:"), gen.EvaluationErr)
	}

	if me.hover {
		info, err := hover.Build(ctx, gen, pos)
		if err != nil {
			return err
		}
		if info != nil {
			fmt.Fprintf(me.out, "%s\n%s\n", label("hover:"), strings.Join(info.Content, "\n\n"))
		}
	}
	return nil
}

// printSource shows the line with a caret under the position. The caret is
// placed by grapheme cluster, so combined characters take one cell.
func (me *Handler) printSource(gen *document.Generation, pos position.Position) error {
	text, err := gen.Positions.LineText(pos.Line)
	if err != nil {
		return err
	}
	start, err := gen.Positions.ToAbsolute(position.OneBased(pos.Line, 1))
	if err != nil {
		return err
	}
	off, err := gen.Positions.ToAbsolute(pos)
	if err != nil {
		return err
	}

	prefix := text[:min(off-start, len(text))]
	pad, err := CaretPadding(prefix)
	if err != nil {
		return err
	}

	gutter := strconv.Itoa(pos.Line)
	fmt.Fprintf(me.out, "%s | %s\n", faint(gutter), text)
	fmt.Fprintf(me.out, "%s | %s%s\n", strings.Repeat(" ", len(gutter)), pad, caret("^"))
	return nil
}

// CaretPadding is the whitespace that lines a caret up under the end of
// prefix. Tabs are kept so the caret lines up however they are rendered.
func CaretPadding(prefix string) (string, error) {
	clusters, err := textseg.AllTokens([]byte(prefix), textseg.ScanGraphemeClusters)
	if err != nil {
		return "", errors.Errorf("splitting graphemes: %w", err)
	}
	var sb strings.Builder
	for _, c := range clusters {
		if string(c) == "\t" {
			sb.WriteByte('\t')
		} else {
			sb.WriteByte(' ')
		}
	}
	return sb.String(), nil
}
