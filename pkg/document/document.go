// Package document owns the per-file state of open editor documents. Each
// change builds a complete new Generation, which replaces the previous one
// under the document's write lock.
package document

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/walteh/msbuildls/pkg/msbuild/evaluation"
	"github.com/walteh/msbuildls/pkg/position"
	"github.com/walteh/msbuildls/pkg/rwlock"
	"github.com/walteh/msbuildls/pkg/semantic"
	"github.com/walteh/msbuildls/pkg/solution"
	"github.com/walteh/msbuildls/pkg/xmllocator"
	"github.com/walteh/msbuildls/pkg/xmltree"
	"gitlab.com/tozd/go/errors"
)

var ErrClosed = errors.Base("document is closed")

type Kind uint8

const (
	KindProject Kind = iota + 1
	KindSolution
)

func (k Kind) String() string {
	if k == KindSolution {
		return "solution"
	}
	return "project"
}

// KindOf decides the document kind from the file extension.
func KindOf(path string) Kind {
	if strings.EqualFold(filepath.Ext(path), ".slnx") {
		return KindSolution
	}
	return KindProject
}

// Generation is an immutable snapshot of one version of a document.
type Generation struct {
	ID      uuid.UUID
	Version int32
	Path    string
	Kind    Kind
	Text    string

	Positions *position.TextPositions
	Syntax    *xmltree.Document
	XML       *xmllocator.Locator

	// nil when the project could not be evaluated
	Project  *evaluation.Project
	Semantic *semantic.Locator
	// EvaluationErr is why Project or Solution is nil
	EvaluationErr error

	Solution *solution.Locator
}

// HasSemantics reports whether the semantic layer is available.
func (g *Generation) HasSemantics() bool {
	return g.Semantic != nil || g.Solution != nil
}

type Document struct {
	path      string
	kind      Kind
	evaluator *evaluation.Evaluator
	logger    zerolog.Logger

	lock    *rwlock.RWLock
	current *Generation

	// derived from current, filled in lazily
	targetNamesFor uuid.UUID
	targetNames    []string
}

func newDocument(path string, evaluator *evaluation.Evaluator, logger zerolog.Logger) *Document {
	return &Document{
		path:      path,
		kind:      KindOf(path),
		evaluator: evaluator,
		logger:    logger.With().Str("document", filepath.Base(path)).Logger(),
		lock:      rwlock.New(),
	}
}

func (d *Document) Path() string {
	return d.path
}

func (d *Document) Kind() Kind {
	return d.kind
}

// Load builds a generation from text and makes it current. If ctx is
// cancelled the current generation is left in place.
func (d *Document) Load(ctx context.Context, version int32, text string) (*Generation, error) {
	release, err := d.lock.Write(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	gen, err := d.build(ctx, version, text)
	if err != nil {
		return nil, err
	}

	d.current = gen
	d.targetNames = nil
	d.targetNamesFor = uuid.Nil

	d.logger.Debug().
		Int32("version", version).
		Str("generation", gen.ID.String()).
		Bool("semantic", gen.HasSemantics()).
		Msg("loaded document")

	return gen, nil
}

func (d *Document) build(ctx context.Context, version int32, text string) (*Generation, error) {
	gen := &Generation{
		ID:        uuid.New(),
		Version:   version,
		Path:      d.path,
		Kind:      d.kind,
		Text:      text,
		Positions: position.NewTextPositions(text),
		Syntax:    xmltree.Parse(text),
	}

	var err error
	if gen.XML, err = xmllocator.New(gen.Syntax, gen.Positions, d.logger); err != nil {
		return nil, errors.Errorf("building xml locator: %w", err)
	}

	if d.kind == KindSolution {
		sol, err := solution.FromXML(gen.Syntax)
		if err != nil {
			gen.EvaluationErr = err
			return gen, nil
		}
		if gen.Solution, err = solution.NewLocator(ctx, sol, gen.XML, d.logger); err != nil {
			return nil, err
		}
		return gen, nil
	}

	project, err := d.evaluator.EvaluateText(ctx, d.path, text)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		d.logger.Debug().Err(err).Msg("project evaluation failed, semantic features disabled")
		gen.EvaluationErr = err
		return gen, nil
	}
	gen.Project = project

	if gen.Semantic, err = semantic.NewLocator(ctx, project, gen.XML, d.logger); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		gen.EvaluationErr = err
	}
	return gen, nil
}

// Read runs fn against the current generation under a read scope.
func (d *Document) Read(ctx context.Context, fn func(*Generation) error) error {
	release, err := d.lock.Read(ctx)
	if err != nil {
		return err
	}
	defer release()

	if d.current == nil {
		return errors.WithStack(ErrClosed)
	}
	return fn(d.current)
}

// Current returns the current generation without holding a scope. The
// generation itself is immutable.
func (d *Document) Current(ctx context.Context) (*Generation, error) {
	var gen *Generation
	err := d.Read(ctx, func(g *Generation) error {
		gen = g
		return nil
	})
	return gen, err
}

// TargetNames returns the sorted names of every target visible to the
// project, computed once per generation.
func (d *Document) TargetNames(ctx context.Context) ([]string, error) {
	scope, err := d.lock.UpgradeableRead(ctx)
	if err != nil {
		return nil, err
	}
	defer scope.Release()

	gen := d.current
	if gen == nil {
		return nil, errors.WithStack(ErrClosed)
	}
	if d.targetNamesFor == gen.ID {
		return d.targetNames, nil
	}

	names := targetNames(gen)

	downgrade, err := scope.Upgrade(ctx)
	if err != nil {
		return nil, err
	}
	defer downgrade()

	d.targetNames = names
	d.targetNamesFor = gen.ID
	return names, nil
}

func targetNames(gen *Generation) []string {
	if gen.Project == nil {
		return []string{}
	}
	seen := map[string]bool{}
	names := []string{}
	for _, t := range gen.Project.Targets() {
		if key := strings.ToLower(t.Name); !seen[key] {
			seen[key] = true
			names = append(names, t.Name)
		}
	}
	sort.Strings(names)
	return names
}

func (d *Document) close(ctx context.Context) error {
	release, err := d.lock.Write(ctx)
	if err != nil {
		return err
	}
	defer release()

	d.current = nil
	d.targetNames = nil
	d.targetNamesFor = uuid.Nil
	return nil
}
