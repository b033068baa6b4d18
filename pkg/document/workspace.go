package document

import (
	"context"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/walteh/msbuildls/pkg/msbuild/evaluation"
	"go.uber.org/multierr"
)

// Workspace tracks the open documents.
type Workspace struct {
	fs        afero.Fs
	evaluator *evaluation.Evaluator
	logger    zerolog.Logger

	docs sync.Map // clean path -> *Document
}

func NewWorkspace(fs afero.Fs, opts evaluation.Options, logger zerolog.Logger) *Workspace {
	return &Workspace{
		fs:        fs,
		evaluator: evaluation.NewEvaluator(fs, opts),
		logger:    logger,
	}
}

func (w *Workspace) Fs() afero.Fs {
	return w.fs
}

func key(path string) string {
	return filepath.Clean(path)
}

// Open registers the document if needed and loads text into it.
func (w *Workspace) Open(ctx context.Context, path string, version int32, text string) (*Document, *Generation, error) {
	v, _ := w.docs.LoadOrStore(key(path), newDocument(key(path), w.evaluator, w.logger))
	doc := v.(*Document)

	gen, err := doc.Load(ctx, version, text)
	if err != nil {
		return nil, nil, err
	}
	return doc, gen, nil
}

// Update loads new text into a document, opening it if it is unknown.
func (w *Workspace) Update(ctx context.Context, path string, version int32, text string) (*Generation, error) {
	_, gen, err := w.Open(ctx, path, version, text)
	return gen, err
}

// Reload re-reads the document text from the filesystem.
func (w *Workspace) Reload(ctx context.Context, path string, version int32) (*Generation, error) {
	data, err := afero.ReadFile(w.fs, path)
	if err != nil {
		return nil, err
	}
	return w.Update(ctx, path, version, string(data))
}

func (w *Workspace) Get(path string) (*Document, bool) {
	v, ok := w.docs.Load(key(path))
	if !ok {
		return nil, false
	}
	return v.(*Document), true
}

// Close forgets a document once in-flight readers are done with it.
func (w *Workspace) Close(ctx context.Context, path string) error {
	v, ok := w.docs.LoadAndDelete(key(path))
	if !ok {
		return nil
	}
	return v.(*Document).close(ctx)
}

// CloseAll closes every document and reports every failure.
func (w *Workspace) CloseAll(ctx context.Context) error {
	var err error
	for _, path := range w.Paths() {
		err = multierr.Append(err, w.Close(ctx, path))
	}
	return err
}

// Paths lists the open documents, sorted.
func (w *Workspace) Paths() []string {
	var out []string
	w.docs.Range(func(k, _ any) bool {
		out = append(out, k.(string))
		return true
	})
	sort.Strings(out)
	return out
}
