// Package completion runs the completion providers for a position in an
// open document.
package completion

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/walteh/msbuildls/pkg/completion/providers"
	"github.com/walteh/msbuildls/pkg/config"
	"github.com/walteh/msbuildls/pkg/document"
	"github.com/walteh/msbuildls/pkg/position"
)

type Engine struct {
	settings  config.Settings
	providers []providers.Provider
}

// DefaultProviders are used when New is given none.
func DefaultProviders() []providers.Provider {
	return []providers.Provider{
		providers.TopLevelElements{},
		providers.PropertyElements{},
		providers.ItemElements{},
		providers.Attributes{},
		providers.TargetNames{},
	}
}

func New(settings config.Settings, ps ...providers.Provider) *Engine {
	if len(ps) == 0 {
		ps = DefaultProviders()
	}
	return &Engine{settings: settings, providers: ps}
}

// Complete collects the suggestions of every provider. A failing provider
// is logged and skipped.
func (e *Engine) Complete(ctx context.Context, doc *document.Document, pos position.Position) ([]providers.Item, error) {
	logger := zerolog.Ctx(ctx)

	gen, err := doc.Current(ctx)
	if err != nil {
		return nil, err
	}

	loc, err := gen.XML.Inspect(ctx, pos)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		return []providers.Item{}, nil
	}

	req := &providers.Request{
		Location:            loc,
		Project:             gen.Project,
		Snippets:            e.settings.SnippetsEnabled(),
		WellKnownProperties: e.settings.WellKnownPropertiesEnabled(),
	}

	if req.TargetNames, err = doc.TargetNames(ctx); err != nil {
		return nil, err
	}

	indent, err := config.Indent(gen.Path)
	if err != nil {
		logger.Debug().Err(err).Msg("using default indentation")
	}
	req.Indent = indent

	items := []providers.Item{}
	for _, p := range e.providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		got, err := p.Complete(ctx, req)
		if err != nil {
			logger.Warn().Err(err).Str("provider", p.Name()).Stringer("location", loc).Msg("completion provider failed")
			continue
		}
		items = append(items, got...)
	}

	logger.Debug().Int("count", len(items)).Stringer("location", loc).Msg("completed")
	return items, nil
}
