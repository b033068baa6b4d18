package lsp

import (
	"context"
	"fmt"
	"strings"

	"github.com/sourcegraph/jsonrpc2"
	"github.com/walteh/msbuildls/pkg/completion/providers"
	"github.com/walteh/msbuildls/pkg/document"
	"github.com/walteh/msbuildls/pkg/hover"
	"go.lsp.dev/protocol"
	"gitlab.com/tozd/go/errors"
)

var ErrNotOpen = errors.Base("document is not open")

func (s *Server) open(td protocol.TextDocumentIdentifier) (*document.Document, error) {
	path, err := pathOf(td.URI)
	if err != nil {
		return nil, err
	}
	doc, ok := s.ws().Get(path)
	if !ok {
		return nil, errors.Errorf("%w: %s", ErrNotOpen, path)
	}
	return doc, nil
}

func (s *Server) current(ctx context.Context, td protocol.TextDocumentIdentifier) (*document.Generation, error) {
	doc, err := s.open(td)
	if err != nil {
		return nil, err
	}
	return doc.Current(ctx)
}

func (s *Server) handleTextDocumentHover(ctx context.Context, req *jsonrpc2.Request) (any, error) {
	var params protocol.HoverParams
	if err := decode(req, &params); err != nil {
		return nil, err
	}
	gen, err := s.current(ctx, params.TextDocument)
	if err != nil {
		return nil, err
	}

	info, err := hover.Build(ctx, gen, toPosition(params.Position))
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, nil
	}

	rng := toProtocolRange(info.Range)
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.Markdown,
			Value: strings.Join(info.Content, "\n\n---\n\n"),
		},
		Range: &rng,
	}, nil
}

func (s *Server) handleTextDocumentCompletion(ctx context.Context, req *jsonrpc2.Request) (any, error) {
	var params protocol.CompletionParams
	if err := decode(req, &params); err != nil {
		return nil, err
	}
	doc, err := s.open(params.TextDocument)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	engine := s.completion
	s.mu.RUnlock()

	items, err := engine.Complete(ctx, doc, toPosition(params.Position))
	if err != nil {
		return nil, err
	}

	list := &protocol.CompletionList{Items: make([]protocol.CompletionItem, 0, len(items))}
	for i, it := range items {
		list.Items = append(list.Items, toCompletionItem(i, it))
	}
	return list, nil
}

func toCompletionItem(i int, it providers.Item) protocol.CompletionItem {
	text := it.InsertText
	if text == "" {
		text = it.Label
	}

	item := protocol.CompletionItem{
		Label:            it.Label,
		Kind:             completionKind(it.Kind),
		Detail:           it.Detail,
		InsertTextFormat: protocol.InsertTextFormatPlainText,
		// keep provider order
		SortText: fmt.Sprintf("%05d", i),
	}
	if it.Snippet {
		item.InsertTextFormat = protocol.InsertTextFormatSnippet
	}
	if it.Documentation != "" {
		item.Documentation = protocol.MarkupContent{Kind: protocol.Markdown, Value: it.Documentation}
	}
	if it.Replace.IsZero() {
		item.InsertText = text
	} else {
		item.TextEdit = &protocol.TextEdit{Range: toProtocolRange(it.Replace), NewText: text}
	}
	return item
}

func completionKind(k providers.ItemKind) protocol.CompletionItemKind {
	switch k {
	case providers.KindElement:
		return protocol.CompletionItemKindModule
	case providers.KindProperty:
		return protocol.CompletionItemKindProperty
	case providers.KindItem:
		return protocol.CompletionItemKindVariable
	case providers.KindAttribute:
		return protocol.CompletionItemKindField
	case providers.KindTarget:
		return protocol.CompletionItemKindFunction
	}
	return protocol.CompletionItemKindText
}
