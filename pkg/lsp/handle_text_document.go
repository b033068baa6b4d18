package lsp

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/jsonrpc2"
	"github.com/walteh/msbuildls/pkg/diagnostic"
	"github.com/walteh/msbuildls/pkg/document"
	"github.com/walteh/msbuildls/pkg/msbuild/evaluation"
	"go.lsp.dev/protocol"
	"gitlab.com/tozd/go/errors"
)

func (s *Server) ws() *document.Workspace {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.workspace
}

func (s *Server) handleTextDocumentDidOpen(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) error {
	var params protocol.DidOpenTextDocumentParams
	if err := decode(req, &params); err != nil {
		return err
	}
	path, err := pathOf(params.TextDocument.URI)
	if err != nil {
		return err
	}

	_, gen, err := s.ws().Open(ctx, path, params.TextDocument.Version, params.TextDocument.Text)
	if err != nil {
		return errors.Errorf("opening %s: %w", path, err)
	}
	s.publishDiagnostics(ctx, conn, params.TextDocument.URI, gen)
	return nil
}

func (s *Server) handleTextDocumentDidChange(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) error {
	var params protocol.DidChangeTextDocumentParams
	if err := decode(req, &params); err != nil {
		return err
	}
	if len(params.ContentChanges) == 0 {
		return nil
	}
	path, err := pathOf(params.TextDocument.URI)
	if err != nil {
		return err
	}

	// full sync: the last change carries the whole text
	text := params.ContentChanges[len(params.ContentChanges)-1].Text
	gen, err := s.ws().Update(ctx, path, params.TextDocument.Version, text)
	if err != nil {
		return errors.Errorf("updating %s: %w", path, err)
	}
	s.publishDiagnostics(ctx, conn, params.TextDocument.URI, gen)
	return nil
}

// handleTextDocumentDidSave rebuilds every open document, since any of them
// may import the saved file.
func (s *Server) handleTextDocumentDidSave(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) error {
	var params protocol.DidSaveTextDocumentParams
	if err := decode(req, &params); err != nil {
		return err
	}
	saved, err := pathOf(params.TextDocument.URI)
	if err != nil {
		return err
	}

	ws := s.ws()
	for _, path := range ws.Paths() {
		doc, ok := ws.Get(path)
		if !ok {
			continue
		}
		current, err := doc.Current(ctx)
		if err != nil {
			if errors.Is(err, document.ErrClosed) {
				continue
			}
			return err
		}

		text := current.Text
		if params.Text != "" && evaluation.SamePath(path, saved) {
			text = params.Text
		}
		gen, err := doc.Load(ctx, current.Version, text)
		if err != nil {
			return errors.Errorf("reloading %s: %w", path, err)
		}
		s.publishDiagnostics(ctx, conn, uriOf(path), gen)
	}
	return nil
}

func (s *Server) handleTextDocumentDidClose(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) error {
	var params protocol.DidCloseTextDocumentParams
	if err := decode(req, &params); err != nil {
		return err
	}
	path, err := pathOf(params.TextDocument.URI)
	if err != nil {
		return err
	}
	if err := s.ws().Close(ctx, path); err != nil {
		return errors.Errorf("closing %s: %w", path, err)
	}
	// clear what was published for the document
	s.publishDiagnostics(ctx, conn, params.TextDocument.URI, nil)
	return nil
}

func (s *Server) publishDiagnostics(ctx context.Context, conn *jsonrpc2.Conn, u protocol.DocumentURI, gen *document.Generation) {
	logger := zerolog.Ctx(ctx)

	params := protocol.PublishDiagnosticsParams{
		URI:         u,
		Diagnostics: []protocol.Diagnostic{},
	}
	if gen != nil {
		found, err := diagnostic.Generate(ctx, gen)
		if err != nil {
			logger.Error().Err(err).Str("uri", string(u)).Msg("generating diagnostics")
			return
		}
		for _, d := range found.All() {
			params.Diagnostics = append(params.Diagnostics, toProtocolDiagnostic(d))
		}
	}

	logger.Debug().Str("uri", string(u)).Int("count", len(params.Diagnostics)).Msg("publishing diagnostics")
	if err := conn.Notify(context.WithoutCancel(ctx), methodPublishDiagnostics, params); err != nil {
		logger.Warn().Err(err).Msg("publishing diagnostics")
	}
}
