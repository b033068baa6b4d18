package lsp

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/jsonrpc2"
	"github.com/walteh/msbuildls/pkg/completion"
	"github.com/walteh/msbuildls/pkg/config"
	"github.com/walteh/msbuildls/pkg/document"
	"go.lsp.dev/protocol"
	"gitlab.com/tozd/go/errors"
)

// completion is offered when typing starts an element, an attribute, or the
// next entry of a target list
var triggerCharacters = []string{"<", " ", "\"", ";"}

func (s *Server) handleInitialize(ctx context.Context, req *jsonrpc2.Request) (any, error) {
	logger := zerolog.Ctx(ctx)

	var params protocol.InitializeParams
	if err := decode(req, &params); err != nil {
		return nil, err
	}

	s.mu.RLock()
	already := s.workspace != nil
	s.mu.RUnlock()
	if already {
		return nil, errors.New("server already initialized")
	}

	settings := s.opts.Settings
	root := rootOf(&params)
	if root != "" {
		found, ok, err := config.Find(s.opts.Fs, root)
		if err != nil {
			logger.Warn().Err(err).Str("root", root).Msg("ignoring workspace settings")
		} else if ok {
			settings = settings.Merge(found)
		}
	}

	fromClient, err := config.FromInitializationOptions(params.InitializationOptions)
	if err != nil {
		logger.Warn().Err(err).Msg("ignoring initialization options")
	} else {
		settings = settings.Merge(fromClient)
	}

	s.mu.Lock()
	s.settings = settings
	s.root = root
	s.logger = s.baseLog.Level(settings.Level())
	s.workspace = document.NewWorkspace(s.opts.Fs, settings.EvaluationOptions(), s.logger)
	s.completion = completion.New(settings)
	s.mu.Unlock()

	logger.Info().
		Str("root", root).
		Str("log_level", settings.Level().String()).
		Strs("sdk_roots", settings.SdkRoots).
		Msg("initialized")

	return protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindFull,
				Save:      &protocol.SaveOptions{IncludeText: true},
			},
			HoverProvider: true,
			CompletionProvider: &protocol.CompletionOptions{
				TriggerCharacters: triggerCharacters,
			},
			DefinitionProvider:     true,
			DocumentSymbolProvider: true,
		},
		ServerInfo: &protocol.ServerInfo{
			Name:    "msbuildls",
			Version: s.opts.Version,
		},
	}, nil
}

func rootOf(params *protocol.InitializeParams) string {
	if params.RootURI != "" {
		if path, err := pathOf(params.RootURI); err == nil {
			return path
		}
	}
	for _, f := range params.WorkspaceFolders {
		if path, err := pathOf(protocol.DocumentURI(f.URI)); err == nil {
			return path
		}
	}
	return params.RootPath
}

// Settings returns the settings in effect for the session.
func (s *Server) Settings() config.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

func (s *Server) handleShutdown(ctx context.Context) (any, error) {
	s.mu.Lock()
	s.shutdown = true
	s.mu.Unlock()

	zerolog.Ctx(ctx).Info().Msg("shutting down")
	return nil, s.closeWorkspace(ctx)
}
