// Package lsp serves the language server protocol over JSON-RPC.
package lsp

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/jsonrpc2"
	"github.com/spf13/afero"
	"github.com/walteh/msbuildls/pkg/completion"
	"github.com/walteh/msbuildls/pkg/config"
	"github.com/walteh/msbuildls/pkg/debug"
	"github.com/walteh/msbuildls/pkg/document"
	"gitlab.com/tozd/go/errors"
)

const (
	methodInitialize         = "initialize"
	methodInitialized        = "initialized"
	methodShutdown           = "shutdown"
	methodExit               = "exit"
	methodCancelRequest      = "$/cancelRequest"
	methodDidOpen            = "textDocument/didOpen"
	methodDidChange          = "textDocument/didChange"
	methodDidSave            = "textDocument/didSave"
	methodDidClose           = "textDocument/didClose"
	methodHover              = "textDocument/hover"
	methodCompletion         = "textDocument/completion"
	methodDocumentSymbol     = "textDocument/documentSymbol"
	methodDefinition         = "textDocument/definition"
	methodPublishDiagnostics = "textDocument/publishDiagnostics"
	methodWindowLogMessage   = "window/logMessage"
)

const (
	CodeServerNotInitialized int64 = -32002
	CodeRequestCancelled     int64 = -32800
)

type Options struct {
	Fs       afero.Fs
	Settings config.Settings
	Version  string

	// LogOutput receives the server log as JSON; nil discards it.
	LogOutput io.Writer
	// MirrorLogs also forwards log entries to the client as
	// window/logMessage notifications.
	MirrorLogs bool
}

// Server is one language server session.
type Server struct {
	id   uuid.UUID
	opts Options

	logWriter *LSPWriter
	baseLog   zerolog.Logger

	mu         sync.RWMutex
	logger     zerolog.Logger
	settings   config.Settings
	root       string
	workspace  *document.Workspace
	completion *completion.Engine
	shutdown   bool

	cancelFuncs sync.Map // jsonrpc2.ID -> context.CancelFunc

	exited   chan struct{}
	exitOnce sync.Once

	// runs before every query; tests use it to hold a request in flight
	beforeQuery func(context.Context)
}

func NewServer(ctx context.Context, opts Options) *Server {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.LogOutput == nil {
		opts.LogOutput = io.Discard
	}
	if opts.Settings.LogLevel == "" {
		opts.Settings = config.Default().Merge(opts.Settings)
	}

	s := &Server{
		id:       uuid.New(),
		opts:     opts,
		settings: opts.Settings,
		exited:   make(chan struct{}),
	}

	out := opts.LogOutput
	if opts.MirrorLogs {
		s.logWriter = NewLSPWriter(context.WithoutCancel(ctx))
		out = zerolog.MultiLevelWriter(out, s.logWriter)
	}
	s.baseLog = debug.NewLogger(out, zerolog.TraceLevel, false, false).
		With().Str("server", s.id.String()).Logger()
	s.logger = s.baseLog.Level(opts.Settings.Level())

	return s
}

// Serve handles one client connection until the client disconnects, sends
// exit, or ctx is done.
func (s *Server) Serve(ctx context.Context, rwc io.ReadWriteCloser) error {
	stream := jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{})
	conn := jsonrpc2.NewConn(ctx, stream, s)
	if s.logWriter != nil {
		s.logWriter.attach(conn)
	}

	s.log().Info().Str("version", s.opts.Version).Msg("language server started")

	select {
	case <-conn.DisconnectNotify():
	case <-s.exited:
	case <-ctx.Done():
	}

	if err := s.closeWorkspace(context.WithoutCancel(ctx)); err != nil {
		s.log().Warn().Err(err).Msg("closing documents")
	}
	if err := conn.Close(); err != nil && !errors.Is(err, jsonrpc2.ErrClosed) {
		return errors.Errorf("closing connection: %w", err)
	}
	return ctx.Err()
}

func (s *Server) log() *zerolog.Logger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l := s.logger
	return &l
}

// Handle implements jsonrpc2.Handler. Notifications and lifecycle requests
// run inline, so they are applied in arrival order. Everything else runs in
// its own goroutine and can be cancelled with $/cancelRequest.
func (s *Server) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	ctx = s.log().WithContext(ctx)
	logger := zerolog.Ctx(ctx)

	if req.Notif {
		if err := s.handleNotification(ctx, conn, req); err != nil {
			logger.Error().Err(err).Str("method", req.Method).Msg("notification failed")
		}
		return
	}

	if req.Method == methodInitialize || req.Method == methodShutdown {
		result, err := s.handleRequest(ctx, conn, req)
		s.reply(ctx, conn, req, result, err)
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancelFuncs.Store(req.ID, cancel)

	go func() {
		defer s.cancelFuncs.Delete(req.ID)
		defer cancel()

		if s.beforeQuery != nil {
			s.beforeQuery(ctx)
		}
		if err := ctx.Err(); err != nil {
			s.reply(ctx, conn, req, nil, err)
			return
		}
		result, err := s.handleRequest(ctx, conn, req)
		s.reply(ctx, conn, req, result, err)
	}()
}

func (s *Server) reply(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request, result any, err error) {
	logger := zerolog.Ctx(ctx).With().Str("method", req.Method).Str("id", req.ID.String()).Logger()
	sendCtx := context.WithoutCancel(ctx)

	var rpcErr *jsonrpc2.Error
	switch {
	case err == nil:
		err = conn.Reply(sendCtx, req.ID, result)
	case errors.As(err, &rpcErr):
		err = conn.ReplyWithError(sendCtx, req.ID, rpcErr)
	case ctx.Err() != nil:
		logger.Debug().Msg("request cancelled")
		err = conn.ReplyWithError(sendCtx, req.ID, &jsonrpc2.Error{
			Code:    CodeRequestCancelled,
			Message: "request cancelled",
		})
	default:
		logger.Error().Err(err).Msg("request failed")
		err = conn.Reply(sendCtx, req.ID, nil)
	}
	if err != nil && !errors.Is(err, jsonrpc2.ErrClosed) {
		logger.Warn().Err(err).Msg("sending reply")
	}
}

func (s *Server) handleRequest(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
	if req.Method == methodInitialize {
		return s.handleInitialize(ctx, req)
	}

	s.mu.RLock()
	initialized, shutdown := s.workspace != nil, s.shutdown
	s.mu.RUnlock()
	if !initialized {
		return nil, &jsonrpc2.Error{Code: CodeServerNotInitialized, Message: "server not initialized"}
	}
	if shutdown {
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidRequest, Message: "server is shutting down"}
	}

	switch req.Method {
	case methodShutdown:
		return s.handleShutdown(ctx)
	case methodHover:
		return s.handleTextDocumentHover(ctx, req)
	case methodCompletion:
		return s.handleTextDocumentCompletion(ctx, req)
	case methodDocumentSymbol:
		return s.handleTextDocumentDocumentSymbol(ctx, req)
	case methodDefinition:
		return s.handleTextDocumentDefinition(ctx, req)
	}
	return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "method not found: " + req.Method}
}

func (s *Server) handleNotification(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) error {
	switch req.Method {
	case methodExit:
		s.exitOnce.Do(func() { close(s.exited) })
		return nil
	case methodCancelRequest:
		return s.handleCancelRequest(ctx, req)
	case methodInitialized:
		zerolog.Ctx(ctx).Debug().Msg("client initialized")
		return nil
	}

	s.mu.RLock()
	ready := s.workspace != nil && !s.shutdown
	s.mu.RUnlock()
	if !ready {
		zerolog.Ctx(ctx).Debug().Str("method", req.Method).Msg("dropping notification outside of a session")
		return nil
	}

	switch req.Method {
	case methodDidOpen:
		return s.handleTextDocumentDidOpen(ctx, conn, req)
	case methodDidChange:
		return s.handleTextDocumentDidChange(ctx, conn, req)
	case methodDidSave:
		return s.handleTextDocumentDidSave(ctx, conn, req)
	case methodDidClose:
		return s.handleTextDocumentDidClose(ctx, conn, req)
	}
	zerolog.Ctx(ctx).Debug().Str("method", req.Method).Msg("ignoring notification")
	return nil
}

type cancelParams struct {
	ID jsonrpc2.ID `json:"id"`
}

func (s *Server) handleCancelRequest(ctx context.Context, req *jsonrpc2.Request) error {
	var params cancelParams
	if err := decode(req, &params); err != nil {
		return err
	}
	if cancel, ok := s.cancelFuncs.Load(params.ID); ok {
		zerolog.Ctx(ctx).Debug().Str("id", params.ID.String()).Msg("cancelling request")
		cancel.(context.CancelFunc)()
	}
	return nil
}

func decode(req *jsonrpc2.Request, v any) error {
	if req.Params == nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: "missing params"}
	}
	if err := json.Unmarshal(*req.Params, v); err != nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: err.Error()}
	}
	return nil
}

func (s *Server) closeWorkspace(ctx context.Context) error {
	s.mu.RLock()
	ws := s.workspace
	s.mu.RUnlock()
	if ws == nil {
		return nil
	}
	return ws.CloseAll(ctx)
}
