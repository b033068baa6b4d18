package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/jsonrpc2"
	"go.lsp.dev/protocol"
)

// LSPWriter is an io.Writer for zerolog JSON output that forwards each entry
// to the client as a window/logMessage notification. Entries written before
// a connection is attached are dropped.
type LSPWriter struct {
	mu   sync.Mutex
	conn *jsonrpc2.Conn
	ctx  context.Context
}

func NewLSPWriter(ctx context.Context) *LSPWriter {
	return &LSPWriter{ctx: ctx}
}

func (w *LSPWriter) attach(conn *jsonrpc2.Conn) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.conn = conn
}

func (w *LSPWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	conn := w.conn
	w.mu.Unlock()

	if conn == nil {
		return len(p), nil
	}

	var entry map[string]any
	if err := json.Unmarshal(p, &entry); err != nil {
		// not one of ours
		return len(p), nil
	}

	params := protocol.LogMessageParams{
		Type:    MessageTypeFromZerolog(entry["level"]),
		Message: formatEntry(entry),
	}
	if err := conn.Notify(w.ctx, methodWindowLogMessage, params); err != nil {
		return 0, err
	}
	return len(p), nil
}

// MessageTypeFromZerolog maps a zerolog level name onto an LSP message type.
// Unknown levels are logged as plain log lines.
func MessageTypeFromZerolog(level any) protocol.MessageType {
	name, _ := level.(string)
	lvl, err := zerolog.ParseLevel(name)
	if err != nil {
		return protocol.MessageTypeLog
	}
	switch lvl {
	case zerolog.PanicLevel, zerolog.FatalLevel, zerolog.ErrorLevel:
		return protocol.MessageTypeError
	case zerolog.WarnLevel:
		return protocol.MessageTypeWarning
	case zerolog.InfoLevel:
		return protocol.MessageTypeInfo
	default:
		return protocol.MessageTypeLog
	}
}

// formatEntry renders the message followed by the remaining fields as
// sorted key=value pairs.
func formatEntry(entry map[string]any) string {
	msg, _ := entry["message"].(string)
	for _, k := range []string{"message", "level", "time", "caller"} {
		delete(entry, k)
	}

	keys := make([]string, 0, len(entry))
	for k := range entry {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(msg)
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%v", k, entry[k])
	}
	return sb.String()
}
