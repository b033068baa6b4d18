package debug_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/msbuildls/pkg/debug"
)

func TestSplitFuncName(t *testing.T) {
	tests := []struct {
		in       string
		pkg, fun string
	}{
		{"github.com/walteh/msbuildls/pkg/lsp.(*Server).handle", "github.com/walteh/msbuildls/pkg/lsp", "(*Server).handle"},
		{"github.com/walteh/msbuildls/pkg/lsp.New", "github.com/walteh/msbuildls/pkg/lsp", "New"},
		{"main.main", "main", "main"},
		{"nodots", "nodots", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			pkg, fun := debug.SplitFuncName(tt.in)
			assert.Equal(t, tt.pkg, pkg)
			assert.Equal(t, tt.fun, fun)
		})
	}
}

func TestFormatCaller(t *testing.T) {
	assert.Equal(t, "example.com/p:file.go:12", debug.FormatCaller("example.com/p", "/a/b/file.go", 12, false))
	assert.Contains(t, debug.FormatCaller("example.com/p", "/a/b/file.go", 12, true), "file.go")
}

func TestNewLoggerAddsTimeAndCaller(t *testing.T) {
	var buf bytes.Buffer
	logger := debug.NewLogger(&buf, zerolog.InfoLevel, false, false)

	logger.Debug().Msg("dropped")
	logger.Info().Str("k", "v").Msg("kept")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "kept", entry["message"])
	assert.Equal(t, "v", entry["k"])
	assert.NotEmpty(t, entry["time"])
	assert.Contains(t, entry["caller"], "debug_test.go")
}
