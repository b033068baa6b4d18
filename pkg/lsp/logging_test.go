package lsp_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/walteh/msbuildls/pkg/lsp"
	"go.lsp.dev/protocol"
)

func TestMessageTypeFromZerolog(t *testing.T) {
	tests := []struct {
		level any
		want  protocol.MessageType
	}{
		{"error", protocol.MessageTypeError},
		{"fatal", protocol.MessageTypeError},
		{"warn", protocol.MessageTypeWarning},
		{"info", protocol.MessageTypeInfo},
		{"debug", protocol.MessageTypeLog},
		{"trace", protocol.MessageTypeLog},
		{"bogus", protocol.MessageTypeLog},
		{nil, protocol.MessageTypeLog},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, lsp.MessageTypeFromZerolog(tt.level), "%v", tt.level)
	}
}
