package inspect_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/msbuildls/cmd/msbuildls/inspect"
	"github.com/walteh/msbuildls/pkg/position"
)

func TestParsePosition(t *testing.T) {
	tests := []struct {
		in      string
		want    position.Position
		wantErr bool
	}{
		{in: "3:6", want: position.OneBased(3, 6)},
		{in: " 10 : 2 ", want: position.OneBased(10, 2)},
		{in: "3", wantErr: true},
		{in: "a:1", wantErr: true},
		{in: "0:1", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := inspect.ParsePosition(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCaretPadding(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		want   string
	}{
		{"ascii", "  <Fo", "     "},
		{"tabs kept", "\t<", "\t "},
		{"combining mark is one cell", "e\u0301x", "  "},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := inspect.CaretPadding(tt.prefix)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInspect(t *testing.T) {
	color.NoColor = true

	path := filepath.Join(t.TempDir(), "app.csproj")
	require.NoError(t, os.WriteFile(path, []byte("<Project>\n  <PropertyGroup>\n    <Foo>Bar</Foo>\n  </PropertyGroup>\n</Project>\n"), 0o644))

	var out bytes.Buffer
	cmd := inspect.NewInspectCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{path, "3:6", "--hover"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	got := out.String()
	assert.Contains(t, got, path+":3:6")
	assert.Contains(t, got, "3 |     <Foo>Bar</Foo>\n  |      ^\n")
	assert.Contains(t, got, "<Foo>")
	assert.Contains(t, got, `Property "Foo"`)
	assert.Contains(t, got, "### Property `Foo`")
}

func TestInspectOutOfRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.csproj")
	require.NoError(t, os.WriteFile(path, []byte("<Project />\n"), 0o644))

	cmd := inspect.NewInspectCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{path, "9:1"})
	assert.ErrorIs(t, cmd.ExecuteContext(context.Background()), position.ErrOutOfRange)
}
