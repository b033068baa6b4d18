package finder_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/msbuildls/pkg/finder"
)

func TestDefaultFinder_FindProjects(t *testing.T) {
	fs := afero.NewMemMapFs()
	root := filepath.FromSlash("/repo")

	files := []string{
		"all.slnx",
		"Directory.Build.props",
		"src/app/app.csproj",
		"src/app/Program.cs",
		"src/lib/lib.fsproj",
		"src/app/obj/app.csproj.nuget.g.props",
		"build/common.targets",
	}
	for _, name := range files {
		require.NoError(t, afero.WriteFile(fs, filepath.Join(root, filepath.FromSlash(name)), []byte("<Project />"), 0o644))
	}

	abs := func(names ...string) []string {
		out := make([]string, len(names))
		for i, n := range names {
			out[i] = filepath.Join(root, filepath.FromSlash(n))
		}
		return out
	}

	tests := []struct {
		name       string
		dir        string
		extensions []string
		want       []string
		wantErr    bool
	}{
		{
			name:       "default extensions skip build output",
			dir:        root,
			extensions: nil,
			want:       abs("Directory.Build.props", "all.slnx", "build/common.targets", "src/app/app.csproj", "src/lib/lib.fsproj"),
		},
		{
			name:       "only project files",
			dir:        root,
			extensions: []string{".csproj", ".fsproj"},
			want:       abs("src/app/app.csproj", "src/lib/lib.fsproj"),
		},
		{
			name:       "subdirectory",
			dir:        filepath.Join(root, "src", "app"),
			extensions: nil,
			want:       abs("src/app/app.csproj"),
		},
		{
			name:    "missing directory",
			dir:     filepath.Join(root, "nope"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := finder.NewDefaultFinder(fs).FindProjects(context.Background(), tt.dir, tt.extensions)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindProjectsCancelled(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, filepath.FromSlash("/repo/app.csproj"), []byte("<Project />"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := finder.NewDefaultFinder(fs).FindProjects(ctx, filepath.FromSlash("/repo"), nil)
	assert.ErrorIs(t, err, context.Canceled)
}
