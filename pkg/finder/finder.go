package finder

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
)

// ProjectFinder is responsible for finding project files in a directory
type ProjectFinder interface {
	// FindProjects finds all files in a directory that match the given extensions
	FindProjects(ctx context.Context, dir string, extensions []string) ([]string, error)
}

// DefaultExtensions are the project, import and solution files msbuildls
// understands.
var DefaultExtensions = []string{".csproj", ".fsproj", ".vbproj", ".proj", ".props", ".targets", ".slnx"}

// skipped directories hold build output or tooling state, never sources.
var skipped = map[string]bool{
	"bin":          true,
	"obj":          true,
	".git":         true,
	"node_modules": true,
}

// DefaultFinder is the default implementation of ProjectFinder
type DefaultFinder struct {
	fs afero.Fs
}

func NewDefaultFinder(fs afero.Fs) *DefaultFinder {
	return &DefaultFinder{fs: fs}
}

// FindProjects returns the absolute paths of the matching files under dir,
// sorted. A nil extensions list means DefaultExtensions.
func (f *DefaultFinder) FindProjects(ctx context.Context, dir string, extensions []string) ([]string, error) {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}

	if ok, err := afero.DirExists(f.fs, dir); err != nil {
		return nil, errors.Errorf("checking %s: %w", dir, err)
	} else if !ok {
		return nil, errors.Errorf("%s is not a directory", dir)
	}

	pattern := "**/*{" + strings.Join(extensions, ",") + "}"
	fsys := afero.NewIOFS(afero.NewBasePathFs(f.fs, dir))

	matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly(), doublestar.WithFailOnIOErrors())
	if err != nil {
		return nil, errors.Errorf("searching %s: %w", dir, err)
	}

	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if inSkippedDir(m) {
			continue
		}
		out = append(out, filepath.Join(dir, filepath.FromSlash(m)))
	}
	sort.Strings(out)

	zerolog.Ctx(ctx).Debug().Str("dir", dir).Int("count", len(out)).Msg("found project files")
	return out, nil
}

func inSkippedDir(rel string) bool {
	parts := strings.Split(rel, "/")
	for _, p := range parts[:len(parts)-1] {
		if skipped[strings.ToLower(p)] {
			return true
		}
	}
	return false
}
