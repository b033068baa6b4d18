package config

import (
	"strconv"
	"strings"

	"github.com/editorconfig/editorconfig-core-go/v2"
	"gitlab.com/tozd/go/errors"
)

const DefaultIndent = "  "

// Indent returns one level of indentation for path according to the
// .editorconfig files above it.
func Indent(path string) (string, error) {
	def, err := editorconfig.GetDefinitionForFilename(path)
	if err != nil {
		return DefaultIndent, errors.Errorf("reading editorconfig for %s: %w", path, err)
	}
	return indentFor(def), nil
}

func indentFor(def *editorconfig.Definition) string {
	if def == nil {
		return DefaultIndent
	}
	if def.IndentStyle == editorconfig.IndentStyleTab {
		return "\t"
	}

	size := def.TabWidth
	if n, err := strconv.Atoi(def.IndentSize); err == nil && n > 0 {
		size = n
	}
	if size <= 0 {
		return DefaultIndent
	}
	return strings.Repeat(" ", size)
}
