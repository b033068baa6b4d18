package evaluation

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	propertyRef = regexp.MustCompile(`\$\(\s*([A-Za-z_][A-Za-z0-9_.\-]*)\s*\)`)
	itemListRef = regexp.MustCompile(`@\(\s*([A-Za-z_][A-Za-z0-9_.\-]*)\s*\)`)
)

// expand replaces $(Name) with property values and @(Type) with the
// semicolon-joined includes of the items evaluated so far. Property functions
// and metadata references are left as written.
func (s *state) expand(file *sourceFile, value string) string {
	if !strings.ContainsAny(value, "$@") {
		return value
	}

	value = propertyRef.ReplaceAllStringFunc(value, func(ref string) string {
		name := propertyRef.FindStringSubmatch(ref)[1]
		if v, ok := file.thisFileProperty(name); ok {
			return v
		}
		if p, ok := s.properties[strings.ToLower(name)]; ok {
			return p.Value
		}
		return ""
	})

	return itemListRef.ReplaceAllStringFunc(value, func(ref string) string {
		itemType := itemListRef.FindStringSubmatch(ref)[1]
		var includes []string
		for _, it := range s.items {
			if strings.EqualFold(it.ItemType, itemType) {
				includes = append(includes, it.Include)
			}
		}
		return strings.Join(includes, ";")
	})
}

// thisFileProperty resolves the reserved properties that describe the file
// currently being evaluated rather than the root project.
func (f *sourceFile) thisFileProperty(name string) (string, bool) {
	switch strings.ToLower(name) {
	case "msbuildthisfile":
		return filepath.Base(f.path), true
	case "msbuildthisfilename":
		return strings.TrimSuffix(filepath.Base(f.path), filepath.Ext(f.path)), true
	case "msbuildthisfileextension":
		return filepath.Ext(f.path), true
	case "msbuildthisfilefullpath":
		return f.path, true
	case "msbuildthisfiledirectory":
		return withTrailingSeparator(filepath.Dir(f.path)), true
	}
	return "", false
}

func withTrailingSeparator(dir string) string {
	if strings.HasSuffix(dir, string(filepath.Separator)) {
		return dir
	}
	return dir + string(filepath.Separator)
}

// splitList splits a semicolon-separated MSBuild list, dropping empty entries.
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
