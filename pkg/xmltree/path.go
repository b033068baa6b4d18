package xmltree

import "strings"

// Path is a sequence of element names from the document root downwards.
type Path []string

func (p Path) String() string {
	return "/" + strings.Join(p, "/")
}

func (p Path) Leaf() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// Matches checks p against a pattern. "/Project/PropertyGroup" is absolute and
// must match the whole path; "PropertyGroup" or "Target/*" are relative and
// match a suffix. A "*" segment matches any single name. The empty pattern
// matches everything.
func (p Path) Matches(pattern string) bool {
	if pattern == "" {
		return true
	}

	absolute := strings.HasPrefix(pattern, "/")
	segments := strings.Split(strings.Trim(pattern, "/"), "/")
	if len(segments) == 1 && segments[0] == "" {
		segments = nil
	}

	if absolute && len(segments) != len(p) {
		return false
	}
	if len(segments) > len(p) {
		return false
	}

	offset := len(p) - len(segments)
	for i, seg := range segments {
		if seg != "*" && seg != p[offset+i] {
			return false
		}
	}
	return true
}
