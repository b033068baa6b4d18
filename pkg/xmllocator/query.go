package xmllocator

import (
	"github.com/walteh/msbuildls/pkg/xmltree"
)

// Padding says which sides of an inserted attribute need a separating space.
type Padding uint8

const (
	PaddingNone     Padding = 0
	PaddingLeading  Padding = 1 << 0
	PaddingTrailing Padding = 1 << 1
	PaddingBoth             = PaddingLeading | PaddingTrailing
)

func (p Padding) Leading() bool  { return p&PaddingLeading != 0 }
func (p Padding) Trailing() bool { return p&PaddingTrailing != 0 }

// CanCompleteElement reports whether an element can be completed at the
// location under a parent whose path matches parentPath. replace is the
// element being typed, or nil when a new element would be inserted.
func (l *Location) CanCompleteElement(parentPath string) (replace *xmltree.Node, ok bool) {
	if ws, isWS := l.IsWhitespace(); isWS {
		return nil, ws.HasPath(parentPath)
	}

	el, isEl := l.IsElement()
	if !isEl {
		return nil, false
	}

	// inside the (empty) content of an element: a child goes here
	if l.Flags.Has(FlagValue) && el.Kind == xmltree.KindElement {
		return nil, el.HasPath(parentPath)
	}

	if l.Flags.Has(FlagAttributes) || l.Flags.Has(FlagClosingTag) {
		return nil, false
	}

	target := el
	if parent := el.Parent(); parent != nil && parent.Kind == xmltree.KindInvalidElement && !parent.Valid {
		// typing "<" in front of an existing element leaves a nameless element
		// directly before it; the user is really editing that one
		pr, er := l.locator.NodeRange(parent), l.locator.NodeRange(el)
		if pr.Start.Line == er.Start.Line && er.Start.Column == pr.Start.Column+1 {
			target = parent
		}
	}

	if !target.HasParentPath(parentPath) {
		return nil, false
	}
	return target, true
}

// CanCompleteAttribute reports whether an attribute can be completed on an
// element whose path matches onElementWithPath. replace is the attribute being
// typed, or nil when a new one would be inserted with the returned padding.
func (l *Location) CanCompleteAttribute(onElementWithPath string) (element, replace *xmltree.Node, padding Padding, ok bool) {
	text := l.Node.Document().Text

	if attr, isAttr := l.IsAttribute(); isAttr {
		if l.Flags.Has(FlagValue) {
			return nil, nil, PaddingNone, false
		}
		el := attr.Parent()
		if el == nil || !el.HasPath(onElementWithPath) {
			return nil, nil, PaddingNone, false
		}
		if l.Offset == attr.Span.Start {
			// insert in front of the existing attribute
			padding = PaddingTrailing
			if l.Offset > 0 && !isSpace(text[l.Offset-1]) {
				padding |= PaddingLeading
			}
			return el, nil, padding, true
		}
		return el, attr, PaddingNone, true
	}

	el, isEl := l.IsElement()
	if !isEl || !el.HasPath(onElementWithPath) {
		return nil, nil, PaddingNone, false
	}

	switch {
	case l.Flags.Has(FlagAttributes):
	case l.Flags.Has(FlagName) && el.NameSpan.Len() > 0 && l.Offset == el.NameSpan.End:
	default:
		return nil, nil, PaddingNone, false
	}

	if l.Offset > 0 && !isSpace(text[l.Offset-1]) {
		padding |= PaddingLeading
	}
	if l.Offset < len(text) && isNameStart(text[l.Offset]) {
		padding |= PaddingTrailing
	}
	return el, nil, padding, true
}

// CanCompleteAttributeValue reports whether the location is inside the value
// of an attribute on an element matching onElementWithPath. When names are
// given the attribute must have one of them.
func (l *Location) CanCompleteAttributeValue(onElementWithPath string, names ...string) (*xmltree.Node, bool) {
	attr, ok := l.IsAttributeValue()
	if !ok || !attr.HasPath(onElementWithPath) {
		return nil, false
	}
	if len(names) == 0 {
		return attr, true
	}
	for _, name := range names {
		if attr.Name == name {
			return attr, true
		}
	}
	return nil, false
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

func isNameStart(c byte) bool {
	return c == '_' || c == ':' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}
