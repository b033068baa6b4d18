package xmllocator

import (
	"fmt"
	"strings"

	"github.com/walteh/msbuildls/pkg/position"
	"github.com/walteh/msbuildls/pkg/xmltree"
)

// Flags describe which part of a node a position falls on.
type Flags uint16

const (
	FlagName Flags = 1 << iota
	FlagValue
	FlagText
	FlagWhitespace
	FlagAttribute
	FlagElement
	FlagEmpty
	FlagOpeningTag
	FlagClosingTag
	FlagAttributes
	FlagInvalid
)

var flagNames = []struct {
	flag Flags
	name string
}{
	{FlagElement, "Element"},
	{FlagAttribute, "Attribute"},
	{FlagText, "Text"},
	{FlagWhitespace, "Whitespace"},
	{FlagEmpty, "Empty"},
	{FlagName, "Name"},
	{FlagValue, "Value"},
	{FlagOpeningTag, "OpeningTag"},
	{FlagClosingTag, "ClosingTag"},
	{FlagAttributes, "Attributes"},
	{FlagInvalid, "Invalid"},
}

// Has reports whether all bits of want are set.
func (f Flags) Has(want Flags) bool {
	return f&want == want
}

func (f Flags) String() string {
	if f == 0 {
		return "None"
	}
	var parts []string
	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			parts = append(parts, fn.name)
		}
	}
	return strings.Join(parts, "|")
}

// Location is the result of an Inspect: the innermost node at a position and
// the flags saying where on that node the position sits.
type Location struct {
	Position position.Position
	Offset   int
	Node     *xmltree.Node
	Flags    Flags

	locator *Locator
}

// Range is the full range of the located node.
func (l *Location) Range() position.Range {
	return l.locator.NodeRange(l.Node)
}

// Locator returns the locator that produced l.
func (l *Location) Locator() *Locator {
	return l.locator
}

func (l *Location) String() string {
	return fmt.Sprintf("%s @ %s (%s)", l.Node, l.Position, l.Flags)
}

// IsElement returns the element at the location, if the location is on one.
// Text and whitespace inside an element do not count.
func (l *Location) IsElement() (*xmltree.Node, bool) {
	if !l.Node.IsElement() {
		return nil, false
	}
	return l.Node, true
}

func (l *Location) IsEmptyElement() (*xmltree.Node, bool) {
	if l.Node.Kind != xmltree.KindEmptyElement {
		return nil, false
	}
	return l.Node, true
}

func (l *Location) IsAttribute() (*xmltree.Node, bool) {
	if l.Node.Kind != xmltree.KindAttribute {
		return nil, false
	}
	return l.Node, true
}

func (l *Location) IsWhitespace() (*xmltree.Node, bool) {
	if l.Node.Kind != xmltree.KindWhitespace {
		return nil, false
	}
	return l.Node, true
}

func (l *Location) IsText() (*xmltree.Node, bool) {
	if l.Node.Kind != xmltree.KindText {
		return nil, false
	}
	return l.Node, true
}

func (l *Location) IsElementName() bool {
	return l.Node.IsElement() && l.Flags.Has(FlagName)
}

func (l *Location) IsAttributeName() bool {
	return l.Flags.Has(FlagAttribute | FlagName)
}

// IsAttributeValue returns the attribute when the location is strictly
// inside its quotes.
func (l *Location) IsAttributeValue() (*xmltree.Node, bool) {
	if !l.Flags.Has(FlagAttribute | FlagValue) {
		return nil, false
	}
	return l.Node, true
}

// IsInAttributesRegion is true between the element name and the end of the
// opening tag, outside any attribute.
func (l *Location) IsInAttributesRegion() bool {
	return l.Flags.Has(FlagElement | FlagAttributes)
}

func (l *Location) IsElementContent() bool {
	return l.Flags.Has(FlagElement | FlagValue)
}
