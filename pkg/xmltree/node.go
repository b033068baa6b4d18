// Package xmltree is a tolerant XML parser that keeps exact byte spans for
// every construct, including the pieces of malformed markup an editor sees
// while the user is still typing.
//
// All nodes of a document live in one arena slice. Parent, sibling and child
// relations are indices into that slice, so a whole document is dropped as a
// single value.
package xmltree

import "fmt"

// NodeID identifies a node in the document arena.
type NodeID int

// NoNode is the absent-node reference.
const NoNode NodeID = -1

type Kind uint8

const (
	KindElement Kind = iota + 1
	KindEmptyElement
	KindInvalidElement
	KindAttribute
	KindText
	KindWhitespace
)

func (k Kind) String() string {
	switch k {
	case KindElement:
		return "Element"
	case KindEmptyElement:
		return "EmptyElement"
	case KindInvalidElement:
		return "InvalidElement"
	case KindAttribute:
		return "Attribute"
	case KindText:
		return "ElementText"
	case KindWhitespace:
		return "Whitespace"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Span is a half-open byte range [Start, End) into the document text.
type Span struct {
	Start int
	End   int
}

// NoSpan marks a sub-span that does not exist (a missing closing tag, a
// missing attribute value).
var NoSpan = Span{Start: -1, End: -1}

func (s Span) Exists() bool {
	return s.Start >= 0
}

func (s Span) Len() int {
	if !s.Exists() {
		return 0
	}
	return s.End - s.Start
}

// Contains reports Start <= off < End.
func (s Span) Contains(off int) bool {
	return s.Exists() && off >= s.Start && off < s.End
}

// Touches reports Start <= off <= End, for cursor positions that sit right
// after the last character.
func (s Span) Touches(off int) bool {
	return s.Exists() && off >= s.Start && off <= s.End
}

func (s Span) String() string {
	if !s.Exists() {
		return "[-]"
	}
	return fmt.Sprintf("[%d,%d)", s.Start, s.End)
}

// Node is one syntax node. Which of the kind-specific fields are meaningful
// depends on Kind.
type Node struct {
	doc *Document
	id  NodeID

	Kind  Kind
	Span  Span
	Valid bool

	// elements and attributes
	Name     string
	NameSpan Span

	// elements
	AttributesSpan Span
	SlashOffset    int // offset of the self-closing '/', or -1
	OpeningTag     Span
	Content        Span
	ClosingTag     Span

	// attributes
	Value     string
	ValueSpan Span

	// text and whitespace
	Text string

	parent     NodeID
	prev       NodeID
	next       NodeID
	children   []NodeID
	attributes []NodeID
}

func (n *Node) ID() NodeID {
	return n.id
}

func (n *Node) Document() *Document {
	return n.doc
}

// IsElement covers valid, empty and invalid elements.
func (n *Node) IsElement() bool {
	switch n.Kind {
	case KindElement, KindEmptyElement, KindInvalidElement:
		return true
	}
	return false
}

func (n *Node) Parent() *Node {
	return n.doc.Node(n.parent)
}

func (n *Node) PreviousSibling() *Node {
	return n.doc.Node(n.prev)
}

func (n *Node) NextSibling() *Node {
	return n.doc.Node(n.next)
}

// Children returns the content nodes (elements, text, whitespace) in document
// order.
func (n *Node) Children() []*Node {
	return n.doc.nodes(n.children)
}

// ChildElements returns only the element children.
func (n *Node) ChildElements() []*Node {
	out := make([]*Node, 0, len(n.children))
	for _, c := range n.Children() {
		if c.IsElement() {
			out = append(out, c)
		}
	}
	return out
}

func (n *Node) Attributes() []*Node {
	return n.doc.nodes(n.attributes)
}

// Attribute finds an attribute by exact name.
func (n *Node) Attribute(name string) *Node {
	for _, a := range n.Attributes() {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// AttributeValue is a shortcut for Attribute(name).Value.
func (n *Node) AttributeValue(name string) (string, bool) {
	a := n.Attribute(name)
	if a == nil {
		return "", false
	}
	return a.Value, true
}

// Element returns n itself for elements and the owning element otherwise.
func (n *Node) Element() *Node {
	if n.IsElement() {
		return n
	}
	return n.Parent()
}

// Path is the element path of n's element scope: the element itself for
// elements, the owning element for attributes, text and whitespace.
func (n *Node) Path() Path {
	var names []string
	for e := n.Element(); e != nil; e = e.Parent() {
		names = append(names, e.Name)
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return Path(names)
}

// HasParentPath matches the path of the element that contains n's element
// scope.
func (n *Node) HasParentPath(pattern string) bool {
	e := n.Element()
	if e == nil {
		return false
	}
	p := e.Parent()
	if p == nil {
		return Path(nil).Matches(pattern)
	}
	return p.Path().Matches(pattern)
}

// HasPath matches the path of n's element scope.
func (n *Node) HasPath(pattern string) bool {
	return n.Path().Matches(pattern)
}

// SourceText returns the raw markup covered by the node.
func (n *Node) SourceText() string {
	return n.doc.Text[n.Span.Start:n.Span.End]
}

func (n *Node) String() string {
	switch n.Kind {
	case KindAttribute:
		return fmt.Sprintf("%s %s=%q %s", n.Kind, n.Name, n.Value, n.Span)
	case KindText, KindWhitespace:
		return fmt.Sprintf("%s %q %s", n.Kind, n.Text, n.Span)
	}
	return fmt.Sprintf("%s <%s> %s", n.Kind, n.Name, n.Span)
}
