package xmltree

import (
	"strings"
)

// Document is a parsed XML text. It is immutable once Parse returns.
type Document struct {
	Text string

	arena []Node
	roots []NodeID
}

// Node returns the node with the given id, or nil for NoNode.
func (d *Document) Node(id NodeID) *Node {
	if d == nil || id < 0 || int(id) >= len(d.arena) {
		return nil
	}
	return &d.arena[id]
}

func (d *Document) nodes(ids []NodeID) []*Node {
	out := make([]*Node, len(ids))
	for i, id := range ids {
		out[i] = &d.arena[id]
	}
	return out
}

// Len is the number of nodes in the arena.
func (d *Document) Len() int {
	return len(d.arena)
}

// Nodes returns every node in document order.
func (d *Document) Nodes() []*Node {
	out := make([]*Node, len(d.arena))
	for i := range d.arena {
		out[i] = &d.arena[i]
	}
	return out
}

// Roots returns the top-level elements.
func (d *Document) Roots() []*Node {
	return d.nodes(d.roots)
}

// Root returns the first top-level element, or nil for a document without one.
func (d *Document) Root() *Node {
	if len(d.roots) == 0 {
		return nil
	}
	return d.Node(d.roots[0])
}

var entityReplacer = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&amp;", "&",
	"&quot;", `"`,
	"&apos;", "'",
)

type parser struct {
	text string
	pos  int
	doc  *Document
	open []string
}

// Parse never fails: malformed markup is represented by invalid nodes.
func Parse(text string) *Document {
	p := &parser{
		text: text,
		doc:  &Document{Text: text},
	}
	p.parseTopLevel()
	return p.doc
}

func (p *parser) eof() bool {
	return p.pos >= len(p.text)
}

func (p *parser) hasPrefix(s string) bool {
	return strings.HasPrefix(p.text[p.pos:], s)
}

// skipPast moves after the next occurrence of marker, or to EOF.
func (p *parser) skipPast(marker string) {
	if idx := strings.Index(p.text[p.pos:], marker); idx >= 0 {
		p.pos += idx + len(marker)
		return
	}
	p.pos = len(p.text)
}

func (p *parser) skipWhitespace() {
	for !p.eof() && isSpace(p.text[p.pos]) {
		p.pos++
	}
}

func (p *parser) readName() Span {
	start := p.pos
	if p.eof() || !isNameStart(p.text[p.pos]) {
		return Span{Start: start, End: start}
	}
	for !p.eof() && isNameChar(p.text[p.pos]) {
		p.pos++
	}
	return Span{Start: start, End: p.pos}
}

func (p *parser) newNode(kind Kind, parent NodeID, start int) NodeID {
	id := NodeID(len(p.doc.arena))
	p.doc.arena = append(p.doc.arena, Node{
		doc:         p.doc,
		id:          id,
		Kind:        kind,
		Span:        Span{Start: start, End: start},
		Valid:       true,
		NameSpan:    NoSpan,
		SlashOffset: -1,

		AttributesSpan: NoSpan,
		OpeningTag:     NoSpan,
		Content:        NoSpan,
		ClosingTag:     NoSpan,
		ValueSpan:      NoSpan,

		parent: parent,
		prev:   NoNode,
		next:   NoNode,
	})

	if kind == KindAttribute {
		owner := &p.doc.arena[parent]
		p.link(owner.attributes, id)
		owner.attributes = append(owner.attributes, id)
		return id
	}

	if parent == NoNode {
		p.link(p.doc.roots, id)
		p.doc.roots = append(p.doc.roots, id)
		return id
	}

	owner := &p.doc.arena[parent]
	p.link(owner.children, id)
	owner.children = append(owner.children, id)
	return id
}

func (p *parser) link(siblings []NodeID, id NodeID) {
	if len(siblings) == 0 {
		return
	}
	prev := siblings[len(siblings)-1]
	p.doc.arena[prev].next = id
	p.doc.arena[id].prev = prev
}

func (p *parser) node(id NodeID) *Node {
	return &p.doc.arena[id]
}

func (p *parser) parseTopLevel() {
	for !p.eof() {
		switch {
		case p.hasPrefix("</"):
			// stray closing tag
			p.skipPast(">")
		case p.skipMarkupDeclaration():
		case p.text[p.pos] == '<':
			p.parseElement(NoNode)
		default:
			p.readText(NoNode)
		}
	}
}

// skipMarkupDeclaration consumes comments, processing instructions and
// DOCTYPE-like declarations, none of which produce nodes.
func (p *parser) skipMarkupDeclaration() bool {
	switch {
	case p.hasPrefix("<!--"):
		p.pos += 4
		p.skipPast("-->")
	case p.hasPrefix("<?"):
		p.skipPast("?>")
	case p.hasPrefix("<!") && !p.hasPrefix("<![CDATA["):
		p.skipPast(">")
	default:
		return false
	}
	return true
}

// parseContent reads child content until a closing tag or EOF.
func (p *parser) parseContent(parent NodeID) {
	for !p.eof() {
		switch {
		case p.hasPrefix("</"):
			return
		case p.hasPrefix("<![CDATA["):
			start := p.pos
			p.pos += len("<![CDATA[")
			valueStart := p.pos
			p.skipPast("]]>")
			id := p.newNode(KindText, parent, start)
			n := p.node(id)
			n.Span.End = p.pos
			valueEnd := p.pos - len("]]>")
			if valueEnd < valueStart {
				valueEnd = p.pos
				n.Valid = false
			}
			n.Text = p.text[valueStart:valueEnd]
		case p.skipMarkupDeclaration():
		case p.text[p.pos] == '<':
			p.parseElement(parent)
		default:
			p.readText(parent)
		}
	}
}

func (p *parser) readText(parent NodeID) {
	start := p.pos
	if idx := strings.IndexByte(p.text[p.pos:], '<'); idx >= 0 {
		p.pos += idx
	} else {
		p.pos = len(p.text)
	}
	if parent == NoNode {
		return
	}

	raw := p.text[start:p.pos]
	kind := KindText
	if strings.TrimLeft(raw, " \t\r\n") == "" {
		kind = KindWhitespace
	}

	id := p.newNode(kind, parent, start)
	n := p.node(id)
	n.Span.End = p.pos
	n.Text = entityReplacer.Replace(raw)
}

func (p *parser) parseElement(parent NodeID) {
	start := p.pos
	p.pos++ // '<'

	id := p.newNode(KindElement, parent, start)
	nameSpan := p.readName()
	{
		n := p.node(id)
		n.NameSpan = nameSpan
		n.Name = p.text[nameSpan.Start:nameSpan.End]
	}

	if nameSpan.Len() == 0 {
		p.parseNamelessElement(id)
		return
	}

	for {
		p.skipWhitespace()
		if p.eof() || p.text[p.pos] == '<' {
			// unterminated start tag
			n := p.node(id)
			n.Kind = KindInvalidElement
			n.Valid = false
			n.AttributesSpan = Span{Start: nameSpan.End, End: p.pos}
			n.OpeningTag = Span{Start: start, End: p.pos}
			n.Span.End = p.pos
			return
		}

		c := p.text[p.pos]
		switch {
		case c == '/' && p.hasPrefix("/>"):
			n := p.node(id)
			n.Kind = KindEmptyElement
			n.SlashOffset = p.pos
			n.AttributesSpan = Span{Start: nameSpan.End, End: p.pos}
			p.pos += 2
			n.OpeningTag = Span{Start: start, End: p.pos}
			n.Span.End = p.pos
			return
		case c == '>':
			n := p.node(id)
			n.AttributesSpan = Span{Start: nameSpan.End, End: p.pos}
			p.pos++
			n.OpeningTag = Span{Start: start, End: p.pos}
			p.parseElementContent(id)
			return
		case isNameStart(c):
			p.parseAttribute(id)
		default:
			p.node(id).Valid = false
			p.pos++
		}
	}
}

// parseNamelessElement handles a '<' that is not followed by a name, such as
// the first bracket of "<<Foo />". The element adopts whatever content follows
// up to the next closing tag, which belongs to an ancestor.
func (p *parser) parseNamelessElement(id NodeID) {
	{
		n := p.node(id)
		n.Kind = KindInvalidElement
		n.Valid = false
		n.AttributesSpan = Span{Start: p.pos, End: p.pos}
		n.OpeningTag = Span{Start: n.Span.Start, End: p.pos}
		n.Content = Span{Start: p.pos}
	}

	p.parseContent(id)

	n := p.node(id)
	n.Content.End = p.pos
	n.Span.End = p.pos
}

func (p *parser) parseElementContent(id NodeID) {
	name := p.node(id).Name

	p.open = append(p.open, name)
	contentStart := p.pos
	p.parseContent(id)
	p.open = p.open[:len(p.open)-1]

	n := p.node(id)
	n.Content = Span{Start: contentStart, End: p.pos}

	if p.eof() {
		n.Valid = false
		n.Span.End = p.pos
		return
	}

	closeStart := p.pos
	p.pos += 2 // "</"
	closeName := p.readName()
	closing := p.text[closeName.Start:closeName.End]

	if closing != name && p.isOpen(closing) {
		// our closing tag is missing; leave this one for the ancestor
		p.pos = closeStart
		n.Valid = false
		n.Span.End = closeStart
		return
	}

	if closing != name {
		n.Valid = false
	}
	p.skipWhitespace()
	if !p.eof() && p.text[p.pos] == '>' {
		p.pos++
	} else {
		n.Valid = false
	}

	n.ClosingTag = Span{Start: closeStart, End: p.pos}
	n.Span.End = p.pos
}

func (p *parser) isOpen(name string) bool {
	if name == "" {
		return false
	}
	for _, o := range p.open {
		if o == name {
			return true
		}
	}
	return false
}

func (p *parser) parseAttribute(owner NodeID) {
	start := p.pos
	id := p.newNode(KindAttribute, owner, start)

	nameSpan := p.readName()
	afterName := p.pos
	{
		n := p.node(id)
		n.NameSpan = nameSpan
		n.Name = p.text[nameSpan.Start:nameSpan.End]
		n.Span.End = afterName
	}

	p.skipWhitespace()
	if p.eof() || p.text[p.pos] != '=' {
		p.pos = afterName
		p.node(id).Valid = false
		return
	}
	p.pos++ // '='
	p.skipWhitespace()

	n := p.node(id)
	if p.eof() || (p.text[p.pos] != '"' && p.text[p.pos] != '\'') {
		n.Valid = false
		n.ValueSpan = Span{Start: p.pos, End: p.pos}
		n.Span.End = p.pos
		return
	}

	quote := p.text[p.pos]
	p.pos++
	valueStart := p.pos

	end := -1
	for i := p.pos; i < len(p.text); i++ {
		c := p.text[i]
		if c == quote {
			end = i
			break
		}
		if c == '<' {
			break
		}
	}

	if end >= 0 {
		n.ValueSpan = Span{Start: valueStart, End: end}
		p.pos = end + 1
	} else {
		// unterminated value: stop at the end of the line or the tag
		stop := valueStart
		for stop < len(p.text) && !strings.ContainsRune("<>\r\n", rune(p.text[stop])) {
			stop++
		}
		n.Valid = false
		n.ValueSpan = Span{Start: valueStart, End: stop}
		p.pos = stop
	}

	n.Value = entityReplacer.Replace(p.text[n.ValueSpan.Start:n.ValueSpan.End])
	n.Span.End = p.pos
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

func isNameStart(c byte) bool {
	return c == '_' || c == ':' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isNameChar(c byte) bool {
	return isNameStart(c) || c == '-' || c == '.' || (c >= '0' && c <= '9')
}
