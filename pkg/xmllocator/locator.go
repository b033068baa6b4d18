// Package xmllocator answers "what XML construct is at this position" for a
// parsed project document.
package xmllocator

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/walteh/msbuildls/pkg/position"
	"github.com/walteh/msbuildls/pkg/rangeindex"
	"github.com/walteh/msbuildls/pkg/xmltree"
	"gitlab.com/tozd/go/errors"
)

// ErrInvalidArgument rejects nil or otherwise unusable constructor and query
// arguments.
var ErrInvalidArgument = errors.Base("invalid argument")

// Locator indexes every node of a document by its range.
type Locator struct {
	doc       *xmltree.Document
	positions *position.TextPositions
	index     *rangeindex.Index[xmltree.NodeID]
	ranges    []position.Range
	logger    zerolog.Logger
}

func New(doc *xmltree.Document, positions *position.TextPositions, logger zerolog.Logger) (*Locator, error) {
	if doc == nil {
		return nil, errors.Errorf("%w: nil document", ErrInvalidArgument)
	}
	if positions == nil {
		return nil, errors.Errorf("%w: nil text positions", ErrInvalidArgument)
	}
	if positions.Text() != doc.Text {
		return nil, errors.Errorf("%w: text positions were built from a different text", ErrInvalidArgument)
	}

	l := &Locator{
		doc:       doc,
		positions: positions,
		index:     rangeindex.New[xmltree.NodeID](),
		ranges:    make([]position.Range, doc.Len()),
		logger:    logger.With().Str("component", "xml-locator").Logger(),
	}

	for _, n := range doc.Nodes() {
		rng, err := positions.RangeOf(n.Span.Start, n.Span.End)
		if err != nil {
			return nil, errors.Errorf("computing range of %s: %w", n, err)
		}
		l.ranges[n.ID()] = rng

		if existing, _, added := l.index.Add(rng, n.ID()); !added {
			l.logger.Warn().
				Stringer("node", n).
				Stringer("existing", doc.Node(existing)).
				Stringer("range", rng).
				Msg("two xml nodes start at the same position, keeping the first")
		}
	}
	l.index.Sort()

	l.logger.Debug().Int("nodes", l.index.Len()).Msg("built xml locator")

	return l, nil
}

func (l *Locator) Document() *xmltree.Document {
	return l.doc
}

func (l *Locator) Positions() *position.TextPositions {
	return l.positions
}

// NodeRange returns the range of a node from this locator's document.
func (l *Locator) NodeRange(n *xmltree.Node) position.Range {
	if n == nil || n.Document() != l.doc {
		return position.ZeroRange
	}
	return l.ranges[n.ID()]
}

// SpanRange converts a sub-span of the document (a name, a value) to a range.
func (l *Locator) SpanRange(span xmltree.Span) (position.Range, error) {
	if !span.Exists() {
		return position.ZeroRange, errors.Errorf("%w: span does not exist", ErrInvalidArgument)
	}
	return l.positions.RangeOf(span.Start, span.End)
}

// AllNodes returns every node in document order.
func (l *Locator) AllNodes() []*xmltree.Node {
	ids := l.index.All()
	out := make([]*xmltree.Node, len(ids))
	for i, id := range ids {
		out[i] = l.doc.Node(id)
	}
	return out
}

// FindNode returns the innermost node whose range contains pos, or nil.
func (l *Locator) FindNode(ctx context.Context, pos position.Position) (*xmltree.Node, error) {
	if pos.IsZero() {
		return nil, errors.Errorf("%w: zero position", ErrInvalidArgument)
	}

	id, _, ok, err := l.index.Find(ctx, pos.ToOneBased())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return l.doc.Node(id), nil
}

// Inspect classifies the markup at pos. It returns nil when no node covers
// the position.
func (l *Locator) Inspect(ctx context.Context, pos position.Position) (*Location, error) {
	if pos.IsZero() {
		return nil, errors.Errorf("%w: zero position", ErrInvalidArgument)
	}
	pos = pos.ToOneBased()

	offset, err := l.positions.ToAbsolute(pos)
	if err != nil {
		return nil, errors.Errorf("resolving %s: %w", pos, err)
	}

	node, err := l.FindNode(ctx, pos)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, nil
	}

	// a cursor on the seam between two siblings belongs to the one that follows
	if next := node.NextSibling(); next != nil {
		if l.NodeRange(node).End == pos && l.NodeRange(next).Start == pos {
			node = next
		}
	}

	return &Location{
		Position: pos,
		Offset:   offset,
		Node:     node,
		Flags:    computeFlags(node, offset),
		locator:  l,
	}, nil
}

func computeFlags(n *xmltree.Node, off int) Flags {
	var f Flags

	switch n.Kind {
	case xmltree.KindEmptyElement:
		f |= FlagElement | FlagEmpty
		if n.NameSpan.Touches(off) {
			f |= FlagName
		}
		region := n.AttributesSpan
		if n.SlashOffset >= 0 {
			region = xmltree.Span{Start: n.NameSpan.End, End: n.SlashOffset}
		}
		if inAttributesRegion(region, off) {
			f |= FlagAttributes
		}

	case xmltree.KindElement:
		f |= FlagElement
		if n.NameSpan.Touches(off) {
			f |= FlagName
		}
		if n.OpeningTag.Contains(off) {
			f |= FlagOpeningTag
		}
		if n.ClosingTag.Contains(off) {
			f |= FlagClosingTag
		}
		if inAttributesRegion(n.AttributesSpan, off) {
			f |= FlagAttributes
		}
		if n.Content.Touches(off) {
			f |= FlagValue
		}

	case xmltree.KindInvalidElement:
		f |= FlagElement
		if n.NameSpan.Len() > 0 && n.NameSpan.Touches(off) {
			f |= FlagName
		}
		if inAttributesRegion(n.AttributesSpan, off) {
			f |= FlagAttributes
		}

	case xmltree.KindAttribute:
		f |= FlagAttribute
		if n.NameSpan.Touches(off) {
			f |= FlagName
		}
		if n.ValueSpan.Touches(off) {
			f |= FlagValue
		}

	case xmltree.KindText:
		f |= FlagText | FlagElement | FlagValue

	case xmltree.KindWhitespace:
		f |= FlagWhitespace | FlagElement | FlagValue
	}

	if !n.Valid {
		f |= FlagInvalid
	}

	return f
}

// the region starts after the element name, so a cursor at the end of the
// name is on the name rather than between attributes
func inAttributesRegion(region xmltree.Span, off int) bool {
	return region.Exists() && off > region.Start && off <= region.End
}
