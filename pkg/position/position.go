package position

import (
	"fmt"
)

// Position is a line/column pair tagged with the origin it was expressed in.
//
// Editor protocol positions are zero-based, everything indexed internally is
// one-based. The tag travels with the value so a position can never cross
// that boundary without an explicit ToOneBased / ToZeroBased.
type Position struct {
	Line   int
	Column int

	zeroBased bool
}

// Zero is the "no position" sentinel. It is the zero value of Position.
var Zero = Position{}

// OneBased creates a position using the internal, one-based convention.
func OneBased(line, column int) Position {
	return Position{Line: line, Column: column}
}

// ZeroBased creates a position using the editor protocol convention.
func ZeroBased(line, column int) Position {
	return Position{Line: line, Column: column, zeroBased: true}
}

func (p Position) IsZeroBased() bool {
	return p.zeroBased
}

func (p Position) IsOneBased() bool {
	return !p.zeroBased
}

// IsZero reports whether p is the Zero sentinel.
func (p Position) IsZero() bool {
	return p == Zero
}

func (p Position) ToOneBased() Position {
	if !p.zeroBased {
		return p
	}
	return OneBased(p.Line+1, p.Column+1)
}

func (p Position) ToZeroBased() Position {
	if p.zeroBased {
		return p
	}
	return ZeroBased(p.Line-1, p.Column-1)
}

// Compare orders positions by line, then column. Both sides are compared in
// the one-based convention.
func (p Position) Compare(other Position) int {
	a, b := p.ToOneBased(), other.ToOneBased()
	switch {
	case a.Line < b.Line:
		return -1
	case a.Line > b.Line:
		return 1
	case a.Column < b.Column:
		return -1
	case a.Column > b.Column:
		return 1
	}
	return 0
}

func (p Position) Before(other Position) bool {
	return p.Compare(other) < 0
}

func (p Position) After(other Position) bool {
	return p.Compare(other) > 0
}

// Move returns the position shifted by the given line and column deltas,
// keeping its origin.
func (p Position) Move(lines, columns int) Position {
	p.Line += lines
	p.Column += columns
	return p
}

func (p Position) String() string {
	if p.zeroBased {
		return fmt.Sprintf("%d:%d (0-based)", p.Line, p.Column)
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Range is a pair of one-based positions with Start <= End.
type Range struct {
	Start Position
	End   Position
}

// ZeroRange is the "no match" sentinel.
var ZeroRange = Range{}

// NewRange normalises both ends to the one-based convention.
func NewRange(start, end Position) Range {
	start, end = start.ToOneBased(), end.ToOneBased()
	if end.Before(start) {
		start, end = end, start
	}
	return Range{Start: start, End: end}
}

func (r Range) IsZero() bool {
	return r == ZeroRange
}

func (r Range) IsEmpty() bool {
	return r.Start.Compare(r.End) == 0
}

// Contains uses an inclusive start and an exclusive end. An empty range
// contains only its own point.
func (r Range) Contains(p Position) bool {
	if r.IsEmpty() {
		return p.Compare(r.Start) == 0
	}
	return p.Compare(r.Start) >= 0 && p.Compare(r.End) < 0
}

// ContainsRange reports whether other lies entirely within r.
func (r Range) ContainsRange(other Range) bool {
	return other.Start.Compare(r.Start) >= 0 && other.End.Compare(r.End) <= 0
}

// Compare orders ranges by start, then by end.
func (r Range) Compare(other Range) int {
	if c := r.Start.Compare(other.Start); c != 0 {
		return c
	}
	return r.End.Compare(other.End)
}

func (r Range) ToZeroBased() Range {
	return Range{Start: r.Start.ToZeroBased(), End: r.End.ToZeroBased()}
}

func (r Range) String() string {
	return fmt.Sprintf("[%s-%s)", r.Start, r.End)
}
