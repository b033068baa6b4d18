package position

import (
	"sort"
	"unicode/utf16"
	"unicode/utf8"

	"gitlab.com/tozd/go/errors"
)

// ErrOutOfRange is returned when an offset or position does not address the
// document text.
var ErrOutOfRange = errors.Base("position out of range")

type lineSpan struct {
	start      int // byte offset of the first character
	contentEnd int // byte offset of the line terminator (or end of text)
	end        int // byte offset after the line terminator
}

// TextPositions maps between absolute byte offsets and one-based line/column
// positions for a single document text. Columns count UTF-16 code units.
type TextPositions struct {
	text  string
	lines []lineSpan
}

func NewTextPositions(text string) *TextPositions {
	tp := &TextPositions{text: text}

	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\n':
			tp.lines = append(tp.lines, lineSpan{start: start, contentEnd: i, end: i + 1})
			start = i + 1
		case '\r':
			end := i + 1
			if end < len(text) && text[end] == '\n' {
				end++
			}
			tp.lines = append(tp.lines, lineSpan{start: start, contentEnd: i, end: end})
			start = end
			i = end - 1
		}
	}
	tp.lines = append(tp.lines, lineSpan{start: start, contentEnd: len(text), end: len(text)})

	return tp
}

func (tp *TextPositions) Text() string {
	return tp.text
}

func (tp *TextPositions) Len() int {
	return len(tp.text)
}

func (tp *TextPositions) LineCount() int {
	return len(tp.lines)
}

// LineText returns the content of the given one-based line, without its
// terminator.
func (tp *TextPositions) LineText(line int) (string, error) {
	if line < 1 || line > len(tp.lines) {
		return "", errors.Errorf("line %d of %d: %w", line, len(tp.lines), ErrOutOfRange)
	}
	ls := tp.lines[line-1]
	return tp.text[ls.start:ls.contentEnd], nil
}

// ToPosition converts a byte offset into a one-based position. Offsets in the
// middle of a multi-byte character are rejected.
func (tp *TextPositions) ToPosition(offset int) (Position, error) {
	if offset < 0 || offset > len(tp.text) {
		return Zero, errors.Errorf("offset %d of %d: %w", offset, len(tp.text), ErrOutOfRange)
	}
	if offset < len(tp.text) && !utf8.RuneStart(tp.text[offset]) {
		return Zero, errors.Errorf("offset %d splits a character: %w", offset, ErrOutOfRange)
	}

	idx := sort.Search(len(tp.lines), func(i int) bool {
		return tp.lines[i].start > offset
	}) - 1
	if idx < 0 {
		idx = 0
	}

	ls := tp.lines[idx]
	return OneBased(idx+1, countUTF16(tp.text[ls.start:offset])+1), nil
}

// ToAbsolute converts a position (of either origin) into a byte offset.
func (tp *TextPositions) ToAbsolute(pos Position) (int, error) {
	if pos.IsZero() {
		return 0, errors.Errorf("zero position: %w", ErrOutOfRange)
	}
	p := pos.ToOneBased()
	if p.Line < 1 || p.Line > len(tp.lines) || p.Column < 1 {
		return 0, errors.Errorf("position %s: %w", p, ErrOutOfRange)
	}

	ls := tp.lines[p.Line-1]

	// the terminator is addressable, the first offset of the next line is not
	limit := ls.end
	if ls.end == ls.contentEnd {
		limit = ls.end + 1
	}

	want := p.Column - 1
	offset := ls.start
	for units := 0; units < want; {
		if offset >= ls.end {
			return 0, errors.Errorf("position %s past end of line: %w", p, ErrOutOfRange)
		}
		r, size := utf8.DecodeRuneInString(tp.text[offset:])
		units += runeUnits(r)
		offset += size
		if units > want {
			return 0, errors.Errorf("position %s splits a surrogate pair: %w", p, ErrOutOfRange)
		}
	}
	if offset >= limit {
		return 0, errors.Errorf("position %s past end of line: %w", p, ErrOutOfRange)
	}

	return offset, nil
}

// RangeOf converts a byte span into a range.
func (tp *TextPositions) RangeOf(start, end int) (Range, error) {
	s, err := tp.ToPosition(start)
	if err != nil {
		return ZeroRange, err
	}
	e, err := tp.ToPosition(end)
	if err != nil {
		return ZeroRange, err
	}
	return Range{Start: s, End: e}, nil
}

func countUTF16(s string) int {
	n := 0
	for _, r := range s {
		n += runeUnits(r)
	}
	return n
}

func runeUnits(r rune) int {
	if n := utf16.RuneLen(r); n > 0 {
		return n
	}
	return 1
}
