package position_test

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/msbuildls/pkg/position"
)

func TestToPosition(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		offset   int
		wantLine int
		wantCol  int
	}{
		{
			name:     "empty text",
			text:     "",
			offset:   0,
			wantLine: 1,
			wantCol:  1,
		},
		{
			name:     "single line, middle position",
			text:     "<Project />",
			offset:   5,
			wantLine: 1,
			wantCol:  6,
		},
		{
			name:     "second line",
			text:     "<Project>\n  <A />\n</Project>",
			offset:   12,
			wantLine: 2,
			wantCol:  3,
		},
		{
			name:     "crlf terminators",
			text:     "<Project>\r\n  <A />\r\n</Project>",
			offset:   13,
			wantLine: 2,
			wantCol:  3,
		},
		{
			name:     "lone carriage return",
			text:     "a\rb",
			offset:   2,
			wantLine: 2,
			wantCol:  1,
		},
		{
			name:     "terminator is addressable",
			text:     "ab\r\ncd",
			offset:   3,
			wantLine: 1,
			wantCol:  4,
		},
		{
			name:     "astral characters take two columns",
			text:     "<A>😀x</A>",
			offset:   len("<A>😀"),
			wantLine: 1,
			wantCol:  6,
		},
		{
			name:     "end of text",
			text:     "ab\n",
			offset:   3,
			wantLine: 2,
			wantCol:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tp := position.NewTextPositions(tt.text)
			got, err := tp.ToPosition(tt.offset)
			require.NoError(t, err)
			assert.Equal(t, position.OneBased(tt.wantLine, tt.wantCol), got)

			back, err := tp.ToAbsolute(got)
			require.NoError(t, err)
			assert.Equal(t, tt.offset, back)
		})
	}
}

func TestRoundTripEveryOffset(t *testing.T) {
	texts := []string{
		"",
		"\n",
		"\r\n\r\n",
		"<Project>\r\n  <PropertyGroup>\n\t<Foo>é😀</Foo>\r  </PropertyGroup>\n</Project>\n",
	}

	for _, text := range texts {
		tp := position.NewTextPositions(text)
		for offset := 0; offset <= len(text); offset++ {
			if offset < len(text) && !utf8.RuneStart(text[offset]) {
				continue
			}
			pos, err := tp.ToPosition(offset)
			require.NoError(t, err, "offset %d in %q", offset, text)

			back, err := tp.ToAbsolute(pos)
			require.NoError(t, err, "position %s in %q", pos, text)
			assert.Equal(t, offset, back, "position %s in %q", pos, text)
		}
	}
}

func TestOutOfRange(t *testing.T) {
	tp := position.NewTextPositions("ab\ncd")

	_, err := tp.ToPosition(-1)
	require.ErrorIs(t, err, position.ErrOutOfRange)

	_, err = tp.ToPosition(6)
	require.ErrorIs(t, err, position.ErrOutOfRange)

	_, err = tp.ToAbsolute(position.OneBased(3, 1))
	require.ErrorIs(t, err, position.ErrOutOfRange)

	_, err = tp.ToAbsolute(position.OneBased(1, 4))
	require.ErrorIs(t, err, position.ErrOutOfRange)

	_, err = tp.ToAbsolute(position.Zero)
	require.ErrorIs(t, err, position.ErrOutOfRange)

	mb := position.NewTextPositions("😀")
	_, err = mb.ToPosition(1)
	require.ErrorIs(t, err, position.ErrOutOfRange)
	_, err = mb.ToAbsolute(position.OneBased(1, 2))
	require.ErrorIs(t, err, position.ErrOutOfRange)
}

func TestOriginConversion(t *testing.T) {
	zb := position.ZeroBased(0, 0)
	ob := zb.ToOneBased()

	assert.True(t, ob.IsOneBased())
	assert.Equal(t, position.OneBased(1, 1), ob)
	assert.Equal(t, zb, ob.ToZeroBased())
	assert.Equal(t, 0, zb.Compare(ob))

	tp := position.NewTextPositions("ab\ncd")
	off, err := tp.ToAbsolute(position.ZeroBased(1, 1))
	require.NoError(t, err)
	assert.Equal(t, 4, off)
}

func TestRangeContains(t *testing.T) {
	r := position.NewRange(position.OneBased(1, 3), position.OneBased(1, 6))

	assert.False(t, r.Contains(position.OneBased(1, 2)))
	assert.True(t, r.Contains(position.OneBased(1, 3)))
	assert.True(t, r.Contains(position.OneBased(1, 5)))
	assert.False(t, r.Contains(position.OneBased(1, 6)))
	assert.True(t, r.Contains(position.ZeroBased(0, 3)))

	empty := position.NewRange(position.OneBased(2, 1), position.OneBased(2, 1))
	assert.True(t, empty.Contains(position.OneBased(2, 1)))
	assert.False(t, empty.Contains(position.OneBased(2, 2)))
}

func TestRangeCompare(t *testing.T) {
	outer := position.NewRange(position.OneBased(1, 1), position.OneBased(5, 1))
	inner := position.NewRange(position.OneBased(2, 1), position.OneBased(3, 1))
	later := position.NewRange(position.OneBased(4, 1), position.OneBased(4, 5))

	assert.Negative(t, outer.Compare(inner))
	assert.Negative(t, inner.Compare(later))
	assert.Zero(t, inner.Compare(inner))
	assert.True(t, outer.ContainsRange(inner))
	assert.False(t, inner.ContainsRange(outer))
	assert.True(t, position.ZeroRange.IsZero())
}
