// Package rangeindex holds the sorted-range lookup shared by the XML, semantic
// and solution locators.
package rangeindex

import (
	"context"
	"sort"

	"github.com/walteh/msbuildls/pkg/position"
	"gitlab.com/tozd/go/errors"
)

// cancellation is polled every this many ranges while scanning
const cancelCheckInterval = 64

type entry[T any] struct {
	rng   position.Range
	value T
}

// Index maps ranges to values. It is filled with Add, sorted once, then
// queried any number of times. Queries never mutate it.
type Index[T any] struct {
	ranges  []position.Range
	byStart map[position.Position]entry[T]
	sorted  bool
}

func New[T any]() *Index[T] {
	return &Index[T]{
		byStart: make(map[position.Position]entry[T]),
	}
}

// Add indexes value under rng. When another value already starts at the same
// position nothing is added and the existing value is returned with
// added == false.
func (x *Index[T]) Add(rng position.Range, value T) (existing T, existingRange position.Range, added bool) {
	rng = position.NewRange(rng.Start, rng.End)
	if e, ok := x.byStart[rng.Start]; ok {
		return e.value, e.rng, false
	}

	x.byStart[rng.Start] = entry[T]{rng: rng, value: value}
	x.ranges = append(x.ranges, rng)
	x.sorted = false

	var zero T
	return zero, position.ZeroRange, true
}

// Replace swaps the value starting at rng.Start for value, adopting rng.
func (x *Index[T]) Replace(rng position.Range, value T) error {
	rng = position.NewRange(rng.Start, rng.End)
	old, ok := x.byStart[rng.Start]
	if !ok {
		return errors.Errorf("no entry starts at %s", rng.Start)
	}

	x.byStart[rng.Start] = entry[T]{rng: rng, value: value}
	if old.rng != rng {
		for i, r := range x.ranges {
			if r == old.rng {
				x.ranges[i] = rng
				break
			}
		}
		x.sorted = false
	}
	return nil
}

// Sort puts the ranges in document order.
func (x *Index[T]) Sort() {
	sort.SliceStable(x.ranges, func(i, j int) bool {
		return x.ranges[i].Compare(x.ranges[j]) < 0
	})
	x.sorted = true
}

func (x *Index[T]) IsSorted() bool {
	return x.sorted
}

func (x *Index[T]) Len() int {
	return len(x.ranges)
}

// Ranges returns a copy of the indexed ranges in their current order.
func (x *Index[T]) Ranges() []position.Range {
	out := make([]position.Range, len(x.ranges))
	copy(out, x.ranges)
	return out
}

// At returns the value whose range starts exactly at pos.
func (x *Index[T]) At(pos position.Position) (T, position.Range, bool) {
	e, ok := x.byStart[pos.ToOneBased()]
	return e.value, e.rng, ok
}

// Find returns the innermost value whose range contains pos. An entry starting
// exactly at pos is returned without scanning.
func (x *Index[T]) Find(ctx context.Context, pos position.Position) (T, position.Range, bool, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, position.ZeroRange, false, err
	}

	if v, rng, ok := x.At(pos); ok {
		return v, rng, true, nil
	}
	return x.Scan(ctx, pos)
}

// Scan is Find without the exact-match short circuit.
//
// Ranges are sorted by start and never partially overlap, so every range
// after the current best match either nests inside it or begins after it
// ends. The first range that ends past the best match ends the search.
func (x *Index[T]) Scan(ctx context.Context, pos position.Position) (T, position.Range, bool, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, position.ZeroRange, false, err
	}
	if !x.sorted {
		return zero, position.ZeroRange, false, errors.New("range index queried before it was sorted")
	}

	pos = pos.ToOneBased()
	best := position.ZeroRange
	for i, rng := range x.ranges {
		if i%cancelCheckInterval == cancelCheckInterval-1 {
			if err := ctx.Err(); err != nil {
				return zero, position.ZeroRange, false, err
			}
		}

		if !best.IsZero() && rng.End.After(best.End) {
			break
		}
		if rng.Contains(pos) {
			best = rng
		}
	}

	if best.IsZero() {
		return zero, position.ZeroRange, false, nil
	}

	e := x.byStart[best.Start]
	return e.value, e.rng, true, nil
}

// All returns every value in document order.
func (x *Index[T]) All() []T {
	out := make([]T, 0, len(x.ranges))
	for _, rng := range x.ranges {
		out = append(out, x.byStart[rng.Start].value)
	}
	return out
}
