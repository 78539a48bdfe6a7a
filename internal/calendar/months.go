// Package calendar generates bounded month sequences used to find months
// without activity.
package calendar

import (
	"errors"
	"fmt"
	"iter"

	"github.com/Veraticus/ledgerscope/internal/model"
)

// MaxMonths caps a validated span at one hundred years.
const MaxMonths = 1200

// ErrRangeTooLarge is returned by Span when the range exceeds MaxMonths.
var ErrRangeTooLarge = errors.New("month range too large")

// Months yields every month from start to end inclusive, in increasing
// order. It yields nothing when start is after end. Each range over the
// returned sequence starts again from start; breaking out of the loop stops
// generation.
func Months(start, end model.Month) iter.Seq[model.Month] {
	return func(yield func(model.Month) bool) {
		for current := start; !current.After(end); current = current.Next() {
			if !yield(current) {
				return
			}
		}
	}
}

// Span is Months with a size check, for ranges that come from user input.
func Span(start, end model.Month) (iter.Seq[model.Month], error) {
	if n := start.MonthsUntil(end) + 1; n > MaxMonths {
		return nil, fmt.Errorf("%w: %s to %s spans %d months", ErrRangeTooLarge, start, end, n)
	}
	return Months(start, end), nil
}

// Collect drains a sequence into a slice.
func Collect(seq iter.Seq[model.Month]) []model.Month {
	var out []model.Month
	for m := range seq {
		out = append(out, m)
	}
	return out
}

// Gaps returns the months of seq not present in active. It is the left anti
// join of a generated calendar against observed buckets.
func Gaps(seq iter.Seq[model.Month], active map[model.Month]bool) []model.Month {
	var out []model.Month
	for m := range seq {
		if !active[m] {
			out = append(out, m)
		}
	}
	return out
}
