package window

import (
	"errors"
	"fmt"
	"math"
)

// Evaluation errors.
var (
	ErrInvalidFrame = errors.New("invalid frame")
	ErrMissingValue = errors.New("operator requires a value selector")
	ErrUnknownOp    = errors.New("unknown operator")
)

// FrameKind selects how a frame is anchored.
type FrameKind int

// Frame kinds.
const (
	// FrameUnbounded covers the whole partition.
	FrameUnbounded FrameKind = iota
	// FrameRunning covers the first row through the current row.
	FrameRunning
	// FrameBounded covers current-Preceding through current+Following.
	FrameBounded
)

// Frame is the set of rows visible to an aggregate at a row position.
type Frame struct {
	Kind      FrameKind
	Preceding int
	Following int
}

// Unbounded returns a whole-partition frame.
func Unbounded() Frame { return Frame{Kind: FrameUnbounded} }

// RunningFromStart returns a frame from the partition start to the current row.
func RunningFromStart() Frame { return Frame{Kind: FrameRunning} }

// Bounded returns a sliding frame. A negative following value ends the frame
// before the current row, so Bounded(10, -1) is the ten rows preceding it.
func Bounded(preceding, following int) Frame {
	return Frame{Kind: FrameBounded, Preceding: preceding, Following: following}
}

// Validate rejects frames that can never contain a row.
func (f Frame) Validate() error {
	switch f.Kind {
	case FrameUnbounded:
		if f.Preceding != 0 || f.Following != 0 {
			return fmt.Errorf("%w: unbounded frame cannot carry bounds", ErrInvalidFrame)
		}
	case FrameRunning:
		if f.Following != 0 || f.Preceding != 0 {
			return fmt.Errorf("%w: running frame cannot carry bounds", ErrInvalidFrame)
		}
	case FrameBounded:
		// Compared without adding the bounds, which may be near the int range.
		if f.Preceding == math.MinInt || f.Following < -f.Preceding {
			return fmt.Errorf("%w: empty width (preceding %d, following %d)",
				ErrInvalidFrame, f.Preceding, f.Following)
		}
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidFrame, f.Kind)
	}
	return nil
}

// bounds returns the half-open row range [lo, hi) for position i in a
// partition of n rows. lo >= hi means the frame is empty.
func (f Frame) bounds(i, n int) (lo, hi int) {
	switch f.Kind {
	case FrameRunning:
		return 0, i + 1
	case FrameBounded:
		// Bounds beyond the partition behave like the partition edge.
		preceding := clampBound(f.Preceding, n)
		following := clampBound(f.Following, n)
		lo = max(i-preceding, 0)
		hi = min(i+following+1, n)
		return lo, hi
	default:
		return 0, n
	}
}

func clampBound(v, n int) int {
	return min(max(v, -n-1), n)
}

func (f Frame) String() string {
	switch f.Kind {
	case FrameUnbounded:
		return "unbounded"
	case FrameRunning:
		return "running"
	case FrameBounded:
		return fmt.Sprintf("bounded(%d,%d)", f.Preceding, f.Following)
	}
	return "invalid"
}
