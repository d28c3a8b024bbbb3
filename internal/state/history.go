package state

import (
	"fmt"
	"sync"
)

// #region frame-stack
// FrameStack keeps the most recent vectors of an episode and stacks them
// into a single observation, oldest first. Missing frames are zeros.
type FrameStack struct {
	mu     sync.Mutex
	width  int
	frames []Vector
	next   int
	count  int
}

// NewFrameStack creates a stack of depth frames of the given width.
func NewFrameStack(width, depth int) *FrameStack {
	if depth < 1 {
		depth = 1
	}
	return &FrameStack{width: width, frames: make([]Vector, depth)}
}

// Push records v and returns the stacked observation including it.
func (f *FrameStack) Push(v Vector) (Vector, error) {
	if len(v) != f.width {
		return nil, fmt.Errorf("%w: frame length %d, want %d", ErrValidation, len(v), f.width)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames[f.next] = append(Vector(nil), v...)
	f.next = (f.next + 1) % len(f.frames)
	if f.count < len(f.frames) {
		f.count++
	}
	return f.stackLocked(), nil
}

// Stacked returns the current observation without pushing.
func (f *FrameStack) Stacked() Vector {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stackLocked()
}

// Reset drops all frames, for use between episodes.
func (f *FrameStack) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	clear(f.frames)
	f.next = 0
	f.count = 0
}

// Width returns the length of a stacked observation.
func (f *FrameStack) Width() int {
	return f.width * len(f.frames)
}

func (f *FrameStack) stackLocked() Vector {
	depth := len(f.frames)
	out := make(Vector, f.width*depth)
	// leading zero frames pad a short history
	pad := depth - f.count
	for i := 0; i < f.count; i++ {
		src := f.frames[(f.next-f.count+i+depth)%depth]
		copy(out[(pad+i)*f.width:], src)
	}
	return out
}
// #endregion frame-stack
