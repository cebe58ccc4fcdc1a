// Package input holds the latest player input sample.
//
// Network handlers write samples whenever a client message arrives; the
// simulation reads exactly one sample per tick.
package input

import (
	"sync"

	"arena-shooter/internal/game/kinematics"
)

// Sample is one tick's worth of player intent.
type Sample struct {
	Move   kinematics.Vec2 `json:"move"`   // movement axes, each in [-1, 1]
	Sprint bool            `json:"sprint"` // sprint modifier held
	Fire   bool            `json:"fire"`   // trigger held
	Aim    kinematics.Vec2 `json:"aim"`    // screen-space pointer, pixels from bottom-left
}

// Clamped returns s with the movement axes limited to the unit square.
func (s Sample) Clamped() Sample {
	s.Move.X = kinematics.Clamp(s.Move.X, -1, 1)
	s.Move.Y = kinematics.Clamp(s.Move.Y, -1, 1)
	return s
}

// Buffer is a concurrency-safe holder for the most recent sample.
type Buffer struct {
	mu      sync.RWMutex
	current Sample
	writes  uint64
}

// NewBuffer creates a buffer whose initial sample aims at the given screen
// point, normally the screen centre.
func NewBuffer(aim kinematics.Vec2) *Buffer {
	return &Buffer{current: Sample{Aim: aim}}
}

// Set replaces the held sample.
func (b *Buffer) Set(s Sample) {
	b.mu.Lock()
	b.current = s.Clamped()
	b.writes++
	b.mu.Unlock()
}

// Sample returns the held sample.
func (b *Buffer) Sample() Sample {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.current
}

// Reset clears movement and buttons but keeps the aim point.
func (b *Buffer) Reset() {
	b.mu.Lock()
	b.current = Sample{Aim: b.current.Aim}
	b.mu.Unlock()
}

// Writes returns how many samples have been stored.
func (b *Buffer) Writes() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.writes
}
