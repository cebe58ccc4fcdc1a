package game

import "arena-shooter/internal/game/kinematics"

// TickContext is passed explicitly to every component each step instead of
// having them read a global time scale.
type TickContext struct {
	Delta     float64 // scaled seconds, zero while paused
	RealDelta float64 // wall-clock seconds
	TimeScale float64
	Tick      uint64
}

// NewTickContext builds the context for one step of realDelta seconds at the
// given time scale.
func NewTickContext(realDelta, timeScale float64, tick uint64) TickContext {
	if timeScale < 0 {
		timeScale = 0
	}
	return TickContext{
		Delta:     realDelta * timeScale,
		RealDelta: realDelta,
		TimeScale: timeScale,
		Tick:      tick,
	}
}

// Paused reports whether scaled time is frozen.
func (c TickContext) Paused() bool {
	return c.TimeScale == 0
}

// Correction is the scaled delta expressed in target frames.
func (c TickContext) Correction() float64 {
	return kinematics.Correction(c.Delta)
}

// deltaIn returns the delta for the given clock.
func (c TickContext) deltaIn(real bool) float64 {
	if real {
		return c.RealDelta
	}
	return c.Delta
}
