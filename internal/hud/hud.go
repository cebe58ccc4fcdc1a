// Package hud models the on-screen health bar and game-over banner as plain
// state that snapshots can copy out.
package hud

import (
	"arena-shooter/internal/game/kinematics"
	"arena-shooter/internal/game/scheduler"
)

// HealthBar shows normalized player health, optionally easing between
// values.
type HealthBar struct {
	duration float64
	domain   scheduler.Domain

	scale    float64
	from, to float64
	elapsed  float64
	tweening bool
	gameOver bool
}

// New creates a full health bar. Animated changes ease in over duration
// seconds of the given time domain.
func New(duration float64, domain scheduler.Domain) *HealthBar {
	return &HealthBar{
		duration: duration,
		domain:   domain,
		scale:    1,
		to:       1,
	}
}

// SetHealth shows a new normalized health. An animated change restarts the
// ease from the currently displayed value; an immediate one cancels any
// running ease.
func (h *HealthBar) SetHealth(normalized float64, animated bool) {
	normalized = kinematics.Clamp01(normalized)
	h.to = normalized
	if !animated || h.duration <= 0 {
		h.tweening = false
		h.scale = normalized
		return
	}
	h.from = h.scale
	h.elapsed = 0
	h.tweening = true
}

// ShowGameOverMessage raises the game-over banner.
func (h *HealthBar) ShowGameOverMessage() {
	h.gameOver = true
}

// Update advances a running ease using the clock of the bar's domain.
func (h *HealthBar) Update(scaledDt, realDt float64) {
	if !h.tweening {
		return
	}
	dt := scaledDt
	if h.domain == scheduler.Real {
		dt = realDt
	}
	h.elapsed += dt
	t := h.elapsed / h.duration
	if t >= 1 {
		h.scale = h.to
		h.tweening = false
		return
	}
	h.scale = kinematics.Lerp(h.from, h.to, kinematics.InQuad(t))
}

// Reset restores a full bar and hides the banner.
func (h *HealthBar) Reset() {
	h.scale, h.to = 1, 1
	h.tweening = false
	h.gameOver = false
}

// Scale is the displayed fraction in [0, 1].
func (h *HealthBar) Scale() float64 { return h.scale }

// Target is the fraction the bar is heading to.
func (h *HealthBar) Target() float64 { return h.to }

// Tweening reports whether an ease is in progress.
func (h *HealthBar) Tweening() bool { return h.tweening }

// GameOver reports whether the banner is showing.
func (h *HealthBar) GameOver() bool { return h.gameOver }
