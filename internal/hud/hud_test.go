package hud

import (
	"testing"

	"arena-shooter/internal/game/scheduler"

	"github.com/stretchr/testify/assert"
)

func TestAnimatedHealthEasesIn(t *testing.T) {
	h := New(0.2, scheduler.Scaled)
	h.SetHealth(0.5, true)

	assert.True(t, h.Tweening())
	assert.Equal(t, 1.0, h.Scale())

	h.Update(0.1, 0.1)
	// InQuad at the halfway point covers a quarter of the distance
	assert.InDelta(t, 0.875, h.Scale(), 1e-9)

	h.Update(0.2, 0.2)
	assert.False(t, h.Tweening())
	assert.Equal(t, 0.5, h.Scale())
}

func TestImmediateHealthCancelsTween(t *testing.T) {
	h := New(0.2, scheduler.Scaled)
	h.SetHealth(0.5, true)
	h.Update(0.05, 0.05)

	h.SetHealth(0, false)
	assert.False(t, h.Tweening())
	assert.Equal(t, 0.0, h.Scale())

	h.Update(1, 1)
	assert.Equal(t, 0.0, h.Scale())
}

func TestRealDomainTweenIgnoresPause(t *testing.T) {
	h := New(0.2, scheduler.Real)
	h.SetHealth(0.2, true)
	h.Update(0, 0.3)
	assert.Equal(t, 0.2, h.Scale())

	scaled := New(0.2, scheduler.Scaled)
	scaled.SetHealth(0.2, true)
	scaled.Update(0, 0.3)
	assert.True(t, scaled.Tweening())
}

func TestGameOverAndReset(t *testing.T) {
	h := New(0.2, scheduler.Real)
	h.SetHealth(-3, false)
	h.ShowGameOverMessage()
	assert.True(t, h.GameOver())
	assert.Equal(t, 0.0, h.Scale())

	h.Reset()
	assert.False(t, h.GameOver())
	assert.Equal(t, 1.0, h.Scale())
	assert.Equal(t, 1.0, h.Target())
}
