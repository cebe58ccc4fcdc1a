package game

import (
	"testing"

	"arena-shooter/internal/game/kinematics"
	"arena-shooter/internal/game/scheduler"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVelocityEstimatorTracksMovement(t *testing.T) {
	sched := scheduler.New()
	v := NewVelocityEstimator(sched, scheduler.Real, 0.2, 0.8)

	pos := kinematics.Vec3{}
	v.Start(func() kinematics.Vec3 { return pos })

	const dt = 1.0 / 60
	for i := 0; i < 120; i++ {
		pos = pos.Add(kinematics.V3(3*dt, 0, 0))
		sched.Advance(dt, dt)
		v.Tick(dt)
	}

	require.Greater(t, v.Samples(), uint64(5))
	assert.InDelta(t, 3, v.Target(), 0.05)
	assert.InDelta(t, 3, v.Speed(), 0.05)
}

func TestVelocityEstimatorStationaryReachesExactlyZero(t *testing.T) {
	sched := scheduler.New()
	v := NewVelocityEstimator(sched, scheduler.Real, 0.2, 0.8)

	pos := kinematics.Vec3{}
	v.Start(func() kinematics.Vec3 { return pos })

	const dt = 1.0 / 60
	for i := 0; i < 30; i++ {
		pos = pos.Add(kinematics.V3(0, 0, 5*dt))
		sched.Advance(dt, dt)
		v.Tick(dt)
	}
	require.Greater(t, v.Speed(), 1.0)

	// stand still for well over one sampling period
	for i := 0; i < 180; i++ {
		sched.Advance(dt, dt)
		v.Tick(dt)
	}
	assert.Equal(t, 0.0, v.Target())
	assert.Equal(t, 0.0, v.Speed())
}

func TestVelocityEstimatorStopCancelsSampling(t *testing.T) {
	sched := scheduler.New()
	v := NewVelocityEstimator(sched, scheduler.Scaled, 0.1, 0.5)
	v.Start(func() kinematics.Vec3 { return kinematics.Vec3{} })
	require.Equal(t, 1, sched.Len())

	v.Stop()
	v.Stop()
	sched.Advance(1, 1)
	assert.Equal(t, uint64(0), v.Samples())
	assert.Equal(t, 0, sched.Len())
}

func TestVelocityEstimatorScaledDomainFreezesWhilePaused(t *testing.T) {
	sched := scheduler.New()
	v := NewVelocityEstimator(sched, scheduler.Scaled, 0.1, 0.5)
	v.Start(func() kinematics.Vec3 { return kinematics.Vec3{} })

	sched.Advance(0, 1)
	assert.Equal(t, uint64(0), v.Samples())

	sched.Advance(0.1, 0.1)
	assert.Equal(t, uint64(1), v.Samples())
}
