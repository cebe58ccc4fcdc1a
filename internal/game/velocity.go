package game

import (
	"math"

	"arena-shooter/internal/game/kinematics"
	"arena-shooter/internal/game/scheduler"
)

const (
	// MinSampleElapsed floors the time between two samples.
	MinSampleElapsed = 1e-4
	// SnapEpsilon is the distance at which the smoothed speed lands exactly
	// on its target.
	SnapEpsilon = 1e-4
)

// VelocityEstimator reckons a scalar speed from positions sampled on a slow
// timer and eases the published value toward it every tick.
type VelocityEstimator struct {
	sched      *scheduler.Scheduler
	domain     scheduler.Domain
	period     float64
	smoothness float64

	source  func() kinematics.Vec3
	last    kinematics.Vec3
	lastAt  float64
	timer   *scheduler.Timer
	target  float64
	speed   float64
	samples uint64
}

// NewVelocityEstimator creates a stopped estimator. smoothness is the share
// of the old value kept per target frame.
func NewVelocityEstimator(s *scheduler.Scheduler, domain scheduler.Domain, period, smoothness float64) *VelocityEstimator {
	return &VelocityEstimator{
		sched:      s,
		domain:     domain,
		period:     period,
		smoothness: smoothness,
	}
}

// Start begins sampling source and zeroes the estimate.
func (v *VelocityEstimator) Start(source func() kinematics.Vec3) {
	v.Stop()
	v.source = source
	v.last = source()
	v.lastAt = v.sched.Now(v.domain)
	v.target, v.speed = 0, 0
	v.timer = v.sched.After(v.domain, v.period, v.sample)
}

// Stop cancels the sampling timer. The last estimate is kept.
func (v *VelocityEstimator) Stop() {
	v.timer.Cancel()
	v.timer = nil
}

func (v *VelocityEstimator) sample() {
	now := v.sched.Now(v.domain)
	pos := v.source()

	elapsed := math.Max(now-v.lastAt, MinSampleElapsed)
	moved := pos.Sub(v.last).Len()
	if moved < kinematics.Epsilon {
		moved = 0
	}
	v.target = moved / elapsed
	v.last, v.lastAt = pos, now
	v.samples++

	v.timer = v.sched.After(v.domain, v.period, v.sample)
}

// Tick eases the published speed toward the latest sample.
func (v *VelocityEstimator) Tick(dt float64) {
	v.speed = kinematics.Damp(v.speed, v.target, 1-v.smoothness, dt)
	if math.Abs(v.speed-v.target) < SnapEpsilon {
		v.speed = v.target
	}
}

// Speed is the smoothed estimate in units per second.
func (v *VelocityEstimator) Speed() float64 { return v.speed }

// Target is the most recent raw sample.
func (v *VelocityEstimator) Target() float64 { return v.target }

// Samples counts samples taken since creation.
func (v *VelocityEstimator) Samples() uint64 { return v.samples }
