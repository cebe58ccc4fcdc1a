package game

import (
	"math/rand"
	"testing"

	"arena-shooter/internal/config"
	"arena-shooter/internal/game/kinematics"
	"arena-shooter/internal/game/pool"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const frame60 = 1.0 / 60

// quietTuning is the default tuning with automatic spawning pushed out of
// the way, so tests decide when enemies appear.
func quietTuning() config.Tuning {
	t := config.DefaultTuning()
	t.Director.InitialInterval = 1000
	t.Director.MinInterval = 1000
	t.Director.DecreaseRate = 0
	return t
}

func newTestWorld(t testing.TB, tuning config.Tuning) *world {
	t.Helper()
	w, err := newWorld(tuning, rand.New(rand.NewSource(1)), zap.NewNop())
	require.NoError(t, err)
	return w
}

func newTestEngine(t testing.TB, mutate func(*config.Tuning)) *Engine {
	t.Helper()
	tuning := quietTuning()
	if mutate != nil {
		mutate(&tuning)
	}
	e, err := NewEngine(Options{Tuning: tuning, Seed: 7, Logger: zap.NewNop()})
	require.NoError(t, err)
	return e
}

// fixedTarget is a pursuit target tests can move or take away.
type fixedTarget struct {
	pos  kinematics.Vec3
	gone bool
}

func (f *fixedTarget) TargetPosition() (kinematics.Vec3, bool) {
	if f.gone {
		return kinematics.Vec3{}, false
	}
	return f.pos, true
}

func spawnTestEnemy(t testing.TB, w *world, proto config.EnemyPrototype, at kinematics.Vec3, target TargetSource) *Enemy {
	t.Helper()
	e := newEnemy("enemy-test", proto, w, NewKinematicBody(w.arena.HalfExtent), NewParamRecorder())
	e.Spawn(pool.Placement{X: at.X, Y: at.Y, Z: at.Z})
	if target != nil {
		e.SetTarget(target)
	}
	return e
}

// run advances the world's scheduler and ticks fn for the given wall-clock
// duration at tps steps per second.
func run(w *world, tps int, seconds float64, fn func(ctx TickContext)) {
	dt := 1.0 / float64(tps)
	steps := int(seconds*float64(tps) + 0.5)
	for i := 0; i < steps; i++ {
		ctx := NewTickContext(dt, 1, uint64(i+1))
		w.sched.Advance(ctx.Delta, ctx.RealDelta)
		fn(ctx)
	}
}

// stepFor drives an engine at 60 TPS.
func stepFor(e *Engine, seconds float64) {
	steps := int(seconds*60 + 0.5)
	for i := 0; i < steps; i++ {
		e.Step(frame60)
	}
}
