package game

import (
	"testing"

	"arena-shooter/internal/config"
	"arena-shooter/internal/game/kinematics"
	"arena-shooter/internal/game/pool"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnemyPursuesThenAttacks(t *testing.T) {
	tuning := quietTuning()
	w := newTestWorld(t, tuning)
	proto := config.DefaultEnemy("grunt")
	target := &fixedTarget{}
	e := spawnTestEnemy(t, w, proto, kinematics.V3(5, 0, 0), target)

	require.Equal(t, StatePursuing, e.State())
	startDist := e.Position().PlanarDist(target.pos)

	run(w, 60, 1, e.Tick)
	assert.Equal(t, StatePursuing, e.State())
	assert.Less(t, e.Position().PlanarDist(target.pos), startDist)

	run(w, 60, 3, e.Tick)
	assert.Equal(t, StateAttacking, e.State())
	assert.LessOrEqual(t, e.Position().PlanarDist(target.pos), proto.AttackDistance)
	assert.True(t, e.anim.(*ParamRecorder).Bool(ParamAttackFlag))
}

func TestEnemyDamagesOncePerThreshold(t *testing.T) {
	w := newTestWorld(t, quietTuning())
	proto := config.DefaultEnemy("grunt")
	e := spawnTestEnemy(t, w, proto, kinematics.V3(1, 0, 0), &fixedTarget{})

	var attacks []EnemyAttack
	e.DamagePlayer.Connect(func(a EnemyAttack) { attacks = append(attacks, a) })

	run(w, 60, frame60*2, e.Tick)
	require.Equal(t, StateAttacking, e.State())

	run(w, 60, 3.5, e.Tick)
	require.Len(t, attacks, 3)
	for _, a := range attacks {
		assert.Same(t, e, a.Enemy)
		assert.Equal(t, proto.AttackDamage, a.Damage)
	}
}

func TestEnemyReturnsToPursuitWhenTargetLeaves(t *testing.T) {
	w := newTestWorld(t, quietTuning())
	target := &fixedTarget{}
	e := spawnTestEnemy(t, w, config.DefaultEnemy("grunt"), kinematics.V3(1, 0, 0), target)

	run(w, 60, 0.1, e.Tick)
	require.Equal(t, StateAttacking, e.State())

	target.pos = kinematics.V3(-10, 0, 0)
	run(w, 60, frame60, e.Tick)
	assert.Equal(t, StatePursuing, e.State())
}

func TestEnemyDoubleKillDecommissionsOnce(t *testing.T) {
	w := newTestWorld(t, quietTuning())
	proto := config.DefaultEnemy("grunt")
	e := spawnTestEnemy(t, w, proto, kinematics.V3(5, 0, 0), &fixedTarget{})

	killed, decommissioned := 0, 0
	e.Killed.Connect(func(*Enemy) { killed++ })
	e.Decommissioned.Connect(func(*Enemy) { decommissioned++ })

	assert.True(t, e.Kill())
	assert.False(t, e.Kill())
	assert.Equal(t, StateDying, e.State())
	assert.False(t, e.Collidable())

	run(w, 60, proto.DeathDelay+0.5, e.Tick)
	assert.Equal(t, StateDecommissioning, e.State())
	assert.False(t, e.Kill())

	run(w, 60, proto.DecommissionDuration+0.5, e.Tick)
	pos := e.Position()
	run(w, 60, 1, e.Tick)
	assert.Equal(t, pos, e.Position())
	assert.Equal(t, 1, killed)
	assert.Equal(t, 1, decommissioned)
}

func TestEnemyInvisibleWhileDyingKeepsDelay(t *testing.T) {
	w := newTestWorld(t, quietTuning())
	proto := config.DefaultEnemy("grunt")
	e := spawnTestEnemy(t, w, proto, kinematics.V3(5, 0, 0), &fixedTarget{})

	decommissioned := 0
	e.Decommissioned.Connect(func(*Enemy) { decommissioned++ })

	e.SetVisible(true)
	require.True(t, e.Kill())
	e.SetVisible(false)
	e.OnBecameInvisible()

	assert.Equal(t, StateDying, e.State())
	assert.Equal(t, 0, decommissioned)

	run(w, 60, proto.DeathDelay-0.1, e.Tick)
	assert.Equal(t, StateDying, e.State())

	run(w, 60, 0.2, e.Tick)
	assert.Equal(t, StateDecommissioning, e.State())
	assert.Equal(t, 0, decommissioned)
}

func TestEnemyNeverVisibleSinksFullDuration(t *testing.T) {
	w := newTestWorld(t, quietTuning())
	proto := config.DefaultEnemy("grunt")
	e := spawnTestEnemy(t, w, proto, kinematics.V3(5, 0, 0), &fixedTarget{})

	decommissioned := 0
	e.Decommissioned.Connect(func(*Enemy) { decommissioned++ })

	require.True(t, e.Kill())
	run(w, 60, proto.DeathDelay+frame60, e.Tick)
	require.Equal(t, StateDecommissioning, e.State())

	run(w, 60, proto.DecommissionDuration-0.1, e.Tick)
	assert.Equal(t, 0, decommissioned)
	assert.Less(t, e.Position().Y, 0.0)

	run(w, 60, 0.2, e.Tick)
	assert.Equal(t, 1, decommissioned)
}

func TestEnemyLeavingViewDuringSinkFinishesEarly(t *testing.T) {
	w := newTestWorld(t, quietTuning())
	proto := config.DefaultEnemy("grunt")
	e := spawnTestEnemy(t, w, proto, kinematics.V3(5, 0, 0), &fixedTarget{})

	decommissioned := 0
	e.Decommissioned.Connect(func(*Enemy) { decommissioned++ })

	e.SetVisible(true)
	require.True(t, e.Kill())
	run(w, 60, proto.DeathDelay+frame60, e.Tick)
	require.Equal(t, StateDecommissioning, e.State())

	run(w, 60, 0.5, e.Tick)
	assert.Equal(t, 0, decommissioned)

	e.SetVisible(false)
	assert.Equal(t, 1, decommissioned)

	// a second report is a no-op and the death timer is gone
	e.OnBecameInvisible()
	w.sched.Advance(10, 10)
	assert.Equal(t, 1, decommissioned)
	assert.Equal(t, 1, w.sched.Len()) // speed sampler
}

func TestEnemyVisibleDecommissionSinks(t *testing.T) {
	w := newTestWorld(t, quietTuning())
	proto := config.DefaultEnemy("grunt")
	e := spawnTestEnemy(t, w, proto, kinematics.V3(5, 0, 0), &fixedTarget{})

	decommissioned := 0
	e.Decommissioned.Connect(func(*Enemy) { decommissioned++ })

	e.SetVisible(true)
	require.True(t, e.Kill())
	run(w, 60, proto.DeathDelay+frame60, e.Tick)
	require.Equal(t, StateDecommissioning, e.State())
	assert.Equal(t, 0, decommissioned)

	run(w, 60, proto.DecommissionDuration/2, e.Tick)
	y := e.Position().Y
	assert.Less(t, y, 0.0)
	assert.Greater(t, y, -proto.DecommissionDepth)

	run(w, 60, proto.DecommissionDuration/2+0.1, e.Tick)
	assert.Equal(t, 1, decommissioned)
	assert.InDelta(t, -proto.DecommissionDepth, e.Position().Y, 1e-9)

	// going out of view afterwards does not raise it again
	e.SetVisible(false)
	assert.Equal(t, 1, decommissioned)
}

func TestEnemyTakeHitUsesHitPoints(t *testing.T) {
	w := newTestWorld(t, quietTuning())
	proto := config.DefaultEnemy("brute")
	proto.Health = 3
	e := spawnTestEnemy(t, w, proto, kinematics.V3(5, 0, 0), nil)

	assert.False(t, e.TakeHit(1))
	assert.False(t, e.TakeHit(1))
	assert.True(t, e.TakeHit(1))
	assert.Equal(t, StateDying, e.State())
	assert.Equal(t, 0.0, e.Health())
	assert.False(t, e.TakeHit(1))
}

func TestEnemyKeepsLastKnownTargetWhenSourceGoes(t *testing.T) {
	w := newTestWorld(t, quietTuning())
	target := &fixedTarget{pos: kinematics.V3(0, 0, 0)}
	e := spawnTestEnemy(t, w, config.DefaultEnemy("grunt"), kinematics.V3(6, 0, 0), target)

	run(w, 60, 0.5, e.Tick)
	target.gone = true
	target.pos = kinematics.V3(100, 0, 100)

	require.NotPanics(t, func() { run(w, 60, 5, e.Tick) })
	assert.Nil(t, e.target)
	assert.Equal(t, StateAttacking, e.State())
	assert.LessOrEqual(t, e.Position().PlanarDist(kinematics.Vec3{}), 1.2)
}

func TestEnemyPursuitIsFrameRateInvariant(t *testing.T) {
	proto := config.DefaultEnemy("grunt")
	positions := map[int]kinematics.Vec3{}
	for _, tps := range []int{30, 60} {
		w := newTestWorld(t, quietTuning())
		e := spawnTestEnemy(t, w, proto, kinematics.V3(20, 0, 0), &fixedTarget{})
		run(w, tps, 2, e.Tick)
		positions[tps] = e.Position()
	}
	assert.InDelta(t, 20-2*proto.Speed, positions[60].X, 1e-6)
	assert.InDelta(t, positions[30].X, positions[60].X, 1e-6)
	assert.InDelta(t, positions[30].Z, positions[60].Z, 1e-6)
}

func TestEnemyDespawnDropsListenersAndTimers(t *testing.T) {
	w := newTestWorld(t, quietTuning())
	e := spawnTestEnemy(t, w, config.DefaultEnemy("grunt"), kinematics.V3(5, 0, 0), &fixedTarget{})
	e.Decommissioned.Connect(func(*Enemy) {})
	require.True(t, e.Kill())

	e.Despawn()
	assert.Equal(t, 0, e.Decommissioned.Len())
	assert.Equal(t, 0, w.sched.Len())
	assert.False(t, e.Kill())
}

func TestEnemyDeathVariantStableAcrossSpawns(t *testing.T) {
	w := newTestWorld(t, quietTuning())
	proto := config.DefaultEnemy("grunt")
	e := spawnTestEnemy(t, w, proto, kinematics.V3(5, 0, 0), nil)
	v := e.DeathVariant()
	require.GreaterOrEqual(t, v, 1)
	require.LessOrEqual(t, v, proto.DeathVariants)

	e.Despawn()
	e.Spawn(pool.Placement{X: 5})
	assert.Equal(t, v, e.DeathVariant())
	assert.Equal(t, v, e.anim.(*ParamRecorder).Int(ParamDeathVariant))
}
