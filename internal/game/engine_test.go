package game

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"arena-shooter/internal/config"
	"arena-shooter/internal/game/kinematics"
	"arena-shooter/internal/input"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// aimAhead is a pointer position whose ray lands in front of a player
// standing at the origin with the default camera.
func aimAhead(e *Engine) kinematics.Vec2 {
	return e.camera.ScreenCenter().Add(kinematics.V2(0, 100))
}

func TestNewEngineRejectsInvalidTuning(t *testing.T) {
	tuning := config.DefaultTuning()
	tuning.Sim.TickRate = 0
	_, err := NewEngine(Options{Tuning: tuning})
	assert.ErrorIs(t, err, config.ErrInvalid)

	tuning = config.DefaultTuning()
	tuning.Timers.Spawn = "sideways"
	_, err = NewEngine(Options{Tuning: tuning})
	assert.Error(t, err)
}

func TestEngineStartStop(t *testing.T) {
	e := newTestEngine(t, nil)

	e.Start()
	e.Start()
	time.Sleep(100 * time.Millisecond)
	e.Stop()
	e.Stop()

	ticks := e.TickCount()
	assert.Greater(t, ticks, uint64(0))

	snap, ok := e.Snapshot()
	require.True(t, ok)
	assert.Equal(t, ticks, snap.TickNumber)

	// can be started again
	e.Start()
	time.Sleep(50 * time.Millisecond)
	e.Stop()
	assert.Greater(t, e.TickCount(), ticks)
}

// Player fires while stationary at an enemy in attack range; the enemy
// attacks, is killed, sinks after its death delay and is released exactly
// once.
func TestEngineEnemyLifecycleEndToEnd(t *testing.T) {
	e := newTestEngine(t, func(tu *config.Tuning) {
		grunt := config.DefaultEnemy("grunt")
		grunt.Health = 1000
		tu.Enemies = []config.EnemyPrototype{grunt}
	})

	released := 0
	e.director.Released.Connect(func(*Enemy) { released++ })

	en, err := e.director.TrySpawn()
	require.NoError(t, err)
	en.body.SetPosition(kinematics.V3(0, 0, 1))
	require.Equal(t, 1, e.director.Live())

	e.input.Set(input.Sample{Fire: true, Aim: aimAhead(e)})
	stepFor(e, 0.5)

	assert.Equal(t, StateAttacking, en.State())
	assert.LessOrEqual(t, en.Position().PlanarDist(e.player.Position()), en.proto.AttackDistance)
	assert.Greater(t, e.player.Shots(), uint64(0))
	assert.Greater(t, e.player.Hits(), uint64(0))
	assert.Less(t, en.Health(), 1000.0)
	assert.True(t, en.Visible())

	require.True(t, en.Kill())
	assert.Equal(t, StateDying, en.State())
	assert.Equal(t, uint64(1), e.kills)

	stepFor(e, en.proto.DeathDelay+0.1)
	assert.Equal(t, StateDecommissioning, en.State())
	assert.Equal(t, 0, released)
	assert.Equal(t, 1, e.director.Live())

	stepFor(e, en.proto.DecommissionDuration+0.5)
	assert.Equal(t, 1, released)
	assert.Equal(t, 0, e.director.Live())
	assert.False(t, e.enemies.IsActive(en))

	stepFor(e, 1)
	assert.Equal(t, 1, released)
	assert.False(t, e.player.Dead())
}

func TestEngineGameOverAndRestart(t *testing.T) {
	e := newTestEngine(t, func(tu *config.Tuning) {
		tu.Player.HealthTotal = 10
		grunt := config.DefaultEnemy("grunt")
		grunt.AttackTimeForDamage = 0.1
		tu.Enemies = []config.EnemyPrototype{grunt}
		tu.Director.SpawnRadius = 1
		tu.Session.RestartDelay = 0.5
	})
	firstSession := e.SessionID()

	_, err := e.SpawnEnemy()
	require.NoError(t, err)

	stepFor(e, 0.25)
	require.True(t, e.GameOver())
	assert.True(t, e.player.Dead())
	assert.True(t, e.hud.GameOver())
	assert.Equal(t, 0.0, e.hud.Scale())

	snap, ok := e.Snapshot()
	require.True(t, ok)
	assert.Equal(t, 0.0, snap.TimeScale)
	assert.True(t, snap.HUD.GameOver)

	// frozen: the enemy stays put and no new spawn is accepted
	_, err = e.SpawnEnemy()
	assert.ErrorIs(t, err, ErrPaused)

	stepFor(e, 0.6)
	assert.False(t, e.GameOver())
	assert.NotEqual(t, firstSession, e.SessionID())
	assert.Equal(t, 0, e.director.Live())
	assert.Equal(t, 0, e.projectiles.Len())
	assert.Equal(t, e.tuning.Player.HealthTotal, e.player.Health())
	assert.False(t, e.hud.GameOver())
	assert.Equal(t, 1.0, e.hud.Scale())

	runs := e.Runs(0)
	require.Len(t, runs, 1)
	assert.Equal(t, firstSession, runs[0].SessionID)
	assert.Equal(t, "death", runs[0].Reason)
	assert.Equal(t, 1, runs[0].Rank)

	snap, ok = e.Snapshot()
	require.True(t, ok)
	assert.Equal(t, e.SessionID(), snap.SessionID)
	assert.Equal(t, 1.0, snap.TimeScale)
	assert.Equal(t, uint64(1), e.Stats().Restarts)
}

func TestEngineOperatorRestart(t *testing.T) {
	e := newTestEngine(t, nil)
	for i := 0; i < 3; i++ {
		_, err := e.SpawnEnemy()
		require.NoError(t, err)
	}
	e.input.Set(input.Sample{Fire: true, Aim: aimAhead(e)})
	stepFor(e, 0.5)
	require.Greater(t, e.projectiles.Len(), 0)

	prev := e.SessionID()
	next := e.Restart()
	assert.NotEqual(t, prev, next)
	assert.Equal(t, 0, e.director.Live())
	assert.Equal(t, 0, e.projectiles.Len())
	assert.False(t, e.input.Sample().Fire)

	// the spawn loop is running again
	assert.Greater(t, e.director.NextSpawnIn(), 0.0)
	require.Len(t, e.Runs(0), 1)
	assert.Equal(t, "operator", e.Runs(0)[0].Reason)
}

func TestEnginePauseFreezesScaledTime(t *testing.T) {
	e := newTestEngine(t, func(tu *config.Tuning) { tu.Director.SpawnRadius = 10 })
	en, err := e.director.TrySpawn()
	require.NoError(t, err)
	e.input.Set(input.Sample{Move: kinematics.V2(1, 0), Fire: true, Aim: aimAhead(e)})

	e.SetPaused(true)
	assert.True(t, e.Paused())
	before := en.Position()
	stepFor(e, 1)

	assert.Equal(t, before, en.Position())
	assert.Equal(t, kinematics.Vec3{}, e.player.Position())
	assert.Equal(t, uint64(0), e.player.Shots())
	_, err = e.SpawnEnemy()
	assert.ErrorIs(t, err, ErrPaused)

	snap, ok := e.Snapshot()
	require.True(t, ok)
	assert.True(t, snap.Paused)

	e.SetPaused(false)
	stepFor(e, 0.5)
	assert.NotEqual(t, before, en.Position())
	assert.Greater(t, e.player.Shots(), uint64(0))
}

func TestEngineSnapshotCarriesWorld(t *testing.T) {
	e := newTestEngine(t, nil)
	_, ok := e.Snapshot()
	assert.False(t, ok)

	for i := 0; i < 2; i++ {
		_, err := e.SpawnEnemy()
		require.NoError(t, err)
	}
	e.input.Set(input.Sample{Fire: true, Aim: aimAhead(e)})
	stepFor(e, 0.2)

	snap, ok := e.Snapshot()
	require.True(t, ok)
	assert.Len(t, snap.Enemies, 2)
	assert.Equal(t, e.projectiles.Len(), len(snap.Projectiles))
	assert.Equal(t, e.SessionID(), snap.SessionID)
	assert.Equal(t, 2, snap.Director.Live)
	assert.Equal(t, e.player.Shots(), snap.Player.Shots)
	assert.Equal(t, uint64(12), snap.TickNumber)

	// snapshots are copies
	snap.Enemies[0].Health = -1
	again, _ := e.Snapshot()
	assert.NotEqual(t, -1.0, again.Enemies[0].Health)

	data, err := json.Marshal(snap)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"state":"pursuing"`)
}

func TestEngineJournalsGameplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	e := newTestEngine(t, func(tu *config.Tuning) {
		grunt := config.DefaultEnemy("grunt")
		tu.Enemies = []config.EnemyPrototype{grunt}
	})
	require.NoError(t, e.StartEventLog(path))

	en, err := e.director.TrySpawn()
	require.NoError(t, err)
	en.body.SetPosition(kinematics.V3(0, 0, 2))
	e.input.Set(input.Sample{Fire: true, Aim: aimAhead(e)})
	stepFor(e, 0.5)
	require.Equal(t, StateDying, en.State())

	// leaving the view while dying does not shorten the death delay
	e.input.Set(input.Sample{Aim: aimAhead(e)})
	e.player.body.SetPosition(kinematics.V3(60, 0, 60))
	e.camera.Snap(e.player.Position())
	stepFor(e, 0.5)
	require.False(t, en.Visible())
	require.Equal(t, StateDying, en.State())

	// nor does entering the sink already out of view
	stepFor(e, en.proto.DeathDelay)
	require.Equal(t, StateDecommissioning, en.State())
	require.Equal(t, 1, e.director.Live())

	stepFor(e, en.proto.DecommissionDuration+0.2)
	require.Equal(t, 0, e.director.Live())

	e.StopEventLog()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	types := map[string]int{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var ev struct {
			Type      string `json:"type"`
			SessionID string `json:"sessionId"`
		}
		require.NoError(t, json.Unmarshal(sc.Bytes(), &ev))
		assert.Equal(t, e.SessionID(), ev.SessionID)
		types[ev.Type]++
	}
	assert.Equal(t, 1, types["spawn"])
	assert.Equal(t, 1, types["kill"])
	assert.Equal(t, 1, types["despawn"])
	assert.GreaterOrEqual(t, types["hit"], 1)
	assert.GreaterOrEqual(t, types["shot"], 1)
}

func TestEngineTickObserver(t *testing.T) {
	e := newTestEngine(t, nil)
	var got []TickStats
	e.SetTickObserver(func(s TickStats) { got = append(got, s) })

	_, err := e.SpawnEnemy()
	require.NoError(t, err)
	stepFor(e, 0.1)

	require.Len(t, got, 6)
	assert.Equal(t, 1, got[5].Live)
	assert.Equal(t, 1.0, got[5].Health)
}

func TestEngineClampsLongSteps(t *testing.T) {
	e := newTestEngine(t, func(tu *config.Tuning) { tu.Director.SpawnRadius = 20 })
	en, err := e.director.TrySpawn()
	require.NoError(t, err)

	start := en.Position()
	e.Step(30)
	moved := start.PlanarDist(en.Position())
	assert.InDelta(t, en.proto.Speed*e.tuning.Sim.MaxDelta, moved, 1e-6)

	e.Step(-1)
	assert.Equal(t, uint64(2), e.TickCount())
}

func TestSeedFrom(t *testing.T) {
	assert.Equal(t, SeedFrom("arena"), SeedFrom("arena"))
	assert.NotEqual(t, SeedFrom("arena"), SeedFrom("arena2"))
}

func TestEngineIsDeterministicForASeed(t *testing.T) {
	build := func() *Engine {
		tuning := quietTuning()
		e, err := NewEngine(Options{Tuning: tuning, Seed: SeedFrom("replay"), Logger: zap.NewNop()})
		require.NoError(t, err)
		return e
	}
	a, b := build(), build()
	for _, e := range []*Engine{a, b} {
		for i := 0; i < 5; i++ {
			_, err := e.SpawnEnemy()
			require.NoError(t, err)
		}
		e.input.Set(input.Sample{Fire: true, Move: kinematics.V2(0.3, 1), Aim: aimAhead(e)})
		stepFor(e, 2)
	}

	sa, _ := a.Snapshot()
	sb, _ := b.Snapshot()
	require.Len(t, sb.Enemies, len(sa.Enemies))
	for i := range sa.Enemies {
		assert.Equal(t, sa.Enemies[i].Position, sb.Enemies[i].Position)
	}
	assert.Equal(t, sa.Player.Position, sb.Player.Position)
	assert.Equal(t, sa.Player.Shots, sb.Player.Shots)
}
