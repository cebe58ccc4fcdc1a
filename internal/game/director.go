package game

import (
	"errors"
	"fmt"
	"math"

	"arena-shooter/internal/config"
	"arena-shooter/internal/game/kinematics"
	"arena-shooter/internal/game/pool"
	"arena-shooter/internal/game/scheduler"

	"go.uber.org/zap"
)

// EnemyParent is the scene group enemies are spawned under.
const EnemyParent = "enemies"

// Spawn rejections.
var (
	ErrSpawningDisabled = errors.New("director: spawning disabled")
	ErrAtCapacity       = errors.New("director: enemy cap reached")
	ErrPaused           = errors.New("director: session paused")
)

// Director owns the enemy population: it spawns on a shrinking interval up
// to a cap, routes enemy attacks to the player and the HUD, and returns
// decommissioned enemies to the pool.
type Director struct {
	cfg     config.DirectorConfig
	w       *world
	enemies *pool.Pool[*Enemy]
	player  *Player
	hud     HUD
	log     *zap.Logger

	interval float64
	spawning bool
	paused   bool
	live     int
	timer    *scheduler.Timer
	subs     map[*Enemy]*Subscriptions

	spawned  uint64
	released uint64
	rejected uint64

	Spawned  Signal[*Enemy]
	Released Signal[*Enemy]
	Attacked Signal[EnemyAttack]
}

func newDirector(cfg config.DirectorConfig, w *world, enemies *pool.Pool[*Enemy], player *Player, hud HUD) *Director {
	return &Director{
		cfg:      cfg,
		w:        w,
		enemies:  enemies,
		player:   player,
		hud:      hud,
		log:      w.log.Named("director"),
		interval: cfg.InitialInterval,
		spawning: cfg.SpawningEnabled,
		subs:     make(map[*Enemy]*Subscriptions, cfg.Cap),
	}
}

// Start begins the spawn loop. The first attempt comes one interval later.
func (d *Director) Start() {
	d.timer.Cancel()
	d.wait()
}

// Stop ends the spawn loop.
func (d *Director) Stop() {
	d.timer.Cancel()
	d.timer = nil
}

// wait schedules the next attempt using the interval as it is right now.
// Later interval changes only affect the wait after this one.
func (d *Director) wait() {
	d.timer = d.w.sched.After(d.w.domains.spawn, d.interval, d.onSpawnTimer)
}

func (d *Director) onSpawnTimer() {
	if _, err := d.TrySpawn(); err != nil {
		d.log.Debug("spawn rejected", zap.Error(err))
	}
	d.wait()
}

// setPaused lets timers that fire before this tick's Tick see the pause.
func (d *Director) setPaused(paused bool) { d.paused = paused }

// Tick shrinks the spawn interval toward its floor. Frozen while paused.
func (d *Director) Tick(ctx TickContext) {
	d.paused = ctx.Paused()
	if d.paused {
		return
	}
	d.interval = math.Max(d.cfg.MinInterval, d.interval-d.cfg.DecreaseRate*ctx.Delta)
}

// TrySpawn attempts one spawn around the player.
func (d *Director) TrySpawn() (*Enemy, error) {
	switch {
	case d.paused:
		d.rejected++
		return nil, ErrPaused
	case !d.spawning:
		d.rejected++
		return nil, ErrSpawningDisabled
	case d.live >= d.cfg.Cap:
		d.rejected++
		return nil, fmt.Errorf("%w: %d live", ErrAtCapacity, d.live)
	}

	protos := d.enemies.Prototypes()
	if len(protos) == 0 {
		d.rejected++
		return nil, fmt.Errorf("director: %w", pool.ErrUnknownPrototype)
	}
	proto := protos[d.w.rng.Intn(len(protos))]

	angle := d.w.randRange(0, 360)
	pos := d.player.Position().Add(kinematics.Forward(angle).Scale(d.cfg.SpawnRadius))

	e, err := d.enemies.Acquire(proto, pool.Placement{
		X: pos.X, Y: pos.Y, Z: pos.Z,
		Yaw:    kinematics.NormalizeAngle(angle + 180),
		Parent: EnemyParent,
	})
	if err != nil {
		d.rejected++
		return nil, fmt.Errorf("acquire %s: %w", proto, err)
	}

	e.SetTarget(d.player)
	subs, ok := d.subs[e]
	if !ok {
		subs = &Subscriptions{}
		d.subs[e] = subs
	}
	subs.Add(
		e.DamagePlayer.Connect(d.onDamagePlayer),
		e.Decommissioned.Connect(d.onDecommissioned),
	)
	d.live++
	d.spawned++

	d.log.Debug("enemy spawned",
		zap.String("enemy", e.ID()),
		zap.String("prototype", proto),
		zap.Int("live", d.live),
	)
	d.Spawned.Emit(e)
	return e, nil
}

func (d *Director) onDamagePlayer(a EnemyAttack) {
	health := d.player.Damage(a.Damage)
	d.hud.SetHealth(health, true)
	d.Attacked.Emit(a)
}

func (d *Director) onDecommissioned(e *Enemy) {
	if subs, ok := d.subs[e]; ok {
		subs.CancelAll()
	}
	if err := d.enemies.Release(e); err != nil {
		d.log.Warn("decommissioned enemy not active", zap.String("enemy", e.ID()), zap.Error(err))
		return
	}
	d.live--
	d.released++
	d.Released.Emit(e)
}

// ReleaseAll returns every live enemy to the pool without waiting for
// their death sequences.
func (d *Director) ReleaseAll() int {
	for _, subs := range d.subs {
		subs.CancelAll()
	}
	n := d.enemies.ReleaseAll()
	d.live = 0
	return n
}

// Reset restores the configured interval and spawning switch.
func (d *Director) Reset() {
	d.interval = d.cfg.InitialInterval
	d.spawning = d.cfg.SpawningEnabled
	d.paused = false
}

// SetSpawning turns automatic and manual spawning on or off.
func (d *Director) SetSpawning(enabled bool) {
	d.spawning = enabled
}

func (d *Director) Spawning() bool    { return d.spawning }
func (d *Director) Interval() float64 { return d.interval }
func (d *Director) Live() int         { return d.live }
func (d *Director) Cap() int          { return d.cfg.Cap }

// NextSpawnIn is the time left on the current wait.
func (d *Director) NextSpawnIn() float64 { return d.timer.Remaining() }

// DirectorSnapshot is an immutable copy of director state for clients
type DirectorSnapshot struct {
	Live        int          `json:"live"`
	Cap         int          `json:"cap"`
	Interval    float64      `json:"interval"`
	NextSpawnIn float64      `json:"nextSpawnIn"`
	Spawning    bool         `json:"spawning"`
	Spawned     uint64       `json:"spawned"`
	Released    uint64       `json:"released"`
	Rejected    uint64       `json:"rejected"`
	Pool        []pool.Stats `json:"pool"`
}

// ToSnapshot copies the director for publishing.
func (d *Director) ToSnapshot() DirectorSnapshot {
	return DirectorSnapshot{
		Live:        d.live,
		Cap:         d.cfg.Cap,
		Interval:    d.interval,
		NextSpawnIn: d.NextSpawnIn(),
		Spawning:    d.spawning,
		Spawned:     d.spawned,
		Released:    d.released,
		Rejected:    d.rejected,
		Pool:        d.enemies.Stats(),
	}
}
