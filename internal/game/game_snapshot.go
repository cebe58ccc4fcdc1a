package game

import (
	"sync"
	"sync/atomic"
	"time"

	"arena-shooter/internal/game/kinematics"
)

// ResourceLimits caps what one snapshot carries
type ResourceLimits struct {
	MaxEnemies     int // Enemies copied per snapshot
	MaxProjectiles int // Projectiles copied per snapshot
}

// LimitsFor sizes the snapshot buffers from the pool ceilings.
func LimitsFor(enemyCap, projectileHeadroom int) ResourceLimits {
	return ResourceLimits{
		MaxEnemies:     enemyCap,
		MaxProjectiles: projectileHeadroom,
	}
}

// HUDSnapshot is an immutable copy of the health bar
type HUDSnapshot struct {
	Health   float64 `json:"health"`
	Target   float64 `json:"target"`
	Tweening bool    `json:"tweening"`
	GameOver bool    `json:"gameOver"`
}

// CameraSnapshot is the camera placement clients render from
type CameraSnapshot struct {
	Position kinematics.Vec3 `json:"position"`
	Yaw      float64         `json:"yaw"`
}

// GameSnapshot is a complete immutable game state for clients
// All slices are pre-allocated and capped
type GameSnapshot struct {
	Sequence   uint64    `json:"sequence"`   // Monotonic sequence for ordering
	Timestamp  time.Time `json:"timestamp"`  // When snapshot was created
	TickNumber uint64    `json:"tickNumber"` // Simulation tick this represents
	SessionID  string    `json:"sessionId"`
	TimeScale  float64   `json:"timeScale"`
	Paused     bool      `json:"paused"`

	Player      PlayerSnapshot       `json:"player"`
	Enemies     []EnemySnapshot      `json:"enemies"`
	Projectiles []ProjectileSnapshot `json:"projectiles"`
	HUD         HUDSnapshot          `json:"hud"`
	Director    DirectorSnapshot     `json:"director"`
	Camera      CameraSnapshot       `json:"camera"`
	Effects     EffectsSnapshot      `json:"effects"`

	// Aggregate stats
	Kills uint64 `json:"kills"`
}

// Clone deep-copies the snapshot so it can outlive its buffer slot.
func (s *GameSnapshot) Clone() GameSnapshot {
	c := *s
	c.Enemies = append([]EnemySnapshot(nil), s.Enemies...)
	c.Projectiles = append([]ProjectileSnapshot(nil), s.Projectiles...)
	c.Director.Pool = append(c.Director.Pool[:0:0], s.Director.Pool...)
	c.Effects.Flashes = append([]ImpactFlash(nil), s.Effects.Flashes...)
	return c
}

type snapshotSlot struct {
	mu   sync.RWMutex
	snap GameSnapshot
}

// SnapshotPool pre-allocates snapshots to avoid GC pressure.
// Triple buffering: the tick writes one slot while readers copy the last
// published one; a per-slot lock covers the rare case of the writer lapping
// a slow reader.
type SnapshotPool struct {
	slots    [3]snapshotSlot
	limits   ResourceLimits
	writeIdx uint32 // producer index
	readIdx  atomic.Uint32
	sequence uint64
	writing  *snapshotSlot
	ready    atomic.Bool
}

// NewSnapshotPool creates a pool with pre-allocated slices
func NewSnapshotPool(limits ResourceLimits) *SnapshotPool {
	p := &SnapshotPool{limits: limits}
	for i := range p.slots {
		p.slots[i].snap = GameSnapshot{
			Enemies:     make([]EnemySnapshot, 0, limits.MaxEnemies),
			Projectiles: make([]ProjectileSnapshot, 0, limits.MaxProjectiles),
		}
	}
	return p
}

// AcquireWrite gets the next write slot (producer only, called from the
// tick). The slot stays locked until PublishWrite.
func (p *SnapshotPool) AcquireWrite() *GameSnapshot {
	p.writeIdx = (p.writeIdx + 1) % 3
	slot := &p.slots[p.writeIdx]
	slot.mu.Lock()
	p.writing = slot

	snap := &slot.snap
	snap.Enemies = snap.Enemies[:0]
	snap.Projectiles = snap.Projectiles[:0]
	p.sequence++
	snap.Sequence = p.sequence
	snap.Timestamp = time.Now()
	return snap
}

// PublishWrite releases the slot and makes it the one readers see
func (p *SnapshotPool) PublishWrite() {
	if p.writing == nil {
		return
	}
	p.writing.mu.Unlock()
	p.writing = nil
	p.readIdx.Store(p.writeIdx)
	p.ready.Store(true)
}

// Latest returns a copy of the most recently published snapshot. ok is
// false before the first publish.
func (p *SnapshotPool) Latest() (GameSnapshot, bool) {
	if !p.ready.Load() {
		return GameSnapshot{}, false
	}
	slot := &p.slots[p.readIdx.Load()]
	slot.mu.RLock()
	defer slot.mu.RUnlock()
	return slot.snap.Clone(), true
}

// Limits returns the resource limits
func (p *SnapshotPool) Limits() ResourceLimits {
	return p.limits
}
