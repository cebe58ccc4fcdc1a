package game

import (
	"fmt"

	"arena-shooter/internal/config"
	"arena-shooter/internal/game/kinematics"
	"arena-shooter/internal/game/pool"
)

// TrailLength is the number of past positions kept for the trail effect.
const TrailLength = 6

// ProjectileHit reports a projectile entering a target volume. Target is nil
// when the projectile struck level geometry.
type ProjectileHit struct {
	Projectile *Projectile
	Target     *Enemy
}

// Projectile is a pooled bullet. It flies straight along its forward axis
// and ends its activation in one of two ways: leaving the view (OutOfView)
// or striking something (Hit). Whichever comes first wins; the other is
// ignored until the projectile is spawned again.
type Projectile struct {
	id     string
	cfg    config.ProjectileConfig
	Damage float64

	pos     kinematics.Vec3
	fwd     kinematics.Vec3
	yaw     float64
	speed   float64
	age     float64
	alive   bool
	ended   bool // terminal signal already raised this activation
	visible bool
	spawns  uint64

	// Trail positions (ring buffer, oldest overwritten)
	trail    [TrailLength]kinematics.Vec3
	trailLen int
	trailIdx int

	OutOfView Signal[*Projectile]
	Hit       Signal[ProjectileHit]
}

// NewProjectile allocates a dormant projectile. The pool calls Spawn to arm
// it.
func NewProjectile(id string, cfg config.ProjectileConfig) *Projectile {
	return &Projectile{id: id, cfg: cfg}
}

// Spawn re-arms the projectile at the placement, facing its yaw.
func (p *Projectile) Spawn(at pool.Placement) {
	p.pos = kinematics.V3(at.X, at.Y, at.Z)
	p.yaw = kinematics.NormalizeAngle(at.Yaw)
	p.fwd = kinematics.Forward(p.yaw)
	p.speed = p.cfg.Speed
	p.Damage = 0
	p.age = 0
	p.alive = true
	p.ended = false
	p.visible = true
	p.spawns++
	p.clearTrail()
}

// Despawn clears the trail and drops every listener.
func (p *Projectile) Despawn() {
	p.alive = false
	p.ended = true
	p.clearTrail()
	p.OutOfView.DisconnectAll()
	p.Hit.DisconnectAll()
}

// Tick moves the projectile Speed units per target frame.
func (p *Projectile) Tick(ctx TickContext) {
	if !p.alive || p.ended {
		return
	}
	p.pushTrail(p.pos)
	p.pos = p.pos.Add(p.fwd.Scale(p.speed * ctx.Correction()))
	p.age += ctx.Delta
}

// SetVisible feeds the observer's verdict for this tick. Only a change from
// visible to invisible counts as leaving the view.
func (p *Projectile) SetVisible(visible bool) {
	was := p.visible
	p.visible = visible
	if was && !visible {
		p.NotifyOutOfView()
	}
}

// NotifyOutOfView raises OutOfView unless the activation already ended.
func (p *Projectile) NotifyOutOfView() bool {
	if !p.alive || p.ended {
		return false
	}
	p.ended = true
	p.OutOfView.Emit(p)
	return true
}

// NotifyHit raises Hit unless the activation already ended.
func (p *Projectile) NotifyHit(target *Enemy) bool {
	if !p.alive || p.ended {
		return false
	}
	p.ended = true
	p.Hit.Emit(ProjectileHit{Projectile: p, Target: target})
	return true
}

// Expired reports whether the projectile has outlived its lifetime without
// ever leaving the view.
func (p *Projectile) Expired() bool {
	return p.cfg.Lifetime > 0 && p.age >= p.cfg.Lifetime
}

func (p *Projectile) pushTrail(pt kinematics.Vec3) {
	p.trail[p.trailIdx] = pt
	p.trailIdx = (p.trailIdx + 1) % TrailLength
	if p.trailLen < TrailLength {
		p.trailLen++
	}
}

func (p *Projectile) clearTrail() {
	p.trail = [TrailLength]kinematics.Vec3{}
	p.trailLen, p.trailIdx = 0, 0
}

// Trail returns the recorded positions, oldest first.
func (p *Projectile) Trail() []kinematics.Vec3 {
	out := make([]kinematics.Vec3, 0, p.trailLen)
	start := (p.trailIdx - p.trailLen + TrailLength) % TrailLength
	for i := 0; i < p.trailLen; i++ {
		out = append(out, p.trail[(start+i)%TrailLength])
	}
	return out
}

func (p *Projectile) ID() string                { return p.id }
func (p *Projectile) Position() kinematics.Vec3 { return p.pos }
func (p *Projectile) Forward() kinematics.Vec3  { return p.fwd }
func (p *Projectile) Yaw() float64              { return p.yaw }
func (p *Projectile) Radius() float64           { return p.cfg.Radius }
func (p *Projectile) Alive() bool               { return p.alive }

// Ended reports whether a terminal signal was raised this activation.
func (p *Projectile) Ended() bool { return p.ended }

// ProjectileSnapshot is an immutable copy of projectile state for clients
type ProjectileSnapshot struct {
	ID       string            `json:"id"`
	Position kinematics.Vec3   `json:"position"`
	Yaw      float64           `json:"yaw"`
	Trail    []kinematics.Vec3 `json:"trail,omitempty"`
}

// ToSnapshot copies the projectile for publishing.
func (p *Projectile) ToSnapshot() ProjectileSnapshot {
	return ProjectileSnapshot{
		ID:       p.id,
		Position: p.pos,
		Yaw:      p.yaw,
		Trail:    p.Trail(),
	}
}

func (p *Projectile) String() string {
	return fmt.Sprintf("projectile(%s)", p.id)
}
