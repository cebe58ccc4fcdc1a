package game

import (
	"math"

	"arena-shooter/internal/config"
	"arena-shooter/internal/game/kinematics"
	"arena-shooter/internal/game/pool"
	"arena-shooter/internal/input"

	"go.uber.org/zap"
)

// ProjectileParent is the scene group projectiles are spawned under.
const ProjectileParent = "projectiles"

// playerParts are the collaborators a Player drives.
type playerParts struct {
	input       InputSource
	viewer      Viewer
	body        Body
	anim        Animator
	projectiles *pool.Pool[*Projectile]
}

// Player is the session's single controllable character. Each tick it
// aims, turns, moves, animates and fires, in that order.
type Player struct {
	cfg          config.PlayerConfig
	projectileID string
	w            *world
	playerParts

	health      float64
	dead        bool
	speed       float64
	targetSpeed float64
	yaw         float64
	targetYaw   float64
	yawVelocity float64
	aimPoint    kinematics.Vec3
	animMove    kinematics.Vec2
	shotTime    float64

	shots uint64
	hits  uint64

	Died     Signal[*Player]
	Fired    Signal[*Projectile]
	EnemyHit Signal[ProjectileHit]
}

func newPlayer(cfg config.PlayerConfig, projectileID string, w *world, parts playerParts) *Player {
	p := &Player{
		cfg:          cfg,
		projectileID: projectileID,
		w:            w,
		playerParts:  parts,
	}
	p.Reset(kinematics.Vec3{})
	return p
}

// Reset restores full health and stands the player still at pos.
func (p *Player) Reset(pos kinematics.Vec3) {
	p.body.SetPosition(pos)
	p.body.SetCollisionEnabled(true)
	p.health = p.cfg.HealthTotal
	p.dead = false
	p.speed, p.targetSpeed = 0, 0
	p.yaw, p.targetYaw, p.yawVelocity = 0, 0, 0
	p.aimPoint = pos.Add(kinematics.Forward(0)).WithY(p.cfg.AimPlaneHeight)
	p.animMove = kinematics.Vec2{}
	p.shotTime = p.cfg.ShotInterval
	p.shots, p.hits = 0, 0
}

// Tick runs one simulation step. Nothing happens while time is frozen.
func (p *Player) Tick(ctx TickContext) {
	if ctx.Paused() {
		return
	}
	in := p.input.Sample()

	p.updateAim(in)
	p.updateRotation(ctx)
	p.updatePosition(ctx, in)
	p.updateAnimation(ctx, in)
	p.updateShooting(ctx, in)
}

// updateAim casts the pointer ray onto the aim plane. A miss keeps the
// previous aim point.
func (p *Player) updateAim(in input.Sample) {
	origin, dir := p.viewer.ScreenRay(in.Aim)
	if hit, ok := RayPlane(origin, dir, p.cfg.AimPlaneHeight, p.viewer.FarClip()); ok {
		p.aimPoint = hit
	}
}

func (p *Player) updateRotation(ctx TickContext) {
	look := p.aimPoint.Sub(p.body.Position()).Planar()
	if look.Len() > kinematics.Epsilon {
		p.targetYaw = kinematics.NormalizeAngle(kinematics.YawOf(look) + p.cfg.AdditionalAngle)
	}
	maxSpeed := math.Inf(1)
	if p.cfg.MaxTurnSpeed > 0 {
		maxSpeed = p.cfg.MaxTurnSpeed
	}
	p.yaw = kinematics.SmoothDampAngle(p.yaw, p.targetYaw, &p.yawVelocity, p.cfg.RotationSmoothTime, maxSpeed, ctx.Delta)
}

// updatePosition blends the speed toward walk, sprint or zero and moves
// along the camera-relative input direction.
func (p *Player) updatePosition(ctx TickContext, in input.Sample) {
	switch {
	case in.Move.IsZero():
		p.targetSpeed = 0
	case in.Sprint:
		p.targetSpeed = p.cfg.SprintSpeed
	default:
		p.targetSpeed = p.cfg.WalkSpeed
	}
	p.speed = kinematics.Damp(p.speed, p.targetSpeed, p.cfg.SpeedBlend, ctx.Delta)

	forward := p.viewer.Forward().Planar().Normalized().Scale(in.Move.Y)
	right := p.viewer.Right().Planar().Normalized().Scale(in.Move.X)
	dir := forward.Add(right).Normalized()

	p.body.Move(dir.Scale(p.speed * ctx.Delta))
}

// updateAnimation turns the raw input into the character's frame, so that
// strafing plays sideways steps whatever the facing.
func (p *Player) updateAnimation(ctx TickContext, in input.Sample) {
	target := in.Move.Rotate(p.yaw - p.viewer.Yaw()).Scale(p.speed)
	p.animMove = kinematics.DampVec2(p.animMove, target, 1-p.cfg.AnimationSmoothness, ctx.Delta)
	p.anim.SetFloat(ParamMoveX, p.animMove.X)
	p.anim.SetFloat(ParamMoveY, p.animMove.Y)
}

// updateShooting fires one projectile per elapsed shot interval while the
// trigger is held. Releasing the trigger primes the next press to fire at
// once.
func (p *Player) updateShooting(ctx TickContext, in input.Sample) {
	if !in.Fire {
		p.shotTime = p.cfg.ShotInterval
		return
	}
	p.shotTime += ctx.Delta
	for p.shotTime+shotSlack >= p.cfg.ShotInterval {
		p.shotTime -= p.cfg.ShotInterval
		if p.shotTime < 0 {
			p.shotTime = 0
		}
		if !p.fire() || p.cfg.ShotInterval <= 0 {
			return
		}
	}
}

// shotSlack absorbs float drift in the cadence accumulator.
const shotSlack = 1e-9

func (p *Player) fire() bool {
	muzzle := p.Muzzle()

	shotYaw := p.yaw + p.w.randRange(-p.cfg.SpreadAngle, p.cfg.SpreadAngle)*p.speed
	if p.AimAligned() {
		if dir := p.aimPoint.Sub(muzzle).Planar(); dir.Len() > kinematics.Epsilon {
			shotYaw = kinematics.YawOf(dir)
		}
	}

	proj, err := p.projectiles.Acquire(p.projectileID, pool.Placement{
		X: muzzle.X, Y: muzzle.Y, Z: muzzle.Z,
		Yaw:    shotYaw,
		Parent: ProjectileParent,
	})
	if err != nil {
		p.w.log.Debug("shot dropped", zap.Error(err))
		return false
	}
	proj.Damage = p.cfg.ShotDamage
	proj.OutOfView.Connect(p.onProjectileOutOfView)
	proj.Hit.Connect(p.onProjectileHit)

	p.shots++
	p.anim.SetTrigger(ParamFire)
	p.Fired.Emit(proj)
	return true
}

func (p *Player) onProjectileOutOfView(proj *Projectile) {
	p.releaseProjectile(proj)
}

func (p *Player) onProjectileHit(hit ProjectileHit) {
	damage := hit.Projectile.Damage
	p.releaseProjectile(hit.Projectile)
	if hit.Target == nil {
		return
	}
	p.hits++
	p.EnemyHit.Emit(hit)
	hit.Target.TakeHit(damage)
}

func (p *Player) releaseProjectile(proj *Projectile) {
	if err := p.projectiles.Release(proj); err != nil {
		p.w.log.Debug("projectile release skipped", zap.Stringer("projectile", proj), zap.Error(err))
	}
}

// Damage subtracts health, clamping at zero. Died is raised the first time
// health reaches zero and never again until Reset. It returns the
// normalized health.
func (p *Player) Damage(amount float64) float64 {
	if amount <= 0 || p.dead {
		return p.NormalizedHealth()
	}
	p.health -= amount
	if p.health <= 0 {
		p.health = 0
		p.dead = true
		p.Died.Emit(p)
	}
	return p.NormalizedHealth()
}

// NormalizedHealth is health over maximum health.
func (p *Player) NormalizedHealth() float64 {
	if p.cfg.HealthTotal <= 0 {
		return 0
	}
	return kinematics.Clamp01(p.health / p.cfg.HealthTotal)
}

// AimAligned reports whether the facing is close enough to the aim
// direction for shots to be corrected onto the aim point.
func (p *Player) AimAligned() bool {
	return math.Abs(kinematics.DeltaAngle(p.yaw, p.targetYaw)) <= p.cfg.AimTolerance
}

// Muzzle is the world point projectiles leave from.
func (p *Player) Muzzle() kinematics.Vec3 {
	pos := p.body.Position()
	return pos.Add(kinematics.Forward(p.yaw).Scale(p.cfg.MuzzleForward)).WithY(pos.Y + p.cfg.MuzzleHeight)
}

// TargetPosition makes the player a pursuit target.
func (p *Player) TargetPosition() (kinematics.Vec3, bool) {
	return p.body.Position(), true
}

func (p *Player) Position() kinematics.Vec3 { return p.body.Position() }
func (p *Player) Yaw() float64              { return p.yaw }
func (p *Player) TargetYaw() float64        { return p.targetYaw }
func (p *Player) Speed() float64            { return p.speed }
func (p *Player) Health() float64           { return p.health }
func (p *Player) Dead() bool                { return p.dead }
func (p *Player) AimPoint() kinematics.Vec3 { return p.aimPoint }
func (p *Player) AnimMove() kinematics.Vec2 { return p.animMove }
func (p *Player) Shots() uint64             { return p.shots }
func (p *Player) Hits() uint64              { return p.hits }

// PlayerSnapshot is an immutable copy of player state for clients
type PlayerSnapshot struct {
	Position    kinematics.Vec3 `json:"position"`
	Yaw         float64         `json:"yaw"`
	Health      float64         `json:"health"`
	HealthTotal float64         `json:"healthTotal"`
	Speed       float64         `json:"speed"`
	AimPoint    kinematics.Vec3 `json:"aimPoint"`
	Dead        bool            `json:"dead"`
	Shots       uint64          `json:"shots"`
	Hits        uint64          `json:"hits"`
	Anim        AnimParams      `json:"anim"`
}

// ToSnapshot copies the player for publishing.
func (p *Player) ToSnapshot() PlayerSnapshot {
	return PlayerSnapshot{
		Position:    p.body.Position(),
		Yaw:         p.yaw,
		Health:      p.health,
		HealthTotal: p.cfg.HealthTotal,
		Speed:       p.speed,
		AimPoint:    p.aimPoint,
		Dead:        p.dead,
		Shots:       p.shots,
		Hits:        p.hits,
		Anim:        paramsOf(p.anim),
	}
}
