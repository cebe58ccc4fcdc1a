package game

import (
	"arena-shooter/internal/config"
	"arena-shooter/internal/game/kinematics"
	"arena-shooter/internal/game/pool"
	"arena-shooter/internal/game/scheduler"

	"go.uber.org/zap"
)

// EnemyState is the enemy's behaviour state.
type EnemyState uint8

const (
	StatePursuing EnemyState = iota
	StateAttacking
	StateDying
	StateDecommissioning
)

// String returns the state name used in logs and snapshots
func (s EnemyState) String() string {
	switch s {
	case StatePursuing:
		return "pursuing"
	case StateAttacking:
		return "attacking"
	case StateDying:
		return "dying"
	case StateDecommissioning:
		return "decommissioning"
	default:
		return "unknown"
	}
}

// SpeedToAnimationRatio maps movement speed to the locomotion blend: an
// enemy moving at this fraction of its configured speed plays the full run.
const SpeedToAnimationRatio = 0.65

// EnemyAttack is raised once per completed attack cycle.
type EnemyAttack struct {
	Enemy  *Enemy
	Damage float64
}

// Enemy pursues a target, attacks it when close, and after Kill plays out a
// death sequence that ends with Decommissioned. The owner releases the
// enemy back to its pool on Decommissioned; the enemy never frees itself.
type Enemy struct {
	id    string
	proto config.EnemyPrototype
	w     *world
	body  Body
	anim  Animator
	speed *VelocityEstimator

	alive bool
	state EnemyState

	target     TargetSource
	lastTarget kinematics.Vec3
	aim        kinematics.Vec3 // tracked point, relative to the body
	yaw        float64

	attackTime   float64
	health       float64
	deathVariant int
	deathTimer   *scheduler.Timer

	sinkFrom       kinematics.Vec3
	sinkElapsed    float64
	decommissioned bool
	visible        bool

	DamagePlayer   Signal[EnemyAttack]
	Killed         Signal[*Enemy]
	Decommissioned Signal[*Enemy]
}

// newEnemy allocates a dormant enemy. The death variant is picked here, once
// per instance.
func newEnemy(id string, proto config.EnemyPrototype, w *world, body Body, anim Animator) *Enemy {
	e := &Enemy{
		id:    id,
		proto: proto,
		w:     w,
		body:  body,
		anim:  anim,
		speed: NewVelocityEstimator(w.sched, w.domains.sampling, proto.SamplePeriod, proto.SpeedSmoothness),
	}
	if proto.DeathVariants > 0 {
		e.deathVariant = 1 + w.rng.Intn(proto.DeathVariants)
	}
	return e
}

// Spawn places the enemy and restarts it in the pursuing state.
func (e *Enemy) Spawn(at pool.Placement) {
	e.body.SetPosition(kinematics.V3(at.X, at.Y, at.Z))
	e.body.SetCollisionEnabled(true)
	e.body.SetKinematic(false)
	e.yaw = kinematics.NormalizeAngle(at.Yaw)
	e.aim = kinematics.Forward(e.yaw)

	e.alive = true
	e.attackTime = 0
	e.health = e.proto.Health
	e.sinkElapsed = 0
	e.decommissioned = false
	e.visible = false
	e.target = nil
	e.lastTarget = e.body.Position()

	e.anim.SetInteger(ParamDeathVariant, e.deathVariant)
	e.anim.Play(ClipMoving, e.w.rng.Float64())
	e.speed.Start(e.body.Position)

	e.state = StatePursuing
	e.enterPursuing()
}

// Despawn cancels everything the activation owns.
func (e *Enemy) Despawn() {
	e.alive = false
	e.deathTimer.Cancel()
	e.deathTimer = nil
	e.speed.Stop()
	e.target = nil
	e.DamagePlayer.DisconnectAll()
	e.Killed.DisconnectAll()
	e.Decommissioned.DisconnectAll()
}

// SetTarget binds the pursuit target and points the tracked aim at it.
func (e *Enemy) SetTarget(t TargetSource) {
	e.target = t
	if e.refreshTarget() {
		if rel := e.lastTarget.Sub(e.body.Position()).Planar(); rel.Len() > kinematics.Epsilon {
			e.aim = rel
		}
	}
}

// refreshTarget reads the target, keeping the last known position if the
// source is gone.
func (e *Enemy) refreshTarget() bool {
	if e.target == nil {
		return false
	}
	p, ok := e.target.TargetPosition()
	if !ok {
		e.target = nil
		return false
	}
	e.lastTarget = p
	return true
}

// =============================================================================
// STATE MACHINE
// =============================================================================

// transition moves to a new state and runs its enter action. Requests the
// state graph does not allow are ignored and reported as false.
func (e *Enemy) transition(to EnemyState) bool {
	if !e.alive || !allowedTransition(e.state, to) {
		e.w.log.Debug("enemy transition ignored",
			zap.String("enemy", e.id),
			zap.Stringer("from", e.state),
			zap.Stringer("to", to),
		)
		return false
	}
	e.state = to
	switch to {
	case StatePursuing:
		e.enterPursuing()
	case StateAttacking:
		e.enterAttacking()
	case StateDying:
		e.enterDying()
	case StateDecommissioning:
		e.enterDecommissioning()
	}
	return true
}

func allowedTransition(from, to EnemyState) bool {
	switch from {
	case StatePursuing:
		return to == StateAttacking || to == StateDying
	case StateAttacking:
		return to == StatePursuing || to == StateDying
	case StateDying:
		return to == StateDecommissioning
	default:
		return false
	}
}

// Tick runs the current state's per-tick action.
func (e *Enemy) Tick(ctx TickContext) {
	if !e.alive {
		return
	}
	e.speed.Tick(ctx.Delta)

	switch e.state {
	case StatePursuing:
		e.tickPursuing(ctx)
	case StateAttacking:
		e.tickAttacking(ctx)
	case StateDecommissioning:
		e.tickDecommissioning(ctx)
	}
}

func (e *Enemy) enterPursuing() {
	e.anim.SetBool(ParamAttackFlag, false)
}

func (e *Enemy) tickPursuing(ctx TickContext) {
	e.steer(ctx)
	e.body.Move(kinematics.Forward(e.yaw).Scale(e.proto.Speed * ctx.Delta))

	if e.inAttackRange() {
		e.transition(StateAttacking)
		return
	}
	e.anim.SetFloat(ParamSpeed, e.LocomotionSpeed())
}

func (e *Enemy) enterAttacking() {
	e.attackTime = 0
	e.anim.SetBool(ParamAttackFlag, true)
}

func (e *Enemy) tickAttacking(ctx TickContext) {
	e.attackTime += ctx.Delta
	if e.attackTime >= e.proto.AttackTimeForDamage {
		e.attackTime = 0
		e.DamagePlayer.Emit(EnemyAttack{Enemy: e, Damage: e.proto.AttackDamage})
		// a listener may have ended the session and released us
		if !e.alive {
			return
		}
	}

	e.steer(ctx)

	if !e.inAttackRange() {
		e.transition(StatePursuing)
	}
}

func (e *Enemy) enterDying() {
	e.body.SetCollisionEnabled(false)
	e.body.SetKinematic(true)
	e.anim.SetTrigger(ParamDeathTrigger)
	e.deathTimer = e.w.sched.After(e.w.domains.deathDelay, e.proto.DeathDelay, e.onDeathDelay)
	e.Killed.Emit(e)
}

func (e *Enemy) onDeathDelay() {
	e.deathTimer = nil
	e.transition(StateDecommissioning)
}

func (e *Enemy) enterDecommissioning() {
	e.deathTimer.Cancel()
	e.deathTimer = nil
	e.sinkFrom = e.body.Position()
	e.sinkElapsed = 0
}

func (e *Enemy) tickDecommissioning(ctx TickContext) {
	if e.decommissioned {
		return
	}
	e.sinkElapsed += ctx.deltaIn(e.w.domains.decommission == scheduler.Real)
	t := 1.0
	if e.proto.DecommissionDuration > 0 {
		t = e.sinkElapsed / e.proto.DecommissionDuration
	}
	depth := e.proto.DecommissionDepth * kinematics.OutQuad(t)
	e.body.SetPosition(e.sinkFrom.Add(kinematics.V3(0, -depth, 0)))
	if t >= 1 {
		e.finishDecommission()
	}
}

func (e *Enemy) finishDecommission() {
	if e.decommissioned {
		return
	}
	e.decommissioned = true
	e.Decommissioned.Emit(e)
}

// =============================================================================
// EXTERNAL EVENTS
// =============================================================================

// Kill starts the death sequence. It reports false when the enemy is
// already dying, decommissioning or inactive.
func (e *Enemy) Kill() bool {
	return e.transition(StateDying)
}

// TakeHit removes hit points and kills the enemy when they run out. It
// reports whether this hit killed it.
func (e *Enemy) TakeHit(amount float64) bool {
	if !e.alive || e.state >= StateDying {
		return false
	}
	e.health -= amount
	if e.health > 0 {
		return false
	}
	e.health = 0
	return e.Kill()
}

// SetVisible feeds the observer's verdict for this tick.
func (e *Enemy) SetVisible(visible bool) {
	was := e.visible
	e.visible = visible
	if was && !visible {
		e.OnBecameInvisible()
	}
}

// OnBecameInvisible ends the sink early when the enemy leaves the view
// while decommissioning. It has no effect in any other state.
func (e *Enemy) OnBecameInvisible() {
	if !e.alive {
		return
	}
	e.visible = false
	if e.state == StateDecommissioning {
		e.finishDecommission()
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// steer eases the tracked point toward the target and faces it.
func (e *Enemy) steer(ctx TickContext) {
	e.refreshTarget()
	pos := e.body.Position()
	desired := e.lastTarget.Sub(pos).Planar()
	e.aim = kinematics.Slerp(e.aim, desired, kinematics.DampFactor(1-e.proto.RotateSmoothness, ctx.Delta))
	if e.aim.Len() > kinematics.Epsilon {
		e.yaw = kinematics.NormalizeAngle(kinematics.YawOf(e.aim))
	}
}

func (e *Enemy) inAttackRange() bool {
	return e.body.Position().PlanarDist(e.lastTarget) <= e.proto.AttackDistance
}

// LocomotionSpeed is the estimated speed mapped onto [0, 1] for the
// animation blend.
func (e *Enemy) LocomotionSpeed() float64 {
	if e.proto.Speed <= 0 {
		return 0
	}
	return kinematics.Clamp01(e.speed.Speed() / (e.proto.Speed * SpeedToAnimationRatio))
}

func (e *Enemy) ID() string                { return e.id }
func (e *Enemy) Prototype() string         { return e.proto.ID }
func (e *Enemy) State() EnemyState         { return e.state }
func (e *Enemy) Alive() bool               { return e.alive }
func (e *Enemy) Position() kinematics.Vec3 { return e.body.Position() }
func (e *Enemy) Yaw() float64              { return e.yaw }
func (e *Enemy) Radius() float64           { return e.proto.Radius }
func (e *Enemy) Health() float64           { return e.health }
func (e *Enemy) DeathVariant() int         { return e.deathVariant }
func (e *Enemy) Collidable() bool          { return e.alive && e.body.CollisionEnabled() }
func (e *Enemy) Visible() bool             { return e.visible }

// EnemySnapshot is an immutable copy of enemy state for clients
type EnemySnapshot struct {
	ID        string          `json:"id"`
	Prototype string          `json:"prototype"`
	State     string          `json:"state"`
	Position  kinematics.Vec3 `json:"position"`
	Yaw       float64         `json:"yaw"`
	Health    float64         `json:"health"`
	Anim      AnimParams      `json:"anim"`
}

// ToSnapshot copies the enemy for publishing.
func (e *Enemy) ToSnapshot() EnemySnapshot {
	return EnemySnapshot{
		ID:        e.id,
		Prototype: e.proto.ID,
		State:     e.state.String(),
		Position:  e.body.Position(),
		Yaw:       e.yaw,
		Health:    e.health,
		Anim:      paramsOf(e.anim),
	}
}
