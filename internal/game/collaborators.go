package game

import (
	"arena-shooter/internal/game/kinematics"
	"arena-shooter/internal/input"
)

// InputSource supplies one input sample per tick.
type InputSource interface {
	Sample() input.Sample
}

// Animator receives presentation parameters. It is write-only: the
// simulation never reads animation state back.
type Animator interface {
	SetFloat(name string, v float64)
	SetBool(name string, v bool)
	SetInteger(name string, v int)
	SetTrigger(name string)
	Play(clip string, normalizedTime float64)
}

// Body is the motion backend for one entity.
type Body interface {
	Position() kinematics.Vec3
	SetPosition(p kinematics.Vec3)
	// Move applies a desired displacement, resolving it against the world.
	Move(delta kinematics.Vec3)
	SetCollisionEnabled(enabled bool)
	CollisionEnabled() bool
	SetKinematic(kinematic bool)
}

// Viewer is the camera the player aims through and the observer that
// decides visibility.
type Viewer interface {
	// ScreenRay returns the world ray through a screen point given in
	// pixels from the bottom-left corner.
	ScreenRay(screen kinematics.Vec2) (origin, dir kinematics.Vec3)
	Forward() kinematics.Vec3
	Right() kinematics.Vec3
	Yaw() float64
	FarClip() float64
	Visible(p kinematics.Vec3) bool
}

// HUD is the UI collaborator.
type HUD interface {
	SetHealth(normalized float64, animated bool)
	ShowGameOverMessage()
}

// SessionControl restarts the session after a real-time delay.
type SessionControl interface {
	RestartAfter(delay float64)
}

// TargetSource is something enemies can pursue. ok is false once the source
// has been torn down; pursuers then hold the last position they saw.
type TargetSource interface {
	TargetPosition() (p kinematics.Vec3, ok bool)
}

// Animation parameter and clip names.
const (
	ParamSpeed        = "Speed"
	ParamAttackFlag   = "AttackFlag"
	ParamDeathTrigger = "DeathTrigger"
	ParamDeathVariant = "DeathVariant"
	ParamMoveX        = "MoveX"
	ParamMoveY        = "MoveY"
	ParamFire         = "Fire"

	ClipMoving = "Moving"
)

// AnimParams is a copy of everything an Animator has been told.
type AnimParams struct {
	Floats   map[string]float64 `json:"floats,omitempty"`
	Bools    map[string]bool    `json:"bools,omitempty"`
	Ints     map[string]int     `json:"ints,omitempty"`
	Triggers map[string]uint64  `json:"triggers,omitempty"` // times fired
	Clip     string             `json:"clip,omitempty"`
	ClipTime float64            `json:"clipTime,omitempty"`
}

// ParamRecorder is the Animator used by the server: it keeps the latest
// value of every parameter so snapshots can ship them to clients.
type ParamRecorder struct {
	floats   map[string]float64
	bools    map[string]bool
	ints     map[string]int
	triggers map[string]uint64
	clip     string
	clipTime float64
}

// NewParamRecorder returns an empty recorder.
func NewParamRecorder() *ParamRecorder {
	return &ParamRecorder{
		floats:   make(map[string]float64),
		bools:    make(map[string]bool),
		ints:     make(map[string]int),
		triggers: make(map[string]uint64),
	}
}

func (r *ParamRecorder) SetFloat(name string, v float64) { r.floats[name] = v }
func (r *ParamRecorder) SetBool(name string, v bool)     { r.bools[name] = v }
func (r *ParamRecorder) SetInteger(name string, v int)   { r.ints[name] = v }
func (r *ParamRecorder) SetTrigger(name string)          { r.triggers[name]++ }

func (r *ParamRecorder) Play(clip string, normalizedTime float64) {
	r.clip = clip
	r.clipTime = normalizedTime
}

// Float returns a float parameter, zero if never set.
func (r *ParamRecorder) Float(name string) float64 { return r.floats[name] }

// Bool returns a bool parameter.
func (r *ParamRecorder) Bool(name string) bool { return r.bools[name] }

// Int returns an integer parameter.
func (r *ParamRecorder) Int(name string) int { return r.ints[name] }

// Triggered returns how many times a trigger has fired.
func (r *ParamRecorder) Triggered(name string) uint64 { return r.triggers[name] }

// Params copies the recorded state.
func (r *ParamRecorder) Params() AnimParams {
	p := AnimParams{Clip: r.clip, ClipTime: r.clipTime}
	if len(r.floats) > 0 {
		p.Floats = make(map[string]float64, len(r.floats))
		for k, v := range r.floats {
			p.Floats[k] = v
		}
	}
	if len(r.bools) > 0 {
		p.Bools = make(map[string]bool, len(r.bools))
		for k, v := range r.bools {
			p.Bools[k] = v
		}
	}
	if len(r.ints) > 0 {
		p.Ints = make(map[string]int, len(r.ints))
		for k, v := range r.ints {
			p.Ints[k] = v
		}
	}
	if len(r.triggers) > 0 {
		p.Triggers = make(map[string]uint64, len(r.triggers))
		for k, v := range r.triggers {
			p.Triggers[k] = v
		}
	}
	return p
}

// paramsOf extracts recorded parameters from animators that keep them.
func paramsOf(a Animator) AnimParams {
	if r, ok := a.(interface{ Params() AnimParams }); ok {
		return r.Params()
	}
	return AnimParams{}
}

// KinematicBody is the Body used by the server. Movement is clamped to the
// arena square; collision is resolved by the engine's broad phase.
type KinematicBody struct {
	pos        kinematics.Vec3
	halfExtent float64
	collision  bool
	kinematic  bool
}

// NewKinematicBody creates a body confined to [-halfExtent, halfExtent] on
// the planar axes. A non-positive halfExtent disables the clamp.
func NewKinematicBody(halfExtent float64) *KinematicBody {
	return &KinematicBody{halfExtent: halfExtent, collision: true}
}

func (b *KinematicBody) Position() kinematics.Vec3 { return b.pos }

func (b *KinematicBody) SetPosition(p kinematics.Vec3) { b.pos = b.clamp(p) }

// Move ignores displacement while the body is kinematic: only explicit
// SetPosition calls move it then.
func (b *KinematicBody) Move(delta kinematics.Vec3) {
	if b.kinematic {
		return
	}
	b.pos = b.clamp(b.pos.Add(delta))
}

func (b *KinematicBody) SetCollisionEnabled(enabled bool) { b.collision = enabled }
func (b *KinematicBody) CollisionEnabled() bool           { return b.collision }
func (b *KinematicBody) SetKinematic(kinematic bool)      { b.kinematic = kinematic }

// Kinematic reports whether physics response is off.
func (b *KinematicBody) Kinematic() bool { return b.kinematic }

func (b *KinematicBody) clamp(p kinematics.Vec3) kinematics.Vec3 {
	if b.halfExtent <= 0 {
		return p
	}
	p.X = kinematics.Clamp(p.X, -b.halfExtent, b.halfExtent)
	p.Z = kinematics.Clamp(p.Z, -b.halfExtent, b.halfExtent)
	return p
}
