package game

import (
	"fmt"
	"math"

	"arena-shooter/internal/game/kinematics"
)

// MaxFlashes bounds the live impact flashes; the oldest is overwritten.
const MaxFlashes = 32

// FlashKind tells clients which burst to draw.
type FlashKind uint8

const (
	FlashHit FlashKind = iota
	FlashKill
)

func (k FlashKind) String() string {
	if k == FlashKill {
		return "kill"
	}
	return "hit"
}

// MarshalText writes the kind by name.
func (k FlashKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *FlashKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "hit":
		*k = FlashHit
	case "kill":
		*k = FlashKill
	default:
		return fmt.Errorf("unknown flash kind %q", b)
	}
	return nil
}

// Effect lifetimes, in seconds of scaled time.
const (
	hitFlashDuration  = 0.15
	killFlashDuration = 0.4
	shakeDuration     = 0.25
	shakeFrequency    = 40.0 // Hz
)

// ImpactFlash is a short burst where a projectile landed.
type ImpactFlash struct {
	Position kinematics.Vec3 `json:"position"`
	Kind     FlashKind       `json:"kind"`
	Alpha    float64         `json:"alpha"`

	remaining float64
	duration  float64
}

// ScreenShake jolts the camera when the player takes damage.
type ScreenShake struct {
	Intensity float64         `json:"intensity"`
	Offset    kinematics.Vec2 `json:"offset"`

	remaining float64
	phase     float64
}

// Effects holds the presentation-only bursts a session produces. Nothing
// here feeds back into gameplay.
type Effects struct {
	flashes [MaxFlashes]ImpactFlash
	next    int
	count   int
	shake   ScreenShake
}

// AddFlash records a burst at pos.
func (fx *Effects) AddFlash(pos kinematics.Vec3, kind FlashKind) {
	d := hitFlashDuration
	if kind == FlashKill {
		d = killFlashDuration
	}
	if fx.flashes[fx.next].remaining <= 0 {
		fx.count++
	}
	fx.flashes[fx.next] = ImpactFlash{Position: pos, Kind: kind, Alpha: 1, remaining: d, duration: d}
	fx.next = (fx.next + 1) % MaxFlashes
}

// Shake starts or strengthens the camera shake. damage is normalized to the
// player's health total.
func (fx *Effects) Shake(damage float64) {
	fx.shake.Intensity = math.Min(1, math.Max(fx.shake.Intensity, damage*4))
	fx.shake.remaining = shakeDuration
}

// Update fades flashes and the shake. Frozen while dt is zero.
func (fx *Effects) Update(dt float64) {
	if dt <= 0 {
		return
	}
	for i := range fx.flashes {
		f := &fx.flashes[i]
		if f.remaining <= 0 {
			continue
		}
		f.remaining -= dt
		if f.remaining <= 0 {
			f.remaining = 0
			f.Alpha = 0
			fx.count--
			continue
		}
		f.Alpha = f.remaining / f.duration
	}

	s := &fx.shake
	if s.remaining <= 0 {
		s.Intensity = 0
		s.Offset = kinematics.Vec2{}
		return
	}
	s.remaining -= dt
	s.phase += dt * shakeFrequency * 2 * math.Pi
	fade := math.Max(0, s.remaining/shakeDuration)
	amp := s.Intensity * fade
	s.Offset = kinematics.V2(math.Sin(s.phase)*amp, math.Cos(s.phase*1.3)*amp)
}

// Reset clears every effect.
func (fx *Effects) Reset() {
	*fx = Effects{}
}

// Live returns the number of flashes still fading.
func (fx *Effects) Live() int { return fx.count }

// EffectsSnapshot is the visible part of Effects.
type EffectsSnapshot struct {
	Flashes []ImpactFlash `json:"flashes"`
	Shake   ScreenShake   `json:"shake"`
}

// AppendSnapshot copies the live flashes into dst.
func (fx *Effects) AppendSnapshot(dst []ImpactFlash) []ImpactFlash {
	for _, f := range fx.flashes {
		if f.remaining > 0 {
			dst = append(dst, f)
		}
	}
	return dst
}

// CurrentShake returns the shake state for this tick.
func (fx *Effects) CurrentShake() ScreenShake { return fx.shake }
