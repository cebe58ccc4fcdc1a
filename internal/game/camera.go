package game

import (
	"math"

	"arena-shooter/internal/config"
	"arena-shooter/internal/game/kinematics"
)

// OrthoCamera is a fixed-rotation orthographic camera that trails a target
// at a constant offset. It is the Viewer for aiming and visibility.
type OrthoCamera struct {
	cfg    config.CameraConfig
	pos    kinematics.Vec3
	fwd    kinematics.Vec3
	right  kinematics.Vec3
	up     kinematics.Vec3
	aspect float64
}

// NewOrthoCamera places the camera at target + offset.
func NewOrthoCamera(cfg config.CameraConfig, target kinematics.Vec3) *OrthoCamera {
	pitch := cfg.Pitch * kinematics.Deg2Rad
	sp, cp := math.Sincos(pitch)
	flat := kinematics.Forward(cfg.Yaw)

	c := &OrthoCamera{
		cfg:    cfg,
		fwd:    kinematics.V3(flat.X*cp, -sp, flat.Z*cp),
		right:  kinematics.RotateYaw(kinematics.V3(1, 0, 0), cfg.Yaw),
		aspect: 1,
	}
	c.up = c.fwd.Cross(c.right)
	if cfg.ScreenHeight > 0 {
		c.aspect = cfg.ScreenWidth / cfg.ScreenHeight
	}
	c.Snap(target)
	return c
}

// Follow eases the camera toward target + offset.
func (c *OrthoCamera) Follow(target kinematics.Vec3, dt float64) {
	goal := target.Add(c.cfg.Offset)
	c.pos = kinematics.DampVec3(c.pos, goal, 1-c.cfg.FollowSmoothness, dt)
}

// Snap jumps straight to target + offset.
func (c *OrthoCamera) Snap(target kinematics.Vec3) {
	c.pos = target.Add(c.cfg.Offset)
}

func (c *OrthoCamera) Position() kinematics.Vec3 { return c.pos }
func (c *OrthoCamera) Forward() kinematics.Vec3  { return c.fwd }
func (c *OrthoCamera) Right() kinematics.Vec3    { return c.right }
func (c *OrthoCamera) Yaw() float64              { return c.cfg.Yaw }
func (c *OrthoCamera) FarClip() float64          { return c.cfg.FarClip }

// ScreenRay maps a pixel to the world point on the near plane and the view
// direction. Orthographic rays are parallel.
func (c *OrthoCamera) ScreenRay(screen kinematics.Vec2) (origin, dir kinematics.Vec3) {
	half := c.cfg.OrthographicSize
	u, v := 0.0, 0.0
	if c.cfg.ScreenWidth > 0 {
		u = (screen.X/c.cfg.ScreenWidth - 0.5) * 2 * half * c.aspect
	}
	if c.cfg.ScreenHeight > 0 {
		v = (screen.Y/c.cfg.ScreenHeight - 0.5) * 2 * half
	}
	origin = c.pos.Add(c.right.Scale(u)).Add(c.up.Scale(v))
	return origin, c.fwd
}

// ScreenCenter is the pixel at the middle of the screen.
func (c *OrthoCamera) ScreenCenter() kinematics.Vec2 {
	return kinematics.V2(c.cfg.ScreenWidth/2, c.cfg.ScreenHeight/2)
}

// Visible reports whether p falls inside the view volume, grown by the
// configured margin on the screen axes.
func (c *OrthoCamera) Visible(p kinematics.Vec3) bool {
	rel := p.Sub(c.pos)
	depth := rel.Dot(c.fwd)
	if depth < 0 || depth > c.cfg.FarClip {
		return false
	}
	halfH := c.cfg.OrthographicSize + c.cfg.VisibilityMargin
	halfW := c.cfg.OrthographicSize*c.aspect + c.cfg.VisibilityMargin
	return math.Abs(rel.Dot(c.right)) <= halfW && math.Abs(rel.Dot(c.up)) <= halfH
}

// RayPlane intersects a ray with the horizontal plane y = height. It misses
// when the ray runs parallel to or away from the plane, or when the hit lies
// beyond maxDist.
func RayPlane(origin, dir kinematics.Vec3, height, maxDist float64) (kinematics.Vec3, bool) {
	if math.Abs(dir.Y) < kinematics.Epsilon {
		return kinematics.Vec3{}, false
	}
	t := (height - origin.Y) / dir.Y
	if t < 0 || t > maxDist {
		return kinematics.Vec3{}, false
	}
	return origin.Add(dir.Scale(t)), true
}
