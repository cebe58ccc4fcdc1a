// Package kinematics provides the vector types and frame-normalized smoothing
// primitives shared by every moving entity in the arena.
//
// World space is Y-up. Yaw angles are in degrees, measured clockwise from +Z
// when viewed from above, so a yaw of 90 faces +X.
package kinematics

import "math"

// Vec2 is a 2D vector used for input axes, screen coordinates and animation
// blend coordinates.
type Vec2 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// V2 is shorthand for Vec2{x, y}.
func V2(x, y float64) Vec2 { return Vec2{X: x, Y: y} }

func (v Vec2) Add(o Vec2) Vec2             { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2             { return Vec2{v.X - o.X, v.Y - o.Y} }
func (v Vec2) Scale(s float64) Vec2        { return Vec2{v.X * s, v.Y * s} }
func (v Vec2) Len() float64                { return math.Hypot(v.X, v.Y) }
func (v Vec2) IsZero() bool                { return v.X == 0 && v.Y == 0 }
func (v Vec2) Lerp(o Vec2, t float64) Vec2 { return v.Add(o.Sub(v).Scale(t)) }

// Normalized returns the unit vector, or the zero vector if v is too short.
func (v Vec2) Normalized() Vec2 {
	l := v.Len()
	if l < Epsilon {
		return Vec2{}
	}
	return Vec2{v.X / l, v.Y / l}
}

// Rotate turns v counter-clockwise by deg degrees.
func (v Vec2) Rotate(deg float64) Vec2 {
	s, c := math.Sincos(deg * Deg2Rad)
	return Vec2{v.X*c - v.Y*s, v.X*s + v.Y*c}
}

// Vec3 is a 3D world-space vector.
type Vec3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// V3 is shorthand for Vec3{x, y, z}.
func V3(x, y, z float64) Vec3 { return Vec3{X: x, Y: y, Z: z} }

// Up is the world up axis.
var Up = Vec3{Y: 1}

func (v Vec3) Add(o Vec3) Vec3      { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3      { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }
func (v Vec3) Dot(o Vec3) float64   { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }
func (v Vec3) Len() float64         { return math.Sqrt(v.Dot(v)) }
func (v Vec3) IsZero() bool         { return v.X == 0 && v.Y == 0 && v.Z == 0 }
func (v Vec3) WithY(y float64) Vec3 { return Vec3{v.X, y, v.Z} }

// Planar drops the vertical component.
func (v Vec3) Planar() Vec3 { return Vec3{v.X, 0, v.Z} }

func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v.Y*o.Z - v.Z*o.Y,
		v.Z*o.X - v.X*o.Z,
		v.X*o.Y - v.Y*o.X,
	}
}

// Dist returns the Euclidean distance between v and o.
func (v Vec3) Dist(o Vec3) float64 { return v.Sub(o).Len() }

// PlanarDist returns the distance between v and o ignoring height.
func (v Vec3) PlanarDist(o Vec3) float64 { return math.Hypot(v.X-o.X, v.Z-o.Z) }

func (v Vec3) Lerp(o Vec3, t float64) Vec3 { return v.Add(o.Sub(v).Scale(t)) }

// Normalized returns the unit vector, or the zero vector if v is too short.
func (v Vec3) Normalized() Vec3 {
	l := v.Len()
	if l < Epsilon {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

// Forward returns the planar unit vector a body with the given yaw faces.
func Forward(yaw float64) Vec3 {
	s, c := math.Sincos(yaw * Deg2Rad)
	return Vec3{X: s, Z: c}
}

// YawOf returns the yaw that faces along v's planar projection.
func YawOf(v Vec3) float64 {
	return math.Atan2(v.X, v.Z) * Rad2Deg
}

// RotateYaw rotates v about the up axis by deg degrees.
func RotateYaw(v Vec3, deg float64) Vec3 {
	s, c := math.Sincos(deg * Deg2Rad)
	return Vec3{
		X: v.X*c + v.Z*s,
		Y: v.Y,
		Z: -v.X*s + v.Z*c,
	}
}
