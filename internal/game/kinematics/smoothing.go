package kinematics

import "math"

const (
	// TargetFrameRate is the logical frame rate every per-frame blend factor
	// is tuned against. A tick of dt seconds counts as dt*TargetFrameRate
	// target frames.
	TargetFrameRate = 60.0

	// Epsilon is the general-purpose float tolerance for lengths and speeds.
	Epsilon = 1e-6

	Deg2Rad = math.Pi / 180
	Rad2Deg = 180 / math.Pi
)

// Correction converts an elapsed time into a count of target frames.
func Correction(dt float64) float64 {
	return dt * TargetFrameRate
}

// DampFactor returns the blend weight that applies a per-target-frame blend k
// over dt seconds. Applying DampFactor(k, a) then DampFactor(k, b) toward a
// fixed target lands exactly where DampFactor(k, a+b) does, which keeps
// smoothing independent of tick rate.
func DampFactor(k, dt float64) float64 {
	k = Clamp01(k)
	if k >= 1 {
		return 1
	}
	if dt <= 0 {
		return 0
	}
	return 1 - math.Pow(1-k, Correction(dt))
}

// Damp moves current toward target by the per-target-frame blend k.
func Damp(current, target, k, dt float64) float64 {
	return Lerp(current, target, DampFactor(k, dt))
}

// DampVec2 is Damp applied component-wise.
func DampVec2(current, target Vec2, k, dt float64) Vec2 {
	return current.Lerp(target, DampFactor(k, dt))
}

// DampVec3 is Damp applied component-wise.
func DampVec3(current, target Vec3, k, dt float64) Vec3 {
	return current.Lerp(target, DampFactor(k, dt))
}

// Lerp interpolates linearly between a and b without clamping t.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func Clamp01(v float64) float64 {
	return Clamp(v, 0, 1)
}

// Approximately reports whether a and b are equal within a tolerance scaled
// to their magnitude.
func Approximately(a, b float64) bool {
	scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
	return math.Abs(a-b) <= Epsilon*scale
}

// Repeat wraps t into [0, length).
func Repeat(t, length float64) float64 {
	return Clamp(t-math.Floor(t/length)*length, 0, length)
}

// NormalizeAngle wraps deg into [0, 360).
func NormalizeAngle(deg float64) float64 {
	a := Repeat(deg, 360)
	if a >= 360 {
		a = 0
	}
	return a
}

// DeltaAngle returns the shortest signed difference from a to b in degrees.
func DeltaAngle(a, b float64) float64 {
	d := Repeat(b-a, 360)
	if d > 180 {
		d -= 360
	}
	return d
}

// SmoothDamp moves current toward target like a critically damped spring
// that takes roughly smoothTime seconds to arrive. velocity carries state
// between calls. maxSpeed caps the rate of change; pass math.Inf(1) for none.
func SmoothDamp(current, target float64, velocity *float64, smoothTime, maxSpeed, dt float64) float64 {
	if dt <= 0 {
		return current
	}
	smoothTime = math.Max(0.0001, smoothTime)
	omega := 2 / smoothTime

	x := omega * dt
	exp := 1 / (1 + x + 0.48*x*x + 0.235*x*x*x)

	change := current - target
	originalTo := target

	maxChange := maxSpeed * smoothTime
	change = Clamp(change, -maxChange, maxChange)
	target = current - change

	temp := (*velocity + omega*change) * dt
	*velocity = (*velocity - omega*temp) * exp
	output := target + (change+temp)*exp

	// no overshoot
	if (originalTo-current > 0) == (output > originalTo) {
		output = originalTo
		*velocity = (output - originalTo) / dt
	}
	return output
}

// SmoothDampAngle is SmoothDamp for angles in degrees, taking the short way
// around. The result is wrapped into [0, 360).
func SmoothDampAngle(current, target float64, velocity *float64, smoothTime, maxSpeed, dt float64) float64 {
	target = current + DeltaAngle(current, target)
	return NormalizeAngle(SmoothDamp(current, target, velocity, smoothTime, maxSpeed, dt))
}

// Slerp interpolates spherically between directions a and b while
// interpolating their lengths linearly. t is clamped to [0, 1].
func Slerp(a, b Vec3, t float64) Vec3 {
	t = Clamp01(t)
	la, lb := a.Len(), b.Len()
	if la < Epsilon || lb < Epsilon {
		return a.Lerp(b, t)
	}
	na, nb := a.Scale(1/la), b.Scale(1/lb)
	dot := Clamp(na.Dot(nb), -1, 1)
	theta := math.Acos(dot)
	mag := Lerp(la, lb, t)

	if theta < Epsilon {
		return na.Lerp(nb, t).Normalized().Scale(mag)
	}

	rel := nb.Sub(na.Scale(dot))
	if rel.Len() < Epsilon {
		// antiparallel: any perpendicular works, prefer turning about up
		rel = Up.Cross(na)
		if rel.Len() < Epsilon {
			rel = Vec3{X: 1}.Cross(na)
		}
	}
	rel = rel.Normalized()

	s, c := math.Sincos(theta * t)
	return na.Scale(c).Add(rel.Scale(s)).Scale(mag)
}

// InQuad is the quadratic ease-in curve on [0, 1].
func InQuad(t float64) float64 {
	t = Clamp01(t)
	return t * t
}

// OutQuad is the quadratic ease-out curve on [0, 1].
func OutQuad(t float64) float64 {
	t = Clamp01(t)
	return t * (2 - t)
}
