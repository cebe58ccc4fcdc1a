package game

import (
	"math"

	"arena-shooter/internal/game/kinematics"
)

// Hit volumes are vertical cylinders, so only planar distance matters.
func overlaps(a kinematics.Vec3, ra float64, b kinematics.Vec3, rb float64) bool {
	return a.PlanarDist(b) <= ra+rb
}

// resolveCollisions runs projectiles against collidable enemies through the
// grid broad phase. Projectiles that leave the arena hit the wall.
func (e *Engine) resolveCollisions() {
	e.grid.Clear()
	e.enemyScratch = e.enemies.AppendActive(e.enemyScratch[:0])
	maxRadius := 0.0
	for i, en := range e.enemyScratch {
		if !en.Collidable() {
			continue
		}
		pos := en.Position()
		e.grid.Insert(uint32(i), pos.X, pos.Z)
		maxRadius = math.Max(maxRadius, en.Radius())
	}

	e.projScratch = e.projectiles.AppendActive(e.projScratch[:0])
	for _, p := range e.projScratch {
		if !p.Alive() || p.Ended() {
			continue
		}
		pos := p.Position()
		if !e.grid.Contains(pos.X, pos.Z) {
			p.NotifyHit(nil)
			continue
		}
		for _, h := range e.grid.QueryRadius(pos.X, pos.Z, p.Radius()+maxRadius) {
			en := e.enemyScratch[h]
			// an earlier projectile may have killed it this tick
			if !en.Collidable() {
				continue
			}
			if overlaps(pos, p.Radius(), en.Position(), en.Radius()) {
				p.NotifyHit(en)
				break
			}
		}
	}
}

// updateVisibility reports what the camera sees. Projectiles still in view
// when their lifetime runs out are retired the same way.
func (e *Engine) updateVisibility() {
	e.projScratch = e.projectiles.AppendActive(e.projScratch[:0])
	for _, p := range e.projScratch {
		p.SetVisible(e.camera.Visible(p.Position()))
		if p.Expired() {
			p.NotifyOutOfView()
		}
	}

	e.enemyScratch = e.enemies.AppendActive(e.enemyScratch[:0])
	for _, en := range e.enemyScratch {
		en.SetVisible(e.camera.Visible(en.Position()))
	}
}
