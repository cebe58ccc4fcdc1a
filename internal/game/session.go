package game

import (
	"time"

	"arena-shooter/internal/game/kinematics"
	"arena-shooter/internal/game/scheduler"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SeedFrom turns an operator supplied seed string into a random seed. An
// empty string seeds from the clock.
func SeedFrom(s string) int64 {
	if s == "" {
		return time.Now().UnixNano()
	}
	return int64(xxhash.Sum64String(s))
}

// wireSession connects the long-lived signals. Per-enemy subscriptions are
// made on spawn and dropped by Despawn.
func (e *Engine) wireSession() {
	e.player.Died.Connect(e.onPlayerDied)
	e.player.Fired.Connect(e.onShot)
	e.player.EnemyHit.Connect(e.onEnemyHit)
	e.director.Spawned.Connect(e.onSpawned)
	e.director.Released.Connect(e.onReleased)
	e.director.Attacked.Connect(e.onAttacked)
}

func (e *Engine) onSpawned(en *Enemy) {
	en.Killed.Connect(e.onEnemyKilled)
	pos := en.Position()
	e.record(EventTypeSpawn, en.ID(), SpawnPayload{
		EnemyID:   en.ID(),
		Prototype: en.Prototype(),
		X:         pos.X,
		Z:         pos.Z,
		Live:      e.director.Live(),
	})
}

func (e *Engine) onReleased(en *Enemy) {
	e.record(EventTypeDespawn, en.ID(), DespawnPayload{EnemyID: en.ID(), Live: e.director.Live()})
}

func (e *Engine) onEnemyKilled(en *Enemy) {
	e.kills++
	e.effects.AddFlash(en.Position(), FlashKill)
	e.record(EventTypeKill, en.ID(), KillPayload{
		EnemyID:      en.ID(),
		Prototype:    en.Prototype(),
		DeathVariant: en.DeathVariant(),
	})
}

func (e *Engine) onShot(p *Projectile) {
	pos := p.Position()
	e.record(EventTypeShot, "player", ShotPayload{ProjectileID: p.ID(), X: pos.X, Z: pos.Z, Yaw: p.Yaw()})
}

func (e *Engine) onEnemyHit(hit ProjectileHit) {
	e.effects.AddFlash(hit.Projectile.Position(), FlashHit)
	e.record(EventTypeHit, hit.Target.ID(), HitPayload{
		ProjectileID: hit.Projectile.ID(),
		EnemyID:      hit.Target.ID(),
		Damage:       hit.Projectile.Damage,
	})
}

func (e *Engine) onAttacked(a EnemyAttack) {
	e.effects.Shake(a.Damage / e.tuning.Player.HealthTotal)
	e.record(EventTypePlayerDamage, "player", PlayerDamagePayload{
		EnemyID: a.Enemy.ID(),
		Damage:  a.Damage,
		Health:  e.player.Health(),
	})
}

// onPlayerDied ends the session: the bar drops at once, time stops and a
// restart is scheduled on the real clock.
func (e *Engine) onPlayerDied(p *Player) {
	e.hud.SetHealth(p.NormalizedHealth(), false)
	e.hud.ShowGameOverMessage()
	e.gameOver = true
	e.director.setPaused(true)
	e.RestartAfter(e.tuning.Session.RestartDelay)
	rank := e.finishRun("death")

	e.record(EventTypePlayerDeath, "player", PlayerDeathPayload{
		Shots: p.Shots(),
		Hits:  p.Hits(),
		Kills: e.kills,
	})
	e.log.Info("player died",
		zap.String("session", e.sessionID),
		zap.Uint64("tick", e.tickCount),
		zap.Uint64("kills", e.kills),
		zap.Uint64("shots", p.Shots()),
		zap.Int("rank", rank),
		zap.Float64("restartIn", e.tuning.Session.RestartDelay),
	)
}

// RestartAfter schedules a session restart delay seconds of real time from
// now, replacing any pending one.
func (e *Engine) RestartAfter(delay float64) {
	e.restartTimer.Cancel()
	e.restartTimer = e.w.sched.After(scheduler.Real, delay, func() {
		e.restartTimer = nil
		e.restart("game over")
	})
}

// restart tears the session down and starts a new one with a fresh id.
// Caller holds mu.
func (e *Engine) restart(reason string) {
	prev := e.sessionID
	e.finishRun(reason)

	e.director.Stop()
	released := e.director.ReleaseAll()
	e.projectiles.ReleaseAll()
	e.w.sched.CancelAll()
	e.restartTimer = nil

	origin := kinematics.Vec3{}
	e.input.Reset()
	e.player.Reset(origin)
	e.camera.Snap(origin)
	e.hud.Reset()
	e.effects.Reset()
	e.director.Reset()

	e.gameOver = false
	e.paused = false
	e.timeScale = 1
	e.kills = 0
	e.survived = 0
	e.runRecorded = false
	e.restarts++
	e.sessionID = uuid.NewString()
	e.director.Start()

	e.record(EventTypeRestart, "session", RestartPayload{PreviousSession: prev, Reason: reason})
	e.log.Info("session restarted",
		zap.String("previous", prev),
		zap.String("session", e.sessionID),
		zap.String("reason", reason),
		zap.Int("enemiesReleased", released),
	)
}

// finishRun puts the current session on the run board once.
func (e *Engine) finishRun(reason string) int {
	if e.runRecorded {
		return 0
	}
	e.runRecorded = true
	return e.runs.Record(RunResult{
		SessionID: e.sessionID,
		Kills:     e.kills,
		Shots:     e.player.Shots(),
		Hits:      e.player.Hits(),
		Survived:  e.survived,
		Reason:    reason,
	})
}

// record appends an entry to the audit log. A stopped log ignores it.
func (e *Engine) record(t EventType, subject string, payload interface{}) {
	e.eventLog.EmitSimple(t, e.tickCount, e.sessionID, subject, payload)
}

// SessionID returns the id of the running session
func (e *Engine) SessionID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessionID
}

// GameOver reports whether the session is waiting to restart
func (e *Engine) GameOver() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gameOver
}

// Paused reports whether an operator paused the session
func (e *Engine) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}
