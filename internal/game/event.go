package game

import (
	"encoding/json"
	"time"
)

// EventType enum for event classification
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypeSpawn
	EventTypeDespawn
	EventTypeShot
	EventTypeHit
	EventTypeKill
	EventTypePlayerDamage
	EventTypePlayerDeath
	EventTypeRestart
	EventTypePause
)

// EventVersion for backwards compatibility of the log format
const EventVersion uint8 = 1

// Event is one line of the gameplay audit log
type Event struct {
	Version   uint8           `json:"version"`   // Schema version
	Type      EventType       `json:"type"`      // Event type
	Timestamp int64           `json:"timestamp"` // Unix nano
	Sequence  uint64          `json:"sequence"`  // Monotonic sequence
	TickNum   uint64          `json:"tickNum"`   // Simulation tick this occurred in
	SessionID string          `json:"sessionId"` // Session the tick belongs to
	Subject   string          `json:"subject"`   // Entity the event is about (for rate limiting)
	Payload   json.RawMessage `json:"payload"`   // JSON-encoded payload
}

// String returns human-readable event type
func (t EventType) String() string {
	switch t {
	case EventTypeSpawn:
		return "spawn"
	case EventTypeDespawn:
		return "despawn"
	case EventTypeShot:
		return "shot"
	case EventTypeHit:
		return "hit"
	case EventTypeKill:
		return "kill"
	case EventTypePlayerDamage:
		return "player_damage"
	case EventTypePlayerDeath:
		return "player_death"
	case EventTypeRestart:
		return "restart"
	case EventTypePause:
		return "pause"
	default:
		return "unknown"
	}
}

// MarshalText writes the type by name so the log stays readable.
func (t EventType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Typed payloads for different event types

// SpawnPayload describes an enemy entering the arena
type SpawnPayload struct {
	EnemyID   string  `json:"enemyId"`
	Prototype string  `json:"prototype"`
	X         float64 `json:"x"`
	Z         float64 `json:"z"`
	Live      int     `json:"live"`
}

// DespawnPayload describes an enemy returned to the pool
type DespawnPayload struct {
	EnemyID string `json:"enemyId"`
	Live    int    `json:"live"`
}

// ShotPayload describes one fired projectile
type ShotPayload struct {
	ProjectileID string  `json:"projectileId"`
	X            float64 `json:"x"`
	Z            float64 `json:"z"`
	Yaw          float64 `json:"yaw"`
}

// HitPayload describes a projectile striking an enemy
type HitPayload struct {
	ProjectileID string  `json:"projectileId"`
	EnemyID      string  `json:"enemyId"`
	Damage       float64 `json:"damage"`
}

// KillPayload describes an enemy entering its death sequence
type KillPayload struct {
	EnemyID      string `json:"enemyId"`
	Prototype    string `json:"prototype"`
	DeathVariant int    `json:"deathVariant"`
}

// PlayerDamagePayload describes one enemy attack landing
type PlayerDamagePayload struct {
	EnemyID string  `json:"enemyId"`
	Damage  float64 `json:"damage"`
	Health  float64 `json:"health"`
}

// PlayerDeathPayload summarises the session that just ended
type PlayerDeathPayload struct {
	Shots uint64 `json:"shots"`
	Hits  uint64 `json:"hits"`
	Kills uint64 `json:"kills"`
}

// RestartPayload links the old and new session ids
type RestartPayload struct {
	PreviousSession string `json:"previousSession"`
	Reason          string `json:"reason"`
}

// PausePayload records a pause toggle
type PausePayload struct {
	Paused bool `json:"paused"`
}

// EncodePayload marshals a payload to JSON bytes
func EncodePayload(payload interface{}) json.RawMessage {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, tickNum uint64, sessionID, subject string, payload interface{}) Event {
	return Event{
		Version:   EventVersion,
		Type:      eventType,
		Timestamp: time.Now().UnixNano(),
		TickNum:   tickNum,
		SessionID: sessionID,
		Subject:   subject,
		Payload:   EncodePayload(payload),
	}
}
