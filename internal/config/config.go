// Package config provides centralized configuration management.
// Every gameplay constant and server setting is defined here once.
//
// Values are layered: compiled defaults, then an optional YAML tuning file
// (ARENA_TUNING_FILE), then individual environment overrides.
package config

import (
	"os"
	"strconv"
	"strings"

	"arena-shooter/internal/game/kinematics"
)

// =============================================================================
// SIMULATION
// =============================================================================

// SimConfig controls the tick loop.
type SimConfig struct {
	TickRate int     `yaml:"tickRate" json:"tickRate"` // Simulation steps per second
	MaxDelta float64 `yaml:"maxDelta" json:"maxDelta"` // Longest real delta fed into one step (s)
}

// DefaultSim returns the default simulation configuration.
func DefaultSim() SimConfig {
	return SimConfig{
		TickRate: 60,
		MaxDelta: 0.1, // avoids a huge catch-up step after a stall
	}
}

// =============================================================================
// PLAYER
// =============================================================================

// PlayerConfig tunes movement, aiming and shooting.
type PlayerConfig struct {
	HealthTotal         float64 `yaml:"healthTotal" json:"healthTotal"`
	WalkSpeed           float64 `yaml:"walkSpeed" json:"walkSpeed"`                     // units/s
	SprintSpeed         float64 `yaml:"sprintSpeed" json:"sprintSpeed"`                 // units/s
	SpeedBlend          float64 `yaml:"speedBlend" json:"speedBlend"`                   // per target frame
	AnimationSmoothness float64 `yaml:"animationSmoothness" json:"animationSmoothness"` // [0, 0.99]
	RotationSmoothTime  float64 `yaml:"rotationSmoothTime" json:"rotationSmoothTime"`   // s
	MaxTurnSpeed        float64 `yaml:"maxTurnSpeed" json:"maxTurnSpeed"`               // deg/s, 0 = unlimited
	AdditionalAngle     float64 `yaml:"additionalAngle" json:"additionalAngle"`         // deg added to aim yaw
	AimPlaneHeight      float64 `yaml:"aimPlaneHeight" json:"aimPlaneHeight"`
	AimTolerance        float64 `yaml:"aimTolerance" json:"aimTolerance"` // deg
	MuzzleForward       float64 `yaml:"muzzleForward" json:"muzzleForward"`
	MuzzleHeight        float64 `yaml:"muzzleHeight" json:"muzzleHeight"`
	ShotInterval        float64 `yaml:"shotInterval" json:"shotInterval"` // s
	SpreadAngle         float64 `yaml:"spreadAngle" json:"spreadAngle"`   // deg per unit of speed
	ShotDamage          float64 `yaml:"shotDamage" json:"shotDamage"`
	Radius              float64 `yaml:"radius" json:"radius"`
}

// DefaultPlayer returns the default player tuning.
func DefaultPlayer() PlayerConfig {
	return PlayerConfig{
		HealthTotal:         100,
		WalkSpeed:           2,
		SprintSpeed:         3,
		SpeedBlend:          0.2,
		AnimationSmoothness: 0.8,
		RotationSmoothTime:  0.12,
		AimPlaneHeight:      1.2,
		AimTolerance:        2,
		MuzzleForward:       0.6,
		MuzzleHeight:        1.2,
		ShotInterval:        0.1,
		SpreadAngle:         1,
		ShotDamage:          1,
		Radius:              0.4,
	}
}

// =============================================================================
// ENEMIES
// =============================================================================

// EnemyPrototype tunes one enemy kind. The director picks uniformly among
// the configured prototypes.
type EnemyPrototype struct {
	ID                   string  `yaml:"id" json:"id"`
	Speed                float64 `yaml:"speed" json:"speed"` // units/s
	AttackDistance       float64 `yaml:"attackDistance" json:"attackDistance"`
	AttackTimeForDamage  float64 `yaml:"attackTimeForDamage" json:"attackTimeForDamage"` // s
	AttackDamage         float64 `yaml:"attackDamage" json:"attackDamage"`
	RotateSmoothness     float64 `yaml:"rotateSmoothness" json:"rotateSmoothness"` // [0, 0.99]
	Health               float64 `yaml:"health" json:"health"`
	Radius               float64 `yaml:"radius" json:"radius"`
	DeathVariants        int     `yaml:"deathVariants" json:"deathVariants"`
	DeathDelay           float64 `yaml:"deathDelay" json:"deathDelay"`                     // s
	DecommissionDuration float64 `yaml:"decommissionDuration" json:"decommissionDuration"` // s
	DecommissionDepth    float64 `yaml:"decommissionDepth" json:"decommissionDepth"`       // units sunk
	SamplePeriod         float64 `yaml:"samplePeriod" json:"samplePeriod"`                 // s
	SpeedSmoothness      float64 `yaml:"speedSmoothness" json:"speedSmoothness"`           // [0, 0.99]
}

// DefaultEnemy returns the baseline enemy prototype.
func DefaultEnemy(id string) EnemyPrototype {
	return EnemyPrototype{
		ID:                   id,
		Speed:                1.5,
		AttackDistance:       1.2,
		AttackTimeForDamage:  1,
		AttackDamage:         10,
		RotateSmoothness:     0.5,
		Health:               1,
		Radius:               0.5,
		DeathVariants:        4,
		DeathDelay:           4,
		DecommissionDuration: 5,
		DecommissionDepth:    2,
		SamplePeriod:         0.2,
		SpeedSmoothness:      0.8,
	}
}

// DefaultEnemies returns the default prototype set.
func DefaultEnemies() []EnemyPrototype {
	grunt := DefaultEnemy("grunt")

	runner := DefaultEnemy("runner")
	runner.Speed = 2.4
	runner.AttackDamage = 5
	runner.RotateSmoothness = 0.3

	brute := DefaultEnemy("brute")
	brute.Speed = 1
	brute.Health = 3
	brute.Radius = 0.8
	brute.AttackDistance = 1.6
	brute.AttackDamage = 20

	return []EnemyPrototype{grunt, runner, brute}
}

// =============================================================================
// PROJECTILES
// =============================================================================

// ProjectileConfig tunes the pooled bullet.
type ProjectileConfig struct {
	ID       string  `yaml:"id" json:"id"`
	Speed    float64 `yaml:"speed" json:"speed"` // units per target frame
	Radius   float64 `yaml:"radius" json:"radius"`
	Lifetime float64 `yaml:"lifetime" json:"lifetime"` // s, safety net for never-seen bullets
	Headroom int     `yaml:"headroom" json:"headroom"` // max simultaneously in flight
}

// DefaultProjectile returns the default bullet tuning.
func DefaultProjectile() ProjectileConfig {
	return ProjectileConfig{
		ID:       "bullet",
		Speed:    0.5,
		Radius:   0.15,
		Lifetime: 5,
		Headroom: 128,
	}
}

// =============================================================================
// DIRECTOR
// =============================================================================

// DirectorConfig tunes enemy spawning.
type DirectorConfig struct {
	InitialInterval float64 `yaml:"initialInterval" json:"initialInterval"` // s
	MinInterval     float64 `yaml:"minInterval" json:"minInterval"`         // s
	DecreaseRate    float64 `yaml:"decreaseRate" json:"decreaseRate"`       // s of interval per s
	Cap             int     `yaml:"cap" json:"cap"`
	SpawnRadius     float64 `yaml:"spawnRadius" json:"spawnRadius"`
	SpawningEnabled bool    `yaml:"spawningEnabled" json:"spawningEnabled"`
}

// DefaultDirector returns the default spawn tuning.
func DefaultDirector() DirectorConfig {
	return DirectorConfig{
		InitialInterval: 2,
		MinInterval:     0.1,
		DecreaseRate:    0.01,
		Cap:             50,
		SpawnRadius:     30, // three orthographic half-heights, just off screen
		SpawningEnabled: true,
	}
}

// =============================================================================
// CAMERA & ARENA
// =============================================================================

// CameraConfig describes the orthographic follow camera.
type CameraConfig struct {
	Offset           kinematics.Vec3 `yaml:"offset" json:"offset"`
	Pitch            float64         `yaml:"pitch" json:"pitch"` // deg below horizon
	Yaw              float64         `yaml:"yaw" json:"yaw"`
	OrthographicSize float64         `yaml:"orthographicSize" json:"orthographicSize"` // half view height
	ScreenWidth      float64         `yaml:"screenWidth" json:"screenWidth"`
	ScreenHeight     float64         `yaml:"screenHeight" json:"screenHeight"`
	FarClip          float64         `yaml:"farClip" json:"farClip"`
	FollowSmoothness float64         `yaml:"followSmoothness" json:"followSmoothness"` // [0, 0.99]
	VisibilityMargin float64         `yaml:"visibilityMargin" json:"visibilityMargin"`
}

// DefaultCamera returns the default camera rig.
func DefaultCamera() CameraConfig {
	return CameraConfig{
		Offset:           kinematics.V3(0, 20, -20),
		Pitch:            45,
		OrthographicSize: 10,
		ScreenWidth:      1280,
		ScreenHeight:     720,
		FarClip:          1000,
		FollowSmoothness: 0.9,
		VisibilityMargin: 0.5,
	}
}

// ArenaConfig bounds the playable area.
type ArenaConfig struct {
	HalfExtent   float64 `yaml:"halfExtent" json:"halfExtent"`
	GridCellSize float64 `yaml:"gridCellSize" json:"gridCellSize"`
}

// DefaultArena returns the default arena bounds.
func DefaultArena() ArenaConfig {
	return ArenaConfig{
		HalfExtent:   80,
		GridCellSize: 4,
	}
}

// =============================================================================
// TIMERS, HUD & SESSION
// =============================================================================

// TimerDomains picks "scaled" or "real" time for each delayed behaviour.
// Scaled timers freeze while the session is paused; real timers keep running.
type TimerDomains struct {
	Spawn        string `yaml:"spawn" json:"spawn"`
	DeathDelay   string `yaml:"deathDelay" json:"deathDelay"`
	Decommission string `yaml:"decommission" json:"decommission"`
	Sampling     string `yaml:"sampling" json:"sampling"`
	HealthTween  string `yaml:"healthTween" json:"healthTween"`
}

// DefaultTimerDomains returns the default domain per timer.
func DefaultTimerDomains() TimerDomains {
	return TimerDomains{
		Spawn:        "real",
		DeathDelay:   "real",
		Decommission: "scaled",
		Sampling:     "real",
		HealthTween:  "real",
	}
}

// HUDConfig tunes the health bar.
type HUDConfig struct {
	TweenDuration float64 `yaml:"tweenDuration" json:"tweenDuration"` // s
}

// DefaultHUD returns the default HUD tuning.
func DefaultHUD() HUDConfig {
	return HUDConfig{TweenDuration: 0.2}
}

// SessionConfig controls game-over and determinism.
type SessionConfig struct {
	RestartDelay float64 `yaml:"restartDelay" json:"restartDelay"` // s of real time
	Seed         string  `yaml:"seed" json:"seed"`                 // empty = time based
}

// DefaultSession returns the default session settings.
func DefaultSession() SessionConfig {
	return SessionConfig{RestartDelay: 5}
}

// SessionFromEnv applies ARENA_SEED and ARENA_RESTART_DELAY.
func SessionFromEnv(cfg SessionConfig) SessionConfig {
	if s := os.Getenv("ARENA_SEED"); s != "" {
		cfg.Seed = s
	}
	if d := getEnvFloat("ARENA_RESTART_DELAY", -1); d >= 0 {
		cfg.RestartDelay = d
	}
	return cfg
}

// =============================================================================
// TUNING (everything the simulation reads)
// =============================================================================

// Tuning groups every gameplay setting. It is the document loaded from the
// YAML tuning file.
type Tuning struct {
	Sim        SimConfig        `yaml:"sim" json:"sim"`
	Player     PlayerConfig     `yaml:"player" json:"player"`
	Enemies    []EnemyPrototype `yaml:"enemies" json:"enemies"`
	Projectile ProjectileConfig `yaml:"projectile" json:"projectile"`
	Director   DirectorConfig   `yaml:"director" json:"director"`
	Camera     CameraConfig     `yaml:"camera" json:"camera"`
	Arena      ArenaConfig      `yaml:"arena" json:"arena"`
	Timers     TimerDomains     `yaml:"timers" json:"timers"`
	HUD        HUDConfig        `yaml:"hud" json:"hud"`
	Session    SessionConfig    `yaml:"session" json:"session"`
}

// DefaultTuning returns the compiled-in gameplay defaults.
func DefaultTuning() Tuning {
	return Tuning{
		Sim:        DefaultSim(),
		Player:     DefaultPlayer(),
		Enemies:    DefaultEnemies(),
		Projectile: DefaultProjectile(),
		Director:   DefaultDirector(),
		Camera:     DefaultCamera(),
		Arena:      DefaultArena(),
		Timers:     DefaultTimerDomains(),
		HUD:        DefaultHUD(),
		Session:    DefaultSession(),
	}
}

// TuningFromEnv applies the gameplay environment overrides.
func TuningFromEnv(t Tuning) Tuning {
	if tps := getEnvInt("TICK_RATE", 0); tps > 0 {
		t.Sim.TickRate = tps
	}
	if c := getEnvInt("ENEMY_CAP", -1); c >= 0 {
		t.Director.Cap = c
	}
	if os.Getenv("SPAWNING_ENABLED") == "false" {
		t.Director.SpawningEnabled = false
	}
	t.Session = SessionFromEnv(t.Session)
	return t
}

// =============================================================================
// SERVER, LOGGING & OBSERVABILITY
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port        int
	CORSOrigins []string
	EventLog    string // jsonl path, empty disables
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:     3000,
		EventLog: "events.jsonl",
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = splitList(origins)
	}
	if path, ok := os.LookupEnv("EVENT_LOG_PATH"); ok {
		cfg.EventLog = path
	}

	return cfg
}

// LogConfig selects the zap logger flavour.
type LogConfig struct {
	Level       string // debug, info, warn, error
	Encoding    string // json or console
	Development bool
}

// DefaultLog returns the default logging configuration.
func DefaultLog() LogConfig {
	return LogConfig{
		Level:    "info",
		Encoding: "console",
	}
}

// LogFromEnv returns logging configuration with environment variable overrides.
func LogFromEnv() LogConfig {
	cfg := DefaultLog()
	if l := os.Getenv("LOG_LEVEL"); l != "" {
		cfg.Level = l
	}
	if e := os.Getenv("LOG_ENCODING"); e != "" {
		cfg.Encoding = e
	}
	cfg.Development = os.Getenv("LOG_DEVELOPMENT") == "true"
	return cfg
}

// ObservabilityConfig controls the debug server (pprof + metrics).
type ObservabilityConfig struct {
	Enabled    bool
	ListenAddr string // localhost only unless ALLOW_DEBUG_EXTERNAL=true
}

// DefaultObservability returns safe defaults.
func DefaultObservability() ObservabilityConfig {
	return ObservabilityConfig{
		Enabled:    true,
		ListenAddr: "127.0.0.1:6060",
	}
}

// ObservabilityFromEnv returns debug server configuration with overrides.
func ObservabilityFromEnv() ObservabilityConfig {
	cfg := DefaultObservability()
	if os.Getenv("DISABLE_DEBUG_SERVER") == "true" {
		cfg.Enabled = false
	}
	if addr := os.Getenv("DEBUG_ADDR"); addr != "" {
		cfg.ListenAddr = addr
	}
	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Tuning        Tuning
	Server        ServerConfig
	Log           LogConfig
	Observability ObservabilityConfig
}

// Load returns the complete configuration: defaults, then the tuning file
// named by ARENA_TUNING_FILE (if any), then environment overrides. The
// result is validated.
func Load() (AppConfig, error) {
	tuning := DefaultTuning()
	if path := os.Getenv("ARENA_TUNING_FILE"); path != "" {
		t, err := LoadTuningFile(path, tuning)
		if err != nil {
			return AppConfig{}, err
		}
		tuning = t
	}

	cfg := AppConfig{
		Tuning:        TuningFromEnv(tuning),
		Server:        ServerFromEnv(),
		Log:           LogFromEnv(),
		Observability: ObservabilityFromEnv(),
	}
	if err := cfg.Tuning.Validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
