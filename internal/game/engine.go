package game

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"arena-shooter/internal/config"
	"arena-shooter/internal/game/kinematics"
	"arena-shooter/internal/game/pool"
	"arena-shooter/internal/game/scheduler"
	"arena-shooter/internal/game/spatial"
	"arena-shooter/internal/hud"
	"arena-shooter/internal/input"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Options configures a new Engine.
type Options struct {
	Tuning config.Tuning
	Seed   int64
	Logger *zap.Logger
}

// TickStats is handed to the tick observer after every step.
type TickStats struct {
	Duration    time.Duration
	Live        int
	Projectiles int
	Interval    float64
	Health      float64
	Kills       uint64
	Shots       uint64
	Paused      bool
}

// Engine owns one arena session and the loop that drives it.
//
// All simulation state is touched only with mu held; HTTP and websocket
// goroutines go through the exported methods or read published snapshots.
type Engine struct {
	mu     sync.Mutex
	tuning config.Tuning
	log    *zap.Logger
	w      *world
	seed   int64

	input       *input.Buffer
	camera      *OrthoCamera
	hud         *hud.HealthBar
	player      *Player
	director    *Director
	enemies     *pool.Pool[*Enemy]
	projectiles *pool.Pool[*Projectile]
	grid        *spatial.Grid
	effects     Effects
	runs        *RunBoard

	// Session state
	sessionID    string
	timeScale    float64
	paused       bool
	gameOver     bool
	restartTimer *scheduler.Timer
	tickCount    uint64
	kills        uint64
	restarts     uint64
	survived     float64
	runRecorded  bool

	// Reused per tick to avoid allocation
	enemyScratch []*Enemy
	projScratch  []*Projectile

	// Snapshot system for lock-free reader separation
	snapshotPool *SnapshotPool

	// Gameplay audit trail
	eventLog *EventLog

	onTick func(TickStats)

	running  bool
	ticker   *time.Ticker
	stopChan chan struct{}
	loopDone chan struct{}
}

// NewEngine builds a session from validated tuning.
func NewEngine(opts Options) (*Engine, error) {
	t := opts.Tuning
	if err := t.Validate(); err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	w, err := newWorld(t, rand.New(rand.NewSource(opts.Seed)), log)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		tuning:       t,
		log:          log.Named("engine"),
		w:            w,
		seed:         opts.Seed,
		input:        input.NewBuffer(kinematics.V2(t.Camera.ScreenWidth/2, t.Camera.ScreenHeight/2)),
		camera:       NewOrthoCamera(t.Camera, kinematics.Vec3{}),
		hud:          hud.New(t.HUD.TweenDuration, w.domains.healthTween),
		enemies:      pool.New[*Enemy](t.Director.Cap),
		projectiles:  pool.New[*Projectile](t.Projectile.Headroom),
		grid:         spatial.NewGrid(t.Arena.HalfExtent, t.Arena.GridCellSize, t.Director.Cap),
		sessionID:    uuid.NewString(),
		timeScale:    1,
		enemyScratch: make([]*Enemy, 0, t.Director.Cap),
		projScratch:  make([]*Projectile, 0, t.Projectile.Headroom),
		runs:         NewRunBoard(DefaultRunBoardSize),
		snapshotPool: NewSnapshotPool(LimitsFor(t.Director.Cap, t.Projectile.Headroom)),
		eventLog:     NewEventLog(log.Named("events")),
	}

	if err := e.registerPrototypes(); err != nil {
		return nil, err
	}

	e.player = newPlayer(t.Player, t.Projectile.ID, w, playerParts{
		input:       e.input,
		viewer:      e.camera,
		body:        NewKinematicBody(t.Arena.HalfExtent),
		anim:        NewParamRecorder(),
		projectiles: e.projectiles,
	})
	e.director = newDirector(t.Director, w, e.enemies, e.player, e.hud)
	e.wireSession()
	e.director.Start()

	e.log.Info("engine created",
		zap.String("session", e.sessionID),
		zap.Int64("seed", opts.Seed),
		zap.Int("enemyCap", t.Director.Cap),
		zap.Int("projectileHeadroom", t.Projectile.Headroom),
		zap.Strings("prototypes", e.enemies.Prototypes()),
	)
	return e, nil
}

func (e *Engine) registerPrototypes() error {
	for _, proto := range e.tuning.Enemies {
		proto := proto
		n := 0
		err := e.enemies.Register(proto.ID, func() *Enemy {
			n++
			return newEnemy(fmt.Sprintf("%s-%d", proto.ID, n), proto, e.w, NewKinematicBody(e.tuning.Arena.HalfExtent), NewParamRecorder())
		})
		if err != nil {
			return err
		}
	}

	pc := e.tuning.Projectile
	n := 0
	return e.projectiles.Register(pc.ID, func() *Projectile {
		n++
		return NewProjectile(fmt.Sprintf("%s-%d", pc.ID, n), pc)
	})
}

// Start begins the game loop
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.stopChan = make(chan struct{})
	e.loopDone = make(chan struct{})
	e.ticker = time.NewTicker(time.Second / time.Duration(e.tuning.Sim.TickRate))
	ticker, stop, done := e.ticker, e.stopChan, e.loopDone
	e.mu.Unlock()

	go e.loop(ticker, stop, done)

	e.log.Info("game loop started", zap.Int("tps", e.tuning.Sim.TickRate))
}

func (e *Engine) loop(ticker *time.Ticker, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	last := time.Now()
	for {
		select {
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			e.Step(dt)
		case <-stop:
			return
		}
	}
}

// Stop stops the game loop and waits for the current step to finish
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	e.ticker.Stop()
	close(e.stopChan)
	done := e.loopDone
	e.mu.Unlock()

	<-done
	e.log.Info("game loop stopped", zap.Uint64("ticks", e.TickCount()))
}

// Step advances the simulation by realDt seconds of wall-clock time.
// Large deltas are clamped so a stall does not become one huge step.
func (e *Engine) Step(realDt float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.step(realDt)
}

func (e *Engine) step(realDt float64) {
	start := time.Now()
	if realDt < 0 {
		realDt = 0
	}
	realDt = math.Min(realDt, e.tuning.Sim.MaxDelta)
	e.tickCount++

	// timers may end or restart the session, so the context is rebuilt
	// after they run
	ctx := NewTickContext(realDt, e.effectiveTimeScale(), e.tickCount)
	e.director.setPaused(ctx.Paused())
	e.w.sched.Advance(ctx.Delta, ctx.RealDelta)
	ctx = NewTickContext(realDt, e.effectiveTimeScale(), e.tickCount)

	e.survived += ctx.Delta

	e.player.Tick(ctx)
	e.director.Tick(ctx)

	e.enemyScratch = e.enemies.AppendActive(e.enemyScratch[:0])
	for _, en := range e.enemyScratch {
		en.Tick(ctx)
	}
	e.projScratch = e.projectiles.AppendActive(e.projScratch[:0])
	for _, p := range e.projScratch {
		p.Tick(ctx)
	}

	e.resolveCollisions()
	e.updateVisibility()

	e.camera.Follow(e.player.Position(), ctx.Delta)
	e.hud.Update(ctx.Delta, ctx.RealDelta)
	e.effects.Update(ctx.Delta)

	e.produceSnapshot(ctx)

	if e.onTick != nil {
		e.onTick(TickStats{
			Duration:    time.Since(start),
			Live:        e.director.Live(),
			Projectiles: e.projectiles.Len(),
			Interval:    e.director.Interval(),
			Health:      e.player.NormalizedHealth(),
			Kills:       e.kills,
			Shots:       e.player.Shots(),
			Paused:      ctx.Paused(),
		})
	}
}

func (e *Engine) effectiveTimeScale() float64 {
	if e.paused || e.gameOver {
		return 0
	}
	return e.timeScale
}

// produceSnapshot publishes an immutable copy of the tick's result
func (e *Engine) produceSnapshot(ctx TickContext) {
	snap := e.snapshotPool.AcquireWrite()
	limits := e.snapshotPool.Limits()

	snap.TickNumber = e.tickCount
	snap.SessionID = e.sessionID
	snap.TimeScale = ctx.TimeScale
	snap.Paused = e.paused
	snap.Kills = e.kills

	snap.Player = e.player.ToSnapshot()

	e.enemyScratch = e.enemies.AppendActive(e.enemyScratch[:0])
	for _, en := range e.enemyScratch {
		if len(snap.Enemies) >= limits.MaxEnemies {
			break
		}
		snap.Enemies = append(snap.Enemies, en.ToSnapshot())
	}

	e.projScratch = e.projectiles.AppendActive(e.projScratch[:0])
	for _, p := range e.projScratch {
		if len(snap.Projectiles) >= limits.MaxProjectiles {
			break
		}
		snap.Projectiles = append(snap.Projectiles, p.ToSnapshot())
	}

	snap.HUD = HUDSnapshot{
		Health:   e.hud.Scale(),
		Target:   e.hud.Target(),
		Tweening: e.hud.Tweening(),
		GameOver: e.hud.GameOver(),
	}
	snap.Director = e.director.ToSnapshot()
	snap.Camera = CameraSnapshot{Position: e.camera.Position(), Yaw: e.camera.Yaw()}
	snap.Effects.Flashes = e.effects.AppendSnapshot(snap.Effects.Flashes[:0])
	snap.Effects.Shake = e.effects.CurrentShake()

	e.snapshotPool.PublishWrite()
}

// =============================================================================
// CONTROL SURFACE (HTTP / websocket)
// =============================================================================

// Snapshot returns a copy of the latest published state
func (e *Engine) Snapshot() (GameSnapshot, bool) {
	return e.snapshotPool.Latest()
}

// SubmitInput stores the client's latest input for the next tick
func (e *Engine) SubmitInput(s input.Sample) {
	e.input.Set(s)
}

// SetSpawning toggles the director
func (e *Engine) SetSpawning(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.director.SetSpawning(enabled)
	e.log.Info("spawning toggled", zap.Bool("enabled", enabled))
}

// SpawnEnemy forces one spawn attempt now
func (e *Engine) SpawnEnemy() (EnemySnapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	en, err := e.director.TrySpawn()
	if err != nil {
		return EnemySnapshot{}, err
	}
	return en.ToSnapshot(), nil
}

// SetPaused freezes or resumes scaled time
func (e *Engine) SetPaused(paused bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.paused == paused {
		return
	}
	e.paused = paused
	e.director.setPaused(e.effectiveTimeScale() == 0)
	e.record(EventTypePause, "session", PausePayload{Paused: paused})
	e.log.Info("pause toggled", zap.Bool("paused", paused))
}

// Restart ends the session now and starts a fresh one
func (e *Engine) Restart() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.restart("operator")
	return e.sessionID
}

// Tuning returns the configuration the engine was built with
func (e *Engine) Tuning() config.Tuning {
	return e.tuning
}

// TickCount returns the number of steps run
func (e *Engine) TickCount() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tickCount
}

// SetTickObserver installs a callback run at the end of every step
func (e *Engine) SetTickObserver(fn func(TickStats)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onTick = fn
}

// EngineStats is the operator view of the session
type EngineStats struct {
	SessionID      string            `json:"sessionId"`
	Seed           int64             `json:"seed"`
	Tick           uint64            `json:"tick"`
	Restarts       uint64            `json:"restarts"`
	Paused         bool              `json:"paused"`
	GameOver       bool              `json:"gameOver"`
	Live           int               `json:"live"`
	Projectiles    int               `json:"projectiles"`
	Interval       float64           `json:"interval"`
	Kills          uint64            `json:"kills"`
	Shots          uint64            `json:"shots"`
	Hits           uint64            `json:"hits"`
	Health         float64           `json:"health"`
	PendingTimers  int               `json:"pendingTimers"`
	EnemyPool      []pool.Stats      `json:"enemyPool"`
	ProjectilePool []pool.Stats      `json:"projectilePool"`
	Grid           spatial.GridStats `json:"grid"`
	EventLog       EventLogStats     `json:"eventLog"`
	SnapshotLimits ResourceLimits    `json:"snapshotLimits"`
}

// Stats gathers counters for the API and metrics
func (e *Engine) Stats() EngineStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return EngineStats{
		SessionID:      e.sessionID,
		Seed:           e.seed,
		Tick:           e.tickCount,
		Restarts:       e.restarts,
		Paused:         e.paused,
		GameOver:       e.gameOver,
		Live:           e.director.Live(),
		Projectiles:    e.projectiles.Len(),
		Interval:       e.director.Interval(),
		Kills:          e.kills,
		Shots:          e.player.Shots(),
		Hits:           e.player.Hits(),
		Health:         e.player.Health(),
		PendingTimers:  e.w.sched.Len(),
		EnemyPool:      e.enemies.Stats(),
		ProjectilePool: e.projectiles.Stats(),
		Grid:           e.grid.Stats(),
		EventLog:       e.eventLog.Stats(),
		SnapshotLimits: e.snapshotPool.Limits(),
	}
}

// Runs returns up to n of the best finished runs
func (e *Engine) Runs(n int) []RunResult {
	return e.runs.Top(n)
}

// StartEventLog initializes the event logging system
func (e *Engine) StartEventLog(filePath string) error {
	return e.eventLog.Start(filePath)
}

// StopEventLog gracefully stops the event logging system
func (e *Engine) StopEventLog() {
	e.eventLog.Stop()
}
