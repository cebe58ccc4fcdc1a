package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"arena-shooter/internal/game/scheduler"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid value")

// LoadTuning decodes a YAML tuning document over base. Fields the document
// leaves out keep their base values; each listed enemy prototype starts from
// DefaultEnemy. Unknown keys are rejected.
func LoadTuning(r io.Reader, base Tuning) (Tuning, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	t := base
	if err := dec.Decode(&t); err != nil {
		if errors.Is(err, io.EOF) {
			return base, nil
		}
		return Tuning{}, fmt.Errorf("decode tuning: %w", err)
	}
	return t, nil
}

// LoadTuningFile is LoadTuning on a file path.
func LoadTuningFile(path string, base Tuning) (Tuning, error) {
	f, err := os.Open(path)
	if err != nil {
		return Tuning{}, fmt.Errorf("open tuning file: %w", err)
	}
	defer f.Close()
	return LoadTuning(f, base)
}

// UnmarshalYAML fills unspecified prototype fields from DefaultEnemy.
func (p *EnemyPrototype) UnmarshalYAML(node *yaml.Node) error {
	type plain EnemyPrototype
	v := plain(DefaultEnemy(""))
	if err := node.Decode(&v); err != nil {
		return err
	}
	*p = EnemyPrototype(v)
	return nil
}

// Validate checks the tuning for values the simulation cannot run with.
func (t Tuning) Validate() error {
	switch {
	case t.Sim.TickRate <= 0:
		return invalid("sim.tickRate", t.Sim.TickRate)
	case t.Sim.MaxDelta <= 0:
		return invalid("sim.maxDelta", t.Sim.MaxDelta)
	case t.Player.HealthTotal <= 0:
		return invalid("player.healthTotal", t.Player.HealthTotal)
	case t.Player.ShotInterval <= 0:
		return invalid("player.shotInterval", t.Player.ShotInterval)
	case t.Player.RotationSmoothTime < 0:
		return invalid("player.rotationSmoothTime", t.Player.RotationSmoothTime)
	case len(t.Enemies) == 0:
		return invalid("enemies", "empty")
	case t.Projectile.ID == "":
		return invalid("projectile.id", t.Projectile.ID)
	case t.Projectile.Headroom <= 0:
		return invalid("projectile.headroom", t.Projectile.Headroom)
	case t.Director.Cap < 0:
		return invalid("director.cap", t.Director.Cap)
	case t.Director.MinInterval <= 0:
		return invalid("director.minInterval", t.Director.MinInterval)
	case t.Director.InitialInterval < t.Director.MinInterval:
		return invalid("director.initialInterval", t.Director.InitialInterval)
	case t.Director.DecreaseRate < 0:
		return invalid("director.decreaseRate", t.Director.DecreaseRate)
	case t.Camera.OrthographicSize <= 0:
		return invalid("camera.orthographicSize", t.Camera.OrthographicSize)
	case t.Camera.ScreenWidth <= 0 || t.Camera.ScreenHeight <= 0:
		return invalid("camera.screen", fmt.Sprintf("%gx%g", t.Camera.ScreenWidth, t.Camera.ScreenHeight))
	case t.Arena.HalfExtent <= 0:
		return invalid("arena.halfExtent", t.Arena.HalfExtent)
	case t.Arena.GridCellSize <= 0:
		return invalid("arena.gridCellSize", t.Arena.GridCellSize)
	case t.Session.RestartDelay < 0:
		return invalid("session.restartDelay", t.Session.RestartDelay)
	}

	seen := make(map[string]bool, len(t.Enemies))
	for i, e := range t.Enemies {
		field := fmt.Sprintf("enemies[%d]", i)
		switch {
		case e.ID == "":
			return invalid(field+".id", e.ID)
		case seen[e.ID]:
			return invalid(field+".id", e.ID+" (duplicate)")
		case e.Speed <= 0:
			return invalid(field+".speed", e.Speed)
		case e.AttackTimeForDamage <= 0:
			return invalid(field+".attackTimeForDamage", e.AttackTimeForDamage)
		case e.Health <= 0:
			return invalid(field+".health", e.Health)
		case e.DeathVariants < 1:
			return invalid(field+".deathVariants", e.DeathVariants)
		case e.SamplePeriod <= 0:
			return invalid(field+".samplePeriod", e.SamplePeriod)
		case e.RotateSmoothness < 0 || e.RotateSmoothness >= 1:
			return invalid(field+".rotateSmoothness", e.RotateSmoothness)
		}
		seen[e.ID] = true
	}

	for name, d := range map[string]string{
		"timers.spawn":        t.Timers.Spawn,
		"timers.deathDelay":   t.Timers.DeathDelay,
		"timers.decommission": t.Timers.Decommission,
		"timers.sampling":     t.Timers.Sampling,
		"timers.healthTween":  t.Timers.HealthTween,
	} {
		if _, err := scheduler.ParseDomain(d); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalid, name, err)
		}
	}
	return nil
}

func invalid(field string, value any) error {
	return fmt.Errorf("%w: %s = %v", ErrInvalid, field, value)
}
