package game

import (
	"fmt"
	"math/rand"

	"arena-shooter/internal/config"
	"arena-shooter/internal/game/scheduler"

	"go.uber.org/zap"
)

// timerDomains is config.TimerDomains resolved to scheduler domains.
type timerDomains struct {
	spawn        scheduler.Domain
	deathDelay   scheduler.Domain
	decommission scheduler.Domain
	sampling     scheduler.Domain
	healthTween  scheduler.Domain
}

func parseTimerDomains(t config.TimerDomains) (timerDomains, error) {
	var d timerDomains
	fields := []struct {
		name string
		raw  string
		dst  *scheduler.Domain
	}{
		{"spawn", t.Spawn, &d.spawn},
		{"deathDelay", t.DeathDelay, &d.deathDelay},
		{"decommission", t.Decommission, &d.decommission},
		{"sampling", t.Sampling, &d.sampling},
		{"healthTween", t.HealthTween, &d.healthTween},
	}
	for _, f := range fields {
		dom, err := scheduler.ParseDomain(f.raw)
		if err != nil {
			return d, fmt.Errorf("timers.%s: %w", f.name, err)
		}
		*f.dst = dom
	}
	return d, nil
}

// world is what every entity of a session shares: the clocks, the random
// source and the arena.
type world struct {
	sched   *scheduler.Scheduler
	rng     *rand.Rand
	domains timerDomains
	arena   config.ArenaConfig
	log     *zap.Logger
}

func newWorld(t config.Tuning, rng *rand.Rand, log *zap.Logger) (*world, error) {
	domains, err := parseTimerDomains(t.Timers)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &world{
		sched:   scheduler.New(),
		rng:     rng,
		domains: domains,
		arena:   t.Arena,
		log:     log,
	}, nil
}

// randRange returns a uniform value in [lo, hi).
func (w *world) randRange(lo, hi float64) float64 {
	return lo + w.rng.Float64()*(hi-lo)
}
