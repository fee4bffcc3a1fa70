// Package engine drives the habitat store on real timers: a short live
// decay tick, a slower check for offline reconciliation, day/night
// transitions and hatching, and a randomized egg-wobble trigger.
package engine

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/softclaw/hatchling/internal/config"
	"github.com/softclaw/hatchling/internal/habitat"
)

type Engine struct {
	store *habitat.Store
	cfg   config.Care
	log   *slog.Logger
	rng   *rand.Rand
}

func New(store *habitat.Store, cfg config.Care, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		store: store,
		cfg:   cfg,
		log:   log,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run blocks until ctx is cancelled. All timers stop with it.
func (e *Engine) Run(ctx context.Context) {
	// Reconcile time spent away before the first tick.
	if e.store.CatchUp() {
		e.log.Info("applied offline decay")
	}
	e.store.CheckHatch()

	tick := time.NewTicker(e.cfg.TickInterval())
	defer tick.Stop()
	check := time.NewTicker(e.cfg.CheckInterval())
	defer check.Stop()
	wobble := time.NewTimer(e.nextWobble())
	defer wobble.Stop()

	e.log.Info("engine running",
		"tick", e.cfg.TickInterval(),
		"check", e.cfg.CheckInterval())

	for {
		select {
		case <-ctx.Done():
			e.log.Info("engine stopped")
			return
		case <-tick.C:
			e.store.LiveTick()
			e.store.CheckHatch()
		case <-check.C:
			if e.store.CatchUp() {
				e.log.Debug("reconciled decay gap")
			}
			e.store.ScheduleCheck()
			e.store.CheckHatch()
		case <-wobble.C:
			// TriggerWobble is a guarded no-op once hatched, so the chain
			// dies on its own after the phase change.
			if e.store.TriggerWobble() {
				e.log.Debug("egg wobbling")
			}
			wobble.Reset(e.nextWobble())
		}
	}
}

// nextWobble picks a random delay inside the configured window.
func (e *Engine) nextWobble() time.Duration {
	min := time.Duration(e.cfg.WobbleMinSec) * time.Second
	max := time.Duration(e.cfg.WobbleMaxSec) * time.Second
	if max <= min {
		return min
	}
	return min + time.Duration(e.rng.Int63n(int64(max-min)))
}
