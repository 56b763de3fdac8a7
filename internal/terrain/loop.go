package terrain

import (
	"context"
	"time"

	"sdfterrain/internal/profiling"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// Loop drives Process from a ticker and is the terrain's owner goroutine
// while it runs.
type Loop struct {
	terrain  *Terrain
	clock    clock.Clock
	interval time.Duration
	// LogEvery emits a stats line every that many ticks; zero disables it.
	LogEvery int
}

// NewLoop ticks t every interval on clk. A nil clock means wall time.
func NewLoop(t *Terrain, interval time.Duration, clk clock.Clock) *Loop {
	if clk == nil {
		clk = clock.New()
	}
	if interval <= 0 {
		interval = time.Second / 60
	}
	return &Loop{terrain: t, clock: clk, interval: interval}
}

// Run processes ticks until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	ticker := l.clock.Ticker(l.interval)
	defer ticker.Stop()

	last := l.clock.Now()
	ticks := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			l.terrain.Process(now.Sub(last))
			last = now
			ticks++
			if l.LogEvery > 0 && ticks%l.LogEvery == 0 && !l.terrain.IsBuilding() {
				l.logStats()
			}
		}
	}
}

// RunUntilIdle processes ticks until the terrain has no build, mesh job or
// edit outstanding, or ctx is done.
func (l *Loop) RunUntilIdle(ctx context.Context) error {
	ticker := l.clock.Ticker(l.interval)
	defer ticker.Stop()

	last := l.clock.Now()
	for ticks := 1; ; ticks++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			l.terrain.Process(now.Sub(last))
			last = now
			if l.terrain.Idle() {
				return nil
			}
			if l.LogEvery > 0 && ticks%l.LogEvery == 0 && !l.terrain.IsBuilding() {
				l.logStats()
			}
		}
	}
}

func (l *Loop) logStats() {
	s := l.terrain.Stats()
	fields := append([]zap.Field{
		zap.Int("nodes", s.Nodes),
		zap.Int("meshes", s.Meshes),
		zap.Int("triangles", s.Triangles),
		zap.Int("queued", s.Queued),
		zap.Int("in_flight", s.InFlight),
	}, profiling.Fields()...)
	l.terrain.logger.Info("terrain tick", fields...)
	profiling.Reset()
}
