// Package memguard watches heap usage during a streaming run and
// degrades the analysis before the process is at risk. The guard is
// polled inline by the pipeline between row batches; it is not safe for
// concurrent use and does not need to be.
package memguard

import (
	"runtime"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Level classifies the current heap pressure.
type Level int

const (
	LevelOK Level = iota
	LevelWarn
	LevelCritical
	LevelFatal
)

func (l Level) String() string {
	switch l {
	case LevelOK:
		return "ok"
	case LevelWarn:
		return "warn"
	case LevelCritical:
		return "critical"
	default:
		return "fatal"
	}
}

// ErrMemoryLimit is returned once heap usage passes the hard limit and
// the run must abort.
var ErrMemoryLimit = eris.New("memguard: memory limit exceeded")

// Limits holds the three heap thresholds in bytes. Zero fields take the
// defaults.
type Limits struct {
	WarnBytes     uint64
	CriticalBytes uint64
	MaxBytes      uint64
}

// DefaultLimits sizes the guard for a typical analysis process:
// warn at 256 MB of live heap, degrade at 512 MB, abort at 1 GB.
func DefaultLimits() Limits {
	return Limits{
		WarnBytes:     256 << 20,
		CriticalBytes: 512 << 20,
		MaxBytes:      1 << 30,
	}
}

// checkInterval throttles ReadMemStats, which stops the world.
const checkInterval = 500 * time.Millisecond

// Guard polls heap usage and escalates through warn, critical and
// fatal levels. On warn it hints the collector; on critical it invokes
// the registered shrink hooks (sampler degradation, cache trims); on
// fatal it returns ErrMemoryLimit.
type Guard struct {
	limits Limits

	shrinkHooks []func()

	lastCheck  time.Time
	lastLevel  Level
	warned     bool
	shrinks    int
	peakBytes  uint64
	readStats  func() uint64
	nowFn      func() time.Time
	gcHint     func()
}

// New creates a guard with the given limits; zero thresholds take the
// defaults.
func New(limits Limits) *Guard {
	def := DefaultLimits()
	if limits.WarnBytes == 0 {
		limits.WarnBytes = def.WarnBytes
	}
	if limits.CriticalBytes == 0 {
		limits.CriticalBytes = def.CriticalBytes
	}
	if limits.MaxBytes == 0 {
		limits.MaxBytes = def.MaxBytes
	}
	return &Guard{
		limits:    limits,
		readStats: liveHeap,
		nowFn:     time.Now,
		gcHint:    runtime.GC,
	}
}

// OnCritical registers a hook invoked each time the guard crosses into
// the critical level. Hooks run inline on the polling goroutine.
func (g *Guard) OnCritical(hook func()) {
	g.shrinkHooks = append(g.shrinkHooks, hook)
}

// Check samples heap usage if the throttle interval has elapsed and
// escalates accordingly. It returns ErrMemoryLimit once usage passes
// the hard limit; all other levels are recoverable.
func (g *Guard) Check() error {
	now := g.nowFn()
	if !g.lastCheck.IsZero() && now.Sub(g.lastCheck) < checkInterval {
		return nil
	}
	g.lastCheck = now

	used := g.readStats()
	if used > g.peakBytes {
		g.peakBytes = used
	}

	switch {
	case used >= g.limits.MaxBytes:
		g.lastLevel = LevelFatal
		zap.L().Error("memguard: hard memory limit exceeded",
			zap.Uint64("heap_bytes", used),
			zap.Uint64("max_bytes", g.limits.MaxBytes))
		return eris.Wrapf(ErrMemoryLimit, "heap at %d bytes, limit %d", used, g.limits.MaxBytes)

	case used >= g.limits.CriticalBytes:
		if g.lastLevel < LevelCritical {
			zap.L().Warn("memguard: critical heap pressure, degrading run",
				zap.Uint64("heap_bytes", used),
				zap.Int("shrink_hooks", len(g.shrinkHooks)))
			for _, hook := range g.shrinkHooks {
				hook()
			}
			g.shrinks++
			g.gcHint()
		}
		g.lastLevel = LevelCritical

	case used >= g.limits.WarnBytes:
		if g.lastLevel < LevelWarn {
			g.gcHint()
		}
		if !g.warned {
			g.warned = true
			zap.L().Warn("memguard: heap usage above warning threshold",
				zap.Uint64("heap_bytes", used),
				zap.Uint64("warn_bytes", g.limits.WarnBytes))
		}
		g.lastLevel = LevelWarn

	default:
		g.lastLevel = LevelOK
	}
	return nil
}

// Level returns the level observed at the most recent check.
func (g *Guard) Level() Level { return g.lastLevel }

// Shrinks returns how many times the critical hooks have fired.
func (g *Guard) Shrinks() int { return g.shrinks }

// PeakBytes returns the largest heap sample observed.
func (g *Guard) PeakBytes() uint64 { return g.peakBytes }

func liveHeap() uint64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapAlloc
}
