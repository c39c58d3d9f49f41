package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Mrassimo/datapilot-sub008/internal/config"
)

// Checker periodically samples run-history health and raises alerts.
// It remembers the previous snapshot so shifts in failure rate or
// quality are logged as changes, not repeated on every quiet tick.
type Checker struct {
	collector *Collector
	alerter   *Alerter

	interval time.Duration
	lookback int

	prev *MetricsSnapshot
}

// NewChecker creates a background health checker. Zero interval or
// lookback fall back to 5 minutes and 24 hours.
func NewChecker(collector *Collector, alerter *Alerter, cfg config.MonitoringConfig) *Checker {
	interval := time.Duration(cfg.CheckIntervalSecs) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	lookback := cfg.LookbackWindowHours
	if lookback <= 0 {
		lookback = 24
	}
	return &Checker{
		collector: collector,
		alerter:   alerter,
		interval:  interval,
		lookback:  lookback,
	}
}

// Run blocks until ctx is cancelled. The first check happens
// immediately so a freshly started server reports run health without
// waiting out a full interval.
func (c *Checker) Run(ctx context.Context) {
	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("starting run-health checker",
		zap.Duration("interval", c.interval),
		zap.Int("lookback_hours", c.lookback),
	)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.tick(ctx, log)
	for {
		select {
		case <-ctx.Done():
			log.Info("run-health checker stopped")
			return
		case <-ticker.C:
			c.tick(ctx, log)
		}
	}
}

func (c *Checker) tick(ctx context.Context, log *zap.Logger) {
	snap, err := c.collector.Collect(ctx, c.lookback)
	if err != nil {
		log.Error("monitoring: failed to collect run metrics", zap.Error(err))
		return
	}

	if changed(c.prev, snap) {
		log.Info("monitoring: run health shifted",
			zap.Float64("fail_rate", snap.FailRate),
			zap.Float64("avg_composite", snap.AvgComposite),
			zap.Int("low_quality", snap.LowQuality),
			zap.Int("runs", snap.RunsTotal),
		)
	}
	c.prev = snap

	alerts := c.alerter.Evaluate(snap)
	if len(alerts) == 0 {
		return
	}
	sent := c.alerter.SendAlerts(ctx, alerts)
	log.Info("monitoring: alerts raised",
		zap.Int("triggered", len(alerts)),
		zap.Int("sent", sent),
	)
}

// changed reports whether the health signals an operator watches moved
// between two snapshots. The first snapshot always counts as a change.
func changed(prev, cur *MetricsSnapshot) bool {
	if prev == nil {
		return true
	}
	return prev.FailRate != cur.FailRate ||
		prev.LowQuality != cur.LowQuality ||
		prev.RunsFailed != cur.RunsFailed
}
