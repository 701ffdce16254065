package service

import (
	"context"
	"log"
	"time"

	"github.com/mkraiem/facpark/server/internal/facpark/store"
)

// GateStatusPruner periodically deletes gate status rows older than a
// configurable retention period, so a decommissioned camera eventually
// disappears from the operator view. A retention of 0 disables pruning.
type GateStatusPruner struct {
	store     store.GateStatusStore
	retention time.Duration
	interval  time.Duration
	logger    *log.Logger
	cancel    context.CancelFunc
	done      chan struct{}
}

// PrunerConfig holds the parameters for NewGateStatusPruner.
type PrunerConfig struct {
	// RetentionDays is how many days of gate status history to keep.
	// 0 means keep everything (pruner will not start).
	RetentionDays int

	// IntervalHours is how often the pruner runs. Defaults to 6.
	IntervalHours int
}

// NewGateStatusPruner creates a pruner but does not start it.
// Call Start to begin the background loop.
func NewGateStatusPruner(s store.GateStatusStore, cfg PrunerConfig, logger *log.Logger) *GateStatusPruner {
	interval := time.Duration(cfg.IntervalHours) * time.Hour
	if interval <= 0 {
		interval = 6 * time.Hour
	}

	return &GateStatusPruner{
		store:     s,
		retention: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		interval:  interval,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Start begins the background pruning loop. It runs an immediate prune on
// startup, then repeats on the configured interval. The loop exits when
// ctx is cancelled or Stop is called.
func (p *GateStatusPruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		p.logger.Printf("gate status pruner disabled (retention=0)")
		close(p.done)
		return
	}

	ctx, p.cancel = context.WithCancel(ctx)

	go p.loop(ctx)

	p.logger.Printf("gate status pruner started (retention=%dd, interval=%dh)",
		int(p.retention.Hours()/24), int(p.interval.Hours()))
}

// Stop signals the pruner to exit and waits for it to finish.
func (p *GateStatusPruner) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	<-p.done
}

func (p *GateStatusPruner) loop(ctx context.Context) {
	defer close(p.done)

	// Run immediately on startup to clean up any backlog.
	p.prune(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

func (p *GateStatusPruner) prune(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-p.retention)
	deleted, err := p.store.PruneOlderThan(ctx, cutoff)
	if err != nil {
		p.logger.Printf("gate status prune error: %v", err)
		return
	}
	if deleted > 0 {
		p.logger.Printf("gate status prune: deleted %d rows older than %s",
			deleted, cutoff.Format(time.RFC3339))
	}
}
