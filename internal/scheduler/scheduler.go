package scheduler

import (
	"context"
	"time"

	"github.com/FireFistisDead/SmartPay-sub004/internal/escrow"
	"github.com/FireFistisDead/SmartPay-sub004/internal/interfaces"
)

// AutoApprovalScheduler periodically scans the replica for submitted
// milestones whose review window elapsed and approves them with bounded
// concurrency. It implements lib.Runnable and is wrapped in a lib.Task by
// the caller.
type AutoApprovalScheduler struct {
	engine   *escrow.Engine
	interval time.Duration
	workers  int
	nowFn    func() time.Time
	log      interfaces.ILogger
}

func NewAutoApprovalScheduler(engine *escrow.Engine, interval time.Duration, workers int, log interfaces.ILogger) *AutoApprovalScheduler {
	return &AutoApprovalScheduler{
		engine:   engine,
		interval: interval,
		workers:  workers,
		nowFn:    time.Now,
		log:      log,
	}
}

// SetNowFunc fixes the clock, used in tests
func (s *AutoApprovalScheduler) SetNowFunc(nowFn func() time.Time) {
	s.nowFn = nowFn
}

func (s *AutoApprovalScheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one scan-and-approve pass. Individual failures are logged and
// the rest of the batch proceeds, a milestone that cannot be approved now is
// picked up again on the next tick.
func (s *AutoApprovalScheduler) Sweep(ctx context.Context) int {
	now := s.nowFn()
	keys := s.engine.AutoApprovalCandidates(now)
	if len(keys) == 0 {
		return 0
	}
	s.log.Infof("auto-approval sweep: %d candidate milestones", len(keys))

	approved := 0
	for _, outcome := range s.engine.AutoApproveBatch(ctx, keys, now, s.workers) {
		if outcome.Err != nil {
			s.log.Warnf("auto-approval of job %s milestone %d failed: %s",
				outcome.Key.JobID, outcome.Key.Index, outcome.Err)
			continue
		}
		approved++
	}
	s.log.Infof("auto-approval sweep done: %d of %d approved", approved, len(keys))
	return approved
}
