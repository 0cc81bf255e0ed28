package billing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"golang.org/x/sync/errgroup"

	"github.com/ManuelReschke/ServicePortal/internal/pkg/metrics"
)

// RunBillingCycle processes every due subscription and then runs the overdue
// sweep. Only one run may hold the run lock at a time. When ctx is cancelled
// the cycles already started finish and no new ones are picked up.
func (p *Processor) RunBillingCycle(ctx context.Context, now time.Time) (*RunSummary, error) {
	started := time.Now()
	summary := &RunSummary{StartedAt: now}

	if p.locker != nil {
		release, ok, err := p.locker.Acquire(ctx, runLockKey, p.cfg.LockTTL)
		if err != nil {
			metrics.BillingRuns.WithLabelValues("error").Inc()
			return nil, err
		}
		if !ok {
			metrics.BillingRuns.WithLabelValues("locked").Inc()
			return nil, ErrRunInProgress
		}
		defer release()
	}

	due, err := p.store.ListDueSubscriptions(ctx, now)
	if err != nil {
		metrics.BillingRuns.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("list due subscriptions: %w", err)
	}
	summary.Due = len(due)
	log.Infof("[Billing] run at %s: %d subscription(s) due", now.Format(time.RFC3339), len(due))

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	interrupted := func() bool {
		if ctx.Err() == nil {
			return false
		}
		mu.Lock()
		summary.Interrupted = true
		mu.Unlock()
		return true
	}

	g.SetLimit(p.cfg.Workers)
	for _, sub := range due {
		sub := sub
		if interrupted() {
			break
		}
		g.Go(func() error {
			// A slot may free up only after shutdown was requested.
			if interrupted() {
				return nil
			}
			res, err := p.ProcessSubscriptionCycle(context.WithoutCancel(ctx), sub, now, false)
			if err != nil {
				res.Error = err.Error()
			}
			mu.Lock()
			summary.add(res, err)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if summary.Interrupted {
		log.Warnf("[Billing] run interrupted after %d of %d subscription(s)", summary.Processed, summary.Due)
	} else {
		swept, err := p.SweepOverdue(context.WithoutCancel(ctx), now)
		summary.Overdue = swept
		if err != nil {
			summary.Errors++
			log.Errorf("[Billing] overdue sweep: %v", err)
		}
	}

	summary.FinishedAt = now.Add(time.Since(started))
	metrics.BillingRunDuration.Observe(time.Since(started).Seconds())
	metrics.BillingRuns.WithLabelValues("ok").Inc()
	log.Infof("[Billing] run done: charged=%d failed=%d manual=%d paused=%d errors=%d overdue=%d",
		summary.Charged, summary.Failed, summary.Manual, summary.Paused, summary.Errors, summary.Overdue)
	return summary, nil
}
