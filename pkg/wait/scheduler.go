package wait

import (
	"context"
	"time"

	"github.com/go-go-golems/waitfor/pkg/probe"
	"github.com/go-go-golems/waitfor/pkg/report"
	"github.com/go-go-golems/waitfor/pkg/status"
	"github.com/go-go-golems/waitfor/pkg/target"
	"github.com/rs/zerolog/log"
)

// Scheduler drives a single target's probing to completion: check the
// budget, probe once, classify, sleep, repeat. With an unlimited budget the
// loop is unbounded on purpose.
type Scheduler struct {
	PollInterval   time.Duration
	ConnectTimeout time.Duration
	Reporter       report.Reporter

	// Sleep overrides the inter-attempt wait, for tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Wait polls t until it succeeds, the budget runs out (exit 251), a fatal
// outcome aborts the run, or the context is cancelled (exit 2).
func (s *Scheduler) Wait(ctx context.Context, t target.Target, p probe.Prober, budget *Budget) error {
	sleep := s.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	attempt := 0
	for {
		if err := runErr(ctx, t); err != nil {
			return err
		}
		if budget.Exhausted() {
			err := status.Exitf(status.TimedOut, t.Raw, "script timeout exceeded after %s", budget.Elapsed())
			s.Reporter.Failed(t.Raw, err.Reason, err.Code)
			return err
		}

		attempt++
		out := p.ProbeOnce(ctx, s.ConnectTimeout)
		switch out.Class {
		case probe.Success:
			s.Reporter.Ready(t.Raw, attempt)
			return nil
		case probe.Fatal:
			s.Reporter.Failed(t.Raw, out.Reason, out.Code)
			return out.Err(t.Raw)
		}

		s.Reporter.Attempt(t.Raw, attempt, out.Reason)
		log.Debug().Str("target", t.Raw).Int("attempt", attempt).Str("reason", out.Reason).Msg("probe attempt failed")

		if err := sleep(ctx, s.PollInterval); err != nil {
			if rerr := runErr(ctx, t); rerr != nil {
				return rerr
			}
			return status.Exitf(status.Interrupted, t.Raw, "interrupted")
		}
		budget.Charge(s.PollInterval)
	}
}

// runErr maps context termination onto the run's exit contract: a hard
// deadline means the script timeout fired, cancellation means an external
// interrupt.
func runErr(ctx context.Context, t target.Target) error {
	switch ctx.Err() {
	case nil:
		return nil
	case context.DeadlineExceeded:
		return status.Exitf(status.TimedOut, t.Raw, "script timeout exceeded")
	default:
		return status.Exitf(status.Interrupted, t.Raw, "interrupted")
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
