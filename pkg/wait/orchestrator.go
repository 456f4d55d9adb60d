// Package wait contains the retry scheduler and the run orchestrator: the
// control flow that turns one-shot probes into a blocking readiness gate.
package wait

import (
	"context"
	"time"

	"github.com/go-go-golems/waitfor/pkg/probe"
	"github.com/go-go-golems/waitfor/pkg/report"
	"github.com/go-go-golems/waitfor/pkg/status"
	"github.com/go-go-golems/waitfor/pkg/target"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type Options struct {
	PollInterval   time.Duration
	ConnectTimeout time.Duration
	// ScriptTimeout bounds the whole run across all targets; zero means
	// unbounded.
	ScriptTimeout time.Duration
}

// Orchestrator sequences targets through the scheduler strictly in order,
// one at a time, failing the whole run on the first fatal outcome.
type Orchestrator struct {
	opts Options
	rep  report.Reporter

	// ProberFor resolves a target to its prober. Overridable for tests.
	ProberFor func(target.Target) probe.Prober
}

func New(opts Options, rep report.Reporter, caps *probe.Capabilities) *Orchestrator {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	if rep == nil {
		rep = report.Nop{}
	}
	return &Orchestrator{
		opts: opts,
		rep:  rep,
		ProberFor: func(t target.Target) probe.Prober {
			return probe.ForTarget(t, caps)
		},
	}
}

// Run waits for every target in order. On success the caller decides what
// to do next (typically exec into a trailing command); any failure carries
// its exit code out as a status.ExitError.
func (o *Orchestrator) Run(ctx context.Context, raws []string) error {
	if len(raws) == 0 {
		return errors.New("no targets given")
	}

	// The cooperative budget check can overshoot by one attempt plus one
	// sleep, so a hard deadline backstops it with exactly that slack.
	if o.opts.ScriptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.ScriptTimeout+o.opts.ConnectTimeout+o.opts.PollInterval)
		defer cancel()
	}

	budget := NewBudget(o.opts.ScriptTimeout)
	sched := &Scheduler{
		PollInterval:   o.opts.PollInterval,
		ConnectTimeout: o.opts.ConnectTimeout,
		Reporter:       o.rep,
	}

	for i, raw := range raws {
		o.rep.CheckStarted(i+1, len(raws), raw)

		t, err := target.Classify(raw)
		if err != nil {
			var ee *status.ExitError
			if errors.As(err, &ee) {
				o.rep.Failed(raw, ee.Reason, ee.Code)
			}
			return err
		}

		if err := sched.Wait(ctx, t, o.ProberFor(t), budget); err != nil {
			return err
		}
		log.Debug().Str("target", raw).Dur("elapsed", budget.Elapsed()).Msg("target ready")
	}

	o.rep.AllReady(len(raws))
	return nil
}
