// internal/sampler/sampler.go
package sampler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/colebrumley/camsampler/internal/bus"
	"github.com/colebrumley/camsampler/internal/capture"
	"github.com/colebrumley/camsampler/internal/expr"
	"github.com/colebrumley/camsampler/internal/history"
	"github.com/colebrumley/camsampler/internal/signal"
)

// Deps are the collaborators a Sampler drives. Everything is injected so the
// loops can be tested with fakes.
type Deps struct {
	Bus       bus.Bus // only used in event-driven mode
	Sequencer *capture.Sequencer
	Pipeline  *capture.Pipeline
	History   *history.DB // nil disables provenance recording
	Clock     Clock
	Logger    *slog.Logger
}

// Options select and parameterize the scheduling mode.
type Options struct {
	Stream    string
	Condition *expr.Expr // nil selects periodic mode
	Cooldown  time.Duration
	Interval  time.Duration
	Schedule  string // optional cron expression for periodic mode
}

// Sampler owns the scheduling loop for one stream. There is no internal
// parallelism: the loop is the only driver, and suspension happens only at
// the bus receive, the interval wait, and the frame fetch.
type Sampler struct {
	deps Deps
	opts Options
}

// New builds a sampler. Clock defaults to time.Now.
func New(deps Deps, opts Options) *Sampler {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &Sampler{deps: deps, opts: opts}
}

// Run executes the selected loop until a fatal capture failure or ctx is
// cancelled. There is no other way out.
func (s *Sampler) Run(ctx context.Context) error {
	if s.opts.Condition != nil {
		return s.runOnCondition(ctx)
	}
	return s.runPeriodic(ctx)
}

func (s *Sampler) runOnCondition(ctx context.Context) error {
	log := s.deps.Logger
	log.Info("starting image sampler", "mode", "condition", "condition", s.opts.Condition.String())

	// Seed the table and subscribe in lockstep, one identifier at a time, so
	// a table entry and its subscription can never drift apart.
	table := signal.NewTable()
	for _, ident := range s.opts.Condition.Vars() {
		dotted := table.Seed(ident)
		if err := s.deps.Bus.Subscribe(dotted); err != nil {
			return fmt.Errorf("subscribing to %s: %w", dotted, err)
		}
	}
	if err := s.opts.Condition.Validate(table.Bindings()); err != nil {
		return err
	}

	gate := NewGate(s.deps.Clock())
	for {
		msg, err := s.deps.Bus.Next(ctx)
		if err != nil {
			return err
		}
		table.Update(msg.Name, msg.Value)

		// Cooldown is checked before evaluation: the table stays current
		// while the gate is closed, but the capture path is skipped.
		if !gate.IsOpen(s.deps.Clock()) {
			continue
		}

		fire, err := s.opts.Condition.Eval(table.Bindings())
		if err != nil {
			return fmt.Errorf("evaluating condition: %w", err)
		}
		if !fire {
			continue
		}

		log.Info("condition is valid, getting image", "condition", s.opts.Condition.String())
		if err := s.captureOnce("condition"); err != nil {
			return err
		}
		gate.Close(s.deps.Clock(), s.opts.Cooldown)
		log.Info("cooling down", "seconds", s.opts.Cooldown.Seconds())
	}
}

func (s *Sampler) runPeriodic(ctx context.Context) error {
	log := s.deps.Logger
	if s.opts.Schedule != "" {
		log.Info("starting image sampler", "mode", "periodic", "schedule", s.opts.Schedule)
		return s.runScheduled(ctx)
	}
	log.Info("starting image sampler", "mode", "periodic", "interval", s.opts.Interval.String())

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		log.Info("getting image", "stream", s.opts.Stream)
		if err := s.captureOnce("periodic"); err != nil {
			return err
		}
	}
}

// runScheduled drives the periodic capture from a cron schedule (with a
// seconds field) instead of a fixed interval.
func (s *Sampler) runScheduled(ctx context.Context) error {
	ticks := make(chan struct{}, 1)
	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(s.opts.Schedule, func() {
		select {
		case ticks <- struct{}{}:
		default:
		}
	}); err != nil {
		return fmt.Errorf("parsing schedule %q: %w", s.opts.Schedule, err)
	}
	c.Start()
	defer c.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticks:
		}
		s.deps.Logger.Info("getting image", "stream", s.opts.Stream)
		if err := s.captureOnce("periodic"); err != nil {
			return err
		}
	}
}

// captureOnce runs the sequencer and the persist+upload pipeline, then
// records provenance. Capture and pipeline failures are fatal to the loop;
// a history write failure is only logged.
func (s *Sampler) captureOnce(triggerType string) error {
	frame, err := s.deps.Sequencer.Capture(s.opts.Stream)
	if err != nil {
		return fmt.Errorf("halting the sampling: %w", err)
	}

	res, err := s.deps.Pipeline.Persist(frame)
	if err != nil {
		return err
	}

	if s.deps.History != nil {
		condition := ""
		if s.opts.Condition != nil {
			condition = s.opts.Condition.String()
		}
		_, err := s.deps.History.RecordCapture(history.CaptureRecord{
			Stream:      s.opts.Stream,
			TriggerType: triggerType,
			Condition:   condition,
			TimestampNS: frame.TimestampNS,
			Path:        res.Path,
			Uploaded:    res.Uploaded,
		})
		if err != nil {
			s.deps.Logger.Warn("failed to record capture history", "error", err)
		}
	}
	return nil
}
