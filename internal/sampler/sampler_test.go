// internal/sampler/sampler_test.go
package sampler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/colebrumley/camsampler/internal/bus"
	"github.com/colebrumley/camsampler/internal/camera"
	"github.com/colebrumley/camsampler/internal/capture"
	"github.com/colebrumley/camsampler/internal/expr"
	"github.com/colebrumley/camsampler/internal/history"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scriptedBus replays a fixed message sequence, then reports cancellation,
// which is how a test run ends. onNext lets a test advance a fake clock in
// step with message delivery.
type scriptedBus struct {
	subscribed []string
	msgs       []bus.Message
	pos        int
	onNext     func(i int)
}

func (b *scriptedBus) Subscribe(name string) error {
	b.subscribed = append(b.subscribed, name)
	return nil
}

func (b *scriptedBus) Next(ctx context.Context) (bus.Message, error) {
	if b.pos >= len(b.msgs) {
		return bus.Message{}, context.Canceled
	}
	if b.onNext != nil {
		b.onNext(b.pos)
	}
	msg := b.msgs[b.pos]
	b.pos++
	return msg, nil
}

func (b *scriptedBus) Close() error { return nil }

// stubSource hands out sessions that always return a fresh frame, and counts
// how many captures were opened.
type stubSource struct {
	opened  int
	nextTS  int64
	timeout bool // every fetch times out
}

func (s *stubSource) Open(streamID string) (camera.Session, error) {
	s.opened++
	return &stubSession{source: s}, nil
}

type stubSession struct {
	source *stubSource
}

func (s *stubSession) Fetch(time.Duration) (camera.Frame, error) {
	if s.source.timeout {
		return camera.Frame{}, camera.ErrFetchTimeout
	}
	s.source.nextTS++
	return camera.Frame{
		TimestampNS: s.source.nextTS,
		Width:       1,
		Height:      1,
		Pixels:      []byte{1, 2, 3},
	}, nil
}

func (s *stubSession) Close() error { return nil }

func newTestSampler(t *testing.T, source *stubSource, b bus.Bus, clock Clock, opts Options) *Sampler {
	t.Helper()
	log := discardLogger()
	return New(Deps{
		Bus:       b,
		Sequencer: capture.NewSequencer(source, 3, time.Millisecond, log),
		Pipeline:  capture.NewPipeline(t.TempDir(), 90, nil, log),
		Clock:     clock,
		Logger:    log,
	}, opts)
}

func TestEventMode_SubscribesDottedNames(t *testing.T) {
	cond, err := expr.Parse("env_temperature > 30 and env_humidity < 80")
	if err != nil {
		t.Fatal(err)
	}
	b := &scriptedBus{}
	s := newTestSampler(t, &stubSource{}, b, nil, Options{
		Stream:    "camera",
		Condition: cond,
		Cooldown:  5 * time.Second,
	})

	if err := s.Run(context.Background()); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}

	want := []string{"env.temperature", "env.humidity"}
	if len(b.subscribed) != len(want) {
		t.Fatalf("subscribed to %v, want %v", b.subscribed, want)
	}
	for i := range want {
		if b.subscribed[i] != want[i] {
			t.Errorf("subscription %d = %q, want %q", i, b.subscribed[i], want[i])
		}
	}
}

func TestEventMode_CooldownSuppressesRefire(t *testing.T) {
	cond, err := expr.Parse("x > 0")
	if err != nil {
		t.Fatal(err)
	}

	t0 := time.Unix(1700000000, 0)
	now := t0
	clock := func() time.Time { return now }

	// All three messages keep the condition true; the second and third land
	// inside the 5s cooldown window and must not re-trigger.
	b := &scriptedBus{
		msgs: []bus.Message{
			{Name: "x", Value: 5.0},
			{Name: "x", Value: 7.0},
			{Name: "x", Value: 9.0},
		},
		onNext: func(i int) { now = t0.Add(time.Duration(i) * time.Second) },
	}
	source := &stubSource{}
	s := newTestSampler(t, source, b, clock, Options{
		Stream:    "camera",
		Condition: cond,
		Cooldown:  5 * time.Second,
	})

	if err := s.Run(context.Background()); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if source.opened != 1 {
		t.Errorf("captures = %d, want 1 (cooldown must suppress re-fire)", source.opened)
	}
}

func TestEventMode_RefiresAfterCooldown(t *testing.T) {
	cond, err := expr.Parse("x > 0")
	if err != nil {
		t.Fatal(err)
	}

	t0 := time.Unix(1700000000, 0)
	now := t0
	clock := func() time.Time { return now }

	b := &scriptedBus{
		msgs: []bus.Message{
			{Name: "x", Value: 5.0}, // fires at t0
			{Name: "x", Value: 5.0}, // t0+2s, gate closed
			{Name: "x", Value: 5.0}, // t0+6s, gate open again
		},
		onNext: func(i int) { now = t0.Add(time.Duration(i*3) * time.Second) },
	}
	source := &stubSource{}
	s := newTestSampler(t, source, b, clock, Options{
		Stream:    "camera",
		Condition: cond,
		Cooldown:  5 * time.Second,
	})

	if err := s.Run(context.Background()); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if source.opened != 2 {
		t.Errorf("captures = %d, want 2 (gate reopens after cooldown)", source.opened)
	}
}

func TestEventMode_FalseConditionNeverFires(t *testing.T) {
	cond, err := expr.Parse("x > 10")
	if err != nil {
		t.Fatal(err)
	}
	b := &scriptedBus{
		msgs: []bus.Message{
			{Name: "x", Value: 1.0},
			{Name: "x", Value: -5.0},
			{Name: "x", Value: 10.0}, // strict comparison, still false
		},
	}
	source := &stubSource{}
	s := newTestSampler(t, source, b, time.Now, Options{
		Stream:    "camera",
		Condition: cond,
		Cooldown:  time.Second,
	})

	if err := s.Run(context.Background()); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if source.opened != 0 {
		t.Errorf("captures = %d, want 0", source.opened)
	}
}

func TestEventMode_RecordsHistory(t *testing.T) {
	cond, err := expr.Parse("x > 0")
	if err != nil {
		t.Fatal(err)
	}
	db, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	log := discardLogger()
	source := &stubSource{}
	s := New(Deps{
		Bus:       &scriptedBus{msgs: []bus.Message{{Name: "x", Value: 1.0}}},
		Sequencer: capture.NewSequencer(source, 3, time.Millisecond, log),
		Pipeline:  capture.NewPipeline(t.TempDir(), 90, nil, log),
		History:   db,
		Logger:    log,
	}, Options{
		Stream:    "camera",
		Condition: cond,
		Cooldown:  time.Second,
	})

	if err := s.Run(context.Background()); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}

	records, err := db.GetHistory("camera", "condition", 0)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("history has %d records, want 1", len(records))
	}
	if records[0].Condition != "x > 0" {
		t.Errorf("recorded condition = %q, want %q", records[0].Condition, "x > 0")
	}
}

func TestPeriodicMode_CapturesOnEveryTick(t *testing.T) {
	source := &stubSource{}
	// Bus deliberately nil: periodic mode must never consult it, nor any
	// trigger evaluation or cooldown.
	s := newTestSampler(t, source, nil, nil, Options{
		Stream:   "camera",
		Interval: 20 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 110*time.Millisecond)
	defer cancel()
	if err := s.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run() error = %v, want context.DeadlineExceeded", err)
	}

	if source.opened < 2 {
		t.Errorf("captures = %d, want at least 2 over five ticks", source.opened)
	}
	if source.opened > 6 {
		t.Errorf("captures = %d, want at most one per tick", source.opened)
	}
}

func TestPeriodicMode_FatalAfterExhaustedRetries(t *testing.T) {
	source := &stubSource{timeout: true}
	s := newTestSampler(t, source, nil, nil, Options{
		Stream:   "camera",
		Interval: time.Millisecond,
	})

	err := s.Run(context.Background())
	if err == nil {
		t.Fatal("Run() error = nil, want fatal no-frame error")
	}
	if !errors.Is(err, capture.ErrNoFrame) {
		t.Errorf("Run() error = %v, want ErrNoFrame", err)
	}
	if source.opened != 1 {
		t.Errorf("sessions opened = %d, want 1 (halt on first failed capture)", source.opened)
	}
}

func TestScheduledMode_BadExpression(t *testing.T) {
	s := newTestSampler(t, &stubSource{}, nil, nil, Options{
		Stream:   "camera",
		Schedule: "not a cron line",
	})
	if err := s.Run(context.Background()); err == nil {
		t.Error("Run() error = nil for bad schedule, want error")
	}
}

func TestScheduledMode_FiresOnCron(t *testing.T) {
	if testing.Short() {
		t.Skip("cron granularity is one second")
	}
	source := &stubSource{}
	s := newTestSampler(t, source, nil, nil, Options{
		Stream:   "camera",
		Schedule: "* * * * * *", // every second
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2500*time.Millisecond)
	defer cancel()
	if err := s.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run() error = %v, want context.DeadlineExceeded", err)
	}
	if source.opened < 1 {
		t.Error("no captures fired from cron schedule")
	}
}
