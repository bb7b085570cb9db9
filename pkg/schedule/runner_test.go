package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		expr    string
		wantErr bool
	}{
		{"*/5 * * * *", false},
		{"0 3 * * 1-5", false},
		{"@hourly", false},
		{"@every 15m", false},
		{"* * * *", true},
		{"0 0 0 * * *", true},
		{"tomorrow", true},
	}

	for _, tt := range tests {
		err := Validate(tt.expr)
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(%q) error = %v, wantErr %v", tt.expr, err, tt.wantErr)
		}
	}
}

func TestNext(t *testing.T) {
	from := time.Date(2024, 5, 1, 10, 7, 0, 0, time.UTC)

	next, err := Next("*/15 * * * *", from)
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	want := time.Date(2024, 5, 1, 10, 15, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("Next = %s, want %s", next, want)
	}

	if _, err := Next("bogus", from); err == nil {
		t.Error("expected error for invalid expression")
	}
}

func TestRunnerAdd(t *testing.T) {
	r := NewRunner()
	job := func(ctx context.Context) error { return nil }

	if err := r.Add("scan", "@every 1h", job); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := r.Add("scan", "@every 1h", job); err == nil {
		t.Error("expected error for duplicate job name")
	}
	if err := r.Add("broken", "not a cron", job); err == nil {
		t.Error("expected error for invalid expression")
	}

	r.Remove("scan")
	if _, ok := r.NextRun("scan"); ok {
		t.Error("removed job still registered")
	}
	if err := r.Add("scan", "@every 1h", job); err != nil {
		t.Errorf("re-adding removed job failed: %v", err)
	}
}

func TestRunnerRunNow(t *testing.T) {
	r := NewRunner()

	var calls atomic.Int32
	job := func(ctx context.Context) error {
		calls.Add(1)
		return errors.New("scan failed")
	}

	if err := r.Add("scan", "@every 1h", job); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	// Job errors are logged, not propagated
	if err := r.RunNow("scan"); err != nil {
		t.Fatalf("RunNow failed: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("job ran %d times, want 1", calls.Load())
	}

	if err := r.RunNow("missing"); err == nil {
		t.Error("expected error for unknown job")
	}
}

func TestRunnerStartStop(t *testing.T) {
	r := NewRunner()
	r.StopTimeout = time.Second

	var calls atomic.Int32
	if err := r.Add("scan", "@every 1h", func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	r.Start()

	next, ok := r.NextRun("scan")
	if !ok {
		t.Fatal("job not registered")
	}
	if until := time.Until(next); until <= 0 || until > time.Hour {
		t.Errorf("next run in %s, want within the hour", until)
	}

	r.Stop()

	// Jobs do nothing once the runner is stopped
	if err := r.RunNow("scan"); err != nil {
		t.Fatalf("RunNow failed: %v", err)
	}
	if calls.Load() != 0 {
		t.Errorf("job ran %d times after stop, want 0", calls.Load())
	}
}
