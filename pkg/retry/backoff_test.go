package retry

import (
	"testing"
	"time"
)

func TestDelayForGrowsExponentially(t *testing.T) {
	p := NewPolicy(Config{
		Initial:    100 * time.Millisecond,
		Max:        10 * time.Second,
		Multiplier: 2,
	})

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
	}

	for _, tt := range tests {
		if got := p.DelayFor(tt.attempt); got != tt.want {
			t.Errorf("DelayFor(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestDelayForCapsAtMax(t *testing.T) {
	p := NewPolicy(Config{
		Initial:    1 * time.Second,
		Max:        4 * time.Second,
		Multiplier: 2,
	})

	if got := p.DelayFor(10); got != 4*time.Second {
		t.Errorf("DelayFor(10) = %v, want %v", got, 4*time.Second)
	}
}

func TestMultiplierOneIsConstantDelay(t *testing.T) {
	p := NewPolicy(Config{
		Initial:    100 * time.Millisecond,
		Max:        10 * time.Second,
		Multiplier: 1,
	})

	for attempt := 1; attempt <= 4; attempt++ {
		if got := p.DelayFor(attempt); got != 100*time.Millisecond {
			t.Errorf("DelayFor(%d) = %v, want constant 100ms", attempt, got)
		}
	}
}

func TestDefaultsFillZeroFields(t *testing.T) {
	p := NewPolicy(Config{})

	if p.initial != DefaultInitialDelay {
		t.Errorf("initial = %v, want %v", p.initial, DefaultInitialDelay)
	}
	if p.max != DefaultMaxDelay {
		t.Errorf("max = %v, want %v", p.max, DefaultMaxDelay)
	}
	if p.multiplier != DefaultMultiplier {
		t.Errorf("multiplier = %v, want %v", p.multiplier, DefaultMultiplier)
	}
}

func TestSequence(t *testing.T) {
	p := NewPolicy(Config{
		Initial:    100 * time.Millisecond,
		Max:        time.Second,
		Multiplier: 2,
	})

	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		time.Second,
		time.Second,
	}
	got := p.Sequence(6)
	if len(got) != len(want) {
		t.Fatalf("Sequence(6) returned %d entries", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Sequence[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestJitterStaysBounded(t *testing.T) {
	base := 100 * time.Millisecond
	p := NewPolicy(Config{
		Initial:    base,
		Multiplier: 2,
		Jitter:     0.25,
	})

	for i := 0; i < 100; i++ {
		d := p.DelayFor(1)
		if d < base || d > base+base/4 {
			t.Fatalf("jittered delay %v outside [%v, %v]", d, base, base+base/4)
		}
	}
}
