package logging

import "testing"

func TestNewProgressSampler(t *testing.T) {
	tests := []struct {
		name       string
		bucketSize float64
		wantSize   float64
	}{
		{"default bucket size for zero", 0, 5},
		{"default bucket size for negative", -1, 5},
		{"custom bucket size", 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewProgressSampler(tt.bucketSize)
			if s.bucketSize != tt.wantSize {
				t.Errorf("bucketSize = %v, want %v", s.bucketSize, tt.wantSize)
			}
			if s.lastBucket != -1 {
				t.Errorf("lastBucket = %d, want -1", s.lastBucket)
			}
		})
	}
}

func TestProgressSamplerNilSampler(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(50, "Converting") {
		t.Error("ShouldLog on nil sampler should always return true")
	}
	if !s.ShouldLogElapsed(10, "Converting") {
		t.Error("ShouldLogElapsed on nil sampler should always return true")
	}
}

func TestProgressSamplerPhaseChange(t *testing.T) {
	s := NewProgressSampler(5)

	if !s.ShouldLog(-1, "Starting") {
		t.Error("first phase should log")
	}
	if s.ShouldLog(-1, "Starting") {
		t.Error("same phase without percent should not log again")
	}
	if !s.ShouldLog(-1, "Finalizing") {
		t.Error("different phase should log")
	}
	if s.lastPhase != "Finalizing" {
		t.Errorf("lastPhase = %q, want Finalizing", s.lastPhase)
	}
}

func TestProgressSamplerBuckets(t *testing.T) {
	s := NewProgressSampler(10)
	steps := []struct {
		percent float64
		want    bool
	}{
		{0, true},
		{4.5, false},
		{9.9, false},
		{10, true},
		{15, false},
		{35, true},
		{30, false},
		{100, true},
		{100, false},
	}
	for i, step := range steps {
		if got := s.ShouldLog(step.percent, "Converting"); got != step.want {
			t.Fatalf("step %d (%.1f%%): got %v want %v", i, step.percent, got, step.want)
		}
	}
}

func TestProgressSamplerElapsed(t *testing.T) {
	s := NewProgressSampler(5)
	if !s.ShouldLogElapsed(0.5, "Converting") {
		t.Fatal("first elapsed sample should log")
	}
	if s.ShouldLogElapsed(20, "Converting") {
		t.Fatal("sample inside interval should be suppressed")
	}
	if !s.ShouldLogElapsed(30.5, "Converting") {
		t.Fatal("sample after interval should log")
	}
	if s.ShouldLogElapsed(-1, "Converting") {
		t.Fatal("unknown elapsed should not log")
	}
}

func TestProgressSamplerPhaseChangeResetsBuckets(t *testing.T) {
	s := NewProgressSampler(5)
	s.ShouldLog(50, "Converting")
	if !s.ShouldLog(10, "Finalizing") {
		t.Fatal("expected new phase to log")
	}
	if s.lastBucket != 2 || s.lastElapsed != -1 {
		t.Fatalf("unexpected state after phase change: %+v", s)
	}
}
