package logging

import "strings"

// ProgressSampler suppresses repetitive progress logs while preserving signal
// when phases or percentage buckets change. Encodes without a known duration
// are sampled on elapsed media time instead.
type ProgressSampler struct {
	bucketSize      float64
	elapsedInterval float64
	lastPhase       string
	lastBucket      int
	lastElapsed     float64
}

// NewProgressSampler constructs a sampler that emits when the percent crosses
// bucket boundaries (default 5%) or when the phase changes. Elapsed samples
// are spaced 30 media seconds apart.
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 5
	}
	return &ProgressSampler{bucketSize: bucketSize, elapsedInterval: 30, lastBucket: -1, lastElapsed: -1}
}

// ShouldLog reports whether a progress event should be logged. Percent can be
// negative to indicate "unknown"; phase is trimmed before comparison.
func (s *ProgressSampler) ShouldLog(percent float64, phase string) bool {
	if s == nil {
		return true
	}
	emit := s.phaseChanged(phase)
	if percent >= 0 {
		if bucket := int(min(percent, 100) / s.bucketSize); bucket > s.lastBucket {
			s.lastBucket = bucket
			emit = true
		}
	}
	return emit
}

// ShouldLogElapsed reports whether an indeterminate progress event carrying
// the encoded media time in seconds should be logged.
func (s *ProgressSampler) ShouldLogElapsed(seconds float64, phase string) bool {
	if s == nil {
		return true
	}
	emit := s.phaseChanged(phase)
	if seconds < 0 {
		return emit
	}
	if s.lastElapsed < 0 || seconds-s.lastElapsed >= s.elapsedInterval {
		s.lastElapsed = seconds
		emit = true
	}
	return emit
}

func (s *ProgressSampler) phaseChanged(phase string) bool {
	phase = strings.TrimSpace(phase)
	if phase == "" || phase == s.lastPhase {
		return false
	}
	s.lastPhase = phase
	s.lastBucket = -1
	s.lastElapsed = -1
	return true
}
