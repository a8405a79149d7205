package models

import (
	"maps"
	"time"
)

// Sample is one stored usage observation across all accounts.
type Sample struct {
	Timestamp time.Time
	Usage     map[int]float64
	ID        int64
}

// NewSample captures the current usage of every account at ts.
func NewSample(ts time.Time, accounts []Account) Sample {
	usage := make(map[int]float64, len(accounts))
	for _, a := range accounts {
		usage[a.ID] = a.Usage
	}
	return Sample{Timestamp: ts, Usage: usage}
}

// Value returns the usage recorded for an account, 0 when absent.
func (s Sample) Value(id int) float64 {
	return s.Usage[id]
}

// Total returns the sum of usage over the given accounts.
func (s Sample) Total(ids []int) float64 {
	var total float64
	for _, id := range ids {
		total += s.Usage[id]
	}
	return total
}

// SameUsage reports whether both samples record identical usage for every
// account present in either of them.
func (s Sample) SameUsage(other Sample) bool {
	for id, v := range s.Usage {
		if other.Usage[id] != v {
			return false
		}
	}
	for id, v := range other.Usage {
		if s.Usage[id] != v {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the sample.
func (s Sample) Clone() Sample {
	clone := s
	clone.Usage = make(map[int]float64, len(s.Usage))
	maps.Copy(clone.Usage, s.Usage)
	return clone
}

// CloneSamples deep copies a slice of samples.
func CloneSamples(samples []Sample) []Sample {
	if samples == nil {
		return nil
	}
	out := make([]Sample, len(samples))
	for i := range samples {
		out[i] = samples[i].Clone()
	}
	return out
}
