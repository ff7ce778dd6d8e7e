package logic

import "time"

// PressFilter decides which key releases count as pecks.
//
// With a zero MinInterval every release is accepted. Otherwise a release
// whose timestamp lies within MinInterval of the last accepted release is
// dropped. Timestamps are monotonic offsets as reported by the edge source.
type PressFilter struct {
	MinInterval time.Duration

	last     time.Duration
	accepted bool
}

// NewPressFilter creates a filter with the given coalescing interval.
func NewPressFilter(minInterval time.Duration) *PressFilter {
	return &PressFilter{MinInterval: minInterval}
}

// Accept reports whether a release at ts counts as a peck and, if so,
// records ts as the last accepted release.
func (f *PressFilter) Accept(ts time.Duration) bool {
	if f.MinInterval > 0 && f.accepted {
		if d := ts - f.last; d >= 0 && d < f.MinInterval {
			return false
		}
	}
	f.last = ts
	f.accepted = true
	return true
}
