package session

import "time"

// Duration is the length of a closed session, zero while it is open.
func (s *ActivitySession) Duration() time.Duration {
	if s.End.IsZero() {
		return 0
	}
	return clampDuration(s.End.Sub(s.Start))
}

// Elapsed is the time spent so far, measured to now for an open session.
func (s *ActivitySession) Elapsed(now time.Time) time.Duration {
	if s.End.IsZero() {
		return clampDuration(now.Sub(s.Start))
	}
	return s.Duration()
}

func (s *ActivitySession) IsActive() bool {
	return s.End.IsZero()
}

func clampDuration(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
