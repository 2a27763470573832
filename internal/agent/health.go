package agent

// HealthSample keeps one step of health history for damage detection.
type HealthSample struct {
	Current  float64
	Previous float64
}

// Reset sets both readings to h.
func (s *HealthSample) Reset(h float64) {
	s.Current, s.Previous = h, h
}

// Observe records a new reading and reports whether it is a drop.
func (s *HealthSample) Observe(h float64) bool {
	s.Previous, s.Current = s.Current, h
	return s.Current < s.Previous
}
