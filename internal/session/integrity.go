package session

// DefaultIntegrityThreshold is the number of focus losses that ends a session.
const DefaultIntegrityThreshold = 2

// IntegrityMonitor counts focus/visibility losses. It is a nudge for
// cooperating clients, not a security boundary. A threshold of 0 only counts.
type IntegrityMonitor struct {
	threshold int
	count     int
	warning   bool
}

// NewIntegrityMonitor creates a monitor that breaches at threshold losses.
func NewIntegrityMonitor(threshold int) *IntegrityMonitor {
	if threshold < 0 {
		threshold = 0
	}
	return &IntegrityMonitor{threshold: threshold}
}

// FocusLost records one violation and reports whether the threshold is reached.
func (m *IntegrityMonitor) FocusLost() (count int, breached bool) {
	m.count++
	m.warning = true
	return m.count, m.threshold > 0 && m.count >= m.threshold
}

// Dismiss acknowledges the current warning. The count is kept.
func (m *IntegrityMonitor) Dismiss() bool {
	was := m.warning
	m.warning = false
	return was
}

// Count returns the number of recorded violations.
func (m *IntegrityMonitor) Count() int { return m.count }

// Threshold returns the configured threshold.
func (m *IntegrityMonitor) Threshold() int { return m.threshold }
