package connection

import (
	"math"
	"time"
)

// Backoff computes reconnect delays as min(Base * Growth^attempt, Max).
type Backoff struct {
	Base   time.Duration
	Growth float64
	Max    time.Duration
}

// Delay returns the wait before reconnect number attempt+1.
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := float64(b.Base) * math.Pow(b.Growth, float64(attempt))
	if math.IsNaN(d) || math.IsInf(d, 0) || d > float64(b.Max) {
		return b.Max
	}
	return time.Duration(d)
}
