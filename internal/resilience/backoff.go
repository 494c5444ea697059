package resilience

import (
	"math/rand/v2"
	"time"
)

// MaxBackoff caps the delay between attempts.
const MaxBackoff = 5 * time.Second

// Backoff returns base doubled per attempt, capped at MaxBackoff, with a
// symmetric jitter fraction (0.2 means plus or minus 20%).
func Backoff(base time.Duration, attempt int, jitter float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	d := base
	for i := 1; i < attempt && d < MaxBackoff; i++ {
		d *= 2
	}
	if d > MaxBackoff {
		d = MaxBackoff
	}
	if jitter <= 0 {
		return d
	}
	delta := (rand.Float64()*2 - 1) * jitter * float64(d)
	return d + time.Duration(delta)
}
