package throttle

import (
	"math/rand/v2"
	"time"
)

// Jitter describes a random delay drawn uniformly from
// [Min, Min+Interval). The zero value adds no delay.
type Jitter struct {
	Min      time.Duration
	Interval time.Duration
}

// JitterUpTo returns a Jitter adding between zero and limit.
func JitterUpTo(limit time.Duration) Jitter {
	return Jitter{Interval: limit}
}

// NewJitter returns a Jitter adding at least floor and less than
// floor+interval.
func NewJitter(floor, interval time.Duration) Jitter {
	return Jitter{Min: floor, Interval: interval}
}

// Max returns the upper bound of the delay.
func (j Jitter) Max() time.Duration {
	return max(j.Min, 0) + max(j.Interval, 0)
}

// Sample draws a delay. Negative bounds are treated as zero.
func (j Jitter) Sample() time.Duration {
	d := max(j.Min, 0)
	if j.Interval > 0 {
		d += rand.N(j.Interval)
	}

	return d
}
