// Package backoff implements the retry/DLQ boundary policy of §4.2:
// integer exponential backoff with an off-by-one retry bound.
package backoff

import (
	"math/rand/v2"
	"time"
)

// Config controls the retry policy applied by the state machine on a
// failed job outcome.
//
// Base is the exponential base ("backoff_base" in the config table).
// Attempts counts failed tries only; a job whose MaxRetries is N may
// be executed up to N+1 times before its delay is no longer computed
// and it is moved to the DLQ instead.
//
// RandomizationFactor is an optional jitter knob, 0 by default. §9 of
// the design permits jitter as long as the expected delay after k
// failures stays Θ(base^k); a nonzero factor spreads the delay
// uniformly within +/- factor*delay of the deterministic value.
type Config struct {
	Base                uint32
	RandomizationFactor float64
}

// Exceeded reports whether attempts failed tries have exhausted
// maxRetries allowed retries, per the off-by-one boundary in §4.2: a
// job with maxRetries=N runs up to N+1 times, so it is exhausted once
// attempts > maxRetries.
func Exceeded(attempts, maxRetries uint32) bool {
	return attempts > maxRetries
}

// Delay computes the backoff duration to apply after the k-th failed
// attempt (k >= 1), i.e. base^attempts seconds, jittered per Config if
// RandomizationFactor is nonzero.
func Delay(cfg Config, attempts uint32) time.Duration {
	base := cfg.Base
	if base == 0 {
		base = 2
	}
	seconds := 1.0
	for i := uint32(0); i < attempts; i++ {
		seconds *= float64(base)
	}
	if cfg.RandomizationFactor > 0 {
		delta := cfg.RandomizationFactor * seconds
		min := seconds - delta
		max := seconds + delta
		if min < 0 {
			min = 0
		}
		seconds = min + rand.Float64()*(max-min)
	}
	return time.Duration(seconds * float64(time.Second))
}
