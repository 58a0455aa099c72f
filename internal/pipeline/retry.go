package pipeline

import (
	"errors"
	"math/rand/v2"
	"time"

	"github.com/dgallion1/ismsdoc/internal/props"
)

// IsRetryable checks if an error is worth retrying. Only a locked output
// file qualifies; an exhausted property replace has already written its
// fallback copy.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, props.ErrReplaceExhausted) {
		return false
	}
	return props.IsLockError(err)
}

// Backoff returns a duration for attempt n (0-indexed) with jitter. The
// delay doubles from base and is capped at 30 times base.
func Backoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	d := base << uint(attempt)
	if limit := 30 * base; d > limit || d <= 0 {
		d = limit
	}
	jitter := time.Duration(rand.Int64N(int64(d)/2 + 1))
	return d + jitter
}

const MaxRetries = 3
