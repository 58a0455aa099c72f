package pipeline

import "github.com/oklog/ulid/v2"

// NewJobID returns a ULID: 26 Crockford base32 characters, time-ordered
// and monotonic within a millisecond.
func NewJobID() string {
	return ulid.Make().String()
}
