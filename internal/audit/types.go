package audit

import (
	"time"

	"github.com/google/uuid"
)

// Clock abstracts time-dependent functionality for deterministic testing.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the standard library.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// IdentifierGenerator produces audit run identifiers.
type IdentifierGenerator func() string

// RandomIdentifierGenerator returns a random UUID string.
func RandomIdentifierGenerator() string {
	return uuid.NewString()
}
