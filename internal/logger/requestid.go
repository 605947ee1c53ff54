package logger

import "github.com/google/uuid"

// NewRequestID returns a fresh random correlation id. Uniqueness is
// probabilistic (random UUID), not centrally coordinated.
func NewRequestID() string {
	return uuid.New().String()
}
