package oxidb

import "fmt"

// Error is returned when the OxiDB server returns an error response.
type Error struct {
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("oxidb: %s", e.Msg)
}

// DuplicateKeyError is returned when a write violates a unique index.
type DuplicateKeyError struct {
	Msg string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("oxidb: duplicate key: %s", e.Msg)
}
