package model

import "github.com/oklog/ulid/v2"

// NewID generates a new ULID string for use as a job identifier.
// ULIDs carry 128 bits, so collisions within a process lifetime are not a concern.
func NewID() string {
	return ulid.Make().String()
}
