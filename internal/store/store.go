// Package store persists alarm records. Implementations must preserve
// insertion order in List: the engine's tie-break between simultaneous
// matches is "first in stored order".
package store

import (
	"errors"

	"github.com/rjwilson47/AutostopAlarms/internal/alarm"
)

// ErrNotFound is returned when no record carries the requested ID.
var ErrNotFound = errors.New("store: alarm not found")

// Store is the durable alarm collection.
type Store interface {
	// List returns all records in insertion order.
	List() ([]alarm.Record, error)
	// Get returns the record with the given ID or ErrNotFound.
	Get(id string) (alarm.Record, error)
	// Upsert inserts or replaces a record. The record is validated first;
	// replacing keeps the record's original position in the ordering.
	Upsert(r alarm.Record) error
	// Remove deletes a record or returns ErrNotFound.
	Remove(id string) error
	// SetEnabled flips the enabled flag or returns ErrNotFound.
	SetEnabled(id string, enabled bool) error
}
