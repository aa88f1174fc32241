package chat

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("chat: not found")

// PersistenceError wraps a store write that failed for a reason other than
// the expected unique-key conflicts.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("chat: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Store gives the ingestion and dispatch paths access to contacts,
// conversations and the message ledger. All coordination happens in the
// database; a Store holds no mutable state and is safe for concurrent use.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func persistErr(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}
