// Package repository defines the data access layer.  Every repository
// talks to MySQL through database/sql with hand-written queries.  Methods
// with a Tx suffix run inside a caller-owned transaction; the caller is
// responsible for committing or rolling back.
//
// The sentinel errors below are shared across repositories so that the
// service and handler layers can translate them into HTTP responses.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation on a
// resource owned by someone else.  Handlers translate it into 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict signals that a write cannot proceed because of the current
// state of the row (for example a payout period that already exists).
var ErrConflict = errors.New("conflict")

// ErrNotFound is returned when a lookup by primary key yields no rows.
var ErrNotFound = errors.New("not found")

// ErrStaleVersion is returned when an optimistic version check fails
// because another writer updated the row first.
var ErrStaleVersion = errors.New("stale version")
