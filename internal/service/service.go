// Package service resolves entities from the store and persists them.
//
// Every service follows the same state machine: an entity whose Exists()
// reports false may only be created, one that reports true may only be
// updated, trashed or deleted. Violations fail before any gateway call.
// Every failure is an *errs.Error; lookups that miss return a nil entity
// and an error matching errs.ErrNotFound.
package service

import (
	"time"

	"github.com/and161185/charm/internal/errs"
)

func alreadyPersisted(op, what string, id int64) error {
	return errs.New(op, errs.CodeAlreadyPersisted, "%s %d is already stored", what, id)
}

func notPersisted(op, what string) error {
	return errs.New(op, errs.CodeNotPersisted, "%s is not stored yet", what)
}

func invalid(op, format string, args ...any) error {
	return errs.New(op, errs.CodeInvalid, format, args...)
}

// clock is replaced in tests.
type clock func() time.Time

func (c clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}
