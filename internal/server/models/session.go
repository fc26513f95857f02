package models

import "time"

// Session binds an opaque public id to a user and the sha256 hash of the
// session secret. The raw secret never reaches storage.
//
// LastVerifiedAt doubles as creation time and sliding-activity marker: it is
// set to now on creation and advanced when a validation lands after the
// activity-check interval has elapsed.
//
// Fresh is advisory only ("just logged in" UX), never a security boundary.
// It is derived from elapsed time at validation and is not persisted.
type Session struct {
	ID             string
	UserID         string
	SecretHash     []byte
	LastVerifiedAt time.Time
	Fresh          bool
}
