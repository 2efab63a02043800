// Package models holds the rows of the remote store that have no client-side
// counterpart.
package models

import "time"

// User is an account. Salt and Verifier are the Argon2 inputs and output of
// the password check; the password itself is never stored.
type User struct {
	ID        string
	Email     string
	Salt      []byte
	Verifier  []byte
	CreatedAt time.Time
}
