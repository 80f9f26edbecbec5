package domain

import "time"

// User represents a registered account. PasswordHash always carries a bcrypt
// hash, never the plaintext.
type User struct {
	ID           int64
	Name         string
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
