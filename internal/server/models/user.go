package models

import "time"

// User is an account record. PasswordHash is always "salt&derivedKey" as
// produced by the password package; it is never serialised to clients.
type User struct {
	ID           string
	Name         string
	Slug         string
	Email        string
	PasswordHash string
	IsAdmin      bool
	CreatedAt    time.Time
}
