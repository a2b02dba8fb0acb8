package models

import "time"

// User represents a registered user and their API credential.
type User struct {
	ID        string    `json:"id"`
	TokenHash string    `json:"-"` // bcrypt hash of the token secret
	CreatedAt time.Time `json:"createdAt"`
}
