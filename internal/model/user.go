// Package model defines the data structures shared across the application
// layers. Plain structs with JSON tags — no behaviour lives here.
package model

import "time"

// User is a registered learner account. Authentication is username/email +
// password; the stored hash never leaves the server (json:"-").
type User struct {
	ID           string    `json:"id"        db:"id"`
	Username     string    `json:"username"  db:"username"`
	Email        string    `json:"email"     db:"email"`
	PasswordHash string    `json:"-"         db:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}
