package models

import "time"

const RoleAdmin = "admin"

type User struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture,omitempty"`
	Role    string `json:"role"`
}

// Session is the logged-in operator, persisted under the session key.
type Session struct {
	User      User      `json:"user"`
	TokenID   string    `json:"token_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
