// Package model contains domain models/data structures.
// Keep it free of business logic; behavior lives in the service layer.
package model

import "time"

// User is a registered principal that can send and receive documents.
// PasswordHash is never serialized.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
