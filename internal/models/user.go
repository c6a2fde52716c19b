package models

import "time"

// AuthProvider identifies how a user account was created.
type AuthProvider string

const (
	ProviderCredentials AuthProvider = "credentials"
	ProviderGoogle      AuthProvider = "google"
	ProviderGithub      AuthProvider = "github"
)

// User represents a user account in the system.
type User struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"` // Never expose this to the client
	Provider     AuthProvider `json:"provider"`
	ProviderID   *string      `json:"providerId,omitempty"`
	Image        *string      `json:"image,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}
