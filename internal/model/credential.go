// Package model defines the data structures used throughout the application.
package model

import "time"

// Credential is a username + password-hash record used for login.
//
// Nombre is the login name and is unique across credentials. The wire
// format keeps the Spanish field names of the deployed mobile clients,
// so the JSON tag is "nombre" rather than "username".
//
// PasswordHash is the full bcrypt output (salt and cost embedded). It is
// never serialized — the json:"-" tag keeps it out of every response.
type Credential struct {
	ID           string    `json:"_id"`
	Nombre       string    `json:"nombre"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
