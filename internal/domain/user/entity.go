// Package user holds the authenticated account entity shared by the HTTP
// Control Plane's auth endpoints and the resource-owner authorization check.
package user

import "time"

type Entity struct {
	ID           string
	Email        string
	PasswordHash string
	FullName     string
	Phone        string
	IsAdmin      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
