// Package models defines server-side data models persisted in the database.
package models

import (
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// Field limits.
const (
	NameMaxLength     = 50
	EmailMaxLength    = 254
	PasswordMinLength = 6
	PasswordMaxLength = 128
)

var digestFormat = regexp.MustCompile(`^\$argon2id\$`)

// User is the stored account record. PasswordDigest never leaves the
// server: it is excluded from JSON and must not be logged.
type User struct {
	ID             string    `json:"id"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	Email          string    `json:"email"`
	PasswordDigest string    `json:"-"`
	CreatedAt      time.Time `json:"-"`
}

// Profile is the public view of a User.
type Profile struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// Profile returns the public view of u.
func (u *User) Profile() *Profile {
	return &Profile{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Email: u.Email}
}

// NormalizeEmail trims surrounding whitespace and lower-cases the address.
// Every lookup and write goes through it, which makes uniqueness
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Normalize trims names and normalizes the email in place.
func (u *User) Normalize() {
	u.FirstName = strings.TrimSpace(u.FirstName)
	u.LastName = strings.TrimSpace(u.LastName)
	u.Email = NormalizeEmail(u.Email)
}

// Validate checks the record shape before it is written. It expects a
// normalized record carrying a digest, never a plaintext password.
func (u *User) Validate() error {
	return validation.Errors{
		"firstName":      validation.Validate(u.FirstName, validation.Required, validation.RuneLength(1, NameMaxLength)),
		"lastName":       validation.Validate(u.LastName, validation.Required, validation.RuneLength(1, NameMaxLength)),
		"email":          validation.Validate(u.Email, validation.Required, validation.Length(3, EmailMaxLength), is.Email),
		"passwordDigest": validation.Validate(u.PasswordDigest, validation.Required, validation.Match(digestFormat)),
	}.Filter()
}
