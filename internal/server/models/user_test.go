package models

import (
	"encoding/json"
	"strings"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDigest = "$argon2id$v=19$m=64,t=1,p=1$c2FsdHNhbHRzYWx0$a2V5a2V5a2V5a2V5a2V5a2V5a2V5a2V5a2V5a2V5"

func validUser() User {
	return User{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", PasswordDigest: testDigest}
}

func TestNormalize(t *testing.T) {
	u := User{FirstName: "  Ada ", LastName: "\tLovelace\n", Email: "  Ada@Example.COM "}
	u.Normalize()

	assert.Equal(t, "Ada", u.FirstName)
	assert.Equal(t, "Lovelace", u.LastName)
	assert.Equal(t, "ada@example.com", u.Email)
}

func TestValidate_OK(t *testing.T) {
	u0 := validUser()
	require.NoError(t, u0.Validate())

	u := validUser()
	u.FirstName = strings.Repeat("é", NameMaxLength)
	assert.NoError(t, u.Validate(), "limit counts runes, not bytes")
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(u *User)
		field  string
	}{
		{"missing first name", func(u *User) { u.FirstName = "" }, "firstName"},
		{"long first name", func(u *User) { u.FirstName = strings.Repeat("a", NameMaxLength+1) }, "firstName"},
		{"missing last name", func(u *User) { u.LastName = "" }, "lastName"},
		{"long last name", func(u *User) { u.LastName = strings.Repeat("b", NameMaxLength+1) }, "lastName"},
		{"missing email", func(u *User) { u.Email = "" }, "email"},
		{"malformed email", func(u *User) { u.Email = "not-an-email" }, "email"},
		{"email without domain", func(u *User) { u.Email = "ada@" }, "email"},
		{"plaintext instead of digest", func(u *User) { u.PasswordDigest = "secret1" }, "passwordDigest"},
		{"missing digest", func(u *User) { u.PasswordDigest = "" }, "passwordDigest"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := validUser()
			tt.mutate(&u)

			err := u.Validate()
			require.Error(t, err)

			var errs validation.Errors
			require.ErrorAs(t, err, &errs)
			assert.Contains(t, errs, tt.field)
		})
	}
}

func TestUserJSON_OmitsDigest(t *testing.T) {
	b, err := json.Marshal(validUser())
	require.NoError(t, err)

	assert.NotContains(t, string(b), "argon2id")
	assert.NotContains(t, string(b), "PasswordDigest")
}

func TestProfile(t *testing.T) {
	u := validUser()
	u.ID = "u-1"

	p := u.Profile()
	assert.Equal(t, &Profile{ID: "u-1", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}, p)
}
