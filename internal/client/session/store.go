// Package session persists the CLI's bearer token between invocations.
package session

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dmitrijs2005/weatherdash/internal/filex"
)

// ErrNoToken is returned by Load when nobody is logged in.
var ErrNoToken = errors.New("not logged in")

// Store keeps one token in a file readable only by the owner.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

func (s *Store) Save(token string) error {
	if token == "" {
		return errors.New("empty token")
	}
	return filex.WritePrivate(s.path, []byte(token+"\n"))
}

func (s *Store) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// Clear forgets the stored token. Clearing twice is fine.
func (s *Store) Clear() error {
	return filex.RemoveIfExists(s.path)
}
