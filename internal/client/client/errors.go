package client

import "errors"

var (
	ErrUnauthenticated    = errors.New("authentication invalid")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountExists      = errors.New("user already exists")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnavailable        = errors.New("server unavailable")
)
