package client

import "errors"

var (
	ErrUnavailable     = errors.New("server unavailable")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrUnauthenticated = errors.New("not logged in")
	ErrNoMediaURL      = errors.New("media upload produced no url")
)
