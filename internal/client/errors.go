package client

import "errors"

// Client errors.
var (
	ErrClosed      = errors.New("client: closed")
	ErrNoEndpoints = errors.New("client: no endpoints")
)
