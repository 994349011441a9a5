// Package client is the device's transport to the gigbook sync service.
//
// GRPCClient owns the connection and the session tokens. It injects the
// access token into every call, refreshes it transparently when the server
// reports "token expired", and maps gRPC status codes onto sentinel errors
// (ErrUnavailable, ErrUnauthorized, ErrUnauthenticated, ...) so callers can
// match them with errors.Is.
//
// Rows cross this boundary in cloud (snake_case) form; translation to
// device records is the gateway's job.
package client
