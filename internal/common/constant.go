// Package common contains constants and sentinel errors shared by the
// gigbook client and server.
package common

const (
	// AccessTokenHeaderName is the gRPC metadata key carrying the access token.
	AccessTokenHeaderName = "access_token"

	// AdminKeyHeaderName carries the operator key for administrative calls.
	AdminKeyHeaderName = "admin_key"
)
