// Package schema describes the synced collections and translates rows
// between the device representation (camelCase keys) and the cloud tables
// (snake_case columns).
//
// Every collection owns a declarative Field Map. The maps are validated when
// the package is initialised: a duplicate name or a missing required column
// panics, so a broken table never reaches a running sync.
package schema
