// Package cli is the gigbook command-line client.
//
// Every invocation opens the device database, restores the saved session and
// runs one cobra command. Record commands (add, edit, list, show, delete)
// work offline; their cloud pushes run in the background and finish before
// the process exits. sync, merge and upload need a session and a reachable
// server.
package cli
