// Package cli provides the interactive RecHub command-line client.
//
// It wires configuration, the local database, the API services and a REPL.
// The saved session is restored at start, so a user stays logged in across
// restarts until "logout". Guests can browse programs and enroll; staff
// commands (seed, stats, summary, email) depend on the role the server
// assigned.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App, StartOnlineStatusWatcher, and runREPL for details.
package cli
