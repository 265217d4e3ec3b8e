// Package client contains the client's transport and local bootstrap.
//
// HTTPClient talks to the RecHub JSON API. Each call returns the decoded
// payload or an error; server-side failures arrive as *APIError, which
// unwraps to the matching sentinel from package common so callers can use
// errors.Is (for example common.ErrUnauthenticated). A request that never
// reached the server is reported as common.ErrUnavailable.
//
// InitDatabase and RunMigrations open the local SQLite database and apply
// the embedded goose migrations; NewRepositories wires the local stores on
// top of it.
package client
