// Package cli implements the interactive folio client.
//
// On start it restores a persisted session and validates it once, then keeps
// validating in the background. Commands: register, login, profile, status,
// refresh, passwd, logout, help, exit.
package cli
