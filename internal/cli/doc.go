// Package cli provides the interactive gophvault command-line client.
//
// It drives a vault.Service through a small REPL: create or reset the vault,
// unlock and lock it, manage password entries, recover a forgotten password
// and export encrypted backups. Passwords are read without echo when stdin is
// a terminal.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits or
// input ends.
package cli
