// Package cli provides the interactive teamspace command-line client.
//
// It wires configuration, the local store, the remote client, the sync engine
// and its scheduler, and runs a REPL that keeps working while the server is
// unreachable. Every command reads and writes the local store; the scheduler
// drains queued changes and refreshes the active workspace in the background.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
