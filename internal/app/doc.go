// Package app wires configuration, logging, the renderer connection and a
// session together, and implements the build, replay and stats flows
// independently of the CLI that drives them.
package app
