// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Services are pure Go with no CGO. Compression and indexing are
// whole-record replace-on-write: a failed run leaves the previously
// persisted record untouched.
package services
