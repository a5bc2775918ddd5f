// Package internal holds identifier generation and email canonicalization
// helpers shared by the engine and store implementations. Nothing here is
// part of the public API.
package internal
