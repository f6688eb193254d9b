// Package gauntlet provides the runtime core of a declarative
// scenario-execution engine for API-level testing.
//
// The engine itself is in package 'core', its default collaborators are
// in 'interpreters/goja', 'match', and 'web', and a small step shell is
// in `cmd/gauntlet`.
//
// See https://github.com/Comcast/gauntlet/blob/master/README.md for
// more.
package gauntlet
