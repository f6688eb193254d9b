package core

// These errors are user errors, not internal errors.

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// errNoRuntime occurs when script evaluation is attempted before Init.
var errNoRuntime = errors.New("no scripting runtime")

// EvalError occurs when the scripting runtime rejects an expression.
// The message carries the offending source with line numbers so a
// failure inside a multi-line function is actually findable.
type EvalError struct {
	Src string
	Err error
}

func (e *EvalError) Error() string {
	var sb strings.Builder
	sb.WriteString(">>>> js failed:\n")
	for i, line := range strings.Split(e.Src, "\n") {
		fmt.Fprintf(&sb, "%02d: %s\n", i+1, line)
	}
	sb.WriteString("<<<<\n")
	sb.WriteString(e.Err.Error())
	return sb.String()
}

func (e *EvalError) Unwrap() error {
	return e.Err
}

// TransportError occurs when the HTTP client fails outright (as opposed
// to returning a response the scenario doesn't like).
type TransportError struct {
	URL     string
	Elapsed time.Duration
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("http call failed after %d milliseconds for url: %s",
		e.Elapsed.Milliseconds(), e.URL)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RetryExhausted occurs when a retry-until condition is still not
// satisfied after the configured number of attempts.
type RetryExhausted struct {
	Count int
}

func (e *RetryExhausted) Error() string {
	return fmt.Sprintf("too many retry attempts: %d", e.Count)
}

// ReservedName occurs on an attempt to assign to a name the engine
// keeps for itself.
type ReservedName struct {
	Name string
	Hint string
}

func (e *ReservedName) Error() string {
	if e.Hint == "" {
		return "'" + e.Name + "' is a reserved name"
	}
	return "'" + e.Name + "' is a reserved name, " + e.Hint
}

// NoSuchVariable occurs when a path expression names a variable that
// isn't in scope.
type NoSuchVariable struct {
	Name string
}

func (e *NoSuchVariable) Error() string {
	return "no variable found with name: " + e.Name
}
