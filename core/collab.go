package core

// External collaborator contracts.  The engine drives these; it does
// not implement them.  Defaults live in interpreters/goja, match, and
// web.

// ScriptRuntime is the embedded scripting engine.  A runtime instance
// is bound to one execution context and is not safe for use from more
// than one goroutine; see Engine.Child and the detach/attach walk in
// attach.go for how values migrate between contexts.
type ScriptRuntime interface {
	// Eval evaluates source text and returns a plain Go value:
	// nil, bool, int64/float64, string, []interface{},
	// map[string]interface{}, or a Callable for function results.
	Eval(src string) (interface{}, error)

	// Bind makes the value visible to subsequent evaluations under
	// the given name.
	Bind(name string, value interface{})

	// AttachSource compiles function source text against this
	// runtime's context.
	AttachSource(src string) (Callable, error)

	// Attach rebinds a Callable (possibly from another context) to
	// this runtime's context.
	Attach(fn Callable) (Callable, error)
}

// Callable is a live script function bound to a runtime context.  It
// must only be invoked from the goroutine that owns that context.
type Callable interface {
	Call(args ...interface{}) (interface{}, error)

	// Source returns the function's source text, which is what
	// survives a detach.
	Source() string
}

// NativeFunc is a Go function exposed as a callable value, taking zero
// or one argument.
type NativeFunc func(arg interface{}) (interface{}, error)

// FuncSource is the portable, context-free form of a script function.
// Attach turns it back into a Callable.
type FuncSource struct {
	Source string
}

// MatchType selects how the match engine compares two values.
type MatchType int

const (
	MatchEquals MatchType = iota
	MatchNotEquals
	MatchContains
	MatchNotContains
	MatchContainsOnly
	MatchEach
)

func (t MatchType) String() string {
	switch t {
	case MatchEquals:
		return "equals"
	case MatchNotEquals:
		return "not equals"
	case MatchContains:
		return "contains"
	case MatchNotContains:
		return "not contains"
	case MatchContainsOnly:
		return "contains only"
	case MatchEach:
		return "each"
	}
	return "unknown"
}

// MatchResult is the match engine's verdict.
type MatchResult struct {
	Pass    bool
	Message string
}

// MatchEngine is the deep-equality collaborator.
type MatchEngine interface {
	Compare(t MatchType, actual, expected interface{}) MatchResult
}

// Feature is an opaque sub-scenario definition.  The engine never
// looks inside; it only hands it to the FeatureRuntime.
type Feature interface {
	Name() string
}

// FeatureResult is what running a feature produces.
type FeatureResult struct {
	// Result holds the called feature's resulting variables (a map
	// Variable) on success.
	Result *Variable

	Failed bool
	Err    error
}

// FeatureRuntime runs a sub-feature to completion on behalf of a
// calling engine.
type FeatureRuntime interface {
	RunFeature(caller *Engine, f Feature, arg *Variable, index int, sharedScope bool) FeatureResult
}

// ReadFunction resolves a resource name (usually a file) into a value.
// It is bound into the scripting runtime as the hidden name "read".
type ReadFunction func(name string) (interface{}, error)
