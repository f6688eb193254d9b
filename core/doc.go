// Package core is the runtime heart of a declarative scenario-execution
// engine for API-level testing.
//
// A step expression enters Engine.Eval, which classifies it (variable
// reference, call/callonce, JSON-path, XML-path, JSON or XML literal, or
// a scripting expression) and routes it to the right evaluator.  Results
// land in the engine's variable scope, where nested child scopes can see
// them.  The engine also orchestrates HTTP invocation with retry
// semantics, feature calls with looping and call-once memoization, a
// signal/listen primitive for asynchronous hand-offs, and the
// detach/attach dance that lets a scope migrate between scripting
// contexts.
//
// The embedded scripting runtime, match engine, HTTP transport, and
// feature runtime are external collaborators consumed via the narrow
// interfaces in this package.  Default implementations live in
// interpreters/goja, match, and web.
package core
