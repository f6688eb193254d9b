package core

import (
	"fmt"
	"strings"
)

// Reserved variable names a DSL step can depend on.
const (
	VarResponse        = "response"
	VarResponseStatus  = "responseStatus"
	VarResponseHeaders = "responseHeaders"
	VarResponseBytes   = "responseBytes"
	VarResponseType    = "responseType"
	VarResponseCookies = "responseCookies"
	VarResponseTime    = "responseTime"

	VarRequest          = "request"
	VarRequestURLBase   = "requestUrlBase"
	VarRequestURI       = "requestUri"
	VarRequestMethod    = "requestMethod"
	VarRequestHeaders   = "requestHeaders"
	VarRequestTimeStamp = "requestTimeStamp"

	// Hidden bindings; never assignable by a step.
	nameKarate = "karate"
	nameRead   = "read"
)

// Vars is the scope: an insertion-ordered name to Variable mapping,
// exclusively owned by one engine.
type Vars struct {
	keys []string
	m    map[string]*Variable
}

// NewVars makes an empty scope.
func NewVars() *Vars {
	return &Vars{m: make(map[string]*Variable)}
}

// Get returns the Variable bound to name, or nil.
func (vs *Vars) Get(name string) *Variable {
	return vs.m[name]
}

// Has reports whether name is bound.
func (vs *Vars) Has(name string) bool {
	_, have := vs.m[name]
	return have
}

// Put binds name, preserving first-insertion order.
func (vs *Vars) Put(name string, v *Variable) {
	if _, have := vs.m[name]; !have {
		vs.keys = append(vs.keys, name)
	}
	vs.m[name] = v
}

// Each visits bindings in insertion order.
func (vs *Vars) Each(f func(name string, v *Variable)) {
	for _, k := range vs.keys {
		f(k, vs.m[k])
	}
}

// Len reports the number of bindings.
func (vs *Vars) Len() int {
	return len(vs.keys)
}

// Copy clones the scope, copying each Variable.
func (vs *Vars) Copy(deep bool) *Vars {
	acc := NewVars()
	vs.Each(func(k string, v *Variable) {
		acc.Put(k, v.Copy(deep))
	})
	return acc
}

// Engine evaluates step expressions against a variable scope.  One
// engine per scenario thread; children are created for called features
// and share nothing but a detached copy of the scope (and the Config
// reference).
type Engine struct {
	Config *Config
	Logger Logger

	// Matcher is the deep-equality collaborator used by MatchText.
	Matcher MatchEngine

	// Features runs sub-features on the engine's behalf.
	Features FeatureRuntime

	// Read resolves resource names; bound as the hidden "read".
	Read ReadFunction

	// CallCache is the process-wide callonce cache.  Engines that
	// should share memoization share this pointer.
	CallCache *CallOnceCache

	vars     *Vars
	parent   *Engine
	children []*Engine

	js     ScriptRuntime
	http   *requestBuilder
	client HTTPClient

	request  *HTTPRequest
	response *HTTPResponse

	signal *signalSlot

	aborted      bool
	failedReason error
}

// NewEngine makes a root engine.  Call Init on the goroutine that will
// run the scenario before evaluating anything.
func NewEngine(config *Config) *Engine {
	if config == nil {
		config = NewConfig()
	}
	return &Engine{
		Config:    config,
		Logger:    NewLogger(),
		CallCache: DefaultCallCache,
		vars:      NewVars(),
		signal:    newSignalSlot(),
	}
}

// Init creates the scripting runtime and HTTP builder.  It is separate
// from NewEngine because it must run on the thread that owns the
// engine's execution context.
func (e *Engine) Init() {
	if e.Config.RuntimeFactory != nil {
		e.js = e.Config.RuntimeFactory()
	}
	e.attachVariables()
	if e.js != nil {
		e.js.Bind(nameKarate, e.bridge())
		if e.Read != nil {
			e.js.Bind(nameRead, (func(string) (interface{}, error))(e.Read))
		}
	}
	var client HTTPClient
	if e.Config.ClientFactory != nil {
		client = e.Config.ClientFactory(e)
	}
	e.client = client
	e.http = newRequestBuilder()
}

// Child creates a child engine owning a detached copy of this scope.
// Writes on the parent propagate to all live children; a child never
// propagates upward.
func (e *Engine) Child() *Engine {
	child := &Engine{
		Config:    e.Config,
		Logger:    e.Logger,
		Matcher:   e.Matcher,
		Features:  e.Features,
		Read:      e.Read,
		CallCache: e.CallCache,
		vars:      e.detachVariables(),
		parent:    e,
		signal:    newSignalSlot(),
	}
	e.children = append(e.children, child)
	return child
}

// Vars exposes the scope for collaborators (feature runtimes mostly).
func (e *Engine) Vars() *Vars {
	return e.vars
}

// Runtime exposes the scripting runtime collaborator.
func (e *Engine) Runtime() ScriptRuntime {
	return e.js
}

// IsAborted reports whether the scenario asked to stop early.
func (e *Engine) IsAborted() bool { return e.aborted }

// SetAborted marks the scenario as aborted.
func (e *Engine) SetAborted(aborted bool) { e.aborted = aborted }

// IsFailed reports whether a failure reason has been recorded.
func (e *Engine) IsFailed() bool { return e.failedReason != nil }

// FailedReason returns the recorded failure, if any.
func (e *Engine) FailedReason() error { return e.failedReason }

// SetFailedReason records a failure without raising it.  Assertion-type
// operations (status, match, assert) report failures this way so that
// step bookkeeping still runs; the step machinery decides propagation.
func (e *Engine) SetFailedReason(err error) { e.failedReason = err }

// SetVariable binds name in this scope and fans the write out to all
// live children.
func (e *Engine) SetVariable(name string, value interface{}) {
	v := NewVariable(value)
	e.vars.Put(name, v)
	if e.js != nil {
		e.js.Bind(name, v.Value())
	}
	for _, c := range e.children {
		c.SetVariable(name, v)
	}
}

// SetVariables binds every entry of the map.
func (e *Engine) SetVariables(m map[string]interface{}) {
	for k, v := range m {
		e.SetVariable(k, v)
	}
}

// CopyVariables snapshots the scope.
func (e *Engine) CopyVariables(deep bool) *Vars {
	return e.vars.Copy(deep)
}

func validateVariableName(name string) error {
	if !IsVariable(name) {
		return fmt.Errorf("invalid variable name: %s", name)
	}
	if name == nameKarate || name == nameRead {
		return &ReservedName{Name: name}
	}
	if name == VarRequest || name == "url" {
		return &ReservedName{
			Name: name,
			Hint: "use the form '* " + name + " <expression>' instead",
		}
	}
	return nil
}

// AssignType selects the cast applied by Assign.
type AssignType int

const (
	AssignAuto AssignType = iota
	AssignText
	AssignString
	AssignJSON
	AssignXML
	AssignXMLString
	AssignBytes
	AssignYAML
	AssignCSV
	AssignCopy
)

// Assign evaluates an expression and binds the (possibly cast) result.
func (e *Engine) Assign(t AssignType, name, exp string) error {
	name = strings.TrimSpace(name)
	if err := validateVariableName(name); err != nil {
		return err
	}
	if e.vars.Has(name) {
		e.Logger.Warnf("over-writing existing variable '%s' with new value: %s", name, exp)
	}
	if t == AssignText {
		e.SetVariable(name, exp)
		return nil
	}
	v, err := e.evalAndCastTo(t, exp)
	if err != nil {
		return err
	}
	e.SetVariable(name, v)
	return nil
}

func (e *Engine) evalAndCastTo(t AssignType, exp string) (*Variable, error) {
	v, err := e.Eval(exp)
	if err != nil {
		return nil, err
	}
	switch t {
	case AssignBytes:
		return NewVariable(v.AsBytes()), nil
	case AssignString:
		return NewVariable(v.AsString()), nil
	case AssignXML:
		n, err := v.AsXML()
		if err != nil {
			return nil, err
		}
		return NewVariable(n), nil
	case AssignXMLString:
		n, err := v.AsXML()
		if err != nil {
			return nil, err
		}
		return NewVariable(XMLToString(n)), nil
	case AssignJSON:
		x, err := v.ForceJSON()
		if err != nil {
			return nil, err
		}
		return NewVariable(x), nil
	case AssignYAML:
		return FromYAML(v.AsString())
	case AssignCSV:
		return FromCSV(v.AsString())
	case AssignCopy:
		return v.Copy(true), nil
	default: // AssignAuto (AssignText is pre-handled)
		return v, nil
	}
}

// bridge builds the hidden "karate" object exposed to scripts.  Kept
// deliberately small: the full bridge belongs to the scenario layer.
func (e *Engine) bridge() map[string]interface{} {
	return map[string]interface{}{
		"log": func(args ...interface{}) {
			parts := make([]string, len(args))
			for i, x := range args {
				parts[i] = NewVariable(x).AsString()
			}
			e.Logger.Infof("%s", strings.Join(parts, " "))
		},
		"get": func(exp string) (interface{}, error) {
			v, err := e.Eval(exp)
			if err != nil {
				return nil, err
			}
			if v.IsNotPresent() {
				return nil, nil
			}
			return v.Value(), nil
		},
		"set": func(name string, value interface{}) {
			e.SetVariable(name, value)
		},
		"signal": func(result interface{}) {
			e.Signal(result)
		},
	}
}

// InvokeAfterHookIfConfigured runs the configured afterScenario or
// afterFeature function hook, if any.  Hook failures are logged, never
// fatal.
func (e *Engine) InvokeAfterHookIfConfigured(afterFeature bool) {
	v := e.Config.AfterScenario
	prefix := "afterScenario"
	if afterFeature {
		v = e.Config.AfterFeature
		prefix = "afterFeature"
	}
	if v == nil || !v.IsFunction() {
		return
	}
	if _, err := e.ExecuteFunction(v); err != nil {
		e.Logger.Warnf("%s hook failed: %v", prefix, err)
	}
}
