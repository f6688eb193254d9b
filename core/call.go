package core

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// callOnceEntry is one memoized call: the result value plus, for
// shared-scope replay, snapshots of the winner's config and variables.
// done is closed once the winner finishes, so waiters never hold the
// cache lock while the call runs (a call may itself perform a callonce).
type callOnceEntry struct {
	done   chan struct{}
	failed bool

	value  *Variable
	config *Config
	vars   *Vars
}

// CallOnceCache memoizes callonce results by their full expression
// text.  Engines sharing a cache pointer share memoization; the
// zero-value-ish DefaultCallCache is process wide.
type CallOnceCache struct {
	sync.RWMutex
	entries map[string]*callOnceEntry
}

// NewCallOnceCache makes an empty cache.
func NewCallOnceCache() *CallOnceCache {
	return &CallOnceCache{entries: make(map[string]*callOnceEntry)}
}

// DefaultCallCache is shared by all engines that don't opt out.
var DefaultCallCache = NewCallOnceCache()

// CallText evaluates a "call"/"callonce" expression: parses out the
// called part and the optional argument part, resolves both, and
// dispatches.  With sharedScope, a map result is merged into this
// engine's variables.
func (e *Engine) CallText(callOnce bool, exp string, sharedScope bool) (*Variable, error) {
	calledExp, argExp, err := ParseCallArgs(exp)
	if err != nil {
		return nil, err
	}
	called, err := e.Eval(calledExp)
	if err != nil {
		return nil, err
	}
	var arg *Variable
	if argExp != "" {
		if arg, err = e.Eval(argExp); err != nil {
			return nil, err
		}
	}
	if callOnce {
		return e.callOnce(exp, called, arg, sharedScope)
	}
	return e.Call(called, arg, sharedScope)
}

// Call invokes a function or feature value with an optional argument.
// With sharedScope, a map result is merged into this engine's
// variables.
func (e *Engine) Call(called, arg *Variable, sharedScope bool) (*Variable, error) {
	var result *Variable
	var err error
	switch {
	case called.IsFunction():
		if arg == nil {
			result, err = e.ExecuteFunction(called)
		} else {
			result, err = e.ExecuteFunction(called, arg.Value())
		}
	case called.IsFeature():
		result, err = e.callFeature(called, arg, -1, sharedScope)
	default:
		return nil, fmt.Errorf("not a callable feature or js function: %s", called)
	}
	if err != nil {
		return nil, err
	}
	if sharedScope && result.IsMap() {
		e.SetVariables(result.Map())
	}
	return result, nil
}

func (e *Engine) callFeature(called, arg *Variable, index int, sharedScope bool) (*Variable, error) {
	if e.Features == nil {
		return nil, errors.New("no feature runtime configured")
	}
	feature := called.Value().(Feature)
	if arg == nil || arg.IsMap() {
		fr := e.Features.RunFeature(e, feature, arg, index, sharedScope)
		if fr.Failed {
			err := fr.Err
			if err == nil {
				err = fmt.Errorf("feature call failed: %s", feature.Name())
			}
			e.Logger.Errorf("%v", err)
			return nil, err
		}
		if fr.Result == nil {
			return NullVariable, nil
		}
		return fr.Result, nil
	}
	isList := arg.IsList()
	if !isList && !arg.IsFunction() {
		return nil, fmt.Errorf("feature call argument is not a json object or array: %s", arg)
	}
	// A list argument drives one call per item; a function argument is
	// a generator, called with the loop index until it stops returning
	// a map.
	var results []interface{}
	var messages []string
	items := arg.List()
	for i := 0; ; i++ {
		var loopArg *Variable
		if isList {
			if len(items) <= i {
				break
			}
			loopArg = NewVariable(items[i])
		} else {
			var err error
			if loopArg, err = e.ExecuteFunction(arg, i); err != nil {
				messages = append(messages, fmt.Sprintf("feature call loop function failed at index: %d, %v", i, err))
				break
			}
			if !loopArg.IsMap() {
				break
			}
		}
		result, err := e.callFeature(called, loopArg, i, false)
		if err != nil {
			message := fmt.Sprintf("feature call loop failed at index: %d, %v", i, err)
			messages = append(messages, message)
			e.Logger.Errorf("%s", message)
			if !isList {
				// a failing generator would loop forever
				break
			}
			continue
		}
		results = append(results, result.Value())
	}
	if 0 < len(messages) {
		return nil, errors.New(strings.Join(messages, "\n"))
	}
	if results == nil {
		results = []interface{}{}
	}
	return NewVariable(results), nil
}

// callOnce memoizes by the raw expression text.  The first caller (the
// winner) claims the key by parking a pending entry, releases the cache
// lock, runs the call, and publishes by closing the entry; everyone
// after waits on the entry and replays the snapshot.  The lock is never
// held across the call itself, so a callonce inside a callonce works.
// Failures are never cached: the pending entry is withdrawn and every
// waiter loops back to retry.
func (e *Engine) callOnce(key string, called, arg *Variable, sharedScope bool) (*Variable, error) {
	cache := e.CallCache
	cache.RLock()
	entry, have := cache.entries[key]
	cache.RUnlock()
	for {
		if have {
			<-entry.done
			if !entry.failed {
				return e.applyCallOnceEntry(entry, sharedScope)
			}
		}
		cache.Lock()
		if entry, have = cache.entries[key]; have {
			// lost the race; wait on whoever won
			cache.Unlock()
			continue
		}
		entry = &callOnceEntry{done: make(chan struct{})}
		cache.entries[key] = entry
		cache.Unlock()
		break
	}
	result, err := e.Call(called, arg, sharedScope)
	if err != nil {
		cache.Lock()
		delete(cache.entries, key)
		cache.Unlock()
		entry.failed = true
		close(entry.done)
		return nil, err
	}
	entry.value = result.Copy(false)
	entry.config = e.Config.Copy()
	if called.IsFeature() && sharedScope {
		entry.vars = e.CopyVariables(false)
	}
	close(entry.done)
	// the winner keeps the live result; its own scope already holds
	// any shared-scope effects
	return result, nil
}

// applyCallOnceEntry replays a cached callonce.  With shared scope the
// entire variable scope and config are replaced from the snapshot and
// Null is returned; otherwise a copy of the cached value is returned.
func (e *Engine) applyCallOnceEntry(entry *callOnceEntry, sharedScope bool) (*Variable, error) {
	if !sharedScope {
		return entry.value.Copy(false), nil
	}
	replaced := NewVars()
	if entry.vars != nil {
		entry.vars.Each(func(name string, v *Variable) {
			replaced.Put(name, v.Copy(true))
		})
	} else if entry.value != nil && entry.value.IsMap() {
		for k, x := range entry.value.Map() {
			replaced.Put(k, NewVariable(x))
		}
	} else {
		e.Logger.Warnf("callonce result is not a map, ignoring for shared scope: %s", entry.value)
	}
	e.vars = replaced
	e.attachVariables()
	e.SetConfig(entry.config.Copy())
	return NullVariable, nil
}
