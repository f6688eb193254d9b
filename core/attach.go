package core

// Function values cannot cross scripting-runtime boundaries: a child
// engine gets its own runtime, so functions are "detached" into their
// source text on the way out of a scope and "attached" (re-hydrated
// into live callables) on the way in.  Containers are walked in place.

// attachVariables re-hydrates every function value in the scope into
// this engine's runtime and binds everything by name.
func (e *Engine) attachVariables() {
	e.vars.Each(func(name string, v *Variable) {
		switch v.Kind() {
		case KindFunction:
			if fn, err := e.attachCallable(v.Value().(Callable)); err == nil {
				v = NewVariable(fn)
			} else {
				e.Logger.Warnf("failed to attach function %s: %v", name, err)
			}
		case KindFuncSource:
			src := v.Value().(FuncSource).Source
			if fn, err := e.attachSource(src); err == nil {
				v = NewVariable(fn)
			} else {
				e.Logger.Warnf("failed to attach function %s: %v", name, err)
			}
		case KindMap, KindList:
			e.recurseAndAttach(v.Value())
		}
		e.vars.Put(name, v)
		if e.js != nil {
			e.js.Bind(name, v.Value())
		}
	})
}

// detachVariables snapshots the scope with every function value
// replaced by its portable source form, for handing to a child.
func (e *Engine) detachVariables() *Vars {
	acc := NewVars()
	e.vars.Each(func(name string, v *Variable) {
		switch v.Kind() {
		case KindFunction:
			v = NewVariable(FuncSource{Source: v.Value().(Callable).Source()})
		case KindMap, KindList:
			copied := v.Copy(false)
			recurseAndDetach(copied.Value())
			v = copied
		}
		acc.Put(name, v)
	})
	return acc
}

func (e *Engine) attachCallable(fn Callable) (Callable, error) {
	if e.js == nil {
		return fn, nil
	}
	return e.js.Attach(fn)
}

func (e *Engine) attachSource(src string) (Callable, error) {
	if e.js == nil {
		return nil, &EvalError{Src: src, Err: errNoRuntime}
	}
	return e.js.AttachSource(src)
}

// recurseAndAttach walks a container re-hydrating nested function
// values in place.  It returns a non-nil replacement when the value
// itself had to change, so callers can update the slot.
func (e *Engine) recurseAndAttach(value interface{}) interface{} {
	switch v := value.(type) {
	case Callable:
		if fn, err := e.attachCallable(v); err == nil {
			return fn
		}
		return nil
	case FuncSource:
		if fn, err := e.attachSource(v.Source); err == nil {
			return fn
		}
		return nil
	case map[string]interface{}:
		for k, child := range v {
			if replacement := e.recurseAndAttach(child); replacement != nil {
				v[k] = replacement
			}
		}
		return nil
	case []interface{}:
		for i, child := range v {
			if replacement := e.recurseAndAttach(child); replacement != nil {
				v[i] = replacement
			}
		}
		return nil
	default:
		return nil
	}
}

// recurseAndDetach is the inverse walk: live callables become their
// source form.
func recurseAndDetach(value interface{}) interface{} {
	switch v := value.(type) {
	case Callable:
		return FuncSource{Source: v.Source()}
	case map[string]interface{}:
		for k, child := range v {
			if replacement := recurseAndDetach(child); replacement != nil {
				v[k] = replacement
			}
		}
		return nil
	case []interface{}:
		for i, child := range v {
			if replacement := recurseAndDetach(child); replacement != nil {
				v[i] = replacement
			}
		}
		return nil
	default:
		return nil
	}
}
