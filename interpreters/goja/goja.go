// Package goja provides the default core.ScriptRuntime, backed by
// Goja, a Go implementation of ECMAScript 5.1+.
//
// See https://github.com/dop251/goja.
package goja

import (
	"fmt"
	"math/rand"
	"net/url"
	"time"

	"github.com/Comcast/gauntlet/core"

	"github.com/dop251/goja"
	"github.com/gorhill/cronexpr"
)

var alphabet = []byte("abcdefghijklmnopqrstuvwxyz0123456789")

func gensym(n int) string {
	bs := make([]byte, n)
	for i := 0; i < len(bs); i++ {
		bs[i] = alphabet[rand.Intn(len(alphabet))]
	}
	return string(bs)
}

// Runtime wraps one goja VM.  A Runtime is owned by exactly one engine
// and is not safe for concurrent use; that's the engine's contract,
// not ours to enforce.
type Runtime struct {
	vm *goja.Runtime
}

// New makes a Runtime with a few utilities pre-installed under "_":
//
//	_.gensym(): generate a random string.
//	_.esc(s): URL query-escape the given string.
//	_.cronNext(expr): the next time matching the cron expression,
//	  in RFC3339Nano UTC.
func New() *Runtime {
	vm := goja.New()
	env := map[string]interface{}{
		"gensym": func() interface{} {
			return gensym(32)
		},
		"esc": func(s string) string {
			return url.QueryEscape(s)
		},
		"cronNext": func(expr string) (string, error) {
			c, err := cronexpr.Parse(expr)
			if err != nil {
				return "", err
			}
			return c.Next(time.Now()).UTC().Format(time.RFC3339Nano), nil
		},
	}
	vm.Set("_", env)
	return &Runtime{vm: vm}
}

// Eval runs the source and exports the result.  A function result is
// wrapped as a core.Callable bound to this VM.
func (r *Runtime) Eval(src string) (interface{}, error) {
	value, err := r.vm.RunString(src)
	if err != nil {
		return nil, err
	}
	return r.export(value), nil
}

func (r *Runtime) export(value goja.Value) interface{} {
	if value == nil {
		return nil
	}
	if fn, is := goja.AssertFunction(value); is {
		return &boundFunc{rt: r, fn: fn, val: value, src: value.String()}
	}
	return value.Export()
}

// Bind makes a value visible to scripts by name.  Function values from
// this VM are unwrapped so scripts can call them directly; foreign
// function values are re-hydrated from source first.
func (r *Runtime) Bind(name string, value interface{}) {
	switch v := value.(type) {
	case *boundFunc:
		if v.rt == r {
			r.vm.Set(name, v.val)
			return
		}
		value = core.FuncSource{Source: v.Source()}
	case core.Callable:
		value = core.FuncSource{Source: v.Source()}
	}
	if fs, is := value.(core.FuncSource); is {
		if fn, err := r.attach(fs.Source); err == nil {
			r.vm.Set(name, fn.val)
		}
		return
	}
	r.vm.Set(name, value)
}

// AttachSource compiles function source into a live Callable on this
// VM.
func (r *Runtime) AttachSource(src string) (core.Callable, error) {
	return r.attach(src)
}

// Attach migrates a Callable to this VM.  One already bound here is
// returned as-is; anything else is recompiled from its source.
func (r *Runtime) Attach(fn core.Callable) (core.Callable, error) {
	if b, is := fn.(*boundFunc); is && b.rt == r {
		return fn, nil
	}
	return r.attach(fn.Source())
}

func (r *Runtime) attach(src string) (*boundFunc, error) {
	value, err := r.vm.RunString("(" + src + ")")
	if err != nil {
		return nil, err
	}
	fn, is := goja.AssertFunction(value)
	if !is {
		return nil, fmt.Errorf("not a function: %s", src)
	}
	return &boundFunc{rt: r, fn: fn, val: value, src: value.String()}, nil
}

// boundFunc is a script function tied to its VM.  Source() is the
// function's text, which is how it survives crossing to another VM.
type boundFunc struct {
	rt  *Runtime
	fn  goja.Callable
	val goja.Value
	src string
}

func (b *boundFunc) Call(args ...interface{}) (interface{}, error) {
	values := make([]goja.Value, len(args))
	for i, a := range args {
		values[i] = b.rt.vm.ToValue(a)
	}
	result, err := b.fn(goja.Undefined(), values...)
	if err != nil {
		return nil, err
	}
	return b.rt.export(result), nil
}

func (b *boundFunc) Source() string { return b.src }
