package core_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/Comcast/gauntlet/core"
	gojart "github.com/Comcast/gauntlet/interpreters/goja"
	"github.com/Comcast/gauntlet/match"
)

func newTestEngine(t *testing.T) *core.Engine {
	t.Helper()
	config := core.NewConfig()
	config.RuntimeFactory = func() core.ScriptRuntime {
		return gojart.New()
	}
	e := core.NewEngine(config)
	e.Matcher = match.DefaultMatcher
	e.CallCache = core.NewCallOnceCache()
	e.Init()
	return e
}

func assign(t *testing.T, e *core.Engine, name, exp string) {
	t.Helper()
	if err := e.Assign(core.AssignAuto, name, exp); err != nil {
		t.Fatal(err)
	}
}

func TestAssignAndEval(t *testing.T) {
	e := newTestEngine(t)
	assign(t, e, "a", "1 + 2")
	v := e.Vars().Get("a")
	if v == nil || v.AsInt() != 3 {
		t.Fatalf("got %s", v)
	}
	got, err := e.Eval("a * 2")
	if err != nil {
		t.Fatal(err)
	}
	if got.AsInt() != 6 {
		t.Fatalf("got %s", got)
	}
}

func TestVariableNamePassthrough(t *testing.T) {
	e := newTestEngine(t)
	assign(t, e, "doc", `{"a":1}`)
	v, err := e.Eval("doc")
	if err != nil {
		t.Fatal(err)
	}
	// the exact scope value, not a re-evaluated copy
	if v != e.Vars().Get("doc") {
		t.Fatal("expected the scope's own variable")
	}
}

func TestAssignReservedNames(t *testing.T) {
	e := newTestEngine(t)
	for _, name := range []string{"karate", "read"} {
		err := e.Assign(core.AssignAuto, name, "1")
		var reserved *core.ReservedName
		if !errors.As(err, &reserved) {
			t.Fatalf("assign %q: got %v", name, err)
		}
	}
	for _, name := range []string{"request", "url"} {
		err := e.Assign(core.AssignAuto, name, "1")
		var reserved *core.ReservedName
		if !errors.As(err, &reserved) {
			t.Fatalf("assign %q: got %v", name, err)
		}
		if !strings.Contains(err.Error(), "'* "+name+" <expression>'") {
			t.Fatalf("assign %q: message %q missing hint", name, err.Error())
		}
	}
	if err := e.Assign(core.AssignAuto, "9lives", "1"); err == nil {
		t.Fatal("expected invalid-name error")
	}
}

func TestAssignText(t *testing.T) {
	e := newTestEngine(t)
	if err := e.Assign(core.AssignText, "raw", "not + evaluated"); err != nil {
		t.Fatal(err)
	}
	if got := e.Vars().Get("raw").AsString(); got != "not + evaluated" {
		t.Fatalf("got %q", got)
	}
}

func TestAssignCasts(t *testing.T) {
	e := newTestEngine(t)

	if err := e.Assign(core.AssignJSON, "j", `'{"a":1}'`); err != nil {
		t.Fatal(err)
	}
	if !e.Vars().Get("j").IsMap() {
		t.Fatalf("got %s", e.Vars().Get("j"))
	}

	if err := e.Assign(core.AssignString, "s", "j"); err != nil {
		t.Fatal(err)
	}
	if got := e.Vars().Get("s").AsString(); got != `{"a":1}` {
		t.Fatalf("got %q", got)
	}

	if err := e.Assign(core.AssignYAML, "y", "'a: 1'"); err != nil {
		t.Fatal(err)
	}
	if !e.Vars().Get("y").IsMap() {
		t.Fatalf("got %s", e.Vars().Get("y"))
	}

	if err := e.Assign(core.AssignCSV, "c", `'name\nBillie\n'`); err != nil {
		t.Fatal(err)
	}
	if !e.Vars().Get("c").IsList() {
		t.Fatalf("got %s", e.Vars().Get("c"))
	}

	if err := e.Assign(core.AssignXML, "x", "'<cat/>'"); err != nil {
		t.Fatal(err)
	}
	if !e.Vars().Get("x").IsXML() {
		t.Fatalf("got %s", e.Vars().Get("x"))
	}

	if err := e.Assign(core.AssignCopy, "k", "j"); err != nil {
		t.Fatal(err)
	}
	e.Vars().Get("k").Map()["a"] = int64(2)
	if e.Vars().Get("j").Map()["a"] == int64(2) {
		t.Fatal("copy should not share structure")
	}
}

func TestSetVariableFansOutToChildren(t *testing.T) {
	e := newTestEngine(t)
	assign(t, e, "a", "1")
	child := e.Child()
	child.Init()

	if child.Vars().Get("a") == nil {
		t.Fatal("child should inherit the parent scope")
	}
	e.SetVariable("b", 2)
	if child.Vars().Get("b") == nil {
		t.Fatal("parent write should fan out to the child")
	}
	child.SetVariable("c", 3)
	if e.Vars().Get("c") != nil {
		t.Fatal("child write should not propagate upward")
	}
}

func TestFunctionSurvivesScopeCrossing(t *testing.T) {
	e := newTestEngine(t)
	assign(t, e, "double", "function(n){ return n * 2 }")
	child := e.Child()
	child.Init()
	got, err := child.Eval("double(21)")
	if err != nil {
		t.Fatal(err)
	}
	if got.AsInt() != 42 {
		t.Fatalf("got %s", got)
	}
}

func TestBridgeGetAndSet(t *testing.T) {
	e := newTestEngine(t)
	assign(t, e, "doc", `{"a":{"b":5}}`)
	got, err := e.Eval("karate.get('doc.a.b')")
	if err != nil {
		t.Fatal(err)
	}
	if got.AsInt() != 5 {
		t.Fatalf("got %s", got)
	}
	if _, err := e.Eval("karate.set('fromScript', 7)"); err != nil {
		t.Fatal(err)
	}
	if v := e.Vars().Get("fromScript"); v == nil || v.AsInt() != 7 {
		t.Fatalf("got %s", v)
	}
}

func TestTable(t *testing.T) {
	e := newTestEngine(t)
	assign(t, e, "one", "1")
	rows := []map[string]string{
		{"a": "one", "b": "'x'", "c": "null"},
		{"a": "2", "b": "'y'", "c": "(null)"},
	}
	if err := e.Table("cats", rows); err != nil {
		t.Fatal(err)
	}
	list := e.Vars().Get("cats").List()
	if len(list) != 2 {
		t.Fatalf("got %d rows", len(list))
	}
	first := list[0].(map[string]interface{})
	if _, have := first["c"]; have {
		t.Fatal("null cell should be stripped")
	}
	second := list[1].(map[string]interface{})
	if v, have := second["c"]; !have || v != nil {
		t.Fatal("parenthesized null should be kept")
	}
}

func TestReplace(t *testing.T) {
	e := newTestEngine(t)
	assign(t, e, "text", "'hello <name>'")
	if err := e.Replace("text", "name", "'world'"); err != nil {
		t.Fatal(err)
	}
	if got := e.Vars().Get("text").AsString(); got != "hello world" {
		t.Fatalf("got %q", got)
	}

	assign(t, e, "letter", "'dear <title> <name>'")
	rows := []map[string]string{
		{"token": "title", "value": "'Dr'"},
		{"token": "name", "value": "'Who'"},
	}
	if err := e.ReplaceTable("letter", rows); err != nil {
		t.Fatal(err)
	}
	if got := e.Vars().Get("letter").AsString(); got != "dear Dr Who" {
		t.Fatalf("got %q", got)
	}
}

func TestAfterScenarioHook(t *testing.T) {
	e := newTestEngine(t)
	if err := e.Configure("afterScenario", "function(){ karate.set('hooked', true) }"); err != nil {
		t.Fatal(err)
	}
	e.InvokeAfterHookIfConfigured(false)
	if v := e.Vars().Get("hooked"); v == nil || !v.IsTrue() {
		t.Fatalf("got %s", v)
	}
}

func TestConfigureRetry(t *testing.T) {
	e := newTestEngine(t)
	if err := e.Configure("retry", "{ count: 5, interval: 100 }"); err != nil {
		t.Fatal(err)
	}
	if e.Config.RetryCount != 5 {
		t.Fatalf("got %d", e.Config.RetryCount)
	}
	if e.Config.RetryInterval.Milliseconds() != 100 {
		t.Fatalf("got %s", e.Config.RetryInterval)
	}
}
