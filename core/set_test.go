package core_test

import (
	"strings"
	"testing"
)

func TestSetJSONPath(t *testing.T) {
	e := newTestEngine(t)
	assign(t, e, "doc", `{"a": 1}`)
	if err := e.Set("doc", "$.b", "2"); err != nil {
		t.Fatal(err)
	}
	if got := e.Vars().Get("doc").Map()["b"]; got != int64(2) {
		t.Fatalf("got %#v", got)
	}

	// name-embedded path form
	if err := e.Set("doc.c.d", "", "'deep'"); err != nil {
		t.Fatal(err)
	}
	v, err := e.Eval("$doc.c.d")
	if err != nil {
		t.Fatal(err)
	}
	if v.AsString() != "deep" {
		t.Fatalf("got %s", v)
	}
}

func TestSetGrowsRootList(t *testing.T) {
	e := newTestEngine(t)
	assign(t, e, "list", "[1]")
	if err := e.Set("list", "$[1]", "2"); err != nil {
		t.Fatal(err)
	}
	list := e.Vars().Get("list").List()
	if len(list) != 2 || list[1] != int64(2) {
		t.Fatalf("got %#v", list)
	}
}

func TestSetWholeDocument(t *testing.T) {
	e := newTestEngine(t)
	assign(t, e, "doc", `{"a": 1}`)
	if err := e.Set("doc", "$", `{"b": 2}`); err != nil {
		t.Fatal(err)
	}
	m := e.Vars().Get("doc").Map()
	if _, have := m["a"]; have {
		t.Fatalf("got %#v", m)
	}
	if m["b"] != int64(2) {
		t.Fatalf("got %#v", m)
	}
}

func TestSetOnMissingVariableFails(t *testing.T) {
	e := newTestEngine(t)
	err := e.Set("missing", "$.a", "1")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "variable is null or not set 'missing'") {
		t.Fatalf("got %q", err.Error())
	}
}

func TestRemoveJSONPath(t *testing.T) {
	e := newTestEngine(t)
	assign(t, e, "doc", `{"a": 1, "b": 2}`)
	if err := e.Remove("doc", "$.a"); err != nil {
		t.Fatal(err)
	}
	m := e.Vars().Get("doc").Map()
	if _, have := m["a"]; have {
		t.Fatalf("got %#v", m)
	}
}

func TestSetXMLPath(t *testing.T) {
	e := newTestEngine(t)
	assign(t, e, "cat", "<cat><name>Billie</name></cat>")
	if err := e.Set("cat", "/cat/name", "'Wild'"); err != nil {
		t.Fatal(err)
	}
	v, err := e.Eval("get cat /cat/name")
	if err != nil {
		t.Fatal(err)
	}
	if v.AsString() != "Wild" {
		t.Fatalf("got %s", v)
	}
	if err := e.Remove("cat", "/cat/name"); err != nil {
		t.Fatal(err)
	}
	v, err = e.Eval("get cat /cat/name")
	if err != nil {
		t.Fatal(err)
	}
	if !v.IsNotPresent() {
		t.Fatalf("got %s", v)
	}
}

func TestSetViaTableAutoCreates(t *testing.T) {
	e := newTestEngine(t)
	rows := []map[string]string{
		{"path": "name", "value": "'Billie'"},
		{"path": "age", "value": "4"},
		{"path": "color", "value": ""},     // blank cell: skipped
		{"path": "breed", "value": "null"}, // null: skipped unless parenthesized
		{"path": "chip", "value": "(null)"},
	}
	if err := e.SetViaTable("cat", "$", rows); err != nil {
		t.Fatal(err)
	}
	m := e.Vars().Get("cat").Map()
	if m["name"] != "Billie" {
		t.Fatalf("got %#v", m)
	}
	if m["age"] != int64(4) {
		t.Fatalf("got %#v", m)
	}
	if _, have := m["color"]; have {
		t.Fatal("blank cell should be skipped")
	}
	if _, have := m["breed"]; have {
		t.Fatal("null cell should be skipped")
	}
	if v, have := m["chip"]; !have || v != nil {
		t.Fatal("parenthesized null should be set")
	}
}

func TestSetViaTableNumericColumns(t *testing.T) {
	e := newTestEngine(t)
	rows := []map[string]string{
		{"path": "name", "0": "'Billie'", "1": "'Wild'"},
	}
	if err := e.SetViaTable("cats", "$", rows); err != nil {
		t.Fatal(err)
	}
	m := e.Vars().Get("cats").Map()
	names, is := m["name"].([]interface{})
	if !is || len(names) != 2 {
		t.Fatalf("got %#v", m["name"])
	}
	if names[0] != "Billie" || names[1] != "Wild" {
		t.Fatalf("got %#v", names)
	}
}
