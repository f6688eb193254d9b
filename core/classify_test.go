package core

import (
	"testing"
)

func TestClassifyPredicates(t *testing.T) {
	cases := []struct {
		text string
		want func(string) bool
		is   bool
	}{
		{"call thing", IsCallSyntax, true},
		{"callonce thing", IsCallSyntax, false},
		{"callonce thing", IsCallOnceSyntax, true},
		{"get foo $.bar", IsGetSyntax, true},
		{"get[2] foo $.bar", IsGetSyntax, true},
		{"getfoo", IsGetSyntax, false},
		{`{"a":1}`, IsJSON, true},
		{`[1,2]`, IsJSON, true},
		{`<cat/>`, IsXML, true},
		{"/cat/name", IsXMLPath, true},
		{"count(/cat/scores)", IsXMLPathFunction, true},
		{"substring-after(/a/b, 'x')", IsXMLPathFunction, true},
		{"notAFunction", IsXMLPathFunction, false},
		{"$.foo", IsDollarPrefixedJSONPath, true},
		{"$[0]", IsDollarPrefixedJSONPath, true},
		{"$", IsDollarPrefixedJSONPath, true},
		{"$varName", IsDollarPrefixedJSONPath, false},
		{"$varName", IsDollarPrefixed, true},
		{"foo[*].bar", IsJSONPath, true},
		{"foo..bar", IsJSONPath, true},
		{"foo[?(@.x)]", IsJSONPath, true},
		{"foo.bar", IsJSONPath, false},
		{"foo", IsVariable, true},
		{"foo_1", IsVariable, true},
		{"1foo", IsVariable, false},
		{"foo.bar", IsVariable, false},
		{"foo $.bar", IsVariableAndSpaceAndPath, true},
		{"foo", IsVariableAndSpaceAndPath, false},
		{"(1 + 2)", IsWithinParentheses, true},
		{"1 + 2", IsWithinParentheses, false},
		{"function(a){ return a }", IsJavaScriptFunction, true},
		{"function fn(a){ return a }", IsJavaScriptFunction, true},
		{"funky(a)", IsJavaScriptFunction, false},
	}
	for _, c := range cases {
		if got := c.want(c.text); got != c.is {
			t.Fatalf("classify %q: got %v, wanted %v", c.text, got, c.is)
		}
	}
}

func TestFixJavaScriptFunction(t *testing.T) {
	got := FixJavaScriptFunction("function fn(a){ return a }")
	if got != "function(a){ return a }" {
		t.Fatalf("got %q", got)
	}
	if got := FixJavaScriptFunction("not a function"); got != "not a function" {
		t.Fatalf("got %q", got)
	}
}

func TestParseVariableAndPath(t *testing.T) {
	cases := []struct {
		text, name, path string
	}{
		{"foo", "foo", "$"},
		{"foo.bar", "foo", "$.bar"},
		{"foo[0]", "foo", "$[0]"},
		{"foo[0].bar", "foo", "$[0].bar"},
		{"foo count(/records//r)", "foo", "count(/records//r)"},
		{"foo /cat/name", "foo", "/cat/name"},
	}
	for _, c := range cases {
		name, path := ParseVariableAndPath(c.text)
		if name != c.name || path != c.path {
			t.Fatalf("parse %q: got (%q, %q), wanted (%q, %q)",
				c.text, name, path, c.name, c.path)
		}
	}
}

func TestParseCallArgs(t *testing.T) {
	called, arg, err := ParseCallArgs("fn")
	if err != nil {
		t.Fatal(err)
	}
	if called != "fn" || arg != "" {
		t.Fatalf("got (%q, %q)", called, arg)
	}

	called, arg, err = ParseCallArgs("fn { a: 1 }")
	if err != nil {
		t.Fatal(err)
	}
	if called != "fn" || arg != "{ a: 1 }" {
		t.Fatalf("got (%q, %q)", called, arg)
	}

	called, arg, err = ParseCallArgs("read('other.feature') { a: 1 }")
	if err != nil {
		t.Fatal(err)
	}
	if called != "read('other.feature')" || arg != "{ a: 1 }" {
		t.Fatalf("got (%q, %q)", called, arg)
	}

	if _, _, err = ParseCallArgs("read('broken"); err == nil {
		t.Fatal("expected an error")
	}
}
