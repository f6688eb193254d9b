/* Copyright 2026 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package match

import (
	"strings"
	"testing"

	"github.com/Comcast/gauntlet/core"
)

func obj(pairs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{})
	for i := 0; i < len(pairs); i += 2 {
		m[pairs[i].(string)] = pairs[i+1]
	}
	return m
}

func TestEquals(t *testing.T) {
	m := DefaultMatcher
	cases := []struct {
		actual   interface{}
		expected interface{}
		pass     bool
	}{
		{nil, nil, true},
		{"a", nil, false},
		{"a", "a", true},
		{"a", "b", false},
		{int64(1), float64(1), true},
		{int64(1), int(1), true},
		{float64(1.5), int64(1), false},
		{true, true, true},
		{obj("a", int64(1)), obj("a", int64(1)), true},
		{obj("a", int64(1)), obj("a", int64(2)), false},
		{obj("a", int64(1), "b", int64(2)), obj("a", int64(1)), false},
		{obj("a", int64(1)), obj("a", int64(1), "b", int64(2)), false},
		{[]interface{}{int64(1), int64(2)}, []interface{}{int64(1), int64(2)}, true},
		{[]interface{}{int64(1)}, []interface{}{int64(1), int64(2)}, false},
		{[]interface{}{int64(2), int64(1)}, []interface{}{int64(1), int64(2)}, false},
		{obj("a", obj("b", "c")), obj("a", obj("b", "c")), true},
	}
	for i, c := range cases {
		r := m.Compare(core.MatchEquals, c.actual, c.expected)
		if r.Pass != c.pass {
			t.Fatalf("case %d: got %v (%s)", i, r.Pass, r.Message)
		}
	}
}

func TestEqualsFailureMessageHasPath(t *testing.T) {
	m := DefaultMatcher
	actual := obj("cat", obj("kittens", []interface{}{obj("name", "Bob")}))
	expected := obj("cat", obj("kittens", []interface{}{obj("name", "Wild")}))
	r := m.Compare(core.MatchEquals, actual, expected)
	if r.Pass {
		t.Fatal("expected a failure")
	}
	if !strings.Contains(r.Message, "$.cat.kittens[0].name") {
		t.Fatalf("got %q", r.Message)
	}
	if !strings.Contains(r.Message, "actual: Bob") || !strings.Contains(r.Message, "expected: Wild") {
		t.Fatalf("got %q", r.Message)
	}
}

func TestMarkers(t *testing.T) {
	m := DefaultMatcher
	cases := []struct {
		actual   interface{}
		expected string
		pass     bool
	}{
		{"anything", "#ignore", true},
		{nil, "#null", true},
		{"x", "#null", false},
		{"x", "#notnull", true},
		{nil, "#notnull", false},
		{core.NotPresentValue, "#notnull", false},
		{"x", "#present", true},
		{nil, "#present", true},
		{core.NotPresentValue, "#present", false},
		{core.NotPresentValue, "#notpresent", true},
		{"x", "#notpresent", false},
		{[]interface{}{}, "#array", true},
		{obj(), "#array", false},
		{obj(), "#object", true},
		{true, "#boolean", true},
		{int64(5), "#number", true},
		{float64(5.5), "#number", true},
		{"5", "#number", false},
		{"hello", "#string", true},
		{int64(5), "#string", false},
		{"a9f7a littered", "#uuid", false},
		{"0ae3d1f6-788e-4a8b-a45e-2b1f5f3c88a1", "#uuid", true},
		{"0AE3D1F6-788E-4A8B-A45E-2B1F5F3C88A1", "#uuid", true},
		{"abc123", "#regex [a-z]+\\d+", true},
		{"abc123x", "#regex [a-z]+\\d+", false},
		{123, "#regex \\d+", false},
		{"#weird", "#weird", true}, // unknown markers are literals
		{"other", "#weird", false},
	}
	for i, c := range cases {
		r := m.Compare(core.MatchEquals, c.actual, c.expected)
		if r.Pass != c.pass {
			t.Fatalf("case %d (%v vs %q): got %v (%s)", i, c.actual, c.expected, r.Pass, r.Message)
		}
	}
}

func TestOptionalMarkers(t *testing.T) {
	m := DefaultMatcher
	cases := []struct {
		actual   interface{}
		expected string
		pass     bool
	}{
		{core.NotPresentValue, "##string", true},
		{nil, "##string", true},
		{"hi", "##string", true},
		{int64(5), "##string", false},
		{core.NotPresentValue, "##regex \\d+", true},
		{"123", "##regex \\d+", true},
		{"x", "##regex \\d+", false},
	}
	for i, c := range cases {
		r := m.Compare(core.MatchEquals, c.actual, c.expected)
		if r.Pass != c.pass {
			t.Fatalf("case %d: got %v (%s)", i, r.Pass, r.Message)
		}
	}
}

func TestArrayMarkers(t *testing.T) {
	m := DefaultMatcher
	list := []interface{}{"a", "b", "c"}
	cases := []struct {
		actual   interface{}
		expected string
		pass     bool
	}{
		{list, "#[]", true},
		{list, "#[3]", true},
		{list, "#[2]", false},
		{"a", "#[]", false},
		{list, "#[3] #string", true},
		{[]interface{}{"a", int64(1)}, "#[] #string", false},
	}
	for i, c := range cases {
		r := m.Compare(core.MatchEquals, c.actual, c.expected)
		if r.Pass != c.pass {
			t.Fatalf("case %d: got %v (%s)", i, r.Pass, r.Message)
		}
	}
}

func TestMarkersInsideContainers(t *testing.T) {
	m := DefaultMatcher
	actual := obj("id", "0ae3d1f6-788e-4a8b-a45e-2b1f5f3c88a1", "name", "Billie", "age", int64(5))
	expected := obj("id", "#uuid", "name", "#string", "age", "#number")
	if r := m.Compare(core.MatchEquals, actual, expected); !r.Pass {
		t.Fatal(r.Message)
	}
	// optional marker tolerates the missing key
	expected = obj("id", "#uuid", "name", "#string", "age", "#number", "nick", "##string")
	if r := m.Compare(core.MatchEquals, actual, expected); !r.Pass {
		t.Fatal(r.Message)
	}
	// a required marker on a missing key fails
	expected = obj("id", "#uuid", "name", "#string", "age", "#number", "nick", "#string")
	if r := m.Compare(core.MatchEquals, actual, expected); r.Pass {
		t.Fatal("expected a failure")
	}
}

func TestContains(t *testing.T) {
	m := DefaultMatcher
	actual := obj("a", int64(1), "b", int64(2), "c", obj("d", int64(3)))
	if r := m.Compare(core.MatchContains, actual, obj("b", int64(2))); !r.Pass {
		t.Fatal(r.Message)
	}
	if r := m.Compare(core.MatchContains, actual, obj("b", int64(9))); r.Pass {
		t.Fatal("expected a failure")
	}

	list := []interface{}{int64(1), int64(2), int64(3)}
	if r := m.Compare(core.MatchContains, list, []interface{}{int64(3), int64(1)}); !r.Pass {
		t.Fatal(r.Message)
	}
	if r := m.Compare(core.MatchContains, list, []interface{}{int64(4)}); r.Pass {
		t.Fatal("expected a failure")
	}
	// scalar expected against a list is a one-item containment check
	if r := m.Compare(core.MatchContains, list, int64(2)); !r.Pass {
		t.Fatal(r.Message)
	}
}

func TestNotContains(t *testing.T) {
	m := DefaultMatcher
	list := []interface{}{int64(1), int64(2)}
	if r := m.Compare(core.MatchNotContains, list, []interface{}{int64(4)}); !r.Pass {
		t.Fatal(r.Message)
	}
	r := m.Compare(core.MatchNotContains, list, []interface{}{int64(2)})
	if r.Pass {
		t.Fatal("expected a failure")
	}
	if !strings.Contains(r.Message, "actual contains expected") {
		t.Fatalf("got %q", r.Message)
	}
}

func TestContainsOnly(t *testing.T) {
	m := DefaultMatcher
	list := []interface{}{int64(1), int64(2), int64(3)}
	if r := m.Compare(core.MatchContainsOnly, list, []interface{}{int64(3), int64(1), int64(2)}); !r.Pass {
		t.Fatal(r.Message)
	}
	if r := m.Compare(core.MatchContainsOnly, list, []interface{}{int64(1), int64(2)}); r.Pass {
		t.Fatal("expected a length failure")
	}
	if r := m.Compare(core.MatchContainsOnly, list, []interface{}{int64(1), int64(2), int64(4)}); r.Pass {
		t.Fatal("expected a failure")
	}
	// duplicates must pair one to one
	if r := m.Compare(core.MatchContainsOnly,
		[]interface{}{int64(1), int64(1)},
		[]interface{}{int64(1), int64(2)}); r.Pass {
		t.Fatal("expected a failure")
	}
}

func TestEach(t *testing.T) {
	m := DefaultMatcher
	list := []interface{}{
		obj("id", int64(1), "name", "a"),
		obj("id", int64(2), "name", "b"),
	}
	if r := m.Compare(core.MatchEach, list, obj("id", "#number", "name", "#string")); !r.Pass {
		t.Fatal(r.Message)
	}
	list = append(list, obj("id", "three", "name", "c"))
	r := m.Compare(core.MatchEach, list, obj("id", "#number", "name", "#string"))
	if r.Pass {
		t.Fatal("expected a failure")
	}
	if !strings.Contains(r.Message, "$[2].id") {
		t.Fatalf("got %q", r.Message)
	}
	if r := m.Compare(core.MatchEach, "not a list", obj()); r.Pass {
		t.Fatal("expected a failure")
	}
}

func TestNotEquals(t *testing.T) {
	m := DefaultMatcher
	if r := m.Compare(core.MatchNotEquals, int64(1), int64(2)); !r.Pass {
		t.Fatal(r.Message)
	}
	r := m.Compare(core.MatchNotEquals, int64(1), float64(1))
	if r.Pass {
		t.Fatal("expected a failure")
	}
	if !strings.Contains(r.Message, "actual equals expected") {
		t.Fatalf("got %q", r.Message)
	}
}

func TestNotPresentRendering(t *testing.T) {
	m := DefaultMatcher
	r := m.Compare(core.MatchEquals, obj(), obj("missing", "#present"))
	if r.Pass {
		t.Fatal("expected a failure")
	}
	if !strings.Contains(r.Message, "#notpresent") {
		t.Fatalf("got %q", r.Message)
	}
}
