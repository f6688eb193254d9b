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

// Package match implements the deep, fuzzy-marker-aware comparison
// used by assertion steps.
package match

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Comcast/gauntlet/core"
)

// Matcher implements core.MatchEngine.  Expected-side string values
// starting with '#' are self-validation markers rather than literals:
//
//	#ignore               always passes
//	#null / #notnull      actual must be null / non-null
//	#present / #notpresent by-path existence checks
//	#array / #object      container type checks
//	#boolean / #number / #string
//	#uuid                 lower- or upper-case uuid string
//	#regex RE             entire string must match RE
//	#[n]                  list of length n; '#[]' is any list; an
//	                      expression after the bracket is matched
//	                      against every element
//
// A doubled prefix ('##null', '##regex ...') makes the marker
// optional: a missing or null actual passes.
type Matcher struct{}

// DefaultMatcher is a shared, stateless Matcher.
var DefaultMatcher = &Matcher{}

var uuidRe = regexp.MustCompile(`^(?i)[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}$`)

// Compare is the core.MatchEngine entry point.
func (m *Matcher) Compare(t core.MatchType, actual, expected interface{}) core.MatchResult {
	ok, message := m.compare("$", t, actual, expected)
	if ok {
		return core.MatchResult{Pass: true}
	}
	return core.MatchResult{Pass: false, Message: message}
}

func (m *Matcher) compare(path string, t core.MatchType, actual, expected interface{}) (bool, string) {
	switch t {
	case core.MatchEquals:
		return m.equals(path, actual, expected)
	case core.MatchNotEquals:
		if ok, _ := m.equals(path, actual, expected); ok {
			return false, failure(path, "actual equals expected", actual, expected)
		}
		return true, ""
	case core.MatchContains:
		return m.contains(path, actual, expected)
	case core.MatchNotContains:
		if ok, _ := m.contains(path, actual, expected); ok {
			return false, failure(path, "actual contains expected", actual, expected)
		}
		return true, ""
	case core.MatchContainsOnly:
		return m.containsOnly(path, actual, expected)
	case core.MatchEach:
		list, is := actual.([]interface{})
		if !is {
			return false, failure(path, "actual is not an array", actual, expected)
		}
		for i, item := range list {
			itemPath := path + "[" + strconv.Itoa(i) + "]"
			if ok, message := m.equals(itemPath, item, expected); !ok {
				return false, message
			}
		}
		return true, ""
	}
	return false, "unknown match type"
}

func (m *Matcher) equals(path string, actual, expected interface{}) (bool, string) {
	if marker, is := asMarker(expected); is {
		return m.matchMarker(path, marker, actual)
	}
	if actual == core.NotPresentValue {
		return false, failure(path, "actual path does not exist", actual, expected)
	}
	switch exp := expected.(type) {
	case nil:
		if actual == nil {
			return true, ""
		}
		return false, failure(path, "actual is not null", actual, expected)
	case map[string]interface{}:
		act, is := actual.(map[string]interface{})
		if !is {
			return false, failure(path, "actual is not an object", actual, expected)
		}
		for k, ev := range exp {
			av, have := act[k]
			if !have {
				av = core.NotPresentValue
			}
			if ok, message := m.equals(path+"."+k, av, ev); !ok {
				return false, message
			}
		}
		for k := range act {
			if _, have := exp[k]; !have {
				return false, failure(path+"."+k, "actual has a key not in expected", act[k], expected)
			}
		}
		return true, ""
	case []interface{}:
		act, is := actual.([]interface{})
		if !is {
			return false, failure(path, "actual is not an array", actual, expected)
		}
		if len(act) != len(exp) {
			return false, failure(path,
				fmt.Sprintf("actual array length is %d, expected %d", len(act), len(exp)),
				actual, expected)
		}
		for i, ev := range exp {
			if ok, message := m.equals(path+"["+strconv.Itoa(i)+"]", act[i], ev); !ok {
				return false, message
			}
		}
		return true, ""
	default:
		if scalarEquals(actual, expected) {
			return true, ""
		}
		return false, failure(path, "not equal", actual, expected)
	}
}

func (m *Matcher) contains(path string, actual, expected interface{}) (bool, string) {
	switch exp := expected.(type) {
	case map[string]interface{}:
		act, is := actual.(map[string]interface{})
		if !is {
			return false, failure(path, "actual is not an object", actual, expected)
		}
		for k, ev := range exp {
			av, have := act[k]
			if !have {
				av = core.NotPresentValue
			}
			if ok, message := m.equals(path+"."+k, av, ev); !ok {
				return false, message
			}
		}
		return true, ""
	case []interface{}:
		act, is := actual.([]interface{})
		if !is {
			return false, failure(path, "actual is not an array", actual, expected)
		}
		for i, ev := range exp {
			found := false
			for _, av := range act {
				if ok, _ := m.equals(path, av, ev); ok {
					found = true
					break
				}
			}
			if !found {
				return false, failure(path+"["+strconv.Itoa(i)+"]",
					"actual array does not contain expected item", actual, ev)
			}
		}
		return true, ""
	default:
		// a scalar: treat as a one-item containment check
		if act, is := actual.([]interface{}); is {
			return m.contains(path, act, []interface{}{expected})
		}
		return m.equals(path, actual, expected)
	}
}

func (m *Matcher) containsOnly(path string, actual, expected interface{}) (bool, string) {
	exp, is := expected.([]interface{})
	if !is {
		return m.equals(path, actual, expected)
	}
	act, is := actual.([]interface{})
	if !is {
		return false, failure(path, "actual is not an array", actual, expected)
	}
	if len(act) != len(exp) {
		return false, failure(path,
			fmt.Sprintf("actual array length is %d, expected %d", len(act), len(exp)),
			actual, expected)
	}
	used := make([]bool, len(act))
	for i, ev := range exp {
		found := false
		for j, av := range act {
			if used[j] {
				continue
			}
			if ok, _ := m.equals(path, av, ev); ok {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			return false, failure(path+"["+strconv.Itoa(i)+"]",
				"actual array does not contain expected item", actual, ev)
		}
	}
	return true, ""
}

func asMarker(expected interface{}) (string, bool) {
	s, is := expected.(string)
	if !is || !strings.HasPrefix(s, "#") {
		return "", false
	}
	return s, true
}

func (m *Matcher) matchMarker(path, marker string, actual interface{}) (bool, string) {
	if strings.HasPrefix(marker, "##") {
		if actual == core.NotPresentValue || actual == nil {
			return true, ""
		}
		marker = marker[1:]
	}
	token, rest := marker, ""
	if pos := strings.IndexByte(marker, ' '); pos != -1 {
		token, rest = marker[:pos], strings.TrimSpace(marker[pos+1:])
	}
	notPresent := actual == core.NotPresentValue
	switch token {
	case "#ignore":
		return true, ""
	case "#null":
		if !notPresent && actual == nil {
			return true, ""
		}
		return false, failure(path, "actual is not null", actual, marker)
	case "#notnull":
		if !notPresent && actual != nil {
			return true, ""
		}
		return false, failure(path, "actual is null", actual, marker)
	case "#present":
		if !notPresent {
			return true, ""
		}
		return false, failure(path, "actual path does not exist", actual, marker)
	case "#notpresent":
		if notPresent {
			return true, ""
		}
		return false, failure(path, "actual path exists", actual, marker)
	case "#array":
		if _, is := actual.([]interface{}); is {
			return true, ""
		}
		return false, failure(path, "actual is not an array", actual, marker)
	case "#object":
		if _, is := actual.(map[string]interface{}); is {
			return true, ""
		}
		return false, failure(path, "actual is not an object", actual, marker)
	case "#boolean":
		if _, is := actual.(bool); is {
			return true, ""
		}
		return false, failure(path, "actual is not a boolean", actual, marker)
	case "#number":
		if _, is := asFloat(actual); is {
			return true, ""
		}
		return false, failure(path, "actual is not a number", actual, marker)
	case "#string":
		if _, is := actual.(string); is {
			return true, ""
		}
		return false, failure(path, "actual is not a string", actual, marker)
	case "#uuid":
		if s, is := actual.(string); is && uuidRe.MatchString(s) {
			return true, ""
		}
		return false, failure(path, "actual is not a uuid", actual, marker)
	case "#regex":
		s, is := actual.(string)
		if !is {
			return false, failure(path, "actual is not a string", actual, marker)
		}
		matched, err := regexp.MatchString("^(?:"+rest+")$", s)
		if err != nil {
			return false, failure(path, "bad regex: "+err.Error(), actual, marker)
		}
		if matched {
			return true, ""
		}
		return false, failure(path, "regex did not match", actual, marker)
	}
	if strings.HasPrefix(token, "#[") {
		return m.matchArrayMarker(path, token, rest, actual, marker)
	}
	// Not a marker we know: fall back to literal string equality.
	if s, is := actual.(string); is && s == marker {
		return true, ""
	}
	return false, failure(path, "not equal", actual, marker)
}

func (m *Matcher) matchArrayMarker(path, token, rest string, actual interface{}, marker string) (bool, string) {
	list, is := actual.([]interface{})
	if !is {
		return false, failure(path, "actual is not an array", actual, marker)
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(token, "#["), "]")
	if inner != "" {
		n, err := strconv.Atoi(inner)
		if err != nil {
			return false, failure(path, "bad array length marker", actual, marker)
		}
		if len(list) != n {
			return false, failure(path,
				fmt.Sprintf("actual array length is %d, expected %d", len(list), n),
				actual, marker)
		}
	}
	if rest != "" {
		// match the trailing expression against every element
		return m.compare(path, core.MatchEach, list, rest)
	}
	return true, ""
}

func scalarEquals(actual, expected interface{}) bool {
	if af, is := asFloat(actual); is {
		ef, eis := asFloat(expected)
		return eis && af == ef
	}
	return actual == expected
}

func asFloat(x interface{}) (float64, bool) {
	switch v := x.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

func failure(path, reason string, actual, expected interface{}) string {
	return fmt.Sprintf("%s | %s | actual: %s | expected: %s",
		path, reason, render(actual), render(expected))
}

func render(x interface{}) string {
	if x == core.NotPresentValue {
		return "#notpresent"
	}
	return fmt.Sprintf("%v", x)
}
