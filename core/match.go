package core

import (
	"errors"
	"strings"
)

// NotPresentValue is what the match engine sees as the actual value
// when a path did not resolve.  Distinct from nil so "#notpresent"
// markers can tell absence from null.
var NotPresentValue interface{} = notPresent{}

type notPresent struct{}

func (notPresent) String() string { return "#notpresent" }

// Match evaluates both sides of a match step and records (never
// throws) a failure on mismatch, deferring propagation to the step
// machinery so embed/cleanup logic still runs.
func (e *Engine) Match(t MatchType, expression, path, expected string) error {
	mr, err := e.MatchText(t, expression, path, expected)
	if err != nil {
		return err
	}
	if !mr.Pass {
		e.SetFailedReason(errors.New(mr.Message))
	}
	return nil
}

// MatchText resolves the left-hand side of a match: the LHS may be a
// variable name, a name-plus-path, a bare path against the response,
// or an arbitrary scripting expression.  The precedence below mirrors
// the expression classifier and is pinned by tests; the parenthesis
// and trailing-call heuristics are known to be syntactic, so when in
// doubt users wrap the LHS in parentheses to force script evaluation.
func (e *Engine) MatchText(t MatchType, expression, path, rhs string) (MatchResult, error) {
	name := strings.TrimSpace(expression)
	if IsDollarPrefixedJSONPath(name) || IsXMLPath(name) {
		path = name
		name = VarResponse
	}
	// In case someone used the dollar prefix by mistake on the LHS.
	name = strings.TrimPrefix(name, "$")
	path = strings.TrimSpace(path)
	if path == "" {
		name, path = ParseVariableAndPath(name)
	}
	if name == "header" {
		// Convenience shortcut for asserting against a response
		// header.
		return e.MatchText(t, VarResponseHeaders, "$['"+path+"'][0]", rhs)
	}
	var (
		actual *Variable
		err    error
	)
	if IsXMLPathFunction(path) ||
		(!strings.HasPrefix(name, "(") && !strings.HasSuffix(path, ")") && !strings.Contains(path, ").")) &&
			(IsDollarPrefixed(path) || IsJSONPath(path) || IsXMLPath(path)) {
		if actual, err = e.Eval(name); err != nil {
			return MatchResult{}, err
		}
		if !actual.IsMap() && !actual.IsList() && !actual.IsXML() &&
			!IsXMLPath(path) && !IsXMLPathFunction(path) {
			// Edge case, e.g. a property getter expression:
			// fall back to script evaluation of the whole LHS.
			if actual, err = e.Eval(expression); err != nil {
				return MatchResult{}, err
			}
			path = "$"
		}
	} else {
		if actual, err = e.Eval(expression); err != nil {
			return MatchResult{}, err
		}
		path = "$"
	}
	if path != "$" && path != "/" {
		if IsDollarPrefixed(path) {
			actual, err = e.EvalJSONPath(actual, path)
		} else {
			actual, err = EvalXMLPath(actual, path)
		}
		if err != nil {
			return MatchResult{}, err
		}
	}
	expected, err := e.Eval(rhs)
	if err != nil {
		return MatchResult{}, err
	}
	return e.Compare(t, actual, expected), nil
}

// Compare hands two Variables to the match-engine collaborator.
func (e *Engine) Compare(t MatchType, actual, expected *Variable) MatchResult {
	if e.Matcher == nil {
		return MatchResult{Pass: false, Message: "no match engine configured"}
	}
	return e.Matcher.Compare(t, matchValue(actual), matchValue(expected))
}

func matchValue(v *Variable) interface{} {
	switch v.Kind() {
	case KindNotPresent:
		return NotPresentValue
	case KindXML:
		return XMLToMap(v.XML())
	default:
		return v.Value()
	}
}
