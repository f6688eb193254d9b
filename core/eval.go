package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

// Eval evaluates a step expression against the current scope.  The
// classification precedence is fixed and deliberate:
//
//  1. an exact existing variable name is returned unevaluated, which
//     avoids needless re-parsing (and preserves XML-typed values)
//  2. call / callonce syntax
//  3. "$..." JSON-path rooted at the implicit response
//  4. get-syntax (and bare "$name.path" forms)
//  5. JSON literal
//  6. XML literal
//  7. "/..." XML-path against the response
//  8. everything else goes to the scripting runtime
func (e *Engine) Eval(text string) (*Variable, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return NullVariable, nil
	}
	if e.vars.Has(text) {
		return e.vars.Get(text), nil
	}
	callOnce := IsCallOnceSyntax(text)
	if callOnce || IsCallSyntax(text) {
		var exp string
		if callOnce {
			exp = text[len("callonce "):]
		} else {
			exp = text[len("call "):]
		}
		return e.CallText(callOnce, exp, false)
	}
	if IsDollarPrefixedJSONPath(text) {
		return e.EvalJSONPathOnVariableByName(VarResponse, text)
	}
	if IsGetSyntax(text) || IsDollarPrefixed(text) {
		// get json[*].path / $json[*].path / get /xml/path
		// get xpath-function(expression) / get[n] ...
		index := -1
		switch {
		case strings.HasPrefix(text, "$"):
			text = text[1:]
		case strings.HasPrefix(text, "get["):
			pos := strings.IndexByte(text, ']')
			if pos == -1 {
				return nil, fmt.Errorf("unbalanced get[n] syntax: %s", text)
			}
			i, err := strconv.Atoi(text[4:pos])
			if err != nil {
				return nil, fmt.Errorf("bad get[n] index: %s", text)
			}
			index = i
			text = strings.TrimSpace(text[pos+1:])
		default:
			text = text[len("get "):]
		}
		var left, right string
		if IsDollarPrefixedJSONPath(text) { // edge case: get[0] $..foo
			left, right = VarResponse, text
		} else if strings.HasPrefix(text, "/") {
			// bare xml path: get /xml/path or $/xml/path
			left, right = VarResponse, text
		} else if IsVariableAndSpaceAndPath(text) {
			pos := strings.IndexByte(text, ' ')
			left, right = text[:pos], strings.TrimSpace(text[pos+1:])
		} else {
			left, right = ParseVariableAndPath(text)
		}
		var (
			sv  *Variable
			err error
		)
		if IsXMLPath(right) || IsXMLPathFunction(right) {
			sv, err = e.EvalXMLPathOnVariableByName(left, right)
		} else {
			sv, err = e.EvalJSONPathOnVariableByName(left, right)
		}
		if err != nil {
			return nil, err
		}
		if index != -1 && sv.IsList() {
			if list := sv.List(); index < len(list) {
				return NewVariable(list[index]), nil
			}
		}
		return sv, nil
	}
	if IsJSON(text) {
		x, err := oj.ParseString(text)
		if err != nil {
			// The DSL allows script-style literals (unquoted
			// keys, single quotes), so give the runtime a go
			// before rejecting.
			if e.js != nil {
				if y, jsErr := e.js.Eval("(" + text + ")"); jsErr == nil {
					if v := NewVariable(y); v.IsMap() || v.IsList() {
						return e.EvalEmbeddedExpressions(v), nil
					}
				}
			}
			return nil, fmt.Errorf("invalid json: %v", err)
		}
		return e.EvalEmbeddedExpressions(NewVariable(x)), nil
	}
	if IsXML(text) {
		doc, err := ParseXML(text)
		if err != nil {
			return nil, fmt.Errorf("invalid xml: %v", err)
		}
		return e.EvalEmbeddedExpressions(NewVariable(doc)), nil
	}
	if IsXMLPath(text) {
		return e.EvalXMLPathOnVariableByName(VarResponse, text)
	}
	// Old school function declarations, e.g. function() { }, need
	// normalizing and wrapping before the runtime sees them.
	if IsJavaScriptFunction(text) {
		text = "(" + FixJavaScriptFunction(text) + ")"
	}
	return e.EvalJS(text)
}

// EvalJS sends an expression to the scripting runtime.  A failure is
// wrapped with line-numbered source context, recorded as the scope's
// failure reason, and returned so the step machinery can halt the
// scenario.
func (e *Engine) EvalJS(src string) (*Variable, error) {
	if e.js == nil {
		return nil, errors.New("engine not initialized: no scripting runtime")
	}
	x, err := e.js.Eval(src)
	if err != nil {
		ee := &EvalError{Src: src, Err: err}
		e.SetFailedReason(ee)
		return nil, ee
	}
	return NewVariable(x), nil
}

// ExecuteFunction invokes a function Variable (script or native).
func (e *Engine) ExecuteFunction(v *Variable, args ...interface{}) (*Variable, error) {
	switch v.Kind() {
	case KindFunction:
		x, err := v.Value().(Callable).Call(args...)
		if err != nil {
			return nil, err
		}
		return NewVariable(x), nil
	case KindNative:
		var arg interface{}
		if 0 < len(args) {
			arg = args[0]
		}
		x, err := v.Value().(NativeFunc)(arg)
		if err != nil {
			return nil, err
		}
		return NewVariable(x), nil
	default:
		return nil, fmt.Errorf("expected function, but was: %s", v)
	}
}

// getOrEvalAsMap returns the Variable as a map, executing it first when
// it is a function supplied for lazy evaluation.
func (e *Engine) getOrEvalAsMap(v *Variable) map[string]interface{} {
	if v == nil {
		return nil
	}
	if v.IsFunction() {
		res, err := e.ExecuteFunction(v)
		if err != nil {
			e.Logger.Warnf("lazy config function failed: %v", err)
			return nil
		}
		return res.Map()
	}
	return v.Map()
}

// EvalJSONPath extracts from a Variable by JSON-path.  A definite path
// yields the single match (or NotPresent); an indefinite path
// (wildcard, deep-scan, filter) yields the list of matches.
func (e *Engine) EvalJSONPath(v *Variable, path string) (*Variable, error) {
	data, err := v.ForceJSON()
	if err != nil {
		return nil, err
	}
	x, err := jp.ParseString(path)
	if err != nil {
		return nil, fmt.Errorf("invalid json path %s: %v", path, err)
	}
	results := x.Get(data)
	if IsJSONPath(path) {
		list := make([]interface{}, len(results))
		copy(list, results)
		return NewVariable(list), nil
	}
	if len(results) == 0 {
		return NotPresent, nil
	}
	return NewVariable(results[0]), nil
}

// EvalXMLPath extracts from an XML Variable by XPath.  No match yields
// NotPresent; one match yields the node's text (or the node itself when
// it has element children); many matches yield a list.
func EvalXMLPath(v *Variable, path string) (*Variable, error) {
	doc, err := v.AsXML()
	if err != nil {
		return nil, err
	}
	if IsXMLPathFunction(path) {
		expr, err := xpath.Compile(path)
		if err != nil {
			return nil, fmt.Errorf("invalid xpath %s: %v", path, err)
		}
		switch r := expr.Evaluate(xmlquery.CreateXPathNavigator(doc)).(type) {
		case float64:
			if strings.HasPrefix(path, "count") {
				return NewVariable(int(r)), nil
			}
			return NewVariable(r), nil
		case string:
			return NewVariable(r), nil
		case bool:
			return NewVariable(r), nil
		}
		// Node-set functions fall through to a plain query.
	}
	nodes, err := xmlquery.QueryAll(doc, path)
	if err != nil {
		return nil, fmt.Errorf("invalid xpath %s: %v", path, err)
	}
	if len(nodes) == 0 {
		return NotPresent, nil
	}
	if len(nodes) == 1 {
		return nodeToValue(nodes[0]), nil
	}
	list := make([]interface{}, len(nodes))
	for i, n := range nodes {
		list[i] = nodeToValue(n).Value()
	}
	return NewVariable(list), nil
}

func nodeToValue(n *xmlquery.Node) *Variable {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			return NewVariable(n)
		}
	}
	// No child elements: assume the text is the intent.
	return NewVariable(n.InnerText())
}

// EvalJSONPathOnVariableByName extracts by JSON-path from a named
// variable.
func (e *Engine) EvalJSONPathOnVariableByName(name, path string) (*Variable, error) {
	v := e.vars.Get(name)
	if v == nil {
		return nil, &NoSuchVariable{Name: name}
	}
	return e.EvalJSONPath(v, path)
}

// EvalXMLPathOnVariableByName extracts by XPath from a named variable.
func (e *Engine) EvalXMLPathOnVariableByName(name, path string) (*Variable, error) {
	v := e.vars.Get(name)
	if v == nil {
		return nil, &NoSuchVariable{Name: name}
	}
	return EvalXMLPath(v, path)
}

// GetVarAsString renders a named variable as a string.
func (e *Engine) GetVarAsString(name string) (string, error) {
	v := e.vars.Get(name)
	if v == nil {
		return "", &NoSuchVariable{Name: name}
	}
	return v.AsString(), nil
}

// AssertTrue evaluates a scripting expression and records a failure
// unless it is strictly true.
func (e *Engine) AssertTrue(exp string) error {
	v, err := e.EvalJS(exp)
	if err != nil {
		return err
	}
	if !v.IsTrue() {
		e.SetFailedReason(fmt.Errorf("did not evaluate to 'true': %s", exp))
	}
	return nil
}

// Print logs the given expressions, if printing is enabled.
func (e *Engine) Print(exps ...string) {
	if !e.Config.PrintEnabled {
		return
	}
	if _, err := e.EvalJS("karate.log('[print]'," + strings.Join(exps, ",") + ")"); err != nil {
		e.Logger.Warnf("print failed: %v", err)
	}
}

// Table evaluates every cell of a row-wise table and binds the result
// list.  Cells that evaluate to null are stripped unless the user
// forced them by parenthesizing, e.g. '(null)'.
func (e *Engine) Table(name string, rows []map[string]string) error {
	result := make([]interface{}, 0, len(rows))
	for _, row := range rows {
		out := make(map[string]interface{}, len(row))
		for k, exp := range row {
			v, err := e.Eval(exp)
			if err != nil {
				return err
			}
			if v.IsNull() && !IsWithinParentheses(exp) {
				continue
			}
			if v.IsString() {
				out[k] = v.AsString()
			} else {
				out[k] = v.Value()
			}
		}
		result = append(result, out)
	}
	e.SetVariable(strings.TrimSpace(name), result)
	return nil
}

// Replace substitutes a <token> placeholder in a named string variable.
func (e *Engine) Replace(name, token, value string) error {
	name = strings.TrimSpace(name)
	text, err := e.GetVarAsString(name)
	if err != nil {
		return err
	}
	replaced, err := e.replacePlaceholderText(text, token, value)
	if err != nil {
		return err
	}
	e.vars.Put(name, NewVariable(replaced))
	return nil
}

// ReplaceTable applies rows of {token, value} replacements to a named
// string variable.
func (e *Engine) ReplaceTable(name string, rows []map[string]string) error {
	name = strings.TrimSpace(name)
	text, err := e.GetVarAsString(name)
	if err != nil {
		return err
	}
	for _, row := range rows {
		token, have := row["token"]
		if !have {
			continue
		}
		if text, err = e.replacePlaceholderText(text, token, row["value"]); err != nil {
			return err
		}
	}
	e.vars.Put(name, NewVariable(text))
	return nil
}

func (e *Engine) replacePlaceholderText(text, token, replaceWith string) (string, error) {
	replaceWith = strings.TrimSpace(replaceWith)
	if replaceWith == "" {
		return text, nil
	}
	v, err := e.Eval(replaceWith)
	if err != nil {
		return "", err
	}
	token = strings.TrimSpace(token)
	if !strings.HasPrefix(token, "<") {
		token = "<" + token + ">"
	}
	return strings.ReplaceAll(text, token, v.AsString()), nil
}
