package core

import (
	"fmt"
	"regexp"
	"strings"
)

// Pure, stateless predicates over a trimmed expression string.
// Engine.Eval applies them in a fixed precedence order (first match
// wins); see eval.go.  Do not reorder tests here without also updating
// the classification tests, which pin the documented precedence.

var (
	varAndPathRe = regexp.MustCompile(`^\w+`)
	variableRe   = regexp.MustCompile(`^[a-zA-Z][\w]*$`)
	varSpacePath = regexp.MustCompile(`^[a-zA-Z][\w]*\s+.+`)
	functionRe   = regexp.MustCompile(`^function[^(]*\(`)
	xpathFuncRe  = regexp.MustCompile(`^[a-z-]+\(.+`)
)

// IsCallSyntax reports a "call " prefixed expression.
func IsCallSyntax(text string) bool {
	return strings.HasPrefix(text, "call ")
}

// IsCallOnceSyntax reports a "callonce " prefixed expression.
func IsCallOnceSyntax(text string) bool {
	return strings.HasPrefix(text, "callonce ")
}

// IsGetSyntax reports a "get " or "get[n]" prefixed expression.
func IsGetSyntax(text string) bool {
	return strings.HasPrefix(text, "get ") || strings.HasPrefix(text, "get[")
}

// IsJSON reports text that starts like a JSON literal.
func IsJSON(text string) bool {
	return strings.HasPrefix(text, "{") || strings.HasPrefix(text, "[")
}

// IsXML reports text that starts like markup.
func IsXML(text string) bool {
	return strings.HasPrefix(text, "<")
}

// IsXMLPath reports a rooted XML path.
func IsXMLPath(text string) bool {
	return strings.HasPrefix(text, "/")
}

// IsXMLPathFunction reports an XPath function form such as
// "count(/records//record)".
func IsXMLPathFunction(text string) bool {
	return xpathFuncRe.MatchString(text)
}

// IsJSONPath reports path text that needs JSON-path evaluation even
// without a leading "$": wildcards, deep-scans, and filters.
func IsJSONPath(text string) bool {
	return strings.ContainsRune(text, '*') ||
		strings.Contains(text, "..") ||
		strings.Contains(text, "[?")
}

// IsDollarPrefixed reports a "$" prefix.
func IsDollarPrefixed(text string) bool {
	return strings.HasPrefix(text, "$")
}

// IsDollarPrefixedJSONPath reports a JSON-path rooted at the implicit
// current value: "$.", "$[", or exactly "$".
func IsDollarPrefixedJSONPath(text string) bool {
	return strings.HasPrefix(text, "$.") || strings.HasPrefix(text, "$[") || text == "$"
}

// IsVariable reports a plain variable name.
func IsVariable(text string) bool {
	return variableRe.MatchString(text)
}

// IsVariableAndSpaceAndPath reports "name path" forms.
func IsVariableAndSpaceAndPath(text string) bool {
	return varSpacePath.MatchString(text)
}

// IsWithinParentheses reports "( ... )" wrapping, which users write to
// force whole-expression evaluation.
func IsWithinParentheses(text string) bool {
	return strings.HasPrefix(text, "(") && strings.HasSuffix(text, ")")
}

// IsJavaScriptFunction reports an old-style anonymous function literal.
func IsJavaScriptFunction(text string) bool {
	return functionRe.MatchString(text)
}

// FixJavaScriptFunction normalizes an old-style function literal to the
// canonical anonymous form so the scripting runtime accepts it.
func FixJavaScriptFunction(text string) string {
	if loc := functionRe.FindStringIndex(text); loc != nil {
		return "function(" + text[loc[1]:]
	}
	return text
}

// ParseVariableAndPath splits the leading identifier token from the
// remainder.  If the remainder looks like an XML path or an XPath
// function it is left alone; otherwise it is prefixed with "$" to form
// a JSON-path.  This single routine backs the classifier, set, and
// match path handling, which must never diverge.
func ParseVariableAndPath(text string) (name, path string) {
	loc := varAndPathRe.FindStringIndex(text)
	if loc == nil {
		return text, "$"
	}
	name = text[:loc[1]]
	path = strings.TrimSpace(text[loc[1]:])
	if IsXMLPath(path) || IsXMLPathFunction(path) {
		return name, path
	}
	return name, "$" + path
}

// ParseCallArgs splits a call expression into the called part and the
// (optional) argument part.  A "read(...)" prefix is kept whole even
// though it contains a space-free boundary of its own.
func ParseCallArgs(line string) (called, arg string, err error) {
	if strings.Contains(line, "read(") {
		pos := strings.IndexByte(line, ')')
		if pos == -1 {
			return "", "", fmt.Errorf("failed to parse call arguments: %s", line)
		}
		return line[:pos+1], strings.TrimSpace(line[pos+1:]), nil
	}
	pos := strings.IndexByte(line, ' ')
	if pos == -1 {
		return line, "", nil
	}
	return line[:pos], strings.TrimSpace(line[pos:]), nil
}
