package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ohler55/ojg/jp"
)

// Set evaluates an expression and writes the result into a named
// variable at a JSON-path or XML-path.
func (e *Engine) Set(name, path, exp string) error {
	return e.setPath(name, path, exp, false, false)
}

// Remove deletes the node at a path within a named variable.
func (e *Engine) Remove(name, path string) error {
	return e.setPath(name, path, "", true, false)
}

// SetPathVariable writes an already-evaluated value at a path.
func (e *Engine) SetPathVariable(name, path string, value *Variable) error {
	return e.setPathValue(name, path, false, value, false, false)
}

func (e *Engine) setPath(name, path, exp string, del, viaTable bool) error {
	value := NullVariable
	if !del {
		v, err := e.Eval(exp)
		if err != nil {
			return err
		}
		value = v
	}
	return e.setPathValue(name, path, IsWithinParentheses(strings.TrimSpace(exp)), value, del, viaTable)
}

func (e *Engine) setPathValue(name, path string, withinParens bool, value *Variable, del, viaTable bool) error {
	name = strings.TrimSpace(name)
	path = strings.TrimSpace(path)
	if viaTable && value.IsNull() && !withinParens {
		// Skip expressions that evaluate to null unless the user
		// forced them by parenthesizing.
		return nil
	}
	if path == "" {
		name, path = ParseVariableAndPath(name)
	}
	target := e.vars.Get(name)
	switch {
	case IsDollarPrefixedJSONPath(path):
		if target == nil || target.IsNull() {
			if !viaTable {
				return fmt.Errorf("variable is null or not set '%s'", name)
			}
			// Auto-create a container as a table convenience.
			if strings.HasPrefix(path, "$[") && !strings.HasPrefix(path, "$['") {
				target = NewVariable([]interface{}{})
			} else {
				target = NewVariable(map[string]interface{}{})
			}
			e.SetVariable(name, target)
		}
		if !target.IsMap() && !target.IsList() {
			return fmt.Errorf("cannot set json path on type: %s", target)
		}
		if path == "$" {
			e.SetVariable(name, value)
			return nil
		}
		// Rebase under a holder map so a root-level list can be
		// regrown; jp cannot extend a slice in place.
		holder := map[string]interface{}{"root": target.Value()}
		x, err := jp.ParseString("$.root" + path[1:])
		if err != nil {
			return fmt.Errorf("invalid json path %s: %v", path, err)
		}
		if del {
			if err := x.Del(holder); err != nil {
				return err
			}
		} else if err := x.Set(holder, value.Value()); err != nil {
			return err
		}
		e.SetVariable(name, holder["root"])
		return nil
	case IsXMLPath(path):
		if target == nil || target.IsNull() {
			if !viaTable {
				return fmt.Errorf("variable is null or not set '%s'", name)
			}
			doc, err := ParseXML("")
			if err != nil {
				return err
			}
			target = NewVariable(doc)
			e.SetVariable(name, target)
		}
		doc := target.XML()
		if doc == nil {
			return fmt.Errorf("cannot set xml path on type: %s", target)
		}
		if del {
			return XMLRemoveByPath(doc, path)
		}
		return XMLSetByPath(doc, path, value)
	default:
		return fmt.Errorf("unexpected path: %s", path)
	}
}

// SetViaTable applies a columnar table of path/value rows, the DSL's
// bulk-set convenience.  A missing target variable is auto-created; a
// blank cell is skipped; a numeric column header is an explicit list
// index.
func (e *Engine) SetViaTable(name, path string, rows []map[string]string) error {
	name = strings.TrimSpace(name)
	path = strings.TrimSpace(path)
	if path == "" {
		name, path = ParseVariableAndPath(name)
		if path == "$" {
			path = ""
		}
	}
	for _, row := range rows {
		append_, have := row["path"]
		if !have {
			continue
		}
		var keys []string
		for k := range row {
			if k != "path" {
				keys = append(keys, k)
			}
		}
		// Go maps don't preserve column order, so positional
		// indexing follows sorted header names.  Numeric headers
		// give explicit indices and are the reliable form.
		sort.Strings(keys)
		columnCount := len(keys)
		for i, key := range keys {
			exp := strings.TrimSpace(row[key])
			if exp == "" {
				continue // blank cell
			}
			var suffix string
			if idx, err := strconv.Atoi(key); err == nil {
				suffix = "[" + strconv.Itoa(idx) + "]"
			} else if 1 < columnCount {
				// Default to the column position as the index.
				suffix = "[" + strconv.Itoa(i) + "]"
			}
			var finalPath string
			if strings.HasPrefix(append_, "/") || strings.HasPrefix(path, "/") {
				if path == "" {
					finalPath = append_ + suffix
				} else {
					finalPath = path + suffix + "/" + append_
				}
			} else {
				base := path
				if base == "" {
					base = "$"
				}
				finalPath = base + suffix + "." + append_
			}
			if err := e.setPath(name, finalPath, exp, false, true); err != nil {
				return err
			}
		}
	}
	return nil
}
