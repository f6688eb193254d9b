package core

import (
	"strings"

	"github.com/antchfx/xmlquery"
)

// Embedded-expression substitution: an inline "#( ... )" placeholder is
// replaced by evaluating its inner text; the "##( ... )" form is
// optional, meaning a null result removes the enclosing map key, list
// element, or XML node.  Evaluation failures are swallowed (trace
// logged) and the original text survives: placeholders can be
// intentionally inert, e.g. assertion pattern markers consumed later by
// the match engine.

func isEmbeddedExpression(text string) bool {
	return (strings.HasPrefix(text, "#(") || strings.HasPrefix(text, "##(")) &&
		strings.HasSuffix(text, ")")
}

type embedAction struct {
	remove bool
	value  interface{}
}

// EvalEmbeddedExpressions walks a string/map/list/xml Variable,
// substituting embedded expressions in place.  It never fails.
func (e *Engine) EvalEmbeddedExpressions(v *Variable) *Variable {
	switch v.Kind() {
	case KindString, KindMap, KindList:
		if ea := e.recurseEmbedded(v); ea != nil {
			if ea.remove {
				return NullVariable
			}
			return NewVariable(ea.value)
		}
		return v
	case KindXML:
		e.recurseXMLEmbedded(FirstElement(v.XML()))
		return v
	default:
		return v
	}
}

func (e *Engine) recurseEmbedded(node *Variable) *embedAction {
	switch node.Kind() {
	case KindList:
		list := node.List()
		removes := make(map[int]bool)
		for i, x := range list {
			if ea := e.recurseEmbedded(NewVariable(x)); ea != nil {
				if ea.remove {
					removes[i] = true
				} else {
					list[i] = ea.value
				}
			}
		}
		if 0 < len(removes) {
			// Removals renumber the list, so rebuild it after
			// the full pass.
			kept := make([]interface{}, 0, len(list)-len(removes))
			for i, x := range list {
				if !removes[i] {
					kept = append(kept, x)
				}
			}
			return &embedAction{value: kept}
		}
		return nil
	case KindMap:
		m := node.Map()
		var removes []string
		for k, x := range m {
			if ea := e.recurseEmbedded(NewVariable(x)); ea != nil {
				if ea.remove {
					removes = append(removes, k)
				} else {
					m[k] = ea.value
				}
			}
		}
		for _, k := range removes {
			delete(m, k)
		}
		return nil
	case KindString:
		value := strings.TrimSpace(node.AsString())
		if !isEmbeddedExpression(value) || e.js == nil {
			return nil
		}
		optional := value[1] == '#'
		if optional {
			value = value[2:]
		} else {
			value = value[1:]
		}
		x, err := e.js.Eval(value)
		if err != nil {
			e.Logger.Tracef("embedded expression failed %s: %v", value, err)
			return nil
		}
		if optional {
			if x == nil {
				return &embedAction{remove: true}
			}
			switch x.(type) {
			case map[string]interface{}, []interface{}:
				// Optional JSON chunks are schema-like
				// references; preserve them verbatim for
				// future match attempts.  Only null and
				// primitive results substitute.
				return nil
			}
		}
		return &embedAction{value: x}
	default:
		return nil
	}
}

func (e *Engine) recurseXMLEmbedded(node *xmlquery.Node) {
	if node == nil || e.js == nil {
		return
	}
	if node.Type == xmlquery.DocumentNode {
		node = FirstElement(node)
		if node == nil {
			return
		}
	}
	var attrs []xmlquery.Attr
	for _, a := range node.Attr {
		value := strings.TrimSpace(a.Value)
		if isEmbeddedExpression(value) {
			optional := value[1] == '#'
			if optional {
				value = value[2:]
			} else {
				value = value[1:]
			}
			x, err := e.js.Eval(value)
			if err != nil {
				e.Logger.Tracef("xml-attribute embedded expression failed, %s: %v", a.Name.Local, err)
			} else if optional && x == nil {
				continue // remove the attribute
			} else {
				a.Value = NewVariable(x).AsString()
			}
		}
		attrs = append(attrs, a)
	}
	node.Attr = attrs

	// Snapshot the children first: substitution splices the tree.
	var children []*xmlquery.Node
	for c := node.FirstChild; c != nil; c = c.NextSibling {
		children = append(children, c)
	}
	var removes []*xmlquery.Node
	for _, child := range children {
		switch child.Type {
		case xmlquery.TextNode, xmlquery.CharDataNode:
			value := strings.TrimSpace(child.Data)
			if !isEmbeddedExpression(value) {
				continue
			}
			optional := value[1] == '#'
			if optional {
				value = value[2:]
			} else {
				value = value[1:]
			}
			x, err := e.js.Eval(value)
			if err != nil {
				e.Logger.Tracef("xml embedded expression failed, %s: %v", node.Data, err)
				continue
			}
			if optional && x == nil {
				removes = append(removes, child)
				continue
			}
			switch xv := x.(type) {
			case map[string]interface{}:
				// An object result is imported as a child
				// subtree, which supports schema
				// substitution by full fragment.
				e.spliceXML(child, FirstElement(MapToXML(xv)))
			case *xmlquery.Node:
				if clone, err := ParseXML(XMLToString(FirstElement(xv))); err == nil {
					e.spliceXML(child, FirstElement(clone))
				}
			default:
				child.Data = NewVariable(x).AsString()
			}
		default:
			if child.FirstChild != nil || 0 < len(child.Attr) {
				e.recurseXMLEmbedded(child)
			}
		}
	}
	for _, textNode := range removes {
		// Always a text node here; drop the element that owned it.
		if textNode.Parent != nil {
			removeNode(textNode.Parent)
		}
	}
}

func (e *Engine) spliceXML(child, evalNode *xmlquery.Node) {
	if evalNode == nil {
		return
	}
	if child.Type == xmlquery.CharDataNode {
		child.Data = XMLToString(evalNode)
	} else {
		replaceNode(child, evalNode)
	}
}
