package core

import (
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"
)

// XML plumbing: parse/serialize, map conversion in both directions, and
// the small node surgery the embedded-substitution walker and set-by-path
// need.  xmlquery nodes are plain linked structs, so the surgery is just
// pointer bookkeeping.

// ParseXML parses markup into a document node.
func ParseXML(text string) (*xmlquery.Node, error) {
	return xmlquery.Parse(strings.NewReader(text))
}

// XMLToString serializes a node (or document).
func XMLToString(n *xmlquery.Node) string {
	if n == nil {
		return ""
	}
	return n.OutputXML(true)
}

// FirstElement returns the first element child, descending through a
// document node.
func FirstElement(n *xmlquery.Node) *xmlquery.Node {
	if n == nil {
		return nil
	}
	if n.Type == xmlquery.DocumentNode {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == xmlquery.ElementNode {
				return c
			}
		}
		return nil
	}
	return n
}

// XMLToMap converts an XML tree to a JSON-shaped map.  Repeated child
// element names become lists; leaf elements become their text.
func XMLToMap(n *xmlquery.Node) map[string]interface{} {
	root := FirstElement(n)
	if root == nil {
		return map[string]interface{}{}
	}
	return map[string]interface{}{root.Data: xmlElementToValue(root)}
}

func xmlElementToValue(el *xmlquery.Node) interface{} {
	var children []*xmlquery.Node
	for c := el.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			children = append(children, c)
		}
	}
	if len(children) == 0 {
		return el.InnerText()
	}
	m := make(map[string]interface{}, len(children))
	for _, c := range children {
		v := xmlElementToValue(c)
		if prev, have := m[c.Data]; have {
			if list, is := prev.([]interface{}); is {
				m[c.Data] = append(list, v)
			} else {
				m[c.Data] = []interface{}{prev, v}
			}
		} else {
			m[c.Data] = v
		}
	}
	return m
}

// MapToXML converts a JSON-shaped map to an XML document.  A single-key
// map maps naturally to a root element; anything else is wrapped in
// <root>.
func MapToXML(m map[string]interface{}) *xmlquery.Node {
	doc := &xmlquery.Node{Type: xmlquery.DocumentNode}
	if len(m) == 1 {
		for k, v := range m {
			appendXMLValue(doc, k, v)
		}
	} else {
		root := newElement("root")
		appendChild(doc, root)
		for k, v := range m {
			appendXMLValue(root, k, v)
		}
	}
	return doc
}

func appendXMLValue(parent *xmlquery.Node, name string, value interface{}) {
	switch v := value.(type) {
	case map[string]interface{}:
		el := newElement(name)
		appendChild(parent, el)
		for k, c := range v {
			appendXMLValue(el, k, c)
		}
	case []interface{}:
		for _, c := range v {
			appendXMLValue(parent, name, c)
		}
	default:
		el := newElement(name)
		appendChild(parent, el)
		if v != nil {
			appendChild(el, newText(fmt.Sprintf("%v", v)))
		}
	}
}

func newElement(name string) *xmlquery.Node {
	return &xmlquery.Node{Type: xmlquery.ElementNode, Data: name}
}

func newText(text string) *xmlquery.Node {
	return &xmlquery.Node{Type: xmlquery.TextNode, Data: text}
}

func appendChild(parent, child *xmlquery.Node) {
	child.Parent = parent
	child.NextSibling = nil
	if parent.FirstChild == nil {
		parent.FirstChild = child
		child.PrevSibling = nil
	} else {
		parent.LastChild.NextSibling = child
		child.PrevSibling = parent.LastChild
	}
	parent.LastChild = child
}

func removeNode(n *xmlquery.Node) {
	if n.Parent == nil {
		return
	}
	if n.Parent.FirstChild == n {
		n.Parent.FirstChild = n.NextSibling
	}
	if n.Parent.LastChild == n {
		n.Parent.LastChild = n.PrevSibling
	}
	if n.PrevSibling != nil {
		n.PrevSibling.NextSibling = n.NextSibling
	}
	if n.NextSibling != nil {
		n.NextSibling.PrevSibling = n.PrevSibling
	}
	n.Parent, n.PrevSibling, n.NextSibling = nil, nil, nil
}

func replaceNode(old, with *xmlquery.Node) {
	with.Parent = old.Parent
	with.PrevSibling = old.PrevSibling
	with.NextSibling = old.NextSibling
	if old.PrevSibling != nil {
		old.PrevSibling.NextSibling = with
	}
	if old.NextSibling != nil {
		old.NextSibling.PrevSibling = with
	}
	if old.Parent != nil {
		if old.Parent.FirstChild == old {
			old.Parent.FirstChild = with
		}
		if old.Parent.LastChild == old {
			old.Parent.LastChild = with
		}
	}
	old.Parent, old.PrevSibling, old.NextSibling = nil, nil, nil
}

func removeAllChildren(n *xmlquery.Node) {
	n.FirstChild = nil
	n.LastChild = nil
}

// XMLSetByPath sets the node at an XPath-like path to the given value
// (a node or text), creating missing elements along simple child steps.
func XMLSetByPath(doc *xmlquery.Node, path string, value *Variable) error {
	target, err := xmlquery.Query(doc, path)
	if err != nil {
		return err
	}
	if target == nil {
		if target = createByPath(doc, path); target == nil {
			return fmt.Errorf("cannot create xml path: %s", path)
		}
	}
	if value.IsXML() {
		el := FirstElement(value.XML())
		removeAllChildren(target)
		appendChild(target, el)
		return nil
	}
	if value.IsMap() {
		el := FirstElement(MapToXML(value.Map()))
		removeAllChildren(target)
		appendChild(target, el)
		return nil
	}
	removeAllChildren(target)
	appendChild(target, newText(value.AsString()))
	return nil
}

// XMLRemoveByPath deletes the node at the given path, if present.
func XMLRemoveByPath(doc *xmlquery.Node, path string) error {
	target, err := xmlquery.Query(doc, path)
	if err != nil {
		return err
	}
	if target != nil {
		removeNode(target)
	}
	return nil
}

// createByPath walks simple /a/b/c steps, creating elements as needed.
// Steps with predicates or functions are beyond auto-creation.
func createByPath(doc *xmlquery.Node, path string) *xmlquery.Node {
	node := doc
	for _, step := range strings.Split(strings.TrimPrefix(path, "/"), "/") {
		if step == "" || strings.ContainsAny(step, "[]()@") {
			return nil
		}
		var next *xmlquery.Node
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == xmlquery.ElementNode && c.Data == step {
				next = c
				break
			}
		}
		if next == nil {
			next = newElement(step)
			appendChild(node, next)
		}
		node = next
	}
	if node == doc {
		return nil
	}
	return node
}
