package core

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/jsccast/yaml"
	"github.com/ohler55/ojg/oj"
)

// VarKind tags a Variable's payload.
type VarKind int

const (
	KindNull VarKind = iota
	KindBool
	KindNumber
	KindString
	KindBytes
	KindList
	KindMap
	KindXML
	KindFunction   // live Callable, bound to a scripting context
	KindNative     // NativeFunc
	KindFuncSource // detached function (portable source text)
	KindFeature
	KindNotPresent // a path that did not resolve; distinct from null
)

func (k VarKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindXML:
		return "xml"
	case KindFunction:
		return "function"
	case KindNative:
		return "native"
	case KindFuncSource:
		return "function-source"
	case KindFeature:
		return "feature"
	case KindNotPresent:
		return "not-present"
	}
	return "unknown"
}

// Variable is the engine's tagged value type.  Payloads are
// immutable-by-convention: anything handed across a trust boundary
// (call results, callonce cache entries) gets copied first.
type Variable struct {
	kind    VarKind
	payload interface{}
}

var (
	// NullVariable is the shared null value.
	NullVariable = &Variable{kind: KindNull}

	// NotPresent signals "path did not resolve" without failing.
	NotPresent = &Variable{kind: KindNotPresent}
)

// NewVariable wraps a plain Go value.  Unknown types are canonicalized
// via a JSON round trip, which is lossy on purpose.
func NewVariable(x interface{}) *Variable {
	switch v := x.(type) {
	case nil:
		return NullVariable
	case *Variable:
		if v == nil {
			return NullVariable
		}
		return v
	case bool:
		return &Variable{KindBool, v}
	case int:
		return &Variable{KindNumber, int64(v)}
	case int8:
		return &Variable{KindNumber, int64(v)}
	case int16:
		return &Variable{KindNumber, int64(v)}
	case int32:
		return &Variable{KindNumber, int64(v)}
	case int64:
		return &Variable{KindNumber, v}
	case uint:
		return &Variable{KindNumber, int64(v)}
	case uint32:
		return &Variable{KindNumber, int64(v)}
	case uint64:
		return &Variable{KindNumber, int64(v)}
	case float32:
		return &Variable{KindNumber, float64(v)}
	case float64:
		return &Variable{KindNumber, v}
	case string:
		return &Variable{KindString, v}
	case []byte:
		return &Variable{KindBytes, v}
	case []interface{}:
		return &Variable{KindList, v}
	case map[string]interface{}:
		return &Variable{KindMap, v}
	case *xmlquery.Node:
		return &Variable{KindXML, v}
	case Callable:
		return &Variable{KindFunction, v}
	case NativeFunc:
		return &Variable{KindNative, v}
	case func(arg interface{}) (interface{}, error):
		return &Variable{KindNative, NativeFunc(v)}
	case FuncSource:
		return &Variable{KindFuncSource, v}
	case Feature:
		return &Variable{KindFeature, v}
	default:
		if y, err := canonicalize(x); err == nil {
			return NewVariable(y)
		}
		return &Variable{KindString, fmt.Sprintf("%v", x)}
	}
}

// canonicalize forces a value into JSON-shaped Go types.
func canonicalize(x interface{}) (interface{}, error) {
	js, err := json.Marshal(&x)
	if err != nil {
		return nil, err
	}
	return oj.ParseString(string(js))
}

// Kind reports the payload tag.
func (v *Variable) Kind() VarKind { return v.kind }

// Value returns the raw payload.
func (v *Variable) Value() interface{} { return v.payload }

func (v *Variable) IsNull() bool       { return v.kind == KindNull }
func (v *Variable) IsNotPresent() bool { return v.kind == KindNotPresent }
func (v *Variable) IsString() bool     { return v.kind == KindString }
func (v *Variable) IsMap() bool        { return v.kind == KindMap }
func (v *Variable) IsList() bool       { return v.kind == KindList }
func (v *Variable) IsXML() bool        { return v.kind == KindXML }
func (v *Variable) IsBytes() bool      { return v.kind == KindBytes }
func (v *Variable) IsFeature() bool    { return v.kind == KindFeature }

// IsFunction is true for both script and native functions.
func (v *Variable) IsFunction() bool {
	return v.kind == KindFunction || v.kind == KindNative
}

// IsTrue is strict: only a boolean true payload qualifies.
func (v *Variable) IsTrue() bool {
	b, is := v.payload.(bool)
	return is && b
}

// Map returns the payload as a map, or nil.
func (v *Variable) Map() map[string]interface{} {
	m, _ := v.payload.(map[string]interface{})
	return m
}

// List returns the payload as a list, or nil.
func (v *Variable) List() []interface{} {
	l, _ := v.payload.([]interface{})
	return l
}

// XML returns the payload as an XML node, or nil.
func (v *Variable) XML() *xmlquery.Node {
	n, _ := v.payload.(*xmlquery.Node)
	return n
}

// AsString renders the payload for humans and wire use: containers as
// JSON, XML as serialized markup.
func (v *Variable) AsString() string {
	switch v.kind {
	case KindNull, KindNotPresent:
		return ""
	case KindBytes:
		return string(v.payload.([]byte))
	case KindString:
		return v.payload.(string)
	case KindList, KindMap:
		return oj.JSON(v.payload)
	case KindXML:
		return XMLToString(v.XML())
	case KindNumber:
		if n, is := v.payload.(int64); is {
			return strconv.FormatInt(n, 10)
		}
		return strconv.FormatFloat(v.payload.(float64), 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.payload.(bool))
	case KindFunction:
		return v.payload.(Callable).Source()
	case KindFuncSource:
		return v.payload.(FuncSource).Source
	default:
		return fmt.Sprintf("%v", v.payload)
	}
}

// AsInt coerces the payload to an int, parsing strings if needed.
func (v *Variable) AsInt() int {
	switch n := v.payload.(type) {
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return int(f)
		}
	}
	return 0
}

// AsBytes renders the payload as a byte sequence.
func (v *Variable) AsBytes() []byte {
	if v.kind == KindBytes {
		return v.payload.([]byte)
	}
	return []byte(v.AsString())
}

// AsXML returns the payload as an XML document, converting a map
// payload into markup when necessary.
func (v *Variable) AsXML() (*xmlquery.Node, error) {
	switch v.kind {
	case KindXML:
		return v.XML(), nil
	case KindMap:
		return MapToXML(v.Map()), nil
	case KindString, KindBytes:
		return ParseXML(v.AsString())
	default:
		return nil, fmt.Errorf("cannot convert to xml: %s", v)
	}
}

// ForceJSON returns the payload parsed as JSON-shaped data.  A string
// or byte payload is parsed; an XML payload is converted to a map.
func (v *Variable) ForceJSON() (interface{}, error) {
	switch v.kind {
	case KindString, KindBytes:
		return oj.ParseString(v.AsString())
	case KindXML:
		return XMLToMap(v.XML()), nil
	default:
		return v.payload, nil
	}
}

// FromYAML parses YAML text into a Variable.
func FromYAML(text string) (*Variable, error) {
	var x interface{}
	if err := yaml.Unmarshal([]byte(text), &x); err != nil {
		return nil, err
	}
	return NewVariable(x), nil
}

// FromCSV parses CSV text, header row first, into a list of maps.
func FromCSV(text string) (*Variable, error) {
	records, err := csv.NewReader(strings.NewReader(text)).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return NewVariable([]interface{}{}), nil
	}
	header := records[0]
	rows := make([]interface{}, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]interface{}, len(header))
		for i, name := range header {
			if i < len(record) {
				row[name] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return NewVariable(rows), nil
}

// Copy clones the Variable.  A deep copy clones every nested container
// (and re-parses XML); a shallow copy clones only the top-level
// container so two scopes don't share a mutable root.
func (v *Variable) Copy(deep bool) *Variable {
	switch v.kind {
	case KindList:
		src := v.List()
		list := make([]interface{}, len(src))
		for i, x := range src {
			if deep {
				list[i] = deepCopyValue(x)
			} else {
				list[i] = x
			}
		}
		return &Variable{KindList, list}
	case KindMap:
		src := v.Map()
		m := make(map[string]interface{}, len(src))
		for k, x := range src {
			if deep {
				m[k] = deepCopyValue(x)
			} else {
				m[k] = x
			}
		}
		return &Variable{KindMap, m}
	case KindXML:
		if deep {
			if n, err := ParseXML(XMLToString(v.XML())); err == nil {
				return &Variable{KindXML, n}
			}
		}
		return &Variable{KindXML, v.XML()}
	default:
		return v
	}
}

func deepCopyValue(x interface{}) interface{} {
	switch v := x.(type) {
	case []interface{}:
		list := make([]interface{}, len(v))
		for i, y := range v {
			list[i] = deepCopyValue(y)
		}
		return list
	case map[string]interface{}:
		m := make(map[string]interface{}, len(v))
		for k, y := range v {
			m[k] = deepCopyValue(y)
		}
		return m
	default:
		return x
	}
}

// String is for diagnostics only.
func (v *Variable) String() string {
	if v == nil {
		return "[nil]"
	}
	return fmt.Sprintf("[type: %s, value: %s]", v.kind, v.AsString())
}
