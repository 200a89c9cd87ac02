package api

import (
	"encoding/json"
	"strconv"
)

type (
	// VarScope separates session-lived from bot-persistent variables
	VarScope string

	// VarType is the declared type of a stored variable value
	VarType string

	// Variable is one typed value in either scope. Values survive a JSON
	// round trip as string, float64, bool, map[string]any or []any
	Variable struct {
		Name  Name     `json:"name"`
		Scope VarScope `json:"scope"`
		Type  VarType  `json:"type"`
		Value any      `json:"value"`
	}

	// Vars is a merged view of variables keyed by name
	Vars map[Name]*Variable
)

const (
	ScopeSession VarScope = "session"
	ScopeBot     VarScope = "bot"
)

const (
	TypeString  VarType = "STRING"
	TypeNumber  VarType = "NUMBER"
	TypeBoolean VarType = "BOOLEAN"
	TypeObject  VarType = "OBJECT"
	TypeArray   VarType = "ARRAY"
)

// TypeOf infers the variable type from a runtime value
func TypeOf(v any) VarType {
	switch v.(type) {
	case string:
		return TypeString
	case float64, int, int64:
		return TypeNumber
	case bool:
		return TypeBoolean
	case []any:
		return TypeArray
	default:
		return TypeObject
	}
}

// NewVariable creates a variable with its type inferred from the value
func NewVariable(name Name, scope VarScope, value any) *Variable {
	return &Variable{
		Name:  name,
		Scope: scope,
		Type:  TypeOf(value),
		Value: value,
	}
}

// String renders the variable value for interpolation. Numbers drop the
// trailing ".0" of whole floats; objects and arrays render as JSON
func (v *Variable) String() string {
	return RenderValue(v.Value)
}

// Number returns the value as a float64 when it is numeric
func (v *Variable) Number() (float64, bool) {
	switch n := v.Value.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Array returns the value as a slice when it is array-typed
func (v *Variable) Array() ([]any, bool) {
	arr, ok := v.Value.([]any)
	return arr, ok
}

// Get returns the variable stored under the given name
func (vs Vars) Get(name Name) (*Variable, bool) {
	v, ok := vs[name]
	return v, ok
}

// RenderValue converts any stored value to its interpolation text
func RenderValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(data)
	}
}
