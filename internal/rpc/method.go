package rpc

import (
	"fmt"
	"regexp"
	"strings"
)

// SubType groups the methods of a business object by how they are consumed.
type SubType string

// Recognised sub-types.
const (
	SubTypeList     SubType = "list"
	SubTypeDropdown SubType = "dropdown"
	SubTypeCurd     SubType = "curd"
)

// Valid reports whether s is a recognised sub-type.
func (s SubType) Valid() bool {
	switch s {
	case SubTypeList, SubTypeDropdown, SubTypeCurd:
		return true
	}
	return false
}

var segmentPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Method is a parsed "<model-id>.<sub-type>.<method-name>" name.
type Method struct {
	ModelID string
	SubType SubType
	Name    string
}

// ParseMethod parses and validates a dotted method name. Any malformed name
// fails with CodeMethodNotFound.
func ParseMethod(name string) (Method, error) {
	parts := strings.Split(name, ".")
	if len(parts) != 3 {
		return Method{}, NewError(CodeMethodNotFound, "", map[string]any{"method": name, "reason": "expected <model>.<list|dropdown|curd>.<method>"})
	}
	m := Method{ModelID: parts[0], SubType: SubType(parts[1]), Name: parts[2]}
	if !segmentPattern.MatchString(m.ModelID) || !segmentPattern.MatchString(m.Name) {
		return Method{}, NewError(CodeMethodNotFound, "", map[string]any{"method": name, "reason": "invalid characters"})
	}
	if !m.SubType.Valid() {
		return Method{}, NewError(CodeMethodNotFound, "", map[string]any{"method": name, "reason": "unknown sub-type " + parts[1]})
	}
	return m, nil
}

// ModelKey is the registry key of the target business object.
func (m Method) ModelKey() string {
	return ModelKey(m.ModelID, m.SubType)
}

func (m Method) String() string {
	return m.ModelKey() + "." + m.Name
}

// ModelKey joins a model id and sub-type into a registry key.
func ModelKey(modelID string, sub SubType) string {
	return modelID + "." + string(sub)
}

// ParseModelKey splits and validates a "<model-id>.<sub-type>" registry key.
func ParseModelKey(key string) (string, SubType, error) {
	m, err := ParseMethod(key + ".x")
	if err != nil {
		return "", "", fmt.Errorf("rpc: invalid model key %q", key)
	}
	return m.ModelID, m.SubType, nil
}
