package schema

import (
	"fmt"
	"strings"
)

// ValidationError reports a payload that does not satisfy the attribute
// tree: a missing required field, a type mismatch, or an unknown attribute
// in strict mode. Field is the full path to the offending node, including
// the element index for multi-valued attributes (e.g. "emails[1].value").
type ValidationError struct {
	Field    string
	Index    int // failing element index for multi-valued attributes, -1 otherwise
	Detail   string
	Provided any
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %q: %s", e.Field, e.Detail)
}

// CanonicalValueError reports a value outside an attribute's closed set.
type CanonicalValueError struct {
	Field    string
	Index    int
	Provided any
	Allowed  []string
}

func (e *CanonicalValueError) Error() string {
	return fmt.Sprintf("invalid value for %q: %v is not one of [%s]",
		e.Field, e.Provided, strings.Join(e.Allowed, ", "))
}

// Validate checks a write payload against an attribute tree. In strict mode
// attributes absent from the tree are rejected; otherwise they pass through
// untouched. The first failure aborts the whole write.
func Validate(attrs []Attribute, payload map[string]any, strict bool) error {
	return validateObject(attrs, payload, strict, "")
}

func validateObject(attrs []Attribute, payload map[string]any, strict bool, path string) error {
	if strict {
		known := make(map[string]bool, len(attrs))
		for _, a := range attrs {
			known[a.Name] = true
		}
		for name := range payload {
			if !known[name] {
				return &ValidationError{
					Field:  joinPath(path, name),
					Index:  -1,
					Detail: "unknown attribute",
				}
			}
		}
	}

	for _, attr := range attrs {
		value, present := payload[attr.Name]
		if !present || value == nil {
			if attr.Required {
				return &ValidationError{
					Field:  joinPath(path, attr.Name),
					Index:  -1,
					Detail: "required attribute is missing",
				}
			}
			continue
		}
		if err := validateAttribute(attr, value, strict, joinPath(path, attr.Name)); err != nil {
			return err
		}
	}
	return nil
}

func validateAttribute(attr Attribute, value any, strict bool, path string) error {
	if !attr.MultiValued {
		return validateSingle(attr, value, strict, path, -1)
	}

	// Multi-valued: an ordered sequence, every element validated
	// independently. A bare value counts as a one-element sequence.
	elements, ok := value.([]any)
	if !ok {
		elements = []any{value}
	}
	for i, elem := range elements {
		indexed := fmt.Sprintf("%s[%d]", path, i)
		if err := validateSingle(attr, elem, strict, indexed, i); err != nil {
			return err
		}
	}
	return nil
}

func validateSingle(attr Attribute, value any, strict bool, path string, index int) error {
	switch attr.Type {
	case TypeString:
		s, ok := value.(string)
		if !ok {
			return &ValidationError{Field: path, Index: index, Detail: "must be a string", Provided: value}
		}
		if len(attr.CanonicalValues) > 0 && !contains(attr.CanonicalValues, s) {
			return &CanonicalValueError{Field: path, Index: index, Provided: s, Allowed: attr.CanonicalValues}
		}
	case TypeBoolean:
		if _, ok := value.(bool); !ok {
			return &ValidationError{Field: path, Index: index, Detail: "must be a boolean", Provided: value}
		}
	case TypeComplex:
		obj, ok := value.(map[string]any)
		if !ok {
			return &ValidationError{Field: path, Index: index, Detail: "must be an object", Provided: value}
		}
		if err := validateObject(attr.SubAttributes, obj, strict, path); err != nil {
			// Carry the failing element index outward for multi-valued parents.
			if index >= 0 {
				switch sub := err.(type) {
				case *ValidationError:
					sub.Index = index
				case *CanonicalValueError:
					sub.Index = index
				}
			}
			return err
		}
	default:
		return &ValidationError{Field: path, Index: index, Detail: fmt.Sprintf("unsupported attribute type %q", attr.Type)}
	}
	return nil
}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func contains(values []string, v string) bool {
	for _, c := range values {
		if c == v {
			return true
		}
	}
	return false
}
