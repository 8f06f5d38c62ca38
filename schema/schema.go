// Package schema provides per-tenant, per-kind attribute trees and the
// recursive write-payload validator for the directory core.
//
// An attribute tree describes which fields a resource kind accepts: the
// field name, its type (string, boolean, or complex), whether it is
// required, whether it is multi-valued, an optional closed set of canonical
// values, and sub-attributes for complex nodes. Trees are plain data so a
// tenant configuration document can extend or override the built-in trees
// without new code.
package schema

// Type enumerates the attribute value types understood by the validator.
type Type string

const (
	TypeString  Type = "string"
	TypeBoolean Type = "boolean"
	TypeComplex Type = "complex"
)

// Attribute is one node of an attribute tree.
type Attribute struct {
	Name            string      `json:"name" yaml:"name"`
	Type            Type        `json:"type" yaml:"type"`
	Required        bool        `json:"required" yaml:"required"`
	MultiValued     bool        `json:"multiValued" yaml:"multiValued"`
	CanonicalValues []string    `json:"canonicalValues,omitempty" yaml:"canonicalValues,omitempty"`
	SubAttributes   []Attribute `json:"subAttributes,omitempty" yaml:"subAttributes,omitempty"`
}

// Merge overlays custom attributes onto a base tree. An override with the
// same name replaces the base node wholesale; new names are appended in
// order. The inputs are not mutated.
func Merge(base, overrides []Attribute) []Attribute {
	if len(overrides) == 0 {
		return base
	}

	merged := make([]Attribute, 0, len(base)+len(overrides))
	byName := make(map[string]Attribute, len(overrides))
	for _, o := range overrides {
		byName[o.Name] = o
	}

	seen := make(map[string]bool, len(base))
	for _, a := range base {
		if o, ok := byName[a.Name]; ok {
			merged = append(merged, o)
		} else {
			merged = append(merged, a)
		}
		seen[a.Name] = true
	}
	for _, o := range overrides {
		if !seen[o.Name] {
			merged = append(merged, o)
		}
	}
	return merged
}
