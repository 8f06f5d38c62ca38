// Package tenant provides multi-tenancy support for the scimly directory
// service.
//
// Tenants are implicit namespaces: any syntactically valid tenant identifier
// may appear in a request path, and the tenant materializes on its first
// successful write. There is no tenant registry. Isolation is enforced
// downstream through composite storage constraints, never through
// application-level checks.
//
// # Resolution
//
// The tenant identifier is carried as a request path segment:
//
//	/acme-prod/scim/v2/Users → "acme-prod"
//
// The resolver validates the segment shape only. It never checks prior
// existence.
//
// # Configuration documents
//
// Each tenant may carry a configuration document: enabled resource kinds,
// validation strictness, custom attribute trees, and per-operation-class
// rate ceilings. Documents are loaded from a versioned YAML file and are
// consumed, never mutated, by the core. Tenants without a document run
// with defaults.
package tenant

import (
	"github.com/getscimly/scimly/schema"
)

// Config is a tenant's configuration document.
type Config struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`

	// EnabledKinds lists the resource kinds this tenant may manage.
	// Empty means all kinds.
	EnabledKinds []string `yaml:"enabledKinds"`

	// Strict rejects attributes absent from the schema tree.
	Strict bool `yaml:"strict"`

	// Attributes holds per-kind custom attribute trees, merged over the
	// built-in trees by name.
	Attributes map[string][]schema.Attribute `yaml:"attributes"`

	// RateCeilings overrides the process-wide per-class rate ceilings
	// (keys: create, read, update, delete). Zero means no override.
	RateCeilings map[string]int `yaml:"rateCeilings"`

	// PageSize and MaxPageSize override the process paging defaults.
	PageSize    int `yaml:"pageSize"`
	MaxPageSize int `yaml:"maxPageSize"`
}

// DefaultConfig returns the configuration for a tenant with no document:
// all kinds enabled, strict validation, built-in schemas, process-wide
// rate ceilings.
func DefaultConfig(id string) *Config {
	return &Config{
		ID:     id,
		Strict: true,
	}
}

// KindEnabled reports whether the tenant may manage the given resource kind.
func (c *Config) KindEnabled(kind string) bool {
	if len(c.EnabledKinds) == 0 {
		return true
	}
	for _, k := range c.EnabledKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// KindAttributes returns the effective attribute tree for a kind: the
// built-in tree overlaid with the tenant's custom attributes.
func (c *Config) KindAttributes(kind string, base []schema.Attribute) []schema.Attribute {
	if c.Attributes == nil {
		return base
	}
	return schema.Merge(base, c.Attributes[kind])
}

// RateCeiling returns the tenant override for an operation class, or 0 when
// the process default applies.
func (c *Config) RateCeiling(class string) int {
	if c.RateCeilings == nil {
		return 0
	}
	return c.RateCeilings[class]
}
