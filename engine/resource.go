// Package engine implements the generic multi-tenant resource core shared
// by the four directory resource kinds (User, Group, Entitlement, Role).
//
// One engine instance serves one resource kind, parameterized by a
// Descriptor: the storage table, the business-unique attribute, the
// filterable column whitelist, the projection table, the delete policy,
// and the related collections. Adding a resource kind means registering a
// new descriptor, not writing new engine code.
//
// Tenant isolation is enforced downstream through composite storage
// constraints on (tenant, resource id) and (tenant, business key); the
// engine itself never compares tenant identifiers across resources.
package engine

import (
	"strings"
	"time"
)

// Kind names a manageable resource type.
type Kind string

const (
	KindUser        Kind = "User"
	KindGroup       Kind = "Group"
	KindEntitlement Kind = "Entitlement"
	KindRole        Kind = "Role"
)

// Entity is a stored resource as the core sees it. ID is the caller-visible
// external identifier; the relational storage key never leaves the store.
type Entity struct {
	Kind     Kind
	ID       string
	TenantID string

	// Attributes is the kind-specific attribute document.
	Attributes map[string]any

	// Active is set only for kinds with a soft delete policy.
	Active *bool

	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time

	// Relations holds related collections keyed by relation name,
	// populated on read.
	Relations map[string][]Ref
}

// Ref points at a related resource.
type Ref struct {
	ID      string
	Display string
	Kind    Kind
}

// Attr returns a top-level attribute value.
func (e *Entity) Attr(name string) (any, bool) {
	v, ok := e.Attributes[name]
	return v, ok
}

// StringAttr returns a top-level attribute as a string.
func (e *Entity) StringAttr(name string) string {
	if s, ok := e.Attributes[name].(string); ok {
		return s
	}
	return ""
}

// LookupPath resolves a dotted path in an attribute document, e.g.
// "name.givenName" or "emails.value". When a segment addresses a
// multi-valued attribute, its first element is used.
func LookupPath(attrs map[string]any, path string) (any, bool) {
	var current any = attrs
	for _, seg := range strings.Split(path, ".") {
		if list, ok := current.([]any); ok {
			if len(list) == 0 {
				return nil, false
			}
			current = list[0]
		}
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[seg]
		if !ok {
			return nil, false
		}
	}
	if list, ok := current.([]any); ok {
		if len(list) == 0 {
			return nil, false
		}
		current = list[0]
	}
	return current, true
}

func copyAttributes(attrs map[string]any) map[string]any {
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyAttributes(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}
