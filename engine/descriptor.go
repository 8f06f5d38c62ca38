package engine

import (
	"github.com/getscimly/scimly/schema"
)

// DeletePolicy declares what delete means for a resource kind. The policy
// is an explicit descriptor field, never inferred from the kind name.
type DeletePolicy int

const (
	// HardDelete removes the row; a subsequent get reports not found.
	HardDelete DeletePolicy = iota

	// SoftDelete flips the active flag; the resource stays retrievable.
	SoftDelete
)

// Field maps an external attribute onto an extracted storage column so the
// filter compiler can target it. Path addresses the value inside the
// attribute document (see LookupPath); empty Path means the attribute name
// itself.
type Field struct {
	Attr   string
	Column string
	Path   string
}

// Relation declares a related collection (membership, assignment). Both
// ends of a relationship row always belong to the same tenant.
type Relation struct {
	Name        string
	Table       string
	RelatedKind Kind
}

// Projection is the declarative external representation of a kind: the
// schema URN plus a field table mapping external names to document paths.
type Projection struct {
	URN    string
	Fields []ProjField
}

// ProjField maps one external field to its document path.
type ProjField struct {
	External string
	Path     string
}

// Descriptor carries everything kind-specific the generic engine needs.
type Descriptor struct {
	Kind         Kind
	Table        string
	UniqueAttr   string // business-unique attribute per tenant, e.g. userName
	DeletePolicy DeletePolicy
	Fields       []Field
	Relations    []Relation
	Projection   Projection

	// BaseAttributes yields the built-in attribute tree; tenants overlay
	// their custom attributes on top.
	BaseAttributes func() []schema.Attribute
}

// FilterColumns returns the external-name → column whitelist consumed by
// the filter compiler.
func (d *Descriptor) FilterColumns() map[string]string {
	m := make(map[string]string, len(d.Fields))
	for _, f := range d.Fields {
		m[f.Attr] = f.Column
	}
	return m
}

// FieldPath returns the document path backing an extracted column.
func (f Field) FieldPath() string {
	if f.Path != "" {
		return f.Path
	}
	return f.Attr
}

// Relation looks up a relation by name.
func (d *Descriptor) Relation(name string) (*Relation, bool) {
	for i := range d.Relations {
		if d.Relations[i].Name == name {
			return &d.Relations[i], true
		}
	}
	return nil, false
}

// Soft reports whether the kind uses the soft delete policy.
func (d *Descriptor) Soft() bool { return d.DeletePolicy == SoftDelete }

// Built-in descriptors for the four directory kinds. Users deactivate on
// delete; the other kinds delete hard. The asymmetry is intentional and
// covered by tests.

func UserDescriptor() *Descriptor {
	return &Descriptor{
		Kind:         KindUser,
		Table:        "users",
		UniqueAttr:   "userName",
		DeletePolicy: SoftDelete,
		Fields: []Field{
			{Attr: "userName", Column: "user_name"},
			{Attr: "displayName", Column: "display_name"},
			{Attr: "externalId", Column: "external_id"},
			{Attr: "email", Column: "email", Path: "emails.value"},
			{Attr: "givenName", Column: "given_name", Path: "name.givenName"},
			{Attr: "familyName", Column: "family_name", Path: "name.familyName"},
		},
		Relations: []Relation{
			{Name: "entitlements", Table: "user_entitlements", RelatedKind: KindEntitlement},
			{Name: "roles", Table: "user_roles", RelatedKind: KindRole},
		},
		Projection: Projection{
			URN: "urn:ietf:params:scim:schemas:core:2.0:User",
			Fields: []ProjField{
				{External: "userName", Path: "userName"},
				{External: "externalId", Path: "externalId"},
				{External: "displayName", Path: "displayName"},
				{External: "name", Path: "name"},
				{External: "emails", Path: "emails"},
			},
		},
		BaseAttributes: schema.UserAttributes,
	}
}

func GroupDescriptor() *Descriptor {
	return &Descriptor{
		Kind:         KindGroup,
		Table:        "groups",
		UniqueAttr:   "displayName",
		DeletePolicy: HardDelete,
		Fields: []Field{
			{Attr: "displayName", Column: "display_name"},
			{Attr: "description", Column: "description"},
		},
		Relations: []Relation{
			{Name: "members", Table: "group_members", RelatedKind: KindUser},
		},
		Projection: Projection{
			URN: "urn:ietf:params:scim:schemas:core:2.0:Group",
			Fields: []ProjField{
				{External: "displayName", Path: "displayName"},
				{External: "description", Path: "description"},
			},
		},
		BaseAttributes: schema.GroupAttributes,
	}
}

func EntitlementDescriptor() *Descriptor {
	return &Descriptor{
		Kind:         KindEntitlement,
		Table:        "entitlements",
		UniqueAttr:   "displayName",
		DeletePolicy: HardDelete,
		Fields: []Field{
			{Attr: "displayName", Column: "display_name"},
			{Attr: "type", Column: "type"},
			{Attr: "description", Column: "description"},
		},
		Projection: Projection{
			URN: "urn:okta:scim:schemas:core:1.0:Entitlement",
			Fields: []ProjField{
				{External: "displayName", Path: "displayName"},
				{External: "type", Path: "type"},
				{External: "description", Path: "description"},
				{External: "entitlementType", Path: "entitlementType"},
			},
		},
		BaseAttributes: schema.EntitlementAttributes,
	}
}

func RoleDescriptor() *Descriptor {
	return &Descriptor{
		Kind:         KindRole,
		Table:        "roles",
		UniqueAttr:   "displayName",
		DeletePolicy: HardDelete,
		Fields: []Field{
			{Attr: "displayName", Column: "display_name"},
			{Attr: "description", Column: "description"},
		},
		Projection: Projection{
			URN: "urn:okta:scim:schemas:core:1.0:Role",
			Fields: []ProjField{
				{External: "displayName", Path: "displayName"},
				{External: "description", Path: "description"},
			},
		},
		BaseAttributes: schema.RoleAttributes,
	}
}

// Descriptors returns the built-in descriptors keyed by kind.
func Descriptors() map[Kind]*Descriptor {
	return map[Kind]*Descriptor{
		KindUser:        UserDescriptor(),
		KindGroup:       GroupDescriptor(),
		KindEntitlement: EntitlementDescriptor(),
		KindRole:        RoleDescriptor(),
	}
}
