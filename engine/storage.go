package engine

import (
	"context"

	"github.com/getscimly/scimly/filter"
)

// Store is the persistence contract the engine runs against. Every method
// is tenant-scoped; implementations must never match rows across tenants.
// A missing resource is reported as (nil, nil) from the lookup methods —
// the engine owns the error taxonomy.
type Store interface {
	// Insert persists a new entity atomically. A uniqueness violation on
	// (tenant, resource id) or (tenant, business key) surfaces as
	// *ConflictError.
	Insert(ctx context.Context, d *Descriptor, e *Entity) error

	// Get returns the entity with the given external id, or nil.
	Get(ctx context.Context, d *Descriptor, tenantID, id string) (*Entity, error)

	// FindByColumn returns one entity whose extracted column equals value,
	// or nil.
	FindByColumn(ctx context.Context, d *Descriptor, tenantID, column, value string) (*Entity, error)

	// List returns a page of entities matching the condition (nil means
	// unfiltered), ordered by internal key.
	List(ctx context.Context, d *Descriptor, tenantID string, cond *filter.Condition, offset, limit int) ([]*Entity, error)

	// Count returns the cardinality of the filtered set, not the
	// tenant's unfiltered count.
	Count(ctx context.Context, d *Descriptor, tenantID string, cond *filter.Condition) (int, error)

	// Update overwrites the entity's mutable columns atomically.
	Update(ctx context.Context, d *Descriptor, e *Entity) error

	// Delete removes the row.
	Delete(ctx context.Context, d *Descriptor, tenantID, id string) error

	// ListRelated returns the related collection for an owner.
	ListRelated(ctx context.Context, d *Descriptor, rel *Relation, tenantID, ownerID string) ([]Ref, error)

	// AddRelated links two resources of the same tenant. Either end
	// missing within the tenant is *NotFoundError.
	AddRelated(ctx context.Context, d *Descriptor, rel *Relation, tenantID, ownerID, relatedID string) error

	// RemoveRelated unlinks two resources.
	RemoveRelated(ctx context.Context, d *Descriptor, rel *Relation, tenantID, ownerID, relatedID string) error
}
