package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/getscimly/scimly/filter"
	"github.com/getscimly/scimly/schema"
	"github.com/getscimly/scimly/tenant"
)

// ConfigSource yields tenant configuration documents. tenant.Loader
// satisfies it; tests supply their own.
type ConfigSource interface {
	Config(id string) *tenant.Config
}

// Options carries process-wide paging defaults. Tenant documents may
// override both values.
type Options struct {
	DefaultPageSize int
	MaxPageSize     int
}

// Engine is the generic CRUD core for one resource kind.
type Engine struct {
	desc    *Descriptor
	store   Store
	tenants ConfigSource
	opts    Options
}

// New creates an engine for the descriptor's kind.
func New(desc *Descriptor, store Store, tenants ConfigSource, opts Options) *Engine {
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = 50
	}
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = 200
	}
	return &Engine{desc: desc, store: store, tenants: tenants, opts: opts}
}

// Descriptor returns the engine's kind descriptor.
func (e *Engine) Descriptor() *Descriptor { return e.desc }

// Create validates the payload against the tenant's attribute tree,
// assigns a new external id and timestamps, and persists atomically.
// A duplicate business key within the tenant fails with *ConflictError;
// the same key in another tenant is unaffected.
func (e *Engine) Create(ctx context.Context, tenantID string, payload map[string]any) (*Entity, error) {
	cfg := e.tenants.Config(tenantID)
	if !cfg.KindEnabled(string(e.desc.Kind)) {
		return nil, &KindDisabledError{Kind: e.desc.Kind, TenantID: tenantID}
	}

	attrs := cfg.KindAttributes(string(e.desc.Kind), e.desc.BaseAttributes())
	if err := schema.Validate(attrs, payload, cfg.Strict); err != nil {
		return nil, err
	}

	// Pre-check the business key for a structured error; the composite
	// unique constraint remains the backstop under concurrency.
	if key, _ := payload[e.desc.UniqueAttr].(string); key != "" {
		existing, err := e.findByAttr(ctx, tenantID, e.desc.UniqueAttr, key)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, &ConflictError{Kind: e.desc.Kind, TenantID: tenantID, Attr: e.desc.UniqueAttr, Value: key}
		}
	}

	now := time.Now().UTC()
	ent := &Entity{
		Kind:       e.desc.Kind,
		ID:         uuid.NewString(),
		TenantID:   tenantID,
		Attributes: copyAttributes(payload),
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if e.desc.Soft() {
		active := true
		if v, ok := payload["active"].(bool); ok {
			active = v
		}
		ent.Active = &active
		ent.Attributes["active"] = active
	}

	if err := e.store.Insert(ctx, e.desc, ent); err != nil {
		return nil, err
	}
	return ent, nil
}

// validID reports whether an external identifier has the shape the engine
// issues. Malformed ids short-circuit to not-found without a storage
// round trip.
func validID(id string) bool {
	return uuid.Validate(id) == nil
}

// Get returns the entity with the given external id, including its related
// collections, or *NotFoundError.
func (e *Engine) Get(ctx context.Context, tenantID, id string) (*Entity, error) {
	if !validID(id) {
		return nil, &NotFoundError{Kind: e.desc.Kind, ID: id}
	}
	ent, err := e.store.Get(ctx, e.desc, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("storage get: %w", err)
	}
	if ent == nil {
		return nil, &NotFoundError{Kind: e.desc.Kind, ID: id}
	}
	if err := e.loadRelations(ctx, ent); err != nil {
		return nil, err
	}
	return ent, nil
}

// List compiles the filter (if any), applies it, and returns the requested
// page. The page's TotalResults is the filtered cardinality, whatever the
// requested range.
func (e *Engine) List(ctx context.Context, tenantID, filterExpr string, req PageRequest) (*Page, error) {
	cfg := e.tenants.Config(tenantID)
	if !cfg.KindEnabled(string(e.desc.Kind)) {
		return nil, &KindDisabledError{Kind: e.desc.Kind, TenantID: tenantID}
	}

	var cond *filter.Condition
	if filterExpr != "" {
		var err error
		cond, err = filter.NewCompiler(e.desc.FilterColumns()).Compile(filterExpr)
		if err != nil {
			return nil, err
		}
	}

	defSize, maxSize := e.opts.DefaultPageSize, e.opts.MaxPageSize
	if cfg.PageSize > 0 {
		defSize = cfg.PageSize
	}
	if cfg.MaxPageSize > 0 {
		maxSize = cfg.MaxPageSize
	}
	startIndex, offset, limit := req.plan(defSize, maxSize)

	total, err := e.store.Count(ctx, e.desc, tenantID, cond)
	if err != nil {
		return nil, fmt.Errorf("storage count: %w", err)
	}

	var items []*Entity
	if limit > 0 {
		items, err = e.store.List(ctx, e.desc, tenantID, cond, offset, limit)
		if err != nil {
			return nil, fmt.Errorf("storage list: %w", err)
		}
	}
	for _, ent := range items {
		if err := e.loadRelations(ctx, ent); err != nil {
			return nil, err
		}
	}

	return &Page{
		TotalResults: total,
		StartIndex:   startIndex,
		ItemsPerPage: len(items),
		Resources:    items,
	}, nil
}

// Replace re-validates the entire payload, overwrites the mutable
// attributes, and increments the version counter.
func (e *Engine) Replace(ctx context.Context, tenantID, id string, payload map[string]any) (*Entity, error) {
	if !validID(id) {
		return nil, &NotFoundError{Kind: e.desc.Kind, ID: id}
	}
	cfg := e.tenants.Config(tenantID)
	current, err := e.store.Get(ctx, e.desc, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("storage get: %w", err)
	}
	if current == nil {
		return nil, &NotFoundError{Kind: e.desc.Kind, ID: id}
	}

	attrs := cfg.KindAttributes(string(e.desc.Kind), e.desc.BaseAttributes())
	if err := schema.Validate(attrs, payload, cfg.Strict); err != nil {
		return nil, err
	}
	if err := e.checkUniqueMove(ctx, tenantID, id, current, payload); err != nil {
		return nil, err
	}

	return e.persistWrite(ctx, current, payload)
}

// Delete dispatches to the descriptor's declared policy: soft flips the
// active flag and keeps the resource retrievable; hard removes the row so
// a later get reports not found.
func (e *Engine) Delete(ctx context.Context, tenantID, id string) error {
	if !validID(id) {
		return &NotFoundError{Kind: e.desc.Kind, ID: id}
	}
	current, err := e.store.Get(ctx, e.desc, tenantID, id)
	if err != nil {
		return fmt.Errorf("storage get: %w", err)
	}
	if current == nil {
		return &NotFoundError{Kind: e.desc.Kind, ID: id}
	}

	switch e.desc.DeletePolicy {
	case SoftDelete:
		active := false
		current.Active = &active
		current.Attributes["active"] = false
		current.Version++
		current.UpdatedAt = time.Now().UTC()
		if err := e.store.Update(ctx, e.desc, current); err != nil {
			return err
		}
		return nil
	default:
		if err := e.store.Delete(ctx, e.desc, tenantID, id); err != nil {
			return fmt.Errorf("storage delete: %w", err)
		}
		return nil
	}
}

// AddRelation links a related resource into one of the kind's collections.
// Both ends must resolve within the same tenant.
func (e *Engine) AddRelation(ctx context.Context, tenantID, relName, ownerID, relatedID string) error {
	rel, ok := e.desc.Relation(relName)
	if !ok {
		return fmt.Errorf("unknown relation %q for kind %s", relName, e.desc.Kind)
	}
	if !validID(ownerID) {
		return &NotFoundError{Kind: e.desc.Kind, ID: ownerID}
	}
	if !validID(relatedID) {
		return &NotFoundError{Kind: rel.RelatedKind, ID: relatedID}
	}
	owner, err := e.store.Get(ctx, e.desc, tenantID, ownerID)
	if err != nil {
		return fmt.Errorf("storage get: %w", err)
	}
	if owner == nil {
		return &NotFoundError{Kind: e.desc.Kind, ID: ownerID}
	}
	return e.store.AddRelated(ctx, e.desc, rel, tenantID, ownerID, relatedID)
}

// RemoveRelation unlinks a related resource.
func (e *Engine) RemoveRelation(ctx context.Context, tenantID, relName, ownerID, relatedID string) error {
	rel, ok := e.desc.Relation(relName)
	if !ok {
		return fmt.Errorf("unknown relation %q for kind %s", relName, e.desc.Kind)
	}
	if !validID(ownerID) {
		return &NotFoundError{Kind: e.desc.Kind, ID: ownerID}
	}
	if !validID(relatedID) {
		return &NotFoundError{Kind: rel.RelatedKind, ID: relatedID}
	}
	owner, err := e.store.Get(ctx, e.desc, tenantID, ownerID)
	if err != nil {
		return fmt.Errorf("storage get: %w", err)
	}
	if owner == nil {
		return &NotFoundError{Kind: e.desc.Kind, ID: ownerID}
	}
	return e.store.RemoveRelated(ctx, e.desc, rel, tenantID, ownerID, relatedID)
}

func (e *Engine) findByAttr(ctx context.Context, tenantID, attr, value string) (*Entity, error) {
	for _, f := range e.desc.Fields {
		if f.Attr == attr {
			ent, err := e.store.FindByColumn(ctx, e.desc, tenantID, f.Column, value)
			if err != nil {
				return nil, fmt.Errorf("storage find: %w", err)
			}
			return ent, nil
		}
	}
	return nil, nil
}

func (e *Engine) checkUniqueMove(ctx context.Context, tenantID, id string, current *Entity, payload map[string]any) error {
	key, _ := payload[e.desc.UniqueAttr].(string)
	if key == "" || key == current.StringAttr(e.desc.UniqueAttr) {
		return nil
	}
	other, err := e.findByAttr(ctx, tenantID, e.desc.UniqueAttr, key)
	if err != nil {
		return err
	}
	if other != nil && other.ID != id {
		return &ConflictError{Kind: e.desc.Kind, TenantID: tenantID, Attr: e.desc.UniqueAttr, Value: key}
	}
	return nil
}

func (e *Engine) persistWrite(ctx context.Context, current *Entity, payload map[string]any) (*Entity, error) {
	updated := *current
	updated.Attributes = copyAttributes(payload)
	if e.desc.Soft() {
		active := current.Active != nil && *current.Active
		if v, ok := payload["active"].(bool); ok {
			active = v
		}
		updated.Active = &active
		updated.Attributes["active"] = active
	}
	updated.Version = current.Version + 1
	updated.UpdatedAt = time.Now().UTC()

	if err := e.store.Update(ctx, e.desc, &updated); err != nil {
		return nil, err
	}
	if err := e.loadRelations(ctx, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (e *Engine) loadRelations(ctx context.Context, ent *Entity) error {
	if len(e.desc.Relations) == 0 {
		return nil
	}
	ent.Relations = make(map[string][]Ref, len(e.desc.Relations))
	for i := range e.desc.Relations {
		rel := &e.desc.Relations[i]
		refs, err := e.store.ListRelated(ctx, e.desc, rel, ent.TenantID, ent.ID)
		if err != nil {
			return fmt.Errorf("storage relations: %w", err)
		}
		ent.Relations[rel.Name] = refs
	}
	return nil
}
