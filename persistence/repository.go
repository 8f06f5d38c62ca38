package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/getscimly/scimly/engine"
	"github.com/getscimly/scimly/filter"
)

// Repository implements engine.Store on top of gorm. One repository serves
// all resource kinds; the descriptor passed with each call selects the
// table and the extracted columns.
type Repository struct {
	db      *gorm.DB
	dialect string
	kinds   map[engine.Kind]*engine.Descriptor
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, dialect: db.Dialector.Name(), kinds: engine.Descriptors()}
}

// DB exposes the underlying handle for callers that manage their own
// migrations or need raw access.
func (r *Repository) DB() *gorm.DB { return r.db }

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(
		&userRow{},
		&groupRow{},
		&entitlementRow{},
		&roleRow{},
		&groupMemberRow{},
		&userEntitlementRow{},
		&userRoleRow{},
	)
}

// scanRow carries the columns shared by every resource table.
type scanRow struct {
	ID         uint
	ResourceID string
	TenantID   string
	Active     bool
	Document   JSON
	Version    int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func baseColumns(d *engine.Descriptor) string {
	cols := "id, resource_id, tenant_id, document, version, created_at, updated_at"
	if d.Soft() {
		cols += ", active"
	}
	return cols
}

func entityFromRow(d *engine.Descriptor, row *scanRow) (*engine.Entity, error) {
	e := &engine.Entity{
		Kind:      d.Kind,
		ID:        row.ResourceID,
		TenantID:  row.TenantID,
		Version:   row.Version,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if len(row.Document) > 0 {
		if err := json.Unmarshal(row.Document, &e.Attributes); err != nil {
			return nil, fmt.Errorf("persistence: corrupt document for %s %s: %w", d.Kind, row.ResourceID, err)
		}
	}
	if e.Attributes == nil {
		e.Attributes = map[string]any{}
	}
	if d.Soft() {
		active := row.Active
		e.Active = &active
	}
	return e, nil
}

// rowValues builds the column map for an insert or update. The full
// attribute document is stored as JSON; the descriptor's fields are
// extracted alongside so the database can filter on them.
func rowValues(d *engine.Descriptor, e *engine.Entity) (map[string]any, error) {
	doc, err := json.Marshal(e.Attributes)
	if err != nil {
		return nil, fmt.Errorf("persistence: encode document: %w", err)
	}
	values := map[string]any{
		"resource_id": e.ID,
		"tenant_id":   e.TenantID,
		"document":    JSON(doc),
		"version":     e.Version,
		"created_at":  e.CreatedAt,
		"updated_at":  e.UpdatedAt,
	}
	for _, f := range d.Fields {
		s := ""
		if v, ok := engine.LookupPath(e.Attributes, f.FieldPath()); ok {
			if str, ok := v.(string); ok {
				s = str
			}
		}
		values[f.Column] = s
	}
	if d.Soft() {
		active := true
		if e.Active != nil {
			active = *e.Active
		}
		values["active"] = active
	}
	return values, nil
}

func (r *Repository) Insert(ctx context.Context, d *engine.Descriptor, e *engine.Entity) error {
	values, err := rowValues(d, e)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Table(d.Table).Create(values).Error; err != nil {
		return r.translate(d, e, err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, d *engine.Descriptor, tenantID, id string) (*engine.Entity, error) {
	var row scanRow
	err := r.db.WithContext(ctx).
		Table(d.Table).
		Select(baseColumns(d)).
		Where("tenant_id = ? AND resource_id = ?", tenantID, id).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entityFromRow(d, &row)
}

func (r *Repository) FindByColumn(ctx context.Context, d *engine.Descriptor, tenantID, column, value string) (*engine.Entity, error) {
	var row scanRow
	err := r.db.WithContext(ctx).
		Table(d.Table).
		Select(baseColumns(d)).
		Where("tenant_id = ?", tenantID).
		Where(fmt.Sprintf("%s = ?", column), value).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entityFromRow(d, &row)
}

func (r *Repository) List(ctx context.Context, d *engine.Descriptor, tenantID string, cond *filter.Condition, offset, limit int) ([]*engine.Entity, error) {
	if limit <= 0 {
		return nil, nil
	}
	q := r.db.WithContext(ctx).
		Table(d.Table).
		Select(baseColumns(d)).
		Where("tenant_id = ?", tenantID)
	q = r.applyCondition(q, cond)

	var rows []scanRow
	if err := q.Order("id").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*engine.Entity, 0, len(rows))
	for i := range rows {
		e, err := entityFromRow(d, &rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *Repository) Count(ctx context.Context, d *engine.Descriptor, tenantID string, cond *filter.Condition) (int, error) {
	q := r.db.WithContext(ctx).
		Table(d.Table).
		Where("tenant_id = ?", tenantID)
	q = r.applyCondition(q, cond)

	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, err
	}
	return int(n), nil
}

func (r *Repository) Update(ctx context.Context, d *engine.Descriptor, e *engine.Entity) error {
	values, err := rowValues(d, e)
	if err != nil {
		return err
	}
	// The identifying and immutable columns stay put.
	delete(values, "resource_id")
	delete(values, "tenant_id")
	delete(values, "created_at")

	err = r.db.WithContext(ctx).
		Table(d.Table).
		Where("tenant_id = ? AND resource_id = ?", e.TenantID, e.ID).
		Updates(values).Error
	if err != nil {
		return r.translate(d, e, err)
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, d *engine.Descriptor, tenantID, id string) error {
	return r.db.WithContext(ctx).
		Exec(fmt.Sprintf("DELETE FROM %s WHERE tenant_id = ? AND resource_id = ?", d.Table), tenantID, id).
		Error
}

func (r *Repository) ListRelated(ctx context.Context, d *engine.Descriptor, rel *engine.Relation, tenantID, ownerID string) ([]engine.Ref, error) {
	rd, ok := r.kinds[rel.RelatedKind]
	if !ok {
		return nil, fmt.Errorf("persistence: no descriptor for kind %s", rel.RelatedKind)
	}
	owner, err := r.internalID(ctx, d.Table, tenantID, ownerID)
	if err != nil {
		return nil, err
	}
	if owner == 0 {
		return nil, nil
	}

	var rows []struct {
		ResourceID string
		Display    string
	}
	err = r.db.WithContext(ctx).
		Table(rel.Table+" AS l").
		Select(fmt.Sprintf("r.resource_id AS resource_id, r.%s AS display", displayColumn(rd))).
		Joins(fmt.Sprintf("JOIN %s AS r ON r.id = l.related_id", rd.Table)).
		Where("l.tenant_id = ? AND l.owner_id = ?", tenantID, owner).
		Order("l.id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	refs := make([]engine.Ref, 0, len(rows))
	for _, row := range rows {
		refs = append(refs, engine.Ref{ID: row.ResourceID, Display: row.Display, Kind: rel.RelatedKind})
	}
	return refs, nil
}

func (r *Repository) AddRelated(ctx context.Context, d *engine.Descriptor, rel *engine.Relation, tenantID, ownerID, relatedID string) error {
	rd, ok := r.kinds[rel.RelatedKind]
	if !ok {
		return fmt.Errorf("persistence: no descriptor for kind %s", rel.RelatedKind)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owner, related, err := r.linkEnds(tx, d, rd, tenantID, ownerID, relatedID)
		if err != nil {
			return err
		}
		err = tx.Table(rel.Table).Create(map[string]any{
			"tenant_id":  tenantID,
			"owner_id":   owner,
			"related_id": related,
		}).Error
		if err != nil && isDuplicate(err) {
			// Already linked; adding again is a no-op.
			return nil
		}
		return err
	})
}

func (r *Repository) RemoveRelated(ctx context.Context, d *engine.Descriptor, rel *engine.Relation, tenantID, ownerID, relatedID string) error {
	rd, ok := r.kinds[rel.RelatedKind]
	if !ok {
		return fmt.Errorf("persistence: no descriptor for kind %s", rel.RelatedKind)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owner, related, err := r.linkEnds(tx, d, rd, tenantID, ownerID, relatedID)
		if err != nil {
			return err
		}
		return tx.
			Exec(fmt.Sprintf("DELETE FROM %s WHERE tenant_id = ? AND owner_id = ? AND related_id = ?", rel.Table),
				tenantID, owner, related).
			Error
	})
}

// linkEnds resolves both ends of a relationship to internal keys within
// the tenant. A missing end is reported with the engine's not-found error.
func (r *Repository) linkEnds(tx *gorm.DB, d, rd *engine.Descriptor, tenantID, ownerID, relatedID string) (uint, uint, error) {
	owner, err := internalIDTx(tx, d.Table, tenantID, ownerID)
	if err != nil {
		return 0, 0, err
	}
	if owner == 0 {
		return 0, 0, &engine.NotFoundError{Kind: d.Kind, ID: ownerID}
	}
	related, err := internalIDTx(tx, rd.Table, tenantID, relatedID)
	if err != nil {
		return 0, 0, err
	}
	if related == 0 {
		return 0, 0, &engine.NotFoundError{Kind: rd.Kind, ID: relatedID}
	}
	return owner, related, nil
}

func (r *Repository) internalID(ctx context.Context, table, tenantID, resourceID string) (uint, error) {
	return internalIDTx(r.db.WithContext(ctx), table, tenantID, resourceID)
}

func internalIDTx(tx *gorm.DB, table, tenantID, resourceID string) (uint, error) {
	var id uint
	err := tx.Table(table).
		Select("id").
		Where("tenant_id = ? AND resource_id = ?", tenantID, resourceID).
		Take(&id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}

// displayColumn picks the extracted column used as the human-readable
// label in relationship listings.
func displayColumn(d *engine.Descriptor) string {
	for _, f := range d.Fields {
		if f.Attr == d.UniqueAttr {
			return f.Column
		}
	}
	return "resource_id"
}

// applyCondition renders a compiled filter condition into the query.
// Column names come from the descriptor's whitelist, never from input.
func (r *Repository) applyCondition(q *gorm.DB, cond *filter.Condition) *gorm.DB {
	if cond == nil {
		return q
	}
	switch cond.Operator {
	case filter.OpEqual:
		return q.Where(fmt.Sprintf("%s = ?", cond.Column), cond.Value)
	case filter.OpContains:
		return q.Where(r.likeClause(cond.Column), "%"+escapeLike(cond.Value)+"%")
	case filter.OpStartsWith:
		return q.Where(r.likeClause(cond.Column), escapeLike(cond.Value)+"%")
	case filter.OpEndsWith:
		return q.Where(r.likeClause(cond.Column), "%"+escapeLike(cond.Value))
	default:
		// The compiler only emits the four operators above.
		return q.Where("1 = 0")
	}
}

// likeClause renders a case-sensitive LIKE for the active dialect.
// sqlite gets case sensitivity from the connection pragma; mysql needs
// BINARY because the utf8mb4 default collation folds case, and its
// string literals escape backslashes.
func (r *Repository) likeClause(column string) string {
	if r.dialect == "mysql" {
		return fmt.Sprintf(`%s LIKE BINARY ? ESCAPE '\\'`, column)
	}
	return fmt.Sprintf(`%s LIKE ? ESCAPE '\'`, column)
}

// escapeLike neutralises LIKE wildcards in a literal filter value.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

func (r *Repository) translate(d *engine.Descriptor, e *engine.Entity, err error) error {
	if !isDuplicate(err) {
		return err
	}
	value := ""
	if v, ok := engine.LookupPath(e.Attributes, d.UniqueAttr); ok {
		if s, ok := v.(string); ok {
			value = s
		}
	}
	return &engine.ConflictError{Kind: d.Kind, TenantID: e.TenantID, Attr: d.UniqueAttr, Value: value}
}

// isDuplicate recognises unique-constraint violations across the
// supported dialects.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "Duplicate entry")
}
