package persistence

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/getscimly/scimly/engine"
	"github.com/getscimly/scimly/filter"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewStore("sqlite", filepath.Join(t.TempDir(), "scimly.db"), false)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	return repo
}

func userEntity(tenantID, id, userName string) *engine.Entity {
	active := true
	now := time.Now().UTC()
	return &engine.Entity{
		Kind:     engine.KindUser,
		ID:       id,
		TenantID: tenantID,
		Attributes: map[string]any{
			"userName": userName,
			"active":   true,
		},
		Active:    &active,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func entitlementEntity(tenantID, id, name string) *engine.Entity {
	now := time.Now().UTC()
	return &engine.Entity{
		Kind:     engine.KindEntitlement,
		ID:       id,
		TenantID: tenantID,
		Attributes: map[string]any{
			"displayName": name,
			"type":        "access",
		},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestInsertAndGetRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	d := engine.UserDescriptor()
	ctx := t.Context()

	ent := userEntity("acme", "u-1", "alice")
	ent.Attributes["emails"] = []any{map[string]any{"value": "alice@example.com"}}
	if err := repo.Insert(ctx, d, ent); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	got, err := repo.Get(ctx, d, "acme", "u-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected a row")
	}
	if got.StringAttr("userName") != "alice" {
		t.Errorf("document not preserved: %v", got.Attributes)
	}
	if got.Active == nil || !*got.Active {
		t.Error("active flag not preserved")
	}
	if got.Version != 1 {
		t.Errorf("unexpected version %d", got.Version)
	}

	// Missing rows come back as nil, not an error.
	missing, err := repo.Get(ctx, d, "acme", "u-404")
	if err != nil || missing != nil {
		t.Errorf("expected (nil, nil) for a missing row, got %v %v", missing, err)
	}
}

func TestCompositeUniqueness(t *testing.T) {
	repo := newTestRepo(t)
	d := engine.UserDescriptor()
	ctx := t.Context()

	if err := repo.Insert(ctx, d, userEntity("t1", "u-1", "alice")); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	err := repo.Insert(ctx, d, userEntity("t1", "u-2", "alice"))
	if !engine.IsConflict(err) {
		t.Errorf("duplicate userName in the same tenant should conflict, got %v", err)
	}

	// Both composite constraints scope to the tenant.
	if err := repo.Insert(ctx, d, userEntity("t2", "u-1", "alice")); err != nil {
		t.Errorf("same resource id and userName under another tenant should insert: %v", err)
	}
}

func TestTenantIsolation(t *testing.T) {
	repo := newTestRepo(t)
	d := engine.UserDescriptor()
	ctx := t.Context()

	if err := repo.Insert(ctx, d, userEntity("t1", "u-1", "alice")); err != nil {
		t.Fatal(err)
	}

	got, err := repo.Get(ctx, d, "t2", "u-1")
	if err != nil || got != nil {
		t.Errorf("row must not resolve under another tenant, got %v %v", got, err)
	}

	n, err := repo.Count(ctx, d, "t2", nil)
	if err != nil || n != 0 {
		t.Errorf("count must be tenant-scoped, got %d %v", n, err)
	}
}

func TestFindByColumn(t *testing.T) {
	repo := newTestRepo(t)
	d := engine.UserDescriptor()
	ctx := t.Context()

	if err := repo.Insert(ctx, d, userEntity("acme", "u-1", "alice")); err != nil {
		t.Fatal(err)
	}

	got, err := repo.FindByColumn(ctx, d, "acme", "user_name", "alice")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if got == nil || got.ID != "u-1" {
		t.Errorf("expected u-1, got %v", got)
	}

	none, err := repo.FindByColumn(ctx, d, "acme", "user_name", "bob")
	if err != nil || none != nil {
		t.Errorf("expected (nil, nil), got %v %v", none, err)
	}
}

func TestListWithConditions(t *testing.T) {
	repo := newTestRepo(t)
	d := engine.UserDescriptor()
	ctx := t.Context()

	for i, name := range []string{"alice", "alan", "bob", "50%off"} {
		if err := repo.Insert(ctx, d, userEntity("acme", "u-"+name, name)); err != nil {
			t.Fatalf("insert %d failed: %v", i, err)
		}
	}

	cond := &filter.Condition{Column: "user_name", Operator: filter.OpStartsWith, Value: "al"}
	rows, err := repo.List(ctx, d, "acme", cond, 0, 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("expected 2 rows, got %d", len(rows))
	}

	n, err := repo.Count(ctx, d, "acme", cond)
	if err != nil || n != 2 {
		t.Errorf("expected filtered count 2, got %d %v", n, err)
	}

	// LIKE wildcards in the value are literals, not patterns.
	cond = &filter.Condition{Column: "user_name", Operator: filter.OpContains, Value: "%"}
	rows, err = repo.List(ctx, d, "acme", cond, 0, 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(rows) != 1 || rows[0].StringAttr("userName") != "50%off" {
		t.Errorf("percent must match literally, got %d rows", len(rows))
	}

	// Offset and limit page through in insertion order.
	rows, err = repo.List(ctx, d, "acme", nil, 1, 2)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(rows) != 2 || rows[0].StringAttr("userName") != "alan" {
		t.Errorf("unexpected page: %v", rows)
	}
}

func TestListMatchingIsCaseSensitive(t *testing.T) {
	repo := newTestRepo(t)
	d := engine.UserDescriptor()
	ctx := t.Context()

	if err := repo.Insert(ctx, d, userEntity("acme", "u-1", "Alice")); err != nil {
		t.Fatal(err)
	}

	// Substring operators must compare case-sensitively, matching the
	// in-memory evaluation.
	cond := &filter.Condition{Column: "user_name", Operator: filter.OpContains, Value: "alice"}
	rows, err := repo.List(ctx, d, "acme", cond, 0, 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf(`"Alice" must not match co "alice", got %d rows`, len(rows))
	}
	if n, err := repo.Count(ctx, d, "acme", cond); err != nil || n != 0 {
		t.Errorf("expected filtered count 0, got %d %v", n, err)
	}

	cond = &filter.Condition{Column: "user_name", Operator: filter.OpStartsWith, Value: "Ali"}
	rows, err = repo.List(ctx, d, "acme", cond, 0, 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf(`"Alice" should match sw "Ali", got %d rows`, len(rows))
	}
}

func TestUpdate(t *testing.T) {
	repo := newTestRepo(t)
	d := engine.UserDescriptor()
	ctx := t.Context()

	ent := userEntity("acme", "u-1", "alice")
	if err := repo.Insert(ctx, d, ent); err != nil {
		t.Fatal(err)
	}

	ent.Attributes["displayName"] = "Alice A"
	ent.Version = 2
	ent.UpdatedAt = time.Now().UTC()
	inactive := false
	ent.Active = &inactive
	if err := repo.Update(ctx, d, ent); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	got, err := repo.Get(ctx, d, "acme", "u-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.StringAttr("displayName") != "Alice A" || got.Version != 2 {
		t.Errorf("update not persisted: %v", got)
	}
	if got.Active == nil || *got.Active {
		t.Error("active flag should be updated")
	}
}

func TestDelete(t *testing.T) {
	repo := newTestRepo(t)
	d := engine.GroupDescriptor()
	ctx := t.Context()

	now := time.Now().UTC()
	ent := &engine.Entity{
		Kind: engine.KindGroup, ID: "g-1", TenantID: "acme",
		Attributes: map[string]any{"displayName": "Engineering"},
		Version:    1, CreatedAt: now, UpdatedAt: now,
	}
	if err := repo.Insert(ctx, d, ent); err != nil {
		t.Fatal(err)
	}
	if err := repo.Delete(ctx, d, "acme", "g-1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	got, err := repo.Get(ctx, d, "acme", "g-1")
	if err != nil || got != nil {
		t.Errorf("row should be gone, got %v %v", got, err)
	}
}

func TestRelationships(t *testing.T) {
	repo := newTestRepo(t)
	ud := engine.UserDescriptor()
	ed := engine.EntitlementDescriptor()
	ctx := t.Context()

	if err := repo.Insert(ctx, ud, userEntity("acme", "u-1", "alice")); err != nil {
		t.Fatal(err)
	}
	if err := repo.Insert(ctx, ed, entitlementEntity("acme", "e-1", "VPN")); err != nil {
		t.Fatal(err)
	}

	rel, _ := ud.Relation("entitlements")

	if err := repo.AddRelated(ctx, ud, rel, "acme", "u-1", "e-1"); err != nil {
		t.Fatalf("add related failed: %v", err)
	}
	// Linking twice is a no-op.
	if err := repo.AddRelated(ctx, ud, rel, "acme", "u-1", "e-1"); err != nil {
		t.Errorf("duplicate link should be a no-op: %v", err)
	}

	refs, err := repo.ListRelated(ctx, ud, rel, "acme", "u-1")
	if err != nil {
		t.Fatalf("list related failed: %v", err)
	}
	if len(refs) != 1 || refs[0].ID != "e-1" || refs[0].Display != "VPN" {
		t.Errorf("unexpected refs: %v", refs)
	}

	if err := repo.RemoveRelated(ctx, ud, rel, "acme", "u-1", "e-1"); err != nil {
		t.Fatalf("remove related failed: %v", err)
	}
	refs, err = repo.ListRelated(ctx, ud, rel, "acme", "u-1")
	if err != nil || len(refs) != 0 {
		t.Errorf("link should be gone, got %v %v", refs, err)
	}
}

func TestRelationshipsRequireBothEnds(t *testing.T) {
	repo := newTestRepo(t)
	ud := engine.UserDescriptor()
	ctx := t.Context()

	if err := repo.Insert(ctx, ud, userEntity("acme", "u-1", "alice")); err != nil {
		t.Fatal(err)
	}
	rel, _ := ud.Relation("entitlements")

	if err := repo.AddRelated(ctx, ud, rel, "acme", "u-1", "e-404"); !engine.IsNotFound(err) {
		t.Errorf("missing related end should be not found, got %v", err)
	}
	if err := repo.AddRelated(ctx, ud, rel, "acme", "u-404", "e-404"); !engine.IsNotFound(err) {
		t.Errorf("missing owner should be not found, got %v", err)
	}
}

func TestRelationshipsAreTenantScoped(t *testing.T) {
	repo := newTestRepo(t)
	ud := engine.UserDescriptor()
	ed := engine.EntitlementDescriptor()
	ctx := t.Context()

	if err := repo.Insert(ctx, ud, userEntity("t1", "u-1", "alice")); err != nil {
		t.Fatal(err)
	}
	if err := repo.Insert(ctx, ed, entitlementEntity("t2", "e-1", "VPN")); err != nil {
		t.Fatal(err)
	}
	rel, _ := ud.Relation("entitlements")

	// The entitlement exists, but under another tenant.
	if err := repo.AddRelated(ctx, ud, rel, "t1", "u-1", "e-1"); !engine.IsNotFound(err) {
		t.Errorf("cross-tenant link must be rejected, got %v", err)
	}
}
