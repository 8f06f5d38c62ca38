package engine

import (
	"testing"
)

func TestPatchReplaceAttribute(t *testing.T) {
	eng := newUserEngine(newFakeStore())
	ctx := t.Context()

	alice, err := eng.Create(ctx, "acme", map[string]any{"userName": "alice"})
	if err != nil {
		t.Fatal(err)
	}

	updated, err := eng.Patch(ctx, "acme", alice.ID, []PatchOp{
		{Op: "replace", Path: "displayName", Value: "Alice A"},
	})
	if err != nil {
		t.Fatalf("patch failed: %v", err)
	}
	if updated.StringAttr("displayName") != "Alice A" {
		t.Errorf("displayName not applied: %v", updated.Attributes)
	}
	if updated.Version != 2 {
		t.Errorf("expected version 2, got %d", updated.Version)
	}
	if updated.StringAttr("userName") != "alice" {
		t.Error("untouched attributes must survive a patch")
	}
}

func TestPatchReplaceWithoutPathMerges(t *testing.T) {
	eng := newUserEngine(newFakeStore())
	ctx := t.Context()

	alice, err := eng.Create(ctx, "acme", map[string]any{"userName": "alice", "displayName": "Alice"})
	if err != nil {
		t.Fatal(err)
	}

	updated, err := eng.Patch(ctx, "acme", alice.ID, []PatchOp{
		{Op: "replace", Value: map[string]any{"displayName": "Alice A", "externalId": "ext-1"}},
	})
	if err != nil {
		t.Fatalf("patch failed: %v", err)
	}
	if updated.StringAttr("displayName") != "Alice A" || updated.StringAttr("externalId") != "ext-1" {
		t.Errorf("merge not applied: %v", updated.Attributes)
	}
}

func TestPatchAddToMultiValued(t *testing.T) {
	eng := newUserEngine(newFakeStore())
	ctx := t.Context()

	alice, err := eng.Create(ctx, "acme", map[string]any{
		"userName": "alice",
		"emails":   []any{map[string]any{"value": "a@example.com"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	updated, err := eng.Patch(ctx, "acme", alice.ID, []PatchOp{
		{Op: "add", Path: "emails", Value: map[string]any{"value": "b@example.com", "type": "work"}},
	})
	if err != nil {
		t.Fatalf("patch failed: %v", err)
	}
	emails, _ := updated.Attributes["emails"].([]any)
	if len(emails) != 2 {
		t.Errorf("expected 2 emails, got %v", emails)
	}

	// add is only defined for multi-valued attributes.
	if _, err := eng.Patch(ctx, "acme", alice.ID, []PatchOp{
		{Op: "add", Path: "displayName", Value: "Alice"},
	}); err == nil {
		t.Error("add to a single-valued attribute should fail")
	}
}

func TestPatchAddAfterBareValue(t *testing.T) {
	eng := newUserEngine(newFakeStore())
	ctx := t.Context()

	// A multi-valued attribute may be stored as a bare value; adding to
	// it must keep that value as the first element.
	alice, err := eng.Create(ctx, "acme", map[string]any{
		"userName": "alice",
		"emails":   map[string]any{"value": "a@example.com"},
	})
	if err != nil {
		t.Fatal(err)
	}

	updated, err := eng.Patch(ctx, "acme", alice.ID, []PatchOp{
		{Op: "add", Path: "emails", Value: map[string]any{"value": "b@example.com"}},
	})
	if err != nil {
		t.Fatalf("patch failed: %v", err)
	}
	emails, _ := updated.Attributes["emails"].([]any)
	if len(emails) != 2 {
		t.Fatalf("expected 2 emails, got %v", emails)
	}
	first, _ := emails[0].(map[string]any)
	if first["value"] != "a@example.com" {
		t.Errorf("original bare value must survive the add, got %v", emails)
	}

	// Remove by value must see the bare form the same way.
	bob, err := eng.Create(ctx, "acme", map[string]any{
		"userName": "bob",
		"emails":   map[string]any{"value": "b@example.com"},
	})
	if err != nil {
		t.Fatal(err)
	}
	updated, err = eng.Patch(ctx, "acme", bob.ID, []PatchOp{
		{Op: "remove", Path: "emails", Value: map[string]any{"value": "b@example.com"}},
	})
	if err != nil {
		t.Fatalf("patch failed: %v", err)
	}
	if emails, _ := updated.Attributes["emails"].([]any); len(emails) != 0 {
		t.Errorf("expected no emails left, got %v", emails)
	}
}

func TestPatchRemove(t *testing.T) {
	eng := newUserEngine(newFakeStore())
	ctx := t.Context()

	alice, err := eng.Create(ctx, "acme", map[string]any{
		"userName":    "alice",
		"displayName": "Alice",
		"emails": []any{
			map[string]any{"value": "a@example.com"},
			map[string]any{"value": "b@example.com"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	updated, err := eng.Patch(ctx, "acme", alice.ID, []PatchOp{
		{Op: "remove", Path: "displayName"},
		{Op: "remove", Path: "emails", Value: map[string]any{"value": "a@example.com"}},
	})
	if err != nil {
		t.Fatalf("patch failed: %v", err)
	}
	if _, present := updated.Attr("displayName"); present {
		t.Error("removed attribute should be gone")
	}
	emails, _ := updated.Attributes["emails"].([]any)
	if len(emails) != 1 {
		t.Errorf("expected 1 remaining email, got %v", emails)
	}

	// Removing an element that is not there is an error; removing an
	// absent attribute is a no-op.
	if _, err := eng.Patch(ctx, "acme", alice.ID, []PatchOp{
		{Op: "remove", Path: "emails", Value: map[string]any{"value": "zz@example.com"}},
	}); err == nil {
		t.Error("removing a missing element should fail")
	}
	if _, err := eng.Patch(ctx, "acme", alice.ID, []PatchOp{
		{Op: "remove", Path: "externalId"},
	}); err != nil {
		t.Errorf("removing an absent attribute should be a no-op: %v", err)
	}
}

func TestPatchIsAllOrNothing(t *testing.T) {
	eng := newUserEngine(newFakeStore())
	ctx := t.Context()

	alice, err := eng.Create(ctx, "acme", map[string]any{"userName": "alice"})
	if err != nil {
		t.Fatal(err)
	}

	_, err = eng.Patch(ctx, "acme", alice.ID, []PatchOp{
		{Op: "replace", Path: "displayName", Value: "Alice A"},
		{Op: "replace", Path: "shoeSize", Value: "42"},
	})
	if err == nil {
		t.Fatal("patch with a bad operation should fail")
	}

	got, err := eng.Get(ctx, "acme", alice.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.StringAttr("displayName") != "" {
		t.Error("a failed patch must not apply any of its operations")
	}
	if got.Version != 1 {
		t.Errorf("version must be unchanged after a failed patch, got %d", got.Version)
	}
}

func TestPatchValidatesResultingDocument(t *testing.T) {
	eng := newUserEngine(newFakeStore())
	ctx := t.Context()

	alice, err := eng.Create(ctx, "acme", map[string]any{"userName": "alice"})
	if err != nil {
		t.Fatal(err)
	}

	// The operation itself is well-formed, but the resulting document
	// drops a required attribute.
	if _, err := eng.Patch(ctx, "acme", alice.ID, []PatchOp{
		{Op: "remove", Path: "userName"},
	}); err == nil {
		t.Error("patch producing an invalid document should fail")
	}
}

func TestPatchUnsupportedOperation(t *testing.T) {
	eng := newUserEngine(newFakeStore())
	ctx := t.Context()

	alice, err := eng.Create(ctx, "acme", map[string]any{"userName": "alice"})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := eng.Patch(ctx, "acme", alice.ID, []PatchOp{
		{Op: "move", Path: "displayName", Value: "x"},
	}); err == nil {
		t.Error("unsupported operation should fail")
	}
}

func TestPatchUniqueMoveConflicts(t *testing.T) {
	eng := newUserEngine(newFakeStore())
	ctx := t.Context()

	if _, err := eng.Create(ctx, "acme", map[string]any{"userName": "alice"}); err != nil {
		t.Fatal(err)
	}
	bob, err := eng.Create(ctx, "acme", map[string]any{"userName": "bob"})
	if err != nil {
		t.Fatal(err)
	}

	_, err = eng.Patch(ctx, "acme", bob.ID, []PatchOp{
		{Op: "replace", Path: "userName", Value: "alice"},
	})
	if !IsConflict(err) {
		t.Errorf("patching onto a taken business key should conflict, got %v", err)
	}
}
