package engine

import (
	"testing"
	"time"
)

func TestProjectUser(t *testing.T) {
	active := true
	e := &Entity{
		Kind:     KindUser,
		ID:       "u-1",
		TenantID: "acme",
		Attributes: map[string]any{
			"userName":    "alice",
			"displayName": "Alice",
			"emails": []any{
				map[string]any{"value": "a@example.com", "type": "work"},
			},
		},
		Active:    &active,
		Version:   3,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		UpdatedAt: time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC),
		Relations: map[string][]Ref{
			"entitlements": {{ID: "e-1", Display: "VPN", Kind: KindEntitlement}},
		},
	}

	doc := Project(UserDescriptor(), e, "/acme/scim/v2")

	schemas, _ := doc["schemas"].([]string)
	if len(schemas) != 1 || schemas[0] != "urn:ietf:params:scim:schemas:core:2.0:User" {
		t.Errorf("unexpected schemas: %v", doc["schemas"])
	}
	if doc["id"] != "u-1" || doc["userName"] != "alice" {
		t.Errorf("identity fields missing: %v", doc)
	}
	if doc["active"] != true {
		t.Errorf("active flag missing: %v", doc["active"])
	}
	if emails, ok := doc["emails"].([]any); !ok || len(emails) != 1 {
		t.Errorf("multi-valued attributes must project whole, got %v", doc["emails"])
	}

	ents, _ := doc["entitlements"].([]map[string]any)
	if len(ents) != 1 || ents[0]["value"] != "e-1" || ents[0]["display"] != "VPN" {
		t.Errorf("unexpected relation projection: %v", doc["entitlements"])
	}

	meta, _ := doc["meta"].(map[string]any)
	if meta == nil {
		t.Fatal("meta block missing")
	}
	if meta["resourceType"] != "User" {
		t.Errorf("unexpected resourceType %v", meta["resourceType"])
	}
	if meta["version"] != `W/"3"` {
		t.Errorf("unexpected version %v", meta["version"])
	}
	if meta["location"] != "/acme/scim/v2/Users/u-1" {
		t.Errorf("unexpected location %v", meta["location"])
	}
	if meta["created"] != "2026-01-02T03:04:05Z" {
		t.Errorf("unexpected created %v", meta["created"])
	}
}

func TestProjectGroupOmitsActive(t *testing.T) {
	e := &Entity{
		Kind:       KindGroup,
		ID:         "g-1",
		TenantID:   "acme",
		Attributes: map[string]any{"displayName": "Engineering"},
		Version:    1,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}

	doc := Project(GroupDescriptor(), e, "/acme/scim/v2")
	if _, present := doc["active"]; present {
		t.Error("hard-delete kinds carry no active flag")
	}
	if doc["displayName"] != "Engineering" {
		t.Errorf("displayName missing: %v", doc)
	}
}
