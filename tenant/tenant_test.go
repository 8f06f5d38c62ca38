package tenant

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/getscimly/scimly/schema"
)

func TestValidateID(t *testing.T) {
	valid := []string{"acme", "acme-prod", "tenant_01", "A1"}
	for _, id := range valid {
		if err := ValidateID(id); err != nil {
			t.Errorf("ValidateID(%q) failed: %v", id, err)
		}
	}

	invalid := []string{"", "acme corp", "acme/prod", "ten.ant", strings.Repeat("a", MaxIDLength+1)}
	for _, id := range invalid {
		if err := ValidateID(id); err == nil {
			t.Errorf("ValidateID(%q) should fail", id)
		}
	}
}

func TestPathResolver(t *testing.T) {
	r := NewPathResolver("", 0)

	id, err := r.FromPath("/acme-prod/scim/v2/Users")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if id != "acme-prod" {
		t.Errorf("expected acme-prod, got %q", id)
	}

	if _, err := r.FromPath("/bad tenant/scim/v2/Users"); err == nil {
		t.Error("invalid segment should fail resolution")
	}

	prefixed := NewPathResolver("/directory", 0)
	id, err = prefixed.FromPath("/directory/acme/scim/v2/Users")
	if err != nil {
		t.Fatalf("prefixed resolve failed: %v", err)
	}
	if id != "acme" {
		t.Errorf("expected acme, got %q", id)
	}
	if _, err := prefixed.FromPath("/other/acme/scim/v2/Users"); err == nil {
		t.Error("missing prefix should fail resolution")
	}
}

func TestLoaderDefaultsForUnknownTenant(t *testing.T) {
	l := NewLoader()
	cfg := l.Config("never-declared")
	if cfg.ID != "never-declared" {
		t.Errorf("expected implicit tenant id, got %q", cfg.ID)
	}
	if !cfg.Strict {
		t.Error("default configuration should be strict")
	}
	if !cfg.KindEnabled("User") || !cfg.KindEnabled("Role") {
		t.Error("default configuration should enable all kinds")
	}
}

func TestLoadFile(t *testing.T) {
	doc := `
version: 1
tenants:
  - id: acme
    name: Acme Corp
    enabledKinds: [User, Group]
    strict: false
    rateCeilings:
      create: 5
    attributes:
      User:
        - name: costCenter
          type: string
`
	path := filepath.Join(t.TempDir(), "tenants.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	l, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	cfg := l.Config("acme")
	if cfg.Name != "Acme Corp" {
		t.Errorf("unexpected name %q", cfg.Name)
	}
	if cfg.KindEnabled("Entitlement") {
		t.Error("Entitlement should be disabled for acme")
	}
	if cfg.RateCeiling("create") != 5 {
		t.Errorf("expected create ceiling 5, got %d", cfg.RateCeiling("create"))
	}
	if cfg.RateCeiling("read") != 0 {
		t.Errorf("expected no read override, got %d", cfg.RateCeiling("read"))
	}

	attrs := cfg.KindAttributes("User", []schema.Attribute{{Name: "userName", Type: schema.TypeString, Required: true}})
	found := false
	for _, a := range attrs {
		if a.Name == "costCenter" {
			found = true
		}
	}
	if !found {
		t.Error("custom attribute should merge into the built-in tree")
	}
}

func TestLoadFileRejectsBadVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tenants.yaml")
	if err := os.WriteFile(path, []byte("version: 2\ntenants: []\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Error("unsupported version should fail")
	}
}

func TestConfigContext(t *testing.T) {
	cfg := DefaultConfig("acme")
	ctx := WithConfig(t.Context(), cfg)

	got, ok := FromContext(ctx)
	if !ok || got.ID != "acme" {
		t.Errorf("expected acme config from context, got %v %v", got, ok)
	}
	if _, ok := FromContext(t.Context()); ok {
		t.Error("bare context should carry no tenant config")
	}
}
