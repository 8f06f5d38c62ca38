package engine

import (
	"fmt"
	"time"
)

// Project maps an internal entity and its related collections to the
// protocol's external representation using the descriptor's declarative
// field table plus a fixed metadata block. basePath is the routing prefix
// the resource lives under (e.g. "/acme/scim/v2"); it only shapes the
// meta.location value.
func Project(d *Descriptor, e *Entity, basePath string) map[string]any {
	out := map[string]any{
		"schemas": []string{d.Projection.URN},
		"id":      e.ID,
	}

	for _, f := range d.Projection.Fields {
		if v, ok := LookupRaw(e.Attributes, f.Path); ok {
			out[f.External] = v
		}
	}

	if e.Active != nil {
		out["active"] = *e.Active
	}

	for name, refs := range e.Relations {
		members := make([]map[string]any, 0, len(refs))
		for _, ref := range refs {
			m := map[string]any{"value": ref.ID}
			if ref.Display != "" {
				m["display"] = ref.Display
			}
			members = append(members, m)
		}
		out[name] = members
	}

	out["meta"] = map[string]any{
		"resourceType": string(d.Kind),
		"created":      e.CreatedAt.UTC().Format(time.RFC3339),
		"lastModified": e.UpdatedAt.UTC().Format(time.RFC3339),
		"version":      fmt.Sprintf("W/%q", fmt.Sprintf("%d", e.Version)),
		"location":     fmt.Sprintf("%s/%ss/%s", basePath, d.Kind, e.ID),
	}

	return out
}

// LookupRaw resolves a top-level path without flattening multi-valued
// attributes, so projection returns whole collections. Nested paths fall
// back to LookupPath.
func LookupRaw(attrs map[string]any, path string) (any, bool) {
	if v, ok := attrs[path]; ok {
		return v, true
	}
	return LookupPath(attrs, path)
}
