package engine

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/getscimly/scimly/schema"
)

// PatchOp is one partial-update operation.
type PatchOp struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
}

// Patch applies a list of add/replace/remove operations. Every operation
// is checked and the resulting document is validated in full before
// anything is persisted: one bad operation rejects the whole patch.
func (e *Engine) Patch(ctx context.Context, tenantID, id string, ops []PatchOp) (*Entity, error) {
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
	doc := copyAttributes(current.Attributes)
	for _, op := range ops {
		if err := applyOp(attrs, doc, op); err != nil {
			return nil, err
		}
	}
	if err := schema.Validate(attrs, doc, cfg.Strict); err != nil {
		return nil, err
	}
	if err := e.checkUniqueMove(ctx, tenantID, id, current, doc); err != nil {
		return nil, err
	}

	return e.persistWrite(ctx, current, doc)
}

func applyOp(attrs []schema.Attribute, doc map[string]any, op PatchOp) error {
	path := strings.TrimPrefix(op.Path, "/")

	switch strings.ToLower(op.Op) {
	case "replace":
		if path == "" {
			values, ok := op.Value.(map[string]any)
			if !ok {
				return &schema.ValidationError{Field: "", Index: -1, Detail: "replace without a path requires an object value", Provided: op.Value}
			}
			for name, v := range values {
				if _, known := attrByName(attrs, name); !known {
					return &schema.ValidationError{Field: name, Index: -1, Detail: "unknown attribute"}
				}
				doc[name] = v
			}
			return nil
		}
		if _, known := attrByName(attrs, path); !known {
			return &schema.ValidationError{Field: path, Index: -1, Detail: "unknown attribute"}
		}
		doc[path] = op.Value
		return nil

	case "add":
		if path == "" {
			return &schema.ValidationError{Field: "", Index: -1, Detail: "add requires a path"}
		}
		attr, known := attrByName(attrs, path)
		if !known {
			return &schema.ValidationError{Field: path, Index: -1, Detail: "unknown attribute"}
		}
		if !attr.MultiValued {
			return &schema.ValidationError{Field: path, Index: -1, Detail: "cannot add to a single-valued attribute"}
		}
		existing := sequence(doc[path])
		if values, ok := op.Value.([]any); ok {
			existing = append(existing, values...)
		} else {
			existing = append(existing, op.Value)
		}
		doc[path] = existing
		return nil

	case "remove":
		if path == "" {
			return &schema.ValidationError{Field: "", Index: -1, Detail: "remove requires a path"}
		}
		attr, known := attrByName(attrs, path)
		if !known {
			return &schema.ValidationError{Field: path, Index: -1, Detail: "unknown attribute"}
		}
		if _, present := doc[path]; !present {
			return nil
		}
		if attr.MultiValued && op.Value != nil {
			elements := sequence(doc[path])
			for i, elem := range elements {
				if reflect.DeepEqual(elem, op.Value) {
					doc[path] = append(elements[:i:i], elements[i+1:]...)
					return nil
				}
			}
			return &schema.ValidationError{Field: path, Index: -1, Detail: "value to remove not found", Provided: op.Value}
		}
		delete(doc, path)
		return nil

	default:
		return &schema.ValidationError{Field: path, Index: -1, Detail: fmt.Sprintf("unsupported patch operation %q", op.Op)}
	}
}

// sequence views a stored multi-valued attribute as a slice. Validation
// accepts a bare value as a one-element sequence, so patch operations
// must treat it the same way.
func sequence(v any) []any {
	switch cur := v.(type) {
	case nil:
		return nil
	case []any:
		return cur
	default:
		return []any{cur}
	}
}

func attrByName(attrs []schema.Attribute, name string) (schema.Attribute, bool) {
	for _, a := range attrs {
		if a.Name == name {
			return a, true
		}
	}
	return schema.Attribute{}, false
}
