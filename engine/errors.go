package engine

import "fmt"

// ConflictError reports a business-key uniqueness violation within a
// tenant. Uniqueness is never global: the same key in another tenant is
// not a conflict.
type ConflictError struct {
	Kind     Kind
	TenantID string
	Attr     string
	Value    any
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s with %s %q already exists", e.Kind, e.Attr, e.Value)
}

// NotFoundError reports a resource that does not exist within the tenant.
type NotFoundError struct {
	Kind Kind
	ID   string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Kind)
	}
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// KindDisabledError reports an operation on a kind the tenant's
// configuration document does not enable.
type KindDisabledError struct {
	Kind     Kind
	TenantID string
}

func (e *KindDisabledError) Error() string {
	return fmt.Sprintf("resource kind %s is not enabled for tenant %s", e.Kind, e.TenantID)
}

// IsNotFound checks if an error is a NotFoundError.
func IsNotFound(err error) bool {
	_, ok := err.(*NotFoundError)
	return ok
}

// IsConflict checks if an error is a ConflictError.
func IsConflict(err error) bool {
	_, ok := err.(*ConflictError)
	return ok
}
