package tenant

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

// MaxIDLength bounds the accepted tenant identifier length.
const MaxIDLength = 64

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ResolutionError reports a request whose tenant identifier could not be
// extracted or failed validation.
type ResolutionError struct {
	Segment string
	Reason  string
}

func (e *ResolutionError) Error() string {
	if e.Segment == "" {
		return "tenant resolution failed: " + e.Reason
	}
	return fmt.Sprintf("tenant resolution failed for %q: %s", e.Segment, e.Reason)
}

// ValidateID checks a tenant identifier: non-empty, alphanumerics plus
// hyphen and underscore, bounded length. Existence is never checked —
// tenants are implicit.
func ValidateID(id string) error {
	if id == "" {
		return &ResolutionError{Reason: "empty tenant identifier"}
	}
	if len(id) > MaxIDLength {
		return &ResolutionError{Segment: id, Reason: "tenant identifier too long"}
	}
	if !idPattern.MatchString(id) {
		return &ResolutionError{Segment: id, Reason: "tenant identifier contains invalid characters"}
	}
	return nil
}

// Resolver extracts a tenant identifier from an inbound request.
type Resolver interface {
	Resolve(ctx context.Context, req *http.Request) (string, error)
}

// PathResolver extracts the tenant from a URL path segment.
// Example: /acme/scim/v2/Users with Position 0 → "acme".
type PathResolver struct {
	// Prefix is stripped before segments are counted (e.g. "/directory").
	Prefix string

	// Position is the 0-based path segment index holding the tenant.
	Position int
}

func NewPathResolver(prefix string, position int) *PathResolver {
	return &PathResolver{Prefix: prefix, Position: position}
}

// FromPath extracts and validates the tenant segment from a raw request path.
func (r *PathResolver) FromPath(path string) (string, error) {
	if r.Prefix != "" {
		if !strings.HasPrefix(path, r.Prefix) {
			return "", &ResolutionError{Reason: "path does not carry a tenant segment"}
		}
		path = strings.TrimPrefix(path, r.Prefix)
	}

	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	if r.Position < 0 || r.Position >= len(parts) {
		return "", &ResolutionError{Reason: "path does not carry a tenant segment"}
	}

	id := parts[r.Position]
	if err := ValidateID(id); err != nil {
		return "", err
	}
	return id, nil
}

func (r *PathResolver) Resolve(_ context.Context, req *http.Request) (string, error) {
	return r.FromPath(req.URL.Path)
}
