package buffer

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// placeholderPrefix marks a pattern segment that stands in for a resource id.
const placeholderPrefix = ":"

var (
	// ErrInvalidPattern is returned by NewRegistry for malformed endpoint patterns.
	ErrInvalidPattern = errors.New("invalid endpoint pattern")
	// ErrInvalidMethod is returned by NewRegistry for methods other than GET and POST.
	ErrInvalidMethod = errors.New("invalid endpoint method")
	// ErrDuplicatePattern is returned by NewRegistry when a pattern is registered twice.
	ErrDuplicatePattern = errors.New("duplicate endpoint pattern")
)

// Endpoint is a registered path template and the HTTP method used to call it.
type Endpoint struct {
	Pattern     string `json:"pattern"`
	Method      string `json:"method"`
	Description string `json:"description,omitempty"`

	segments []string
}

// HasPlaceholders reports whether the pattern contains at least one placeholder segment.
func (e Endpoint) HasPlaceholders() bool {
	return strings.Contains(e.Pattern, "/"+placeholderPrefix)
}

// matches reports whether the literal path fits the pattern segment by segment.
// Placeholder segments accept any non-empty segment; literal segments must be equal.
func (e Endpoint) matches(parts []string) bool {
	if len(parts) != len(e.segments) {
		return false
	}
	for i, seg := range e.segments {
		if strings.HasPrefix(seg, placeholderPrefix) {
			if parts[i] == "" {
				return false
			}
			continue
		}
		if seg != parts[i] {
			return false
		}
	}
	return true
}

// Registry is an immutable, ordered endpoint table.
// Resolution prefers an exact pattern match and otherwise returns the first
// pattern, in declaration order, whose placeholders accept the given path.
type Registry struct {
	endpoints []Endpoint
	exact     map[string]int
}

// NewRegistry builds a registry from endpoints in the given order.
func NewRegistry(endpoints ...Endpoint) (*Registry, error) {
	r := &Registry{
		endpoints: make([]Endpoint, 0, len(endpoints)),
		exact:     make(map[string]int, len(endpoints)),
	}
	for _, ep := range endpoints {
		if ep.Pattern == "" || !strings.HasPrefix(ep.Pattern, "/") {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPattern, ep.Pattern)
		}
		method := strings.ToUpper(ep.Method)
		if method != http.MethodGet && method != http.MethodPost {
			return nil, fmt.Errorf("%w: %q for %s", ErrInvalidMethod, ep.Method, ep.Pattern)
		}
		if _, dup := r.exact[ep.Pattern]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePattern, ep.Pattern)
		}
		ep.Method = method
		ep.segments = splitPath(ep.Pattern)
		r.exact[ep.Pattern] = len(r.endpoints)
		r.endpoints = append(r.endpoints, ep)
	}
	return r, nil
}

// MustNewRegistry is like NewRegistry but panics on error.
func MustNewRegistry(endpoints ...Endpoint) *Registry {
	r, err := NewRegistry(endpoints...)
	if err != nil {
		panic(fmt.Sprintf("buffer: %v", err))
	}
	return r
}

// Resolve finds the endpoint serving path.
func (r *Registry) Resolve(path string) (Endpoint, bool) {
	if i, ok := r.exact[path]; ok {
		return r.endpoints[i], true
	}
	parts := splitPath(path)
	for _, ep := range r.endpoints {
		if ep.matches(parts) {
			return ep, true
		}
	}
	return Endpoint{}, false
}

// Endpoints returns the table in declaration order.
func (r *Registry) Endpoints() []Endpoint {
	out := make([]Endpoint, len(r.endpoints))
	copy(out, r.endpoints)
	return out
}

// Len returns the number of registered endpoints.
func (r *Registry) Len() int { return len(r.endpoints) }

func splitPath(p string) []string {
	return strings.Split(p, "/")
}
