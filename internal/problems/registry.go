package problems

import (
	"sort"
	"strings"
)

// Registry accumulates problems and connections during a catalog
// import. Re-declaring a problem merges: empty fields fill in, a
// conflicting non-empty scalar field is a collision. Connections
// deduplicate on (axis, from, to).
type Registry struct {
	problems    map[string]*Problem
	connections map[Connection]struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		problems:    make(map[string]*Problem),
		connections: make(map[Connection]struct{}),
	}
}

// Register adds or merges a problem and returns the registered copy.
func (r *Registry) Register(p Problem) (*Problem, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.Name = strings.TrimSpace(p.Name)
	p.Slug = Slugify(p.Name)

	existing, ok := r.problems[p.Slug]
	if !ok {
		cp := p
		r.problems[p.Slug] = &cp
		return &cp, nil
	}

	if err := mergeField(p.Slug, "definition", &existing.Definition, p.Definition); err != nil {
		return nil, err
	}
	if err := mergeField(p.Slug, "description", &existing.Description, p.Description); err != nil {
		return nil, err
	}
	return existing, nil
}

// mergeField fills an empty field, accepts an equal one, and rejects a
// conflicting one.
func mergeField(slug, name string, dst *string, src string) error {
	if src == "" || src == *dst {
		return nil
	}
	if *dst == "" {
		*dst = src
		return nil
	}
	return &FieldCollisionError{Slug: slug, Field: name, Old: *dst, New: src}
}

// Connect registers a connection between two problems named by their
// display names, creating stub problems for endpoints not yet
// registered.
func (r *Registry) Connect(axis Axis, fromName, toName string) (Connection, error) {
	from, err := r.Register(Problem{Name: fromName})
	if err != nil {
		return Connection{}, err
	}
	to, err := r.Register(Problem{Name: toName})
	if err != nil {
		return Connection{}, err
	}

	conn := Connection{Axis: axis, From: from.Slug, To: to.Slug}
	if err := conn.Validate(); err != nil {
		return Connection{}, err
	}

	r.connections[conn] = struct{}{}
	return conn, nil
}

// Problem looks up a registered problem by slug.
func (r *Registry) Problem(slug string) (*Problem, bool) {
	p, ok := r.problems[slug]
	return p, ok
}

// Problems returns all registered problems, sorted by slug.
func (r *Registry) Problems() []Problem {
	out := make([]Problem, 0, len(r.problems))
	for _, p := range r.problems {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}

// Connections returns all registered connections, sorted by
// (axis, from, to).
func (r *Registry) Connections() []Connection {
	out := make([]Connection, 0, len(r.connections))
	for c := range r.connections {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Axis != b.Axis {
			return a.Axis < b.Axis
		}
		if a.From != b.From {
			return a.From < b.From
		}
		return a.To < b.To
	})
	return out
}
