package capability

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"trader/pkg/exception"
)

// ID names the variant a capability should resolve to, e.g. "binance".
type ID string

// Normalize trims and lower-cases the identifier.
func (id ID) Normalize() ID {
	return ID(strings.ToLower(strings.TrimSpace(string(id))))
}

// Variant is one concrete implementation of capability T, tagged with the
// identifier it answers to.
type Variant[T any, D any] struct {
	ID   ID
	Name string
	New  func(D) (T, error)
}

// ResolutionKind tells why a resolution failed.
type ResolutionKind uint8

const (
	ResolutionNotFound ResolutionKind = iota + 1
	ResolutionAmbiguous
)

func (k ResolutionKind) String() string {
	switch k {
	case ResolutionNotFound:
		return "not found"
	case ResolutionAmbiguous:
		return "ambiguous"
	default:
		return "unknown"
	}
}

// ResolutionError is returned when a capability cannot be wired.
type ResolutionError struct {
	Capability string
	ID         ID
	Kind       ResolutionKind
	Candidates []string
}

func (e *ResolutionError) Error() string {
	switch e.Kind {
	case ResolutionAmbiguous:
		return fmt.Sprintf("resolve %s %q: %s (candidates: %s)", e.Capability, e.ID, e.Kind, strings.Join(e.Candidates, ", "))
	default:
		return fmt.Sprintf("resolve %s %q: %s (known: %s)", e.Capability, e.ID, e.Kind, strings.Join(e.Candidates, ", "))
	}
}

func (e *ResolutionError) Unwrap() error {
	if e.Kind == ResolutionAmbiguous {
		return exception.ErrCapabilityAmbiguous
	}
	return exception.ErrCapabilityNotFound
}

// Registry holds every known variant of a single capability.
// Variants are registered at build time; Resolve never mutates it.
type Registry[T any, D any] struct {
	capability string

	mu       sync.Mutex
	variants []Variant[T, D]
	sorted   bool
}

// NewRegistry creates an empty registry for the named capability.
func NewRegistry[T any, D any](capability string) *Registry[T, D] {
	return &Registry[T, D]{capability: capability}
}

// Capability returns the capability name, e.g. "connector".
func (r *Registry[T, D]) Capability() string {
	return r.capability
}

// Register adds a variant. Duplicate identifiers are accepted here and
// rejected at resolution time so every ambiguity is reported with its
// full candidate list.
func (r *Registry[T, D]) Register(v Variant[T, D]) error {
	v.ID = v.ID.Normalize()
	if v.ID == "" {
		return fmt.Errorf("register %s variant %q: %w", r.capability, v.Name, exception.ErrCapabilityEmptyID)
	}
	if v.New == nil {
		return fmt.Errorf("register %s variant %q: %w", r.capability, v.Name, exception.ErrCapabilityNilFactory)
	}
	if v.Name == "" {
		v.Name = string(v.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.variants = append(r.variants, v)
	r.sorted = false
	return nil
}

// MustRegister is Register for build-time tables.
func (r *Registry[T, D]) MustRegister(vs ...Variant[T, D]) *Registry[T, D] {
	for _, v := range vs {
		if err := r.Register(v); err != nil {
			panic(err)
		}
	}
	return r
}

// Resolve scans every variant in a stable order and returns the single one
// whose identifier equals id.
func (r *Registry[T, D]) Resolve(id ID) (Variant[T, D], error) {
	id = id.Normalize()
	variants := r.snapshot()

	var (
		match   Variant[T, D]
		matches []string
	)
	for _, v := range variants {
		if v.ID != id {
			continue
		}
		if len(matches) == 0 {
			match = v
		}
		matches = append(matches, v.Name)
	}

	switch len(matches) {
	case 1:
		return match, nil
	case 0:
		return Variant[T, D]{}, &ResolutionError{
			Capability: r.capability,
			ID:         id,
			Kind:       ResolutionNotFound,
			Candidates: identifiers(variants),
		}
	default:
		return Variant[T, D]{}, &ResolutionError{
			Capability: r.capability,
			ID:         id,
			Kind:       ResolutionAmbiguous,
			Candidates: matches,
		}
	}
}

// Build resolves id and instantiates the variant with deps.
func (r *Registry[T, D]) Build(id ID, deps D) (T, Variant[T, D], error) {
	var zero T
	v, err := r.Resolve(id)
	if err != nil {
		return zero, v, err
	}
	instance, err := v.New(deps)
	if err != nil {
		return zero, v, fmt.Errorf("build %s %q (%s): %w", r.capability, v.ID, v.Name, err)
	}
	return instance, v, nil
}

// IDs returns the distinct registered identifiers in sorted order.
func (r *Registry[T, D]) IDs() []ID {
	variants := r.snapshot()
	out := make([]ID, 0, len(variants))
	for _, v := range variants {
		out = append(out, v.ID)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Len returns the number of registered variants.
func (r *Registry[T, D]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.variants)
}

func (r *Registry[T, D]) snapshot() []Variant[T, D] {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.sorted {
		slices.SortStableFunc(r.variants, func(a, b Variant[T, D]) int {
			if c := strings.Compare(a.Name, b.Name); c != 0 {
				return c
			}
			return strings.Compare(string(a.ID), string(b.ID))
		})
		r.sorted = true
	}
	return slices.Clone(r.variants)
}

func identifiers[T any, D any](variants []Variant[T, D]) []string {
	out := make([]string, 0, len(variants))
	for _, v := range variants {
		out = append(out, string(v.ID))
	}
	slices.Sort(out)
	return slices.Compact(out)
}
