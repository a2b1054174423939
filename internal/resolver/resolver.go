// Package resolver binds functions to their implementations. A function's
// resolver reference is opaque to the capability surface; the registry
// turns it into something callable.
package resolver

import (
	"context"
	stderrors "errors"
	"sync"

	"ontolock/internal/errors"
	"ontolock/internal/ontology"
)

var (
	// ErrEmptyName is returned when registering under an empty name.
	ErrEmptyName = stderrors.New("resolver: empty name")
	// ErrNilResolver is returned when registering a nil resolver.
	ErrNilResolver = stderrors.New("resolver: nil resolver")
	// ErrConflictingRegistration is returned when a name is already bound.
	ErrConflictingRegistration = stderrors.New("resolver: name already registered")
)

// Call is one prepared invocation. Args have already had context fields
// injected and been validated.
type Call struct {
	Function    string
	Args        map[string]any
	Principal   ontology.Principal
	Environment ontology.Environment
}

// Resolver executes a call.
type Resolver interface {
	Resolve(ctx context.Context, call Call) (any, error)
}

// Func adapts a plain function to Resolver.
type Func func(ctx context.Context, call Call) (any, error)

// Resolve calls f.
func (f Func) Resolve(ctx context.Context, call Call) (any, error) {
	return f(ctx, call)
}

// Strategy turns a reference the registry has no name for into a Resolver.
type Strategy interface {
	TryResolve(ref string) (Resolver, bool)
}

// Registry maps resolver references to implementations. Named entries win;
// otherwise strategies are tried in order.
type Registry struct {
	mu         sync.RWMutex
	named      map[string]Resolver
	strategies []Strategy
}

// NewRegistry creates a registry that falls back to strategies. Nil
// strategies are ignored.
func NewRegistry(strategies ...Strategy) *Registry {
	out := make([]Strategy, 0, len(strategies))
	for _, s := range strategies {
		if s != nil {
			out = append(out, s)
		}
	}
	return &Registry{named: make(map[string]Resolver), strategies: out}
}

// Register binds name to r. Re-registering the same resolver is a no-op.
func (r *Registry) Register(name string, res Resolver) error {
	if name == "" {
		return ErrEmptyName
	}
	if res == nil {
		return ErrNilResolver
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.named[name]; ok {
		if sameResolver(old, res) {
			return nil
		}
		return ErrConflictingRegistration
	}
	r.named[name] = res
	return nil
}

// Lookup finds the resolver for ref.
func (r *Registry) Lookup(ref string) (Resolver, bool) {
	if ref == "" {
		return nil, false
	}
	r.mu.RLock()
	res, ok := r.named[ref]
	strategies := r.strategies
	r.mu.RUnlock()
	if ok {
		return res, true
	}
	for _, s := range strategies {
		if res, ok := s.TryResolve(ref); ok {
			return res, true
		}
	}
	return nil, false
}

// Count returns the number of named entries.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.named)
}

// Dispatch runs fn's bound resolver. A missing binding, and any failure
// the resolver reports without its own code, is RESOLVER_UNAVAILABLE.
func (r *Registry) Dispatch(ctx context.Context, fn *ontology.Function, call Call) (any, error) {
	if fn.Resolver == "" {
		return nil, errors.Errorf(errors.ResolverUnavailable, "function %s has no resolver", fn.Name)
	}
	res, ok := r.Lookup(fn.Resolver)
	if !ok {
		return nil, errors.Errorf(errors.ResolverUnavailable, "no resolver registered for %q", fn.Resolver).
			WithDetails(map[string]string{"function": fn.Name, "resolver": fn.Resolver})
	}
	call.Function = fn.Name

	out, err := res.Resolve(ctx, call)
	if err != nil {
		if errors.CodeOf(err) != "" {
			return nil, err
		}
		return nil, errors.NewError(errors.ResolverUnavailable, "resolver for "+fn.Name+" failed", err)
	}
	return out, nil
}

// sameResolver compares without panicking on uncomparable dynamic types
// such as Func.
func sameResolver(a, b Resolver) (same bool) {
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}
