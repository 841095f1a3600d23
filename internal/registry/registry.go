// Package registry maps class names to class values so type expressions can
// name classes that are not visible in the global scope, such as classes
// declared inside a module.
package registry

import (
	"sort"
	"sync"

	"github.com/albertocavalcante/tcjs/internal/jserr"
)

// Table is a name to class mapping. Entries are never removed.
// A Table is safe for concurrent use.
type Table struct {
	// mu protects entries
	mu      sync.RWMutex
	entries map[string]any

	// equal reports whether two class values are the same object.
	equal func(a, b any) bool

	// ambient reports whether a name is already bound in the global scope.
	ambient func(name string) bool
}

// New creates an empty table. equal compares class identity; ambient may be
// nil when there is no global scope to collide with.
func New(equal func(a, b any) bool, ambient func(name string) bool) *Table {
	if equal == nil {
		equal = func(a, b any) bool { return a == b }
	}
	return &Table{
		entries: make(map[string]any),
		equal:   equal,
		ambient: ambient,
	}
}

// Register binds name to typ.
//
// Registering the same class under the same name again is a no-op. A
// different class under a used name, or a name already bound in the global
// scope, is a *jserr.ReferenceError.
func (t *Table) Register(name string, typ any) error {
	if name == "" {
		return jserr.Typef("Cannot register an anonymous class")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if prev, ok := t.entries[name]; ok {
		if t.equal(prev, typ) {
			return nil
		}
		return redefinition(name)
	}
	if t.ambient != nil && t.ambient(name) {
		return redefinition(name)
	}
	t.entries[name] = typ
	return nil
}

func redefinition(name string) error {
	return jserr.Referencef("Redefinition of class '%s' (typechecked classes must have unique names, even across modules)", name)
}

// Lookup returns the class registered under name.
func (t *Table) Lookup(name string) (any, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	typ, ok := t.entries[name]
	return typ, ok
}

// Names returns the registered names in sorted order.
func (t *Table) Names() []string {
	t.mu.RLock()
	names := make([]string, 0, len(t.entries))
	for name := range t.entries {
		names = append(names, name)
	}
	t.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Len returns the number of registered classes.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
