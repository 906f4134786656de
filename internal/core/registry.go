package core

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry   = make(map[string]Definition)
	registryMu sync.RWMutex
)

// Register adds a type definition to the registry.
// Panics if a type with the same key is already registered.
func Register(def Definition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	key := def.Info().Key
	if _, exists := registry[key]; exists {
		panic(fmt.Sprintf("type already registered: %s", key))
	}
	registry[key] = def
}

// Get returns a type definition by key, or *UnknownTypeError.
func Get(key string) (Definition, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[key]
	if !ok {
		return nil, &UnknownTypeError{Key: key}
	}
	return def, nil
}

// All returns all registered definitions.
// Sorted by group then by key for consistent ordering.
func All() []Definition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]Definition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i].Info(), result[j].Info()
		if a.Group != b.Group {
			return a.Group < b.Group
		}
		return a.Key < b.Key
	})

	return result
}

// ByGroup returns all definitions for a specific group, sorted by key.
func ByGroup(group string) []Definition {
	var result []Definition
	for _, def := range All() {
		if def.Info().Group == group {
			result = append(result, def)
		}
	}
	return result
}

// Groups returns all unique group names, sorted alphabetically.
func Groups() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	seen := make(map[string]bool)
	for _, def := range registry {
		seen[def.Info().Group] = true
	}

	groups := make([]string, 0, len(seen))
	for g := range seen {
		groups = append(groups, g)
	}

	sort.Strings(groups)
	return groups
}

// TypeCount returns the number of registered types.
func TypeCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}
