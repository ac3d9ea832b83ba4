package invocation

import (
	"iter"
	"maps"
	"slices"
)

// ContextData is the attribute bag shared by every interception of one
// invocation. Iteration is ordered by key. It is owned by a single
// invocation and is not safe for concurrent use.
type ContextData struct {
	values map[string]any
}

// NewContextData creates an empty attribute bag
func NewContextData() *ContextData {
	return &ContextData{values: make(map[string]any)}
}

// Set stores a value
func (d *ContextData) Set(key string, value any) {
	d.values[key] = value
}

// Get retrieves a value
func (d *ContextData) Get(key string) (any, bool) {
	value, exists := d.values[key]
	return value, exists
}

// GetString retrieves a string value
func (d *ContextData) GetString(key string) (string, bool) {
	value, exists := d.Get(key)
	if !exists {
		return "", false
	}
	str, ok := value.(string)
	return str, ok
}

// GetInt retrieves an int value
func (d *ContextData) GetInt(key string) (int, bool) {
	value, exists := d.Get(key)
	if !exists {
		return 0, false
	}
	i, ok := value.(int)
	return i, ok
}

// Delete removes a value
func (d *ContextData) Delete(key string) {
	delete(d.values, key)
}

// Len returns the number of attributes
func (d *ContextData) Len() int {
	return len(d.values)
}

// Keys returns the keys in ascending order
func (d *ContextData) Keys() []string {
	return slices.Sorted(maps.Keys(d.values))
}

// All iterates over the attributes in key order
func (d *ContextData) All() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		for _, k := range d.Keys() {
			v, ok := d.values[k]
			if !ok {
				continue
			}
			if !yield(k, v) {
				return
			}
		}
	}
}

// Snapshot returns a copy of the attributes
func (d *ContextData) Snapshot() map[string]any {
	return maps.Clone(d.values)
}
