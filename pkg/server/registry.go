package server

import (
	"sync"

	"github.com/yosida95/uritemplate/v3"

	"github.com/crosswire-ai/mcp-go/pkg/protocol"
)

// registry is an insertion-ordered collection keyed by a unique string.
// Re-adding an existing key replaces the entry in place, so listings stay
// duplicate-free and keep their original position.
type registry[T any] struct {
	mu    sync.RWMutex
	order []string
	items map[string]T
}

func newRegistry[T any]() *registry[T] {
	return &registry[T]{items: make(map[string]T)}
}

// add inserts or replaces the entry for key and reports whether the key
// was new.
func (r *registry[T]) add(key string, item T) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, exists := r.items[key]
	if !exists {
		r.order = append(r.order, key)
	}
	r.items[key] = item
	return !exists
}

func (r *registry[T]) remove(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[key]; !exists {
		return false
	}
	delete(r.items, key)
	for i, k := range r.order {
		if k == key {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

func (r *registry[T]) get(key string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[key]
	return item, ok
}

// snapshot returns the entries in registration order.
func (r *registry[T]) snapshot() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]T, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.items[k])
	}
	return out
}

func (r *registry[T]) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

type toolEntry struct {
	tool    protocol.Tool
	handler ToolHandler
}

type resourceEntry struct {
	resource protocol.Resource
	handler  ResourceHandler
}

type templateEntry struct {
	template protocol.ResourceTemplate
	compiled *uritemplate.Template
	handler  ResourceHandler
}

type promptEntry struct {
	prompt  protocol.Prompt
	handler PromptHandler
}
