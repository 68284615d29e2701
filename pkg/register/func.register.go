// Package register collects init-time registration hooks keyed by an
// arbitrary key type. The store layer uses it so each table store file
// wires itself into the provider without a central list.
package register

import "sync"

type Handler[T any] func(T)

var (
	mu       sync.RWMutex
	handlers = make(map[any][]any)
)

// RegisterFunc queues handler under key. Safe to call from init funcs
// in any order.
func RegisterFunc[T any](key any, handler Handler[T]) {
	mu.Lock()
	defer mu.Unlock()
	handlers[key] = append(handlers[key], handler)
}

// ResolveFuncHandlers returns every handler queued under key whose
// type matches T.
func ResolveFuncHandlers[T any](key any) []Handler[T] {
	mu.RLock()
	defer mu.RUnlock()

	var result []Handler[T]
	for _, v := range handlers[key] {
		if h, ok := v.(Handler[T]); ok {
			result = append(result, h)
		}
	}
	return result
}
