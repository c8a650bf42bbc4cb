// Package inflight de-duplicates concurrent work keyed by string.
//
// For any key, at most one producer runs at a time; callers that arrive
// while it runs wait for and share its result. The registration is dropped
// as soon as the producer returns, whether it succeeded, failed or panicked,
// so the next caller after completion starts fresh work.
package inflight

import (
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Registry tracks in-progress producers per key.
// The zero value is ready to use. A Registry must not be copied after first use.
type Registry[V any] struct {
	group  singleflight.Group
	active atomic.Int64
}

// New creates an empty Registry.
func New[V any]() *Registry[V] {
	return &Registry[V]{}
}

// GetOrStart returns the result of the producer already running for key, or
// runs producer and shares its result with every caller that joins before it
// returns. A panic inside producer is returned as an error to all callers.
func (r *Registry[V]) GetOrStart(key string, producer func() (V, error)) (V, error) {
	v, err, _ := r.group.Do(key, func() (result any, err error) {
		r.active.Add(1)
		defer r.active.Add(-1)
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("producer for %q panicked: %v", key, p)
			}
		}()
		return producer()
	})
	typed, _ := v.(V)
	return typed, err
}

// Active returns the number of producers currently running.
func (r *Registry[V]) Active() int {
	return int(r.active.Load())
}
