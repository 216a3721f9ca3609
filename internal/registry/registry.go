package registry

import (
	"slices"

	"github.com/alphadose/haxmap"
)

// Registry is a concurrent name → value table.
type Registry[T any] interface {
	Get(name string) (T, bool)
	Add(name string, value T)
	// AddIfAbsent stores value unless the name is taken. It reports whether value was stored.
	AddIfAbsent(name string, value T) bool
	GetOrAdd(name string, value func() T) (T, bool)
	Del(name string) bool
	Len() int
	// Names returns the registered names in sorted order.
	Names() []string
}

type registry[T any] struct {
	values *haxmap.Map[string, T]
}

func New[T any]() Registry[T] {
	return &registry[T]{
		values: haxmap.New[string, T](),
	}
}

func (r *registry[T]) Get(name string) (T, bool) {
	return r.values.Get(name)
}

func (r *registry[T]) Add(name string, value T) {
	r.values.Set(name, value)
}

func (r *registry[T]) AddIfAbsent(name string, value T) bool {
	_, loaded := r.values.GetOrSet(name, value)
	return !loaded
}

func (r *registry[T]) GetOrAdd(name string, valueFn func() T) (T, bool) {
	return r.values.GetOrCompute(name, valueFn)
}

func (r *registry[T]) Del(name string) bool {
	if _, ok := r.values.Get(name); !ok {
		return false
	}
	r.values.Del(name)
	return true
}

func (r *registry[T]) Len() int {
	return int(r.values.Len())
}

func (r *registry[T]) Names() []string {
	names := make([]string, 0, r.Len())
	r.values.ForEach(func(name string, _ T) bool {
		names = append(names, name)
		return true
	})
	slices.Sort(names)
	return names
}
