// Package pool is a fixed-capacity free-list of reusable simulation entities
// keyed by prototype id.
//
// Instances are created lazily by a per-prototype factory, never freed, and
// handed out again after Release. The pool is the only authority on
// allocation: entities ask their owner to release them, they never release
// themselves. Acquire and Release are O(1).
package pool

import (
	"errors"
	"fmt"
)

var (
	// ErrExhausted is returned when the active ceiling has been reached.
	ErrExhausted = errors.New("pool: capacity exhausted")
	// ErrUnknownPrototype is returned for prototype ids never registered.
	ErrUnknownPrototype = errors.New("pool: unknown prototype")
	// ErrNotActive is returned when releasing an instance that is not
	// currently checked out.
	ErrNotActive = errors.New("pool: instance not active")
	// ErrDuplicatePrototype is returned when registering an id twice.
	ErrDuplicatePrototype = errors.New("pool: prototype already registered")
)

// Placement carries the spawn transform handed to an instance on Acquire.
type Placement struct {
	X, Y, Z float64
	Yaw     float64
	// Parent names the scene group the instance is attached to.
	Parent string
}

// Pooled is implemented by entities the pool can recycle. Spawn re-arms the
// instance for a new activation; Despawn must tear down everything the
// activation owned (timers, listeners, effects).
type Pooled interface {
	comparable
	Spawn(Placement)
	Despawn()
}

// Stats is a point-in-time view of one prototype's bucket.
type Stats struct {
	Prototype string `json:"prototype"`
	Allocated int    `json:"allocated"`
	Active    int    `json:"active"`
	Free      int    `json:"free"`
}

type bucket[T Pooled] struct {
	id        string
	factory   func() T
	free      []T
	allocated int
	active    int
}

type slot[T Pooled] struct {
	b     *bucket[T]
	index int // position in Pool.active
}

// Pool hands out instances of T up to a ceiling of simultaneously active
// instances across all prototypes. It is not safe for concurrent use.
type Pool[T Pooled] struct {
	limit   int
	buckets map[string]*bucket[T]
	order   []string
	active  []T
	slots   map[T]*slot[T]
}

// New creates a pool that allows at most limit active instances.
func New[T Pooled](limit int) *Pool[T] {
	if limit < 1 {
		limit = 1
	}
	return &Pool[T]{
		limit:   limit,
		buckets: make(map[string]*bucket[T]),
		active:  make([]T, 0, limit),
		slots:   make(map[T]*slot[T], limit),
	}
}

// Register adds a prototype and the factory that allocates its instances.
func (p *Pool[T]) Register(id string, factory func() T) error {
	if _, ok := p.buckets[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicatePrototype, id)
	}
	p.buckets[id] = &bucket[T]{
		id:      id,
		factory: factory,
		free:    make([]T, 0, p.limit),
	}
	p.order = append(p.order, id)
	return nil
}

// Prototypes returns the registered prototype ids in registration order.
func (p *Pool[T]) Prototypes() []string {
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// Acquire checks out an instance of the prototype, allocating one if the
// free list is empty, and spawns it at the placement.
func (p *Pool[T]) Acquire(id string, at Placement) (T, error) {
	var zero T
	b, ok := p.buckets[id]
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrUnknownPrototype, id)
	}
	if len(p.active) >= p.limit {
		return zero, fmt.Errorf("%w: %d active", ErrExhausted, len(p.active))
	}

	var inst T
	if n := len(b.free); n > 0 {
		inst = b.free[n-1]
		b.free[n-1] = zero
		b.free = b.free[:n-1]
	} else {
		inst = b.factory()
		b.allocated++
		p.slots[inst] = &slot[T]{b: b, index: -1}
	}

	s := p.slots[inst]
	s.index = len(p.active)
	p.active = append(p.active, inst)
	b.active++

	inst.Spawn(at)
	return inst, nil
}

// Release despawns an active instance and returns it to its free list.
// Releasing an instance twice reports ErrNotActive and has no effect.
func (p *Pool[T]) Release(inst T) error {
	s, ok := p.slots[inst]
	if !ok || s.index < 0 {
		return ErrNotActive
	}

	// swap-remove from the active list
	last := len(p.active) - 1
	moved := p.active[last]
	p.active[s.index] = moved
	p.slots[moved].index = s.index
	var zero T
	p.active[last] = zero
	p.active = p.active[:last]
	s.index = -1

	s.b.active--
	s.b.free = append(s.b.free, inst)

	inst.Despawn()
	return nil
}

// ReleaseAll despawns every active instance. It returns how many were
// released.
func (p *Pool[T]) ReleaseAll() int {
	n := 0
	for len(p.active) > 0 {
		if err := p.Release(p.active[len(p.active)-1]); err != nil {
			break
		}
		n++
	}
	return n
}

// IsActive reports whether inst is currently checked out.
func (p *Pool[T]) IsActive(inst T) bool {
	s, ok := p.slots[inst]
	return ok && s.index >= 0
}

// Len returns the number of active instances.
func (p *Pool[T]) Len() int {
	return len(p.active)
}

// Limit returns the active ceiling.
func (p *Pool[T]) Limit() int {
	return p.limit
}

// AppendActive appends the active instances to dst. Callers that release
// instances while iterating should iterate the returned copy.
func (p *Pool[T]) AppendActive(dst []T) []T {
	return append(dst, p.active...)
}

// Stats returns per-prototype bookkeeping in registration order.
func (p *Pool[T]) Stats() []Stats {
	out := make([]Stats, 0, len(p.order))
	for _, id := range p.order {
		b := p.buckets[id]
		out = append(out, Stats{
			Prototype: id,
			Allocated: b.allocated,
			Active:    b.active,
			Free:      len(b.free),
		})
	}
	return out
}
