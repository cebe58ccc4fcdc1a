package game

// Signal is a typed, synchronous event source. Listeners run in connection
// order on the emitting goroutine.
type Signal[T any] struct {
	listeners []*listener[T]
	emitting  int
	dirty     bool
}

type listener[T any] struct {
	fn     func(T)
	active bool
}

// Subscription is the handle for one connected listener.
type Subscription struct {
	cancel func()
}

// Cancel disconnects the listener. Safe to call more than once and on nil.
func (s *Subscription) Cancel() {
	if s == nil || s.cancel == nil {
		return
	}
	s.cancel()
	s.cancel = nil
}

// Connect registers fn and returns the handle that disconnects it.
func (s *Signal[T]) Connect(fn func(T)) *Subscription {
	l := &listener[T]{fn: fn, active: true}
	s.listeners = append(s.listeners, l)
	return &Subscription{cancel: func() {
		if !l.active {
			return
		}
		l.active = false
		s.dirty = true
		s.compact()
	}}
}

// Emit delivers v to every connected listener. Listeners connected during
// Emit are not called for this value; listeners cancelled during Emit are
// skipped if they have not run yet.
func (s *Signal[T]) Emit(v T) {
	s.emitting++
	n := len(s.listeners)
	for i := 0; i < n; i++ {
		if l := s.listeners[i]; l.active {
			l.fn(v)
		}
	}
	s.emitting--
	s.compact()
}

// Len returns the number of connected listeners.
func (s *Signal[T]) Len() int {
	n := 0
	for _, l := range s.listeners {
		if l.active {
			n++
		}
	}
	return n
}

// DisconnectAll drops every listener.
func (s *Signal[T]) DisconnectAll() {
	for _, l := range s.listeners {
		l.active = false
	}
	s.dirty = true
	s.compact()
}

func (s *Signal[T]) compact() {
	if s.emitting > 0 || !s.dirty {
		return
	}
	kept := s.listeners[:0]
	for _, l := range s.listeners {
		if l.active {
			kept = append(kept, l)
		}
	}
	for i := len(kept); i < len(s.listeners); i++ {
		s.listeners[i] = nil
	}
	s.listeners = kept
	s.dirty = false
}

// Subscriptions groups the handles an owner holds on one instance so they
// can be torn down together when the instance is released.
type Subscriptions []*Subscription

// Add appends handles to the group.
func (g *Subscriptions) Add(subs ...*Subscription) {
	*g = append(*g, subs...)
}

// CancelAll disconnects every handle and empties the group.
func (g *Subscriptions) CancelAll() {
	for _, s := range *g {
		s.Cancel()
	}
	*g = (*g)[:0]
}
