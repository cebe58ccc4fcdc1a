package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignalEmitsInConnectionOrder(t *testing.T) {
	var s Signal[int]
	var got []string
	s.Connect(func(v int) { got = append(got, "a") })
	s.Connect(func(v int) { got = append(got, "b") })

	s.Emit(1)
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Equal(t, 2, s.Len())
}

func TestSignalCancelDuringEmit(t *testing.T) {
	var s Signal[int]
	calls := map[string]int{}

	var second *Subscription
	s.Connect(func(int) {
		calls["first"]++
		second.Cancel()
	})
	second = s.Connect(func(int) { calls["second"]++ })
	s.Connect(func(int) { calls["third"]++ })

	s.Emit(1)
	assert.Equal(t, 1, calls["first"])
	assert.Equal(t, 0, calls["second"])
	assert.Equal(t, 1, calls["third"])
	assert.Equal(t, 2, s.Len())

	s.Emit(2)
	assert.Equal(t, 2, calls["third"])
}

func TestSignalConnectDuringEmitWaitsForNextValue(t *testing.T) {
	var s Signal[int]
	var late []int
	s.Connect(func(v int) {
		if v == 1 {
			s.Connect(func(v int) { late = append(late, v) })
		}
	})

	s.Emit(1)
	assert.Empty(t, late)
	s.Emit(2)
	assert.Equal(t, []int{2}, late)
}

func TestSubscriptionCancelIsIdempotent(t *testing.T) {
	var s Signal[string]
	sub := s.Connect(func(string) {})
	sub.Cancel()
	sub.Cancel()
	assert.Equal(t, 0, s.Len())

	var nilSub *Subscription
	assert.NotPanics(t, func() { nilSub.Cancel() })
}

func TestSignalDisconnectAll(t *testing.T) {
	var s Signal[int]
	n := 0
	s.Connect(func(int) { n++ })
	s.Connect(func(int) { s.DisconnectAll() })
	s.Connect(func(int) { n++ })

	s.Emit(0)
	assert.Equal(t, 1, n)
	assert.Equal(t, 0, s.Len())

	s.Emit(0)
	assert.Equal(t, 1, n)
}

func TestSubscriptionsCancelAll(t *testing.T) {
	var a Signal[int]
	var b Signal[bool]
	var subs Subscriptions
	subs.Add(a.Connect(func(int) {}), b.Connect(func(bool) {}))
	b.Connect(func(bool) {})

	subs.CancelAll()
	assert.Empty(t, subs)
	assert.Equal(t, 0, a.Len())
	assert.Equal(t, 1, b.Len())
}
