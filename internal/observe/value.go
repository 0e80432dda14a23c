// Package observe holds state values that notify subscribers on change.
package observe

import "sync"

// Value is a publish/subscribe holder for a single state value. Set notifies
// every subscriber synchronously before returning. Subscribers may call Get
// but must not call Set on the same Value.
type Value[T any] struct {
	pub sync.Mutex // serializes Set+notify so observers see values in order

	mu   sync.Mutex
	v    T
	subs []sub[T]
	next int
}

type sub[T any] struct {
	id int
	fn func(T)
}

func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{v: initial}
}

func (o *Value[T]) Get() T {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.v
}

func (o *Value[T]) Set(v T) {
	o.pub.Lock()
	defer o.pub.Unlock()

	o.mu.Lock()
	o.v = v
	subs := append([]sub[T](nil), o.subs...)
	o.mu.Unlock()

	for _, s := range subs {
		s.fn(v)
	}
}

// Subscribe registers fn and calls it once with the current value. The
// returned func removes the subscription.
func (o *Value[T]) Subscribe(fn func(T)) (cancel func()) {
	o.pub.Lock()
	defer o.pub.Unlock()

	o.mu.Lock()
	o.next++
	id := o.next
	o.subs = append(o.subs, sub[T]{id: id, fn: fn})
	cur := o.v
	o.mu.Unlock()

	fn(cur)

	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		for i, s := range o.subs {
			if s.id == id {
				o.subs = append(o.subs[:i:i], o.subs[i+1:]...)
				return
			}
		}
	}
}
