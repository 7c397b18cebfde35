// Package eventbus provides a small typed publish/subscribe bus used to
// decouple session components from the code that reacts to them.
//
// Topics carry their payload type, so publishers and subscribers agree on the
// shape of an event at compile time:
//
//	var TopicCartChanged = eventbus.Topic[Cart]("cart.changed")
//
//	unsubscribe := eventbus.Subscribe(bus, TopicCartChanged, func(c Cart) { ... })
//	defer unsubscribe()
//	eventbus.Emit(bus, TopicCartChanged, cart)
//
// Listeners are identified by pointer. Registering the same *Listener twice on
// a topic is a no-op, and removing a listener that is not registered is a
// no-op as well.
//
// Emit delivers synchronously, in registration order, to the listeners that
// were registered when Emit was called. A listener that panics is recovered
// and reported to the bus logger (and PanicHandler when set); the remaining
// listeners still run.
package eventbus

import (
	"fmt"
	"sync"
)

// Topic names an event and binds it to a payload type.
type Topic[T any] string

// String returns the topic name.
func (t Topic[T]) String() string {
	return string(t)
}

// Listener wraps a handler. The pointer is the handler identity.
type Listener[T any] struct {
	fn func(T)
}

// NewListener returns a listener for fn.
func NewListener[T any](fn func(T)) *Listener[T] {
	return &Listener[T]{fn: fn}
}

// Logger receives diagnostics for recovered listener panics. Args are
// key/value pairs, as glog loggers expect.
type Logger interface {
	Error(msg string, args ...any)
}

// PanicHandler is called with the topic and the recovered value wrapped in an
// error after a listener panics.
type PanicHandler func(topic string, err error)

// Option customizes a Bus.
type Option func(*Bus)

// WithLogger overrides the logger used to report recovered panics.
func WithLogger(logger Logger) Option {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithPanicHandler registers a callback for recovered listener panics.
func WithPanicHandler(handler PanicHandler) Option {
	return func(b *Bus) {
		b.onPanic = handler
	}
}

// Bus holds the listener sets of every topic. The zero value is not usable,
// call New.
type Bus struct {
	mu      sync.Mutex
	topics  map[string][]*entry
	logger  Logger
	onPanic PanicHandler
}

type entry struct {
	key  any
	call func(any)
	once bool
}

// New returns an empty bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		topics: make(map[string][]*entry),
		logger: defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// On registers l on topic. Registering a listener twice is a no-op.
func On[T any](b *Bus, topic Topic[T], l *Listener[T]) {
	if l == nil || l.fn == nil {
		return
	}
	b.add(string(topic), l, wrap(l), false)
}

// Off removes l from topic. It is a no-op when l is not registered.
func Off[T any](b *Bus, topic Topic[T], l *Listener[T]) {
	if l == nil {
		return
	}
	b.remove(string(topic), l)
}

// AddOnce registers fn so that it runs on the next Emit of topic only. The
// listener is removed before it is invoked. The returned listener can be used
// to cancel the registration with Off.
func AddOnce[T any](b *Bus, topic Topic[T], fn func(T)) *Listener[T] {
	l := NewListener(fn)
	if fn == nil {
		return l
	}
	b.add(string(topic), l, wrap(l), true)
	return l
}

// Subscribe registers fn on topic and returns a function that removes it.
func Subscribe[T any](b *Bus, topic Topic[T], fn func(T)) (unsubscribe func()) {
	l := NewListener(fn)
	On(b, topic, l)
	return func() {
		Off(b, topic, l)
	}
}

// Emit invokes every listener registered on topic with payload.
func Emit[T any](b *Bus, topic Topic[T], payload T) {
	name := string(topic)
	for _, e := range b.snapshot(name) {
		b.invoke(name, e, payload)
	}
}

// Count returns the number of listeners registered on topic.
func Count[T any](b *Bus, topic Topic[T]) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.topics[string(topic)])
}

func wrap[T any](l *Listener[T]) func(any) {
	return func(payload any) {
		// nil interface payloads arrive as untyped nil
		v, _ := payload.(T)
		l.fn(v)
	}
}

func (b *Bus) add(topic string, key any, call func(any), once bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, e := range b.topics[topic] {
		if e.key == key {
			return
		}
	}
	b.topics[topic] = append(b.topics[topic], &entry{key: key, call: call, once: once})
}

func (b *Bus) remove(topic string, key any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.topics[topic]
	for i, e := range entries {
		if e.key != key {
			continue
		}
		b.setEntries(topic, append(entries[:i:i], entries[i+1:]...))
		return
	}
}

// snapshot copies the listeners of topic and drops one-shot listeners from the
// registered set, so concurrent emits cannot run them twice.
func (b *Bus) snapshot(topic string) []*entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.topics[topic]
	if len(entries) == 0 {
		return nil
	}

	out := make([]*entry, len(entries))
	copy(out, entries)

	kept := entries[:0:0]
	for _, e := range entries {
		if !e.once {
			kept = append(kept, e)
		}
	}
	b.setEntries(topic, kept)

	return out
}

func (b *Bus) setEntries(topic string, entries []*entry) {
	if len(entries) == 0 {
		delete(b.topics, topic)
		return
	}
	b.topics[topic] = entries
}

func (b *Bus) invoke(topic string, e *entry, payload any) {
	defer func() {
		if r := recover(); r != nil {
			err, ok := r.(error)
			if !ok {
				err = fmt.Errorf("%v", r)
			}
			b.logger.Error("eventbus listener panicked", "topic", topic, "error", err)
			if b.onPanic != nil {
				b.onPanic(topic, err)
			}
		}
	}()
	e.call(payload)
}

type defLogger struct{}

func (defLogger) Error(msg string, args ...any) {
	fmt.Println(append([]any{"[ERR] EVENTBUS " + msg}, args...)...)
}
