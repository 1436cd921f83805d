package core

import "errors"

// Listener receives notifications for topics it subscribed to. Returning an
// error never prevents other listeners from running; errors are collected by
// the bus and surfaced to the publisher in aggregate.
type Listener func(n Notification) error

// Bus is a minimal in-process publish/subscribe registry keyed by topic.
//
// Multiple listeners may subscribe to the same topic and are invoked in
// registration order. Unlike a callback chain, an error from one listener
// does not short-circuit the rest: plugin-style consumers must all observe
// every notification regardless of their neighbors' failures.
//
// The Bus is not thread-safe by itself. The substrate mutates state only
// from externally scheduled call sites (tick, gossip, routing, absorption
// events), so the host's single-threaded loop or external mutex covers the
// bus as well.
type Bus struct {
	listeners map[Topic][]Listener
}

// NewBus creates an empty bus ready for subscription.
func NewBus() *Bus {
	return &Bus{listeners: make(map[Topic][]Listener)}
}

// Subscribe registers fn for the given topic. Listeners cannot be
// unregistered individually; subscribe once at wiring time.
func (b *Bus) Subscribe(topic Topic, fn Listener) {
	b.listeners[topic] = append(b.listeners[topic], fn)
}

// SubscribeAll registers fn for every currently defined topic.
func (b *Bus) SubscribeAll(fn Listener) {
	for _, t := range []Topic{
		TopicStageChanged, TopicInvited, TopicAbsorbed, TopicRejected,
		TopicBasinMerged, TopicBasinSplit, TopicBasinAdopted,
	} {
		b.Subscribe(t, fn)
	}
}

// Publish delivers n to every listener of its topic, in registration order.
// All listeners run; the returned error joins whatever individual listeners
// returned (nil when none failed).
func (b *Bus) Publish(n Notification) error {
	var errs []error
	for _, fn := range b.listeners[n.Topic] {
		if err := fn(n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
