package core

import (
	"fmt"
	"testing"
)

func TestBusDeliversToAllListeners(t *testing.T) {
	bus := NewBus()
	var got []string
	bus.Subscribe(TopicInvited, func(n Notification) error {
		got = append(got, "first:"+n.Subject)
		return nil
	})
	bus.Subscribe(TopicInvited, func(n Notification) error {
		got = append(got, "second:"+n.Subject)
		return nil
	})

	if err := bus.Publish(NewNotification(TopicInvited, "agent-1", nil)); err != nil {
		t.Fatalf("unexpected publish error: %v", err)
	}
	if len(got) != 2 || got[0] != "first:agent-1" || got[1] != "second:agent-1" {
		t.Fatalf("unexpected delivery order/content: %v", got)
	}
}

func TestBusListenerErrorDoesNotBlockOthers(t *testing.T) {
	bus := NewBus()
	secondRan := false
	bus.Subscribe(TopicRejected, func(Notification) error {
		return fmt.Errorf("listener exploded")
	})
	bus.Subscribe(TopicRejected, func(Notification) error {
		secondRan = true
		return nil
	})

	err := bus.Publish(NewNotification(TopicRejected, "agent-2", nil))
	if err == nil {
		t.Fatalf("expected aggregated listener error")
	}
	if !secondRan {
		t.Fatalf("second listener must run despite first listener's error")
	}
}

func TestBusNoListenersIsNoOp(t *testing.T) {
	bus := NewBus()
	if err := bus.Publish(NewNotification(TopicBasinMerged, "b1", nil)); err != nil {
		t.Fatalf("publish with no listeners should be nil, got %v", err)
	}
}
