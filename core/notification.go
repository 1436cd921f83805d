package core

import (
	"time"

	"github.com/google/uuid"
)

// Topic names a category of substrate activity that listeners can subscribe
// to. Topics are plain strings so an external transport can forward them
// without a lookup table.
type Topic string

const (
	// TopicStageChanged fires on every absorption stage transition,
	// including the two regressions back to the initial stage.
	TopicStageChanged Topic = "candidate:stage_changed"
	// TopicInvited fires when a candidate is explicitly invited.
	TopicInvited Topic = "candidate:invited"
	// TopicAbsorbed fires when a candidate reaches full membership.
	TopicAbsorbed Topic = "candidate:absorbed"
	// TopicRejected fires on explicit rejection or adversarial ejection.
	TopicRejected Topic = "candidate:rejected"
	// TopicBasinMerged fires when two attractor basins are merged,
	// whether by gossip reconciliation or capacity enforcement.
	TopicBasinMerged Topic = "basin:merged"
	// TopicBasinSplit fires when an overloaded basin is split in two.
	TopicBasinSplit Topic = "basin:split"
	// TopicBasinAdopted fires when a remote basin with no local match is
	// adopted from a gossip snapshot.
	TopicBasinAdopted Topic = "basin:adopted"
)

// Notification is the unit of communication from the substrate to external
// listeners. After emission it should be treated as immutable. The substrate
// has no knowledge of sockets or serialization; a transport layer subscribes
// and pushes these wherever they need to go.
type Notification struct {
	ID        string         `json:"id"`
	Topic     Topic          `json:"topic"`
	Subject   string         `json:"subject"` // agent id, basin id, ...
	Timestamp time.Time      `json:"timestamp"`
	Detail    map[string]any `json:"detail,omitempty"`
}

// NewNotification creates a notification about subject on the given topic.
func NewNotification(topic Topic, subject string, detail map[string]any) Notification {
	return Notification{
		ID:        NewID(),
		Topic:     topic,
		Subject:   subject,
		Timestamp: time.Now().UTC(),
		Detail:    detail,
	}
}

// NewID generates a new unique identifier for notifications, nodes and
// basins. Returns a string representation of a new UUID.
func NewID() string { return uuid.NewString() }
