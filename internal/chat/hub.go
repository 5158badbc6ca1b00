package chat

import (
	"context"
	"sync"
)

// Hub is the in-process Relay: a registry of group name to the set of
// currently connected members. Join/Leave mutate membership under a
// write lock; Publish snapshots the set under a read lock and delivers
// outside it.
type Hub struct {
	mu     sync.RWMutex
	groups map[string]map[Member]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{groups: make(map[string]map[Member]struct{})}
}

// Join registers a member in a group.
func (h *Hub) Join(group string, member Member) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.groups[group] == nil {
		h.groups[group] = make(map[Member]struct{})
	}
	h.groups[group][member] = struct{}{}
}

// Leave removes a member from a group. Absent membership is a no-op.
func (h *Hub) Leave(group string, member Member) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members := h.groups[group]
	if members == nil {
		return
	}
	delete(members, member)
	if len(members) == 0 {
		delete(h.groups, group)
	}
}

// Publish delivers the event to every current member of the group,
// including the publisher's own session if joined.
func (h *Hub) Publish(_ context.Context, group string, event Event) error {
	h.mu.RLock()
	members := make([]Member, 0, len(h.groups[group]))
	for member := range h.groups[group] {
		members = append(members, member)
	}
	h.mu.RUnlock()

	for _, member := range members {
		member.Deliver(event)
	}
	return nil
}

// MemberCount reports current group size.
func (h *Hub) MemberCount(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}
