package chat

import "context"

// GroupForTicket maps a ticket to its broadcast group name.
func GroupForTicket(ticketID string) string {
	return "chat_" + ticketID
}

// Member receives events published to a group it has joined. Deliver
// must not block; implementations queue or drop.
type Member interface {
	Deliver(event Event)
}

// Relay is the fan-out capability consumed by chat sessions. It is
// injected rather than shared as a process-wide singleton so tests can
// fake it and deployments can swap the in-memory hub for the Redis
// implementation.
type Relay interface {
	Join(group string, member Member)
	// Leave is best-effort: leaving a group that was never joined is a no-op.
	Leave(group string, member Member)
	Publish(ctx context.Context, group string, event Event) error
}
