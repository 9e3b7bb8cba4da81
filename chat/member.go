package chat

import (
	"time"

	"github.com/lairchat/lair/chat/message"
)

// Member is a connected session as seen by the registry and router.
type Member interface {
	ID() string
	Name() string
	SetName(string)
	Joined() time.Time

	// Send queues a message for delivery, it must not block.
	Send(message.Message) error
	// Close begins the member's disconnect.
	Close() error
}
