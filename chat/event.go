package chat

import (
	"fmt"
	"time"

	"github.com/lairchat/lair/chat/message"
)

// EventKind names things that happen to sessions and messages.
type EventKind int

const (
	SessionJoined EventKind = iota
	SessionLeft
	MessageDelivered
	DeliveryFailed
)

func (k EventKind) String() string {
	switch k {
	case SessionJoined:
		return "sessionJoined"
	case SessionLeft:
		return "sessionLeft"
	case MessageDelivered:
		return "messageDelivered"
	case DeliveryFailed:
		return "deliveryFailed"
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// Event is emitted for observers such as loggers. SessionID and Name refer to
// the session that joined or left, or to the recipient of a delivery.
type Event struct {
	Kind      EventKind
	Time      time.Time
	SessionID string
	Name      string
	Addr      string
	Message   message.Message
	Err       error
}

// Observer receives events. It is called synchronously and must not block.
type Observer func(Event)
