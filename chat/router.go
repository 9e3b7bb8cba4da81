package chat

import (
	"fmt"
	"time"

	"github.com/lairchat/lair/chat/message"
)

// Router resolves the recipients of a message and hands it to each of them.
type Router struct {
	registry *Registry
	echo     bool
	observer Observer
}

// NewRouter creates a router over registry.
func NewRouter(registry *Registry) *Router {
	return &Router{
		registry: registry,
		observer: func(Event) {},
	}
}

// SetEcho controls whether senders receive their own broadcasts.
func (r *Router) SetEcho(echo bool) {
	r.echo = echo
}

// SetObserver sets the function called for delivery events.
func (r *Router) SetObserver(fn Observer) {
	if fn == nil {
		fn = func(Event) {}
	}
	r.observer = fn
}

// Dispatch delivers m to its recipients. Recipients are snapshotted from the
// registry first and then delivered to without holding any lock. A failed
// recipient is closed and never affects the others. The returned error is
// about the message itself, such as an unknown or unreachable direct
// recipient, and has already been reported to the sender.
func (r *Router) Dispatch(m message.Message) error {
	switch m := m.(type) {
	case *message.BroadcastMsg:
		members := r.registry.MembersOf(m.Room())
		if !contains(members, m.From()) {
			err := fmt.Errorf("%w: %s", ErrNotInRoom, m.Room())
			r.reject(m.From(), err)
			return err
		}
		for _, member := range members {
			if member.ID() == m.From() && !r.echo {
				continue
			}
			r.deliver(member, m)
		}
	case *message.DirectMsg:
		to, ok := r.registry.Lookup(m.Target())
		if !ok {
			err := fmt.Errorf("%w: %s", ErrRecipientNotFound, m.Target())
			r.reject(m.From(), err)
			return err
		}
		if err := r.deliver(to, m); err != nil {
			err = fmt.Errorf("%w: %s", ErrDeliveryFailed, to.Name())
			r.reject(m.From(), err)
			return err
		}
	case *message.SystemMsg:
		var members []Member
		switch m.Scope() {
		case message.ScopeGlobal:
			members = r.registry.Members()
		case message.ScopeRoom:
			members = r.registry.MembersOf(m.Target())
		case message.ScopePersonal:
			to, ok := r.registry.Get(m.Target())
			if !ok {
				return fmt.Errorf("%w: %s", ErrRecipientNotFound, m.Target())
			}
			members = []Member{to}
		}
		for _, member := range members {
			r.deliver(member, m)
		}
	case *message.ErrorMsg:
		to, ok := r.registry.Get(m.Target())
		if !ok {
			return fmt.Errorf("%w: %s", ErrRecipientNotFound, m.Target())
		}
		r.deliver(to, m)
	default:
		return fmt.Errorf("unroutable message type %T", m)
	}
	return nil
}

// reject reports err back to the sender of a message.
func (r *Router) reject(from string, err error) {
	if from == "" {
		return
	}
	if sender, ok := r.registry.Get(from); ok {
		r.deliver(sender, message.NewErrorMsg(err, from))
	}
}

// deliver sends m to one member. A member that fails is closed and the send
// error returned.
func (r *Router) deliver(to Member, m message.Message) error {
	if err := to.Send(m); err != nil {
		logger.Printf("Failed to deliver to %s: %s", to.Name(), err)
		r.observer(Event{
			Kind:      DeliveryFailed,
			Time:      time.Now(),
			SessionID: to.ID(),
			Name:      to.Name(),
			Message:   m,
			Err:       err,
		})
		to.Close()
		return err
	}
	r.observer(Event{
		Kind:      MessageDelivered,
		Time:      time.Now(),
		SessionID: to.ID(),
		Name:      to.Name(),
		Message:   m,
	})
	return nil
}

func contains(members []Member, id string) bool {
	for _, m := range members {
		if m.ID() == id {
			return true
		}
	}
	return false
}
