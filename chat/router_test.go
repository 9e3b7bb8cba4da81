package chat

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/lairchat/lair/chat/message"
)

func setupRouter(t *testing.T) (*Registry, *Router, *mockMember, *mockMember, *mockMember) {
	t.Helper()
	r := NewRegistry(8)
	a := register(t, r, "a", "alice")
	b := register(t, r, "b", "bob")
	c := register(t, r, "c", "carol")
	r.Join("lobby", "a")
	r.Join("lobby", "b")
	return r, NewRouter(r), a, b, c
}

func author(m Member) message.Author {
	return message.Author{ID: m.ID(), Name: m.Name()}
}

func TestRouterBroadcast(t *testing.T) {
	_, router, a, b, c := setupRouter(t)

	if err := router.Dispatch(message.NewBroadcastMsg("lobby", "hi", author(a), 1)); err != nil {
		t.Fatal(err)
	}
	if actual, expected := b.Rendered(), []string{"[lobby] alice: hi"}; !reflect.DeepEqual(actual, expected) {
		t.Errorf("Got: %q; Expected: %q", actual, expected)
	}
	if actual := a.Rendered(); len(actual) != 0 {
		t.Errorf("sender received its own broadcast: %q", actual)
	}
	if actual := c.Rendered(); len(actual) != 0 {
		t.Errorf("non-member received broadcast: %q", actual)
	}

	router.SetEcho(true)
	router.Dispatch(message.NewBroadcastMsg("lobby", "again", author(a), 2))
	if actual, expected := a.Rendered(), []string{"[lobby] alice: again"}; !reflect.DeepEqual(actual, expected) {
		t.Errorf("Got: %q; Expected: %q", actual, expected)
	}
}

func TestRouterBroadcastNotInRoom(t *testing.T) {
	_, router, a, b, c := setupRouter(t)

	err := router.Dispatch(message.NewBroadcastMsg("lobby", "let me in", author(c), 1))
	if !errors.Is(err, ErrNotInRoom) {
		t.Errorf("Got: %v; Expected: %v", err, ErrNotInRoom)
	}
	if actual, expected := c.Rendered(), []string{"-> Err: not in room: lobby"}; !reflect.DeepEqual(actual, expected) {
		t.Errorf("Got: %q; Expected: %q", actual, expected)
	}
	if len(a.Rendered())+len(b.Rendered()) != 0 {
		t.Error("members received a rejected broadcast")
	}
}

func TestRouterDirect(t *testing.T) {
	r, router, a, b, c := setupRouter(t)

	if err := router.Dispatch(message.NewDirectMsg("b", "by id", author(a), 1)); err != nil {
		t.Fatal(err)
	}
	if err := router.Dispatch(message.NewDirectMsg("BOB", "by name", author(a), 2)); err != nil {
		t.Fatal(err)
	}
	expected := []string{"[PM from alice] by id", "[PM from alice] by name"}
	if actual := b.Rendered(); !reflect.DeepEqual(actual, expected) {
		t.Errorf("Got: %q; Expected: %q", actual, expected)
	}

	r.Unregister("b")
	err := router.Dispatch(message.NewDirectMsg("b", "still there?", author(a), 3))
	if !errors.Is(err, ErrRecipientNotFound) {
		t.Errorf("Got: %v; Expected: %v", err, ErrRecipientNotFound)
	}
	if actual, expected := a.Rendered(), []string{"-> Err: recipient not found: b"}; !reflect.DeepEqual(actual, expected) {
		t.Errorf("Got: %q; Expected: %q", actual, expected)
	}
	if len(b.Rendered())+len(c.Rendered()) != 0 {
		t.Error("other sessions were affected")
	}
}

func TestRouterSystem(t *testing.T) {
	_, router, a, b, c := setupRouter(t)

	router.Dispatch(message.NewRoomMsg("lobby", "carol joined."))
	router.Dispatch(message.NewAnnounceMsg("The lair is closed."))
	router.Dispatch(message.NewSystemMsg("just you", "c"))
	router.Dispatch(message.NewErrorMsg(ErrInvalidName, "c"))

	expected := []string{"[lobby] * carol joined.", " * The lair is closed."}
	for _, m := range []*mockMember{a, b} {
		if actual := m.Rendered(); !reflect.DeepEqual(actual, expected) {
			t.Errorf("Got: %q; Expected: %q", actual, expected)
		}
	}
	expected = []string{" * The lair is closed.", "-> just you", "-> Err: invalid name"}
	if actual := c.Rendered(); !reflect.DeepEqual(actual, expected) {
		t.Errorf("Got: %q; Expected: %q", actual, expected)
	}

	if err := router.Dispatch(message.NewSystemMsg("gone", "zzz")); !errors.Is(err, ErrRecipientNotFound) {
		t.Errorf("Got: %v; Expected: %v", err, ErrRecipientNotFound)
	}
}

func TestRouterFailedRecipient(t *testing.T) {
	r, router, a, b, c := setupRouter(t)
	r.Join("lobby", "c")
	b.mu.Lock()
	b.broken = true
	b.mu.Unlock()

	events := []Event{}
	router.SetObserver(func(e Event) {
		events = append(events, e)
	})

	if err := router.Dispatch(message.NewBroadcastMsg("lobby", "hi", author(a), 1)); err != nil {
		t.Errorf("a failed recipient failed the dispatch: %s", err)
	}
	if !b.isClosed() {
		t.Error("failed recipient was not closed")
	}
	if actual, expected := c.Rendered(), []string{"[lobby] alice: hi"}; !reflect.DeepEqual(actual, expected) {
		t.Errorf("Got: %q; Expected: %q", actual, expected)
	}

	kinds := []EventKind{}
	for _, e := range events {
		kinds = append(kinds, e.Kind)
	}
	if expected := []EventKind{DeliveryFailed, MessageDelivered}; !reflect.DeepEqual(kinds, expected) {
		t.Errorf("Got: %v; Expected: %v", kinds, expected)
	}
	if events[0].SessionID != "b" || events[0].Err == nil {
		t.Errorf("unexpected failure event: %+v", events[0])
	}
}

func TestRouterSenderOrder(t *testing.T) {
	r := NewRegistry(0)
	rx := register(t, r, "rx", "rx")
	r.Join("lobby", "rx")
	router := NewRouter(r)

	const senders = 4
	const count = 100
	var wg sync.WaitGroup
	for i := 0; i < senders; i++ {
		s := register(t, r, fmt.Sprintf("s%d", i), fmt.Sprintf("s%d", i))
		r.Join("lobby", s.ID())
		wg.Add(1)
		go func(from message.Author) {
			defer wg.Done()
			for seq := uint64(1); seq <= count; seq++ {
				router.Dispatch(message.NewBroadcastMsg("lobby", "x", from, seq))
			}
		}(author(s))
	}
	wg.Wait()

	last := map[string]uint64{}
	n := 0
	for _, m := range rx.Messages() {
		if m.Kind() != message.KindBroadcast {
			continue
		}
		n++
		if m.Seq() <= last[m.From()] {
			t.Fatalf("message from %s out of order: %d after %d", m.From(), m.Seq(), last[m.From()])
		}
		last[m.From()] = m.Seq()
	}
	if n != senders*count {
		t.Errorf("Got: %d; Expected: %d", n, senders*count)
	}
}

func TestHelp(t *testing.T) {
	h := NewCommandsHelp([]message.Usage{
		{Prefix: "/join", PrefixHelp: "ROOM", Help: "Join a room."},
		{Prefix: "/help", PrefixHelp: "", Help: "Help."},
	})
	expected := "/join ROOM - Join a room.\n/help      - Help."
	if actual := h.String(); actual != expected {
		t.Errorf("Got: %q; Expected: %q", actual, expected)
	}
}

func TestRouterDirectFailed(t *testing.T) {
	_, router, a, b, c := setupRouter(t)
	b.mu.Lock()
	b.broken = true
	b.mu.Unlock()

	events := []Event{}
	router.SetObserver(func(e Event) {
		events = append(events, e)
	})

	err := router.Dispatch(message.NewDirectMsg("b", "hi", author(a), 1))
	if !errors.Is(err, ErrDeliveryFailed) {
		t.Errorf("Got: %v; Expected: %v", err, ErrDeliveryFailed)
	}
	if !b.isClosed() {
		t.Error("failed recipient was not closed")
	}
	if actual, expected := a.Rendered(), []string{"-> Err: delivery failed: bob"}; !reflect.DeepEqual(actual, expected) {
		t.Errorf("Got: %q; Expected: %q", actual, expected)
	}
	if len(c.Rendered()) != 0 {
		t.Error("other sessions were affected")
	}
	if len(events) == 0 || events[0].Kind != DeliveryFailed || events[0].SessionID != "b" {
		t.Errorf("unexpected events: %+v", events)
	}
}
