package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lairchat/lair/chat"
	"github.com/lairchat/lair/chat/message"
)

func TestEventLog(t *testing.T) {
	var buf bytes.Buffer
	l := newEventLog(&buf, false)

	at := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	l.Observe(chat.Event{Kind: chat.SessionJoined, Time: at, Name: "alice", Addr: "127.0.0.1:1234"})
	l.Observe(chat.Event{Kind: chat.MessageDelivered, Time: at, Name: "bob", Message: message.NewAnnounceMsg("hi")})
	l.Observe(chat.Event{Kind: chat.DeliveryFailed, Time: at, Name: "bob", Err: errors.New("write failed")})
	l.Observe(chat.Event{Kind: chat.SessionLeft, Time: at, Name: "alice"})

	expected := []string{
		"2020-01-02T03:04:05Z alice joined from 127.0.0.1:1234",
		"2020-01-02T03:04:05Z delivery to bob failed: write failed",
		"2020-01-02T03:04:05Z alice left",
	}
	actual := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(actual) != len(expected) {
		t.Fatalf("Got: %q; Expected: %q", actual, expected)
	}
	for i := range expected {
		if actual[i] != expected[i] {
			t.Errorf("Got: %q; Expected: %q", actual[i], expected[i])
		}
	}
}

func TestEventLogVerbose(t *testing.T) {
	var buf bytes.Buffer
	l := newEventLog(&buf, true)
	l.Observe(chat.Event{Kind: chat.MessageDelivered, Time: time.Unix(0, 0), Name: "bob", Message: message.NewAnnounceMsg("hi")})

	if !strings.Contains(buf.String(), "bob <- hi") {
		t.Errorf("Got: %q; Expected a delivery line", buf.String())
	}
}
