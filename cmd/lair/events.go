package main

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/lairchat/lair/chat"
)

// eventLog writes one line per session event. Deliveries are only written
// when verbose is set since every recipient gets its own event.
type eventLog struct {
	mu      sync.Mutex
	w       io.Writer
	verbose bool

	joined, left, failed, delivered *color.Color
}

func newEventLog(w io.Writer, verbose bool) *eventLog {
	l := &eventLog{
		w:         w,
		verbose:   verbose,
		joined:    color.New(color.FgGreen),
		left:      color.New(color.FgYellow),
		failed:    color.New(color.FgRed, color.Bold),
		delivered: color.New(color.Faint),
	}
	useColor := false
	if f, ok := w.(*os.File); ok {
		useColor = isatty.IsTerminal(f.Fd())
	}
	for _, c := range []*color.Color{l.joined, l.left, l.failed, l.delivered} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return l
}

func (l *eventLog) Observe(e chat.Event) {
	var line string
	switch e.Kind {
	case chat.SessionJoined:
		line = l.joined.Sprintf("%s joined from %s", e.Name, e.Addr)
	case chat.SessionLeft:
		line = l.left.Sprintf("%s left", e.Name)
		if e.Err != nil {
			line = l.left.Sprintf("%s left: %s", e.Name, e.Err)
		}
	case chat.DeliveryFailed:
		line = l.failed.Sprintf("delivery to %s failed: %s", e.Name, e.Err)
	case chat.MessageDelivered:
		if !l.verbose || e.Message == nil {
			return
		}
		line = l.delivered.Sprintf("%s <- %s", e.Name, e.Message.String())
	default:
		return
	}

	l.mu.Lock()
	fmt.Fprintf(l.w, "%s %s\n", e.Time.UTC().Format(time.RFC3339), line)
	l.mu.Unlock()
}
