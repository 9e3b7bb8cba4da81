package chat

import (
	"fmt"
	"strings"

	"github.com/lairchat/lair/chat/message"
)

type helpItem struct {
	Prefix string
	Text   string
}

type help struct {
	items       []helpItem
	prefixWidth int
}

// NewCommandsHelp creates a help container from command usages.
func NewCommandsHelp(usages []message.Usage) *help {
	h := help{
		items: []helpItem{},
	}
	for _, u := range usages {
		prefix := strings.TrimSpace(fmt.Sprintf("%s %s", u.Prefix, u.PrefixHelp))
		h.add(helpItem{prefix, u.Help})
	}
	return &h
}

func (h *help) add(item helpItem) {
	h.items = append(h.items, item)
	if len(item.Prefix) > h.prefixWidth {
		h.prefixWidth = len(item.Prefix)
	}
}

func (h help) String() string {
	r := []string{}
	format := fmt.Sprintf("%%-%ds - %%s", h.prefixWidth)
	for _, item := range h.items {
		r = append(r, fmt.Sprintf(format, item.Prefix, item.Text))
	}
	return strings.Join(r, "\n")
}
