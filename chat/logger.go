package chat

import (
	"io"
	stdlog "log"
)

var logger *stdlog.Logger

// SetLogger changes the logger used for logging inside the package
func SetLogger(w io.Writer) {
	logger = stdlog.New(w, "[chat] ", stdlog.Flags())
}

func init() {
	SetLogger(io.Discard)
}
