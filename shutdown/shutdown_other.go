//go:build !windows

package shutdown

import (
	"os"
	"os/signal"
	"syscall"
)

// Signals returns a channel that receives termination requests
// (Ctrl+C and SIGTERM).
func Signals() chan os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	return ch
}
