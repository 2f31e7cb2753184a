//go:build windows

package shutdown

import (
	"os"
	"os/signal"
)

// Signals returns a channel that receives termination requests. Windows has
// no SIGTERM; Ctrl+C and console close both surface as os.Interrupt.
func Signals() chan os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	return ch
}
