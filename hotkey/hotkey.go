// Package hotkey registers the global push-to-talk chord. On Linux it reads
// evdev devices directly (X11 global hotkeys are unreliable under Wayland);
// elsewhere it uses the OS hotkey APIs via golang.design/x/hotkey.
package hotkey

import (
	"fmt"
	"strings"
)

type Hotkey interface {
	Register() error
	Unregister()
	Keydown() <-chan struct{}
	Keyup() <-chan struct{}
}

// Chord is a parsed hotkey combination: one or more modifiers plus a
// terminal key (space or a letter).
type Chord struct {
	Ctrl  bool
	Shift bool
	Alt   bool
	Key   string
}

// ParseChord parses strings like "ctrl+shift+space" or "ctrl+alt+d".
func ParseChord(s string) (Chord, error) {
	var c Chord
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "+")
	for i, p := range parts {
		p = strings.TrimSpace(p)
		last := i == len(parts)-1
		switch {
		case p == "ctrl" || p == "control":
			c.Ctrl = true
		case p == "shift":
			c.Shift = true
		case p == "alt" || p == "option":
			c.Alt = true
		case last && (p == "space" || (len(p) == 1 && p[0] >= 'a' && p[0] <= 'z')):
			c.Key = p
		default:
			return Chord{}, fmt.Errorf("unsupported hotkey element %q in %q", p, s)
		}
	}
	if c.Key == "" {
		return Chord{}, fmt.Errorf("hotkey %q has no terminal key", s)
	}
	if !c.Ctrl && !c.Shift && !c.Alt {
		return Chord{}, fmt.Errorf("hotkey %q needs at least one modifier", s)
	}
	return c, nil
}

func (c Chord) String() string {
	var parts []string
	if c.Ctrl {
		parts = append(parts, "ctrl")
	}
	if c.Shift {
		parts = append(parts, "shift")
	}
	if c.Alt {
		parts = append(parts, "alt")
	}
	parts = append(parts, c.Key)
	return strings.Join(parts, "+")
}
