// Package insert places transcribed text into the focused application.
//
// Delivery is tiered: the text is always copied to the clipboard first (the
// safety net), then a paste keystroke is synthesized. Each tier that fails
// degrades to the next, and the final outcome tells the caller what actually
// happened.
package insert

import (
	"fmt"

	"github.com/atotto/clipboard"
)

// Kind is the outcome of a delivery attempt.
type Kind int

const (
	// InsertedDirectly: text was pasted into the focused application.
	InsertedDirectly Kind = iota
	// RequiresPermission: the paste keystroke cannot be synthesized without
	// an OS permission grant; the text is on the clipboard.
	RequiresPermission
	// ClipboardOnly: paste was attempted and failed; the text is on the
	// clipboard. Reason carries the failure.
	ClipboardOnly
)

func (k Kind) String() string {
	switch k {
	case InsertedDirectly:
		return "inserted"
	case RequiresPermission:
		return "permission_required"
	case ClipboardOnly:
		return "clipboard_only"
	default:
		return "unknown"
	}
}

// Result is the outcome of InsertWithFallback. Reason is set only for
// ClipboardOnly.
type Result struct {
	Kind   Kind
	Reason string
}

// Paster synthesizes a paste keystroke into the focused window.
type Paster interface {
	Paste() error
}

// Deliverer implements the tiered insertion fallback.
type Deliverer struct {
	copy      func(string) error
	paster    Paster
	pasterErr error // non-nil when keystroke synthesis is unavailable
}

// New builds a Deliverer backed by the system clipboard and a synthesized
// paste keystroke. When keystroke synthesis is unavailable (missing input
// permissions), delivery degrades to RequiresPermission outcomes.
func New() *Deliverer {
	d := &Deliverer{copy: clipboard.WriteAll}
	p, err := newKeystrokePaster()
	if err != nil {
		d.pasterErr = err
		return d
	}
	d.paster = p
	return d
}

// NewWith builds a Deliverer with explicit tiers. pasterErr marks keystroke
// synthesis as unavailable; it wins over paster.
func NewWith(copyFn func(string) error, paster Paster, pasterErr error) *Deliverer {
	return &Deliverer{copy: copyFn, paster: paster, pasterErr: pasterErr}
}

// InsertWithFallback runs the tiers in order. A returned error means not even
// the clipboard tier succeeded; the Result is only meaningful when err is nil.
func (d *Deliverer) InsertWithFallback(text string) (Result, error) {
	if err := d.copy(text); err != nil {
		return Result{}, fmt.Errorf("clipboard copy: %w", err)
	}
	if d.pasterErr != nil {
		return Result{Kind: RequiresPermission}, nil
	}
	if err := d.paster.Paste(); err != nil {
		return Result{Kind: ClipboardOnly, Reason: err.Error()}, nil
	}
	return Result{Kind: InsertedDirectly}, nil
}
