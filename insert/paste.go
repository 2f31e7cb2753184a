package insert

import (
	"runtime"
	"time"

	"github.com/micmonay/keybd_event"
)

// pasteHold is how long the chord is held down. Too short and some
// compositors drop the modifier before the key registers.
const pasteHold = 35 * time.Millisecond

type keystrokePaster struct {
	kb keybd_event.KeyBonding
}

func newKeystrokePaster() (*keystrokePaster, error) {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return nil, err
	}
	kb.SetKeys(keybd_event.VK_V)
	if runtime.GOOS == "darwin" {
		kb.HasSuper(true)
	} else {
		kb.HasCTRL(true)
	}
	return &keystrokePaster{kb: kb}, nil
}

func (p *keystrokePaster) Paste() error {
	if err := p.kb.Press(); err != nil {
		return err
	}
	time.Sleep(pasteHold)
	return p.kb.Release()
}
