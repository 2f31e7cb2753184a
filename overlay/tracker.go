// Package overlay tracks what the recording indicator should display: a
// visibility state, the last audio level, and an elapsed-seconds counter.
// It mirrors session progress without touching audio or transcription
// internals, so display logic stays independently testable.
package overlay

import (
	"fmt"
	"sync"
	"time"
)

// State is the overlay's visibility state.
type State int

const (
	StateHidden State = iota
	StateRecording
	StateTranscribing
)

func (s State) String() string {
	switch s {
	case StateHidden:
		return "hidden"
	case StateRecording:
		return "recording"
	case StateTranscribing:
		return "transcribing"
	default:
		return "unknown"
	}
}

// Snapshot is a read-only copy of the tracker's display state.
type Snapshot struct {
	State      State
	AudioLevel float64
	Seconds    int
}

// FormattedDuration renders elapsed time as minutes:seconds with the
// seconds zero-padded. Minutes are not capped, so an hour-long recording
// shows as "61:01" instead of switching formats.
func (s Snapshot) FormattedDuration() string {
	return FormatDuration(s.Seconds)
}

func (s Snapshot) Visible() bool {
	return s.State != StateHidden
}

// FormatDuration renders whole seconds as "m:ss".
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// Tracker is the overlay state machine. All transitions go through its
// methods; callers never assign state directly. The onChange callback, when
// set, receives a Snapshot after every visible change and must not call
// back into the Tracker.
type Tracker struct {
	onChange func(Snapshot)

	mu        sync.Mutex
	state     State
	level     float64
	seconds   int
	tickEvery time.Duration
	stopTick  chan struct{}
}

func New(onChange func(Snapshot)) *Tracker {
	return &Tracker{onChange: onChange, tickEvery: time.Second}
}

// ForceReset unconditionally returns to Hidden and zeroes level and
// duration. Used defensively at the start of a new session to clear any
// stuck state.
func (t *Tracker) ForceReset() {
	t.mu.Lock()
	t.resetLocked()
	snap := t.snapshotLocked()
	t.mu.Unlock()
	t.notify(snap)
}

// ShowRecording transitions to Recording and starts the 1-second duration
// counter. A tracker stuck in a prior session self-heals: any non-Hidden
// state is reset first.
func (t *Tracker) ShowRecording() {
	t.mu.Lock()
	if t.state != StateHidden {
		t.resetLocked()
	}
	t.state = StateRecording
	t.level = 0
	t.seconds = 0
	t.startCounterLocked()
	snap := t.snapshotLocked()
	t.mu.Unlock()
	t.notify(snap)
}

// ShowTranscribing freezes the duration counter and moves to Transcribing.
// Only valid from Recording: duplicate or out-of-order calls return false
// and leave the state unchanged.
func (t *Tracker) ShowTranscribing() bool {
	t.mu.Lock()
	if t.state != StateRecording {
		t.mu.Unlock()
		return false
	}
	t.stopCounterLocked()
	t.state = StateTranscribing
	snap := t.snapshotLocked()
	t.mu.Unlock()
	t.notify(snap)
	return true
}

// Hide returns to Hidden and zeroes level and duration. No-op when already
// Hidden.
func (t *Tracker) Hide() {
	t.mu.Lock()
	if t.state == StateHidden {
		t.mu.Unlock()
		return
	}
	t.resetLocked()
	snap := t.snapshotLocked()
	t.mu.Unlock()
	t.notify(snap)
}

// UpdateAudioLevel clamps and stores the level in any state. Purely
// cosmetic: no transition happens.
func (t *Tracker) UpdateAudioLevel(level float64) {
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}
	t.mu.Lock()
	t.level = level
	snap := t.snapshotLocked()
	t.mu.Unlock()
	t.notify(snap)
}

// Snapshot returns a copy of the current display state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Tracker) IsVisible() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state != StateHidden
}

func (t *Tracker) AudioLevel() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.level
}

// FormattedDuration returns the current elapsed time as "m:ss". While
// Transcribing it holds the value frozen at the moment recording stopped.
func (t *Tracker) FormattedDuration() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return FormatDuration(t.seconds)
}

func (t *Tracker) resetLocked() {
	t.stopCounterLocked()
	t.state = StateHidden
	t.level = 0
	t.seconds = 0
}

func (t *Tracker) snapshotLocked() Snapshot {
	return Snapshot{State: t.state, AudioLevel: t.level, Seconds: t.seconds}
}

func (t *Tracker) startCounterLocked() {
	t.stopCounterLocked()
	stop := make(chan struct{})
	t.stopTick = stop
	go func() {
		ticker := time.NewTicker(t.tickEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				t.tick(stop)
			case <-stop:
				return
			}
		}
	}()
}

func (t *Tracker) stopCounterLocked() {
	if t.stopTick != nil {
		close(t.stopTick)
		t.stopTick = nil
	}
}

// tick advances the counter. The stop channel doubles as a generation
// token: a tick from a counter that was already replaced or stopped is
// dropped instead of mutating the new session's display.
func (t *Tracker) tick(stop chan struct{}) {
	t.mu.Lock()
	if t.stopTick != stop || t.state != StateRecording {
		t.mu.Unlock()
		return
	}
	t.seconds++
	snap := t.snapshotLocked()
	t.mu.Unlock()
	t.notify(snap)
}

func (t *Tracker) notify(snap Snapshot) {
	if t.onChange != nil {
		t.onChange(snap)
	}
}
