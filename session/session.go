// Package session owns the recording lifecycle: one Session at a time moves
// through Idle → Recording → Transcribing and back, driven by the hotkey, the
// inactivity timer, or an explicit stop. The orchestrator sequences audio
// capture, transcription, and the tiered text delivery, and is the only
// component that mutates a Session.
package session

import (
	"context"
	"errors"
	"time"

	"sotto/insert"
	"sotto/transcriber"
)

// State is the lifecycle state of a Session.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateTranscribing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateTranscribing:
		return "transcribing"
	default:
		return "unknown"
	}
}

// Trigger identifies what ended a recording.
type Trigger string

const (
	TriggerStop       Trigger = "stop"
	TriggerHotkey     Trigger = "hotkey_release"
	TriggerInactivity Trigger = "inactivity"
)

var (
	ErrNotRecording     = errors.New("not recording")
	ErrAlreadyRecording = errors.New("already recording")
	ErrNoAudioCaptured  = errors.New("no audio captured")
	ErrNoActiveSession  = errors.New("no active session")
	ErrAudioCapture     = errors.New("audio capture failed")
	ErrTranscription    = errors.New("transcription failed")
	ErrTextInsertion    = errors.New("text insertion failed")
)

// Session is one recording-to-delivery lifecycle. The orchestrator hands out
// value copies only; callers never hold a mutable alias.
type Session struct {
	State          State
	StartedAt      time.Time
	AudioLevel     float64 // last observed level, clamped to [0,1]
	LastActivityAt time.Time
	Transcript     transcriber.Result
	Delivery       insert.Result
	delivered      bool // Delivery is set at most once
}

// LevelFunc receives normalized audio levels from the capture callback path.
// Implementations must not block. Alias so audio sources satisfy AudioSource
// without importing this package.
type LevelFunc = func(level float64)

// AudioSource starts and stops microphone capture. StopCapture returns the
// full PCM buffer recorded since StartCapture.
type AudioSource interface {
	StartCapture(cb LevelFunc) error
	StopCapture() ([]int16, error)
}

// TextDelivery inserts text into the focused application with an internal
// fallback order.
type TextDelivery interface {
	InsertWithFallback(text string) (insert.Result, error)
}

// Summary describes a completed (or failed) session for the statistics sink.
type Summary struct {
	StartedAt time.Time
	Duration  time.Duration
	Language  string
	WordCount int
	Success   bool
	Trigger   Trigger
}

// StatisticsSink records session summaries. Best effort: the orchestrator
// logs failures and never propagates them.
type StatisticsSink interface {
	RecordSession(s Summary) error
}

// SettingsSource supplies the language configured at session start.
type SettingsSource interface {
	CurrentLanguage() string
}

// OverlayNotifier mirrors session progress for the UI layer. Implemented by
// overlay.Tracker.
type OverlayNotifier interface {
	ShowRecording()
	ShowTranscribing() bool
	Hide()
	UpdateAudioLevel(level float64)
}

// Transcriber is re-exported narrow: the orchestrator needs only these two.
type Transcriber interface {
	Transcribe(ctx context.Context, samples []int16) (transcriber.Result, error)
	SwitchLanguage(code string) error
}

func clampLevel(level float64) float64 {
	if level < 0 {
		return 0
	}
	if level > 1 {
		return 1
	}
	return level
}
