package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"sotto/insert"
	"sotto/log"
	"sotto/transcriber"
)

const (
	DefaultInactivityTimeout = 30 * time.Second
	DefaultTalkingThreshold  = 0.02
)

type Config struct {
	// InactivityTimeout is how long the level may stay below
	// TalkingThreshold before recording auto-stops.
	InactivityTimeout time.Duration
	TalkingThreshold  float64
}

func (c Config) withDefaults() Config {
	if c.InactivityTimeout <= 0 {
		c.InactivityTimeout = DefaultInactivityTimeout
	}
	if c.TalkingThreshold <= 0 {
		c.TalkingThreshold = DefaultTalkingThreshold
	}
	return c
}

// Deps are the orchestrator's collaborators. Audio, Transcriber, and
// Delivery are required; the rest default to no-ops when nil.
type Deps struct {
	Audio       AudioSource
	Transcriber Transcriber
	Delivery    TextDelivery
	Stats       StatisticsSink
	Settings    SettingsSource
	Overlay     OverlayNotifier
}

// Orchestrator serializes one recording lifecycle at a time. All Session
// mutations happen under a single mutex; capture, transcription, and
// delivery I/O run outside it, re-validated against a generation counter
// so work finishing after a Cancel or restart is dropped instead of applied
// to the wrong Session.
type Orchestrator struct {
	cfg      Config
	ctx      context.Context
	audio    AudioSource
	tr       Transcriber
	delivery TextDelivery
	stats    StatisticsSink
	settings SettingsSource
	overlay  OverlayNotifier

	mu         sync.Mutex
	sess       *Session
	gen        uint64
	inactivity *time.Timer
	capturing  bool

	transcript transcriber.Result
	errMsg     string
	showPrompt bool
	copied     bool
}

func New(cfg Config, deps Deps) *Orchestrator {
	o := &Orchestrator{
		cfg:      cfg.withDefaults(),
		ctx:      context.Background(),
		audio:    deps.Audio,
		tr:       deps.Transcriber,
		delivery: deps.Delivery,
		stats:    deps.Stats,
		settings: deps.Settings,
		overlay:  deps.Overlay,
	}
	if o.stats == nil {
		o.stats = noopStats{}
	}
	if o.settings == nil {
		o.settings = noopSettings{}
	}
	if o.overlay == nil {
		o.overlay = noopOverlay{}
	}
	return o
}

// Start begins a new recording. A Start while a session is live self-heals:
// the stale session is discarded exactly as Cancel would, then a fresh one
// begins. Desynchronized callers are tolerated, not rejected.
func (o *Orchestrator) Start() error {
	o.Cancel()

	o.mu.Lock()
	o.gen++
	gen := o.gen
	now := time.Now()
	o.transcript = transcriber.Result{}
	o.errMsg = ""
	o.showPrompt = false
	o.copied = false
	o.sess = &Session{State: StateRecording, StartedAt: now, LastActivityAt: now}
	o.mu.Unlock()

	if lang := o.settings.CurrentLanguage(); lang != "" {
		if err := o.tr.SwitchLanguage(lang); err != nil {
			log.Warnf("language switch to %q failed: %v", lang, err)
		}
	}

	if err := o.audio.StartCapture(o.UpdateAudioLevel); err != nil {
		o.mu.Lock()
		if o.gen == gen {
			o.sess = nil
			o.errMsg = err.Error()
		}
		o.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrAudioCapture, err)
	}

	o.mu.Lock()
	if o.gen != gen {
		// Cancelled while capture was starting.
		o.mu.Unlock()
		o.audio.StopCapture()
		return nil
	}
	o.capturing = true
	o.armInactivityLocked(gen)
	o.mu.Unlock()

	o.overlay.ShowRecording()
	log.Info("session_start")
	return nil
}

// Stop ends recording explicitly (toggle mode) and runs the delivery
// procedure.
func (o *Orchestrator) Stop() error {
	return o.stopAndDeliver(TriggerStop)
}

// OnHotkeyReleased ends recording on hotkey release. Same path as Stop; the
// delivery flags are readable afterwards via ShowAccessibilityPrompt and
// LastTranscriptionCopiedToClipboard.
func (o *Orchestrator) OnHotkeyReleased() error {
	return o.stopAndDeliver(TriggerHotkey)
}

// Cancel discards any in-flight work and returns to Idle. Safe to call in
// any state and idempotent. It never waits for an in-flight transcription;
// the result is dropped when it eventually arrives.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	o.gen++
	o.stopInactivityLocked()
	wasCapturing := o.capturing
	o.capturing = false
	o.sess = nil
	o.transcript = transcriber.Result{}
	o.errMsg = ""
	o.showPrompt = false
	o.copied = false
	o.overlay.Hide()
	o.mu.Unlock()

	if wasCapturing {
		if _, err := o.audio.StopCapture(); err != nil {
			log.Warnf("stopping capture on cancel: %v", err)
		}
	}
}

// UpdateAudioLevel stores a clamped level sample and, when it crosses the
// talking threshold, pushes the inactivity deadline out. Called from the
// capture callback path: it must never block on I/O and never does.
func (o *Orchestrator) UpdateAudioLevel(level float64) {
	level = clampLevel(level)
	o.mu.Lock()
	if o.sess != nil {
		o.sess.AudioLevel = level
		if o.sess.State == StateRecording && level > o.cfg.TalkingThreshold {
			o.sess.LastActivityAt = time.Now()
			if o.inactivity != nil {
				o.inactivity.Reset(o.cfg.InactivityTimeout)
			}
		}
	}
	o.mu.Unlock()
	o.overlay.UpdateAudioLevel(level)
}

func (o *Orchestrator) armInactivityLocked(gen uint64) {
	o.inactivity = time.AfterFunc(o.cfg.InactivityTimeout, func() {
		o.inactivityFired(gen)
	})
}

func (o *Orchestrator) stopInactivityLocked() {
	if o.inactivity != nil {
		o.inactivity.Stop()
		o.inactivity = nil
	}
}

func (o *Orchestrator) inactivityFired(gen uint64) {
	o.mu.Lock()
	stale := o.gen != gen || o.sess == nil || o.sess.State != StateRecording
	o.mu.Unlock()
	if stale {
		// Armed for an earlier session; never apply effects to a new one.
		return
	}
	log.Info("inactivity_auto_stop")
	if err := o.stopAndDeliver(TriggerInactivity); err != nil {
		log.Errorf("auto-stop: %v", err)
	}
}

// stopAndDeliver is the shared stop path: halt capture, transcribe, insert,
// record statistics, reset to Idle. Every blocking call happens outside the
// mutex with a generation re-check before results are applied.
func (o *Orchestrator) stopAndDeliver(trigger Trigger) error {
	o.mu.Lock()
	if o.sess == nil || o.sess.State != StateRecording {
		o.mu.Unlock()
		return ErrNotRecording
	}
	gen := o.gen
	o.sess.State = StateTranscribing
	o.stopInactivityLocked()
	o.capturing = false
	startedAt := o.sess.StartedAt
	// Flags reset before every delivery attempt so a stale prompt from a
	// prior session never leaks forward.
	o.showPrompt = false
	o.copied = false
	o.mu.Unlock()

	if !o.overlay.ShowTranscribing() {
		log.Warnf("overlay out of sync on %s", trigger)
	}

	samples, err := o.audio.StopCapture()
	if err != nil {
		return o.fail(gen, startedAt, trigger, fmt.Errorf("%w: %v", ErrAudioCapture, err))
	}
	recDur := time.Since(startedAt)
	if len(samples) == 0 {
		return o.fail(gen, startedAt, trigger, ErrNoAudioCaptured)
	}

	lang := o.settings.CurrentLanguage()
	result, err := o.tr.Transcribe(o.ctx, samples)
	if err != nil {
		return o.fail(gen, startedAt, trigger, fmt.Errorf("%w: %v", ErrTranscription, err))
	}

	o.mu.Lock()
	if o.gen != gen {
		o.mu.Unlock()
		return nil // cancelled mid-transcription; result dropped
	}
	o.sess.Transcript = result
	o.transcript = result
	o.mu.Unlock()

	delivery, err := o.delivery.InsertWithFallback(result.Text)
	if err != nil {
		return o.fail(gen, startedAt, trigger, fmt.Errorf("%w: %v", ErrTextInsertion, err))
	}

	o.mu.Lock()
	if o.gen != gen {
		o.mu.Unlock()
		return nil
	}
	if !o.sess.delivered {
		o.sess.Delivery = delivery
		o.sess.delivered = true
	}
	switch delivery.Kind {
	case insert.RequiresPermission:
		// Text already reached the clipboard as the safety net before the
		// permission check failed.
		o.showPrompt = true
		o.copied = true
	case insert.ClipboardOnly:
		o.copied = true
	}
	o.overlay.Hide()
	o.sess = nil
	o.mu.Unlock()

	log.TranscriptionText(result.Text)
	log.Infof("session_done trigger=%s outcome=%s", trigger, delivery.Kind)
	o.record(Summary{
		StartedAt: startedAt,
		Duration:  recDur,
		Language:  lang,
		WordCount: len(strings.Fields(result.Text)),
		Success:   true,
		Trigger:   trigger,
	})
	return nil
}

func (o *Orchestrator) fail(gen uint64, startedAt time.Time, trigger Trigger, err error) error {
	o.mu.Lock()
	if o.gen != gen {
		o.mu.Unlock()
		return nil // superseded; nobody is waiting for this outcome
	}
	o.errMsg = err.Error()
	o.overlay.Hide()
	o.sess = nil
	o.mu.Unlock()

	log.Errorf("session_failed trigger=%s: %v", trigger, err)
	o.record(Summary{
		StartedAt: startedAt,
		Duration:  time.Since(startedAt),
		Language:  o.settings.CurrentLanguage(),
		Success:   false,
		Trigger:   trigger,
	})
	return err
}

func (o *Orchestrator) record(s Summary) {
	if err := o.stats.RecordSession(s); err != nil {
		log.Warnf("recording session stats: %v", err)
	}
}

// Snapshot returns a copy of the live Session, if any.
func (o *Orchestrator) Snapshot() (Session, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sess == nil {
		return Session{}, false
	}
	return *o.sess, true
}

func (o *Orchestrator) IsRecording() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sess != nil && o.sess.State == StateRecording
}

func (o *Orchestrator) IsTranscribing() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sess != nil && o.sess.State == StateTranscribing
}

// TranscribedText returns the text of the most recent successful
// transcription, cleared on Start and Cancel.
func (o *Orchestrator) TranscribedText() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.transcript.Text
}

func (o *Orchestrator) Confidence() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.transcript.Confidence
}

func (o *Orchestrator) ErrorMessage() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.errMsg
}

func (o *Orchestrator) ShowAccessibilityPrompt() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.showPrompt
}

func (o *Orchestrator) LastTranscriptionCopiedToClipboard() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.copied
}

type noopStats struct{}

func (noopStats) RecordSession(Summary) error { return nil }

type noopSettings struct{}

func (noopSettings) CurrentLanguage() string { return "" }

type noopOverlay struct{}

func (noopOverlay) ShowRecording()           {}
func (noopOverlay) ShowTranscribing() bool   { return true }
func (noopOverlay) Hide()                    {}
func (noopOverlay) UpdateAudioLevel(float64) {}
