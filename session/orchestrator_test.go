package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"sotto/insert"
	"sotto/transcriber"
)

type fakeAudio struct {
	mu         sync.Mutex
	cb         LevelFunc
	samples    []int16
	startErr   error
	stopErr    error
	startCalls int
	stopCalls  int
}

func (f *fakeAudio) StartCapture(cb LevelFunc) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startCalls++
	if f.startErr != nil {
		return f.startErr
	}
	f.cb = cb
	return nil
}

func (f *fakeAudio) StopCapture() ([]int16, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCalls++
	if f.stopErr != nil {
		return nil, f.stopErr
	}
	return f.samples, nil
}

func (f *fakeAudio) level(v float64) {
	f.mu.Lock()
	cb := f.cb
	f.mu.Unlock()
	if cb != nil {
		cb(v)
	}
}

type fakeDelivery struct {
	mu     sync.Mutex
	result insert.Result
	err    error
	texts  []string
}

func (f *fakeDelivery) InsertWithFallback(text string) (insert.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	if f.err != nil {
		return insert.Result{}, f.err
	}
	return f.result, nil
}

func (f *fakeDelivery) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.texts)
}

type fakeStats struct {
	mu        sync.Mutex
	summaries []Summary
}

func (f *fakeStats) RecordSession(s Summary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaries = append(f.summaries, s)
	return nil
}

func (f *fakeStats) last() (Summary, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.summaries) == 0 {
		return Summary{}, false
	}
	return f.summaries[len(f.summaries)-1], true
}

type fakeOverlay struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeOverlay) ShowRecording() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, "recording")
}

func (f *fakeOverlay) ShowTranscribing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, "transcribing")
	return true
}

func (f *fakeOverlay) Hide() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, "hidden")
}

func (f *fakeOverlay) UpdateAudioLevel(float64) {}

func (f *fakeOverlay) sequence() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	copy(out, f.events)
	return out
}

type testRig struct {
	o        *Orchestrator
	audio    *fakeAudio
	tr       *transcriber.Fake
	delivery *fakeDelivery
	stats    *fakeStats
	overlay  *fakeOverlay
}

func newTestRig(cfg Config) *testRig {
	r := &testRig{
		audio:    &fakeAudio{samples: []int16{1, 2, 3, 4}},
		tr:       transcriber.NewFake("hello world", 0.95),
		delivery: &fakeDelivery{result: insert.Result{Kind: insert.InsertedDirectly}},
		stats:    &fakeStats{},
		overlay:  &fakeOverlay{},
	}
	r.o = New(cfg, Deps{
		Audio:       r.audio,
		Transcriber: r.tr,
		Delivery:    r.delivery,
		Stats:       r.stats,
		Overlay:     r.overlay,
	})
	return r
}

func TestStartStopDeliversTranscript(t *testing.T) {
	r := newTestRig(Config{})

	if err := r.o.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !r.o.IsRecording() {
		t.Fatal("expected recording state after Start")
	}
	r.audio.level(0.6)

	if err := r.o.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if r.o.IsRecording() || r.o.IsTranscribing() {
		t.Error("expected idle state after Stop")
	}
	if got := r.o.TranscribedText(); got != "hello world" {
		t.Errorf("TranscribedText = %q", got)
	}
	if got := r.o.Confidence(); got != 0.95 {
		t.Errorf("Confidence = %f", got)
	}
	if r.o.ShowAccessibilityPrompt() {
		t.Error("prompt flag should be false after direct insertion")
	}
	if r.o.LastTranscriptionCopiedToClipboard() {
		t.Error("clipboard flag should be false after direct insertion")
	}
	if r.delivery.calls() != 1 || r.delivery.texts[0] != "hello world" {
		t.Errorf("delivery calls = %v", r.delivery.texts)
	}

	sum, ok := r.stats.last()
	if !ok {
		t.Fatal("no session recorded")
	}
	if !sum.Success || sum.WordCount != 2 || sum.Trigger != TriggerStop {
		t.Errorf("summary = %+v", sum)
	}
}

func TestStopWithoutStart(t *testing.T) {
	r := newTestRig(Config{})
	if err := r.o.Stop(); !errors.Is(err, ErrNotRecording) {
		t.Errorf("Stop on idle = %v, want ErrNotRecording", err)
	}
	if r.tr.Calls() != 0 {
		t.Error("transcriber should not run without a session")
	}
}

func TestEmptyBufferSkipsTranscription(t *testing.T) {
	r := newTestRig(Config{})
	r.audio.samples = nil

	if err := r.o.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	err := r.o.Stop()
	if !errors.Is(err, ErrNoAudioCaptured) {
		t.Fatalf("Stop = %v, want ErrNoAudioCaptured", err)
	}
	if r.tr.Calls() != 0 {
		t.Error("transcriber must not be invoked for an empty buffer")
	}
	if r.o.IsRecording() || r.o.IsTranscribing() {
		t.Error("expected idle state after failed stop")
	}
	if r.o.ErrorMessage() == "" {
		t.Error("expected an error message for the UI")
	}
	if sum, ok := r.stats.last(); !ok || sum.Success {
		t.Errorf("expected failed summary, got %+v ok=%v", sum, ok)
	}
}

func TestHotkeyReleaseDelivers(t *testing.T) {
	r := newTestRig(Config{})
	if err := r.o.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.o.OnHotkeyReleased(); err != nil {
		t.Fatalf("OnHotkeyReleased: %v", err)
	}
	if sum, _ := r.stats.last(); sum.Trigger != TriggerHotkey {
		t.Errorf("Trigger = %q, want %q", sum.Trigger, TriggerHotkey)
	}
}

func TestInactivityAutoStops(t *testing.T) {
	r := newTestRig(Config{InactivityTimeout: 20 * time.Millisecond})
	if err := r.o.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for r.o.IsRecording() || r.o.IsTranscribing() {
		if time.Now().After(deadline) {
			t.Fatal("inactivity timer never fired")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if r.tr.Calls() != 1 {
		t.Errorf("transcriber calls = %d, want 1", r.tr.Calls())
	}
	if sum, _ := r.stats.last(); sum.Trigger != TriggerInactivity {
		t.Errorf("Trigger = %q, want %q", sum.Trigger, TriggerInactivity)
	}
}

func TestTalkingDefersInactivity(t *testing.T) {
	r := newTestRig(Config{InactivityTimeout: 80 * time.Millisecond})
	if err := r.o.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Keep the level above the threshold well past the original deadline.
	for i := 0; i < 10; i++ {
		r.audio.level(0.6)
		time.Sleep(20 * time.Millisecond)
	}
	if !r.o.IsRecording() {
		t.Fatal("auto-stop fired despite continuous talking")
	}
	r.o.Cancel()
}

func TestQuietLevelDoesNotDeferInactivity(t *testing.T) {
	r := newTestRig(Config{InactivityTimeout: 40 * time.Millisecond})
	if err := r.o.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for r.o.IsRecording() || r.o.IsTranscribing() {
		r.audio.level(0.01) // below the default threshold
		if time.Now().After(deadline) {
			t.Fatal("sub-threshold levels kept the session alive")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestDoubleStartSelfHeals(t *testing.T) {
	r := newTestRig(Config{})
	if err := r.o.Start(); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := r.o.Start(); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if !r.o.IsRecording() {
		t.Fatal("expected a live recording after restart")
	}
	if r.audio.startCalls != 2 {
		t.Errorf("StartCapture calls = %d, want 2", r.audio.startCalls)
	}
	if r.audio.stopCalls != 1 {
		t.Errorf("StopCapture calls = %d, want 1 (first capture discarded)", r.audio.stopCalls)
	}

	if err := r.o.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if got := r.o.TranscribedText(); got != "hello world" {
		t.Errorf("TranscribedText = %q", got)
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	r := newTestRig(Config{})
	r.o.Cancel()
	r.o.Cancel()

	if err := r.o.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	r.o.Cancel()
	r.o.Cancel()

	if r.o.IsRecording() || r.o.IsTranscribing() {
		t.Error("expected idle state after Cancel")
	}
	if r.audio.stopCalls != 1 {
		t.Errorf("StopCapture calls = %d, want 1", r.audio.stopCalls)
	}
	if r.tr.Calls() != 0 {
		t.Error("Cancel must not transcribe")
	}
	if err := r.o.Start(); err != nil {
		t.Fatalf("Start after Cancel: %v", err)
	}
	if !r.o.IsRecording() {
		t.Error("expected recording after restart")
	}
}

// blockingTranscriber parks until released so a Cancel can overtake it.
type blockingTranscriber struct {
	entered chan struct{}
	release chan struct{}
	result  transcriber.Result
}

func (b *blockingTranscriber) Transcribe(context.Context, []int16) (transcriber.Result, error) {
	close(b.entered)
	<-b.release
	return b.result, nil
}

func (b *blockingTranscriber) SwitchLanguage(string) error { return nil }

func TestCancelDropsInFlightTranscription(t *testing.T) {
	r := newTestRig(Config{})
	bt := &blockingTranscriber{
		entered: make(chan struct{}),
		release: make(chan struct{}),
		result:  transcriber.Result{Text: "late arrival", Confidence: 0.9},
	}
	r.o.tr = bt

	if err := r.o.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- r.o.Stop() }()

	<-bt.entered
	if !r.o.IsTranscribing() {
		t.Error("expected transcribing state while the provider is busy")
	}
	r.o.Cancel()
	close(bt.release)

	if err := <-done; err != nil {
		t.Fatalf("Stop after Cancel: %v", err)
	}
	if got := r.o.TranscribedText(); got != "" {
		t.Errorf("stale transcript surfaced: %q", got)
	}
	if r.delivery.calls() != 0 {
		t.Error("cancelled transcription must not be delivered")
	}
}

func TestUpdateAudioLevelClamps(t *testing.T) {
	r := newTestRig(Config{})
	if err := r.o.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer r.o.Cancel()

	for _, tc := range []struct {
		in, want float64
	}{
		{-0.5, 0},
		{0, 0},
		{0.37, 0.37},
		{1, 1},
		{1.8, 1},
	} {
		r.o.UpdateAudioLevel(tc.in)
		sess, ok := r.o.Snapshot()
		if !ok {
			t.Fatal("no live session")
		}
		if sess.AudioLevel != tc.want {
			t.Errorf("level %f stored as %f, want %f", tc.in, sess.AudioLevel, tc.want)
		}
	}
}

func TestUpdateAudioLevelWithoutSession(t *testing.T) {
	r := newTestRig(Config{})
	r.o.UpdateAudioLevel(0.5) // must not panic or create state
	if _, ok := r.o.Snapshot(); ok {
		t.Error("level update must not create a session")
	}
}

func TestDeliveryFlagMapping(t *testing.T) {
	tests := []struct {
		name       string
		result     insert.Result
		wantPrompt bool
		wantCopied bool
	}{
		{"direct", insert.Result{Kind: insert.InsertedDirectly}, false, false},
		{"permission", insert.Result{Kind: insert.RequiresPermission}, true, true},
		{"clipboard", insert.Result{Kind: insert.ClipboardOnly, Reason: "focus lost"}, false, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRig(Config{})
			r.delivery.result = tc.result
			if err := r.o.Start(); err != nil {
				t.Fatalf("Start: %v", err)
			}
			if err := r.o.Stop(); err != nil {
				t.Fatalf("Stop: %v", err)
			}
			if got := r.o.ShowAccessibilityPrompt(); got != tc.wantPrompt {
				t.Errorf("ShowAccessibilityPrompt = %v, want %v", got, tc.wantPrompt)
			}
			if got := r.o.LastTranscriptionCopiedToClipboard(); got != tc.wantCopied {
				t.Errorf("LastTranscriptionCopiedToClipboard = %v, want %v", got, tc.wantCopied)
			}
		})
	}
}

func TestFlagsResetOnNextAttempt(t *testing.T) {
	r := newTestRig(Config{})
	r.delivery.result = insert.Result{Kind: insert.RequiresPermission}
	if err := r.o.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.o.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !r.o.ShowAccessibilityPrompt() {
		t.Fatal("expected prompt flag after permission failure")
	}

	r.delivery.result = insert.Result{Kind: insert.InsertedDirectly}
	if err := r.o.Start(); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if r.o.ShowAccessibilityPrompt() || r.o.LastTranscriptionCopiedToClipboard() {
		t.Error("flags must reset when a new session begins")
	}
	if err := r.o.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
	if r.o.ShowAccessibilityPrompt() || r.o.LastTranscriptionCopiedToClipboard() {
		t.Error("flags must stay clear after a direct insertion")
	}
}

func TestStaleTimerCallbackIsNoop(t *testing.T) {
	r := newTestRig(Config{})
	if err := r.o.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer r.o.Cancel()

	r.o.mu.Lock()
	old := r.o.gen - 1
	r.o.mu.Unlock()
	r.o.inactivityFired(old)

	if !r.o.IsRecording() {
		t.Error("stale timer callback ended the wrong session")
	}
	if r.tr.Calls() != 0 {
		t.Error("stale timer callback triggered transcription")
	}
}

func TestStartCaptureFailure(t *testing.T) {
	r := newTestRig(Config{})
	r.audio.startErr = errors.New("no input device")

	err := r.o.Start()
	if !errors.Is(err, ErrAudioCapture) {
		t.Fatalf("Start = %v, want ErrAudioCapture", err)
	}
	if r.o.IsRecording() {
		t.Error("failed Start must not leave a live session")
	}
	if r.o.ErrorMessage() == "" {
		t.Error("expected an error message for the UI")
	}
}

func TestTranscriptionFailure(t *testing.T) {
	r := newTestRig(Config{})
	r.tr.Err = errors.New("provider down")

	if err := r.o.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	err := r.o.Stop()
	if !errors.Is(err, ErrTranscription) {
		t.Fatalf("Stop = %v, want ErrTranscription", err)
	}
	if r.delivery.calls() != 0 {
		t.Error("failed transcription must not be delivered")
	}
	if sum, ok := r.stats.last(); !ok || sum.Success {
		t.Errorf("expected failed summary, got %+v ok=%v", sum, ok)
	}
}

func TestInsertionFailure(t *testing.T) {
	r := newTestRig(Config{})
	r.delivery.err = errors.New("clipboard unavailable")

	if err := r.o.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.o.Stop(); !errors.Is(err, ErrTextInsertion) {
		t.Fatalf("Stop = %v, want ErrTextInsertion", err)
	}
	if r.o.IsRecording() || r.o.IsTranscribing() {
		t.Error("expected idle state after failed insertion")
	}
}

func TestOverlayFollowsLifecycle(t *testing.T) {
	r := newTestRig(Config{})
	if err := r.o.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.o.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	want := []string{"hidden", "recording", "transcribing", "hidden"}
	got := r.overlay.sequence()
	if len(got) != len(want) {
		t.Fatalf("overlay events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("overlay events = %v, want %v", got, want)
		}
	}
}

func TestStateString(t *testing.T) {
	for s, want := range map[State]string{
		StateIdle:         "idle",
		StateRecording:    "recording",
		StateTranscribing: "transcribing",
		State(42):         "unknown",
	} {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}
