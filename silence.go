package main

import "time"

const (
	tickInterval     = 100 * time.Millisecond
	silenceWarnEvery = 8 * time.Second
	speechMinRatio   = 0.10
	speechClearRatio = 0.25 // clearing needs more speech than warning (hysteresis)
)

type SilenceEvent int

const (
	SilenceNone      SilenceEvent = iota
	SilenceWarn                   // no voice detected for 8s
	SilenceWarnClear              // speech resumed after warning
	SilenceRepeat                 // reminder every 8s while warned (toggle mode)
)

// silenceMonitor watches the per-tick VAD verdicts during a recording and
// raises a warning when the microphone has been quiet for too long. Stopping
// the session itself is not its job; the orchestrator's inactivity timer
// owns that.
type silenceMonitor struct {
	warnAt   int
	isToggle func() bool

	ticks    int
	window   []bool
	warned   bool
	lastWarn int
}

func newSilenceMonitor(isToggle func() bool) *silenceMonitor {
	warnAt := int(silenceWarnEvery / tickInterval)
	return &silenceMonitor{
		warnAt:   warnAt,
		isToggle: isToggle,
		window:   make([]bool, warnAt),
	}
}

// ratio of speech ticks over the last warn window.
func (m *silenceMonitor) ratio() float64 {
	n := m.warnAt
	if m.ticks < n {
		n = m.ticks
	}
	if n == 0 {
		return 1.0
	}
	count := 0
	for i := 0; i < n; i++ {
		if m.window[(m.ticks-1-i+m.warnAt)%m.warnAt] {
			count++
		}
	}
	return float64(count) / float64(n)
}

func (m *silenceMonitor) Tick(hasSpeech bool) SilenceEvent {
	m.window[m.ticks%m.warnAt] = hasSpeech
	m.ticks++

	r := m.ratio()

	if m.ticks >= m.warnAt && r < speechMinRatio && !m.warned {
		m.warned = true
		m.lastWarn = m.ticks
		return SilenceWarn
	}
	if m.warned && r >= speechClearRatio {
		m.warned = false
		return SilenceWarnClear
	}
	// In push-to-talk the user is actively holding the key; only nag again
	// in toggle mode, where a forgotten open session is plausible.
	if m.warned && m.isToggle() && m.ticks-m.lastWarn >= m.warnAt {
		m.lastWarn = m.ticks
		return SilenceRepeat
	}
	return SilenceNone
}

// Reset prepares the monitor for a fresh recording.
func (m *silenceMonitor) Reset() {
	m.ticks = 0
	m.warned = false
	m.lastWarn = 0
	for i := range m.window {
		m.window[i] = false
	}
}
