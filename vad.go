package main

import (
	"sync"
	"time"

	webrtcvad "github.com/maxhawkins/go-webrtcvad"

	"sotto/encoder"
)

const (
	vadMode     = 3  // most aggressive filtering
	vadFrameMs  = 20 // webrtcvad accepts 10/20/30ms frames
	vadDebounce = 3  // consecutive speech frames to confirm voice
)

const vadFrameBytes = encoder.SampleRate * vadFrameMs / 1000 * 2

// share of frames since the last tick that must be speech
const speechTickRatio = 0.10

// vadProcessor classifies raw PCM16 chunks as speech or not. It taps the
// capture stream, so Process must stay cheap and lock-light.
type vadProcessor struct {
	vad *webrtcvad.VAD

	mu            sync.Mutex
	pending       []byte
	voiceDetected bool
	lastVoiceAt   time.Time
	speechRun     int
	totalFrames   int
	speechFrames  int
	tickTotal     int
	tickSpeech    int
}

func newVADProcessor() (*vadProcessor, error) {
	v, err := webrtcvad.New()
	if err != nil {
		return nil, err
	}
	if err := v.SetMode(vadMode); err != nil {
		return nil, err
	}
	return &vadProcessor{vad: v}, nil
}

// Process consumes a PCM16 chunk of any size; partial frames are buffered
// until the next chunk completes them.
func (p *vadProcessor) Process(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pending = append(p.pending, data...)
	for len(p.pending) >= vadFrameBytes {
		p.processFrame(p.pending[:vadFrameBytes])
		p.pending = p.pending[vadFrameBytes:]
	}
}

func (p *vadProcessor) processFrame(frame []byte) {
	active, err := p.vad.Process(encoder.SampleRate, frame)
	if err != nil {
		return
	}
	p.totalFrames++
	if !active {
		p.speechRun = 0
		return
	}
	p.speechFrames++
	p.speechRun++
	if p.voiceDetected || p.speechRun >= vadDebounce {
		p.voiceDetected = true
		p.lastVoiceAt = time.Now()
	}
}

func (p *vadProcessor) VoiceDetected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.voiceDetected
}

func (p *vadProcessor) LastVoiceAt() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastVoiceAt
}

// HasSpeechTick reports whether speech dominated the frames processed since
// the previous call. The silence monitor calls it once per tick.
func (p *vadProcessor) HasSpeechTick() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := p.totalFrames - p.tickTotal
	speech := p.speechFrames - p.tickSpeech
	p.tickTotal, p.tickSpeech = p.totalFrames, p.speechFrames
	if total == 0 {
		return false
	}
	return float64(speech)/float64(total) >= speechTickRatio
}

// Reset prepares the processor for a fresh recording.
func (p *vadProcessor) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = p.pending[:0]
	p.voiceDetected = false
	p.lastVoiceAt = time.Time{}
	p.speechRun = 0
}
