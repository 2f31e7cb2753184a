package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"sotto/encoder"
)

// Recorder accumulates captured PCM into an in-memory buffer and reports a
// normalized RMS level per callback chunk. It is the capture half of a
// dictation session: StartCapture begins buffering, StopCapture returns
// everything recorded since.
type Recorder struct {
	ctx    Context
	device *DeviceInfo

	mu      sync.Mutex
	capture CaptureDevice
	buf     []int16
	tap     func(pcm []byte)
}

func NewRecorder(ctx Context, device *DeviceInfo) *Recorder {
	return &Recorder{ctx: ctx, device: device}
}

// SetTap registers an observer for raw PCM chunks (used for voice activity
// detection). Must be set before StartCapture; the tap runs on the capture
// callback path and must not block.
func (r *Recorder) SetTap(tap func(pcm []byte)) {
	r.mu.Lock()
	r.tap = tap
	r.mu.Unlock()
}

// StartCapture opens the capture device and begins buffering. The level
// callback receives one normalized RMS value per chunk.
func (r *Recorder) StartCapture(cb func(level float64)) error {
	r.mu.Lock()
	if r.capture != nil {
		r.mu.Unlock()
		return fmt.Errorf("capture already running")
	}
	r.buf = r.buf[:0]
	tap := r.tap
	r.mu.Unlock()

	capture, err := r.ctx.NewCapture(r.device, CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	})
	if err != nil {
		return fmt.Errorf("opening capture device: %w", err)
	}

	capture.SetCallback(func(data []byte, _ uint32) {
		if len(data) < 2 {
			return
		}
		var sumSquares float64
		r.mu.Lock()
		for i := 0; i+1 < len(data); i += 2 {
			sample := int16(binary.LittleEndian.Uint16(data[i:]))
			r.buf = append(r.buf, sample)
			normalized := float64(sample) / 32768.0
			sumSquares += normalized * normalized
		}
		r.mu.Unlock()

		if cb != nil {
			cb(math.Sqrt(sumSquares / float64(len(data)/2)))
		}
		if tap != nil {
			tap(data)
		}
	})

	if err := capture.Start(); err != nil {
		capture.ClearCallback()
		capture.Close()
		return fmt.Errorf("starting capture: %w", err)
	}

	r.mu.Lock()
	r.capture = capture
	r.mu.Unlock()
	return nil
}

// StopCapture halts the device and returns the buffered samples.
func (r *Recorder) StopCapture() ([]int16, error) {
	r.mu.Lock()
	capture := r.capture
	r.capture = nil
	r.mu.Unlock()
	if capture == nil {
		return nil, fmt.Errorf("capture not running")
	}

	capture.Stop()
	capture.ClearCallback()
	capture.Close()

	r.mu.Lock()
	samples := make([]int16, len(r.buf))
	copy(samples, r.buf)
	r.buf = r.buf[:0]
	r.mu.Unlock()
	return samples, nil
}
