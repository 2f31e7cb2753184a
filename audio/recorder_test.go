package audio

import (
	"math"
	"sync"
	"testing"
)

func sine(n int, amplitude float64) []int16 {
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16(amplitude * 32767 * math.Sin(2*math.Pi*440*float64(i)/16000))
	}
	return samples
}

func TestRecorderBuffersCapturedAudio(t *testing.T) {
	want := sine(4096, 0.5)
	r := NewRecorder(NewFakeContext(want, false), nil)

	if err := r.StartCapture(nil); err != nil {
		t.Fatalf("StartCapture: %v", err)
	}
	got, err := r.StopCapture()
	if err != nil {
		t.Fatalf("StopCapture: %v", err)
	}
	if len(got) < len(want) {
		t.Fatalf("buffered %d samples, want at least %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sample %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestRecorderReportsLevels(t *testing.T) {
	r := NewRecorder(NewFakeContext(sine(4096, 0.5), false), nil)

	var mu sync.Mutex
	var levels []float64
	err := r.StartCapture(func(level float64) {
		mu.Lock()
		levels = append(levels, level)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("StartCapture: %v", err)
	}
	if _, err := r.StopCapture(); err != nil {
		t.Fatalf("StopCapture: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(levels) == 0 {
		t.Fatal("no level callbacks")
	}
	// RMS of a 0.5-amplitude sine is roughly 0.35.
	if levels[0] < 0.2 || levels[0] > 0.5 {
		t.Errorf("first level = %f, want around 0.35", levels[0])
	}
	for _, l := range levels {
		if l < 0 || l > 1 {
			t.Errorf("level %f out of range", l)
		}
	}
}

func TestRecorderTapSeesRawPCM(t *testing.T) {
	r := NewRecorder(NewFakeContext(sine(2048, 0.3), false), nil)

	var mu sync.Mutex
	var tapped int
	r.SetTap(func(pcm []byte) {
		mu.Lock()
		tapped += len(pcm)
		mu.Unlock()
	})

	if err := r.StartCapture(nil); err != nil {
		t.Fatalf("StartCapture: %v", err)
	}
	if _, err := r.StopCapture(); err != nil {
		t.Fatalf("StopCapture: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if tapped < 2048*2 {
		t.Errorf("tap saw %d bytes, want at least %d", tapped, 2048*2)
	}
}

func TestRecorderDoubleStartRejected(t *testing.T) {
	r := NewRecorder(NewFakeContext(nil, false), nil)
	if err := r.StartCapture(nil); err != nil {
		t.Fatalf("StartCapture: %v", err)
	}
	if err := r.StartCapture(nil); err == nil {
		t.Error("second StartCapture should fail")
	}
	if _, err := r.StopCapture(); err != nil {
		t.Fatalf("StopCapture: %v", err)
	}
	if _, err := r.StopCapture(); err == nil {
		t.Error("StopCapture without capture should fail")
	}
}

func TestFindDevice(t *testing.T) {
	ctx := NewFakeContext(nil, false)

	d, err := FindDevice(ctx, "")
	if err != nil || d != nil {
		t.Errorf("empty name = (%v, %v), want (nil, nil)", d, err)
	}

	d, err = FindDevice(ctx, "fake micro")
	if err != nil {
		t.Fatalf("FindDevice: %v", err)
	}
	if d == nil || d.Name != "Fake Microphone" {
		t.Errorf("device = %+v", d)
	}

	if _, err := FindDevice(ctx, "does-not-exist"); err == nil {
		t.Error("expected an error for an unknown device")
	}
}

func TestIsBluetooth(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"AirPods Pro", true},
		{"Sony WH-1000XM4", true},
		{"Built-in Microphone", false},
		{"USB PnP Audio Device", false},
		{"JBL Tune 760NC (Bluetooth)", true},
	}
	for _, tc := range tests {
		if got := IsBluetooth(tc.name); got != tc.want {
			t.Errorf("IsBluetooth(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}
