// Package audio wraps platform capture backends (PulseAudio on Linux,
// miniaudio elsewhere) behind a small Context/CaptureDevice interface and
// provides the Recorder that buffers PCM and reports audio levels.
package audio

import "strings"

// Known Bluetooth headset families plus generic markers. Bluetooth mics
// renegotiate to a low-quality codec while capturing, which hurts
// transcription accuracy, so callers warn about them.
var btKeywords = []string{
	"bluetooth", " bt ", " bt)", " bt]",
	"airpods", "beats", "powerbeats",
	"bose", "wh-1000", "wf-1000", "sony wh-", "sony wf-",
	"galaxy buds", "pixel buds",
	"jabra", "jbl ", "sennheiser momentum", "plantronics", "skullcandy",
}

// IsBluetooth reports whether a device name looks like a Bluetooth headset.
func IsBluetooth(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range btKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// DataCallback receives raw little-endian 16-bit mono PCM.
type DataCallback func(data []byte, frameCount uint32)

type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	Close()
}

type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
}
