package audio

import (
	"fmt"
	"strings"
)

// FindDevice resolves the configured device name to a capture device. An
// empty name selects the system default (nil). Matching is a
// case-insensitive substring match so "usb" finds "USB PnP Audio Device".
func FindDevice(ctx Context, name string) (*DeviceInfo, error) {
	if name == "" {
		return nil, nil
	}
	devices, err := ctx.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerating devices: %w", err)
	}
	needle := strings.ToLower(name)
	for i, d := range devices {
		if strings.Contains(strings.ToLower(d.Name), needle) {
			return &devices[i], nil
		}
	}
	return nil, fmt.Errorf("no capture device matching %q (have %s)", name, deviceNames(devices))
}

func deviceNames(devices []DeviceInfo) string {
	if len(devices) == 0 {
		return "none"
	}
	names := make([]string, len(devices))
	for i, d := range devices {
		names[i] = d.Name
	}
	return strings.Join(names, ", ")
}
