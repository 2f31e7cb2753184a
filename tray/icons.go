package tray

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
)

var (
	iconIdle      = dotIcon(color.NRGBA{R: 0x88, G: 0x88, B: 0x88, A: 0xff})
	iconRecording = dotIcon(color.NRGBA{R: 0xe0, G: 0x3c, B: 0x3c, A: 0xff})
)

// dotIcon renders a filled circle into a 22x22 PNG, the size tray
// implementations expect on every platform we target.
func dotIcon(c color.NRGBA) []byte {
	const size = 22
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	cx, cy := float64(size-1)/2, float64(size-1)/2
	r := float64(size)/2 - 3
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx, dy := float64(x)-cx, float64(y)-cy
			if dx*dx+dy*dy <= r*r {
				img.SetNRGBA(x, y, c)
			}
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
