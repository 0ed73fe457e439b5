package ui

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
)

// Icon dimensions for system tray.
const iconSize = 22

// Pre-generated PNG icons for the three display modes.
var (
	iconUnavailablePNG []byte
	iconWaitingPNG     []byte
	iconActivePNG      []byte
)

func init() {
	iconUnavailablePNG = generateGaugeIcon(color.RGBA{128, 128, 128, 255}) // Gray
	iconWaitingPNG = generateGaugeIcon(color.RGBA{255, 140, 0, 255})       // Orange
	iconActivePNG = generateGaugeIcon(color.RGBA{76, 175, 80, 255})        // Green
}

// generateGaugeIcon creates a simple dial icon with the specified color.
func generateGaugeIcon(c color.RGBA) []byte {
	img := image.NewRGBA(image.Rect(0, 0, iconSize, iconSize))

	centerX := iconSize / 2
	centerY := iconSize / 2
	radius := 9

	// Draw the dial face (filled circle)
	for y := 0; y < iconSize; y++ {
		for x := 0; x < iconSize; x++ {
			dx := x - centerX
			dy := y - centerY
			if dx*dx+dy*dy <= radius*radius {
				img.Set(x, y, c)
			}
		}
	}

	dark := color.RGBA{40, 40, 40, 255}

	// Draw the needle pointing up-right, two pixels thick
	for i := 0; i <= 6; i++ {
		img.Set(centerX+i, centerY-i, dark)
		img.Set(centerX+i+1, centerY-i, dark)
	}

	// Draw the hub (small dark circle at the pivot)
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx*dx+dy*dy <= 1 {
				img.Set(centerX+dx, centerY+dy, dark)
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil
	}
	return buf.Bytes()
}
