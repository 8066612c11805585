package forensic

import (
	"bytes"
	"image"
	"image/jpeg"
)

// elaScore performs error-level analysis: re-encode the grayscale image as
// JPEG at quality 90 and measure the mean absolute pixel difference.
// Normalized to [0,100]; higher is more suspicious. A re-encode failure
// yields the neutral score 0.
func elaScore(img image.Image) float64 {
	gray := toGray(img)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, gray, &jpeg.Options{Quality: 90}); err != nil {
		return 0
	}
	reloaded, err := jpeg.Decode(&buf)
	if err != nil {
		return 0
	}
	regray := toGray(reloaded)

	bounds := gray.Bounds()
	var sum float64
	var n int
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			d := int(gray.GrayAt(x, y).Y) - int(regray.GrayAt(x, y).Y)
			if d < 0 {
				d = -d
			}
			sum += float64(d)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	meanDiff := sum / float64(n)
	return min(100, meanDiff/10*100)
}
