package forensic

import (
	"image"
)

// jpegQualityBlockSize is the DCT block size sampled by the quality proxy.
const jpegQualityBlockSize = 8

// jpegQualityScore estimates compression quality from 8x8 block variances,
// sampling every 4th block. Repeated lossy saves flatten block variance, so
// a low score suggests recompression.
func jpegQualityScore(img image.Image) float64 {
	gray := toGray(img)
	bounds := gray.Bounds()
	step := jpegQualityBlockSize * 4

	var variances []float64
	for y := bounds.Min.Y; y < bounds.Max.Y-jpegQualityBlockSize; y += step {
		for x := bounds.Min.X; x < bounds.Max.X-jpegQualityBlockSize; x += step {
			block := grayValues(gray, image.Rect(x, y, x+jpegQualityBlockSize, y+jpegQualityBlockSize))
			variances = append(variances, variance(block))
		}
	}
	if len(variances) == 0 {
		return 75
	}
	return min(100, mean(variances)/100*100)
}
