package forensic

import (
	"image"

	"github.com/ternarybob/probo/internal/models"
)

const (
	copyMoveBlockSize  = 32
	copyMoveMaxDim     = 2000
	copyMoveMaxBlocks  = 500
	copyMoveTargetPair = 100
	ssimThreshold      = 0.95
)

type grayBlock struct {
	x, y   int
	values []float64
}

// detectCopyMove searches for duplicated regions by comparing 32x32 blocks
// with structural similarity. The detection threshold is relaxed for
// scanned-looking documents, which naturally repeat texture.
func detectCopyMove(img image.Image) models.CopyMoveResult {
	origBounds := img.Bounds()
	maxDim := origBounds.Dx()
	if origBounds.Dy() > maxDim {
		maxDim = origBounds.Dy()
	}

	scanned := looksScanned(img, maxDim)

	img = resizeMax(img, copyMoveMaxDim)
	gray := toGray(img)
	bounds := gray.Bounds()

	var blocks []grayBlock
	for y := bounds.Min.Y; y+copyMoveBlockSize <= bounds.Max.Y; y += copyMoveBlockSize {
		for x := bounds.Min.X; x+copyMoveBlockSize <= bounds.Max.X; x += copyMoveBlockSize {
			if len(blocks) >= copyMoveMaxBlocks {
				break
			}
			blocks = append(blocks, grayBlock{
				x:      x,
				y:      y,
				values: grayValues(gray, image.Rect(x, y, x+copyMoveBlockSize, y+copyMoveBlockSize)),
			})
		}
		if len(blocks) >= copyMoveMaxBlocks {
			break
		}
	}

	result := models.CopyMoveResult{Scanned: scanned}
	if len(blocks) < 2 {
		return result
	}

	stride := len(blocks) / copyMoveTargetPair
	if stride < 1 {
		stride = 1
	}

	var total, similar int
	for i := 0; i+stride < len(blocks); i += stride {
		a := blocks[i]
		b := blocks[i+stride]
		// Neighbouring blocks share content legitimately; only compare
		// blocks separated by more than two block widths in either axis.
		if abs(a.x-b.x) <= 2*copyMoveBlockSize && abs(a.y-b.y) <= 2*copyMoveBlockSize {
			continue
		}
		total++
		if ssim(a.values, b.values) > ssimThreshold {
			similar++
		}
	}

	result.PairsChecked = total
	result.PairsSimilar = similar
	if total == 0 {
		return result
	}
	result.Confidence = float64(similar) / float64(total) * 100

	threshold := 20.0
	if scanned {
		threshold = 30.0
	}
	result.Detected = result.Confidence > threshold
	return result
}

// copyMovePenalty grades the penalty contribution by confidence, with a
// softer scale for scanned documents.
func copyMovePenalty(r models.CopyMoveResult) float64 {
	if !r.Detected {
		return 0
	}
	if r.Scanned {
		switch {
		case r.Confidence > 70:
			return 5
		case r.Confidence > 50:
			return 3
		default:
			return 1.5
		}
	}
	switch {
	case r.Confidence > 40:
		return 7
	case r.Confidence > 25:
		return 4
	default:
		return 2
	}
}

// looksScanned reports whether the image resembles a flatbed scan: color
// channel means nearly identical across the image, or a small capture size.
func looksScanned(img image.Image, maxDim int) bool {
	if maxDim < copyMoveMaxDim {
		return true
	}
	means := channelMeans(img)
	return variance(means[:]) < 100
}

// channelMeans returns the mean R, G and B values over a sampled grid.
func channelMeans(img image.Image) [3]float64 {
	bounds := img.Bounds()
	stepX := bounds.Dx() / 64
	stepY := bounds.Dy() / 64
	if stepX < 1 {
		stepX = 1
	}
	if stepY < 1 {
		stepY = 1
	}
	var sums [3]float64
	var n float64
	for y := bounds.Min.Y; y < bounds.Max.Y; y += stepY {
		for x := bounds.Min.X; x < bounds.Max.X; x += stepX {
			r, g, b, _ := img.At(x, y).RGBA()
			sums[0] += float64(r >> 8)
			sums[1] += float64(g >> 8)
			sums[2] += float64(b >> 8)
			n++
		}
	}
	if n == 0 {
		return [3]float64{}
	}
	return [3]float64{sums[0] / n, sums[1] / n, sums[2] / n}
}

// ssim computes single-window structural similarity between two equal-length
// grayscale blocks with the standard stabilizing constants for 8-bit data.
func ssim(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	const (
		c1 = (0.01 * 255) * (0.01 * 255)
		c2 = (0.03 * 255) * (0.03 * 255)
	)
	muA := mean(a)
	muB := mean(b)
	var varA, varB, cov float64
	for i := range a {
		da := a[i] - muA
		db := b[i] - muB
		varA += da * da
		varB += db * db
		cov += da * db
	}
	n := float64(len(a) - 1)
	varA /= n
	varB /= n
	cov /= n

	num := (2*muA*muB + c1) * (2*cov + c2)
	den := (muA*muA + muB*muB + c1) * (varA + varB + c2)
	if den == 0 {
		return 0
	}
	return num / den
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
