package forensic

import "image"

// noiseResult reports inconsistency in per-block sensor noise. Regions
// pasted from another capture carry a different noise floor.
type noiseResult struct {
	Score        float64
	Inconsistent bool
	Outliers     bool
}

func noiseScore(img image.Image) noiseResult {
	gray := toGray(img)
	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	res := noiseResult{Score: 100}

	block := 64
	if h/8 < block {
		block = h / 8
	}
	if w/8 < block {
		block = w / 8
	}
	if block < 8 {
		return res
	}

	var variances []float64
	for y := bounds.Min.Y; y+block <= bounds.Max.Y; y += block {
		for x := bounds.Min.X; x+block <= bounds.Max.X; x += block {
			variances = append(variances, laplacianVariance(gray, x, y, block))
		}
	}
	if len(variances) < 4 {
		return res
	}

	m := mean(variances)
	sd := stddev(variances)
	if m > 0 && sd/m > 0.5 {
		res.Score -= 30
		res.Inconsistent = true
	}

	outliers := 0
	for _, v := range variances {
		if v > m+2*sd || v < m-2*sd {
			outliers++
		}
	}
	if float64(outliers)/float64(len(variances)) > 0.2 {
		res.Score -= 20
		res.Outliers = true
	}
	return res
}

// laplacianVariance applies a 4-neighbour Laplacian inside the block and
// returns the variance of the responses.
func laplacianVariance(gray *image.Gray, x0, y0, size int) float64 {
	var responses []float64
	for y := y0 + 1; y < y0+size-1; y++ {
		for x := x0 + 1; x < x0+size-1; x++ {
			c := float64(gray.GrayAt(x, y).Y)
			l := 4*c - float64(gray.GrayAt(x-1, y).Y) - float64(gray.GrayAt(x+1, y).Y) -
				float64(gray.GrayAt(x, y-1).Y) - float64(gray.GrayAt(x, y+1).Y)
			responses = append(responses, l)
		}
	}
	return variance(responses)
}
