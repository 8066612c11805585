package forensic

import "image"

// histogramResult captures spike and gap anomalies in the luminance
// histogram. Re-saved or contrast-stretched images exhibit comb patterns.
type histogramResult struct {
	Score  float64
	Spikes int
	Gaps   int
}

func histogramScore(img image.Image) histogramResult {
	res := histogramResult{Score: 100}

	// Documents are grayscale-like when the channel means barely differ;
	// their near-binary histograms are legitimately spiky, so they get the
	// looser spike ratio and skip the color-gap check.
	means := channelMeans(img)
	grayscaleLike := stddev(means[:]) < 10
	spikeRatio := 8.0
	if grayscaleLike {
		spikeRatio = 15.0
	}

	gray := toGray(img)
	hist := luminanceHistogram(gray)

	var sum, maxCount float64
	occupied := 0
	for _, c := range hist {
		sum += c
		if c > maxCount {
			maxCount = c
		}
		if c > 0 {
			occupied++
		}
	}
	if sum == 0 {
		return res
	}
	mean := sum / 256

	issues := 0
	if maxCount/mean > spikeRatio {
		res.Spikes = countSpikes(hist[:], mean, spikeRatio)
		issues++
	}
	// Severe gaps: almost every bucket empty with only a handful populated.
	// Only meaningful for color content.
	if !grayscaleLike && occupied < 15 && float64(256-occupied)/256 > 0.85 {
		res.Gaps = 256 - occupied
		issues++
	}
	if issues > 2 {
		issues = 2
	}
	res.Score -= float64(issues) * 20
	return res
}

func luminanceHistogram(gray *image.Gray) [256]float64 {
	var hist [256]float64
	b := gray.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			hist[gray.GrayAt(x, y).Y]++
		}
	}
	return hist
}

func countSpikes(hist []float64, m, ratio float64) int {
	n := 0
	for _, c := range hist {
		if m > 0 && c/m > ratio {
			n++
		}
	}
	return n
}
