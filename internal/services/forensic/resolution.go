package forensic

import (
	"image"

	"gonum.org/v1/gonum/dsp/fourier"
)

// resolutionResult is the outcome of the resolution consistency check.
type resolutionResult struct {
	Score        float64
	EstimatedDPI int
	Inconsistent bool
	Upscaled     bool
}

// resolutionScore partitions the image into five regions (four quadrants and
// the center), measures high-frequency FFT energy per region and flags
// regions that disagree. Splices pasted from another source carry a
// different frequency signature; uniformly low energy suggests upscaling.
func resolutionScore(img image.Image) resolutionResult {
	gray := toGray(img)
	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	res := resolutionResult{Score: 100}
	if w < 32 || h < 32 {
		return res
	}

	halfW, halfH := w/2, h/2
	quarterW, quarterH := w/4, h/4
	regions := []image.Rectangle{
		image.Rect(bounds.Min.X, bounds.Min.Y, bounds.Min.X+halfW, bounds.Min.Y+halfH),
		image.Rect(bounds.Min.X+halfW, bounds.Min.Y, bounds.Max.X, bounds.Min.Y+halfH),
		image.Rect(bounds.Min.X, bounds.Min.Y+halfH, bounds.Min.X+halfW, bounds.Max.Y),
		image.Rect(bounds.Min.X+halfW, bounds.Min.Y+halfH, bounds.Max.X, bounds.Max.Y),
		image.Rect(bounds.Min.X+quarterW, bounds.Min.Y+quarterH, bounds.Max.X-quarterW, bounds.Max.Y-quarterH),
	}

	energies := make([]float64, 0, len(regions))
	for _, r := range regions {
		energies = append(energies, highFreqEnergy(gray, r))
	}

	m := mean(energies)
	sd := stddev(energies)
	if m > 0 && sd/m > 0.3 {
		res.Score -= 30
		res.Inconsistent = true
	}
	if m < 100 {
		res.Score -= 25
		res.Upscaled = true
	}

	res.EstimatedDPI = estimateDPI(gray)
	return res
}

// highFreqEnergy sums the magnitudes of the upper half of the spectrum for
// the region's center row and center column.
func highFreqEnergy(gray *image.Gray, r image.Rectangle) float64 {
	r = r.Intersect(gray.Bounds())
	w, h := r.Dx(), r.Dy()
	if w < 8 || h < 8 {
		return 0
	}

	row := make([]float64, w)
	cy := r.Min.Y + h/2
	for x := 0; x < w; x++ {
		row[x] = float64(gray.GrayAt(r.Min.X+x, cy).Y)
	}

	col := make([]float64, h)
	cx := r.Min.X + w/2
	for y := 0; y < h; y++ {
		col[y] = float64(gray.GrayAt(cx, r.Min.Y+y).Y)
	}

	return spectrumHighEnergy(row) + spectrumHighEnergy(col)
}

func spectrumHighEnergy(signal []float64) float64 {
	fft := fourier.NewFFT(len(signal))
	coeffs := fft.Coefficients(nil, signal)

	var energy float64
	// Coefficients run from DC to Nyquist; the upper half is high frequency.
	for i := len(coeffs) / 2; i < len(coeffs); i++ {
		re := real(coeffs[i])
		im := imag(coeffs[i])
		energy += re*re + im*im
	}
	if len(coeffs) == 0 {
		return 0
	}
	return energy / float64(len(coeffs))
}

// estimateDPI derives a rough capture resolution from edge density via a
// thresholded gradient magnitude map.
func estimateDPI(gray *image.Gray) int {
	bounds := gray.Bounds()
	var edges, total int
	for y := bounds.Min.Y + 1; y < bounds.Max.Y-1; y += 2 {
		for x := bounds.Min.X + 1; x < bounds.Max.X-1; x += 2 {
			gx := int(gray.GrayAt(x+1, y).Y) - int(gray.GrayAt(x-1, y).Y)
			gy := int(gray.GrayAt(x, y+1).Y) - int(gray.GrayAt(x, y-1).Y)
			if gx*gx+gy*gy > 128*128 {
				edges++
			}
			total++
		}
	}
	if total == 0 {
		return 0
	}
	density := float64(edges) / float64(total)
	dpi := int(72 + density*1200)
	if dpi > 600 {
		dpi = 600
	}
	return dpi
}
