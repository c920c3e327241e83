package media

import (
	"fmt"
	"image"
	"math"

	"github.com/artyom/phash"
	"github.com/disintegration/imaging"
)

// Fingerprint bits select which parts of a Fingerprint are computed.
const (
	FingerprintDCT      = 1 << 0
	FingerprintFeatures = 1 << 1
	FingerprintMirrors  = 1 << 2
	FingerprintColor    = 1 << 3
	FingerprintAll      = FingerprintDCT | FingerprintFeatures | FingerprintMirrors | FingerprintColor
)

const (
	// HistBins is the number of colour histogram bins (4 levels per channel).
	HistBins = 64
	// histSide is the edge of the thumbnail the histogram is sampled from.
	histSide = 64
	// minFeatureSide is the smallest image edge for which crops are hashed.
	minFeatureSide = 32
)

// Fingerprint holds the perceptual hashes of an image.
type Fingerprint struct {
	DCT uint64 `json:"dct"`
	// Features are hashes of the four quadrants and the centre crop.
	Features []uint64 `json:"features,omitempty"`
	// Mirrors are hashes of the horizontal, vertical and double flips.
	Mirrors []uint64 `json:"mirrors,omitempty"`
	Hist    []uint16 `json:"hist,omitempty"`
}

// Hamming returns the number of differing bits between two hashes.
func Hamming(a, b uint64) int {
	return phash.Distance(a, b)
}

// HistDistance scores two histograms from 0 (identical) to 1000 (disjoint).
// Histograms of different length are infinitely far apart.
func HistDistance(a, b []uint16) int {
	if len(a) == 0 || len(a) != len(b) {
		return math.MaxInt
	}
	sum := 0
	for i := range a {
		d := int(a[i]) - int(b[i])
		if d < 0 {
			d = -d
		}
		sum += d
	}
	return sum * 1000 / (2 * histSide * histSide)
}

func dctHash(img image.Image) (uint64, error) {
	return phash.Get(img, func(img image.Image, w, h int) image.Image {
		return imaging.Resize(img, w, h, imaging.Lanczos)
	})
}

// ComputeFingerprint hashes img according to the algos bit mask.
func ComputeFingerprint(img image.Image, algos int) (Fingerprint, error) {
	var fp Fingerprint

	if algos&FingerprintDCT != 0 {
		h, err := dctHash(img)
		if err != nil {
			return fp, fmt.Errorf("dct hash: %w", err)
		}
		fp.DCT = h
	}

	if algos&FingerprintFeatures != 0 {
		b := img.Bounds()
		if b.Dx() >= minFeatureSide && b.Dy() >= minFeatureSide {
			for _, r := range featureRects(b) {
				h, err := dctHash(imaging.Crop(img, r))
				if err != nil {
					return fp, fmt.Errorf("feature hash: %w", err)
				}
				fp.Features = append(fp.Features, h)
			}
		}
	}

	if algos&FingerprintMirrors != 0 {
		for _, flipped := range []image.Image{
			imaging.FlipH(img),
			imaging.FlipV(img),
			imaging.FlipV(imaging.FlipH(img)),
		} {
			h, err := dctHash(flipped)
			if err != nil {
				return fp, fmt.Errorf("mirror hash: %w", err)
			}
			fp.Mirrors = append(fp.Mirrors, h)
		}
	}

	if algos&FingerprintColor != 0 {
		fp.Hist = colorHistogram(img)
	}

	return fp, nil
}

// featureRects returns the four quadrants and the centre half of b.
func featureRects(b image.Rectangle) []image.Rectangle {
	w, h := b.Dx(), b.Dy()
	x0, y0 := b.Min.X, b.Min.Y
	mx, my := x0+w/2, y0+h/2
	return []image.Rectangle{
		image.Rect(x0, y0, mx, my),
		image.Rect(mx, y0, b.Max.X, my),
		image.Rect(x0, my, mx, b.Max.Y),
		image.Rect(mx, my, b.Max.X, b.Max.Y),
		image.Rect(x0+w/4, y0+h/4, x0+w*3/4, y0+h*3/4),
	}
}

func colorHistogram(img image.Image) []uint16 {
	small := imaging.Resize(img, histSide, histSide, imaging.Box)
	hist := make([]uint16, HistBins)
	for i := 0; i+3 < len(small.Pix); i += 4 {
		r, g, b := small.Pix[i]>>6, small.Pix[i+1]>>6, small.Pix[i+2]>>6
		hist[int(r)<<4|int(g)<<2|int(b)]++
	}
	return hist
}
