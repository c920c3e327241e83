package search

import (
	"math"

	"github.com/fortemezzo/cbird/internal/media"
)

// score compares cand to needle with p.Algo. ok is false when cand is not
// a match.
func score(p *Params, needle, cand *media.Item) (int, bool) {
	nf, cf := &needle.Fingerprint, &cand.Fingerprint

	switch p.Algo {
	case AlgoDCT:
		d := media.Hamming(nf.DCT, cf.DCT)
		return d, d <= p.DctThresh

	case AlgoFeatures:
		return featureScore(p.DctThresh, nf, cf)

	case AlgoMirror:
		best := media.Hamming(nf.DCT, cf.DCT)
		for i, h := range nf.Mirrors {
			if p.MirrorMask&(1<<i) == 0 {
				continue
			}
			best = min(best, media.Hamming(h, cf.DCT))
		}
		return best, best <= p.DctThresh

	case AlgoColor:
		d := media.HistDistance(nf.Hist, cf.Hist)
		return d, d != math.MaxInt && d <= p.HistThresh
	}
	return 0, false
}

// featureScore counts the needle hashes (whole image and crops) that have a
// close hash anywhere in the candidate. Score is the fraction of needle
// hashes without a partner, scaled to 0..1000.
func featureScore(thresh int, nf, cf *media.Fingerprint) (int, bool) {
	needle := append([]uint64{nf.DCT}, nf.Features...)
	hay := append([]uint64{cf.DCT}, cf.Features...)

	good := 0
	for _, n := range needle {
		for _, h := range hay {
			if media.Hamming(n, h) <= thresh {
				good++
				break
			}
		}
	}
	if good == 0 {
		return 0, false
	}
	return 1000 * (len(needle) - good) / len(needle), true
}
