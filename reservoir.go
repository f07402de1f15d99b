package restir

import "math"

// Reservoir is the per-pixel state of streaming weighted reservoir
// sampling. It is a value type: every operation returns a new reservoir.
//
// The zero value is an empty reservoir. A reservoir with M == 0 holds no
// valid sample and contributes nothing when shaded.
type Reservoir[S any] struct {
	// Sample is the retained candidate.
	Sample S

	// WeightSum is the running sum of candidate resampling weights.
	WeightSum float32

	// M counts the candidates that contributed to the reservoir.
	M uint32

	// TargetPdf is the target density of Sample at the pixel that owns
	// the reservoir.
	TargetPdf float32
}

// IsEmpty reports whether the reservoir holds no candidates.
func (r Reservoir[S]) IsEmpty() bool {
	return r.M == 0
}

// Update streams one candidate into the reservoir.
//
// A non-positive (or NaN) weight only counts the candidate. Otherwise the
// weight joins WeightSum and the candidate replaces the retained sample
// iff u < weight/WeightSum. After a stream of weights w_i each candidate
// is retained with probability w_i / sum(w).
func (r Reservoir[S]) Update(sample S, targetPdf, weight, u float32) Reservoir[S] {
	r.M++
	if !(weight > 0) {
		return r
	}
	r.WeightSum += weight
	if u < weight/r.WeightSum {
		r.Sample = sample
		r.TargetPdf = targetPdf
	}
	return r
}

// Merge combines b into r by streaming b's retained sample as a single
// candidate of weight b.WeightSum. The history counts add up instead of
// counting b as one candidate.
//
// Both reservoirs must be expressed under the same target; see Retarget.
func (r Reservoir[S]) Merge(b Reservoir[S], u float32) Reservoir[S] {
	m := r.M + b.M
	r = r.Update(b.Sample, b.TargetPdf, b.WeightSum, u)
	r.M = m
	return r
}

// Cap bounds the history count to maxM, rescaling WeightSum so the
// contribution weight is unchanged. Reservoirs with M <= maxM are
// returned as is.
func (r Reservoir[S]) Cap(maxM uint32) Reservoir[S] {
	if r.M <= maxM {
		return r
	}
	r.WeightSum *= float32(maxM) / float32(r.M)
	r.M = maxM
	return r
}

// ContributionWeight returns W = WeightSum / (M * TargetPdf), or zero for
// an empty reservoir, a zero target or any non-finite result.
func (r Reservoir[S]) ContributionWeight() float32 {
	if r.M == 0 || !(r.TargetPdf > 0) {
		return 0
	}
	w := r.WeightSum / (float32(r.M) * r.TargetPdf)
	if math.IsNaN(float64(w)) || math.IsInf(float64(w), 0) {
		return 0
	}
	return w
}

// Retarget re-expresses the reservoir under a different target density,
// pHat being the new target evaluated at the retained sample. The
// contribution weight and M are preserved. Retarget with the stored
// TargetPdf is the identity.
func (r Reservoir[S]) Retarget(pHat float32) Reservoir[S] {
	if pHat == r.TargetPdf {
		return r
	}
	if !(pHat > 0) {
		pHat = 0
	}
	r.WeightSum = pHat * r.ContributionWeight() * float32(r.M)
	r.TargetPdf = pHat
	return r
}
