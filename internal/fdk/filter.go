// Package fdk implements the three numerical kernels of the
// Feldkamp-Davis-Kress algorithm as pure, host-callable functions:
// weighting (internal/stage/weighting.go hosts the device kernel
// instead), ramp filtering, and differential back-projection. Filter
// and back-projection math live here so they can be unit tested
// without an accelerator; the stage wrappers in internal/stage move
// data to and from the device around calls into this package.
package fdk

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/j-stephan/ddafa/internal/geometry"
)

// RampKernel holds the precomputed frequency-domain ramp response for
// one filter length L, built once per device at startup per spec.md
// §4.5.
type RampKernel struct {
	L      int
	PitchH float32
	K      []float64 // length L/2+1, the real-valued per-bin scale factor
	fft    *fourier.FFT
}

// FilterLength resolves spec.md §9's Open Question: the ramp filter
// runs along each detector row (filtering across columns), so its
// length is derived from the horizontal pixel count n_h, not the row
// count n_v the legacy source read it from. See SPEC_FULL.md §14.
func FilterLength(nH int) int {
	return 2 * geometry.NextPow2(nH)
}

// NewRampKernel builds r(j) per spec.md §4.5, FFTs it once, and stores
// the magnitude response τ·|FFT(r)|. τ = pitchH.
func NewRampKernel(l int, pitchH float32) *RampKernel {
	tau := float64(pitchH)
	r := make([]float64, l)

	// j ranges over {-(L-2)/2, ..., 0, ..., L/2}; r is built directly
	// into a 0-indexed buffer where index 0 corresponds to j=0 and
	// negative j wrap to the tail, matching the FFT's implicit
	// periodicity.
	half := l / 2
	for idx := 0; idx < l; idx++ {
		j := idx
		if j > half {
			j -= l
		}
		switch {
		case j == 0:
			r[idx] = 1.0 / 8.0 / (tau * tau)
		case j%2 == 0:
			r[idx] = 0
		default:
			r[idx] = -1.0 / (2.0 * float64(j) * float64(j) * math.Pi * math.Pi * tau * tau)
		}
	}

	fft := fourier.NewFFT(l)
	coeffs := fft.Coefficients(nil, r)

	k := make([]float64, len(coeffs))
	for i, c := range coeffs {
		k[i] = tau * cmplxAbs(c)
	}

	return &RampKernel{L: l, PitchH: pitchH, K: k, fft: fft}
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}

// FilterRow zero-pads row (length nH) to L, FFTs it, multiplies by the
// ramp kernel's real-valued per-bin response (a complex number times a
// real scalar scales both components identically, which is what
// spec.md §4.5 step 3 describes as writing the same magnitude into
// both halves), inverse-FFTs, and writes the unpadded, 1/L-normalized
// result back into row.
func (k *RampKernel) FilterRow(row []float32) {
	nH := len(row)
	padded := make([]float64, k.L)
	for i := 0; i < nH; i++ {
		padded[i] = float64(row[i])
	}

	coeffs := k.fft.Coefficients(nil, padded)
	for i := range coeffs {
		coeffs[i] = coeffs[i] * complex(k.K[i], 0)
	}

	out := k.fft.Sequence(nil, coeffs)
	norm := float64(k.L)
	for i := 0; i < nH; i++ {
		row[i] = float32(out[i] / norm)
	}
}
