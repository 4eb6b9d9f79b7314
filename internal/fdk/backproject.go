package fdk

import "math"

// ProjectionSample is the minimal view of a filtered projection the
// back-projection math needs: a row-major pixel buffer plus its
// geometry, decoupled from any device handle so it can be tested on
// the host (internal/stage/kernels/backproject.cl runs the device
// analogue of this function).
type ProjectionSample struct {
	Pixels       []float32
	NH, NV       int
	PitchH, PitchV float32
	HMin, VMin   float32
	Phi          float32
}

// BilinearAt samples the projection at fractional pixel coordinates
// (i, j), returning (0, false) outside [0, NH-1) x [0, NV-1).
func (p *ProjectionSample) BilinearAt(i, j float64) (float64, bool) {
	if i < 0 || j < 0 || i >= float64(p.NH-1) || j >= float64(p.NV-1) {
		return 0, false
	}
	i0 := int(i)
	j0 := int(j)
	fi := i - float64(i0)
	fj := j - float64(j0)

	at := func(x, y int) float64 { return float64(p.Pixels[y*p.NH+x]) }

	p00 := at(i0, j0)
	p10 := at(i0+1, j0)
	p01 := at(i0, j0+1)
	p11 := at(i0+1, j0+1)

	return p00*(1-fi)*(1-fj) + p10*fi*(1-fj) + p01*(1-fi)*fj + p11*fi*fj, true
}

// BackprojectVoxel implements spec.md §4.6 steps 1-5 for a single
// voxel and a single projection, returning the contribution to add to
// the voxel's accumulator (0 if the ray misses the detector or the
// magnification is singular).
func BackprojectVoxel(x, y, z float64, dso, dsd float64, deltaPhi float64, p *ProjectionSample) float64 {
	cphi := math.Cos(float64(p.Phi))
	sphi := math.Sin(float64(p.Phi))

	s := x*cphi + y*sphi
	t := -x*sphi + y*cphi

	denom := dso - t
	if math.Abs(denom) < 1e-5 {
		return 0
	}
	u := dso / denom

	du := u * s
	dv := u * z

	i := float64(du)/float64(p.PitchH) - float64(p.HMin)/float64(p.PitchH) - 0.5
	j := float64(dv)/float64(p.PitchV) - float64(p.VMin)/float64(p.PitchV) - 0.5

	pstar, ok := p.BilinearAt(i, j)
	if !ok {
		return 0
	}

	return u * u * pstar * deltaPhi
}
