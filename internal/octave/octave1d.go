// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.


package octave

import (
	"fmt"
	"math"
)

// One resolution level of a 1D scale-space pyramid over a signal, the single-axis
// analogue of Octave. Blocks degenerate to 2x1 over (layer, position), and the
// Hessian edge test is replaced by a curvature-to-slope ratio on the gaussian layer
type Octave1D struct {
	length        int
	nLayers       int
	preblurRadius float64
	prefactor     float64

	layersG [][]float32
	layers  [][]float32
	binary  [][]bool
	sizes   []int

	iterativeRadii   []float64
	iterativeKernels []*Kernel
	kernels          *KernelCache
	preblurKernel    *Kernel

	centers []RawCenter
}

// Creates a 1D octave for signals of the given length. A nil kernel cache allocates a private one
func NewOctave1D(length, nLayers int, preblurRadius float64, kernels *KernelCache) *Octave1D {
	if kernels == nil {
		kernels = NewKernelCache()
	}
	o := &Octave1D{
		length:  length,
		nLayers: nLayers,
		kernels: kernels,
	}
	o.layersG = make([][]float32, nLayers+3)
	for i := range o.layersG {
		o.layersG[i] = make([]float32, length)
	}
	o.layers = make([][]float32, nLayers+2)
	for i := range o.layers {
		o.layers[i] = make([]float32, length)
	}
	o.binary = make([][]bool, nLayers)
	for i := range o.binary {
		o.binary[i] = make([]bool, length)
	}
	o.SetPreblurRadius(preblurRadius)
	return o
}

func (o *Octave1D) Length() int              { return o.length }
func (o *Octave1D) NLayers() int             { return o.nLayers }
func (o *Octave1D) PreblurRadius() float64   { return o.preblurRadius }
func (o *Octave1D) Prefactor() float64       { return o.prefactor }
func (o *Octave1D) Size(k int) int           { return o.sizes[k] }
func (o *Octave1D) LayerG(i int) []float32   { return o.layersG[i] }
func (o *Octave1D) Layer(i int) []float32    { return o.layers[i] }
func (o *Octave1D) Centers() []RawCenter     { return o.centers }

// Sets the pre-blur radius and recomputes the iterative radii, blob sizes and kernels
func (o *Octave1D) SetPreblurRadius(preblur float64) {
	o.preblurRadius = preblur
	o.prefactor, o.sizes, o.iterativeRadii = radiiParams(o.nLayers, preblur, true)
	o.iterativeKernels = make([]*Kernel, len(o.iterativeRadii))
	for i, r := range o.iterativeRadii {
		o.iterativeKernels[i] = o.kernels.Get(r)
	}
	o.preblurKernel = o.kernels.Get(preblur)
}

func (o *Octave1D) iterativeRadius(larger, smaller float64) float64 {
	n := float64(o.nLayers)
	return o.preblurRadius * math.Sqrt(math.Pow(2, 2*larger/n)-math.Pow(2, 2*smaller/n))
}

// Fills the pyramid from an already pre-blurred signal. Fails fast on a length
// mismatch without touching any layer
func (o *Octave1D) Fill(data []float32) error {
	if len(data) != o.length {
		return fmt.Errorf("octave: input length %d must match the octave length %d", len(data), o.length)
	}
	copy(o.layersG[0], data)
	for i := 0; i+1 < len(o.layersG); i++ {
		convolve1DX(o.layersG[i+1], o.layersG[i], o.length, o.iterativeKernels[i].Taps)
	}
	for i := range o.layers {
		g0, g1, l := o.layersG[i], o.layersG[i+1], o.layers[i]
		for p := range l {
			l[p] = g1[p] - g0[p]
		}
	}
	return nil
}

// Blurs the raw signal by the pre-blur radius, then fills the pyramid
func (o *Octave1D) PreblurAndFill(data []float32) error {
	if len(data) != o.length {
		return fmt.Errorf("octave: input length %d must match the octave length %d", len(data), o.length)
	}
	blurred := make([]float32, len(data))
	convolve1DX(blurred, data, o.length, o.preblurKernel.Taps)
	return o.Fill(blurred)
}

// Detect local minima of the 1D DoG scale space with the Neubeck-Van Gool block
// algorithm over 2x1 blocks of (layer, position) space. Edge responses cannot be
// identified by a Hessian ratio with a single spatial axis; instead candidates
// whose gaussian-layer curvature does not dominate the asymmetric slope are rejected
func (o *Octave1D) DetectMinima(maxRatio float64) {
	_ = maxRatio // no Hessian test is possible in 1D
	nb := o.nLayers
	o.centers = o.centers[:0]
	for _, b := range o.binary {
		for p := range b {
			b[p] = false
		}
	}
	for k := 1; k < nb+1; k += 2 {
		l0, l1 := o.layers[k], o.layers[k+1]
		si := o.sizes[k]
		for i := si + 1; i < o.length-si-1; i += 2 {
			ngb := [4]float32{l0[i], l0[i+1], l1[i], l1[i+1]}
			ml, mv := 0, ngb[0]
			for u := 1; u < 4; u++ {
				if ngb[u] < mv {
					ml, mv = u, ngb[u]
				}
			}
			if mv >= 0 {
				continue
			}
			mi := i + ml&1
			mk := k + (ml>>1)&1
			s := o.sizes[mk]
			if mk > nb || mi < s || mi >= o.length-s {
				continue
			}
			v := float64(mv)
			if !(v*v > epsNonzero) {
				continue
			}
			ok := true
			for k2 := mk - 1; k2 <= mk+1 && ok; k2++ {
				for i2 := mi - 1; i2 <= mi+1 && ok; i2++ {
					if k2 >= k && k2 <= k+1 && i2 >= i && i2 <= i+1 {
						continue
					}
					ok = mv <= o.layers[k2][i2]
				}
			}
			if !ok || o.isEdge(mi, mk) {
				continue
			}
			o.binary[mk-1][mi] = true
			o.centers = append(o.centers, RawCenter{Row: 0, Col: mi, K: mk})
		}
	}
}

// The 1D analogue of an anisotropy test: on the gaussian layer at the candidate's
// scale, keep only pixels where the second derivative dominates the one-sided
// first difference. A flat slope with nonzero curvature always passes
func (o *Octave1D) isEdge(i, k int) bool {
	g := o.layersG[k]
	num := float64(g[i+1]) + float64(g[i-1]) - 2*float64(g[i])
	den := float64(g[i+1]) - float64(g[i-1])
	if den == 0 {
		return num == 0
	}
	return math.Abs(num/den) <= 0.5
}

// Refines the position of a raw center via centered differences on the gaussian
// layer below the detected scale, with a first-order correction of the intensity
// proportional to the computed offset
func (o *Octave1D) SpatialSubpix(ci RawCenter) Center {
	i, k := ci.Col, ci.K
	l := o.layersG[k]
	if k > 0 {
		l = o.layersG[k-1]
	}
	diff := float64(l[i+1]) - float64(l[i-1])
	den := float64(l[i+1]) - 2*float64(l[i]) + float64(l[i-1])
	x := float64(i) + 0.5
	if den != 0 {
		x -= diff / 2 / den
	}
	intensity := float64(o.layers[k][i]) - 0.25*(x-float64(i))*diff
	return Center{X: float32(x), Y: 0, Intensity: float32(intensity)}
}

// Evaluates the blurred signal at an arbitrary fractional scale index.
// Negative scales are invalid
func (o *Octave1D) GaussianResponse(i int, scale float64) (float64, error) {
	if scale < 0 {
		return 0, fmt.Errorf("octave: gaussianResponse scale must be positive, got %g", scale)
	}
	return o.gaussianResponse(i, scale), nil
}

func (o *Octave1D) gaussianResponse(i int, scale float64) float64 {
	k := int(scale)
	if k >= len(o.layersG) {
		k = len(o.layersG) - 1
	}
	if d := scale - float64(k); !(d*d > epsNonzero) {
		return float64(o.layersG[k][i])
	}
	sigma := o.iterativeRadius(scale, float64(k))
	kernel := o.kernels.Get(sigma)
	return sampleBlurred(o.layersG[k], o.length, 0, i, kernel.Taps)
}

// Refines the scale of a raw center. The 7-point sampling at one-third layer
// spacing and the closing polynomial are a calibration fit against reference
// data, not a closed-form derivative estimate; the constants must not be altered
// without re-validating against that reference
func (o *Octave1D) ScaleSubpix(ci RawCenter) float64 {
	i, k := ci.Col, float64(ci.K)
	const h = 1.0 / 3.0
	var a [7]float64
	for u := range a {
		a[u] = o.gaussianResponse(i, k-3*h+float64(u)*h)
	}
	den := a[6] - 3*a[4] + 3*a[2] - a[0]
	s := 0.0
	if den != 0 {
		s = 2 * h * (a[5] - 2*a[3] + a[1]) / den
	}
	n := float64(o.nLayers)
	return k - 1.05*s + 0.08*s*s - math.Pow(2, -2/n) + 0.025*k - 0.025
}

// Composes spatial and scale refinement into one refined center
func (o *Octave1D) Refine(ci RawCenter) Center {
	c := o.SpatialSubpix(ci)
	c.R = float32(o.ScaleSubpix(ci))
	return c
}

// Refines all raw centers of the last DetectMinima call, in detection order
func (o *Octave1D) Subpix() []Center {
	centers := make([]Center, len(o.centers))
	for i, ci := range o.centers {
		centers[i] = o.Refine(ci)
	}
	return centers
}

// Converts a fractional layer index into the gaussian sigma of the best-matching blob, in pixels
func (o *Octave1D) Sigma(r float64) float64 {
	return o.preblurRadius * math.Pow(2, (r+0.5)/float64(o.nLayers))
}

// Converts a fractional layer index into an apparent blob radius in pixels
func (o *Octave1D) Radius(r float64) float64 {
	return o.prefactor * o.preblurRadius * math.Pow(2, r/float64(o.nLayers))
}

// Runs the full pipeline on one signal: fill, block NMS, subpixel refinement
func (o *Octave1D) Detect(data []float32, preblur bool) ([]Center, error) {
	var err error
	if preblur {
		err = o.PreblurAndFill(data)
	} else {
		err = o.Fill(data)
	}
	if err != nil {
		return nil, err
	}
	o.DetectMinima(DefaultMaxRatio)
	return o.Subpix(), nil
}
