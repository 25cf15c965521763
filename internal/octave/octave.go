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

// Tolerance for values distinguishable from zero relative to 1.0,
// i.e. the smallest x*x for which 1+x*x > 1 holds in IEEE double arithmetic
const epsNonzero = 0x1p-52

// A raw scale-space minimum on the integer grid, before subpixel refinement
type RawCenter struct {
	Row int // spatial row, 0 for 1D signals
	Col int // spatial column
	K   int // DoG layer index, in [1, nLayers]
}

// A refined detection. X,Y are subpixel positions in pixels (Y is 0 for 1D signals),
// R is the fractional scale in layer units unless converted by the caller,
// Intensity is the DoG value at the detection (negative for bright blobs)
type Center struct {
	X         float32 `json:"x"`
	Y         float32 `json:"y"`
	R         float32 `json:"r"`
	Intensity float32 `json:"intensity"`
}

// One resolution level of a 2D scale-space pyramid, owning all layer buffers.
// Construct once per image geometry and refill for every frame
type Octave struct {
	width, height int
	nLayers       int
	preblurRadius float64
	prefactor     float64 // converts sigma to apparent blob radius in pixels

	layersG [][]float32 // nLayers+3 gaussian layers
	layers  [][]float32 // nLayers+2 difference-of-gaussians layers, layers[i]=layersG[i+1]-layersG[i]
	binary  [][]bool    // nLayers extrema masks for the interior DoG layers
	sizes   []int       // nLayers+3 border margins in pixels, scaled to the blob size at each layer

	iterativeRadii   []float64 // nLayers+2 per-step blur sigmas following the composition rule
	iterativeKernels []*Kernel
	kernels          *KernelCache
	preblurKernel    *Kernel

	centers []RawCenter
	tmp     []float32 // scratch for the separable blur
}

// Creates an octave for images of the given geometry with nLayers DoG layers and
// the given pre-blur radius. A nil kernel cache allocates a private one
func NewOctave(width, height, nLayers int, preblurRadius float64, kernels *KernelCache) *Octave {
	if kernels == nil {
		kernels = NewKernelCache()
	}
	o := &Octave{
		width:   width,
		height:  height,
		nLayers: nLayers,
		kernels: kernels,
		tmp:     make([]float32, width*height),
	}
	o.layersG = make([][]float32, nLayers+3)
	for i := range o.layersG {
		o.layersG[i] = make([]float32, width*height)
	}
	o.layers = make([][]float32, nLayers+2)
	for i := range o.layers {
		o.layers[i] = make([]float32, width*height)
	}
	o.binary = make([][]bool, nLayers)
	for i := range o.binary {
		o.binary[i] = make([]bool, width*height)
	}
	o.SetPreblurRadius(preblurRadius)
	return o
}

func (o *Octave) Width() int             { return o.width }
func (o *Octave) Height() int            { return o.height }
func (o *Octave) NLayers() int           { return o.nLayers }
func (o *Octave) PreblurRadius() float64 { return o.preblurRadius }
func (o *Octave) Prefactor() float64     { return o.prefactor }

// Border margin in pixels at layer k
func (o *Octave) Size(k int) int { return o.sizes[k] }

// Gaussian layer i. Read-only, valid until the next Fill
func (o *Octave) LayerG(i int) []float32 { return o.layersG[i] }

// DoG layer i. Read-only, valid until the next Fill
func (o *Octave) Layer(i int) []float32 { return o.layers[i] }

// Raw centers accepted by the last DetectMinima call, in detection order
func (o *Octave) Centers() []RawCenter { return o.centers }

// Target blurring sigmas, blob sizes and iterative step radii for one octave.
// Shared between the 1D and 2D variants; the prefactor differs because a 1D
// signal has one fewer spatial dimension contributing to the apparent blob size
func radiiParams(nLayers int, preblur float64, oneD bool) (prefactor float64, sizes []int, steps []float64) {
	n := float64(nLayers)
	sigmas := make([]float64, nLayers+3)
	for i := range sigmas {
		sigmas[i] = preblur * math.Pow(2, float64(i)/n)
	}
	if oneD {
		prefactor = math.Sqrt(2 * math.Ln2 / n / (math.Pow(2, 2/n) - 1))
	} else {
		prefactor = 2 * math.Sqrt(math.Ln2/n/(math.Pow(2, 2/n)-1))
	}
	// a margin below 1 would let the neighborhood verification read past the
	// image edge on odd dimensions
	sizes = make([]int, nLayers+3)
	for i, s := range sigmas {
		sizes[i] = int(s*prefactor + 0.5)
		if sizes[i] < 1 {
			sizes[i] = 1
		}
	}
	// blurring twice with sigmas a,b composes to sqrt(a^2+b^2)
	steps = make([]float64, nLayers+2)
	for i := range steps {
		steps[i] = math.Sqrt(sigmas[i+1]*sigmas[i+1] - sigmas[i]*sigmas[i])
	}
	return prefactor, sizes, steps
}

// Sets the pre-blur radius and recomputes the iterative radii, blob sizes and kernels
func (o *Octave) SetPreblurRadius(preblur float64) {
	o.preblurRadius = preblur
	o.prefactor, o.sizes, o.iterativeRadii = radiiParams(o.nLayers, preblur, false)
	o.iterativeKernels = make([]*Kernel, len(o.iterativeRadii))
	for i, r := range o.iterativeRadii {
		o.iterativeKernels[i] = o.kernels.Get(r)
	}
	o.preblurKernel = o.kernels.Get(preblur)
}

// The sigma of the blur turning the gaussian layer at scale index smaller
// into the one at scale index larger, by the composition rule
func (o *Octave) iterativeRadius(larger, smaller float64) float64 {
	n := float64(o.nLayers)
	return o.preblurRadius * math.Sqrt(math.Pow(2, 2*larger/n)-math.Pow(2, 2*smaller/n))
}

func (o *Octave) checkShape(data []float32, width int) error {
	if width != o.width {
		return fmt.Errorf("octave: input width %d must match the octave width %d", width, o.width)
	}
	if len(data) != o.width*o.height {
		return fmt.Errorf("octave: input height %d must match the octave height %d", len(data)/width, o.height)
	}
	return nil
}

// Fills the pyramid from an input already blurred by the pre-blur radius:
// copies into layer 0, then iteratively blurs so cumulative sigma follows a
// geometric progression, then computes the DoG layers as successive differences.
// Fails fast on a shape mismatch without touching any layer
func (o *Octave) Fill(data []float32, width int) error {
	if err := o.checkShape(data, width); err != nil {
		return err
	}
	copy(o.layersG[0], data)
	for i := 0; i+1 < len(o.layersG); i++ {
		gaussFilter(o.layersG[i+1], o.tmp, o.layersG[i], o.width, o.iterativeKernels[i])
	}
	for i := range o.layers {
		g0, g1, l := o.layersG[i], o.layersG[i+1], o.layers[i]
		for p := range l {
			l[p] = g1[p] - g0[p]
		}
	}
	return nil
}

// Blurs the raw input by the pre-blur radius, then fills the pyramid
func (o *Octave) PreblurAndFill(data []float32, width int) error {
	if err := o.checkShape(data, width); err != nil {
		return err
	}
	blurred := make([]float32, len(data))
	gaussFilter(blurred, o.tmp, data, width, o.preblurKernel)
	return o.Fill(blurred, width)
}

// Converts a fractional layer index into the gaussian sigma of the best-matching blob, in pixels
func (o *Octave) Sigma(r float64) float64 {
	return o.preblurRadius * math.Pow(2, (r+0.5)/float64(o.nLayers))
}

// Converts a fractional layer index into an apparent blob radius in pixels
func (o *Octave) Radius(r float64) float64 {
	return o.prefactor * o.preblurRadius * math.Pow(2, r/float64(o.nLayers))
}

// Runs the full pipeline on one frame: fill, block NMS, subpixel refinement.
// Returns one refined center per detected blob, R in fractional layer units
func (o *Octave) Detect(data []float32, width int, preblur bool, maxRatio float64) ([]Center, error) {
	var err error
	if preblur {
		err = o.PreblurAndFill(data, width)
	} else {
		err = o.Fill(data, width)
	}
	if err != nil {
		return nil, err
	}
	o.DetectMinima(maxRatio)
	return o.Subpix(), nil
}
