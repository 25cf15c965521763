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
)

// Refines the spatial position of a raw center to subpixel precision via centered
// first and second differences, independently per axis. When the environment of a
// particle is strongly asymmetric (very close neighbors), the maximum of the
// gaussian is better localized than the minimum of the DoG, so the gaussian layer
// below the detected scale is used when available. A zero second difference
// yields no correction on that axis
func (o *Octave) SpatialSubpix(ci RawCenter) Center {
	k := ci.K
	l := o.layersG[k]
	if k > 0 {
		l = o.layersG[k-1]
	}
	w := o.width
	i := ci.Row*w + ci.Col
	dc := (float64(l[i+1]) - float64(l[i-1])) / 2
	dr := (float64(l[i+w]) - float64(l[i-w])) / 2
	dcc := float64(l[i+1]) - 2*float64(l[i]) + float64(l[i-1])
	drr := float64(l[i+w]) - 2*float64(l[i]) + float64(l[i-w])
	x := float64(ci.Col) + 0.5
	if dcc != 0 {
		x -= dc / dcc
	}
	y := float64(ci.Row) + 0.5
	if drr != 0 {
		y -= dr / drr
	}
	return Center{X: float32(x), Y: float32(y), Intensity: o.layers[k][i]}
}

// Evaluates the blurred image at (row, col) for an arbitrary fractional scale index.
// Scales within floating tolerance of an integer layer return the stored layer value;
// otherwise the nearest lower layer is convolved on the fly with the kernel closing
// the sigma gap by the composition rule. Negative scales are invalid
func (o *Octave) GaussianResponse(row, col int, scale float64) (float64, error) {
	if scale < 0 {
		return 0, fmt.Errorf("octave: gaussianResponse scale must be positive, got %g", scale)
	}
	return o.gaussianResponse(row, col, scale), nil
}

func (o *Octave) gaussianResponse(row, col int, scale float64) float64 {
	k := int(scale)
	if k >= len(o.layersG) {
		k = len(o.layersG) - 1
	}
	if d := scale - float64(k); !(d*d > epsNonzero) {
		return float64(o.layersG[k][row*o.width+col])
	}
	sigma := o.iterativeRadius(scale, float64(k))
	kernel := o.kernels.Get(sigma)
	return sampleBlurred(o.layersG[k], o.width, row, col, kernel.Taps)
}

// Refines the scale of a raw center to sub-layer precision with a Newton step on
// a quadratic model of the DoG response as a function of continuous scale. The
// five finite differences a[u] approximate the DoG at half-layer spacing; the
// (-1,8,-8,1)/6 stencil is the higher-order numerical derivative correction.
// Results saturate at half a layer away from the detected scale
func (o *Octave) ScaleSubpix(ci RawCenter) float64 {
	r, c, k := ci.Row, ci.Col, float64(ci.K)
	var sub [8]float64
	var a [5]float64
	sample := func(base float64) {
		for u := range sub {
			sub[u] = o.gaussianResponse(r, c, base+0.5*float64(u))
		}
		for u := range a {
			a[u] = sub[u+2] - sub[u]
		}
	}
	sample(k - 1)
	den := a[4] - 2*a[2] + a[0]
	if den == 0 {
		return k
	}
	s := k - (-a[4]+8*a[3]-8*a[1]+a[0])/6/den
	if s > k+0.5 {
		s = k + 0.5
	}
	if s < k-0.5 {
		s = k - 0.5
	}
	if s >= 1 {
		// estimates well below the sampled layer are biased; resample centered
		// half a layer down and take a single second Newton step
		if s+0.1 < k {
			s = k - 0.5
			sample(s - 1)
			if den = a[4] - 2*a[2] + a[0]; den != 0 {
				s -= (-a[4] + 8*a[3] - 8*a[1] + a[0]) / 6 / den
			}
		}
	} else if s+0.25 < k {
		// below one layer the plain secant estimate of the derivative behaves
		// marginally better than the quadratic one
		s = k - (a[3]-a[1])/den
	}
	if s < k-0.5 {
		s = k - 0.5
	}
	if s > k+0.5 {
		s = k + 0.5
	}
	return s
}

// Composes spatial and scale refinement into one refined center
func (o *Octave) Refine(ci RawCenter) Center {
	c := o.SpatialSubpix(ci)
	c.R = float32(o.ScaleSubpix(ci))
	return c
}

// Refines all raw centers of the last DetectMinima call, in detection order
func (o *Octave) Subpix() []Center {
	centers := make([]Center, len(o.centers))
	for i, ci := range o.centers {
		centers[i] = o.Refine(ci)
	}
	return centers
}
