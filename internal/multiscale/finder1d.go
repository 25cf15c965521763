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


package multiscale

import (
	"fmt"
	"math"

	"github.com/mlnoga/multiscale/internal/octave"
)

// The 1D analogue of Finder, composing signal octaves at power-of-two pitches
type Finder1D struct {
	length  int
	cfg     Config
	octaves []*octave.Octave1D
	pitch0  float64
	up      []float32
	dec     [][]float32
}

// Creates a finder for signals of the given length
func NewFinder1D(length int, cfg Config, kernels *octave.KernelCache) *Finder1D {
	if cfg.NOctaves < 1 {
		cfg.NOctaves = 1
	}
	if kernels == nil {
		kernels = octave.NewKernelCache()
	}
	f := &Finder1D{length: length, cfg: cfg, pitch0: 1}
	l := length
	if cfg.Upscale {
		l = 2 * length
		f.pitch0 = 0.5
		f.up = make([]float32, l)
	}
	prefactor := math.Sqrt(2 * math.Ln2 / float64(cfg.NLayers) / (math.Pow(2, 2/float64(cfg.NLayers)) - 1))
	sTop := int(cfg.PreblurRadius*math.Pow(2, float64(cfg.NLayers+2)/float64(cfg.NLayers))*prefactor + 0.5)
	minLen := 2*sTop + 4
	for i := 0; i < cfg.NOctaves; i++ {
		if l < minLen {
			break
		}
		f.octaves = append(f.octaves, octave.NewOctave1D(l, cfg.NLayers, cfg.PreblurRadius, kernels))
		f.dec = append(f.dec, make([]float32, l))
		l /= 2
	}
	return f
}

// Number of octaves actually constructed
func (f *Finder1D) Octaves() int { return len(f.octaves) }

// Pixel pitch of octave i relative to the input signal
func (f *Finder1D) Pitch(i int) float64 { return f.pitch0 * math.Pow(2, float64(i)) }

// Detects blobs across all octaves of the given signal. X is the refined position
// in input samples, R the apparent blob radius in input samples
func (f *Finder1D) Detect(data []float32) ([]octave.Center, error) {
	if len(data) != f.length {
		return nil, fmt.Errorf("multiscale: input length %d must match the finder length %d", len(data), f.length)
	}
	if len(f.octaves) == 0 {
		return nil, fmt.Errorf("multiscale: signal of length %d is too short for any octave", f.length)
	}
	if f.cfg.Upscale {
		upsample1D(f.up, data)
		if err := f.octaves[0].PreblurAndFill(f.up); err != nil {
			return nil, err
		}
	} else {
		if err := f.octaves[0].PreblurAndFill(data); err != nil {
			return nil, err
		}
	}
	for i := 1; i < len(f.octaves); i++ {
		prev := f.octaves[i-1]
		decimate1D(f.dec[i], prev.LayerG(prev.NLayers()))
		if err := f.octaves[i].Fill(f.dec[i]); err != nil {
			return nil, err
		}
	}
	for _, o := range f.octaves {
		o.DetectMinima(f.cfg.MaxRatio)
	}
	for i := 0; i+1 < len(f.octaves); i++ {
		octave.Seam1D(f.octaves[i], f.octaves[i+1])
	}
	var out []octave.Center
	for i, o := range f.octaves {
		pitch := f.Pitch(i)
		for _, c := range o.Subpix() {
			out = append(out, octave.Center{
				X:         float32(float64(c.X) * pitch),
				R:         float32(o.Radius(float64(c.R)) * pitch),
				Intensity: c.Intensity,
			})
		}
	}
	return out, nil
}

// Doubles the signal with linear interpolation. dst must hold 2*len(src) samples
func upsample1D(dst, src []float32) {
	for i, v := range src {
		vr := v
		if i+1 < len(src) {
			vr = src[i+1]
		}
		dst[2*i] = v
		dst[2*i+1] = (v + vr) / 2
	}
}

// Keeps every other sample. dst must hold len(src)/2 samples
func decimate1D(dst, src []float32) {
	for i := range dst {
		dst[i] = src[2*i]
	}
}
