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

// Configuration for a multi-octave finder
type Config struct {
	NLayers       int     `json:"nLayers"`       // DoG layers per octave
	NOctaves      int     `json:"nOctaves"`      // desired octave count; clamped to what the image fits
	PreblurRadius float64 `json:"preblurRadius"` // pre-blur sigma in pixels
	MaxRatio      float64 `json:"maxRatio"`      // Hessian edge-rejection threshold
	Upscale       bool    `json:"upscale"`       // add a 2x upscaled octave for scales below the native bottom layer
}

// A sane default configuration for microscopy frames
func DefaultConfig() Config {
	return Config{NLayers: 3, NOctaves: 3, PreblurRadius: 1.6, MaxRatio: octave.DefaultMaxRatio, Upscale: true}
}

// Composes several octaves at power-of-two pixel pitches into one detector.
// Each octave past the first is filled from the previous octave's last gaussian
// layer decimated by two, which carries exactly the next octave's pre-blur sigma
// by the composition rule. Adjacent octaves are seam-deduplicated, and refined
// centers are reported in input pixel coordinates with physical blob radii
type Finder struct {
	width, height int
	cfg           Config
	octaves       []*octave.Octave
	pitch0        float64     // pixel pitch of the first octave: 0.5 when upscaled, else 1
	up            []float32   // upscaled input buffer, when configured
	dec           [][]float32 // decimation buffers, dec[i] feeds octave i
}

// Creates a finder for images of the given geometry. The octave chain stops early
// when a decimated octave could no longer fit a full detection margin.
// A nil kernel cache allocates one shared by all octaves of this finder
func NewFinder(width, height int, cfg Config, kernels *octave.KernelCache) *Finder {
	if cfg.NOctaves < 1 {
		cfg.NOctaves = 1
	}
	if cfg.MaxRatio == 0 {
		cfg.MaxRatio = octave.DefaultMaxRatio
	}
	if kernels == nil {
		kernels = octave.NewKernelCache()
	}
	f := &Finder{width: width, height: height, cfg: cfg, pitch0: 1}
	w, h := width, height
	if cfg.Upscale {
		w, h = 2*width, 2*height
		f.pitch0 = 0.5
		f.up = make([]float32, w*h)
	}
	minDim := minOctaveDim(cfg.NLayers, cfg.PreblurRadius)
	for i := 0; i < cfg.NOctaves; i++ {
		if w < minDim || h < minDim {
			break
		}
		f.octaves = append(f.octaves, octave.NewOctave(w, h, cfg.NLayers, cfg.PreblurRadius, kernels))
		f.dec = append(f.dec, make([]float32, w*h))
		w, h = w/2, h/2
	}
	return f
}

// The smallest image dimension leaving scan room inside the top layer's margin
func minOctaveDim(nLayers int, preblur float64) int {
	prefactor := 2 * math.Sqrt(math.Ln2/float64(nLayers)/(math.Pow(2, 2/float64(nLayers))-1))
	sTop := int(preblur*math.Pow(2, float64(nLayers+2)/float64(nLayers))*prefactor + 0.5)
	return 2*sTop + 4
}

// Number of octaves actually constructed
func (f *Finder) Octaves() int { return len(f.octaves) }

// Octave i of the chain, finest first
func (f *Finder) Octave(i int) *octave.Octave { return f.octaves[i] }

// Pixel pitch of octave i relative to the input image
func (f *Finder) Pitch(i int) float64 { return f.pitch0 * math.Pow(2, float64(i)) }

// Detects blobs across all octaves of the given frame. Returns refined centers
// with X,Y in input pixels, R the apparent blob radius in input pixels, and the
// DoG intensity at the detection. Fails fast on a shape mismatch
func (f *Finder) Detect(data []float32, width int) ([]octave.Center, error) {
	if width != f.width || len(data) != f.width*f.height {
		return nil, fmt.Errorf("multiscale: input %dx%d must match the finder %dx%d",
			width, len(data)/max(width, 1), f.width, f.height)
	}
	if len(f.octaves) == 0 {
		return nil, fmt.Errorf("multiscale: image %dx%d is too small for any octave", f.width, f.height)
	}
	if f.cfg.Upscale {
		upsample2D(f.up, data, width)
		if err := f.octaves[0].PreblurAndFill(f.up, 2*width); err != nil {
			return nil, err
		}
	} else {
		if err := f.octaves[0].PreblurAndFill(data, width); err != nil {
			return nil, err
		}
	}
	for i := 1; i < len(f.octaves); i++ {
		prev := f.octaves[i-1]
		decimate2D(f.dec[i], prev.LayerG(prev.NLayers()), prev.Width())
		if err := f.octaves[i].Fill(f.dec[i], prev.Width()/2); err != nil {
			return nil, err
		}
	}
	for _, o := range f.octaves {
		o.DetectMinima(f.cfg.MaxRatio)
	}
	for i := 0; i+1 < len(f.octaves); i++ {
		octave.Seam(f.octaves[i], f.octaves[i+1])
	}
	var out []octave.Center
	for i, o := range f.octaves {
		pitch := f.Pitch(i)
		for _, c := range o.Subpix() {
			out = append(out, octave.Center{
				X:         float32(float64(c.X) * pitch),
				Y:         float32(float64(c.Y) * pitch),
				R:         float32(o.Radius(float64(c.R)) * pitch),
				Intensity: c.Intensity,
			})
		}
	}
	return out, nil
}

// Doubles the image in both directions with bilinear interpolation.
// dst must hold 2*width x 2*height samples
func upsample2D(dst, src []float32, width int) {
	height := len(src) / width
	w2 := 2 * width
	for r := 0; r < height; r++ {
		base, dbase := r*width, 2*r*w2
		for c := 0; c < width; c++ {
			v := src[base+c]
			vr := v
			if c+1 < width {
				vr = src[base+c+1]
			}
			dst[dbase+2*c] = v
			dst[dbase+2*c+1] = (v + vr) / 2
		}
		// odd rows as the mean of the even neighbors
		nbase := base
		if r+1 < height {
			nbase = base + width
		}
		for c := 0; c < width; c++ {
			v := (src[base+c] + src[nbase+c]) / 2
			vr := v
			if c+1 < width {
				vr = (src[base+c+1] + src[nbase+c+1]) / 2
			}
			dst[dbase+w2+2*c] = v
			dst[dbase+w2+2*c+1] = (v + vr) / 2
		}
	}
}

// Keeps every other sample in both directions. dst must hold width/2 x height/2 samples
func decimate2D(dst, src []float32, width int) {
	height := len(src) / width
	wd := width / 2
	for r := 0; r < height/2; r++ {
		base, dbase := 2*r*width, r*wd
		for c := 0; c < wd; c++ {
			dst[dbase+c] = src[base+2*c]
		}
	}
}
