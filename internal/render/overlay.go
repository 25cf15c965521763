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


// Rendering detection overlays for visual inspection
package render

import (
	"image"
	"image/color"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/mlnoga/multiscale/internal/octave"
)

// Draws the frame as a gray background with one circle per detection, radius
// equal to the blob radius and color picked from an HCL ramp over the scale
// range (blue for the smallest blobs through red for the largest)
func Overlay(data []float32, width int, centers []octave.Center) *image.RGBA {
	height := len(data) / width
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	lo, hi := data[0], data[0]
	for _, v := range data {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	scale := float32(0)
	if hi > lo {
		scale = 255 / (hi - lo)
	}
	for r := 0; r < height; r++ {
		for c := 0; c < width; c++ {
			g := uint8((data[r*width+c] - lo) * scale)
			img.SetRGBA(c, r, color.RGBA{g, g, g, 255})
		}
	}

	rLo, rHi := float64(math.MaxFloat64), 0.0
	for _, ct := range centers {
		if float64(ct.R) < rLo {
			rLo = float64(ct.R)
		}
		if float64(ct.R) > rHi {
			rHi = float64(ct.R)
		}
	}
	for _, ct := range centers {
		t := 0.0
		if rHi > rLo {
			t = (float64(ct.R) - rLo) / (rHi - rLo)
		}
		hue := 280 * (1 - t) // blue to red
		cr, cg, cb := colorful.Hcl(hue, 0.6, 0.6).Clamped().RGB255()
		drawCircle(img, float64(ct.X), float64(ct.Y), float64(ct.R), color.RGBA{cr, cg, cb, 255})
	}
	return img
}

func drawCircle(img *image.RGBA, cx, cy, r float64, col color.RGBA) {
	if r < 1 {
		r = 1
	}
	steps := int(2*math.Pi*r) + 8
	for i := 0; i < steps; i++ {
		a := 2 * math.Pi * float64(i) / float64(steps)
		x := int(cx + r*math.Cos(a) + 0.5)
		y := int(cy + r*math.Sin(a) + 0.5)
		if x >= 0 && y >= 0 && x < img.Rect.Dx() && y < img.Rect.Dy() {
			img.SetRGBA(x, y, col)
		}
	}
}
