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


// Synthetic test frames: gaussian blobs, ridges and noise on flat backgrounds.
// Used by the tests, the demo command and the REST selftest
package synth

import (
	"math"

	"github.com/valyala/fastrand"
)

// A flat 2D background of the given value
func Flat(width, height int, value float32) []float32 {
	data := make([]float32, width*height)
	for i := range data {
		data[i] = value
	}
	return data
}

// Adds an anisotropic gaussian of the given center, sigmas and amplitude
func AddBlob2D(data []float32, width int, cx, cy, sigmaX, sigmaY, amp float64) {
	height := len(data) / width
	for r := 0; r < height; r++ {
		dy := (float64(r) - cy) / sigmaY
		for c := 0; c < width; c++ {
			dx := (float64(c) - cx) / sigmaX
			data[r*width+c] += float32(amp * math.Exp(-0.5*(dx*dx+dy*dy)))
		}
	}
}

// A single isotropic gaussian blob on a zero background
func Blob2D(width, height int, cx, cy, sigma, amp float64) []float32 {
	data := make([]float32, width*height)
	AddBlob2D(data, width, cx, cy, sigma, sigma, amp)
	return data
}

// An elongated gaussian ridge on a zero background, with the given anisotropy
// ratio between its long and short axes
func Ridge2D(width, height int, cx, cy, sigma, ratio, amp float64) []float32 {
	data := make([]float32, width*height)
	AddBlob2D(data, width, cx, cy, sigma, sigma*ratio, amp)
	return data
}

// A single gaussian blob on a zero 1D background
func Blob1D(length int, cx, sigma, amp float64) []float32 {
	data := make([]float32, length)
	for i := range data {
		dx := (float64(i) - cx) / sigma
		data[i] += float32(amp * math.Exp(-0.5*dx*dx))
	}
	return data
}

// Adds uniform noise in [0, amp) to every sample
func AddNoise(data []float32, amp float32) {
	var rng fastrand.RNG
	rng.Seed(0xdeadbeef)
	for i := range data {
		data[i] += amp * float32(rng.Uint32()) / float32(math.MaxUint32)
	}
}
