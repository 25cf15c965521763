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

// Check if coordinate is within [0, size-1], and if not, reflect out of bounds coordinates back into the value range
func reflect(size, x int) int {
	if x < 0 {
		return -x - 1
	}
	if x >= size {
		return 2*size - x - 1
	}
	return x
}

// Clamp coordinate into [0, size-1]
func clamp(size, x int) int {
	if x < 0 {
		return 0
	}
	if x >= size {
		return size - 1
	}
	return x
}

// Convolve the 2D image given by data and width with the kernel along the x axis, storing the result in res
func convolve1DX(res, data []float32, width int, taps []float32) {
	height := len(data) / width
	k := len(taps) / 2
	for y := 0; y < height; y++ {
		base := y * width
		for x := 0; x < width; x++ {
			sum := float32(0)
			for i := -k; i <= k; i++ {
				x1 := reflect(width, x+i)
				sum += data[base+x1] * taps[i+k]
			}
			res[base+x] = sum
		}
	}
}

// Convolve the 2D image given by data and width with the kernel along the y axis, storing the result in res
func convolve1DY(res, data []float32, width int, taps []float32) {
	height := len(data) / width
	k := len(taps) / 2
	for y := 0; y < height; y++ {
		base := y * width
		for x := 0; x < width; x++ {
			sum := float32(0)
			for i := -k; i <= k; i++ {
				y1 := reflect(height, y+i)
				sum += data[y1*width+x] * taps[i+k]
			}
			res[base+x] = sum
		}
	}
}

// Apply a separable gauss filter with the given kernel to the 2D image given by data and width.
// Overwrites tmp and stores the result in res. For a single-row image this
// degenerates into one horizontal pass
func gaussFilter(res, tmp, data []float32, width int, kernel *Kernel) {
	if len(data) == width { // 1D signal
		convolve1DX(res, data, width, kernel.Taps)
		return
	}
	convolve1DX(tmp, data, width, kernel.Taps)
	convolve1DY(res, tmp, width, kernel.Taps)
}

// Evaluate the convolution of the image with the kernel at the single point (row, col),
// with taps falling outside the image clamped to the border. Shared between the 1D and
// 2D fractional-scale response paths; accumulates in float64 for stability
func sampleBlurred(data []float32, width, row, col int, taps []float32) float64 {
	height := len(data) / width
	m := len(taps)
	half := m / 2
	if height == 1 {
		sum := 0.0
		for x := 0; x < m; x++ {
			sum += float64(taps[x]) * float64(data[clamp(width, col-x+half)])
		}
		return sum
	}
	sum := 0.0
	for y := 0; y < m; y++ {
		base := clamp(height, row-y+half) * width
		rowSum := 0.0
		for x := 0; x < m; x++ {
			rowSum += float64(taps[x]) * float64(data[base+clamp(width, col-x+half)])
		}
		sum += float64(taps[y]) * rowSum
	}
	return sum
}
