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

// Default threshold for the Hessian anisotropy test rejecting edge-like responses
const DefaultMaxRatio = 10.0

// Detect local minima of the DoG scale space with the dynamic block algorithm by
// Neubeck and Van Gool, 18th International Conference on Pattern Recognition
// (ICPR'06) 850-855 (2006). Scans disjoint 2x2x2 blocks of (layer, row, col)
// space, takes each block's minimum, and verifies it exhaustively against the
// 3x3x3 neighborhood outside the block. Winners passing the Hessian edge test
// are recorded in the masks and the raw center list.
//
// Candidates live only on interior DoG layers 1..nLayers and at least sizes[k]
// pixels away from the image borders
func (o *Octave) DetectMinima(maxRatio float64) {
	nb := o.nLayers
	o.centers = o.centers[:0]
	for _, b := range o.binary {
		for p := range b {
			b[p] = false
		}
	}
	w := o.width
	for k := 1; k < nb+1; k += 2 {
		l0, l1 := o.layers[k], o.layers[k+1]
		si := o.sizes[k]
		for r := si + 1; r < o.height-si-1; r += 2 {
			// advance two row base offsets per block column, scanline style
			b0, b1 := r*w, (r+1)*w
			for c := si + 1; c < o.width-si-1; c += 2 {
				// gather the whole block together for locality
				ngb := [8]float32{
					l0[b0+c], l0[b0+c+1],
					l0[b1+c], l0[b1+c+1],
					l1[b0+c], l1[b0+c+1],
					l1[b1+c], l1[b1+c+1],
				}
				ml, mv := 0, ngb[0]
				for i := 1; i < 8; i++ {
					if ngb[i] < mv {
						ml, mv = i, ngb[i]
					}
				}
				// only negative minima mark bright blobs under the DoG sign convention
				if mv >= 0 {
					continue
				}
				mc := c + ml&1
				mr := r + (ml>>1)&1
				mk := k + (ml>>2)&1
				// minima cannot be on the last layer or within the margin of the image edges
				s := o.sizes[mk]
				if mk > nb || mc < s || mc >= o.width-s || mr < s || mr >= o.height-s {
					continue
				}
				v := float64(mv)
				if !(v*v > epsNonzero) {
					continue
				}
				// reject if any neighbor outside the already-checked block is lower
				ok := true
			verify:
				for k2 := mk - 1; k2 <= mk+1; k2++ {
					l2 := o.layers[k2]
					for r2 := mr - 1; r2 <= mr+1; r2++ {
						for c2 := mc - 1; c2 <= mc+1; c2++ {
							if k2 >= k && k2 <= k+1 && r2 >= r && r2 <= r+1 && c2 >= c && c2 <= c+1 {
								continue
							}
							if l2[r2*w+c2] < mv {
								ok = false
								break verify
							}
						}
					}
				}
				if !ok || o.isEdge(mr, mc, mk, maxRatio) {
					continue
				}
				o.binary[mk-1][mr*w+mc] = true
				o.centers = append(o.centers, RawCenter{Row: mr, Col: mc, K: mk})
			}
		}
	}
}

// Rejects elongated, edge-like minima via the Hessian anisotropy test, for the
// coefficients see H Bay, A Ess, T Tuytelaars and L Van Gool, Computer Vision
// and Image Understanding 110, 346-359 (2008). Saddle points (negative
// determinant distinguishable from zero) and degenerate Hessians are rejected too
func (o *Octave) isEdge(r, c, k int, maxRatio float64) bool {
	l := o.layers[k]
	w := o.width
	i := r*w + c
	hrr := float64(l[i-w]) - 2*float64(l[i]) + float64(l[i+w])
	hcc := float64(l[i-1]) - 2*float64(l[i]) + float64(l[i+1])
	hrc := float64(l[i-w-1]) + float64(l[i+w+1]) - float64(l[i+w-1]) - float64(l[i-w+1])
	detH := hrr*hcc - hrc*hrc
	if detH < 0 && detH*detH > epsNonzero {
		return true
	}
	den := 4 * hrr * hcc
	if den == 0 {
		return true
	}
	tr := hrr + hcc
	return tr*tr/den > maxRatio
}
