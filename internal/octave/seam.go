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

// Eliminates raw centers duplicated at the seam between two octaves covering
// overlapping physical scales at different pixel pitches. The finer octave's
// topmost DoG layer and the coarser octave's bottom layer see the same blobs;
// whichever detection carries the larger DoG value (the weaker response under
// the sign convention) is dropped and its mask bit cleared. Comparison
// coordinates are nearest-integer rounded after rescaling by the pitch ratio
func Seam(x, y *Octave) {
	a, b := x, y
	if a.height < b.height {
		a, b = b, a
	}
	// a is the finer-pitched (larger) octave now
	sf := float64(a.height) / float64(b.height)

	// centers of a's top layer that match a stronger detection in b's bottom layer
	kept := a.centers[:0]
	for _, c := range a.centers {
		if c.K == a.nLayers {
			br := int(float64(c.Row)/sf + 0.5)
			bc := int(float64(c.Col)/sf + 0.5)
			bi := br*b.width + bc
			if b.binary[0][bi] && a.layers[c.K][c.Row*a.width+c.Col] > b.layers[1][bi] {
				a.binary[c.K-1][c.Row*a.width+c.Col] = false
				continue
			}
		}
		kept = append(kept, c)
	}
	a.centers = kept

	// centers of b's bottom layer that match a stronger detection in a's top layer
	kept = b.centers[:0]
	for _, c := range b.centers {
		if c.K == 1 {
			ar := int(float64(c.Row)*sf + 0.5)
			ac := int(float64(c.Col)*sf + 0.5)
			ai := ar*a.width + ac
			if a.binary[a.nLayers-1][ai] && b.layers[1][c.Row*b.width+c.Col] > a.layers[a.nLayers][ai] {
				b.binary[0][c.Row*b.width+c.Col] = false
				continue
			}
		}
		kept = append(kept, c)
	}
	b.centers = kept
}

// The 1D analogue of Seam, reconciling two signal octaves at different pitches
func Seam1D(x, y *Octave1D) {
	a, b := x, y
	if a.length < b.length {
		a, b = b, a
	}
	sf := float64(a.length) / float64(b.length)

	kept := a.centers[:0]
	for _, c := range a.centers {
		if c.K == a.nLayers {
			bi := int(float64(c.Col)/sf + 0.5)
			if b.binary[0][bi] && a.layers[c.K][c.Col] > b.layers[1][bi] {
				a.binary[c.K-1][c.Col] = false
				continue
			}
		}
		kept = append(kept, c)
	}
	a.centers = kept

	kept = b.centers[:0]
	for _, c := range b.centers {
		if c.K == 1 {
			ai := int(float64(c.Col)*sf + 0.5)
			if a.binary[a.nLayers-1][ai] && b.layers[1][c.Col] > a.layers[a.nLayers][ai] {
				b.binary[0][c.Col] = false
				continue
			}
		}
		kept = append(kept, c)
	}
	b.centers = kept
}
