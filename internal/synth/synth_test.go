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


package synth

import (
	"testing"
)

func TestBlob2D(t *testing.T) {
	data := Blob2D(32, 32, 16, 16, 2.5, 0.8)
	if len(data) != 32*32 {
		t.Fatalf("%d samples; want %d", len(data), 32*32)
	}
	if got := data[16*32+16]; got != 0.8 {
		t.Errorf("peak %g; want the amplitude 0.8", got)
	}
	for _, v := range data {
		if v < 0 || v > 0.8 {
			t.Errorf("sample %g outside [0, 0.8]", v)
			break
		}
	}
	if data[16*32+8] >= data[16*32+12] {
		t.Errorf("blob does not fall off with distance")
	}
}

func TestRidge2D(t *testing.T) {
	data := Ridge2D(32, 32, 16, 16, 2, 4, 1)
	// elongated along y: falls off faster along x than along y
	if data[16*32+20] >= data[20*32+16] {
		t.Errorf("ridge x falloff %g not below y falloff %g", data[16*32+20], data[20*32+16])
	}
}

func TestBlob1D(t *testing.T) {
	data := Blob1D(64, 32, 2.5, 1)
	if got := data[32]; got != 1 {
		t.Errorf("peak %g; want 1", got)
	}
	if data[20] >= data[28] {
		t.Errorf("blob does not fall off with distance")
	}
}

func TestAddNoise(t *testing.T) {
	a := Flat(16, 16, 0.5)
	AddNoise(a, 0.1)
	var changed bool
	for _, v := range a {
		if v < 0.5 || v > 0.6 {
			t.Errorf("noisy sample %g outside [0.5, 0.6]", v)
			break
		}
		if v != 0.5 {
			changed = true
		}
	}
	if !changed {
		t.Errorf("noise changed no samples")
	}
	// seeded generator keeps frames reproducible
	b := Flat(16, 16, 0.5)
	AddNoise(b, 0.1)
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("noise not reproducible at %d: %g vs %g", i, a[i], b[i])
			break
		}
	}
}
