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


package track

import (
	"testing"
)

func TestNewTrajIndex(t *testing.T) {
	ti := NewTrajIndex(3)
	if ti.Len() != 3 {
		t.Errorf("%d trajectories; want 3", ti.Len())
	}
	if ti.Frames() != 1 {
		t.Errorf("%d frames; want 1", ti.Frames())
	}
	for p := 0; p < 3; p++ {
		if ti.TrajOf(0, p) != p {
			t.Errorf("position %d maps to trajectory %d; want %d", p, ti.TrajOf(0, p), p)
		}
	}
}

// Links are consumed by increasing distance, one per position; losers are skipped
func TestAddFrameGreedy(t *testing.T) {
	ti := NewTrajIndex(2)
	links := []Link{
		{From: 0, To: 1, Distance: 0.5},
		{From: 1, To: 1, Distance: 0.2},
		{From: 0, To: 0, Distance: 1.0},
	}
	if err := ti.AddFrame(3, links); err != nil {
		t.Fatalf("add frame: %s", err.Error())
	}
	// 1->1 wins position 1, 0->1 is skipped, 0->0 falls through, position 2 is new
	if ti.Len() != 3 {
		t.Fatalf("%d trajectories; want 3", ti.Len())
	}
	if got := ti.TrajOf(1, 1); got != 1 {
		t.Errorf("frame 1 position 1 belongs to trajectory %d; want 1", got)
	}
	if got := ti.TrajOf(1, 0); got != 0 {
		t.Errorf("frame 1 position 0 belongs to trajectory %d; want 0", got)
	}
	nt := ti.TrajOf(1, 2)
	if nt != 2 {
		t.Errorf("frame 1 position 2 belongs to trajectory %d; want a new trajectory 2", nt)
	}
	tr := ti.Traj(nt)
	if tr.Start != 1 || len(tr.Pos) != 1 || tr.Pos[0] != 2 {
		t.Errorf("new trajectory %+v; want start 1 at position 2", tr)
	}
	if tr0 := ti.Traj(0); tr0.Finish() != 1 || len(tr0.Pos) != 2 {
		t.Errorf("trajectory 0 %+v; want two positions ending at frame 1", tr0)
	}
}

// A trajectory left unlinked terminates and never restarts
func TestAddFrameTermination(t *testing.T) {
	ti := NewTrajIndex(2)
	if err := ti.AddFrame(1, []Link{{From: 0, To: 0, Distance: 0.1}}); err != nil {
		t.Fatalf("add frame: %s", err.Error())
	}
	if ti.Len() != 2 {
		t.Errorf("%d trajectories; want 2", ti.Len())
	}
	if f := ti.Traj(1).Finish(); f != 0 {
		t.Errorf("unlinked trajectory finishes at frame %d; want 0", f)
	}
	if err := ti.AddFrame(1, []Link{{From: 0, To: 0, Distance: 0.1}}); err != nil {
		t.Fatalf("add frame: %s", err.Error())
	}
	if f := ti.Traj(0).Finish(); f != 2 {
		t.Errorf("linked trajectory finishes at frame %d; want 2", f)
	}
	if ti.Frames() != 3 {
		t.Errorf("%d frames; want 3", ti.Frames())
	}
}

func TestAddFrameValidation(t *testing.T) {
	ti := NewTrajIndex(2)
	if err := ti.AddFrame(2, []Link{{From: 2, To: 0}}); err == nil {
		t.Errorf("out-of-range From not rejected")
	}
	if err := ti.AddFrame(2, []Link{{From: -1, To: 0}}); err == nil {
		t.Errorf("negative From not rejected")
	}
	if err := ti.AddFrame(2, []Link{{From: 0, To: 2}}); err == nil {
		t.Errorf("out-of-range To not rejected")
	}
	if ti.Frames() != 1 {
		t.Errorf("%d frames after rejected links; want 1", ti.Frames())
	}
}
