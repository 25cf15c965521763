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
	"fmt"
	"sort"
)

// A candidate link between position From in the previous frame and position To
// in the next frame, with their Euclidean distance in pixels
type Link struct {
	From     int
	To       int
	Distance float64
}

// One trajectory: the frame it starts in and the per-frame position indices it visits.
// A trajectory ends when a frame yields no link for it; trajectories never restart
type Traj struct {
	Start int   // first frame index
	Pos   []int // Pos[t-Start] is the position index at frame t
}

// Last frame index spanned by the trajectory
func (tr *Traj) Finish() int { return tr.Start + len(tr.Pos) - 1 }

// Bookkeeping of trajectories across frames: tr2pos maps trajectories to their
// per-frame position indices, pos2tr maps each frame's positions back to their
// trajectories
type TrajIndex struct {
	trajs  []*Traj
	pos2tr [][]int
}

// Starts an index with one single-position trajectory per position of frame 0
func NewTrajIndex(nInitialPositions int) *TrajIndex {
	ti := &TrajIndex{
		trajs:  make([]*Traj, 0, nInitialPositions),
		pos2tr: [][]int{make([]int, nInitialPositions)},
	}
	for p := 0; p < nInitialPositions; p++ {
		ti.trajs = append(ti.trajs, &Traj{Start: 0, Pos: []int{p}})
		ti.pos2tr[0][p] = p
	}
	return ti
}

// Number of trajectories, live and terminated
func (ti *TrajIndex) Len() int { return len(ti.trajs) }

// Trajectory tr
func (ti *TrajIndex) Traj(tr int) *Traj { return ti.trajs[tr] }

// Number of frames indexed so far
func (ti *TrajIndex) Frames() int { return len(ti.pos2tr) }

// The trajectory passing through position pos of the given frame
func (ti *TrajIndex) TrajOf(frame, pos int) int { return ti.pos2tr[frame][pos] }

// Appends a frame of frameSize positions, linking them to the previous frame.
// Links are consumed by increasing distance; any position links at most once.
// Previous-frame trajectories left unlinked are terminated by construction;
// unmatched new positions start new trajectories
func (ti *TrajIndex) AddFrame(frameSize int, links []Link) error {
	prev := ti.pos2tr[len(ti.pos2tr)-1]
	for _, l := range links {
		if l.From < 0 || l.From >= len(prev) {
			return fmt.Errorf("track: link from position %d outside the previous frame of size %d", l.From, len(prev))
		}
		if l.To < 0 || l.To >= frameSize {
			return fmt.Errorf("track: link to position %d outside the new frame of size %d", l.To, frameSize)
		}
	}
	sorted := make([]Link, len(links))
	copy(sorted, links)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Distance < sorted[j].Distance })

	fromUsed := make([]bool, len(prev))
	toUsed := make([]bool, frameSize)
	frame := make([]int, frameSize)
	for _, l := range sorted {
		if fromUsed[l.From] || toUsed[l.To] {
			continue
		}
		fromUsed[l.From] = true
		toUsed[l.To] = true
		tr := prev[l.From]
		frame[l.To] = tr
		ti.trajs[tr].Pos = append(ti.trajs[tr].Pos, l.To)
	}
	for p, used := range toUsed {
		if !used {
			frame[p] = len(ti.trajs)
			ti.trajs = append(ti.trajs, &Traj{Start: len(ti.pos2tr), Pos: []int{p}})
		}
	}
	ti.pos2tr = append(ti.pos2tr, frame)
	return nil
}
