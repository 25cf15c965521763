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


package batch

import (
	"fmt"
	"io"
	"sync/atomic"
	"testing"
)

func TestNewContext(t *testing.T) {
	c := NewContext(io.Discard, 0)
	if c.MaxThreads < 1 {
		t.Errorf("max threads %d; want at least 1", c.MaxThreads)
	}
	if c.MemoryMB < 1 {
		t.Errorf("memory %d MB; want at least 1", c.MemoryMB)
	}
	// a frame footprint beyond all RAM still leaves one worker
	c = NewContext(io.Discard, c.MemoryMB*2)
	if c.MaxThreads != 1 {
		t.Errorf("max threads %d for oversized frames; want 1", c.MaxThreads)
	}
}

func TestRunAll(t *testing.T) {
	c := &Context{Log: io.Discard, MaxThreads: 4}
	var done [16]int32
	if err := c.Run(len(done), func(i int) error {
		atomic.AddInt32(&done[i], 1)
		return nil
	}); err != nil {
		t.Fatalf("run: %s", err.Error())
	}
	for i, v := range done {
		if v != 1 {
			t.Errorf("index %d ran %d times; want 1", i, v)
		}
	}
}

func TestRunError(t *testing.T) {
	c := &Context{Log: io.Discard, MaxThreads: 2}
	var ran int32
	err := c.Run(8, func(i int) error {
		atomic.AddInt32(&ran, 1)
		if i == 3 {
			return fmt.Errorf("frame %d failed", i)
		}
		return nil
	})
	if err == nil {
		t.Fatalf("error not propagated")
	}
	if got := atomic.LoadInt32(&ran); got != 8 {
		t.Errorf("%d frames ran; want all 8 despite the error", got)
	}
}

func TestRunEmpty(t *testing.T) {
	c := &Context{Log: io.Discard, MaxThreads: 2}
	if err := c.Run(0, func(i int) error { return nil }); err != nil {
		t.Errorf("empty run: %s", err.Error())
	}
}
