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


// Bounded-parallel processing of frame sequences
package batch

import (
	"io"
	"runtime"

	"github.com/pbnjay/memory"
)

// An execution context for batch runs
type Context struct {
	Log        io.Writer
	MemoryMB   int // memory.TotalMemory()/1024/1024
	MaxThreads int
}

// Creates a context sized from the machine's total memory and GOMAXPROCS.
// frameMB caps parallelism so that concurrent pyramids fit in 70% of RAM;
// pass 0 when frame sizes are unknown
func NewContext(log io.Writer, frameMB int) *Context {
	memoryMB := int(memory.TotalMemory() / 1024 / 1024)
	maxThreads := runtime.GOMAXPROCS(0)
	if frameMB > 0 {
		if byMem := memoryMB * 7 / 10 / frameMB; byMem < maxThreads {
			maxThreads = byMem
		}
	}
	if maxThreads < 1 {
		maxThreads = 1
	}
	return &Context{Log: log, MemoryMB: memoryMB, MaxThreads: maxThreads}
}

// Runs f for every index in [0, n) with the context's concurrency limit.
// Collects the first error; later frames still run to completion
func (c *Context) Run(n int, f func(i int) error) error {
	limiter := make(chan bool, c.MaxThreads)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		limiter <- true
		go func(i int) {
			defer func() { <-limiter }()
			errs <- f(i)
		}(i)
	}
	for i := 0; i < cap(limiter); i++ {
		limiter <- true
	}
	var firstErr error
	for i := 0; i < n; i++ {
		if err := <-errs; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
