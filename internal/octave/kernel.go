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

import (
	"math"
	"sync"
)

// A 1D gaussian convolution kernel. Immutable once built, shared via KernelCache
type Kernel struct {
	Sigma float64   // the standard deviation the taps were generated for
	Taps  []float32 // normalized taps, odd length
}

// Cache of gaussian kernels, keyed by sigma quantized to 1% precision to bound growth.
// Grows monotonically, no eviction. Safe for concurrent use across octaves;
// population is guarded by an insert-if-absent discipline
type KernelCache struct {
	mutex sync.RWMutex
	m     map[int]*Kernel
}

func NewKernelCache() *KernelCache {
	return &KernelCache{m: make(map[int]*Kernel)}
}

// Returns the gaussian kernel for the given sigma, generating and caching it on first use.
// The returned kernel is shared and must not be mutated
func (kc *KernelCache) Get(sigma float64) *Kernel {
	key := int(sigma*100 + 0.5)
	kc.mutex.RLock()
	k := kc.m[key]
	kc.mutex.RUnlock()
	if k != nil {
		return k
	}
	kc.mutex.Lock()
	defer kc.mutex.Unlock()
	if k = kc.m[key]; k != nil { // lost the insertion race
		return k
	}
	k = &Kernel{Sigma: sigma, Taps: gaussianTaps(sigma)}
	kc.m[key] = k
	return k
}

// Number of kernels currently cached
func (kc *KernelCache) Len() int {
	kc.mutex.RLock()
	defer kc.mutex.RUnlock()
	return len(kc.m)
}

// Generates normalized gaussian taps of size (round(sigma*4)*2+1)|1
func gaussianTaps(sigma float64) []float32 {
	m := (int(sigma*4+0.5)*2 + 1) | 1
	half := m / 2
	tmp := make([]float64, m)
	sum := 0.0
	for i := range tmp {
		x := float64(i-half) / sigma
		v := math.Exp(-0.5 * x * x)
		tmp[i] = v
		sum += v
	}
	taps := make([]float32, m)
	for i, v := range tmp {
		taps[i] = float32(v / sum)
	}
	return taps
}
