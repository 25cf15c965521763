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
	"testing"
)

func TestKernelTaps(t *testing.T) {
	tcs := []struct {
		sigma float64
		taps  int
	}{
		{0.5, 5},
		{1.0, 9},
		{1.6, 13},
		{2.0, 17},
	}
	for _, tc := range tcs {
		k := NewKernelCache().Get(tc.sigma)
		if len(k.Taps) != tc.taps {
			t.Errorf("sigma=%g taps=%d; want %d", tc.sigma, len(k.Taps), tc.taps)
		}
		if len(k.Taps)%2 != 1 {
			t.Errorf("sigma=%g taps=%d; want odd", tc.sigma, len(k.Taps))
		}
		sum := float32(0)
		for _, v := range k.Taps {
			sum += v
		}
		if math.Abs(float64(sum-1)) > 1e-5 {
			t.Errorf("sigma=%g sum=%f; want 1", tc.sigma, sum)
		}
		for i := range k.Taps {
			if k.Taps[i] != k.Taps[len(k.Taps)-1-i] {
				t.Errorf("sigma=%g taps[%d]=%g asymmetric to taps[%d]=%g",
					tc.sigma, i, k.Taps[i], len(k.Taps)-1-i, k.Taps[len(k.Taps)-1-i])
			}
		}
		mid := len(k.Taps) / 2
		for i := 0; i < mid; i++ {
			if k.Taps[i] > k.Taps[i+1] {
				t.Errorf("sigma=%g taps[%d]=%g > taps[%d]=%g; want nondecreasing toward center",
					tc.sigma, i, k.Taps[i], i+1, k.Taps[i+1])
			}
		}
	}
}

func TestKernelCacheQuantization(t *testing.T) {
	kc := NewKernelCache()
	a := kc.Get(1.0)
	b := kc.Get(1.004) // quantizes to the same 1% bucket
	if a != b {
		t.Errorf("sigmas 1.0 and 1.004 yield different kernels; want shared")
	}
	c := kc.Get(1.6)
	if c == a {
		t.Errorf("sigmas 1.0 and 1.6 share a kernel; want distinct")
	}
	if kc.Len() != 2 {
		t.Errorf("cache len=%d; want 2", kc.Len())
	}
	if kc.Get(1.6) != c {
		t.Errorf("repeated get for sigma 1.6 is not cached")
	}
	if kc.Len() != 2 {
		t.Errorf("cache len=%d after repeat get; want 2", kc.Len())
	}
}

func TestKernelCacheConcurrent(t *testing.T) {
	kc := NewKernelCache()
	done := make(chan bool)
	for g := 0; g < 8; g++ {
		go func() {
			for i := 0; i < 100; i++ {
				kc.Get(1.0 + float64(i%10)*0.1)
			}
			done <- true
		}()
	}
	for g := 0; g < 8; g++ {
		<-done
	}
	if kc.Len() != 10 {
		t.Errorf("cache len=%d; want 10", kc.Len())
	}
}
