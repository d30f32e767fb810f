package effects

import (
	"math"
	"sync/atomic"
)

// atomicFloat is a lock-free scalar parameter cell: single-writer (control
// plane) / single-reader (audio task), so torn reads are impossible.
type atomicFloat struct {
	bits atomic.Uint64
}

func (a *atomicFloat) store(v float64) {
	a.bits.Store(math.Float64bits(v))
}

func (a *atomicFloat) load() float64 {
	return math.Float64frombits(a.bits.Load())
}

// atomicBool is a lock-free boolean parameter cell with the same
// single-writer/single-reader contract as atomicFloat.
type atomicBool struct {
	v atomic.Bool
}

func (a *atomicBool) store(v bool) { a.v.Store(v) }
func (a *atomicBool) load() bool   { return a.v.Load() }
