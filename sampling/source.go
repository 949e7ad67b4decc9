// Package sampling draws the random arrival intervals and service times of
// the simulation.
package sampling

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

// A Source draws integers from half-open ranges.
type Source interface {
	// IntRange returns a value in [lo, hi). It panics if the range is empty.
	IntRange(lo, hi int) int
}

func rangeMustNotBeEmpty(lo, hi int) {
	if lo >= hi {
		panic(fmt.Sprintf("empty range [%d, %d)", lo, hi))
	}
}

// UniformSource draws uniformly distributed values. It is safe for concurrent
// use.
type UniformSource struct {
	lock sync.Mutex
	rng  *rand.Rand
}

// NewUniformSource creates a UniformSource. The same non-zero seed always
// yields the same sequence. A zero seed seeds from the current time.
func NewUniformSource(seed uint64) *UniformSource {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	return &UniformSource{
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// IntRange returns a uniformly distributed value in [lo, hi).
func (s *UniformSource) IntRange(lo, hi int) int {
	rangeMustNotBeEmpty(lo, hi)

	s.lock.Lock()
	defer s.lock.Unlock()

	return lo + s.rng.IntN(hi-lo)
}

// ScriptedSource replays a fixed list of values. It is used to reproduce a
// known arrival pattern.
type ScriptedSource struct {
	lock   sync.Mutex
	values []int
	next   int
}

// NewScriptedSource creates a source that returns values in order.
func NewScriptedSource(values ...int) *ScriptedSource {
	return &ScriptedSource{values: values}
}

// IntRange returns the next scripted value. It panics when the script is
// exhausted or when the value does not fall in [lo, hi).
func (s *ScriptedSource) IntRange(lo, hi int) int {
	rangeMustNotBeEmpty(lo, hi)

	s.lock.Lock()
	defer s.lock.Unlock()

	if s.next >= len(s.values) {
		panic("scripted source exhausted")
	}

	v := s.values[s.next]
	if v < lo || v >= hi {
		panic(fmt.Sprintf("scripted value %d outside [%d, %d)", v, lo, hi))
	}

	s.next++

	return v
}

// Remaining returns the number of values not yet drawn.
func (s *ScriptedSource) Remaining() int {
	s.lock.Lock()
	defer s.lock.Unlock()

	return len(s.values) - s.next
}
