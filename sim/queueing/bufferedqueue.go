// Package queueing implements the chain-buffered queue shared by the process
// generator and the server.
//
// Arriving processes are grouped into chains of bounded capacity. The queue
// grows by one chain whenever the chain that accepts arrivals is missing or
// full, and shrinks by one chain whenever the server takes the oldest chain
// away. All mutations happen under a single lock, held only for the duration
// of one insertion or one extraction.
package queueing

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/sarchlab/chainsim/sim/hooking"
)

// HookPosProcessInsert marks when a process is inserted. The item is the
// Process and the detail is the Chain that received it.
var HookPosProcessInsert = &hooking.HookPos{Name: "Process Insert"}

// HookPosChainGrow marks when a new chain is appended. The item is the new
// Chain and the detail is the chain count after the growth.
var HookPosChainGrow = &hooking.HookPos{Name: "Chain Grow"}

// HookPosChainShrink marks when the oldest chain is extracted. The item is the
// extracted Chain and the detail is the chain count after the removal.
var HookPosChainShrink = &hooking.HookPos{Name: "Chain Shrink"}

// ErrDrained is returned by Next once the queue is closed and every chain has
// been extracted.
var ErrDrained = errors.New("queue closed and drained")

// BufferedQueue is a FIFO of chains with occupancy statistics.
//
// Hooks run while the queue lock is held and must not call back into the
// queue.
type BufferedQueue struct {
	hooking.HookableBase

	name   string
	policy ArrivalPolicy

	lock    sync.Mutex
	chains  []*Chain
	nextSeq uint64
	stats   occupancyStats

	ready     chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
}

type occupancyStats struct {
	processCount          uint64
	totalOccupancySamples uint64
	peakChainCount        int
	chainsCreated         uint64
	chainsExtracted       uint64
}

// NewBufferedQueue creates an empty queue that fills its tail chain.
func NewBufferedQueue(name string) *BufferedQueue {
	return &BufferedQueue{
		name:   name,
		policy: ArrivalTail,
		ready:  make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

// WithArrivalPolicy sets which chain receives new processes. It must be
// called before the first insertion.
func (q *BufferedQueue) WithArrivalPolicy(policy ArrivalPolicy) *BufferedQueue {
	if !policy.Valid() {
		log.Panicf("unknown arrival policy %q", policy)
	}

	q.policy = policy

	return q
}

// ArrivalPolicy returns which chain receives new processes.
func (q *BufferedQueue) ArrivalPolicy() ArrivalPolicy {
	return q.policy
}

// Name returns the name of the queue.
func (q *BufferedQueue) Name() string {
	return q.name
}

// Insert adds p to the chain that the arrival policy selects. If there is no
// such chain or it already holds bufferSize processes, a new chain is appended
// to the tail and receives p. After the insertion, the current chain count
// is sampled into the statistics.
//
// A non-positive bufferSize and an insertion after Close are programming
// errors and panic.
func (q *BufferedQueue) Insert(p Process, bufferSize int) {
	if bufferSize <= 0 {
		log.Panicf("buffer size must be positive, got %d", bufferSize)
	}

	q.lock.Lock()
	defer q.lock.Unlock()

	if q.Closed() {
		log.Panic("insert into a closed queue")
	}

	chain := q.arrivalChain()
	if chain == nil || chain.Len() >= bufferSize {
		chain = q.grow(bufferSize)
	}

	chain.push(p)
	q.sample()

	q.invokeHook(HookPosProcessInsert, p, chain)
	q.notifyReady()
}

func (q *BufferedQueue) arrivalChain() *Chain {
	if len(q.chains) == 0 {
		return nil
	}

	if q.policy == ArrivalHead {
		return q.chains[0]
	}

	return q.chains[len(q.chains)-1]
}

func (q *BufferedQueue) grow(bufferSize int) *Chain {
	q.nextSeq++
	chain := newChain(q.nextSeq, bufferSize)

	q.chains = append(q.chains, chain)
	q.stats.chainsCreated++

	q.invokeHook(HookPosChainGrow, chain, len(q.chains))

	return chain
}

func (q *BufferedQueue) sample() {
	n := len(q.chains)

	q.stats.processCount++
	q.stats.totalOccupancySamples += uint64(n)

	if n > q.stats.peakChainCount {
		q.stats.peakChainCount = n
	}
}

// ExtractHead removes and returns the oldest chain. It returns nil if there is
// no chain. The caller becomes the only owner of the returned chain.
func (q *BufferedQueue) ExtractHead() *Chain {
	q.lock.Lock()
	defer q.lock.Unlock()

	if len(q.chains) == 0 {
		return nil
	}

	head := q.chains[0]
	q.chains[0] = nil
	q.chains = q.chains[1:]
	q.stats.chainsExtracted++

	q.invokeHook(HookPosChainShrink, head, len(q.chains))

	return head
}

// Close tells the queue that no more processes will arrive. Calling Close more
// than once has no further effect.
func (q *BufferedQueue) Close() {
	q.closeOnce.Do(func() {
		close(q.closed)
	})
}

// Closed tells if Close has been called.
func (q *BufferedQueue) Closed() bool {
	select {
	case <-q.closed:
		return true
	default:
		return false
	}
}

// Next blocks until a chain is available and extracts it. It returns
// ErrDrained once the queue is closed and empty, or the context error if ctx
// is done first.
//
// The closed state is read before each extraction attempt. An empty
// extraction that follows an observed close therefore already reflects the
// last insertion, and the queue is truly drained.
func (q *BufferedQueue) Next(ctx context.Context) (*Chain, error) {
	for {
		closed := q.Closed()

		if chain := q.ExtractHead(); chain != nil {
			return chain, nil
		}

		if closed {
			return nil, ErrDrained
		}

		select {
		case <-q.ready:
		case <-q.closed:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (q *BufferedQueue) notifyReady() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Len returns the number of chains currently buffered.
func (q *BufferedQueue) Len() int {
	q.lock.Lock()
	defer q.lock.Unlock()

	return len(q.chains)
}

// Report computes the occupancy statistics. It does not change the queue, so
// calling it repeatedly on the same state yields the same numbers.
func (q *BufferedQueue) Report() OccupancyReport {
	q.lock.Lock()
	defer q.lock.Unlock()

	return q.report()
}

func (q *BufferedQueue) report() OccupancyReport {
	r := OccupancyReport{
		ProcessCount:          q.stats.processCount,
		TotalOccupancySamples: q.stats.totalOccupancySamples,
		PeakChainCount:        q.stats.peakChainCount,
		ChainsCreated:         q.stats.chainsCreated,
		ChainsExtracted:       q.stats.chainsExtracted,
	}

	if r.ProcessCount > 0 {
		r.AverageChainCount =
			float64(r.TotalOccupancySamples) / float64(r.ProcessCount)
	}

	return r
}

// Snapshot captures the chains and statistics of the queue at one instant.
func (q *BufferedQueue) Snapshot() Snapshot {
	q.lock.Lock()
	defer q.lock.Unlock()

	s := Snapshot{
		Name:   q.name,
		Closed: q.Closed(),
		Chains: make([]ChainSnapshot, 0, len(q.chains)),
		Report: q.report(),
	}

	for _, c := range q.chains {
		s.Chains = append(s.Chains, ChainSnapshot{
			Seq:      c.Seq(),
			Len:      c.Len(),
			Capacity: c.Capacity(),
		})
	}

	return s
}

func (q *BufferedQueue) invokeHook(
	pos *hooking.HookPos,
	item, detail interface{},
) {
	if q.NumHooks() == 0 {
		return
	}

	q.InvokeHook(hooking.HookCtx{
		Domain: q,
		Pos:    pos,
		Item:   item,
		Detail: detail,
	})
}
