package queueing

import (
	"log"
)

// A Chain is a bounded group of processes. It is the unit that the generator
// side hands over to the server.
type Chain struct {
	seq      uint64
	capacity int
	items    []Process
}

func newChain(seq uint64, capacity int) *Chain {
	return &Chain{
		seq:      seq,
		capacity: capacity,
		items:    make([]Process, 0, capacity),
	}
}

// Seq returns the creation sequence number of the chain. The first chain of a
// queue has Seq 1.
func (c *Chain) Seq() uint64 {
	return c.seq
}

// Capacity returns the maximum number of processes the chain can hold.
func (c *Chain) Capacity() int {
	return c.capacity
}

// Len returns the number of processes in the chain.
func (c *Chain) Len() int {
	return len(c.items)
}

// CanPush tells if the chain has room for one more process.
func (c *Chain) CanPush() bool {
	return len(c.items) < c.capacity
}

// Full tells if the chain reached its capacity.
func (c *Chain) Full() bool {
	return !c.CanPush()
}

// Items returns a copy of the processes in insertion order.
func (c *Chain) Items() []Process {
	items := make([]Process, len(c.items))
	copy(items, c.items)

	return items
}

func (c *Chain) push(p Process) {
	if len(c.items) >= c.capacity {
		log.Panic("chain overflow")
	}

	c.items = append(c.items, p)
}

// Drain removes and returns all the processes in the given order. Every
// process is returned exactly once; draining an empty chain returns nil.
func (c *Chain) Drain(order DrainOrder) []Process {
	if !order.Valid() {
		log.Panicf("unknown drain order %q", order)
	}

	if len(c.items) == 0 {
		return nil
	}

	drained := c.items
	c.items = nil

	if order == LIFO {
		for i, j := 0, len(drained)-1; i < j; i, j = i+1, j-1 {
			drained[i], drained[j] = drained[j], drained[i]
		}
	}

	return drained
}
