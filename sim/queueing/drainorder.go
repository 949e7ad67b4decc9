package queueing

import (
	"fmt"
	"strings"
)

// DrainOrder decides in which order the processes of one chain are serviced.
// Chains themselves are always serviced oldest first.
type DrainOrder string

const (
	// FIFO services the processes of a chain in arrival order.
	FIFO DrainOrder = "fifo"

	// LIFO services the most recently inserted process of a chain first.
	LIFO DrainOrder = "lifo"
)

// ParseDrainOrder converts a case-insensitive name into a DrainOrder. An
// empty name selects FIFO.
func ParseDrainOrder(name string) (DrainOrder, error) {
	switch DrainOrder(strings.ToLower(strings.TrimSpace(name))) {
	case FIFO, "":
		return FIFO, nil
	case LIFO:
		return LIFO, nil
	default:
		return "", fmt.Errorf("unknown drain order %q", name)
	}
}

// Valid tells if the order is one of the known orders.
func (o DrainOrder) Valid() bool {
	return o == FIFO || o == LIFO
}
