package queueing

import (
	"fmt"
	"strings"
)

// ArrivalPolicy decides which buffered chain receives a new process. A new
// chain is always appended to the tail when the receiving chain is missing or
// full.
type ArrivalPolicy string

const (
	// ArrivalTail fills the most recently created chain. Every chain except
	// the tail one is full.
	ArrivalTail ArrivalPolicy = "tail"

	// ArrivalHead fills the oldest chain. Once the oldest chain is full,
	// every arrival gets a chain of its own until the server takes the oldest
	// chain away.
	ArrivalHead ArrivalPolicy = "head"
)

// ParseArrivalPolicy converts a case-insensitive name into an ArrivalPolicy.
// An empty name selects ArrivalTail.
func ParseArrivalPolicy(name string) (ArrivalPolicy, error) {
	switch ArrivalPolicy(strings.ToLower(strings.TrimSpace(name))) {
	case ArrivalTail, "":
		return ArrivalTail, nil
	case ArrivalHead:
		return ArrivalHead, nil
	default:
		return "", fmt.Errorf("unknown arrival policy %q", name)
	}
}

// Valid tells if the policy is one of the known policies.
func (p ArrivalPolicy) Valid() bool {
	return p == ArrivalTail || p == ArrivalHead
}
