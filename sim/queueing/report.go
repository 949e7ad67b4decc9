package queueing

import "fmt"

// OccupancyReport summarizes the occupancy of a queue.
type OccupancyReport struct {
	ProcessCount          uint64  `json:"process_count"`
	TotalOccupancySamples uint64  `json:"total_occupancy_samples"`
	PeakChainCount        int     `json:"peak_chain_count"`
	AverageChainCount     float64 `json:"average_chain_count"`
	ChainsCreated         uint64  `json:"chains_created"`
	ChainsExtracted       uint64  `json:"chains_extracted"`
}

// String renders the two-line final report.
func (r OccupancyReport) String() string {
	return fmt.Sprintf(
		"average chain count: %.3f\npeak chain count: %d",
		r.AverageChainCount, r.PeakChainCount,
	)
}

// ChainSnapshot describes one buffered chain.
type ChainSnapshot struct {
	Seq      uint64 `json:"seq"`
	Len      int    `json:"len"`
	Capacity int    `json:"capacity"`
}

// Snapshot is a point-in-time copy of a queue.
type Snapshot struct {
	Name   string          `json:"name"`
	Closed bool            `json:"closed"`
	Chains []ChainSnapshot `json:"chains"`
	Report OccupancyReport `json:"report"`
}
