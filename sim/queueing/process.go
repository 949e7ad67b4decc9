package queueing

import (
	"log"
)

// A Process is a unit of simulated work. It only carries how long the server
// needs to service it. Processes are values and never change after creation.
type Process struct {
	id              string
	serviceDuration int
	arrivalTime     float64
}

// NewProcess creates a process that takes serviceDuration time units to
// service and that arrived at arrivalTime.
func NewProcess(id string, serviceDuration int, arrivalTime float64) Process {
	if serviceDuration < 0 {
		log.Panicf("service duration must not be negative, got %d",
			serviceDuration)
	}

	return Process{
		id:              id,
		serviceDuration: serviceDuration,
		arrivalTime:     arrivalTime,
	}
}

// ID returns the ID of the process.
func (p Process) ID() string {
	return p.id
}

// ServiceDuration returns the number of time units the process needs.
func (p Process) ServiceDuration() int {
	return p.serviceDuration
}

// ArrivalTime returns the time at which the process was generated.
func (p Process) ArrivalTime() float64 {
	return p.arrivalTime
}
