// Package simulation runs a process generator and a single server
// concurrently against a chain-buffered queue.
package simulation

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/xid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sarchlab/chainsim/sampling"
	"github.com/sarchlab/chainsim/sim/hooking"
	"github.com/sarchlab/chainsim/sim/queueing"
	"github.com/sarchlab/chainsim/sim/timing"
)

// Result summarizes a finished run. Times are in clock units.
type Result struct {
	RunID              string                   `json:"run_id"`
	Report             queueing.OccupancyReport `json:"report"`
	Generated          uint64                   `json:"generated"`
	Serviced           uint64                   `json:"serviced"`
	AverageWaitTime    float64                  `json:"average_wait_time"`
	AverageServiceTime float64                  `json:"average_service_time"`
	Utilization        float64                  `json:"utilization"`
	Elapsed            float64                  `json:"elapsed"`
	Unfinished         int                      `json:"unfinished"`
}

// Simulation owns the queue and the two workers of one run.
type Simulation struct {
	id     string
	cfg    Config
	clock  timing.Clock
	logger *zap.Logger

	queue     *queueing.BufferedQueue
	generator *Generator
	server    *Server

	waitTracer    *hooking.TotalAvgTimeTracer
	serviceTracer *hooking.TotalAvgTimeTracer
	busyTracer    *hooking.BusyTimeTracer
	backTracer    *hooking.BackTraceTracer

	lock      sync.Mutex
	startTime float64
}

// ID returns the unique ID of the run.
func (s *Simulation) ID() string {
	return s.id
}

// Config returns the parameters of the run.
func (s *Simulation) Config() Config {
	return s.cfg
}

// Clock returns the clock that drives the run.
func (s *Simulation) Clock() timing.Clock {
	return s.clock
}

// Queue returns the shared queue.
func (s *Simulation) Queue() *queueing.BufferedQueue {
	return s.queue
}

// Generator returns the process generator.
func (s *Simulation) Generator() *Generator {
	return s.generator
}

// Server returns the server.
func (s *Simulation) Server() *Server {
	return s.server
}

// Run starts both workers and waits for them. The first worker failure
// cancels the other one and is returned. The result is filled in either way.
func (s *Simulation) Run(ctx context.Context) (Result, error) {
	s.lock.Lock()
	s.startTime = s.clock.Now()
	s.lock.Unlock()

	s.logger.Info("simulation started",
		zap.String("run", s.id),
		zap.Int("buffer_size", s.cfg.BufferSize),
		zap.Int("processes", s.cfg.ProcessCount),
		zap.String("drain_order", string(s.cfg.DrainOrder)))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.generator.Run(gctx) })
	g.Go(func() error { return s.server.Run(gctx) })

	err := g.Wait()
	if err != nil {
		s.busyTracer.TerminateAllTasks()
	}

	result := s.Result()

	if err != nil {
		s.logger.Error("simulation failed",
			zap.String("run", s.id),
			zap.Int("unfinished", result.Unfinished),
			zap.Error(err))
		s.logUnfinishedTasks()

		return result, err
	}

	s.logger.Info("simulation finished",
		zap.String("run", s.id),
		zap.Float64("average_chain_count", result.Report.AverageChainCount),
		zap.Int("peak_chain_count", result.Report.PeakChainCount),
		zap.Float64("average_wait_time", result.AverageWaitTime),
		zap.Float64("utilization", result.Utilization))

	return result, nil
}

func (s *Simulation) logUnfinishedTasks() {
	for _, task := range s.backTracer.Pending() {
		trace := s.backTracer.BackTrace(task.ID)
		ids := make([]string, 0, len(trace))

		for _, t := range trace {
			ids = append(ids, t.ID)
		}

		s.logger.Debug("unfinished task",
			zap.String("kind", task.Kind),
			zap.String("process", task.What),
			zap.String("where", task.Where),
			zap.Strings("trace", ids))
	}
}

// Result summarizes the run so far. It is safe to call while the run is in
// progress. After a failed run, the service time of the interrupted process
// counts as busy time.
func (s *Simulation) Result() Result {
	s.lock.Lock()
	startTime := s.startTime
	s.lock.Unlock()

	elapsed := s.clock.Now() - startTime

	return Result{
		RunID:              s.id,
		Report:             s.queue.Report(),
		Generated:          s.generator.Generated(),
		Serviced:           s.server.Serviced(),
		AverageWaitTime:    s.waitTracer.AverageTime(),
		AverageServiceTime: s.serviceTracer.AverageTime(),
		Utilization:        s.busyTracer.Utilization(elapsed),
		Elapsed:            elapsed,
		Unfinished:         len(s.backTracer.Pending()),
	}
}

// Builder can build simulations.
type Builder struct {
	cfg      Config
	clock    timing.Clock
	arrivals sampling.Source
	services sampling.Source
	logger   *zap.Logger
	hooks    []hooking.Hook
}

// MakeBuilder creates a builder with the default configuration, a
// millisecond wall clock and unseeded uniform sources.
func MakeBuilder() Builder {
	return Builder{
		cfg: DefaultConfig(),
	}
}

// WithConfig sets the run parameters.
func (b Builder) WithConfig(cfg Config) Builder {
	b.cfg = cfg
	return b
}

// WithClock sets the clock.
func (b Builder) WithClock(clock timing.Clock) Builder {
	b.clock = clock
	return b
}

// WithArrivalSource sets the source of arrival intervals.
func (b Builder) WithArrivalSource(src sampling.Source) Builder {
	b.arrivals = src
	return b
}

// WithServiceSource sets the source of service times.
func (b Builder) WithServiceSource(src sampling.Source) Builder {
	b.services = src
	return b
}

// WithSeed sets both sources to uniform sources derived from seed.
func (b Builder) WithSeed(seed uint64) Builder {
	b.arrivals = sampling.NewUniformSource(seed)
	if seed == 0 {
		b.services = sampling.NewUniformSource(0)
	} else {
		b.services = sampling.NewUniformSource(seed + 1)
	}

	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(logger *zap.Logger) Builder {
	b.logger = logger
	return b
}

// WithHook adds a hook to the queue and to both workers.
func (b Builder) WithHook(hook hooking.Hook) Builder {
	b.hooks = append(b.hooks[:len(b.hooks):len(b.hooks)], hook)
	return b
}

// Build validates the configuration and creates a simulation.
func (b Builder) Build(name string) (*Simulation, error) {
	if err := b.cfg.Validate(); err != nil {
		return nil, err
	}

	b.fillDefaults()

	s := &Simulation{
		id:     xid.New().String(),
		cfg:    b.cfg,
		clock:  b.clock,
		logger: b.logger,
		queue:  queueing.NewBufferedQueue(name + ".Queue"),
	}

	if b.cfg.ArrivalPolicy != "" {
		s.queue.WithArrivalPolicy(b.cfg.ArrivalPolicy)
	}

	s.generator = newGenerator(name+".Generator", b.cfg, s.queue,
		b.clock, b.arrivals, b.services, b.logger)
	s.server = newServer(name+".Server", b.cfg.DrainOrder, s.queue,
		b.clock, b.logger)

	s.waitTracer = hooking.NewAverageTimeTracer(
		b.clock, hooking.KindFilter(hooking.TaskKindWait))
	s.serviceTracer = hooking.NewAverageTimeTracer(
		b.clock, hooking.KindFilter(hooking.TaskKindService))
	s.busyTracer = hooking.NewBusyTimeTracer(
		b.clock, hooking.KindFilter(hooking.TaskKindService))
	s.backTracer = hooking.NewBackTraceTracer()

	tracers := []hooking.Hook{
		s.waitTracer, s.serviceTracer, s.busyTracer, s.backTracer,
	}
	for _, t := range tracers {
		s.generator.AcceptHook(t)
		s.server.AcceptHook(t)
	}

	for _, h := range b.hooks {
		s.queue.AcceptHook(h)
		s.generator.AcceptHook(h)
		s.server.AcceptHook(h)
	}

	return s, nil
}

func (b *Builder) fillDefaults() {
	if b.clock == nil {
		b.clock = timing.NewWallClock(timing.DefaultUnit)
	}

	if b.arrivals == nil {
		b.arrivals = sampling.NewUniformSource(0)
	}

	if b.services == nil {
		b.services = sampling.NewUniformSource(0)
	}

	if b.logger == nil {
		b.logger = zap.NewNop()
	}
}

// String renders the result the way the command line prints it.
func (r Result) String() string {
	return fmt.Sprintf(
		"%s\naverage wait time: %.3f\naverage service time: %.3f\n"+
			"utilization: %.3f\nserviced: %d/%d",
		r.Report, r.AverageWaitTime, r.AverageServiceTime,
		r.Utilization, r.Serviced, r.Generated)
}
