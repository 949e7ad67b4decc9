package simulation

import (
	"context"
	"sync/atomic"

	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/sarchlab/chainsim/sampling"
	"github.com/sarchlab/chainsim/sim/hooking"
	"github.com/sarchlab/chainsim/sim/id"
	"github.com/sarchlab/chainsim/sim/queueing"
	"github.com/sarchlab/chainsim/sim/timing"
)

// Generator lifecycle states.
const (
	GeneratorRunning  = "running"
	GeneratorFinished = "finished"

	eventFinish = "finish"
)

// HookPosProcessArrive marks when the generator creates a process, right
// before the process is inserted. The item is the Process.
var HookPosProcessArrive = &hooking.HookPos{Name: "Process Arrive"}

// Generator creates processes at random intervals and inserts them into the
// queue. It closes the queue after the last insertion.
type Generator struct {
	hooking.HookableBase

	name     string
	cfg      Config
	queue    *queueing.BufferedQueue
	clock    timing.Clock
	arrivals sampling.Source
	services sampling.Source
	idGen    id.IDGenerator
	logger   *zap.Logger

	state     *fsm.FSM
	generated atomic.Uint64
}

func newGenerator(
	name string,
	cfg Config,
	queue *queueing.BufferedQueue,
	clock timing.Clock,
	arrivals, services sampling.Source,
	logger *zap.Logger,
) *Generator {
	g := &Generator{
		name:     name,
		cfg:      cfg,
		queue:    queue,
		clock:    clock,
		arrivals: arrivals,
		services: services,
		idGen:    id.NewIDGenerator(),
		logger:   logger,
	}

	g.state = fsm.NewFSM(
		GeneratorRunning,
		fsm.Events{
			{Name: eventFinish, Src: []string{GeneratorRunning}, Dst: GeneratorFinished},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				g.logger.Debug("generator state changed",
					zap.String("worker", g.name),
					zap.String("from", e.Src),
					zap.String("to", e.Dst))
			},
		},
	)

	return g
}

// Name returns the name of the generator.
func (g *Generator) Name() string {
	return g.name
}

// State returns the lifecycle state of the generator.
func (g *Generator) State() string {
	return g.state.Current()
}

// Generated returns the number of processes inserted so far.
func (g *Generator) Generated() uint64 {
	return g.generated.Load()
}

// Run generates the configured number of processes. It returns early with the
// context error if ctx is done while sleeping. A panic raised while
// generating or inserting is returned as an *OpError.
func (g *Generator) Run(ctx context.Context) (err error) {
	op := OpGenerate

	defer func() {
		if r := recover(); r != nil {
			err = &OpError{Worker: g.name, Op: op, Err: recoveredError(r)}
		}
	}()

	for i := 0; i < g.cfg.ProcessCount; i++ {
		interval := g.arrivals.IntRange(
			g.cfg.MinArrivalInterval, g.cfg.MaxArrivalInterval)
		if err := g.clock.Sleep(ctx, interval); err != nil {
			return err
		}

		duration := g.services.IntRange(
			g.cfg.MinServiceTime, g.cfg.MaxServiceTime)
		p := queueing.NewProcess(g.idGen.Generate(), duration, g.clock.Now())

		g.arrive(p)

		op = OpInsert
		g.queue.Insert(p, g.cfg.BufferSize)
		op = OpGenerate

		g.generated.Add(1)
	}

	g.queue.Close()

	return g.state.Event(ctx, eventFinish)
}

// arrive starts the wait task of p. It must run before the insertion, as the
// server may pick p up as soon as it is in the queue.
func (g *Generator) arrive(p queueing.Process) {
	if g.NumHooks() == 0 {
		return
	}

	g.InvokeHook(hooking.HookCtx{
		Domain: g,
		Pos:    HookPosProcessArrive,
		Item:   p,
	})

	g.InvokeHook(hooking.HookCtx{
		Domain: g,
		Pos:    hooking.HookPosTaskStart,
		Item: hooking.TaskStart{
			ID:    waitTaskID(p),
			Kind:  hooking.TaskKindWait,
			What:  p.ID(),
			Where: g.queue.Name(),
		},
	})
}

func waitTaskID(p queueing.Process) string {
	return p.ID() + "@wait"
}

func serviceTaskID(p queueing.Process) string {
	return p.ID() + "@service"
}
