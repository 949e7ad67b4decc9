package simulation

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/sarchlab/chainsim/sim/hooking"
	"github.com/sarchlab/chainsim/sim/queueing"
	"github.com/sarchlab/chainsim/sim/timing"
)

// Server lifecycle states.
const (
	ServerPolling    = "polling"
	ServerServicing  = "servicing"
	ServerDraining   = "draining"
	ServerTerminated = "terminated"

	eventAcquire   = "acquire"
	eventRelease   = "release"
	eventComplete  = "complete"
	eventTerminate = "terminate"
)

// HookPosServiceStart marks when the server starts servicing a process. The
// item is the Process and the detail is the sequence number of its chain.
var HookPosServiceStart = &hooking.HookPos{Name: "Service Start"}

// HookPosServiceEnd marks when the server finishes servicing a process. The
// item is the Process and the detail is the sequence number of its chain.
var HookPosServiceEnd = &hooking.HookPos{Name: "Service End"}

// Server takes chains out of the queue one at a time and services every
// process of a chain before taking the next one.
type Server struct {
	hooking.HookableBase

	name   string
	order  queueing.DrainOrder
	queue  *queueing.BufferedQueue
	clock  timing.Clock
	logger *zap.Logger

	state    *fsm.FSM
	serviced atomic.Uint64
}

func newServer(
	name string,
	order queueing.DrainOrder,
	queue *queueing.BufferedQueue,
	clock timing.Clock,
	logger *zap.Logger,
) *Server {
	s := &Server{
		name:   name,
		order:  order,
		queue:  queue,
		clock:  clock,
		logger: logger,
	}

	s.state = fsm.NewFSM(
		ServerPolling,
		fsm.Events{
			{Name: eventAcquire, Src: []string{ServerPolling}, Dst: ServerServicing},
			{Name: eventRelease, Src: []string{ServerServicing}, Dst: ServerPolling},
			{Name: eventComplete, Src: []string{ServerPolling}, Dst: ServerDraining},
			{Name: eventTerminate, Src: []string{ServerDraining}, Dst: ServerTerminated},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				s.logger.Debug("server state changed",
					zap.String("worker", s.name),
					zap.String("from", e.Src),
					zap.String("to", e.Dst))
			},
		},
	)

	return s
}

// Name returns the name of the server.
func (s *Server) Name() string {
	return s.name
}

// State returns the lifecycle state of the server.
func (s *Server) State() string {
	return s.state.Current()
}

// Serviced returns the number of processes serviced so far.
func (s *Server) Serviced() uint64 {
	return s.serviced.Load()
}

// Run services chains until the queue is closed and drained. It returns the
// context error if ctx is done first. A panic raised while extracting or
// servicing is returned as an *OpError.
func (s *Server) Run(ctx context.Context) (err error) {
	op := OpExtract

	defer func() {
		if r := recover(); r != nil {
			err = &OpError{Worker: s.name, Op: op, Err: recoveredError(r)}
		}
	}()

	for {
		chain, err := s.queue.Next(ctx)
		if errors.Is(err, queueing.ErrDrained) {
			return s.terminate(ctx)
		}

		if err != nil {
			return err
		}

		if err := s.state.Event(ctx, eventAcquire); err != nil {
			return err
		}

		op = OpService
		if err := s.serviceChain(ctx, chain); err != nil {
			return err
		}
		op = OpExtract

		if err := s.state.Event(ctx, eventRelease); err != nil {
			return err
		}
	}
}

func (s *Server) terminate(ctx context.Context) error {
	if err := s.state.Event(ctx, eventComplete); err != nil {
		return err
	}

	return s.state.Event(ctx, eventTerminate)
}

// serviceChain runs outside the queue lock. The chain is owned by the server
// once it is extracted.
func (s *Server) serviceChain(ctx context.Context, chain *queueing.Chain) error {
	for _, p := range chain.Drain(s.order) {
		if err := s.service(ctx, p, chain.Seq()); err != nil {
			return err
		}
	}

	return nil
}

func (s *Server) service(
	ctx context.Context,
	p queueing.Process,
	seq uint64,
) error {
	s.invokeHook(hooking.HookPosTaskEnd, hooking.TaskEnd{ID: waitTaskID(p)}, nil)
	s.invokeHook(hooking.HookPosTaskStart, hooking.TaskStart{
		ID:       serviceTaskID(p),
		ParentID: waitTaskID(p),
		Kind:     hooking.TaskKindService,
		What:     p.ID(),
		Where:    s.name,
	}, nil)
	s.invokeHook(HookPosServiceStart, p, seq)

	if err := s.clock.Sleep(ctx, p.ServiceDuration()); err != nil {
		return err
	}

	s.serviced.Add(1)

	s.invokeHook(hooking.HookPosTaskEnd, hooking.TaskEnd{ID: serviceTaskID(p)}, nil)
	s.invokeHook(HookPosServiceEnd, p, seq)

	return nil
}

func (s *Server) invokeHook(
	pos *hooking.HookPos,
	item, detail interface{},
) {
	if s.NumHooks() == 0 {
		return
	}

	s.InvokeHook(hooking.HookCtx{
		Domain: s,
		Pos:    pos,
		Item:   item,
		Detail: detail,
	})
}
