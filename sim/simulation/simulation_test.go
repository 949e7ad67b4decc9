package simulation

import (
	"context"
	"errors"
	"strconv"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sarchlab/chainsim/sim/hooking"
	"github.com/sarchlab/chainsim/sim/queueing"
	"github.com/sarchlab/chainsim/sim/timing"
)

type serviceRecorder struct {
	ids  []string
	seqs []uint64
}

func (r *serviceRecorder) Func(ctx hooking.HookCtx) {
	if ctx.Pos != HookPosServiceStart {
		return
	}

	r.ids = append(r.ids, ctx.Item.(queueing.Process).ID())
	r.seqs = append(r.seqs, ctx.Detail.(uint64))
}

var _ = Describe("Simulation", func() {
	var cfg Config

	BeforeEach(func() {
		cfg = DefaultConfig()
		cfg.ProcessCount = 60
	})

	build := func(b Builder) *Simulation {
		s, err := b.
			WithConfig(cfg).
			WithClock(timing.NewWallClock(20 * time.Microsecond)).
			WithSeed(42).
			Build("Sim")
		Expect(err).NotTo(HaveOccurred())

		return s
	}

	It("should refuse an invalid configuration", func() {
		cfg.BufferSize = 0

		s, err := MakeBuilder().WithConfig(cfg).Build("Sim")

		Expect(s).To(BeNil())
		Expect(err).To(MatchError(ErrInvalidConfig))
	})

	It("should attach hooks to the queue and both workers", func() {
		hook := &serviceRecorder{}

		s := build(MakeBuilder().WithHook(hook))

		Expect(s.Queue().Hooks()).To(ContainElement(hook))
		Expect(s.Generator().Hooks()).To(ContainElement(hook))
		Expect(s.Server().Hooks()).To(ContainElement(hook))
		Expect(s.Queue().Name()).To(Equal("Sim.Queue"))
		Expect(s.ID()).NotTo(BeEmpty())
	})

	It("should not share hooks between builders", func() {
		base := MakeBuilder().WithHook(&serviceRecorder{})
		a := base.WithHook(&serviceRecorder{})
		b := base.WithHook(&serviceRecorder{})

		Expect(a.hooks[1]).NotTo(BeIdenticalTo(b.hooks[1]))
		Expect(a.hooks).To(HaveLen(2))
		Expect(b.hooks).To(HaveLen(2))
	})

	It("should service every process in arrival order", func() {
		recorder := &serviceRecorder{}
		s := build(MakeBuilder().WithHook(recorder))

		result, err := s.Run(context.Background())

		Expect(err).NotTo(HaveOccurred())
		Expect(s.Generator().State()).To(Equal(GeneratorFinished))
		Expect(s.Server().State()).To(Equal(ServerTerminated))

		Expect(result.RunID).To(Equal(s.ID()))
		Expect(result.Generated).To(Equal(uint64(cfg.ProcessCount)))
		Expect(result.Serviced).To(Equal(uint64(cfg.ProcessCount)))
		Expect(result.Report.ProcessCount).To(Equal(uint64(cfg.ProcessCount)))
		Expect(result.Report.ChainsExtracted).
			To(Equal(result.Report.ChainsCreated))
		Expect(result.Report.PeakChainCount).To(BeNumerically(">=", 1))
		Expect(result.Report.AverageChainCount).
			To(BeNumerically("<=", float64(result.Report.PeakChainCount)))

		Expect(result.AverageServiceTime).To(BeNumerically(">=", 2))
		Expect(result.AverageWaitTime).To(BeNumerically(">=", 0))
		Expect(result.Utilization).To(BeNumerically(">", 0))
		Expect(result.Utilization).To(BeNumerically("<=", 1))
		Expect(result.Elapsed).To(BeNumerically(">", 0))
		Expect(result.Unfinished).To(BeZero())

		Expect(recorder.ids).To(HaveLen(cfg.ProcessCount))
		for i, id := range recorder.ids {
			Expect(id).To(Equal(strconv.Itoa(i + 1)))
		}
	})

	It("should keep chains in order when draining newest first", func() {
		cfg.DrainOrder = queueing.LIFO
		recorder := &serviceRecorder{}
		s := build(MakeBuilder().WithHook(recorder))

		_, err := s.Run(context.Background())

		Expect(err).NotTo(HaveOccurred())
		Expect(recorder.seqs).To(HaveLen(cfg.ProcessCount))
		for i := 1; i < len(recorder.seqs); i++ {
			Expect(recorder.seqs[i]).To(BeNumerically(">=", recorder.seqs[i-1]))
		}
	})

	It("should stop both workers when one fails", func() {
		s := build(MakeBuilder().WithHook(hooking.NewHookFunc(
			func(ctx hooking.HookCtx) {
				if ctx.Pos == HookPosServiceEnd {
					panic("server down")
				}
			})))

		result, err := s.Run(context.Background())

		var opErr *OpError
		Expect(errors.As(err, &opErr)).To(BeTrue())
		Expect(opErr.Worker).To(Equal("Sim.Server"))
		Expect(opErr.Op).To(Equal(OpService))
		Expect(result.Generated).To(BeNumerically("<", cfg.ProcessCount))
		Expect(s.Generator().State()).To(Equal(GeneratorRunning))
	})

	It("should summarize the run while it is in progress", func() {
		s := build(MakeBuilder())

		stop := make(chan struct{})
		polled := make(chan int, 1)
		go func() {
			defer GinkgoRecover()

			n := 0
			for {
				select {
				case <-stop:
					polled <- n
					return
				default:
				}

				r := s.Result()
				Expect(r.Serviced).To(BeNumerically("<=", cfg.ProcessCount))
				Expect(r.Elapsed).To(BeNumerically(">=", 0))
				n++

				time.Sleep(10 * time.Microsecond)
			}
		}()

		result, err := s.Run(context.Background())
		close(stop)

		Expect(err).NotTo(HaveOccurred())
		Expect(result.Serviced).To(Equal(uint64(cfg.ProcessCount)))
		Eventually(polled).Should(Receive(BeNumerically(">", 0)))
	})

	It("should count the interrupted service as busy time", func() {
		core, logs := observer.New(zapcore.DebugLevel)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		s := build(MakeBuilder().
			WithLogger(zap.New(core)).
			WithHook(hooking.NewHookFunc(func(ctx hooking.HookCtx) {
				if ctx.Pos == HookPosServiceStart {
					cancel()
				}
			})))

		result, err := s.Run(ctx)

		Expect(err).To(MatchError(context.Canceled))
		Expect(result.Serviced).To(BeZero())
		Expect(result.Utilization).To(BeNumerically(">", 0))
		Expect(result.Unfinished).To(BeNumerically(">=", 1))

		var traces []interface{}
		for _, e := range logs.FilterMessage("unfinished task").AllUntimed() {
			fields := e.ContextMap()
			if fields["kind"] == hooking.TaskKindService {
				traces = append(traces, fields["trace"])
			}
		}
		Expect(traces).To(HaveLen(1))
		Expect(traces[0]).To(Equal([]interface{}{"1@service"}))
	})

	It("should fill the head chain when asked to", func() {
		cfg.ArrivalPolicy = queueing.ArrivalHead
		recorder := &serviceRecorder{}
		s := build(MakeBuilder().WithHook(recorder))

		result, err := s.Run(context.Background())

		Expect(err).NotTo(HaveOccurred())
		Expect(s.Queue().ArrivalPolicy()).To(Equal(queueing.ArrivalHead))
		Expect(result.Serviced).To(Equal(uint64(cfg.ProcessCount)))
		Expect(result.Report.ChainsExtracted).
			To(Equal(result.Report.ChainsCreated))
		for i := 1; i < len(recorder.seqs); i++ {
			Expect(recorder.seqs[i]).To(BeNumerically(">=", recorder.seqs[i-1]))
		}
	})

	It("should stop when the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		s := build(MakeBuilder())

		_, err := s.Run(ctx)

		Expect(err).To(MatchError(context.Canceled))
	})
})
