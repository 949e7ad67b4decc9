package hooking

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("TotalAvgTimeTracer", func() {
	var (
		timeTeller *stubTimeTeller
		t          *TotalAvgTimeTracer
	)

	BeforeEach(func() {
		timeTeller = &stubTimeTeller{}
		t = NewAverageTimeTracer(timeTeller, KindFilter(TaskKindService))
	})

	It("should report zero before any task ends", func() {
		Expect(t.AverageTime()).To(Equal(0.0))
		Expect(t.TotalCount()).To(Equal(uint64(0)))
	})

	It("should average completed tasks", func() {
		timeTeller.now = 1
		t.StartTask(TaskStart{ID: "1", Kind: TaskKindService})
		timeTeller.now = 4
		t.EndTask(TaskEnd{ID: "1"})

		timeTeller.now = 4
		t.StartTask(TaskStart{ID: "2", Kind: TaskKindService})
		timeTeller.now = 9
		t.EndTask(TaskEnd{ID: "2"})

		Expect(t.TotalCount()).To(Equal(uint64(2)))
		Expect(t.TotalTime()).To(Equal(8.0))
		Expect(t.AverageTime()).To(Equal(4.0))
	})

	It("should ignore filtered tasks", func() {
		timeTeller.now = 1
		t.Func(HookCtx{
			Pos:  HookPosTaskStart,
			Item: TaskStart{ID: "1.wait", Kind: TaskKindWait},
		})
		timeTeller.now = 5
		t.Func(HookCtx{Pos: HookPosTaskEnd, Item: TaskEnd{ID: "1.wait"}})

		Expect(t.TotalCount()).To(Equal(uint64(0)))
	})

	It("should ignore ends of unknown tasks", func() {
		t.EndTask(TaskEnd{ID: "missing"})

		Expect(t.TotalCount()).To(Equal(uint64(0)))
	})
})
