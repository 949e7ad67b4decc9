package hooking

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("BackTraceTracer", func() {
	var (
		t *BackTraceTracer
	)

	BeforeEach(func() {
		t = NewBackTraceTracer()
	})

	It("should trace a single task", func() {
		t.StartTask(TaskStart{ID: "1"})

		Expect(t.Pending()).To(HaveLen(1))
		Expect(t.Pending()[0].ParentID).To(Equal(""))
	})

	It("should list pending tasks in ID order", func() {
		t.StartTask(TaskStart{ID: "3"})
		t.StartTask(TaskStart{ID: "1"})
		t.StartTask(TaskStart{ID: "2", ParentID: "1"})

		ids := []string{}
		for _, task := range t.Pending() {
			ids = append(ids, task.ID)
		}

		Expect(ids).To(Equal([]string{"1", "2", "3"}))
	})

	It("should end tasks", func() {
		t.StartTask(TaskStart{ID: "1"})
		t.StartTask(TaskStart{ID: "2", ParentID: "1"})
		t.StartTask(TaskStart{ID: "3", ParentID: "2"})

		t.EndTask(TaskEnd{ID: "3"})
		t.EndTask(TaskEnd{ID: "2"})
		t.EndTask(TaskEnd{ID: "unknown"})

		Expect(t.Pending()).To(HaveLen(1))
		Expect(t.Pending()[0].ID).To(Equal("1"))
	})

	It("should follow parents", func() {
		t.StartTask(TaskStart{ID: "1"})
		t.StartTask(TaskStart{ID: "2", ParentID: "1"})
		t.StartTask(TaskStart{ID: "3", ParentID: "2"})

		trace := t.BackTrace("3")

		Expect(trace).To(HaveLen(3))
		Expect(trace[0].ID).To(Equal("3"))
		Expect(trace[2].ID).To(Equal("1"))
		Expect(t.BackTrace("4")).To(BeNil())
	})

	It("should stop at a parent cycle", func() {
		t.StartTask(TaskStart{ID: "1", ParentID: "2"})
		t.StartTask(TaskStart{ID: "2", ParentID: "1"})

		Expect(t.BackTrace("1")).To(HaveLen(3))
	})

	It("should be driven by hooks", func() {
		t.Func(HookCtx{Pos: HookPosTaskStart, Item: TaskStart{ID: "1"}})
		Expect(t.Pending()).To(HaveLen(1))

		t.Func(HookCtx{Pos: HookPosTaskEnd, Item: TaskEnd{ID: "1"}})
		Expect(t.Pending()).To(BeEmpty())
	})
})
