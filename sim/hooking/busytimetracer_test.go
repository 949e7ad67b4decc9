package hooking

import (
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/gmeasure"
)

var _ = Describe("BusyTimeTracer", func() {
	var (
		timeTeller *stubTimeTeller
		t          *BusyTimeTracer
	)

	BeforeEach(func() {
		timeTeller = &stubTimeTeller{}

		t = NewBusyTimeTracer(timeTeller, nil)
	})

	It("should track busy time, one task", func() {
		timeTeller.now = 1
		t.StartTask(TaskStart{ID: "1"})

		timeTeller.now = 2
		t.EndTask(TaskEnd{ID: "1"})

		Expect(t.BusyTime()).To(Equal(1.0))
	})

	It("should track busy time, two tasks adjacent", func() {
		timeTeller.now = 1
		t.StartTask(TaskStart{ID: "1"})
		timeTeller.now = 2
		t.EndTask(TaskEnd{ID: "1"})

		timeTeller.now = 3
		t.StartTask(TaskStart{ID: "2"})
		timeTeller.now = 4
		t.EndTask(TaskEnd{ID: "2"})

		Expect(t.BusyTime()).To(Equal(2.0))
	})

	It("should track busy time, two tasks overlap", func() {
		timeTeller.now = 1
		t.StartTask(TaskStart{ID: "1"})

		timeTeller.now = 1.5
		t.StartTask(TaskStart{ID: "2"})

		timeTeller.now = 2
		t.EndTask(TaskEnd{ID: "1"})

		timeTeller.now = 2.5
		t.EndTask(TaskEnd{ID: "2"})

		Expect(t.BusyTime()).To(Equal(1.5))
	})

	It("should not count an interval twice while a task is in flight", func() {
		timeTeller.now = 1
		t.StartTask(TaskStart{ID: "1"})
		timeTeller.now = 1.5
		t.StartTask(TaskStart{ID: "2"})
		timeTeller.now = 2
		t.EndTask(TaskEnd{ID: "2"})
		timeTeller.now = 2.5
		t.StartTask(TaskStart{ID: "3"})

		Expect(t.BusyTime()).To(Equal(0.0))

		timeTeller.now = 3
		t.EndTask(TaskEnd{ID: "1"})
		timeTeller.now = 4
		t.EndTask(TaskEnd{ID: "3"})

		Expect(t.BusyTime()).To(Equal(3.0))
	})

	It("should be able to terminate all the tasks", func() {
		timeTeller.now = 1
		t.StartTask(TaskStart{ID: "1"})
		timeTeller.now = 1.1
		t.StartTask(TaskStart{ID: "2"})
		timeTeller.now = 1.9
		t.StartTask(TaskStart{ID: "3"})
		timeTeller.now = 2.1
		t.EndTask(TaskEnd{ID: "3"})

		timeTeller.now = 3.5
		t.TerminateAllTasks()

		Expect(t.BusyTime()).To(BeNumerically("~", 2.5, 0.01))
	})

	It("should report utilization", func() {
		timeTeller.now = 0
		t.StartTask(TaskStart{ID: "1"})
		timeTeller.now = 3
		t.EndTask(TaskEnd{ID: "1"})

		Expect(t.Utilization(4)).To(Equal(0.75))
		Expect(t.Utilization(0)).To(Equal(0.0))
	})

	It("measure busy time tracer", func() {
		experiment := gmeasure.NewExperiment("Busy Time Tracer Performance")
		AddReportEntry(experiment.Name, experiment)

		experiment.MeasureDuration("runtime", func() {
			for i := 0; i < 10000; i++ {
				taskID := fmt.Sprintf("%d", i)

				timeTeller.now = float64(i * 2)
				t.StartTask(TaskStart{
					ID: taskID,
				})

				timeTeller.now = float64(i*2 + 1)
				t.EndTask(TaskEnd{
					ID: taskID,
				})
			}

			Expect(t.BusyTime()).To(BeNumerically("~", 10000, 0.01))
		})
	})
})
