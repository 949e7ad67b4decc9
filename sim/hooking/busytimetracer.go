package hooking

import (
	"sort"
	"sync"
)

type interval struct {
	start, end float64
}

// BusyTimeTracer traces the time that a domain is processing a kind of task.
// If task processing time overlaps, the overlapped time is only counted once.
// With a single server the traced service tasks never overlap, but the tracer
// does not rely on that.
type BusyTimeTracer struct {
	timeTeller TimeTeller
	filter     TaskFilter

	lock     sync.Mutex
	inflight map[string]float64
	closed   []interval
	busyTime float64
}

// NewBusyTimeTracer creates a new BusyTimeTracer. A nil filter accepts every
// task.
func NewBusyTimeTracer(
	timeTeller TimeTeller,
	filter TaskFilter,
) *BusyTimeTracer {
	return &BusyTimeTracer{
		timeTeller: timeTeller,
		filter:     filter,
		inflight:   make(map[string]float64),
	}
}

// Func records the start end of a task.
func (t *BusyTimeTracer) Func(ctx HookCtx) {
	switch ctx.Pos {
	case HookPosTaskStart:
		t.StartTask(ctx.Item.(TaskStart))
	case HookPosTaskEnd:
		t.EndTask(ctx.Item.(TaskEnd))
	}
}

// BusyTime returns the total time has been spent on a certain type of tasks.
// Tasks that are still running are not included.
func (t *BusyTimeTracer) BusyTime() float64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.collapse()

	return t.busyTime
}

// Utilization returns the busy time as a fraction of elapsed. It returns 0
// when elapsed is not positive.
func (t *BusyTimeTracer) Utilization(elapsed float64) float64 {
	if elapsed <= 0 {
		return 0
	}

	return t.BusyTime() / elapsed
}

// StartTask records the task start time
func (t *BusyTimeTracer) StartTask(taskStart TaskStart) {
	if t.filter != nil && !t.filter(taskStart) {
		return
	}

	now := t.timeTeller.Now()

	t.lock.Lock()
	t.inflight[taskStart.ID] = now
	t.lock.Unlock()
}

// EndTask records the end of the task
func (t *BusyTimeTracer) EndTask(taskEnd TaskEnd) {
	now := t.timeTeller.Now()

	t.lock.Lock()
	defer t.lock.Unlock()

	start, ok := t.inflight[taskEnd.ID]
	if !ok {
		return
	}

	delete(t.inflight, taskEnd.ID)
	t.closed = append(t.closed, interval{start: start, end: now})
}

// TerminateAllTasks will mark all the tasks as completed.
func (t *BusyTimeTracer) TerminateAllTasks() {
	now := t.timeTeller.Now()

	t.lock.Lock()
	defer t.lock.Unlock()

	for id, start := range t.inflight {
		t.closed = append(t.closed, interval{start: start, end: now})
		delete(t.inflight, id)
	}
}

// collapse merges the closed intervals and folds every merged interval that
// ends before the earliest in-flight task started into busyTime.
func (t *BusyTimeTracer) collapse() {
	if len(t.closed) == 0 {
		return
	}

	horizon, hasInflight := t.earliestInflightStart()

	sort.Slice(t.closed, func(i, j int) bool {
		return t.closed[i].start < t.closed[j].start
	})

	merged := make([]interval, 0, len(t.closed))

	for _, iv := range t.closed {
		if n := len(merged); n > 0 && iv.start <= merged[n-1].end {
			if iv.end > merged[n-1].end {
				merged[n-1].end = iv.end
			}

			continue
		}

		merged = append(merged, iv)
	}

	var kept []interval

	for _, iv := range merged {
		if hasInflight && iv.end >= horizon {
			kept = append(kept, iv)
			continue
		}

		t.busyTime += iv.end - iv.start
	}

	t.closed = kept
}

func (t *BusyTimeTracer) earliestInflightStart() (float64, bool) {
	found := false
	earliest := 0.0

	for _, start := range t.inflight {
		if !found || start < earliest {
			earliest = start
			found = true
		}
	}

	return earliest, found
}
