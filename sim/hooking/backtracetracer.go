package hooking

import (
	"sort"
	"sync"
)

// BackTraceTracer records the tasks that have started but not ended. When a
// run stops early, the pending tasks tell which processes were still waiting
// or being serviced.
type BackTraceTracer struct {
	lock    sync.Mutex
	pending map[string]TaskStart
}

// NewBackTraceTracer creates a new BackTraceTracer
func NewBackTraceTracer() *BackTraceTracer {
	return &BackTraceTracer{
		pending: make(map[string]TaskStart),
	}
}

// Func records the start end of a task.
func (t *BackTraceTracer) Func(ctx HookCtx) {
	switch ctx.Pos {
	case HookPosTaskStart:
		t.StartTask(ctx.Item.(TaskStart))
	case HookPosTaskEnd:
		t.EndTask(ctx.Item.(TaskEnd))
	}
}

// StartTask marks a task as pending.
func (t *BackTraceTracer) StartTask(taskStart TaskStart) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.pending[taskStart.ID] = taskStart
}

// EndTask removes a task from the pending ones.
func (t *BackTraceTracer) EndTask(taskEnd TaskEnd) {
	t.lock.Lock()
	defer t.lock.Unlock()

	delete(t.pending, taskEnd.ID)
}

// Pending returns the pending tasks ordered by ID.
func (t *BackTraceTracer) Pending() []TaskStart {
	t.lock.Lock()
	defer t.lock.Unlock()

	tasks := make([]TaskStart, 0, len(t.pending))
	for _, task := range t.pending {
		tasks = append(tasks, task)
	}

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].ID < tasks[j].ID
	})

	return tasks
}

// BackTrace follows the parent links from taskID through the pending tasks.
// The first element is the task itself. It returns nil if the task is not
// pending.
func (t *BackTraceTracer) BackTrace(taskID string) []TaskStart {
	t.lock.Lock()
	defer t.lock.Unlock()

	var trace []TaskStart

	task, ok := t.pending[taskID]
	for ok && len(trace) <= len(t.pending) {
		trace = append(trace, task)
		task, ok = t.pending[task.ParentID]
	}

	return trace
}
