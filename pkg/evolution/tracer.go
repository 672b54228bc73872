package evolution

import (
	"sync"
	"time"
)

// TraceCollector is the single-writer, multi-reader append-only trace
// log: the agent loop is the only writer, the Evolution Manager the only
// reader. Cleanup replaces the backing slice atomically under the lock
// rather than mutating in place, so concurrent readers never observe a
// partially-trimmed log.
type TraceCollector struct {
	mu     sync.Mutex
	traces []ExecutionTrace
}

// NewTraceCollector constructs an empty, in-memory TraceCollector.
func NewTraceCollector() *TraceCollector {
	return &TraceCollector{}
}

// Record appends one trace. If Timestamp is zero it is stamped with now.
func (c *TraceCollector) Record(t ExecutionTrace) {
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.traces = append(c.traces, t)
}

// TraceCount reports the number of traces currently retained.
func (c *TraceCollector) TraceCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.traces)
}

// RecentTraces returns every trace newer than maxAge. maxAge <= 0 returns
// every retained trace (no age filter).
func (c *TraceCollector) RecentTraces(maxAge time.Duration) []ExecutionTrace {
	c.mu.Lock()
	defer c.mu.Unlock()

	if maxAge <= 0 {
		out := make([]ExecutionTrace, len(c.traces))
		copy(out, c.traces)
		return out
	}

	cutoff := time.Now().Add(-maxAge)
	var out []ExecutionTrace
	for _, t := range c.traces {
		if t.Timestamp.After(cutoff) {
			out = append(out, t)
		}
	}
	return out
}

// TracesByTask returns every trace whose TaskDescription, normalized to
// lowercase, equals task.
func (c *TraceCollector) TracesByTask(task string) []ExecutionTrace {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []ExecutionTrace
	for _, t := range c.traces {
		if normalizeTask(t.TaskDescription) == normalizeTask(task) {
			out = append(out, t)
		}
	}
	return out
}

// CleanupOldTraces keeps the newest keepCount traces (by append order)
// and reports how many were removed.
func (c *TraceCollector) CleanupOldTraces(keepCount int) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.traces) <= keepCount {
		return 0
	}
	removed := len(c.traces) - keepCount
	trimmed := make([]ExecutionTrace, keepCount)
	copy(trimmed, c.traces[removed:])
	c.traces = trimmed
	return removed
}
