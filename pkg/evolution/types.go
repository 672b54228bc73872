// Package evolution implements trace collection and crystallization: the
// Evolution Manager cycle that groups recent ExecutionTraces by task,
// promotes recurring successful patterns to a CrystallizationCandidate,
// and synthesizes a quarantine skill for the Immune System to admit or
// block. Grounded on test_evolution_manager.py's EvolutionManager
// contract and spec.md §4.12; no source for the manager/tracer themselves
// was retrieved, only their test suite, so the implementation here is
// built to satisfy that test's observable behavior directly.
package evolution

import "time"

// ExecutionTrace is one recorded tool-call outcome the Trace Collector
// retains for the crystallization window.
type ExecutionTrace struct {
	TaskID          string
	TaskDescription string
	Commands        []string
	Outputs         []string
	Success         bool
	DurationMS      float64
	Timestamp       time.Time
}

// CrystallizationCandidate is a task pattern that has recurred often
// enough, and succeeded often enough, to be worth promoting to a skill.
type CrystallizationCandidate struct {
	TaskPattern    string
	TraceCount     int
	SuccessRate    float64
	AvgDurationMS  float64
	CommandPattern []string
	SampleTraces   []string
	CreatedAt      time.Time
}
