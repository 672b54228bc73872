package evolution

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/omnikernel/kernel/pkg/config"
	"github.com/omnikernel/kernel/pkg/immune"
	"github.com/omnikernel/kernel/pkg/kernelerr"
)

// State tracks the Manager's running totals across cycles, mirroring the
// original's EvolutionState dataclass.
type State struct {
	LastCheck               time.Time
	TotalTraces             int
	TotalSkillsCrystallized int
	PendingCandidates       int
	LastError               string
	IsActive                bool
}

// CrystallizeResult reports the outcome of one crystallization attempt.
type CrystallizeResult struct {
	Status    string // "dry_run" or "quarantined"
	Candidate string
	SkillPath string
}

// CycleResult summarizes one full evolution cycle.
type CycleResult struct {
	CycleStarted    time.Time
	CycleCompleted  time.Time
	DurationMS      float64
	CandidatesFound int
	Crystallized    []CrystallizeResult
}

// Status is the Manager's point-in-time snapshot for introspection.
type Status struct {
	State      State
	Config     config.EvolutionConfig
	TraceCount int
}

// PromotionResult reports one quarantine skill's Immune System verdict.
type PromotionResult struct {
	SkillPath string
	Promoted  bool
	Reason    string
	Report    immune.ImmuneReport
}

// Manager runs the Evolution cycle: trace grouping, threshold evaluation,
// crystallization, and quarantine-to-live promotion via the Immune
// System gate.
type Manager struct {
	cfg    config.EvolutionConfig
	tracer *TraceCollector
	gate   *immune.System
	state  State
}

// NewManager constructs a Manager. A nil tracer or gate gets a fresh
// default instance, matching the original's zero-argument constructor.
func NewManager(cfg config.EvolutionConfig, tracer *TraceCollector, gate *immune.System) *Manager {
	if tracer == nil {
		tracer = NewTraceCollector()
	}
	if gate == nil {
		gate = immune.NewSystem()
	}
	return &Manager{cfg: cfg, tracer: tracer, gate: gate}
}

// Tracer exposes the Manager's trace collector so the Agent Loop can
// record traces after each finished task.
func (m *Manager) Tracer() *TraceCollector { return m.tracer }

// State returns a copy of the Manager's current running state.
func (m *Manager) State() State { return m.state }

// CheckCrystallization pulls traces within the configured age window,
// groups them by normalized task description, and returns one candidate
// per group meeting both the trace-count and success-rate thresholds.
func (m *Manager) CheckCrystallization() []CrystallizationCandidate {
	m.state.IsActive = true
	m.state.LastCheck = time.Now()

	maxAge := time.Duration(m.cfg.MaxTraceAgeHours) * time.Hour
	traces := m.tracer.RecentTraces(maxAge)
	m.state.TotalTraces = len(traces)

	groups := groupTracesByTask(traces)

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	var candidates []CrystallizationCandidate
	for _, name := range names {
		group := groups[name]
		if len(group) < m.cfg.MinTraceCount {
			continue
		}

		successes := 0
		var totalDuration float64
		samples := make([]string, 0, len(group))
		for _, t := range group {
			if t.Success {
				successes++
			}
			totalDuration += t.DurationMS
			samples = append(samples, t.TaskID)
		}
		successRate := float64(successes) / float64(len(group))
		if successRate < m.cfg.MinSuccessRate {
			continue
		}

		candidates = append(candidates, CrystallizationCandidate{
			TaskPattern:    name,
			TraceCount:     len(group),
			SuccessRate:    successRate,
			AvgDurationMS:  totalDuration / float64(len(group)),
			CommandPattern: extractCommandPattern(group),
			SampleTraces:   samples,
			CreatedAt:      time.Now(),
		})
	}

	m.state.PendingCandidates = len(candidates)
	return candidates
}

func groupTracesByTask(traces []ExecutionTrace) map[string][]ExecutionTrace {
	groups := make(map[string][]ExecutionTrace)
	for _, t := range traces {
		key := normalizeTask(t.TaskDescription)
		groups[key] = append(groups[key], t)
	}
	return groups
}

// extractCommandPattern flattens every trace's commands into a single
// first-seen-order, deduplicated sequence.
func extractCommandPattern(traces []ExecutionTrace) []string {
	seen := make(map[string]bool)
	var pattern []string
	for _, t := range traces {
		for _, cmd := range t.Commands {
			if !seen[cmd] {
				seen[cmd] = true
				pattern = append(pattern, cmd)
			}
		}
	}
	return pattern
}

// CrystallizeCandidate synthesizes a quarantine skill from a candidate,
// or reports dry_run status without writing anything when the Manager is
// configured for it.
func (m *Manager) CrystallizeCandidate(c CrystallizationCandidate) (CrystallizeResult, error) {
	if m.cfg.DryRun {
		return CrystallizeResult{Status: "dry_run", Candidate: c.TaskPattern}, nil
	}

	skillPath, err := writeQuarantineSkill(m.cfg.QuarantineDir, c)
	if err != nil {
		return CrystallizeResult{}, kernelerr.Wrap(kernelerr.KindCrystallizeRejected, "evolution", "CrystallizeCandidate", c.TaskPattern, err)
	}
	m.state.TotalSkillsCrystallized++
	return CrystallizeResult{Status: "quarantined", Candidate: c.TaskPattern, SkillPath: skillPath}, nil
}

// RunEvolutionCycle checks for crystallization candidates and, if
// auto_crystallize is on, synthesizes a quarantine skill for each one.
func (m *Manager) RunEvolutionCycle() CycleResult {
	start := time.Now()
	candidates := m.CheckCrystallization()

	var crystallized []CrystallizeResult
	if m.cfg.AutoCrystallize {
		for _, c := range candidates {
			result, err := m.CrystallizeCandidate(c)
			if err != nil {
				m.state.LastError = err.Error()
				continue
			}
			crystallized = append(crystallized, result)
		}
	}

	end := time.Now()
	return CycleResult{
		CycleStarted:    start,
		CycleCompleted:  end,
		DurationMS:      float64(end.Sub(start).Microseconds()) / 1000.0,
		CandidatesFound: len(candidates),
		Crystallized:    crystallized,
	}
}

// GetEvolutionStatus reports the Manager's current state and config for
// introspection endpoints.
func (m *Manager) GetEvolutionStatus() Status {
	return Status{State: m.state, Config: m.cfg, TraceCount: m.tracer.TraceCount()}
}

// CleanupOldTraces delegates to the trace collector.
func (m *Manager) CleanupOldTraces(keepCount int) int {
	return m.tracer.CleanupOldTraces(keepCount)
}

// ScanQuarantine walks every skill script under dir and runs each through
// PromoteSkill. A missing directory is not an error: it just means
// nothing is pending promotion.
func (m *Manager) ScanQuarantine(dir string) ([]PromotionResult, error) {
	var results []PromotionResult
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == dir {
				return filepath.SkipDir
			}
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, ".go") {
			return nil
		}
		result, promoteErr := m.PromoteSkill(path)
		if promoteErr != nil {
			return nil // one bad candidate never aborts the scan
		}
		results = append(results, result)
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, kernelerr.Wrap(kernelerr.KindImmuneSystemBlocked, "evolution", "ScanQuarantine", dir, err)
	}
	return results, nil
}

// PromoteSkill runs one quarantined skill through the Immune System and
// reports whether it was admitted.
func (m *Manager) PromoteSkill(skillPath string) (PromotionResult, error) {
	report, err := m.gate.ProcessCandidate(skillPath)
	if err != nil {
		return PromotionResult{}, kernelerr.Wrap(kernelerr.KindImmuneSystemBlocked, "evolution", "PromoteSkill", skillPath, err)
	}
	return PromotionResult{
		SkillPath: skillPath,
		Promoted:  report.Promoted,
		Reason:    report.RejectionReason,
		Report:    report,
	}, nil
}
