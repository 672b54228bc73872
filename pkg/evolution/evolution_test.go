package evolution

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/omnikernel/kernel/pkg/config"
	"github.com/omnikernel/kernel/pkg/immune"
)

func testConfig() config.EvolutionConfig {
	cfg := config.EvolutionConfig{MinTraceCount: 2, MinSuccessRate: 0.7}
	cfg.SetDefaults()
	cfg.MinTraceCount = 2
	cfg.MinSuccessRate = 0.7
	return cfg
}

func TestCheckCrystallizationNoTraces(t *testing.T) {
	mgr := NewManager(testConfig(), nil, nil)
	candidates := mgr.CheckCrystallization()
	if len(candidates) != 0 {
		t.Errorf("candidates = %v, want none", candidates)
	}
	if !mgr.State().IsActive {
		t.Error("IsActive = false, want true after a check")
	}
}

func TestCheckCrystallizationBelowThreshold(t *testing.T) {
	mgr := NewManager(testConfig(), nil, nil)
	mgr.Tracer().Record(ExecutionTrace{TaskID: "t1", TaskDescription: "list files", Commands: []string{"ls"}, Success: true, DurationMS: 10})

	candidates := mgr.CheckCrystallization()
	if len(candidates) != 0 {
		t.Errorf("candidates = %v, want none (only 1 trace, threshold 2)", candidates)
	}
}

func TestCheckCrystallizationCandidateFound(t *testing.T) {
	mgr := NewManager(testConfig(), nil, nil)
	for i := 0; i < 3; i++ {
		mgr.Tracer().Record(ExecutionTrace{
			TaskID: "t", TaskDescription: "List Files", Commands: []string{"ls"}, Success: true, DurationMS: 10,
		})
	}

	candidates := mgr.CheckCrystallization()
	if len(candidates) != 1 {
		t.Fatalf("len(candidates) = %d, want 1", len(candidates))
	}
	if candidates[0].TaskPattern != "list files" {
		t.Errorf("TaskPattern = %q, want normalized lowercase", candidates[0].TaskPattern)
	}
	if candidates[0].TraceCount != 3 || candidates[0].SuccessRate != 1.0 {
		t.Errorf("candidate = %+v", candidates[0])
	}
}

func TestCheckCrystallizationLowSuccessRate(t *testing.T) {
	mgr := NewManager(testConfig(), nil, nil)
	mgr.Tracer().Record(ExecutionTrace{TaskID: "t1", TaskDescription: "task", Commands: []string{"cmd"}, Success: true, DurationMS: 10})
	mgr.Tracer().Record(ExecutionTrace{TaskID: "t2", TaskDescription: "task", Commands: []string{"cmd"}, Success: false, DurationMS: 10})
	mgr.Tracer().Record(ExecutionTrace{TaskID: "t3", TaskDescription: "task", Commands: []string{"cmd"}, Success: false, DurationMS: 10})

	candidates := mgr.CheckCrystallization()
	if len(candidates) != 0 {
		t.Errorf("candidates = %v, want none (33%% success < 70%% threshold)", candidates)
	}
}

func TestCrystallizeCandidateDryRun(t *testing.T) {
	cfg := testConfig()
	cfg.DryRun = true
	mgr := NewManager(cfg, nil, nil)

	result, err := mgr.CrystallizeCandidate(CrystallizationCandidate{TaskPattern: "list files", TraceCount: 5, SuccessRate: 1.0})
	if err != nil {
		t.Fatalf("CrystallizeCandidate() error = %v", err)
	}
	if result.Status != "dry_run" || result.Candidate != "list files" {
		t.Errorf("result = %+v", result)
	}
}

func TestCrystallizeCandidateWritesQuarantineSkill(t *testing.T) {
	cfg := testConfig()
	cfg.QuarantineDir = t.TempDir()
	mgr := NewManager(cfg, nil, nil)

	candidate := CrystallizationCandidate{TaskPattern: "list files", TraceCount: 5, SuccessRate: 1.0, CommandPattern: []string{"ls"}}
	result, err := mgr.CrystallizeCandidate(candidate)
	if err != nil {
		t.Fatalf("CrystallizeCandidate() error = %v", err)
	}
	if result.Status != "quarantined" {
		t.Fatalf("Status = %q, want quarantined", result.Status)
	}
	if _, err := os.Stat(filepath.Join(result.SkillPath, "SKILL.md")); err != nil {
		t.Errorf("SKILL.md not written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(result.SkillPath, "scripts", "run.go")); err != nil {
		t.Errorf("scripts/run.go not written: %v", err)
	}
}

func TestRunEvolutionCycleReportsCounts(t *testing.T) {
	cfg := testConfig()
	cfg.DryRun = true
	mgr := NewManager(cfg, nil, nil)

	result := mgr.RunEvolutionCycle()
	if result.CandidatesFound != 0 {
		t.Errorf("CandidatesFound = %d, want 0", result.CandidatesFound)
	}
	if result.CycleCompleted.Before(result.CycleStarted) {
		t.Error("CycleCompleted before CycleStarted")
	}
}

func TestGetEvolutionStatusReportsTraceCount(t *testing.T) {
	mgr := NewManager(testConfig(), nil, nil)
	mgr.Tracer().Record(ExecutionTrace{TaskID: "t1", TaskDescription: "x", Success: true})

	status := mgr.GetEvolutionStatus()
	if status.TraceCount != 1 {
		t.Errorf("TraceCount = %d, want 1", status.TraceCount)
	}
}

func TestCleanupOldTraces(t *testing.T) {
	mgr := NewManager(testConfig(), nil, nil)
	for i := 0; i < 5; i++ {
		mgr.Tracer().Record(ExecutionTrace{TaskID: "t", TaskDescription: "x", Success: true})
	}

	removed := mgr.CleanupOldTraces(2)
	if removed != 3 {
		t.Errorf("removed = %d, want 3", removed)
	}
	if mgr.Tracer().TraceCount() != 2 {
		t.Errorf("TraceCount() = %d, want 2", mgr.Tracer().TraceCount())
	}
}

func TestGroupTracesByTaskNormalizesCase(t *testing.T) {
	traces := []ExecutionTrace{
		{TaskDescription: "List Files"},
		{TaskDescription: "list files"},
		{TaskDescription: "Find Files"},
	}
	groups := groupTracesByTask(traces)
	if len(groups["list files"]) != 2 {
		t.Errorf("len(groups[list files]) = %d, want 2", len(groups["list files"]))
	}
	if len(groups["find files"]) != 1 {
		t.Errorf("len(groups[find files]) = %d, want 1", len(groups["find files"]))
	}
}

func TestExtractCommandPatternPreservesOrderAndUniqueness(t *testing.T) {
	traces := []ExecutionTrace{
		{Commands: []string{"ls", "ls -la"}},
		{Commands: []string{"ls", "pwd"}},
	}
	pattern := extractCommandPattern(traces)
	want := []string{"ls", "ls -la", "pwd"}
	if len(pattern) != len(want) {
		t.Fatalf("pattern = %v, want %v", pattern, want)
	}
	for i := range want {
		if pattern[i] != want[i] {
			t.Errorf("pattern[%d] = %q, want %q", i, pattern[i], want[i])
		}
	}
}

func TestScanQuarantineEmptyDirReturnsNoResults(t *testing.T) {
	mgr := NewManager(testConfig(), nil, nil)
	results, err := mgr.ScanQuarantine(filepath.Join(t.TempDir(), "missing"))
	if err != nil {
		t.Fatalf("ScanQuarantine() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("results = %v, want none", results)
	}
}

func TestScanQuarantinePromotesSafeSkills(t *testing.T) {
	dir := t.TempDir()
	scriptsDir := filepath.Join(dir, "sample_skill", "scripts")
	if err := os.MkdirAll(scriptsDir, 0o755); err != nil {
		t.Fatal(err)
	}
	body := "package scripts\n\nfunc Run() (string, error) {\n\treturn \"ok\", nil\n}\n"
	if err := os.WriteFile(filepath.Join(scriptsDir, "run.go"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig()
	cfg.QuarantineDir = dir
	mgr := NewManager(cfg, nil, immune.NewSystem())

	results, err := mgr.ScanQuarantine(dir)
	if err != nil {
		t.Fatalf("ScanQuarantine() error = %v", err)
	}
	if len(results) != 1 || !results[0].Promoted {
		t.Errorf("results = %+v, want one promoted skill", results)
	}
}

func TestClassifySuccessPrefersExitCode(t *testing.T) {
	if !ClassifySuccess(0, true, "anything") {
		t.Error("exit code 0 with ok=true should be success")
	}
	if ClassifySuccess(1, true, "passed") {
		t.Error("nonzero exit code with ok=true should be failure regardless of output text")
	}
}

func TestClassifySuccessFallsBackToOutputSubstring(t *testing.T) {
	if !ClassifySuccess(0, false, "3 tests passed") {
		t.Error("output containing 'passed' with ok=false should be success")
	}
	if ClassifySuccess(0, false, "1 test failed") {
		t.Error("output containing 'failed' with ok=false should be failure")
	}
}

var _ = time.Now // keep time imported for table-driven timestamp assertions above
