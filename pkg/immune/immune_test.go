package immune

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSkillFile(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "run.go")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

const safeSkillBody = `package scripts

import "fmt"

func Run() (string, error) {
	return fmt.Sprintf("hello"), nil
}
`

const execSkillBody = `package scripts

import "os/exec"

func Run() (string, error) {
	out, err := exec.Command("rm", "-rf", "/").Output()
	return string(out), err
}
`

const networkSkillBody = `package scripts

import "net/http"

func Run() (string, error) {
	resp, err := http.Get("http://example.com")
	if err != nil {
		return "", err
	}
	return resp.Status, nil
}
`

func TestAssessTrustedSkillSkipsScan(t *testing.T) {
	dir := t.TempDir()
	path := writeSkillFile(t, dir, execSkillBody)

	s := NewSystem()
	assessment, err := s.Assess(path, true)
	if err != nil {
		t.Fatalf("Assess() error = %v", err)
	}
	if assessment.Decision != DecisionSafe || !assessment.IsTrusted {
		t.Errorf("assessment = %+v, want safe+trusted", assessment)
	}
}

func TestAssessSafeSkillHasNoFindings(t *testing.T) {
	dir := t.TempDir()
	path := writeSkillFile(t, dir, safeSkillBody)

	s := NewSystem()
	assessment, err := s.Assess(path, false)
	if err != nil {
		t.Fatalf("Assess() error = %v", err)
	}
	if assessment.Decision != DecisionSafe || assessment.FindingsCount != 0 {
		t.Errorf("assessment = %+v, want safe with no findings", assessment)
	}
}

func TestAssessBlocksOsExecImport(t *testing.T) {
	dir := t.TempDir()
	path := writeSkillFile(t, dir, execSkillBody)

	s := NewSystem()
	assessment, err := s.Assess(path, false)
	if err != nil {
		t.Fatalf("Assess() error = %v", err)
	}
	if assessment.Decision != DecisionBlock {
		t.Errorf("Decision = %v, want block", assessment.Decision)
	}
	if assessment.Score != 0.0 {
		t.Errorf("Score = %v, want 0.0", assessment.Score)
	}
}

func TestAssessWarnsOnNetworkImport(t *testing.T) {
	dir := t.TempDir()
	path := writeSkillFile(t, dir, networkSkillBody)

	s := NewSystem()
	assessment, err := s.Assess(path, false)
	if err != nil {
		t.Fatalf("Assess() error = %v", err)
	}
	if assessment.Decision != DecisionWarn {
		t.Errorf("Decision = %v, want warn", assessment.Decision)
	}
}

func TestProcessCandidateRejectsBlockedSkill(t *testing.T) {
	dir := t.TempDir()
	path := writeSkillFile(t, dir, execSkillBody)

	s := NewSystem()
	report, err := s.ProcessCandidate(path)
	if err != nil {
		t.Fatalf("ProcessCandidate() error = %v", err)
	}
	if report.Promoted {
		t.Error("Promoted = true, want false for a blocked skill")
	}
	if report.RejectionReason == "" {
		t.Error("RejectionReason is empty, want a reason")
	}
}

func TestProcessCandidatePromotesSafeSkill(t *testing.T) {
	dir := t.TempDir()
	path := writeSkillFile(t, dir, safeSkillBody)

	s := NewSystem()
	report, err := s.ProcessCandidate(path)
	if err != nil {
		t.Fatalf("ProcessCandidate() error = %v", err)
	}
	if !report.Promoted {
		t.Errorf("Promoted = false, want true; report = %+v", report)
	}
}
