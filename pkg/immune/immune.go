// Package immune is the static safety assessor gating quarantine-to-live
// skill promotion: a source scan, never an execution sandbox. Grounded on
// spec.md §4.12's SecurityAssessment/ImmuneReport contract; no immune
// system source file was retrieved in the example pack (only
// test_evolution_manager.py's mocked usage of it), so the scanning
// technique itself is grounded on pkg/scanner/scanner.go's own approach:
// parse skill source with go/parser and never import or execute it.
package immune

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"

	"github.com/omnikernel/kernel/pkg/kernelerr"
)

// Decision is the System's verdict on one skill.
type Decision string

const (
	DecisionSafe  Decision = "safe"
	DecisionWarn  Decision = "warn"
	DecisionBlock Decision = "block"
)

// SecurityAssessment is the System's output for one skill path.
type SecurityAssessment struct {
	Decision      Decision
	Score         float64
	FindingsCount int
	IsTrusted     bool
	Reason        string
	Details       []string
}

// ImmuneReport is the promotion-specific outcome: whether a quarantined
// skill was admitted to the live skill tree.
type ImmuneReport struct {
	Promoted        bool
	RejectionReason string
	Score           float64
	FindingsCount   int
	IsTrusted       bool
	Details         []string
}

// finding pairs a static-analysis hit with its severity.
type finding struct {
	text     string
	severity Decision // warn or block; never safe
}

// dangerousImports maps an import path to the severity a skill importing
// it earns. exec/syscall/unsafe can escape the skill sandbox entirely;
// net/net-http merely reach outside the local filesystem.
var dangerousImports = map[string]finding{
	"os/exec":      {severity: DecisionBlock, text: "spawns subprocesses via os/exec"},
	"syscall":      {severity: DecisionBlock, text: "direct syscall access"},
	"unsafe":       {severity: DecisionBlock, text: "unsafe pointer manipulation"},
	"net":          {severity: DecisionWarn, text: "raw network access via net"},
	"net/http":     {severity: DecisionWarn, text: "network access via net/http"},
	"plugin":       {severity: DecisionBlock, text: "dynamic plugin loading"},
	"os/user":      {severity: DecisionWarn, text: "reads host user/account info"},
	"database/sql": {severity: DecisionWarn, text: "direct database access"},
}

// dangerousCalls matches "pkg.Func" selector expressions known to be
// destructive regardless of which package wraps them.
var dangerousCalls = map[string]finding{
	"os.RemoveAll": {severity: DecisionBlock, text: "recursive file deletion (os.RemoveAll)"},
	"os.Remove":    {severity: DecisionWarn, text: "file deletion (os.Remove)"},
	"os.Chmod":     {severity: DecisionWarn, text: "permission change (os.Chmod)"},
}

// System is the Immune System gate. Stateless; safe for concurrent use.
type System struct{}

// NewSystem constructs a System.
func NewSystem() *System { return &System{} }

// Assess statically scans every .go file under skillPath (a file or a
// directory) and returns a SecurityAssessment. trusted short-circuits to
// DecisionSafe without scanning, per §4.12: "local skills may be marked
// trusted and bypass heavy scanning; quarantined skills are never trusted
// by default."
func (s *System) Assess(skillPath string, trusted bool) (SecurityAssessment, error) {
	if trusted {
		return SecurityAssessment{Decision: DecisionSafe, Score: 1.0, IsTrusted: true, Reason: "trusted local skill, scan skipped"}, nil
	}

	findings, err := scanPath(skillPath)
	if err != nil {
		return SecurityAssessment{}, kernelerr.Wrap(kernelerr.KindImmuneSystemBlocked, "immune", "Assess", skillPath, err)
	}

	decision := DecisionSafe
	var details []string
	for _, f := range findings {
		details = append(details, f.text)
		if f.severity == DecisionBlock {
			decision = DecisionBlock
		} else if f.severity == DecisionWarn && decision != DecisionBlock {
			decision = DecisionWarn
		}
	}

	score := scoreFor(decision, len(findings))
	return SecurityAssessment{
		Decision:      decision,
		Score:         score,
		FindingsCount: len(findings),
		IsTrusted:     false,
		Reason:        reasonFor(decision, details),
		Details:       details,
	}, nil
}

// ProcessCandidate assesses an untrusted quarantine skill and translates
// the verdict into an ImmuneReport: block prevents promotion, everything
// else is admitted (possibly with warnings recorded in Details).
func (s *System) ProcessCandidate(skillPath string) (ImmuneReport, error) {
	assessment, err := s.Assess(skillPath, false)
	if err != nil {
		return ImmuneReport{}, err
	}

	report := ImmuneReport{
		Promoted:      assessment.Decision != DecisionBlock,
		Score:         assessment.Score,
		FindingsCount: assessment.FindingsCount,
		IsTrusted:     assessment.IsTrusted,
		Details:       assessment.Details,
	}
	if !report.Promoted {
		report.RejectionReason = assessment.Reason
	}
	return report, nil
}

func scoreFor(decision Decision, findingsCount int) float64 {
	switch decision {
	case DecisionBlock:
		return 0.0
	case DecisionWarn:
		score := 0.7 - 0.1*float64(findingsCount)
		if score < 0.3 {
			score = 0.3
		}
		return score
	default:
		return 1.0
	}
}

func reasonFor(decision Decision, details []string) string {
	switch decision {
	case DecisionBlock:
		return "blocked: " + strings.Join(details, "; ")
	case DecisionWarn:
		return "admitted with warnings: " + strings.Join(details, "; ")
	default:
		return "no findings"
	}
}

// scanPath parses every .go file reachable from path (a single file or a
// directory tree) and collects findings. Never imports or executes skill
// code, matching pkg/scanner's own static-analysis discipline.
func scanPath(path string) ([]finding, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	var files []string
	if !info.IsDir() {
		files = []string{path}
	} else {
		err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(p, ".go") {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	var all []finding
	for _, f := range files {
		found, err := scanFile(f)
		if err != nil {
			return nil, err
		}
		all = append(all, found...)
	}
	return all, nil
}

func scanFile(path string) ([]finding, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
	if err != nil {
		return nil, err
	}

	var findings []finding
	for _, imp := range file.Imports {
		importPath := strings.Trim(imp.Path.Value, `"`)
		if f, ok := dangerousImports[importPath]; ok {
			findings = append(findings, f)
		}
	}

	ast.Inspect(file, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		sel, ok := call.Fun.(*ast.SelectorExpr)
		if !ok {
			return true
		}
		pkgIdent, ok := sel.X.(*ast.Ident)
		if !ok {
			return true
		}
		qualified := pkgIdent.Name + "." + sel.Sel.Name
		if f, ok := dangerousCalls[qualified]; ok {
			findings = append(findings, f)
		}
		return true
	})

	return findings, nil
}
