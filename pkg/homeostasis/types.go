// Package homeostasis wraps concurrent multi-task execution in per-task
// Git-branch transactions, detecting semantic conflicts between branches
// before they merge back into the base. Grounded on spec.md §4.13; the
// Git plumbing itself is grounded on github.com/go-git/go-git/v5, present
// in several manifests of the example pack (e.g. Mak-1911-flynn) though
// no usage snippet survived retrieval, so the transaction lifecycle below
// follows go-git's own documented reference/worktree API directly.
package homeostasis

import "time"

// Severity ranks a detected conflict. Values are ordered: none < medium <
// high < critical.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityNone:
		return "none"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// ConflictType names the specific rule that fired.
type ConflictType string

const (
	ConflictNone                   ConflictType = ""
	ConflictFile                   ConflictType = "file_conflict"
	ConflictFunctionSignature      ConflictType = "function_signature"
	ConflictAttributeTypeChanged   ConflictType = "attribute_type_changed"
	ConflictClassAttributesRemoved ConflictType = "class_attributes_removed"
)

// Transaction is one task's exclusive Git-branch isolation scope.
type Transaction struct {
	TaskID     string
	Branch     string
	BaseCommit string
	StartedAt  time.Time
	Changes    *SymbolIndex
	committed  bool
	rolledBack bool
}

// Committed reports whether this transaction's branch was merged into base.
func (t *Transaction) Committed() bool { return t.committed }

// RolledBack reports whether this transaction's branch was discarded.
func (t *Transaction) RolledBack() bool { return t.rolledBack }

// FileSymbols is the set of public-API surface extracted from one changed
// file: function signatures, exported struct field types, and imports.
type FileSymbols struct {
	Functions  map[string]string // func name -> rendered signature
	Attributes map[string]string // "Type.Field" -> field type
	Imports    []string
}

// SymbolIndex maps changed file path to the symbols found in it, recorded
// per-transaction by record_changes.
type SymbolIndex struct {
	Files map[string]FileSymbols
}

func newSymbolIndex() *SymbolIndex {
	return &SymbolIndex{Files: make(map[string]FileSymbols)}
}

// ConflictReport is one pairwise conflict finding between two tasks'
// transactions over a shared file.
type ConflictReport struct {
	TaskA          string
	TaskB          string
	File           string
	Severity       Severity
	Type           ConflictType
	Detail         string
	AutoResolvable bool
}

// LevelReport aggregates every ConflictReport found across one orchestrator
// level's set of concurrent transactions.
type LevelReport struct {
	Conflicts      []ConflictReport
	MaxSeverity    Severity
	AutoResolvable bool
}
