package homeostasis

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/omnikernel/kernel/pkg/config"
	"github.com/omnikernel/kernel/pkg/kernelerr"
)

// Manager runs the Homeostasis transaction lifecycle over one Git
// repository: begin/record_changes/commit_or_rollback/conflict_check,
// matching spec.md §4.13's contract exactly.
type Manager struct {
	cfg  config.HomeostasisConfig
	repo *git.Repository

	mu           sync.Mutex
	transactions map[string]*Transaction
}

// NewManager opens (or, if absent, initializes) the Git repository at
// cfg.RepoPath and returns a Manager ready to begin transactions.
func NewManager(cfg config.HomeostasisConfig) (*Manager, error) {
	cfg.SetDefaults()

	repo, err := git.PlainOpen(cfg.RepoPath)
	if err != nil {
		if err != git.ErrRepositoryNotExists {
			return nil, kernelerr.Wrap(kernelerr.KindHomeostasisConflict, "homeostasis", "NewManager", cfg.RepoPath, err)
		}
		repo, err = initRepo(cfg.RepoPath, cfg.BaseBranch)
		if err != nil {
			return nil, kernelerr.Wrap(kernelerr.KindHomeostasisConflict, "homeostasis", "NewManager", cfg.RepoPath, err)
		}
	}

	return &Manager{cfg: cfg, repo: repo, transactions: make(map[string]*Transaction)}, nil
}

func initRepo(path, baseBranch string) (*git.Repository, error) {
	repo, err := git.PlainInitWithOptions(path, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: plumbing.NewBranchReferenceName(baseBranch)},
	})
	if err != nil {
		return nil, err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, err
	}
	if _, err := wt.Commit("omnikernel: initial commit", &git.CommitOptions{
		AllowEmptyCommits: true,
		Author:            defaultSignature(),
	}); err != nil {
		return nil, err
	}
	return repo, nil
}

func defaultSignature() *object.Signature {
	return &object.Signature{Name: "omnikernel", Email: "omnikernel@localhost", When: time.Now()}
}

// Begin creates branch `<branch_prefix>/<8-char task suffix>` from the
// base branch's current commit and opens a Transaction for taskID.
func (m *Manager) Begin(taskID string) (*Transaction, error) {
	baseRef, err := m.repo.Reference(plumbing.NewBranchReferenceName(m.cfg.BaseBranch), true)
	if err != nil {
		return nil, kernelerr.Wrap(kernelerr.KindHomeostasisConflict, "homeostasis", "Begin", taskID, err)
	}

	branch := fmt.Sprintf("%s/%s", m.cfg.BranchPrefix, suffix(taskID, 8))
	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(branch), baseRef.Hash())
	if err := m.repo.Storer.SetReference(ref); err != nil {
		return nil, kernelerr.Wrap(kernelerr.KindHomeostasisConflict, "homeostasis", "Begin", taskID, err)
	}

	tx := &Transaction{
		TaskID:     taskID,
		Branch:     branch,
		BaseCommit: baseRef.Hash().String(),
		StartedAt:  time.Now(),
		Changes:    newSymbolIndex(),
	}

	m.mu.Lock()
	m.transactions[taskID] = tx
	m.mu.Unlock()
	return tx, nil
}

// RecordChanges extracts the public-API symbol surface of each changed
// file and attaches it to taskID's open transaction.
func (m *Manager) RecordChanges(taskID string, files []string) error {
	m.mu.Lock()
	tx, ok := m.transactions[taskID]
	m.mu.Unlock()
	if !ok {
		return kernelerr.New(kernelerr.KindHomeostasisConflict, "homeostasis", "RecordChanges", "no open transaction for task "+taskID)
	}

	for _, file := range files {
		sym, err := extractFileSymbols(file)
		if err != nil {
			return kernelerr.Wrap(kernelerr.KindHomeostasisConflict, "homeostasis", "RecordChanges", file, err)
		}
		tx.Changes.Files[file] = sym
	}
	return nil
}

// CommitOrRollback finalizes taskID's transaction: on success with
// auto_merge_on_success, fast-forwards the base branch to the task
// branch's commit; on failure with auto_rollback_on_failure, discards the
// branch entirely. The transaction is removed from the open set either way.
func (m *Manager) CommitOrRollback(taskID string, success bool) error {
	m.mu.Lock()
	tx, ok := m.transactions[taskID]
	if ok {
		delete(m.transactions, taskID)
	}
	m.mu.Unlock()
	if !ok {
		return kernelerr.New(kernelerr.KindTransactionAborted, "homeostasis", "CommitOrRollback", "no open transaction for task "+taskID)
	}

	branchRefName := plumbing.NewBranchReferenceName(tx.Branch)

	if success && m.cfg.AutoMergeOnSuccessEnabled() {
		branchRef, err := m.repo.Reference(branchRefName, true)
		if err != nil {
			return kernelerr.Wrap(kernelerr.KindTransactionAborted, "homeostasis", "CommitOrRollback", taskID, err)
		}
		baseRefName := plumbing.NewBranchReferenceName(m.cfg.BaseBranch)
		if err := m.repo.Storer.SetReference(plumbing.NewHashReference(baseRefName, branchRef.Hash())); err != nil {
			return kernelerr.Wrap(kernelerr.KindTransactionAborted, "homeostasis", "CommitOrRollback", taskID, err)
		}
		tx.committed = true
		_ = m.repo.Storer.RemoveReference(branchRefName)
		return nil
	}

	if !success && m.cfg.AutoRollbackOnFailureEnabled() {
		if err := m.repo.Storer.RemoveReference(branchRefName); err != nil {
			return kernelerr.Wrap(kernelerr.KindTransactionAborted, "homeostasis", "CommitOrRollback", taskID, err)
		}
		tx.rolledBack = true
	}
	return nil
}

// ConflictCheck runs pairwise conflict detection across every transaction
// named in levelTaskIDs and returns the level's aggregate report.
func (m *Manager) ConflictCheck(levelTaskIDs []string) (LevelReport, error) {
	m.mu.Lock()
	txs := make([]*Transaction, 0, len(levelTaskIDs))
	for _, id := range levelTaskIDs {
		tx, ok := m.transactions[id]
		if !ok {
			m.mu.Unlock()
			return LevelReport{}, kernelerr.New(kernelerr.KindHomeostasisConflict, "homeostasis", "ConflictCheck", "no open transaction for task "+id)
		}
		txs = append(txs, tx)
	}
	m.mu.Unlock()

	var all []ConflictReport
	for i := 0; i < len(txs); i++ {
		for j := i + 1; j < len(txs); j++ {
			all = append(all, detectPairConflicts(txs[i], txs[j])...)
		}
	}

	max := maxSeverity(all)
	return LevelReport{Conflicts: all, MaxSeverity: max, AutoResolvable: max <= SeverityMedium}, nil
}

func suffix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
