// Package kernel owns the runtime registry of loaded skills: discovery,
// hot reload, command partitioning, and tool execution. It is the only
// component that mutates LoadedSkill state; context providers elsewhere
// hold shared read-only references valid for one request.
package kernel

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/omnikernel/kernel/pkg/contextcache"
	"github.com/omnikernel/kernel/pkg/kernelerr"
	"github.com/omnikernel/kernel/pkg/manifest"
	"github.com/omnikernel/kernel/pkg/registry"
	"github.com/omnikernel/kernel/pkg/scanner"
)

// Command is the invocable unit the Kernel exposes per skill.
type Command struct {
	Name        string
	SkillName   string
	Callable    CommandFunc
	Description string
	Category    string
	Schema      map[string]any
	// Dynamic commands are hidden from the LLM unless the Router has
	// explicitly activated their skill; core commands are always listed.
	Dynamic bool
}

// QualifiedName is the "skill.command" form the Agent Loop uses as a
// globally unique tool name when listing commands flat across skills.
func (c *Command) QualifiedName() string {
	return c.SkillName + "." + c.Name
}

// LoadedSkill is the Kernel's runtime state for one skill.
type LoadedSkill struct {
	mu sync.Mutex // serializes concurrent reloads of THIS skill only

	Name        string
	Manifest    *manifest.SkillManifest
	Path        string
	Mtime       time.Time
	Commands    map[string]*Command
	ContextCache *contextcache.Bundle
}

// LoadResult reports the outcome of loading or reloading one skill.
type LoadResult struct {
	SkillName string
	Err       error
}

// Stats summarizes a load_all run.
type Stats struct {
	Loaded  int
	Failed  int
	Elapsed time.Duration
}

// Kernel is the skill runtime. Loaded skills are kept in a generic
// registry.BaseRegistry; this is the teacher's registry container reused
// verbatim because it already expresses the exact name-keyed shape the
// spec needs.
type Kernel struct {
	root        string
	concurrency int

	reg registry.Registry[*LoadedSkill]
	// per-skill lock, keyed by name, lazily created. Guards reload so
	// concurrent reloads of the SAME skill serialize while reloads of
	// DIFFERENT skills proceed in parallel.
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// New constructs a Kernel rooted at the given skills directory. concurrency
// bounds load_all's work pool; 0 means the default of 4.
func New(root string, concurrency int) *Kernel {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Kernel{
		root:        root,
		concurrency: concurrency,
		reg:         registry.NewBaseRegistry[*LoadedSkill](),
		locks:       make(map[string]*sync.Mutex),
	}
}

func (k *Kernel) lockFor(name string) *sync.Mutex {
	k.locksMu.Lock()
	defer k.locksMu.Unlock()
	if l, ok := k.locks[name]; ok {
		return l
	}
	l := &sync.Mutex{}
	k.locks[name] = l
	return l
}

// LoadAll discovers, validates, and loads every skill under root with a
// bounded work pool. Individual failures never abort the run.
func (k *Kernel) LoadAll(ctx context.Context) ([]LoadResult, Stats) {
	start := time.Now()
	skills, scanErrs := scanner.Scan(k.root)

	results := make([]LoadResult, 0, len(skills)+len(scanErrs))
	for _, se := range scanErrs {
		results = append(results, LoadResult{SkillName: filepath.Base(se.SkillDir), Err: se.Err})
	}

	var (
		mu    sync.Mutex
		stats Stats
	)
	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, k.concurrency)

	for _, s := range skills {
		s := s
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return nil
			}
			defer func() { <-sem }()

			err := k.loadSkill(s)
			mu.Lock()
			results = append(results, LoadResult{SkillName: s.Name, Err: err})
			if err != nil {
				stats.Failed++
			} else {
				stats.Loaded++
			}
			mu.Unlock()
			return nil // never abort the group for one skill's failure
		})
	}
	_ = g.Wait()

	stats.Failed += len(scanErrs)
	stats.Elapsed = time.Since(start)
	return results, stats
}

func (k *Kernel) loadSkill(s scanner.Skill) error {
	mtime, err := scriptsMtime(s.Path)
	if err != nil {
		return kernelerr.Wrap(kernelerr.KindSkillLoadFailed, "kernel", "loadSkill", "stat scripts dir", err)
	}

	commands := make(map[string]*Command, len(s.Commands))
	for _, rec := range s.Commands {
		fn, ok := lookupCommandFunc(rec.ToolName)
		if !ok {
			continue // declared but not linked into this binary; skip, don't fail the skill
		}
		// ToolName is "<skill>.<name>"; the command is addressed by <name>.
		name := rec.ToolName[len(s.Name)+1:]
		commands[name] = &Command{
			Name:        name,
			SkillName:   s.Name,
			Callable:    fn,
			Description: rec.Description,
			Category:    rec.Category,
			Schema:      rec.InputSchema,
			Dynamic:     rec.Category != "core",
		}
	}

	bundle, err := contextcache.Build(s.Path, s.Manifest, s.Commands)
	if err != nil {
		return kernelerr.Wrap(kernelerr.KindSkillLoadFailed, "kernel", "loadSkill", "building context cache", err)
	}

	loaded := &LoadedSkill{
		Name:         s.Name,
		Manifest:     s.Manifest,
		Path:         s.Path,
		Mtime:        mtime,
		Commands:     commands,
		ContextCache: bundle,
	}

	_ = k.reg.Remove(s.Name) // best-effort: ignore "not found" on first load
	if err := k.reg.Register(s.Name, loaded); err != nil {
		return kernelerr.Wrap(kernelerr.KindSkillLoadFailed, "kernel", "loadSkill", "registering skill", err)
	}
	return nil
}

func scriptsMtime(skillPath string) (time.Time, error) {
	scriptsDir := filepath.Join(skillPath, "scripts")
	entries, err := os.ReadDir(scriptsDir)
	if err != nil {
		return time.Time{}, err
	}
	var latest time.Time
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latest) {
			latest = info.ModTime()
		}
	}
	return latest, nil
}

// GetSkill returns a freshness-checked skill, transparently hot-reloading
// it if scripts/ has changed on disk since it was cached.
func (k *Kernel) GetSkill(name string) (*LoadedSkill, error) {
	skill, ok := k.reg.Get(name)
	if !ok {
		return nil, kernelerr.New(kernelerr.KindSkillNotFound, "kernel", "GetSkill", name)
	}

	lock := k.lockFor(name)
	lock.Lock()
	defer lock.Unlock()

	newMtime, err := scriptsMtime(skill.Path)
	if err != nil || !newMtime.After(skill.Mtime) {
		return skill, nil // unchanged (or unreadable — keep serving cached)
	}

	if _, err := k.reload(name); err != nil {
		// Hot-reload protocol step 5: on any failure keep the old skill
		// live rather than enter a half-loaded state.
		return skill, nil
	}
	refreshed, _ := k.reg.Get(name)
	return refreshed, nil
}

// ReloadSkill unconditionally reloads a skill, bypassing the mtime check.
func (k *Kernel) ReloadSkill(name string) LoadResult {
	lock := k.lockFor(name)
	lock.Lock()
	defer lock.Unlock()

	_, err := k.reload(name)
	return LoadResult{SkillName: name, Err: err}
}

// reload re-scans one skill directory and swaps it in atomically. Caller
// must hold the per-skill lock.
func (k *Kernel) reload(name string) (*LoadedSkill, error) {
	existing, ok := k.reg.Get(name)
	if !ok {
		return nil, kernelerr.New(kernelerr.KindSkillNotFound, "kernel", "reload", name)
	}

	s, err := scanner.ScanOne(existing.Path)
	if err != nil {
		return nil, kernelerr.Wrap(kernelerr.KindSkillLoadFailed, "kernel", "reload", "rescanning skill", err)
	}
	if s == nil {
		return nil, kernelerr.New(kernelerr.KindSkillLoadFailed, "kernel", "reload", "skill directory vanished")
	}

	if err := k.loadSkill(*s); err != nil {
		return nil, err
	}
	refreshed, _ := k.reg.Get(name)
	return refreshed, nil
}

// Unload removes a skill from the registry. There is no process-wide
// module cache to purge in Go (unlike the Python original's sys.modules
// sweep) — the command registry entries simply become unreachable once
// no LoadedSkill references them.
func (k *Kernel) Unload(name string) error {
	k.locksMu.Lock()
	delete(k.locks, name)
	k.locksMu.Unlock()
	return k.reg.Remove(name)
}

// ListCommands returns every command across every loaded skill.
func (k *Kernel) ListCommands() []*Command {
	var all []*Command
	for _, s := range k.reg.List() {
		for _, c := range s.Commands {
			all = append(all, c)
		}
	}
	return all
}

// GetCoreCommands returns only always-visible commands.
func (k *Kernel) GetCoreCommands() []*Command {
	return filterCommands(k.ListCommands(), false)
}

// GetDynamicCommands returns only commands hidden unless their skill has
// been explicitly activated by the Router.
func (k *Kernel) GetDynamicCommands() []*Command {
	return filterCommands(k.ListCommands(), true)
}

func filterCommands(cmds []*Command, dynamic bool) []*Command {
	var out []*Command
	for _, c := range cmds {
		if c.Dynamic == dynamic {
			out = append(out, c)
		}
	}
	return out
}

// ExecuteTool looks up a command of the named skill by its annotation name
// (the part after "<skill>." in its tool name) and invokes it. The caller identity, if any, rides the context.
func (k *Kernel) ExecuteTool(ctx context.Context, skillName, commandName string, args map[string]any, caller string) (string, error) {
	skill, err := k.GetSkill(skillName)
	if err != nil {
		return "", err
	}

	// "help" is a pseudo-command every skill exposes: it returns the
	// Context Cache bundle instead of dispatching to a registered command.
	if commandName == "help" {
		return skill.ContextCache.Content, nil
	}

	cmd, ok := skill.Commands[commandName]
	if !ok {
		return "", kernelerr.New(kernelerr.KindToolNotFound, "kernel", "ExecuteTool",
			fmt.Sprintf("%s.%s", skillName, commandName))
	}

	if caller != "" {
		ctx = WithCaller(ctx, caller)
	}
	out, err := cmd.Callable(ctx, args)
	if err != nil {
		return "", kernelerr.Wrap(kernelerr.KindToolExecutionFailed, "kernel", "ExecuteTool",
			fmt.Sprintf("%s.%s", skillName, commandName), err)
	}
	return out, nil
}
