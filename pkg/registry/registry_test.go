package registry

import (
	"fmt"
	"testing"
)

// skillFixture stands in for *kernel.LoadedSkill in these tests — the
// registry is generic, but the Kernel only ever instantiates it over
// loaded skills, so the test fixtures mirror that shape rather than an
// arbitrary struct.
type skillFixture struct {
	Name        string
	ToolCount   int
	Description string
}

func TestBaseRegistry_RegisterSkill(t *testing.T) {
	reg := NewBaseRegistry[skillFixture]()

	tests := []struct {
		name    string
		skill   skillFixture
		wantErr bool
	}{
		{
			name:    "register valid skill",
			skill:   skillFixture{Name: "git-ops", ToolCount: 3, Description: "git commands"},
			wantErr: false,
		},
		{
			name:    "register skill with empty name",
			skill:   skillFixture{Name: "", ToolCount: 1, Description: "anonymous"},
			wantErr: true,
		},
		{
			name:    "register duplicate skill name",
			skill:   skillFixture{Name: "git-ops", ToolCount: 5, Description: "a second git skill"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := reg.Register(tt.skill.Name, tt.skill)
			if (err != nil) != tt.wantErr {
				t.Errorf("BaseRegistry.Register() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBaseRegistry_GetSkill(t *testing.T) {
	reg := NewBaseRegistry[skillFixture]()

	gitOps := skillFixture{Name: "git-ops", ToolCount: 3, Description: "git commands"}
	if err := reg.Register(gitOps.Name, gitOps); err != nil {
		t.Fatalf("Failed to register skill: %v", err)
	}

	tests := []struct {
		name      string
		skillName string
		wantSkill skillFixture
		wantOk    bool
	}{
		{
			name:      "get loaded skill",
			skillName: "git-ops",
			wantSkill: gitOps,
			wantOk:    true,
		},
		{
			name:      "get skill that was never loaded",
			skillName: "deploy-tools",
			wantSkill: skillFixture{},
			wantOk:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := reg.Get(tt.skillName)
			if ok != tt.wantOk {
				t.Errorf("BaseRegistry.Get() ok = %v, want %v", ok, tt.wantOk)
			}
			if got.Name != tt.wantSkill.Name {
				t.Errorf("BaseRegistry.Get() Name = %v, want %v", got.Name, tt.wantSkill.Name)
			}
			if got.ToolCount != tt.wantSkill.ToolCount {
				t.Errorf("BaseRegistry.Get() ToolCount = %v, want %v", got.ToolCount, tt.wantSkill.ToolCount)
			}
		})
	}
}

func TestBaseRegistry_ListSkills(t *testing.T) {
	reg := NewBaseRegistry[skillFixture]()

	if skills := reg.List(); len(skills) != 0 {
		t.Errorf("BaseRegistry.List() length = %v, want %v", len(skills), 0)
	}

	loaded := []skillFixture{
		{Name: "git-ops", ToolCount: 3, Description: "git commands"},
		{Name: "deploy-tools", ToolCount: 2, Description: "deployment helpers"},
		{Name: "knowledge-search", ToolCount: 4, Description: "hybrid search over notes"},
	}

	for _, s := range loaded {
		if err := reg.Register(s.Name, s); err != nil {
			t.Fatalf("Failed to register skill %s: %v", s.Name, err)
		}
	}

	skills := reg.List()
	if len(skills) != len(loaded) {
		t.Errorf("BaseRegistry.List() length = %v, want %v", len(skills), len(loaded))
	}

	bySkillName := make(map[string]skillFixture)
	for _, s := range skills {
		bySkillName[s.Name] = s
	}
	for _, want := range loaded {
		got, exists := bySkillName[want.Name]
		if !exists {
			t.Errorf("BaseRegistry.List() missing skill %s", want.Name)
			continue
		}
		if got.Description != want.Description {
			t.Errorf("BaseRegistry.List() skill %s Description = %v, want %v", want.Name, got.Description, want.Description)
		}
	}
}

func TestBaseRegistry_RemoveSkill(t *testing.T) {
	reg := NewBaseRegistry[skillFixture]()

	gitOps := skillFixture{Name: "git-ops", ToolCount: 3, Description: "git commands"}
	if err := reg.Register(gitOps.Name, gitOps); err != nil {
		t.Fatalf("Failed to register skill: %v", err)
	}

	tests := []struct {
		name      string
		skillName string
		wantErr   bool
	}{
		{name: "unload registered skill", skillName: "git-ops", wantErr: false},
		{name: "unload skill that isn't loaded", skillName: "deploy-tools", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := reg.Remove(tt.skillName)
			if (err != nil) != tt.wantErr {
				t.Errorf("BaseRegistry.Remove() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				if _, exists := reg.Get(tt.skillName); exists {
					t.Errorf("BaseRegistry.Remove() skill %s still present after unload", tt.skillName)
				}
			}
		})
	}
}

func TestBaseRegistry_CountTracksLoadedSkills(t *testing.T) {
	reg := NewBaseRegistry[skillFixture]()

	if count := reg.Count(); count != 0 {
		t.Errorf("BaseRegistry.Count() = %v, want %v", count, 0)
	}

	skills := []skillFixture{
		{Name: "git-ops", ToolCount: 3},
		{Name: "deploy-tools", ToolCount: 2},
	}

	for i, s := range skills {
		if err := reg.Register(s.Name, s); err != nil {
			t.Fatalf("Failed to register skill %s: %v", s.Name, err)
		}
		if count := reg.Count(); count != i+1 {
			t.Errorf("BaseRegistry.Count() = %v, want %v", count, i+1)
		}
	}
}

func TestBaseRegistry_ClearOnFullReload(t *testing.T) {
	reg := NewBaseRegistry[skillFixture]()

	skills := []skillFixture{
		{Name: "git-ops", ToolCount: 3},
		{Name: "deploy-tools", ToolCount: 2},
	}
	for _, s := range skills {
		if err := reg.Register(s.Name, s); err != nil {
			t.Fatalf("Failed to register skill %s: %v", s.Name, err)
		}
	}

	if count := reg.Count(); count != len(skills) {
		t.Errorf("BaseRegistry.Count() before clear = %v, want %v", count, len(skills))
	}

	// A full reload clears every loaded skill before LoadAll rebuilds the
	// table from scratch.
	reg.Clear()

	if count := reg.Count(); count != 0 {
		t.Errorf("BaseRegistry.Count() after clear = %v, want %v", count, 0)
	}
	if items := reg.List(); len(items) != 0 {
		t.Errorf("BaseRegistry.List() after clear length = %v, want %v", len(items), 0)
	}
	for _, s := range skills {
		if _, exists := reg.Get(s.Name); exists {
			t.Errorf("BaseRegistry.Get() skill %s still present after clear", s.Name)
		}
	}
}

func TestBaseRegistry_ConcurrentLoadAndLookup(t *testing.T) {
	reg := NewBaseRegistry[skillFixture]()

	// Models the Kernel's hot-reload path: one goroutine loading skills
	// while command dispatch concurrently looks them up.
	done := make(chan bool, 2)

	go func() {
		defer func() { done <- true }()
		for i := 0; i < 100; i++ {
			name := fmt.Sprintf("dynamic-skill-%d", i)
			_ = reg.Register(name, skillFixture{Name: name, ToolCount: i % 5})
		}
	}()

	go func() {
		defer func() { done <- true }()
		for i := 0; i < 100; i++ {
			reg.Get(fmt.Sprintf("dynamic-skill-%d", i))
			reg.Count()
			reg.List()
		}
	}()

	<-done
	<-done

	if count := reg.Count(); count != 100 {
		t.Errorf("BaseRegistry.Count() after concurrent load/lookup = %v, want %v", count, 100)
	}
}
