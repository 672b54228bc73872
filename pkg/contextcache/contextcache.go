// Package contextcache builds the deterministic text bundle the Kernel's
// "help" pseudo-command and the Context Orchestrator's skill provider hand
// to the LLM: manifest summary, command index, guide, and references/
// prompts/templates listings packed into one fixed-structure document. Grounded on the original's
// RepomixCache / `_get_skill_context`, minus the XML-packer dependency —
// no such packer exists anywhere in this module's corpus, so a
// strings.Builder assembly matches the teacher's own linear-concatenation
// style for fixed-shape bundles.
package contextcache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/omnikernel/kernel/pkg/manifest"
)

// Bundle is the assembled, ready-to-inject context for one skill.
type Bundle struct {
	SkillName string
	Content   string
	// FellBack is true when the XML-shaped bundle could not be built and
	// the raw guide.md content was returned instead.
	FellBack bool
}

// Build assembles a skill's context bundle: manifest header, a command
// index, the guide body when present, and references/prompts/templates
// listings.
func Build(skillPath string, m *manifest.SkillManifest, commands []manifest.ToolRecord) (*Bundle, error) {
	content, err := assemble(skillPath, m, commands)
	if err == nil {
		return &Bundle{SkillName: m.Name, Content: content}, nil
	}

	// Fall back to raw guide.md rather than surface an error: a context
	// bundle is advisory, not load-bearing for skill availability.
	guide, guideErr := readGuide(skillPath, m)
	if guideErr != nil {
		return &Bundle{SkillName: m.Name, Content: fmt.Sprintf("# %s\n\n%s\n", m.Name, m.Description), FellBack: true}, nil
	}
	return &Bundle{SkillName: m.Name, Content: guide, FellBack: true}, nil
}

func assemble(skillPath string, m *manifest.SkillManifest, commands []manifest.ToolRecord) (string, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "<skill name=%q version=%q>\n", m.Name, m.Version)
	fmt.Fprintf(&b, "<description>%s</description>\n", m.Description)
	if len(m.RoutingKeywords) > 0 {
		fmt.Fprintf(&b, "<routing_keywords>%s</routing_keywords>\n", strings.Join(m.RoutingKeywords, ", "))
	}
	if len(m.Intents) > 0 {
		fmt.Fprintf(&b, "<intents>%s</intents>\n", strings.Join(m.Intents, ", "))
	}

	b.WriteString("<commands>\n")
	for _, c := range commands {
		fmt.Fprintf(&b, "  - %s: %s\n", c.ToolName, c.Description)
	}
	b.WriteString("</commands>\n")

	guide, err := readGuide(skillPath, m)
	if err == nil && guide != "" {
		b.WriteString("<guide>\n")
		b.WriteString(guide)
		b.WriteString("\n</guide>\n")
	}

	writeSection(&b, skillPath, "references")
	writeSection(&b, skillPath, "prompts")
	writeSection(&b, skillPath, "templates")

	b.WriteString("</skill>\n")
	return b.String(), nil
}

func writeSection(b *strings.Builder, skillPath, dirName string) {
	dir := filepath.Join(skillPath, dirName)
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) == 0 {
		return
	}
	fmt.Fprintf(b, "<%s>\n", dirName)
	for _, e := range entries {
		if !e.IsDir() {
			fmt.Fprintf(b, "  - %s\n", e.Name())
		}
	}
	fmt.Fprintf(b, "</%s>\n", dirName)
}

func readGuide(skillPath string, m *manifest.SkillManifest) (string, error) {
	name := m.GuideFile
	if name == "" {
		name = "guide.md"
	}
	raw, err := os.ReadFile(filepath.Join(skillPath, name))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
