// Package scanner walks a skills tree, parses each skill's SKILL.md
// front-matter, and extracts command annotations from its scripts. Go has
// no runtime decorators, so the command metadata a Python skill would
// attach at decoration time is instead captured statically: a command
// function is preceded by a `//skill_command:` doc-comment line that the
// scanner parses with go/parser, never imports or executes. One poisonous
// skill is isolated and logged; it never prevents healthy neighbours from
// loading.
package scanner

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/omnikernel/kernel/pkg/kernelerr"
	"github.com/omnikernel/kernel/pkg/manifest"
)

const (
	manifestFileName = "SKILL.md"
	scriptsDirName   = "scripts"
)

// Skill is one successfully scanned skill directory.
type Skill struct {
	Name     string
	Path     string
	Manifest *manifest.SkillManifest
	Commands []manifest.ToolRecord
}

// ScanError reports a skill directory the Scanner could not load.
type ScanError struct {
	SkillDir string
	Err      error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("skill %q: %v", e.SkillDir, e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }

// Scan walks root one level deep: every immediate subdirectory is a
// candidate skill. Malformed skills are collected as errors, not fatal.
func Scan(root string) ([]Skill, []ScanError) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, []ScanError{{SkillDir: root, Err: err}}
	}

	var skills []Skill
	var errs []ScanError

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		skill, err := scanOne(dir)
		if err != nil {
			slog.Debug("scanner: skill skipped", "dir", dir, "error", err)
			errs = append(errs, ScanError{SkillDir: dir, Err: err})
			continue
		}
		if skill != nil {
			skills = append(skills, *skill)
		}
	}

	sort.Slice(skills, func(i, j int) bool { return skills[i].Name < skills[j].Name })
	return skills, errs
}

// ScanOne scans a single skill directory; exported for the Kernel's
// per-skill hot-reload path.
func ScanOne(dir string) (*Skill, error) {
	return scanOne(dir)
}

func scanOne(dir string) (*Skill, error) {
	manifestPath := filepath.Join(dir, manifestFileName)
	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // not a skill directory; skip silently
		}
		return nil, kernelerr.Wrap(kernelerr.KindManifestInvalid, "scanner", "scanOne", "reading SKILL.md", err)
	}

	scriptsDir := filepath.Join(dir, scriptsDirName)
	scriptFiles, err := listGoFiles(scriptsDir)
	if err != nil || len(scriptFiles) == 0 {
		return nil, nil // no scripts dir / no script files; skip silently
	}

	m, err := manifest.ParseFrontMatter(stripFrontMatterFences(raw))
	if err != nil {
		return nil, err
	}

	var commands []manifest.ToolRecord
	for _, f := range scriptFiles {
		recs, err := extractCommands(f, m.Name)
		if err != nil {
			return nil, kernelerr.Wrap(kernelerr.KindManifestInvalid, "scanner", "scanOne",
				fmt.Sprintf("parsing %s", f), err)
		}
		commands = append(commands, recs...)
	}

	return &Skill{Name: m.Name, Path: dir, Manifest: m, Commands: commands}, nil
}

func listGoFiles(scriptsDir string) ([]string, error) {
	entries, err := os.ReadDir(scriptsDir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".go") {
			files = append(files, filepath.Join(scriptsDir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// frontMatterFence matches the leading `---\n...\n---` block of SKILL.md;
// everything after the closing fence is prose body, ignored by the parser.
var frontMatterFence = regexp.MustCompile(`(?s)^---\s*\n(.*?)\n---`)

func stripFrontMatterFences(raw []byte) []byte {
	m := frontMatterFence.FindSubmatch(raw)
	if m == nil {
		return []byte{}
	}
	return m[1]
}

// commandAnnotation matches a `//skill_command:key=val,key="quoted val"` doc
// comment line immediately preceding a command function.
var commandAnnotation = regexp.MustCompile(`^//\s*skill_command:\s*(.*)$`)

func extractCommands(path string, skillName string) ([]manifest.ToolRecord, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
	if err != nil {
		return nil, err
	}

	var records []manifest.ToolRecord
	hash, err := fileHash(path)
	if err != nil {
		return nil, err
	}

	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Doc == nil {
			continue
		}
		attrs, ok := parseAnnotation(fn.Doc)
		if !ok {
			continue
		}

		name := attrs["name"]
		if name == "" {
			name = fn.Name.Name
		}
		schema := synthesizeSchema(fn)

		records = append(records, manifest.ToolRecord{
			ToolName:        fmt.Sprintf("%s.%s", skillName, name),
			SkillName:       skillName,
			FunctionName:    fn.Name.Name,
			FilePath:        path,
			Description:     attrs["description"],
			Category:        orDefault(attrs["category"], "general"),
			InputSchema:     schema,
			FileHash:        hash,
			ExecutionMode:   manifest.ExecutionModeLocal,
			RoutingKeywords: splitCSV(attrs["routing_keywords"]),
			Intents:         splitCSV(attrs["intents"]),
		})
	}
	return records, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func splitCSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ";")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// parseAnnotation extracts the key=value pairs from a `skill_command:` doc
// comment. Values may be double-quoted to allow embedded commas.
func parseAnnotation(doc *ast.CommentGroup) (map[string]string, bool) {
	for _, c := range doc.List {
		m := commandAnnotation.FindStringSubmatch(c.Text)
		if m == nil {
			continue
		}
		return parseAttrs(m[1]), true
	}
	return nil, false
}

var attrPattern = regexp.MustCompile(`(\w+)=(?:"([^"]*)"|([^,]*))`)

func parseAttrs(body string) map[string]string {
	attrs := make(map[string]string)
	for _, m := range attrPattern.FindAllStringSubmatch(body, -1) {
		key := m[1]
		val := m[2]
		if val == "" {
			val = strings.TrimSpace(m[3])
		}
		attrs[key] = val
	}
	return attrs
}

// synthesizeSchema builds a JSON-Schema object from the function's
// parameter list. Every command's input_schema comes from here; an
// input_schema attribute in the annotation is not read.
func synthesizeSchema(fn *ast.FuncDecl) map[string]any {
	props := map[string]any{}
	var required []string

	if fn.Type.Params != nil {
		for _, field := range fn.Type.Params.List {
			t := jsonTypeOf(field.Type)
			names := field.Names
			if len(names) == 0 {
				continue // unnamed/context-like parameter, skip
			}
			for _, n := range names {
				if n.Name == "ctx" {
					continue
				}
				props[n.Name] = map[string]any{"type": t}
				required = append(required, n.Name)
			}
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func jsonTypeOf(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		switch t.Name {
		case "string":
			return "string"
		case "int", "int32", "int64", "uint", "uint32", "uint64":
			return "integer"
		case "float32", "float64":
			return "number"
		case "bool":
			return "boolean"
		default:
			return "string"
		}
	case *ast.ArrayType:
		return "array"
	case *ast.MapType:
		return "object"
	case *ast.StarExpr:
		return jsonTypeOf(t.X)
	case *ast.SelectorExpr:
		return "string"
	default:
		return "string"
	}
}

func fileHash(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
