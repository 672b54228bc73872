// Package skillsindex reads the external-skill marketplace index and
// ranks its entries against a query. Grounded on pkg/hybridsearch's
// fielded keyword scorer: discover/suggest reuse the same tokenize-and-
// boost scoring the Router uses over the tool index, just over a
// smaller field set (name, description, keywords).
package skillsindex

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/omnikernel/kernel/pkg/config"
	"github.com/omnikernel/kernel/pkg/hybridsearch"
	"github.com/omnikernel/kernel/pkg/kernelerr"
)

const supportedVersion = "1.0.0"

// Entry is one external skill offered by the marketplace.
type Entry struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	URL         string   `json:"url"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords,omitempty"`
}

// Index is the parsed skills-index.json document.
type Index struct {
	Version string  `json:"version"`
	Skills  []Entry `json:"skills"`
}

// Load reads and validates a skills-index file: version must be
// supported, IDs must be unique, and every URL must point at GitHub
// (the only fetch target jit-install supports).
func Load(path string) (*Index, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, kernelerr.Wrap(kernelerr.KindManifestInvalid, "skillsindex", "Load", path, err)
	}

	var idx Index
	if err := json.Unmarshal(raw, &idx); err != nil {
		return nil, kernelerr.Wrap(kernelerr.KindManifestInvalid, "skillsindex", "Load", "parse "+path, err)
	}
	if err := idx.Validate(); err != nil {
		return nil, err
	}
	return &idx, nil
}

// Validate enforces the skills-index invariants: a supported version,
// unique IDs, and GitHub-only URLs.
func (idx *Index) Validate() error {
	if idx.Version != supportedVersion {
		return kernelerr.New(kernelerr.KindManifestInvalid, "skillsindex", "Validate",
			fmt.Sprintf("unsupported index version %q, want %q", idx.Version, supportedVersion))
	}
	seen := make(map[string]bool, len(idx.Skills))
	for _, s := range idx.Skills {
		if s.ID == "" {
			return kernelerr.New(kernelerr.KindManifestInvalid, "skillsindex", "Validate", "skill entry missing id")
		}
		if seen[s.ID] {
			return kernelerr.New(kernelerr.KindManifestInvalid, "skillsindex", "Validate", "duplicate skill id "+s.ID)
		}
		seen[s.ID] = true
		if !strings.HasPrefix(s.URL, "https://github.com/") {
			return kernelerr.New(kernelerr.KindManifestInvalid, "skillsindex", "Validate",
				fmt.Sprintf("skill %q has non-github url %q", s.ID, s.URL))
		}
	}
	return nil
}

// Find returns the entry with the given id.
func (idx *Index) Find(id string) (Entry, bool) {
	for _, s := range idx.Skills {
		if s.ID == id {
			return s, true
		}
	}
	return Entry{}, false
}

// ranked is one scored entry, kept unexported since only Discover/Suggest
// need the intermediate score.
type ranked struct {
	Entry
	score float64
}

// Discover ranks every entry against query using the same fielded
// keyword scorer the Router uses over tools, and returns the top limit
// matches (all entries, in index order, when query is empty). limit <= 0
// means "no bound".
func (idx *Index) Discover(query string, limit int) []Entry {
	boost := config.FieldBoosting{NameTokenBoost: 1.5, ExactPhraseBoost: 2.0}

	if strings.TrimSpace(query) == "" {
		out := append([]Entry(nil), idx.Skills...)
		if limit > 0 && len(out) > limit {
			out = out[:limit]
		}
		return out
	}

	scored := make([]ranked, 0, len(idx.Skills))
	for _, s := range idx.Skills {
		fields := hybridsearch.Fields{
			Name:            s.Name,
			Description:     s.Description,
			RoutingKeywords: s.Keywords,
		}
		score := hybridsearch.ScoreKeyword(query, fields, boost)
		if score <= 0 {
			continue
		}
		scored = append(scored, ranked{Entry: s, score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].ID < scored[j].ID
	})

	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	out := make([]Entry, len(scored))
	for i, r := range scored {
		out[i] = r.Entry
	}
	return out
}

// Suggest returns the single best match for a free-form task description,
// or false if nothing scored above zero.
func (idx *Index) Suggest(task string) (Entry, bool) {
	top := idx.Discover(task, 1)
	if len(top) == 0 {
		return Entry{}, false
	}
	return top[0], true
}
