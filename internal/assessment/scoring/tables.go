package scoring

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/architect/learning-profiles/internal/assessment/models"
	"gopkg.in/yaml.v3"
)

//go:embed tables.yaml
var tablesYAML []byte

// DefaultVersion is used when a submission does not name a scoring version.
const DefaultVersion = "scale-v2"

// Scale is the numeric range answers are normalized to.
type Scale struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Span returns the width of the scale.
func (s Scale) Span() float64 {
	return s.Max - s.Min
}

// Question is one row of a variant's question table.
type Question struct {
	ID       string             `yaml:"id"`
	Category string             `yaml:"category"`
	Kind     models.AnswerKind  `yaml:"kind"`
	Buckets  []string           `yaml:"buckets"`
	Options  map[string]float64 `yaml:"options"`
}

// AppliesTo reports whether the question is age-appropriate for the bucket.
func (q *Question) AppliesTo(bucket string) bool {
	for _, b := range q.Buckets {
		if b == "all" || b == bucket {
			return true
		}
	}
	return false
}

// Variant is the canonical question set for one quiz context.
type Variant struct {
	Name      string
	BaseBoost int        `yaml:"base_boost"`
	Questions []Question `yaml:"questions"`

	byID map[string]*Question
}

// Question returns the question with the given id, or nil.
func (v *Variant) Question(id string) *Question {
	return v.byID[id]
}

// ExpectedCount returns how many of the variant's questions apply to the bucket.
func (v *Variant) ExpectedCount(bucket string) int {
	n := 0
	for i := range v.Questions {
		if v.Questions[i].AppliesTo(bucket) {
			n++
		}
	}
	return n
}

// Table is the immutable scoring configuration for one scoring version.
type Table struct {
	Version        string
	Scale          Scale               `yaml:"scale"`
	Categories     []string            `yaml:"categories"`
	Variants       map[string]*Variant `yaml:"variants"`
	Labels         map[string]string   `yaml:"labels"`
	FallbackLabels map[string]string   `yaml:"fallback_labels"`

	priority map[string]int
}

// CategoryPriority returns the tie-break rank of a category (lower wins).
// Unknown categories sort last.
func (t *Table) CategoryPriority(category string) int {
	if rank, ok := t.priority[category]; ok {
		return rank
	}
	return len(t.Categories)
}

// Variant returns the named quiz variant, or nil if the set does not know it.
func (t *Table) Variant(name string) *Variant {
	return t.Variants[name]
}

// Label resolves the deterministic label for a score map: the two highest
// categories key into the pair table, a single scored category falls back to
// its solo label. Ties are broken by the fixed category priority order.
func (t *Table) Label(scores map[string]float64) string {
	if len(scores) == 0 {
		return ""
	}

	ranked := RankCategories(scores, t)
	if len(ranked) == 1 {
		return t.FallbackLabels[ranked[0]]
	}

	a, b := ranked[0], ranked[1]
	// Pair keys are written in category priority order
	if t.CategoryPriority(a) > t.CategoryPriority(b) {
		a, b = b, a
	}
	if label, ok := t.Labels[a+"+"+b]; ok {
		return label
	}
	return t.FallbackLabels[ranked[0]]
}

// RankCategories orders the scored categories by score descending, breaking
// ties with the table's fixed category priority.
func RankCategories(scores map[string]float64, table *Table) []string {
	ranked := make([]string, 0, len(scores))
	for c := range scores {
		ranked = append(ranked, c)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if scores[ranked[i]] != scores[ranked[j]] {
			return scores[ranked[i]] > scores[ranked[j]]
		}
		return table.CategoryPriority(ranked[i]) < table.CategoryPriority(ranked[j])
	})
	return ranked
}

type tableFile struct {
	Versions map[string]*Table `yaml:"versions"`
}

var tables map[string]*Table

func init() {
	loaded, err := parseTables(tablesYAML)
	if err != nil {
		panic(fmt.Sprintf("scoring: invalid embedded tables: %v", err))
	}
	tables = loaded
}

func parseTables(raw []byte) (map[string]*Table, error) {
	var file tableFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, err
	}
	if len(file.Versions) == 0 {
		return nil, fmt.Errorf("no scoring versions defined")
	}

	for version, table := range file.Versions {
		table.Version = version
		if table.Scale.Span() <= 0 {
			return nil, fmt.Errorf("version %s: scale span must be positive", version)
		}
		table.priority = make(map[string]int, len(table.Categories))
		for i, c := range table.Categories {
			table.priority[c] = i
		}
		for name, variant := range table.Variants {
			variant.Name = name
			variant.byID = make(map[string]*Question, len(variant.Questions))
			for i := range variant.Questions {
				q := &variant.Questions[i]
				if _, known := table.priority[q.Category]; !known {
					return nil, fmt.Errorf("version %s: question %s has unknown category %q", version, q.ID, q.Category)
				}
				if _, dup := variant.byID[q.ID]; dup {
					return nil, fmt.Errorf("version %s: duplicate question id %s in variant %s", version, q.ID, name)
				}
				variant.byID[q.ID] = q
			}
		}
	}
	return file.Versions, nil
}

// Get returns the scoring table for a version.
func Get(version string) (*Table, bool) {
	t, ok := tables[version]
	return t, ok
}

// Versions lists the known scoring versions.
func Versions() []string {
	names := make([]string, 0, len(tables))
	for v := range tables {
		names = append(names, v)
	}
	sort.Strings(names)
	return names
}

// KnownVariant reports whether any scoring version defines the variant.
func KnownVariant(name string) bool {
	name = strings.TrimSpace(name)
	for _, t := range tables {
		if t.Variant(name) != nil {
			return true
		}
	}
	return false
}
