// Package catalog holds the read-only prompt library and survey definitions
// shipped with the binary.
package catalog

import (
	"embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/honeynil/BizPromptService/internal/models"
)

//go:embed data/*.yaml
var dataFS embed.FS

type Catalog struct {
	prompts []models.Prompt
	surveys []models.Survey
}

// Load parses the embedded catalogs.
func Load() (*Catalog, error) {
	var p struct {
		Prompts []models.Prompt `yaml:"prompts"`
	}
	if err := decode("data/prompts.yaml", &p); err != nil {
		return nil, err
	}
	var s struct {
		Surveys []models.Survey `yaml:"surveys"`
	}
	if err := decode("data/surveys.yaml", &s); err != nil {
		return nil, err
	}
	return New(p.Prompts, s.Surveys)
}

// New builds a catalog from explicit entries, rejecting duplicate ids.
func New(prompts []models.Prompt, surveys []models.Survey) (*Catalog, error) {
	seen := make(map[string]struct{}, len(prompts))
	for _, p := range prompts {
		if p.ID == "" {
			return nil, fmt.Errorf("prompt %q has no id", p.Title)
		}
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("duplicate prompt id %q", p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	seen = make(map[string]struct{}, len(surveys))
	for _, s := range surveys {
		if _, dup := seen[s.ID]; dup {
			return nil, fmt.Errorf("duplicate survey id %q", s.ID)
		}
		seen[s.ID] = struct{}{}
	}
	return &Catalog{prompts: prompts, surveys: surveys}, nil
}

func decode(name string, out any) error {
	raw, err := dataFS.ReadFile(name)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}

// Prompts filters by category and premium flag; nil/empty filters match all.
func (c *Catalog) Prompts(category models.PromptCategory, premium *bool) []models.Prompt {
	out := make([]models.Prompt, 0, len(c.prompts))
	for _, p := range c.prompts {
		if category != "" && p.Category != category {
			continue
		}
		if premium != nil && p.IsPremium != *premium {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Categories returns prompt counts per category, largest first.
func (c *Catalog) Categories() []models.CategoryCount {
	counts := map[models.PromptCategory]int{}
	for _, p := range c.prompts {
		counts[p.Category]++
	}
	out := make([]models.CategoryCount, 0, len(counts))
	for cat, n := range counts {
		out = append(out, models.CategoryCount{Category: cat, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	return out
}

func (c *Catalog) ActiveSurveys() []models.Survey {
	out := make([]models.Survey, 0, len(c.surveys))
	for _, s := range c.surveys {
		if s.IsActive {
			out = append(out, s)
		}
	}
	return out
}

func (c *Catalog) Survey(id string) (models.Survey, bool) {
	for _, s := range c.surveys {
		if s.ID == id {
			return s, true
		}
	}
	return models.Survey{}, false
}
