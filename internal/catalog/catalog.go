// Package catalog serves the static example prompts, evaluation figures and
// smoke cases bundled with the service.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"multilingual-qa/internal/language"
)

// Category is an example category.
type Category string

const (
	GeneralKnowledge Category = "General Knowledge"
	Historical       Category = "Historical"
	Scientific       Category = "Scientific"
)

var ErrUnknownCategory = errors.New("unknown example category")

//go:embed catalog.yaml
var raw []byte

type Example struct {
	Question string `yaml:"question" json:"question"`
	Context  string `yaml:"context" json:"context"`
}

// Performance holds evaluation scores for one language.
type Performance struct {
	BLEU       float64 `yaml:"bleu" json:"bleu"`
	Rouge1     float64 `yaml:"rouge_1" json:"rouge_1"`
	Rouge2     float64 `yaml:"rouge_2" json:"rouge_2"`
	RougeL     float64 `yaml:"rouge_l" json:"rouge_l"`
	ExactMatch float64 `yaml:"exact_match" json:"exact_match"`
	F1         float64 `yaml:"f1" json:"f1"`
	AvgEMF1    float64 `yaml:"avg_em_f1" json:"avg_em_f1"`
}

// SmokeCase is a fixed question with the substring a healthy model must produce.
type SmokeCase struct {
	Language language.Language `yaml:"language"`
	Question string            `yaml:"question"`
	Context  string            `yaml:"context"`
	Expected string            `yaml:"expected"`
}

type Catalog struct {
	Examples    map[language.Language]map[Category]Example `yaml:"examples"`
	Performance map[language.Language]Performance          `yaml:"performance"`
	Smoke       []SmokeCase                                `yaml:"smoke"`
}

// Load parses the embedded catalog.
func Load() (*Catalog, error) {
	return Parse(raw)
}

// Parse decodes a catalog document and checks every language has every category.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	for _, l := range language.All() {
		for _, cat := range Categories() {
			if _, ok := c.Examples[l][cat]; !ok {
				return nil, fmt.Errorf("catalog missing %s example for %s", cat, l)
			}
		}
		if _, ok := c.Performance[l]; !ok {
			return nil, fmt.Errorf("catalog missing performance for %s", l)
		}
	}
	return &c, nil
}

// Categories lists example categories in display order.
func Categories() []Category {
	return []Category{GeneralKnowledge, Historical, Scientific}
}

func ParseCategory(s string) (Category, error) {
	for _, c := range Categories() {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// GetExample returns the example question and passage for a category and language.
func (c *Catalog) GetExample(cat Category, lang language.Language) (Example, error) {
	byCat, ok := c.Examples[lang]
	if !ok {
		return Example{}, fmt.Errorf("%w: %q", language.ErrUnknownLanguage, string(lang))
	}
	ex, ok := byCat[cat]
	if !ok {
		return Example{}, fmt.Errorf("%w: %q", ErrUnknownCategory, string(cat))
	}
	return ex, nil
}

// PerformanceTable returns the evaluation figures keyed by language.
func (c *Catalog) PerformanceTable() map[language.Language]Performance {
	out := make(map[language.Language]Performance, len(c.Performance))
	for k, v := range c.Performance {
		out[k] = v
	}
	return out
}
