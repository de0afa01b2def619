package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ashlock/gatekit/internal/dispatcher"
)

// fuzzyAnswerYAML mirrors dispatcher.FuzzyAnswer in a YAML-friendly
// shape (RepeatRange has no natural single-field YAML form).
type fuzzyAnswerYAML struct {
	Sentence        string `yaml:"sentence"`
	TotalRepeatMin  int    `yaml:"total_repeat_min"`
	TotalRepeatMax  int    `yaml:"total_repeat_max"`
	EndingRepeatMin int    `yaml:"ending_repeat_min"`
	EndingRepeatMax int    `yaml:"ending_repeat_max"`
}

type fuzzyRuleYAML struct {
	Prob    float64           `yaml:"prob"`
	Answers []fuzzyAnswerYAML `yaml:"answers"`
}

// LoadFuzzyDict loads a keyword-to-rule fuzzy-match dictionary from a
// YAML file mapping each keyword to a trigger probability and candidate
// answers. An empty path is not an error: fuzzy matching is optional,
// and an empty dict simply never matches.
func LoadFuzzyDict(path string) (dispatcher.FuzzyDict, error) {
	if path == "" {
		return dispatcher.FuzzyDict{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fuzzy dict: %w", err)
	}

	var raw map[string]fuzzyRuleYAML
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("fuzzy dict: parse %s: %w", path, err)
	}

	dict := make(dispatcher.FuzzyDict, len(raw))
	for keyword, rule := range raw {
		answers := make([]dispatcher.FuzzyAnswer, len(rule.Answers))
		for i, a := range rule.Answers {
			answers[i] = dispatcher.FuzzyAnswer{
				Sentence:     a.Sentence,
				TotalRepeat:  dispatcher.RepeatRange{Min: a.TotalRepeatMin, Max: a.TotalRepeatMax},
				EndingRepeat: dispatcher.RepeatRange{Min: a.EndingRepeatMin, Max: a.EndingRepeatMax},
			}
		}
		dict[keyword] = dispatcher.FuzzyRule{Prob: rule.Prob, Answers: answers}
	}
	return dict, nil
}
