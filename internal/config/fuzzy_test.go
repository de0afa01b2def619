package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFuzzyDict_Empty(t *testing.T) {
	dict, err := LoadFuzzyDict("")
	if err != nil {
		t.Fatalf("LoadFuzzyDict: %v", err)
	}
	if len(dict) != 0 {
		t.Errorf("got %d rules, want 0 for an empty path", len(dict))
	}
}

func TestLoadFuzzyDict_Parses(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fuzzy.yaml")
	content := `
hello:
  prob: 0.5
  answers:
    - sentence: "hi there"
      total_repeat_min: 1
      total_repeat_max: 3
    - sentence: "hey!"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	dict, err := LoadFuzzyDict(path)
	if err != nil {
		t.Fatalf("LoadFuzzyDict: %v", err)
	}
	rule, ok := dict["hello"]
	if !ok {
		t.Fatal("missing \"hello\" rule")
	}
	if rule.Prob != 0.5 {
		t.Errorf("Prob = %v, want 0.5", rule.Prob)
	}
	if len(rule.Answers) != 2 {
		t.Fatalf("got %d answers, want 2", len(rule.Answers))
	}
	if rule.Answers[0].TotalRepeat.Max != 3 {
		t.Errorf("TotalRepeat.Max = %d, want 3", rule.Answers[0].TotalRepeat.Max)
	}
}

func TestLoadFuzzyDict_MissingFile(t *testing.T) {
	if _, err := LoadFuzzyDict("/nonexistent/fuzzy.yaml"); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
