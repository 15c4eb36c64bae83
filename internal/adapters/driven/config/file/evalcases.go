package file

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// evalCase is the on-disk shape of a labelled case. question and
// gold_answer are accepted as aliases of query and reference.
type evalCase struct {
	ID              string   `yaml:"id"`
	Query           string   `yaml:"query"`
	Question        string   `yaml:"question"`
	RelevantIDs     []int64  `yaml:"relevant_ids"`
	RelevantSources []string `yaml:"relevant_sources"`
	Reference       string   `yaml:"reference"`
	GoldAnswer      string   `yaml:"gold_answer"`
}

// evalFile allows the cases under a top-level "cases" key.
type evalFile struct {
	Cases []evalCase `yaml:"cases"`
}

// LoadEvalCases reads labelled cases from a YAML or JSON file. The file is
// either a list of cases or a mapping with a "cases" list.
func LoadEvalCases(path string) ([]domain.EvalCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read eval cases: %w", err)
	}
	return ParseEvalCases(data)
}

// ParseEvalCases decodes case data; JSON parses as YAML.
func ParseEvalCases(data []byte) ([]domain.EvalCase, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: eval case file is empty", domain.ErrInvalidInput)
	}

	var raw []evalCase
	if err := yaml.Unmarshal(trimmed, &raw); err != nil {
		var wrapped evalFile
		if werr := yaml.Unmarshal(trimmed, &wrapped); werr != nil {
			return nil, fmt.Errorf("%w: parse eval cases: %v", domain.ErrInvalidInput, err)
		}
		raw = wrapped.Cases
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: no eval cases found", domain.ErrInvalidInput)
	}

	cases := make([]domain.EvalCase, 0, len(raw))
	for i, rc := range raw {
		c := domain.EvalCase{
			Query:           firstNonEmpty(rc.Query, rc.Question),
			RelevantIDs:     rc.RelevantIDs,
			RelevantSources: rc.RelevantSources,
			Reference:       firstNonEmpty(rc.Reference, rc.GoldAnswer),
		}
		if c.Query == "" {
			label := rc.ID
			if label == "" {
				label = fmt.Sprintf("#%d", i+1)
			}
			return nil, fmt.Errorf("%w: eval case %s has no query", domain.ErrInvalidInput, label)
		}
		cases = append(cases, c)
	}
	return cases, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
