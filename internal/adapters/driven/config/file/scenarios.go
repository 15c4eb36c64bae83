package file

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

type scenarioQuestion struct {
	Q             string  `yaml:"q"`
	Question      string  `yaml:"question"`
	GoldAnswer    string  `yaml:"gold_answer"`
	MaxLatencySec float64 `yaml:"max_latency_sec"`
}

type scenario struct {
	ID        string             `yaml:"id"`
	DocPath   string             `yaml:"doc_path"`
	Upload    *bool              `yaml:"upload"`
	Questions []scenarioQuestion `yaml:"questions"`
}

type scenarioFile struct {
	Scenarios []scenario `yaml:"scenarios"`
}

// LoadScenarios reads conversation scenarios from a YAML or JSON file.
// Relative doc_path values resolve against the file's directory.
func LoadScenarios(path string) ([]domain.Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenarios: %w", err)
	}
	return ParseScenarios(data, filepath.Dir(path))
}

// ParseScenarios decodes a list of scenarios, or a mapping with a
// "scenarios" list. upload defaults to true; a question is q or question.
func ParseScenarios(data []byte, baseDir string) ([]domain.Scenario, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: scenario file is empty", domain.ErrInvalidInput)
	}

	var raw []scenario
	if err := yaml.Unmarshal(trimmed, &raw); err != nil {
		var wrapped scenarioFile
		if werr := yaml.Unmarshal(trimmed, &wrapped); werr != nil {
			return nil, fmt.Errorf("%w: parse scenarios: %v", domain.ErrInvalidInput, err)
		}
		raw = wrapped.Scenarios
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: no scenarios found", domain.ErrInvalidInput)
	}

	out := make([]domain.Scenario, 0, len(raw))
	for i, rs := range raw {
		id := firstNonEmpty(rs.ID, fmt.Sprintf("#%d", i+1))
		sc := domain.Scenario{
			ID:        id,
			DocPath:   resolvePath(baseDir, firstNonEmpty(rs.DocPath)),
			Upload:    rs.Upload == nil || *rs.Upload,
			Questions: make([]domain.ScenarioQuestion, 0, len(rs.Questions)),
		}
		if sc.Upload && sc.DocPath == "" {
			return nil, fmt.Errorf("%w: scenario %s uploads but has no doc_path", domain.ErrInvalidInput, id)
		}
		for j, q := range rs.Questions {
			question := firstNonEmpty(q.Q, q.Question)
			if question == "" {
				return nil, fmt.Errorf("%w: scenario %s question %d is empty", domain.ErrInvalidInput, id, j+1)
			}
			if q.MaxLatencySec < 0 {
				return nil, fmt.Errorf("%w: scenario %s question %d has a negative max_latency_sec",
					domain.ErrInvalidInput, id, j+1)
			}
			sc.Questions = append(sc.Questions, domain.ScenarioQuestion{
				Question:   question,
				GoldAnswer: firstNonEmpty(q.GoldAnswer),
				MaxLatency: time.Duration(q.MaxLatencySec * float64(time.Second)),
			})
		}
		if len(sc.Questions) == 0 {
			return nil, fmt.Errorf("%w: scenario %s has no questions", domain.ErrInvalidInput, id)
		}
		out = append(out, sc)
	}
	return out, nil
}

func resolvePath(baseDir, path string) string {
	if path == "" || filepath.IsAbs(path) || baseDir == "" {
		return path
	}
	return filepath.Join(baseDir, path)
}

type pairsFile struct {
	Similar    []domain.TextPair `yaml:"similar"`
	Dissimilar []domain.TextPair `yaml:"dissimilar"`
}

// LoadTextPairs reads "similar" and "dissimilar" lists of {a, b} pairs.
func LoadTextPairs(path string) (similar, dissimilar []domain.TextPair, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read text pairs: %w", err)
	}
	var f pairsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, nil, fmt.Errorf("%w: parse text pairs: %v", domain.ErrInvalidInput, err)
	}
	if len(f.Similar) == 0 || len(f.Dissimilar) == 0 {
		return nil, nil, fmt.Errorf("%w: text pairs need both similar and dissimilar entries", domain.ErrInvalidInput)
	}
	for _, p := range append(append([]domain.TextPair{}, f.Similar...), f.Dissimilar...) {
		if firstNonEmpty(p.A) == "" || firstNonEmpty(p.B) == "" {
			return nil, nil, fmt.Errorf("%w: text pair has an empty side", domain.ErrInvalidInput)
		}
	}
	return f.Similar, f.Dissimilar, nil
}
