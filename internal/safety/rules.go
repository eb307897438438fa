package safety

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RuleFile is the on-disk rule configuration.
type RuleFile struct {
	Placeholder string `yaml:"placeholder"`
	Rules       []Rule `yaml:"rules"`
}

// LoadRuleFile reads rules from a YAML file. An empty path or a missing file
// yields the built-in defaults.
func LoadRuleFile(path string) (*RuleFile, error) {
	if path == "" {
		return &RuleFile{Placeholder: DefaultPlaceholder, Rules: DefaultRules()}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &RuleFile{Placeholder: DefaultPlaceholder, Rules: DefaultRules()}, nil
		}
		return nil, fmt.Errorf("failed to read safety rules file: %w", err)
	}

	var rf RuleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("failed to parse safety rules file: %w", err)
	}
	if rf.Placeholder == "" {
		rf.Placeholder = DefaultPlaceholder
	}
	if len(rf.Rules) == 0 {
		rf.Rules = DefaultRules()
	}
	return &rf, nil
}
