// Package safety gates free-text queries before they enter the retrieval
// pipeline. It is not part of any job lifecycle.
package safety

import (
	"fmt"
	"regexp"
)

// Mode selects what happens when a rule matches.
type Mode string

const (
	// ModeRaise aborts the request, naming the matched rule.
	ModeRaise Mode = "raise"
	// ModeRedact replaces every match with the placeholder and continues.
	ModeRedact Mode = "redact"
)

// DefaultPlaceholder replaces matches in redact mode.
const DefaultPlaceholder = "[REDACTED]"

// Rule is one named pattern the filter scans for.
type Rule struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`
}

// UnsafeContentError reports which rule rejected the input in raise mode.
type UnsafeContentError struct {
	Rule string
}

func (e *UnsafeContentError) Error() string {
	return fmt.Sprintf("input contains potentially unsafe content matching rule %q", e.Rule)
}

// DefaultRules covers common PII plus a denylist stub. Deployments extend or
// replace them through the rules file.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "EMAIL", Pattern: `[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+`},
		{Name: "PHONE_NUMBER", Pattern: `\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`},
		{Name: "DENYLIST", Pattern: `\b(bad_word_1|very_bad_word_2)\b`},
	}
}

type compiledRule struct {
	name string
	re   *regexp.Regexp
}

// Filter scans text against its rule set in the configured mode.
type Filter struct {
	mode        Mode
	placeholder string
	rules       []compiledRule
}

func New(mode Mode, placeholder string, rules []Rule) (*Filter, error) {
	if mode != ModeRaise && mode != ModeRedact {
		return nil, fmt.Errorf("invalid safety filter mode %q", mode)
	}
	if placeholder == "" {
		placeholder = DefaultPlaceholder
	}
	if len(rules) == 0 {
		rules = DefaultRules()
	}

	compiled := make([]compiledRule, 0, len(rules))
	for _, rule := range rules {
		re, err := regexp.Compile("(?i)" + rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern for rule %q: %w", rule.Name, err)
		}
		compiled = append(compiled, compiledRule{name: rule.Name, re: re})
	}
	return &Filter{mode: mode, placeholder: placeholder, rules: compiled}, nil
}

// Apply scans the text. In raise mode the first matching rule returns an
// *UnsafeContentError; in redact mode every match is replaced with the
// placeholder and the sanitized text is returned.
func (f *Filter) Apply(text string) (string, error) {
	if f.mode == ModeRaise {
		for _, rule := range f.rules {
			if rule.re.MatchString(text) {
				return "", &UnsafeContentError{Rule: rule.name}
			}
		}
		return text, nil
	}

	sanitized := text
	for _, rule := range f.rules {
		sanitized = rule.re.ReplaceAllString(sanitized, f.placeholder)
	}
	return sanitized, nil
}
