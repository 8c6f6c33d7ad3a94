package captions

import (
	"fmt"
	"regexp"

	"reelsmith/internal/services"
)

// Censor applies an ordered list of substitution rules.
type Censor struct {
	rules []compiledRule
}

type compiledRule struct {
	re          *regexp.Regexp
	replacement string
}

// NewCensor compiles rules in order. An invalid pattern is a configuration
// error.
func NewCensor(rules []Rule) (*Censor, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for i, rule := range rules {
		if rule.Pattern == "" {
			return nil, services.Wrap(services.ErrConfiguration, "captions", "compile censoring rules",
				fmt.Sprintf("rule %d has an empty pattern", i+1), nil)
		}
		re, err := regexp.Compile("(?i)" + rule.Pattern)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "captions", "compile censoring rules",
				fmt.Sprintf("rule %d pattern %q", i+1, rule.Pattern), err)
		}
		compiled = append(compiled, compiledRule{re: re, replacement: rule.Replacement})
	}
	return &Censor{rules: compiled}, nil
}

// Apply runs every rule once over text, in order.
func (c *Censor) Apply(text string) string {
	if c == nil {
		return text
	}
	text, _ = c.applyMarked(text, nil)
	return text
}

// applyMarked censors text and keeps marks aligned with the words they
// style.
func (c *Censor) applyMarked(text string, marks []Mark) (string, []Mark) {
	if c == nil {
		return text, marks
	}
	for _, rule := range c.rules {
		text, marks = replaceTracked(text, rule.re, rule.replacement, marks)
	}
	return text, marks
}

// Len reports the number of rules.
func (c *Censor) Len() int {
	if c == nil {
		return 0
	}
	return len(c.rules)
}
