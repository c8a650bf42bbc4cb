package identify

import (
	"path/filepath"
	"strings"
)

// Matcher applies an ordered rule list to command lines.
type Matcher struct {
	rules []Rule
}

// NewMatcher creates a Matcher over rules, tried in the given order.
// With no rules it uses DefaultRules.
func NewMatcher(rules ...Rule) *Matcher {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Matcher{rules: rules}
}

// Apply returns the label built by the first rule that matches command.
// There is no scoring: later rules are never consulted once one matches.
func (m *Matcher) Apply(command string, ctx MatchContext) (IdentifiedProcess, bool) {
	command = strings.TrimSpace(command)
	if command == "" {
		return IdentifiedProcess{}, false
	}
	for _, rule := range m.rules {
		if match, ok := rule.Match(command); ok {
			return rule.Build(match, ctx), true
		}
	}
	return IdentifiedProcess{}, false
}

// Fallback labels a process no rule recognized with the basename of its
// executable.
func Fallback(command, project string, port int) IdentifiedProcess {
	name := "unknown"
	if fields := strings.Fields(command); len(fields) > 0 {
		name = filepath.Base(strings.TrimPrefix(fields[0], "-"))
	}
	return IdentifiedProcess{
		DisplayName: name,
		Category:    CategorySystem,
		Project:     project,
		Port:        port,
	}
}
