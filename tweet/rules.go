package tweet

import (
	"fmt"
	"regexp"
	"strings"
)

// Draft holds the segments of a post while cleanup rules run.
type Draft struct {
	Title       string
	Description string
	URL         string
	Hashtag     string
}

// Rule rewrites a draft. Rules only run when the description is non-empty.
type Rule struct {
	Name  string
	Apply func(d *Draft)
}

// Rule names accepted in configuration.
const (
	RuleLearnHowTo      = "learn-how-to"
	RuleRedundantTitle  = "redundant-title"
	RuleFeatureState    = "feature-state"
	RuleSynopsis        = "synopsis"
	RuleTrimDescription = "trim"
)

const featureStateMarker = "FEATURE STATE:"

var (
	thisPageRegex     = regexp.MustCompile(`^This page \w+ how to`)
	featureStateRegex = regexp.MustCompile(`FEATURE STATE: Kubernetes v[0-9][0-9.]* \[\w+\]\s*`)
	synopsisRegex     = regexp.MustCompile(`\sSynopsis`)
)

var knownRules = map[string]Rule{
	RuleLearnHowTo: {Name: RuleLearnHowTo, Apply: func(d *Draft) {
		d.Description = thisPageRegex.ReplaceAllString(d.Description, "Learn how to")
	}},
	RuleRedundantTitle: {Name: RuleRedundantTitle, Apply: func(d *Draft) {
		if d.Title != "" && strings.HasPrefix(strings.ToLower(d.Description), strings.ToLower(d.Title)) {
			d.Title = ""
		}
	}},
	RuleFeatureState: {Name: RuleFeatureState, Apply: func(d *Draft) {
		if strings.Contains(d.Description, featureStateMarker) {
			d.Description = featureStateRegex.ReplaceAllString(d.Description, "")
		}
	}},
	RuleSynopsis: {Name: RuleSynopsis, Apply: func(d *Draft) {
		d.Description = synopsisRegex.ReplaceAllString(d.Description, ".")
	}},
	RuleTrimDescription: {Name: RuleTrimDescription, Apply: func(d *Draft) {
		d.Description = strings.TrimSpace(d.Description)
	}},
}

// DefaultRuleNames lists every cleanup rule in application order.
var DefaultRuleNames = []string{
	RuleLearnHowTo,
	RuleRedundantTitle,
	RuleFeatureState,
	RuleSynopsis,
	RuleTrimDescription,
}

// DefaultRules returns the full cleanup pipeline.
func DefaultRules() []Rule {
	rules, _ := RulesByName(DefaultRuleNames)
	return rules
}

// RulesByName resolves rule names, keeping the given order.
func RulesByName(names []string) ([]Rule, error) {
	rules := make([]Rule, 0, len(names))
	for _, name := range names {
		r, ok := knownRules[name]
		if !ok {
			return nil, fmt.Errorf("unknown rule %q", name)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

func applyRules(d *Draft, rules []Rule) {
	for _, r := range rules {
		if d.Description == "" {
			return
		}
		r.Apply(d)
	}
}
