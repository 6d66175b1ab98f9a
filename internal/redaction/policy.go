// Package redaction applies field-level redaction to provider data crossing
// a trust boundary. Policies are configuration: loaded once, never mutated
// at resolution time.
package redaction

import (
	"path"

	dErrors "trustgrid/pkg/domain-errors"
)

// Strategy is what happens to a matched field.
type Strategy string

const (
	// StrategyMask replaces the value with a fixed marker.
	StrategyMask Strategy = "mask"
	// StrategyHash replaces the value with a one-way digest.
	StrategyHash Strategy = "hash"
	// StrategyRemove drops the field entirely.
	StrategyRemove Strategy = "remove"
)

var validStrategies = map[Strategy]bool{
	StrategyMask:   true,
	StrategyHash:   true,
	StrategyRemove: true,
}

// IsValid checks if the strategy is one of the supported enum values.
func (s Strategy) IsValid() bool {
	return validStrategies[s]
}

// Rule maps a field-name glob pattern to a strategy. Rules are evaluated in
// order; the first match wins.
type Rule struct {
	Pattern  string   `json:"pattern" yaml:"pattern"`
	Strategy Strategy `json:"strategy" yaml:"strategy"`
}

// Policy is a named, ordered rule list.
type Policy struct {
	Name  string `json:"policy_name" yaml:"name"`
	Rules []Rule `json:"rules" yaml:"rules"`
}

// NewPolicy validates patterns and strategies eagerly so resolution-time
// application can never fail.
func NewPolicy(name string, rules []Rule) (Policy, error) {
	if name == "" {
		return Policy{}, dErrors.New(dErrors.CodeInvalidInput, "policy name is required")
	}
	for _, r := range rules {
		if !r.Strategy.IsValid() {
			return Policy{}, dErrors.New(dErrors.CodeInvalidInput,
				"invalid redaction strategy for pattern "+r.Pattern)
		}
		if _, err := path.Match(r.Pattern, "probe"); err != nil {
			return Policy{}, dErrors.New(dErrors.CodeInvalidInput,
				"invalid redaction pattern "+r.Pattern)
		}
	}
	return Policy{Name: name, Rules: append([]Rule(nil), rules...)}, nil
}

// match returns the strategy for a field name, or false when no rule matches.
func (p Policy) match(field string) (Strategy, bool) {
	for _, r := range p.Rules {
		if ok, _ := path.Match(r.Pattern, field); ok {
			return r.Strategy, true
		}
	}
	return "", false
}

// DefaultPolicies returns the built-in boundary policies, keyed by name.
// Config may override or extend them.
func DefaultPolicies() map[string]Policy {
	standard, _ := NewPolicy("boundary-standard", []Rule{
		{Pattern: "*secret*", Strategy: StrategyRemove},
		{Pattern: "*password*", Strategy: StrategyRemove},
		{Pattern: "*credential*", Strategy: StrategyMask},
		{Pattern: "*token*", Strategy: StrategyMask},
		{Pattern: "owner_*", Strategy: StrategyHash},
	})
	strict, _ := NewPolicy("boundary-strict", []Rule{
		{Pattern: "*secret*", Strategy: StrategyRemove},
		{Pattern: "*password*", Strategy: StrategyRemove},
		{Pattern: "*credential*", Strategy: StrategyRemove},
		{Pattern: "*token*", Strategy: StrategyRemove},
		{Pattern: "*endpoint*", Strategy: StrategyHash},
		{Pattern: "*", Strategy: StrategyMask},
	})
	return map[string]Policy{
		standard.Name: standard,
		strict.Name:   strict,
	}
}
