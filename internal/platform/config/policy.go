package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"trustgrid/internal/redaction"
	"trustgrid/internal/resolution/gate"
	"trustgrid/internal/resolution/models"
	dErrors "trustgrid/pkg/domain-errors"
)

// PolicySet is the operator-controlled resolution policy: which tiers each
// classification may reach and how provider data is redacted at boundaries.
type PolicySet struct {
	Gate       *gate.Gate
	Policies   map[string]redaction.Policy
	Assignment map[models.Classification]string
}

// policyFile is the YAML schema. Sections are independently optional;
// omitted sections keep the built-in defaults.
type policyFile struct {
	Gate              map[string][]string `yaml:"gate"`
	RedactionPolicies []struct {
		Name  string           `yaml:"name"`
		Rules []redaction.Rule `yaml:"rules"`
	} `yaml:"redaction_policies"`
	PolicyAssignment map[string]string `yaml:"policy_assignment"`
}

// DefaultPolicySet returns the built-in gate, policies, and assignment.
func DefaultPolicySet() *PolicySet {
	return &PolicySet{
		Gate:     gate.Default(),
		Policies: redaction.DefaultPolicies(),
		Assignment: map[models.Classification]string{
			models.ClassificationPublic:       "boundary-standard",
			models.ClassificationInternal:     "boundary-standard",
			models.ClassificationConfidential: "boundary-strict",
			models.ClassificationRestricted:   "boundary-strict",
		},
	}
}

// LoadPolicySet reads the YAML policy file and merges it over the defaults.
// An empty path returns the defaults unchanged.
//
// Errors: CodeInvalidInput for unreadable files, unknown enum values, or
// rules that fail policy validation.
func LoadPolicySet(path string) (*PolicySet, error) {
	set := DefaultPolicySet()
	if path == "" {
		return set, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "read policy file")
	}

	var file policyFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "parse policy file")
	}

	if len(file.Gate) > 0 {
		table := make(map[models.Classification][]models.ResolutionTier, len(file.Gate))
		for rawClass, rawTiers := range file.Gate {
			class, err := models.ParseClassification(rawClass)
			if err != nil {
				return nil, err
			}
			tiers := make([]models.ResolutionTier, 0, len(rawTiers))
			for _, rawTier := range rawTiers {
				tier, err := models.ParseResolutionTier(rawTier)
				if err != nil {
					return nil, err
				}
				tiers = append(tiers, tier)
			}
			table[class] = tiers
		}
		g, err := gate.New(table)
		if err != nil {
			return nil, err
		}
		set.Gate = g
	}

	for _, p := range file.RedactionPolicies {
		policy, err := redaction.NewPolicy(p.Name, p.Rules)
		if err != nil {
			return nil, err
		}
		set.Policies[policy.Name] = policy
	}

	for rawClass, name := range file.PolicyAssignment {
		class, err := models.ParseClassification(rawClass)
		if err != nil {
			return nil, err
		}
		if _, ok := set.Policies[name]; !ok {
			return nil, dErrors.New(dErrors.CodeInvalidInput,
				fmt.Sprintf("policy_assignment references unknown policy %q", name))
		}
		set.Assignment[class] = name
	}

	return set, nil
}
