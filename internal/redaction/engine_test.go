package redaction

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
)

type RedactionSuite struct {
	suite.Suite
	policy Policy
}

func TestRedactionSuite(t *testing.T) {
	suite.Run(t, new(RedactionSuite))
}

func (s *RedactionSuite) SetupTest() {
	policy, err := NewPolicy("test", []Rule{
		{Pattern: "*secret*", Strategy: StrategyRemove},
		{Pattern: "*credential*", Strategy: StrategyMask},
		{Pattern: "owner_*", Strategy: StrategyHash},
	})
	s.Require().NoError(err)
	s.policy = policy
}

func (s *RedactionSuite) TestStrategies() {
	data := map[string]string{
		"connection_secret": "hunter2",
		"credential_ref":    "vault://db-creds",
		"owner_email":       "ops@example.org",
		"region":            "eu-west-1",
	}

	out := Apply(data, s.policy)

	s.NotContains(out, "connection_secret")
	s.Equal("[REDACTED]", out["credential_ref"])
	s.True(strings.HasPrefix(out["owner_email"], "sha256:"))
	s.NotContains(out["owner_email"], "ops@example.org")
	s.Equal("eu-west-1", out["region"], "unmatched fields pass through")
}

func (s *RedactionSuite) TestInputNotMutated() {
	data := map[string]string{"credential_ref": "vault://db-creds"}
	_ = Apply(data, s.policy)
	s.Equal("vault://db-creds", data["credential_ref"])
}

// TestIdempotence pins apply(apply(x, p), p) == apply(x, p).
func (s *RedactionSuite) TestIdempotence() {
	data := map[string]string{
		"connection_secret": "hunter2",
		"credential_ref":    "vault://db-creds",
		"owner_email":       "ops@example.org",
		"region":            "eu-west-1",
	}

	once := Apply(data, s.policy)
	twice := Apply(once, s.policy)
	s.Equal(once, twice)
}

func (s *RedactionSuite) TestFirstMatchingRuleWins() {
	policy, err := NewPolicy("ordered", []Rule{
		{Pattern: "owner_email", Strategy: StrategyRemove},
		{Pattern: "owner_*", Strategy: StrategyHash},
	})
	s.Require().NoError(err)

	out := Apply(map[string]string{
		"owner_email": "ops@example.org",
		"owner_team":  "platform",
	}, policy)

	s.NotContains(out, "owner_email")
	s.True(strings.HasPrefix(out["owner_team"], "sha256:"))
}

func (s *RedactionSuite) TestPolicyValidation() {
	_, err := NewPolicy("", nil)
	s.Error(err)

	_, err = NewPolicy("bad-strategy", []Rule{{Pattern: "*", Strategy: "obfuscate"}})
	s.Error(err)

	_, err = NewPolicy("bad-pattern", []Rule{{Pattern: "[", Strategy: StrategyMask}})
	s.Error(err)
}

func (s *RedactionSuite) TestEmptyData() {
	s.Nil(Apply(nil, s.policy))
	s.Nil(Apply(map[string]string{}, s.policy))
}

func (s *RedactionSuite) TestDefaultPoliciesAreValid() {
	defaults := DefaultPolicies()
	s.Contains(defaults, "boundary-standard")
	s.Contains(defaults, "boundary-strict")

	out := Apply(map[string]string{"api_token": "abc123"}, defaults["boundary-standard"])
	s.Equal("[REDACTED]", out["api_token"])
}
