package models

import (
	"testing"

	"github.com/stretchr/testify/suite"

	dErrors "trustgrid/pkg/domain-errors"
)

type RequirementSuite struct {
	suite.Suite
}

func TestRequirementSuite(t *testing.T) {
	suite.Run(t, new(RequirementSuite))
}

func (s *RequirementSuite) TestConstruction() {
	s.Run("valid set is normalized", func() {
		rs, err := NewRequirementSet("db", []string{"db.postgres", "db.ha"}, []string{"deprecated"}, nil, SelectBestScore)
		s.Require().NoError(err)
		s.Equal([]string{"db.ha", "db.postgres"}, rs.Must)
		s.Equal([]string{"deprecated"}, rs.Forbid)
	})

	s.Run("duplicates and padding are dropped", func() {
		rs, err := NewRequirementSet("db", []string{" db.postgres ", "db.postgres", "db.ha"}, nil, nil, SelectBestScore)
		s.Require().NoError(err)
		s.Equal([]string{"db.ha", "db.postgres"}, rs.Must)
	})

	s.Run("whitespace-only must is rejected", func() {
		_, err := NewRequirementSet("db", []string{"  "}, nil, nil, SelectBestScore)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("must and forbid overlap is rejected eagerly", func() {
		_, err := NewRequirementSet("db", []string{"db.postgres"}, []string{"db.postgres"}, nil, SelectBestScore)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("empty must is rejected", func() {
		_, err := NewRequirementSet("db", nil, nil, nil, SelectBestScore)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("unknown policy is rejected", func() {
		_, err := NewRequirementSet("db", []string{"db.postgres"}, nil, nil, SelectionPolicy("closest"))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *RequirementSuite) TestConstructionCopiesInputs() {
	must := []string{"cache.redis"}
	rs, err := NewRequirementSet("cache", must, nil, nil, SelectAutoIfUnique)
	s.Require().NoError(err)

	must[0] = "mutated"
	s.Equal([]string{"cache.redis"}, rs.Must)
}

func (s *RequirementSuite) TestWithExplicitProvider() {
	rs, err := NewRequirementSet("db", []string{"db.postgres"}, nil, nil, SelectRequireExplicit)
	s.Require().NoError(err)

	named := rs.WithExplicitProvider("pg-primary")
	s.Equal("pg-primary", named.ExplicitProvider)
	s.Empty(rs.ExplicitProvider, "original must stay untouched")
}

func (s *RequirementSuite) TestValidateMirrorsConstructor() {
	rs := RequirementSet{
		Name:   "wire-decoded",
		Must:   []string{"queue.kafka"},
		Forbid: []string{"queue.kafka"},
		Policy: SelectBestScore,
	}
	s.True(dErrors.HasCode(rs.Validate(), dErrors.CodeInvariantViolation))
}
