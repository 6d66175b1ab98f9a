// Package service implements tiered resolution: the ordered escalation loop
// that walks the trust ladder, admits candidates by proof, delegates flat
// matching to the resolver, and attaches boundary redaction to the winner.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"trustgrid/internal/redaction"
	"trustgrid/internal/registry"
	"trustgrid/internal/resolution/gate"
	"trustgrid/internal/resolution/metrics"
	"trustgrid/internal/resolution/models"
	"trustgrid/internal/resolution/ports"
	"trustgrid/internal/resolution/resolver"
	"trustgrid/internal/trust"
	dErrors "trustgrid/pkg/domain-errors"
	"trustgrid/pkg/platform/audit"
	"trustgrid/pkg/platform/sentinel"
	"trustgrid/pkg/requestcontext"
)

// maxBatchConcurrency bounds parallel tiered resolutions in ResolveAll.
const maxBatchConcurrency = 8

// Service is the tiered resolver. It is safe for concurrent use: every call
// works off one registry snapshot and the gate and policies are immutable
// after construction.
type Service struct {
	registry registry.Registry
	tokens   ports.TokenSource
	verifier ports.TokenVerifier
	gate     *gate.Gate

	policies      map[string]redaction.Policy
	policyByClass map[models.Classification]string

	audit   ports.AuditPublisher
	clock   ports.Clock
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer

	org string
	bus string
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics attaches resolution metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithAudit sets the audit sink. Defaults to a no-op publisher.
func WithAudit(pub ports.AuditPublisher) Option {
	return func(s *Service) { s.audit = pub }
}

// WithClock overrides the time source. Tests use this to make attempt
// timestamps and token windows reproducible.
func WithClock(clock ports.Clock) Option {
	return func(s *Service) { s.clock = clock }
}

// WithRedactionPolicies replaces the policy catalog and the
// classification → policy-name assignment. Every assigned name must exist in
// the catalog; New rejects dangling assignments.
func WithRedactionPolicies(policies map[string]redaction.Policy, byClass map[models.Classification]string) Option {
	return func(s *Service) {
		s.policies = policies
		s.policyByClass = byClass
	}
}

// WithOrganization sets the trust domain that ORG_MEMBERSHIP proofs must
// match.
func WithOrganization(org string) Option {
	return func(s *Service) { s.org = org }
}

// WithBus names the event bus BUS_MEMBERSHIP proofs are checked against.
func WithBus(bus string) Option {
	return func(s *Service) { s.bus = bus }
}

// New constructs the tiered resolver.
//
// Errors: CodeInvalidInput when a required dependency is nil or a
// classification is assigned a redaction policy the catalog does not hold.
func New(reg registry.Registry, tokens ports.TokenSource, verifier ports.TokenVerifier, g *gate.Gate, opts ...Option) (*Service, error) {
	if reg == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "registry is required")
	}
	if tokens == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "token source is required")
	}
	if verifier == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "token verifier is required")
	}
	if g == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "classification gate is required")
	}

	s := &Service{
		registry:      reg,
		tokens:        tokens,
		verifier:      verifier,
		gate:          g,
		policies:      redaction.DefaultPolicies(),
		policyByClass: defaultPolicyAssignment(),
		audit:         noopAudit{},
		clock:         time.Now,
		logger:        slog.Default(),
		tracer:        otel.Tracer("trustgrid/resolution"),
	}
	for _, opt := range opts {
		opt(s)
	}

	for class, name := range s.policyByClass {
		if _, ok := s.policies[name]; !ok {
			return nil, dErrors.New(dErrors.CodeInvalidInput,
				fmt.Sprintf("classification %s assigned unknown redaction policy %q", class, name))
		}
	}
	return s, nil
}

// defaultPolicyAssignment maps classifications to boundary policies for hops
// that cross the local trust domain. Higher sensitivity gets the stricter
// policy; RESTRICTED is included for completeness even though the default
// gate keeps it local.
func defaultPolicyAssignment() map[models.Classification]string {
	return map[models.Classification]string{
		models.ClassificationPublic:       "boundary-standard",
		models.ClassificationInternal:     "boundary-standard",
		models.ClassificationConfidential: "boundary-strict",
		models.ClassificationRestricted:   "boundary-strict",
	}
}

// Resolve walks the tier ladder for one requirement set. Escalation is
// strictly sequential and stops at the first tier that yields a binding.
//
// Per-tier failures are recorded in the result's attempt history, never
// returned as errors. Only malformed input and registry unavailability
// surface as errors.
//
// Errors: CodeInvalidInput / CodeInvariantViolation for malformed requests,
// CodeInternal when the registry snapshot cannot be loaded.
func (s *Service) Resolve(ctx context.Context, rs models.RequirementSet, class models.Classification) (*models.Result, error) {
	if err := rs.Validate(); err != nil {
		return nil, err
	}
	if !class.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown classification "+class.String())
	}

	ctx, span := s.tracer.Start(ctx, "resolution.Resolve",
		trace.WithAttributes(
			attribute.String("requirement.name", rs.Name),
			attribute.String("classification", class.String()),
		))
	defer span.End()

	started := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ResolveDuration.Observe(time.Since(started).Seconds())
		}
	}()

	snapshot, err := s.registry.Snapshot(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load registry snapshot")
	}

	result := &models.Result{Requirement: rs, Classification: class}
	allowed := s.gate.Allowed(class)
	if len(allowed) == 0 {
		// A known classification with no reachable tiers is a policy
		// decision, not a caller error: fail closed with a result.
		result.FailureCode = models.FailureClassificationViolation
		result.FailureReason = "classification " + class.String() + " permits no resolution tiers"
		s.finish(ctx, span, result)
		return result, nil
	}

	for _, tier := range allowed {
		if ctx.Err() != nil {
			break
		}
		attempt := s.attemptTier(ctx, snapshot, tier, rs)
		result.Attempts = append(result.Attempts, attempt.record)
		span.AddEvent("tier_attempt", trace.WithAttributes(
			attribute.String("tier", tier.String()),
			attribute.String("result", attemptLabel(attempt.record)),
			attribute.Int("candidates", attempt.record.CandidateCount),
		))
		if s.metrics != nil {
			s.metrics.ObserveTierAttempt(tier.String(), attemptLabel(attempt.record))
		}
		if attempt.binding != nil {
			result.Success = true
			result.Plan = s.buildPlan(tier, class, attempt.binding)
			break
		}
	}

	if !result.Success {
		if ctx.Err() != nil {
			result.FailureCode = models.FailureTimeout
			result.FailureReason = "deadline elapsed during tier escalation"
		} else {
			result.FailureCode = models.FailureTierExhausted
			result.FailureReason = fmt.Sprintf("all %d permitted tiers failed", len(allowed))
		}
	}

	s.finish(ctx, span, result)
	return result, nil
}

// ResolveAll resolves a batch of requirement sets independently under one
// classification. Outcomes come back in input order; a malformed requirement
// fails its own slot with CONSTRAINT_CONFLICT instead of aborting the batch.
//
// Errors: CodeInternal when any resolution fails for infrastructure reasons.
func (s *Service) ResolveAll(ctx context.Context, requirements []models.RequirementSet, class models.Classification) ([]*models.Result, error) {
	results := make([]*models.Result, len(requirements))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxBatchConcurrency)
	for i, rs := range requirements {
		g.Go(func() error {
			res, err := s.Resolve(gctx, rs, class)
			if err != nil {
				if dErrors.HasCode(err, dErrors.CodeInvalidInput) || dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
					results[i] = &models.Result{
						Requirement:    rs,
						Classification: class,
						FailureCode:    models.FailureConstraintConflict,
						FailureReason:  err.Error(),
					}
					return nil
				}
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// tierOutcome pairs the attempt record with the binding, when one was made.
type tierOutcome struct {
	record  models.TierAttempt
	binding *models.Binding
}

func (s *Service) attemptTier(ctx context.Context, snapshot *registry.Snapshot, tier models.ResolutionTier, rs models.RequirementSet) tierOutcome {
	record := models.TierAttempt{Tier: tier, Timestamp: s.clock().UTC()}

	candidates := snapshot.ProvidersForTier(tier, false)
	if len(candidates) == 0 {
		record.FailureCode = models.FailureNoProviders
		return tierOutcome{record: record}
	}

	admitted, proofs, dropCode := s.admit(ctx, tier, rs, candidates)
	record.Proofs = proofs
	record.CandidateCount = len(admitted)
	if len(admitted) == 0 {
		record.FailureCode = dropCode
		return tierOutcome{record: record}
	}

	outcome := resolver.Resolve(rs, admitted)
	if !outcome.OK() {
		record.FailureCode = outcome.FailureCode
		s.logger.DebugContext(ctx, "tier attempt failed",
			"tier", tier.String(), "failure_code", outcome.FailureCode.String(), "reason", outcome.Reason)
		return tierOutcome{record: record}
	}

	record.Success = true
	return tierOutcome{record: record, binding: outcome.Binding}
}

// admit filters candidates through the tier's proof obligations. Tiers
// without obligations admit everyone. Candidate drops are recorded as data;
// one bad token never ejects the rest of the pool.
func (s *Service) admit(ctx context.Context, tier models.ResolutionTier, rs models.RequirementSet, candidates []models.ProviderDescriptor) ([]models.ProviderDescriptor, []models.ResolutionProof, models.FailureCode) {
	required := tier.RequiredProofs()
	if len(required) == 0 {
		return candidates, nil, models.FailureNone
	}

	now := s.clock()
	var (
		admitted []models.ProviderDescriptor
		proofs   []models.ResolutionProof
		drops    = make(map[models.FailureCode]int)
	)

	for _, candidate := range candidates {
		token, err := s.tokens.TokenFor(ctx, candidate.ProviderID)
		if err != nil {
			drops[models.FailureProofVerification]++
			s.observeProofFailure(ctx, candidate.ProviderID, "no capability token presented")
			continue
		}

		if err := s.verifier.VerifyToken(token, now); err != nil {
			code := models.FailureTokenSignatureInvalid
			if errors.Is(err, sentinel.ErrExpired) {
				code = models.FailureTokenExpired
			}
			drops[code]++
			s.observeProofFailure(ctx, candidate.ProviderID, err.Error())
			continue
		}

		pctx := trustContext(s.org, s.bus, rs, candidate)
		verified := true
		for _, pt := range required {
			proof := s.verifier.VerifyProof(ctx, pt, token, pctx)
			proofs = append(proofs, proof)
			if !proof.Verified {
				verified = false
				drops[models.FailureProofVerification]++
				s.observeProofFailure(ctx, candidate.ProviderID, proof.Notes)
				break
			}
		}
		if verified {
			admitted = append(admitted, candidate)
		}
	}

	if len(admitted) > 0 {
		return admitted, proofs, models.FailureNone
	}
	return nil, proofs, dominantDrop(drops)
}

// dominantDrop picks the attempt-level failure code when every candidate was
// dropped: a uniform cause keeps its specific code, a mixed pool collapses
// to the generic proof failure.
func dominantDrop(drops map[models.FailureCode]int) models.FailureCode {
	if len(drops) == 1 {
		for code := range drops {
			return code
		}
	}
	return models.FailureProofVerification
}

func (s *Service) buildPlan(tier models.ResolutionTier, class models.Classification, binding *models.Binding) *models.RoutePlan {
	hop := models.RouteHop{
		Tier:     tier,
		Provider: binding.Provider,
		Isolated: tier == models.TierQuarantine,
	}

	// Local tiers stay inside the trust domain; nothing crosses a boundary.
	if tier != models.TierLocalExact && tier != models.TierLocalCompatible {
		policy, ok := s.policies[s.policyByClass[class]]
		if ok {
			hop.Provider.Attributes = redaction.Apply(hop.Provider.Attributes, policy)
			hop.RedactionPolicy = policy.Name
		} else {
			// New validates assignments, so this is unreachable unless the
			// catalog was mutated. Strip everything rather than leak.
			hop.Provider.Attributes = nil
		}
	}

	return &models.RoutePlan{Hop: hop, Score: binding.Score}
}

func (s *Service) finish(ctx context.Context, span trace.Span, result *models.Result) {
	span.SetAttributes(
		attribute.Bool("resolution.success", result.Success),
		attribute.Int("resolution.attempts", len(result.Attempts)),
		attribute.String("resolution.failure_code", result.FailureCode.String()),
	)

	outcome := "resolved"
	if !result.Success {
		outcome = result.FailureCode.String()
	}
	if s.metrics != nil {
		s.metrics.ObserveOutcome(outcome)
	}

	event := audit.Event{
		Category:       audit.Categorize(result),
		Timestamp:      s.clock().UTC(),
		RequestID:      requestcontext.RequestID(ctx),
		Action:         audit.ActionFor(result),
		Classification: result.Classification.String(),
		Result:         result,
	}
	// Audit is fire-and-forget; a sink failure never fails the resolution.
	// Use a detached context so an expired request deadline cannot drop the
	// event.
	if err := s.audit.Emit(context.WithoutCancel(ctx), event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed",
			"action", event.Action, "error", err)
	}

	if result.Success {
		s.logger.InfoContext(ctx, "resolution succeeded",
			"requirement", result.Requirement.Name,
			"tier", result.Plan.Hop.Tier.String(),
			"provider_id", result.Plan.Hop.Provider.ProviderID,
			"isolated", result.Plan.Hop.Isolated)
	} else {
		s.logger.InfoContext(ctx, "resolution failed",
			"requirement", result.Requirement.Name,
			"failure_code", result.FailureCode.String(),
			"attempts", len(result.Attempts))
	}
}

func (s *Service) observeProofFailure(ctx context.Context, providerID, notes string) {
	if s.metrics != nil {
		s.metrics.ProofFailures.Inc()
	}
	s.logger.DebugContext(ctx, "candidate dropped",
		"provider_id", providerID, "reason", notes)
}

// trustContext assembles the proof context for one candidate: the token must
// be bound to the candidate node and cover the request's hard requirements.
func trustContext(org, bus string, rs models.RequirementSet, candidate models.ProviderDescriptor) trust.ProofContext {
	return trust.ProofContext{
		RequiredOrg:         org,
		ClaimedCapabilities: rs.Must,
		SubjectNodeID:       candidate.ProviderID,
		Bus:                 bus,
	}
}

// noopAudit is the default sink when no publisher is wired.
type noopAudit struct{}

func (noopAudit) Emit(context.Context, audit.Event) error { return nil }

func attemptLabel(record models.TierAttempt) string {
	if record.Success {
		return "success"
	}
	return record.FailureCode.String()
}
