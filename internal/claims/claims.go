// Package claims implements the claim service spec.md §3/§7/§8 references
// but does not name as its own numbered component: the sole mutation path
// for Claim rows, enforcing the ic_bound invariant, delegating grading to
// internal/sanad, and emitting exactly one audit event per mutation.
package claims

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/smilemakc/idis/internal/audit"
	"github.com/smilemakc/idis/internal/domain"
	"github.com/smilemakc/idis/internal/idiserr"
	"github.com/smilemakc/idis/internal/saga"
	"github.com/smilemakc/idis/internal/sanad"
)

// Repo is the relational store this service mutates through.
type Repo interface {
	Insert(ctx context.Context, claim domain.Claim) error
	Update(ctx context.Context, claim domain.Claim) error
	Delete(ctx context.Context, tenantID, claimID string) error
	Get(ctx context.Context, tenantID, claimID string) (*domain.Claim, error)
	List(ctx context.Context, tenantID, dealID string) ([]domain.Claim, error)
}

// SanadRepo persists the sanad a Grade call derives.
type SanadRepo interface {
	Insert(ctx context.Context, s domain.Sanad) error
	Delete(ctx context.Context, tenantID, sanadID string) error
}

// Service is ClaimService: Create/Grade/Get/List, the only path by which
// Claim rows are mutated (spec §3: "mutated only through the claim
// service, which enforces the invariant and emits an audit event").
type Service struct {
	claims Repo
	sanads SanadRepo
	engine *sanad.Engine
	sagas  *saga.Executor
	sink   audit.Sink
}

// NewService wires a claim service over its dependencies.
func NewService(claims Repo, sanads SanadRepo, engine *sanad.Engine, sink audit.Sink) *Service {
	return &Service{claims: claims, sanads: sanads, engine: engine, sagas: saga.NewExecutor(sink), sink: sink}
}

// Create inserts claim after enforcing the ic_bound invariant, then emits a
// single "claim.created" audit event. If audit emission fails, the insert
// is rolled back so no claim row survives the call (spec §8 scenario 6).
func (s *Service) Create(ctx context.Context, actorID string, claim domain.Claim) (domain.Claim, error) {
	if claim.ClaimID == "" {
		claim.ClaimID = uuid.NewString()
	}
	now := time.Now().UTC()
	claim.CreatedAt, claim.UpdatedAt = now, now
	if claim.ClaimVerdict == "" {
		claim.ClaimVerdict = domain.VerdictUnverified
	}

	if err := claim.ValidateInvariant(); err != nil {
		return domain.Claim{}, idiserr.Wrap(idiserr.InvalidInput, "claims: create", err)
	}

	sg := saga.Saga{
		TenantID: claim.TenantID,
		DealID:   claim.DealID,
		Name:     "claim.create",
		Steps: []saga.Step{{
			Name: "insert_claim",
			Forward: func(ctx context.Context, state map[string]any) (map[string]any, error) {
				if err := s.claims.Insert(ctx, claim); err != nil {
					return nil, fmt.Errorf("claims: inserting claim: %w", err)
				}
				return nil, nil
			},
			Compensate: func(ctx context.Context, state map[string]any) error {
				return s.claims.Delete(ctx, claim.TenantID, claim.ClaimID)
			},
		}},
	}

	log.Debug().Str("claim_id", claim.ClaimID).Str("deal_id", claim.DealID).Bool("ic_bound", claim.ICBound).Msg("inserting claim")
	if _, err := s.sagas.Run(ctx, sg); err != nil {
		log.Warn().Str("claim_id", claim.ClaimID).Err(err).Msg("claim create saga failed")
		return domain.Claim{}, err
	}

	if err := s.emit(ctx, actorID, claim.TenantID, claim.DealID, claim.ClaimID, "claim.created"); err != nil {
		_ = s.claims.Delete(ctx, claim.TenantID, claim.ClaimID)
		return domain.Claim{}, err
	}
	return claim, nil
}

// Grade derives the claim's Sanad via the grading engine, persists it, sets
// claim_grade/claim_verdict/claim_action/defect_ids from the derivation,
// and emits one "claim.graded" audit event. The sanad row and claim row
// are written by one dual-write saga of two steps, insert_sanad then
// update_claim (spec §9 Open Question:
// dual-store writes go through internal/saga).
func (s *Service) Grade(ctx context.Context, actorID string, in sanad.GradeInput) (domain.Claim, domain.Sanad, error) {
	existing, err := s.claims.Get(ctx, in.TenantID, in.ClaimID)
	if err != nil {
		return domain.Claim{}, domain.Sanad{}, err
	}

	derived := s.engine.Grade(in)
	derived.SanadID = uuid.NewString()
	derived.CreatedAt = time.Now().UTC()
	if err := derived.ValidateInvariants(); err != nil {
		return domain.Claim{}, domain.Sanad{}, idiserr.Wrap(idiserr.InvalidInput, "claims: grade", err)
	}

	updated := *existing
	updated.SanadID = &derived.SanadID
	updated.ClaimGrade = derived.SanadGrade
	updated.DefectIDs = defectIDs(derived.Defects)
	updated.ClaimVerdict, updated.ClaimAction = deriveVerdict(updated, derived)
	updated.UpdatedAt = time.Now().UTC()

	sg := saga.Saga{
		TenantID: updated.TenantID,
		DealID:   updated.DealID,
		Name:     "claim.grade",
		Steps: []saga.Step{{
			Name: "insert_sanad",
			Forward: func(ctx context.Context, state map[string]any) (map[string]any, error) {
				if err := s.sanads.Insert(ctx, derived); err != nil {
					return nil, fmt.Errorf("claims: inserting sanad: %w", err)
				}
				return nil, nil
			},
			Compensate: func(ctx context.Context, state map[string]any) error {
				return s.sanads.Delete(ctx, derived.TenantID, derived.SanadID)
			},
		}, {
			Name: "update_claim",
			Forward: func(ctx context.Context, state map[string]any) (map[string]any, error) {
				if err := s.claims.Update(ctx, updated); err != nil {
					return nil, fmt.Errorf("claims: updating claim: %w", err)
				}
				return nil, nil
			},
			Compensate: func(ctx context.Context, state map[string]any) error {
				return s.claims.Update(ctx, *existing)
			},
		}},
	}

	log.Debug().Str("claim_id", updated.ClaimID).Str("sanad_id", derived.SanadID).Str("grade", string(derived.SanadGrade)).Str("verdict", string(updated.ClaimVerdict)).Msg("grading claim")
	if _, err := s.sagas.Run(ctx, sg); err != nil {
		log.Warn().Str("claim_id", updated.ClaimID).Err(err).Msg("claim grade saga failed")
		return domain.Claim{}, domain.Sanad{}, err
	}

	if err := s.emit(ctx, actorID, updated.TenantID, updated.DealID, updated.ClaimID, "claim.graded"); err != nil {
		_ = s.claims.Update(ctx, *existing)
		_ = s.sanads.Delete(ctx, derived.TenantID, derived.SanadID)
		return domain.Claim{}, domain.Sanad{}, err
	}
	return updated, derived, nil
}

// Get returns one claim. Cross-tenant lookups must surface as NOT_FOUND
// with no distinguishing field (spec §8): callers pass the requesting
// tenant_id, and the Repo implementation scopes the read accordingly.
func (s *Service) Get(ctx context.Context, tenantID, claimID string) (*domain.Claim, error) {
	return s.claims.Get(ctx, tenantID, claimID)
}

// List returns every claim for a deal, scoped to tenantID.
func (s *Service) List(ctx context.Context, tenantID, dealID string) ([]domain.Claim, error) {
	return s.claims.List(ctx, tenantID, dealID)
}

func (s *Service) emit(ctx context.Context, actorID, tenantID, dealID, claimID, eventType string) error {
	event := domain.AuditEvent{
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		TenantID:   tenantID,
		Actor:      domain.AuditActor{ActorType: "USER", ActorID: actorID},
		Resource:   domain.AuditResource{ResourceType: "claim", ResourceID: claimID},
		EventType:  eventType,
		Severity:   domain.AuditLow,
		Summary:    fmt.Sprintf("%s: claim %s (deal %s)", eventType, claimID, dealID),
		Payload:    domain.AuditPayload{Safe: map[string]any{"claim_id": claimID, "deal_id": dealID}},
	}
	if err := s.sink.Emit(ctx, event); err != nil {
		return idiserr.Wrap(idiserr.AuditEmitFailed, "claims: emitting "+eventType, err)
	}
	return nil
}

func defectIDs(defects []domain.Defect) []string {
	ids := make([]string, 0, len(defects))
	for _, d := range defects {
		ids = append(ids, d.DefectID)
	}
	return ids
}

// deriveVerdict maps a claim's grounding state and its sanad's defects to
// the sealed verdict/action pair, per the scenario table in spec §8:
// contradictions (SHUDHUDH_*) verdict to CONTRADICTED, version drift to
// UNVERIFIED, any other FATAL defect to UNVERIFIED, and missing grounding
// on an ic_bound claim to BLOCKED with REJECT_NO_FREE_FACTS.
func deriveVerdict(claim domain.Claim, s domain.Sanad) (domain.ClaimVerdict, domain.ClaimAction) {
	if claim.ICBound {
		hasSanad := claim.SanadID != nil && *claim.SanadID != ""
		hasSpan := claim.PrimarySpanID != nil && *claim.PrimarySpanID != ""
		if !hasSanad && !hasSpan {
			return domain.VerdictBlocked, domain.ClaimActionRejectNoFreeFacts
		}
	}
	for _, d := range s.Defects {
		switch d.DefectType {
		case domain.DefectShudhudhAnomaly, domain.DefectShudhudhUnitMismatch, domain.DefectShudhudhTimeWindow:
			return domain.VerdictContradicted, domain.ClaimActionFlagForReview
		}
	}
	for _, d := range s.Defects {
		if d.DefectType == domain.DefectIlalVersionDrift {
			return domain.VerdictUnverified, domain.ClaimActionFlagForReview
		}
	}
	for _, d := range s.Defects {
		if d.Severity == domain.SeverityFatal {
			return domain.VerdictUnverified, domain.ClaimActionFlagForReview
		}
	}
	return domain.VerdictVerified, domain.ClaimActionAccept
}
