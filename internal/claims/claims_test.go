package claims

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smilemakc/idis/internal/domain"
	"github.com/smilemakc/idis/internal/idiserr"
	"github.com/smilemakc/idis/internal/sanad"
)

type memClaimRepo struct {
	mu     sync.Mutex
	claims map[string]domain.Claim
}

func newMemClaimRepo() *memClaimRepo { return &memClaimRepo{claims: map[string]domain.Claim{}} }

func (r *memClaimRepo) Insert(_ context.Context, c domain.Claim) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.claims[c.ClaimID] = c
	return nil
}

func (r *memClaimRepo) Update(_ context.Context, c domain.Claim) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.claims[c.ClaimID]; !ok {
		return idiserr.New(idiserr.NotFound, "claim not found")
	}
	r.claims[c.ClaimID] = c
	return nil
}

func (r *memClaimRepo) Delete(_ context.Context, tenantID, claimID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.claims, claimID)
	return nil
}

func (r *memClaimRepo) Get(_ context.Context, tenantID, claimID string) (*domain.Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.claims[claimID]
	if !ok || c.TenantID != tenantID {
		return nil, idiserr.New(idiserr.NotFound, "claim not found")
	}
	return &c, nil
}

func (r *memClaimRepo) List(_ context.Context, tenantID, dealID string) ([]domain.Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Claim
	for _, c := range r.claims {
		if c.TenantID == tenantID && c.DealID == dealID {
			out = append(out, c)
		}
	}
	return out, nil
}

type memSanadRepo struct {
	mu     sync.Mutex
	sanads map[string]domain.Sanad
}

func newMemSanadRepo() *memSanadRepo { return &memSanadRepo{sanads: map[string]domain.Sanad{}} }

func (r *memSanadRepo) Insert(_ context.Context, s domain.Sanad) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sanads[s.SanadID] = s
	return nil
}

func (r *memSanadRepo) Delete(_ context.Context, tenantID, sanadID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sanads, sanadID)
	return nil
}

type fakeSink struct {
	mu     sync.Mutex
	events []domain.AuditEvent
	fail   bool
}

func (f *fakeSink) Emit(_ context.Context, event domain.AuditEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("sink down")
	}
	f.events = append(f.events, event)
	return nil
}

func newService(claims *memClaimRepo, sanads *memSanadRepo, sink *fakeSink) *Service {
	return NewService(claims, sanads, sanad.NewEngine(), sink)
}

func strPtr(s string) *string { return &s }

func baseClaim() domain.Claim {
	return domain.Claim{
		TenantID:    "tenant_1",
		DealID:      "deal_001",
		ClaimClass:  "financial",
		ClaimText:   "ARR is $5.2M",
		Materiality: domain.MaterialityHigh,
		ICBound:     false,
	}
}

func TestCreate_PersistsAndEmitsOneAuditEvent(t *testing.T) {
	claims, sanads, sink := newMemClaimRepo(), newMemSanadRepo(), &fakeSink{}
	svc := newService(claims, sanads, sink)

	created, err := svc.Create(context.Background(), "actor_1", baseClaim())
	require.NoError(t, err)
	assert.NotEmpty(t, created.ClaimID)

	stored, err := claims.Get(context.Background(), "tenant_1", created.ClaimID)
	require.NoError(t, err)
	assert.Equal(t, created.ClaimID, stored.ClaimID)

	require.Len(t, sink.events, 1)
	assert.Equal(t, "claim.created", sink.events[0].EventType)
}

func TestCreate_ICBoundWithoutEvidence_FailsInvalid(t *testing.T) {
	claims, sanads, sink := newMemClaimRepo(), newMemSanadRepo(), &fakeSink{}
	svc := newService(claims, sanads, sink)

	c := baseClaim()
	c.ICBound = true

	_, err := svc.Create(context.Background(), "actor_1", c)
	require.Error(t, err)
	kind, ok := idiserr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, idiserr.InvalidInput, kind)
}

func TestCreate_AuditSinkDown_LeavesNoClaimRow(t *testing.T) {
	claims, sanads, sink := newMemClaimRepo(), newMemSanadRepo(), &fakeSink{fail: true}
	svc := newService(claims, sanads, sink)

	_, err := svc.Create(context.Background(), "actor_1", baseClaim())
	require.Error(t, err)
	kind, ok := idiserr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, idiserr.AuditEmitFailed, kind)

	list, err := claims.List(context.Background(), "tenant_1", "deal_001")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func evidence(id, sourceSystem, origin string, tier domain.SourceTier) *domain.EvidenceItem {
	return &domain.EvidenceItem{
		EvidenceID:             id,
		SourceSystem:           sourceSystem,
		UpstreamOriginID:       origin,
		SourceType:             string(tier),
		Tier:                   tier,
		DocumentationPrecision: 0.9,
		TransmissionPrecision:  0.9,
		TemporalPrecision:      0.9,
		CognitivePrecision:     0.9,
	}
}

func TestGrade_ContradictionDefect_SetsVerdictContradicted(t *testing.T) {
	claims, sanads, sink := newMemClaimRepo(), newMemSanadRepo(), &fakeSink{}
	svc := newService(claims, sanads, sink)

	c := baseClaim()
	c.ClaimID = "C1"
	require.NoError(t, claims.Insert(context.Background(), c))

	deck := evidence("ev_deck", "deck", "doc_a", domain.TierThiqahThabit)
	model := evidence("ev_model", "model", "doc_b", domain.TierSaduq)
	now := time.Now()

	graded, gradedSanad, err := svc.Grade(context.Background(), "actor_1", sanad.GradeInput{
		ClaimID:           "C1",
		DealID:            "deal_001",
		TenantID:          "tenant_1",
		Materiality:       domain.MaterialityHigh,
		PrimaryEvidence:   deck,
		TransmissionChain: []domain.TransmissionNode{{NodeID: "n1", Timestamp: now}},
		Attestations: []sanad.Attestation{
			{Evidence: deck, Value: 5_200_000, Unit: "USD"},
			{Evidence: model, Value: 4_800_000, Unit: "USD"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.VerdictContradicted, graded.ClaimVerdict)
	assert.NotEmpty(t, gradedSanad.SanadID)

	require.Len(t, sink.events, 1)
	assert.Equal(t, "claim.graded", sink.events[0].EventType)
}

func TestGrade_ChainBreak_GradeDAndUnverified(t *testing.T) {
	claims, sanads, sink := newMemClaimRepo(), newMemSanadRepo(), &fakeSink{}
	svc := newService(claims, sanads, sink)

	c := baseClaim()
	c.ClaimID = "C3"
	require.NoError(t, claims.Insert(context.Background(), c))

	primary := evidence("ev1", "deck", "doc_a", domain.TierThiqahThabit)
	chain := []domain.TransmissionNode{
		{NodeID: "n1", PrevNodeID: strPtr("missing_parent"), Timestamp: time.Now()},
	}

	graded, _, err := svc.Grade(context.Background(), "actor_1", sanad.GradeInput{
		ClaimID:           "C3",
		DealID:            "deal_001",
		TenantID:          "tenant_1",
		Materiality:       domain.MaterialityHigh,
		PrimaryEvidence:   primary,
		TransmissionChain: chain,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.GradeD, graded.ClaimGrade)
	assert.Equal(t, domain.VerdictUnverified, graded.ClaimVerdict)
}

func TestGrade_AuditSinkDown_RollsBackClaimAndSanad(t *testing.T) {
	claims, sanads, sink := newMemClaimRepo(), newMemSanadRepo(), &fakeSink{}
	svc := newService(claims, sanads, sink)

	c := baseClaim()
	c.ClaimID = "C1"
	require.NoError(t, claims.Insert(context.Background(), c))

	primary := evidence("ev1", "deck", "doc_a", domain.TierThiqahThabit)
	chain := []domain.TransmissionNode{{NodeID: "n1", Timestamp: time.Now()}}

	sink.fail = true
	_, _, err := svc.Grade(context.Background(), "actor_1", sanad.GradeInput{
		ClaimID:           "C1",
		DealID:            "deal_001",
		TenantID:          "tenant_1",
		Materiality:       domain.MaterialityMedium,
		PrimaryEvidence:   primary,
		TransmissionChain: chain,
	})
	require.Error(t, err)
	kind, ok := idiserr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, idiserr.AuditEmitFailed, kind)

	reverted, err := claims.Get(context.Background(), "tenant_1", "C1")
	require.NoError(t, err)
	assert.Nil(t, reverted.SanadID)
	assert.Empty(t, sanads.sanads)
}

func TestGet_CrossTenant_FailsNotFound(t *testing.T) {
	claims, sanads, sink := newMemClaimRepo(), newMemSanadRepo(), &fakeSink{}
	svc := newService(claims, sanads, sink)

	created, err := svc.Create(context.Background(), "actor_1", baseClaim())
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), "other_tenant", created.ClaimID)
	require.Error(t, err)
	kind, ok := idiserr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, idiserr.NotFound, kind)
}
