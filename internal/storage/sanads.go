package storage

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"github.com/smilemakc/idis/internal/domain"
	"github.com/smilemakc/idis/internal/idiserr"
)

// SanadModel is the bun row shape for sanads (spec §3). The transmission
// chain, grade explanation, and defects are stored as jsonb: they are
// read-and-replayed as a unit, never queried by sub-field, so there is no
// normalization benefit to a join table here.
type SanadModel struct {
	bun.BaseModel `bun:"table:sanads,alias:sn"`

	SanadID                  string                        `bun:"sanad_id,pk"`
	TenantID                 string                        `bun:"tenant_id,notnull"`
	ClaimID                  string                        `bun:"claim_id,notnull"`
	DealID                   string                        `bun:"deal_id,notnull"`
	PrimaryEvidenceID        string                        `bun:"primary_evidence_id,notnull"`
	CorroboratingEvidenceIDs []string                      `bun:"corroborating_evidence_ids,array"`
	TransmissionChain        []domain.TransmissionNode     `bun:"transmission_chain,type:jsonb"`
	ExtractionConfidence     float64                       `bun:"extraction_confidence,notnull"`
	DhabtScore               *float64                      `bun:"dhabt_score"`
	CorroborationStatus      string                        `bun:"corroboration_status,notnull"`
	SanadGrade               string                        `bun:"sanad_grade,notnull"`
	GradeExplanation         []domain.GradeExplanationStep `bun:"grade_explanation,type:jsonb"`
	Defects                  []domain.Defect               `bun:"defects,type:jsonb"`
	CreatedAt                time.Time                     `bun:"created_at,notnull"`
}

func sanadModelFromDomain(s domain.Sanad) *SanadModel {
	return &SanadModel{
		SanadID:                  s.SanadID,
		TenantID:                 s.TenantID,
		ClaimID:                  s.ClaimID,
		DealID:                   s.DealID,
		PrimaryEvidenceID:        s.PrimaryEvidenceID,
		CorroboratingEvidenceIDs: s.CorroboratingEvidenceIDs,
		TransmissionChain:        s.TransmissionChain,
		ExtractionConfidence:     s.ExtractionConfidence,
		DhabtScore:               s.DhabtScore,
		CorroborationStatus:      string(s.CorroborationStatus),
		SanadGrade:               string(s.SanadGrade),
		GradeExplanation:         s.GradeExplanation,
		Defects:                  s.Defects,
		CreatedAt:                s.CreatedAt,
	}
}

// SanadRepo is the bun-backed claims.SanadRepo.
type SanadRepo struct {
	db *bun.DB
}

// NewSanadRepo constructs a SanadRepo over an already-connected bun.DB.
func NewSanadRepo(db *bun.DB) *SanadRepo {
	return &SanadRepo{db: db}
}

func (r *SanadRepo) Insert(ctx context.Context, s domain.Sanad) error {
	model := sanadModelFromDomain(s)
	if _, err := r.db.NewInsert().Model(model).Exec(ctx); err != nil {
		return idiserr.Wrap(idiserr.InvalidInput, "storage: inserting sanad", err)
	}
	return nil
}

func (r *SanadRepo) Delete(ctx context.Context, tenantID, sanadID string) error {
	_, err := r.db.NewDelete().
		Model((*SanadModel)(nil)).
		Where("sanad_id = ?", sanadID).
		Where("tenant_id = ?", tenantID).
		Exec(ctx)
	if err != nil {
		return idiserr.Wrap(idiserr.InvalidInput, "storage: deleting sanad", err)
	}
	return nil
}
