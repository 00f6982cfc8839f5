package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"github.com/smilemakc/idis/internal/domain"
	"github.com/smilemakc/idis/internal/idiserr"
)

// ClaimModel is the bun row shape for claims (spec §3).
type ClaimModel struct {
	bun.BaseModel `bun:"table:claims,alias:cl"`

	ClaimID       string    `bun:"claim_id,pk"`
	TenantID      string    `bun:"tenant_id,notnull"`
	DealID        string    `bun:"deal_id,notnull"`
	ClaimClass    string    `bun:"claim_class,notnull"`
	ClaimText     string    `bun:"claim_text,notnull"`
	Predicate     *string   `bun:"predicate"`
	Value         *string   `bun:"value"`
	SanadID       *string   `bun:"sanad_id"`
	ClaimGrade    string    `bun:"claim_grade"`
	ClaimVerdict  string    `bun:"claim_verdict,notnull"`
	ClaimAction   string    `bun:"claim_action"`
	DefectIDs     []string  `bun:"defect_ids,array"`
	Materiality   string    `bun:"materiality,notnull"`
	ICBound       bool      `bun:"ic_bound,notnull"`
	PrimarySpanID *string   `bun:"primary_span_id"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
	UpdatedAt     time.Time `bun:"updated_at,notnull"`
}

func claimModelFromDomain(c domain.Claim) *ClaimModel {
	return &ClaimModel{
		ClaimID:       c.ClaimID,
		TenantID:      c.TenantID,
		DealID:        c.DealID,
		ClaimClass:    c.ClaimClass,
		ClaimText:     c.ClaimText,
		Predicate:     c.Predicate,
		Value:         c.Value,
		SanadID:       c.SanadID,
		ClaimGrade:    string(c.ClaimGrade),
		ClaimVerdict:  string(c.ClaimVerdict),
		ClaimAction:   string(c.ClaimAction),
		DefectIDs:     c.DefectIDs,
		Materiality:   string(c.Materiality),
		ICBound:       c.ICBound,
		PrimarySpanID: c.PrimarySpanID,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func (m *ClaimModel) toDomain() domain.Claim {
	return domain.Claim{
		ClaimID:       m.ClaimID,
		TenantID:      m.TenantID,
		DealID:        m.DealID,
		ClaimClass:    m.ClaimClass,
		ClaimText:     m.ClaimText,
		Predicate:     m.Predicate,
		Value:         m.Value,
		SanadID:       m.SanadID,
		ClaimGrade:    domain.Grade(m.ClaimGrade),
		ClaimVerdict:  domain.ClaimVerdict(m.ClaimVerdict),
		ClaimAction:   domain.ClaimAction(m.ClaimAction),
		DefectIDs:     m.DefectIDs,
		Materiality:   domain.Materiality(m.Materiality),
		ICBound:       m.ICBound,
		PrimarySpanID: m.PrimarySpanID,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// ClaimRepo is the bun-backed claims.Repo, scoped by tenant_id on every
// statement for the cross-tenant-404 contract in spec §8. It runs on the
// shared bun.DB and does not set the row-level-security session variable
// (see AcquireTenantScoped in conn.go).
type ClaimRepo struct {
	db *bun.DB
}

// NewClaimRepo constructs a ClaimRepo over an already-connected bun.DB.
func NewClaimRepo(db *bun.DB) *ClaimRepo {
	return &ClaimRepo{db: db}
}

func (r *ClaimRepo) Insert(ctx context.Context, claim domain.Claim) error {
	model := claimModelFromDomain(claim)
	if _, err := r.db.NewInsert().Model(model).Exec(ctx); err != nil {
		return idiserr.Wrap(idiserr.InvalidInput, "storage: inserting claim", err)
	}
	return nil
}

func (r *ClaimRepo) Update(ctx context.Context, claim domain.Claim) error {
	model := claimModelFromDomain(claim)
	res, err := r.db.NewUpdate().Model(model).WherePK().Where("tenant_id = ?", claim.TenantID).Exec(ctx)
	if err != nil {
		return idiserr.Wrap(idiserr.InvalidInput, "storage: updating claim", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return idiserr.Newf(idiserr.NotFound, "storage: claim %q not found for tenant", claim.ClaimID)
	}
	return nil
}

func (r *ClaimRepo) Delete(ctx context.Context, tenantID, claimID string) error {
	_, err := r.db.NewDelete().
		Model((*ClaimModel)(nil)).
		Where("claim_id = ?", claimID).
		Where("tenant_id = ?", tenantID).
		Exec(ctx)
	if err != nil {
		return idiserr.Wrap(idiserr.InvalidInput, "storage: deleting claim", err)
	}
	return nil
}

func (r *ClaimRepo) Get(ctx context.Context, tenantID, claimID string) (*domain.Claim, error) {
	var model ClaimModel
	err := r.db.NewSelect().
		Model(&model).
		Where("claim_id = ?", claimID).
		Where("tenant_id = ?", tenantID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, idiserr.Newf(idiserr.NotFound, "storage: claim %q not found", claimID)
		}
		return nil, idiserr.Wrap(idiserr.InvalidInput, "storage: fetching claim", err)
	}
	claim := model.toDomain()
	return &claim, nil
}

func (r *ClaimRepo) List(ctx context.Context, tenantID, dealID string) ([]domain.Claim, error) {
	var models []ClaimModel
	err := r.db.NewSelect().
		Model(&models).
		Where("tenant_id = ?", tenantID).
		Where("deal_id = ?", dealID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, idiserr.Wrap(idiserr.InvalidInput, "storage: listing claims", err)
	}
	claims := make([]domain.Claim, 0, len(models))
	for _, m := range models {
		claims = append(claims, m.toDomain())
	}
	return claims, nil
}
