package storage_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/smilemakc/idis/internal/domain"
	"github.com/smilemakc/idis/internal/storage"
)

// These exercise ClaimRepo against a real Postgres instance and are skipped
// unless IDIS_TEST_DATABASE_URL is set, matching the teacher's integration
// test posture for its own bun-backed repositories.
func testDB(t *testing.T) *bun.DB {
	t.Helper()
	dsn := os.Getenv("IDIS_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("IDIS_TEST_DATABASE_URL not set, skipping integration test")
	}
	return storage.NewDB(dsn)
}

func TestClaimRepo_Insert_Get_List_RoundTrip(t *testing.T) {
	db := testDB(t)
	repo := storage.NewClaimRepo(db)
	ctx := context.Background()

	tenantID, dealID := uuid.NewString(), uuid.NewString()
	claim := domain.Claim{
		ClaimID:     uuid.NewString(),
		TenantID:    tenantID,
		DealID:      dealID,
		ClaimClass:  "FINANCIAL",
		ClaimText:   "revenue grew 12% YoY",
		Materiality: domain.MaterialityHigh,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	require.NoError(t, repo.Insert(ctx, claim))

	fetched, err := repo.Get(ctx, tenantID, claim.ClaimID)
	require.NoError(t, err)
	assert.Equal(t, claim.ClaimText, fetched.ClaimText)

	list, err := repo.List(ctx, tenantID, dealID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, claim.ClaimID, list[0].ClaimID)
}

func TestClaimRepo_Get_CrossTenant_NotFound(t *testing.T) {
	db := testDB(t)
	repo := storage.NewClaimRepo(db)
	ctx := context.Background()

	claim := domain.Claim{
		ClaimID:     uuid.NewString(),
		TenantID:    uuid.NewString(),
		DealID:      uuid.NewString(),
		ClaimClass:  "FINANCIAL",
		ClaimText:   "x",
		Materiality: domain.MaterialityLow,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	require.NoError(t, repo.Insert(ctx, claim))

	_, err := repo.Get(ctx, uuid.NewString(), claim.ClaimID)
	require.Error(t, err)
}

func TestClaimRepo_Delete_RemovesRow(t *testing.T) {
	db := testDB(t)
	repo := storage.NewClaimRepo(db)
	ctx := context.Background()

	tenantID := uuid.NewString()
	claim := domain.Claim{
		ClaimID:     uuid.NewString(),
		TenantID:    tenantID,
		DealID:      uuid.NewString(),
		ClaimClass:  "FINANCIAL",
		ClaimText:   "x",
		Materiality: domain.MaterialityLow,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	require.NoError(t, repo.Insert(ctx, claim))
	require.NoError(t, repo.Delete(ctx, tenantID, claim.ClaimID))

	_, err := repo.Get(ctx, tenantID, claim.ClaimID)
	require.Error(t, err)
}
