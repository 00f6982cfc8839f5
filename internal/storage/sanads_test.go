package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/smilemakc/idis/internal/domain"
	"github.com/smilemakc/idis/internal/storage"
)

func TestSanadRepo_Insert_Delete(t *testing.T) {
	db := testDB(t)
	repo := storage.NewSanadRepo(db)
	ctx := context.Background()

	tenantID := uuid.NewString()
	s := domain.Sanad{
		SanadID:           uuid.NewString(),
		TenantID:          tenantID,
		ClaimID:           uuid.NewString(),
		DealID:            uuid.NewString(),
		PrimaryEvidenceID: uuid.NewString(),
		TransmissionChain: []domain.TransmissionNode{{
			NodeID:    uuid.NewString(),
			NodeType:  "EXTRACTION",
			ActorType: "SYSTEM",
			ActorID:   "extractor",
			Timestamp: time.Now().UTC(),
		}},
		ExtractionConfidence: 0.9,
		CorroborationStatus:  domain.CorroborationMutawatir,
		SanadGrade:           domain.GradeA,
		CreatedAt:            time.Now().UTC(),
	}
	require.NoError(t, repo.Insert(ctx, s))
	require.NoError(t, repo.Delete(ctx, tenantID, s.SanadID))
}
