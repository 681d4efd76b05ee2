package repos

import (
	"context"
	"testing"
	"time"

	"github.com/echolabs/twinsight-backend/internal/repos/testutil"
	"github.com/echolabs/twinsight-backend/internal/types"
)

func TestTraitEstimateRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewTraitEstimateRepo(db, testutil.Logger(t))

	u := testutil.SeedUser(t, ctx, tx, "traitestimate@example.com")

	if got, err := repo.GetByUserID(ctx, tx, u.ID); err != nil || got != nil {
		t.Fatalf("GetByUserID before insert: got=%v err=%v", got, err)
	}

	est := types.NewNeutralEstimate(u.ID)
	if err := repo.Upsert(ctx, tx, est); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := repo.GetByUserID(ctx, tx, u.ID)
	if err != nil {
		t.Fatalf("GetByUserID: %v", err)
	}
	if got == nil || got.Openness != 50 || got.EvidenceWeight != 1 {
		t.Fatalf("unexpected estimate after insert: %+v", got)
	}

	// Same user again must update in place, not add a row.
	now := time.Now().UTC()
	est.Openness = 62.5
	est.EvidenceWeight = 1.05
	est.TotalSignalCount = 12
	est.LastUpdatedAt = &now
	if err := repo.Upsert(ctx, tx, est); err != nil {
		t.Fatalf("Upsert update: %v", err)
	}

	got, err = repo.GetByUserID(ctx, tx, u.ID)
	if err != nil {
		t.Fatalf("GetByUserID after update: %v", err)
	}
	if got.Openness != 62.5 || got.EvidenceWeight != 1.05 || got.TotalSignalCount != 12 {
		t.Fatalf("update not applied: %+v", got)
	}
	if got.LastUpdatedAt == nil {
		t.Fatal("LastUpdatedAt not persisted")
	}

	var count int64
	if err := tx.Model(&types.TraitEstimate{}).Where("user_id = ?", u.ID).Count(&count).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 estimate row, got %d", count)
	}
}
