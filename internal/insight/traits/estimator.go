package traits

import (
	"math"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/echolabs/twinsight-backend/internal/pkg/errors"

	"github.com/echolabs/twinsight-backend/internal/insight/correlations"
	"github.com/echolabs/twinsight-backend/internal/insight/features"
	"github.com/echolabs/twinsight-backend/internal/types"
)

// evidenceWeightScale bounds any single behavioral signal's pull to at most
// a tenth of the full prior weight.
const evidenceWeightScale = 0.1

// weightIncrementPerUpdate is added to the estimate's accumulated evidence
// weight once per update call, not per feature.
const weightIncrementPerUpdate = 0.01

// Estimator folds normalized features into a user's running trait estimate.
//
// The update is a sequential weighted running mean, not a true Bayesian
// posterior: it converges toward heavily observed evidence but never fully
// discounts the 50-neutral prior. That is intentional small-sample
// protection, and the downstream confidence scoring assumes this exact
// saturating form. Updates are weight-dependent, so ordering is only
// approximately commutative.
type Estimator struct {
	table *correlations.Table
}

// NewEstimator fails closed when the correlation table is absent or empty:
// estimating against an empty table would silently produce outputs
// indistinguishable from "no evidence".
func NewEstimator(table *correlations.Table) (*Estimator, error) {
	if table == nil || table.Len() == 0 {
		return nil, pkgerrors.ErrTableNotLoaded
	}
	return &Estimator{table: table}, nil
}

// Update applies one platform's extracted features to the estimate and
// returns it. A nil estimate initializes the neutral prior first; a missing
// prior is never an error. Features without correlation entries are skipped
// silently (coverage is expected to be partial).
func (e *Estimator) Update(estimate *types.TraitEstimate, userID uuid.UUID, platform string, feats []features.Feature) *types.TraitEstimate {
	if estimate == nil {
		estimate = types.NewNeutralEstimate(userID)
	}
	if len(feats) == 0 {
		return estimate
	}

	processed := 0
	for _, f := range feats {
		entries := e.table.Lookup(platform, f.Name)
		if len(entries) == 0 {
			continue
		}
		processed++
		for _, entry := range entries {
			evidenceScore := f.Value * 100
			if entry.R < 0 {
				// Negative correlation flips the polarity of the raw score.
				evidenceScore = (1 - f.Value) * 100
			}
			localWeight := math.Abs(entry.R) * evidenceWeightScale
			prior := estimate.Score(entry.Dimension)
			next := (prior*estimate.EvidenceWeight + evidenceScore*localWeight) / (estimate.EvidenceWeight + localWeight)
			estimate.SetScore(entry.Dimension, clampScore(next))
		}
	}

	if processed > 0 {
		estimate.EvidenceWeight += weightIncrementPerUpdate
		estimate.TotalSignalCount += processed
		now := time.Now().UTC()
		estimate.LastUpdatedAt = &now
	}
	return estimate
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
