package service

import (
	"context"

	"AgriPulse/internal/domain/models"
)

// PredictionGateway runs one external-predictor invocation and classifies
// its outcome. Implementations must produce exactly one outcome per call
// and must never let a stale deadline timer act after the outcome has
// been dispatched.
type PredictionGateway interface {
	Invoke(ctx context.Context, op models.Operation, req *models.PredictionRequest) *models.PredictionOutcome
}

// ProductResolver maps user-supplied product references to canonical
// catalog snapshots, preserving input order and dropping unresolvable
// entries.
type ProductResolver interface {
	Resolve(ctx context.Context, refs []models.ProductReference) ([]models.ProductSnapshot, error)
}
