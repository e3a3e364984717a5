package usecase

import (
	"context"
	"encoding/json"
	"errors"

	"FuelPhases/internal/domain/models"
	"FuelPhases/pkg/queue"
)

// PrecomputeJobType is the queue message type for precompute requests.
const PrecomputeJobType = "market_phases.precompute"

// PrecomputeJob runs queued precompute requests.
type PrecomputeJob struct {
	uc *PrecomputeUseCase
}

var _ queue.Job = (*PrecomputeJob)(nil)

func NewPrecomputeJob(uc *PrecomputeUseCase) *PrecomputeJob {
	return &PrecomputeJob{uc: uc}
}

func (j *PrecomputeJob) Name() string { return "precompute" }

func (j *PrecomputeJob) Type() string { return PrecomputeJobType }

// Handle decodes {"fuels": [...]} and runs the precompute. A run already in
// progress counts as done.
func (j *PrecomputeJob) Handle(ctx context.Context, payload json.RawMessage) error {
	req, err := queue.Decode[models.PrecomputeRequest](payload)
	if err != nil {
		return err
	}
	_, err = j.uc.Run(ctx, req.Fuels)
	if errors.Is(err, ErrPrecomputeRunning) {
		return nil
	}
	return err
}
