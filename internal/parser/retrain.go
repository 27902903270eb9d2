package parser

import (
	"context"
	"log/slog"

	"github.com/finparse/financial-parser/internal/common"
	"github.com/finparse/financial-parser/internal/feedback"
	"github.com/finparse/financial-parser/internal/mlassist"
)

// Retrainer rebuilds the ML-assist model from accumulated feedback.
type Retrainer struct {
	store      *feedback.Store
	classifier *mlassist.Classifier
	minSamples int
	logger     *slog.Logger
}

func NewRetrainer(store *feedback.Store, classifier *mlassist.Classifier, minSamples int, logger *slog.Logger) *Retrainer {
	return &Retrainer{
		store:      store,
		classifier: classifier,
		minSamples: minSamples,
		logger:     logger,
	}
}

// RetrainResult summarizes one retraining run.
type RetrainResult struct {
	Samples      int `json:"samples"`
	Institutions int `json:"institutions"`
	Consumed     int `json:"consumed"`
}

// Run trains on every labeled correction in the store and marks the
// unprocessed records consumed. Training uses the full labeled history, not
// just the new records, so each run sees the complete picture.
func (r *Retrainer) Run(ctx context.Context) (*RetrainResult, error) {
	samples, err := r.store.TrainingSamples(ctx)
	if err != nil {
		return nil, err
	}

	model, err := r.classifier.Train(samples, r.minSamples)
	if err != nil {
		return nil, common.WrapError(err, "retraining classifier")
	}

	unprocessed, err := r.store.Unprocessed(ctx, 0)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(unprocessed))
	for _, rec := range unprocessed {
		ids = append(ids, rec.ID)
	}
	if err := r.store.MarkProcessed(ctx, ids); err != nil {
		return nil, err
	}

	r.logger.Info("retraining complete",
		"samples", model.NumSamples,
		"institutions", len(model.Institutions),
		"consumed", len(ids))
	return &RetrainResult{
		Samples:      model.NumSamples,
		Institutions: len(model.Institutions),
		Consumed:     len(ids),
	}, nil
}
