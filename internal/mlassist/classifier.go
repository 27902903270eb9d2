package mlassist

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/finparse/financial-parser/internal/common"
	"github.com/finparse/financial-parser/internal/entity"
)

// modelVersion tags persisted weight files so incompatible formats are
// rejected on load instead of producing garbage scores.
const modelVersion = "1.0"

// MinConfidence is the prediction floor: scores below it are treated as
// "no opinion" and never override the rule-based detector.
const MinConfidence = 0.5

// Model is the persisted form of the trained weights.
type Model struct {
	Version      string               `json:"version"`
	TrainedAt    time.Time            `json:"trained_at"`
	NumSamples   int                  `json:"num_samples"`
	Institutions []string             `json:"banks"`
	Weights      map[string][]float64 `json:"weights"`
}

// Classifier scores documents against per-institution weight vectors. It is
// disabled until a valid model is loaded or trained; all methods are safe for
// concurrent use, and retraining swaps the model atomically.
type Classifier struct {
	mu              sync.RWMutex
	model           *Model
	path            string
	assistThreshold float64
	logger          *slog.Logger
}

// NewClassifier builds a classifier backed by the weights file at path. A
// missing file is not an error: the classifier starts disabled and enables
// itself on the first successful Train.
func NewClassifier(path string, assistThreshold float64, logger *slog.Logger) *Classifier {
	c := &Classifier{
		path:            path,
		assistThreshold: assistThreshold,
		logger:          logger,
	}
	if err := c.load(); err != nil {
		logger.Warn("ml model unavailable, classifier disabled", "path", path, "error", err)
	}
	return c
}

func (c *Classifier) load() error {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err != nil {
		return common.WrapError(err, "reading ml model")
	}

	var model Model
	if err := json.Unmarshal(data, &model); err != nil {
		return common.NewAppError("ML_MODEL_CORRUPT", "ml model file is not valid json", err)
	}
	if err := validateModel(&model); err != nil {
		return err
	}

	c.mu.Lock()
	c.model = &model
	c.mu.Unlock()
	c.logger.Info("ml model loaded",
		"institutions", len(model.Institutions),
		"samples", model.NumSamples,
		"trained_at", model.TrainedAt)
	return nil
}

func validateModel(m *Model) error {
	if m.Version != modelVersion {
		return common.NewAppError("ML_MODEL_VERSION", "unsupported ml model version "+m.Version, common.ErrValidation)
	}
	for institution, weights := range m.Weights {
		if len(weights) != FeatureCount {
			return common.NewAppError("ML_MODEL_SHAPE",
				"weight vector for "+institution+" has wrong length", common.ErrValidation)
		}
	}
	return nil
}

// Enabled reports whether a model is loaded.
func (c *Classifier) Enabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model != nil
}

// ShouldAssist reports whether the classifier wants a second opinion on a
// rule-based detection with the given confidence.
func (c *Classifier) ShouldAssist(ruleConfidence float64) bool {
	return c.Enabled() && ruleConfidence < c.assistThreshold
}

// Predict scores the text against every institution's weight vector and
// returns the best one. ok is false when the classifier is disabled or the
// best score sits under the prediction floor.
func (c *Classifier) Predict(text string) (institution string, confidence float64, ok bool) {
	c.mu.RLock()
	model := c.model
	c.mu.RUnlock()
	if model == nil {
		return "", 0, false
	}

	features := Features(text)
	best := ""
	bestScore := 0.0
	for _, key := range model.Institutions {
		weights, found := model.Weights[key]
		if !found {
			continue
		}
		score := sigmoid(dot(weights, features))
		if score > bestScore {
			best = key
			bestScore = score
		}
	}

	if best == "" || bestScore < MinConfidence {
		return "", 0, false
	}
	return best, bestScore, true
}

// Train rebuilds the per-institution weight vectors as feature centroids of
// the labeled samples, persists them, and swaps the live model. At least
// minSamples labeled samples are required.
func (c *Classifier) Train(samples []entity.TrainingSample, minSamples int) (*Model, error) {
	labeled := make([]entity.TrainingSample, 0, len(samples))
	for _, s := range samples {
		if s.CorrectInstitution != "" && s.Text != "" {
			labeled = append(labeled, s)
		}
	}
	if len(labeled) < minSamples {
		return nil, common.NewAppError("ML_TOO_FEW_SAMPLES",
			"not enough labeled samples to train", common.ErrInvalidInput)
	}

	sums := make(map[string][]float64)
	counts := make(map[string]int)
	var order []string
	for _, s := range labeled {
		features := Features(s.Text)
		if _, seen := sums[s.CorrectInstitution]; !seen {
			sums[s.CorrectInstitution] = make([]float64, FeatureCount)
			order = append(order, s.CorrectInstitution)
		}
		vec := sums[s.CorrectInstitution]
		for i, f := range features {
			vec[i] += f
		}
		counts[s.CorrectInstitution]++
	}

	weights := make(map[string][]float64, len(sums))
	for institution, sum := range sums {
		centroid := make([]float64, FeatureCount)
		n := float64(counts[institution])
		for i, v := range sum {
			centroid[i] = v / n
		}
		weights[institution] = centroid
	}

	model := &Model{
		Version:      modelVersion,
		TrainedAt:    time.Now().UTC(),
		NumSamples:   len(labeled),
		Institutions: order,
		Weights:      weights,
	}
	if err := c.save(model); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.model = model
	c.mu.Unlock()
	c.logger.Info("ml model retrained",
		"institutions", len(order),
		"samples", len(labeled))
	return model, nil
}

// save writes the model to a sibling temp file and renames it over the
// target, so a crashed retrain never leaves a half-written model behind.
func (c *Classifier) save(model *Model) error {
	data, err := json.MarshalIndent(model, "", "  ")
	if err != nil {
		return common.WrapError(err, "encoding ml model")
	}
	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return common.WrapError(err, "creating ml model directory")
		}
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return common.WrapError(err, "writing ml model")
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return common.WrapError(err, "replacing ml model")
	}
	return nil
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

func dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
