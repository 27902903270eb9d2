package parser

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finparse/financial-parser/constants"
	"github.com/finparse/financial-parser/internal/cache"
	"github.com/finparse/financial-parser/internal/dates"
	"github.com/finparse/financial-parser/internal/extract"
	"github.com/finparse/financial-parser/internal/institution"
	"github.com/finparse/financial-parser/internal/metrics"
	"github.com/finparse/financial-parser/internal/mlassist"
	"github.com/finparse/financial-parser/internal/template"
)

const nubankInvoice = `Nubank
Olá, esta é a sua fatura
Data de vencimento: 24 NOV 2025
Total a pagar R$ 3.038,08
17 OUT •••• 2300 Supermercado Central R$ 250,00
`

func newTestService(t *testing.T) *Service {
	t.Helper()
	return newTestServiceWithModel(t, filepath.Join(t.TempDir(), "missing.json"))
}

func newTestServiceWithModel(t *testing.T, weightsPath string) *Service {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := institution.NewRegistry()
	normalizer := dates.NewNormalizer(2025)

	templateStore, err := template.NewStore(t.TempDir(), template.NewValidator(), logger)
	require.NoError(t, err)

	return NewService(Options{
		Detector:   institution.NewDetector(registry),
		Registry:   registry,
		Cache:      cache.New(time.Hour, 100, true),
		Classifier: mlassist.NewClassifier(weightsPath, 0.70, logger),
		Templates:  template.NewEngine(templateStore, normalizer, logger),
		Specialized: []extract.Extractor{
			extract.NewNubankExtractor(normalizer),
			extract.NewInterExtractor(normalizer),
			extract.NewC6Extractor(normalizer),
			extract.NewPicPayExtractor(normalizer),
		},
		Generic:      extract.NewGenericExtractor(normalizer),
		Metrics:      metrics.NewAggregator(),
		MaxLineItems: 50,
		Logger:       logger,
	})
}

func TestClassifyAndExtractSpecialized(t *testing.T) {
	s := newTestService(t)

	result := s.ClassifyAndExtract(nubankInvoice)

	assert.NotEmpty(t, result.RequestID)
	assert.Equal(t, constants.DocCardInvoice, result.DocumentType)
	require.NotNil(t, result.Institution)
	assert.Equal(t, "nubank", result.Institution.Key)
	assert.Equal(t, constants.ExtractorSpecialized, result.ExtractorType)
	assert.False(t, result.UsedFallback)

	record := result.Record
	require.NotNil(t, record)
	assert.Equal(t, "18.236.120/0001-58", *record.IssuerTaxID)
	assert.Equal(t, "2025-11-24", *record.DueDate)
	assert.Equal(t, "3038.08", record.TotalAmount.String())
	assert.Greater(t, result.Confidence, 0.5)
}

func TestClassifyAndExtractFallsBackToGeneric(t *testing.T) {
	s := newTestService(t)

	result := s.ClassifyAndExtract("Conta de luz\nCNPJ 12.345.678/0001-95\nTotal: R$ 80,00\n")

	assert.Nil(t, result.Institution)
	assert.Equal(t, constants.ExtractorGeneric, result.ExtractorType)
	assert.True(t, result.UsedFallback)
	require.NotNil(t, result.Record)
	assert.Equal(t, "12.345.678/0001-95", *result.Record.IssuerTaxID)

	snap := s.Metrics().Snapshot()
	assert.Equal(t, 1, snap.ByExtractor["generic"])
	assert.Equal(t, 1, snap.ByInstitution["unknown"].Fallbacks)
}

// Parsing never fails, whatever the input.
func TestClassifyAndExtractNeverFails(t *testing.T) {
	s := newTestService(t)

	for _, text := range []string{"", "x", "\n\n\n"} {
		result := s.ClassifyAndExtract(text)
		require.NotNil(t, result.Record)
		assert.Equal(t, constants.DocUnknown, result.DocumentType)
	}
}

func TestDetectionCacheIsUsed(t *testing.T) {
	s := newTestService(t)

	s.ClassifyAndExtract(nubankInvoice)
	s.ClassifyAndExtract(nubankInvoice)

	stats := s.CacheStats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)

	// the metrics snapshot carries the cache counters too
	snap := s.Metrics().Snapshot()
	assert.Equal(t, int64(1), snap.CacheHits)
	assert.Equal(t, int64(1), snap.CacheMisses)

	s.ClearCache()
	assert.Equal(t, int64(0), s.CacheStats().Hits)
}

// writeFlatModel persists a model whose single institution scores a flat
// sigmoid(0) = 0.5 on any input, making confidence comparisons deterministic.
func writeFlatModel(t *testing.T, path string) {
	t.Helper()
	model := mlassist.Model{
		Version:      "1.0",
		TrainedAt:    time.Now().UTC(),
		NumSamples:   10,
		Institutions: []string{"inter"},
		Weights:      map[string][]float64{"inter": make([]float64, mlassist.FeatureCount)},
	}
	raw, err := json.Marshal(model)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o644))
}

// A weaker ML opinion must never displace a stronger rule detection.
func TestMLSecondOpinionNeedsHigherConfidence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	writeFlatModel(t, path)
	s := newTestServiceWithModel(t, path)

	// two signature hits: rule confidence 2/3 beats the flat 0.5 prediction
	result := s.ClassifyAndExtract("Nubank\nnu pagamentos\nTotal a pagar R$ 100,00\nData de vencimento: 24 NOV 2025\n")

	require.NotNil(t, result.Institution)
	assert.Equal(t, "nubank", result.Institution.Key)
	assert.False(t, result.MLOverride)
	assert.InDelta(t, 2.0/3.0, result.Institution.Confidence, 1e-9)
}

func TestMLOverridesWeakerDetection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	writeFlatModel(t, path)
	s := newTestServiceWithModel(t, path)

	// single signature hit: rule confidence 1/3 loses to the 0.5 prediction
	result := s.ClassifyAndExtract("Bradesco\ncobrança bancária\n")

	require.NotNil(t, result.Institution)
	assert.Equal(t, "inter", result.Institution.Key)
	assert.True(t, result.MLOverride)
	assert.InDelta(t, 0.5, result.Institution.Confidence, 1e-9)
}

// A specialized extractor that claims a document and then fails counts as a
// failure in the metrics while parsing still succeeds through the fallback.
func TestSpecializedFailureIsCounted(t *testing.T) {
	s := newTestService(t)

	// enough indicators to claim the document, no invoice structure inside
	result := s.ClassifyAndExtract("Nubank\nnu pagamentos\n")

	assert.Equal(t, constants.ExtractorGeneric, result.ExtractorType)
	assert.True(t, result.UsedFallback)
	require.NotNil(t, result.Record)

	snap := s.Metrics().Snapshot()
	assert.Equal(t, 1, snap.Failures)
	require.Contains(t, snap.ByInstitution, "nubank")
	assert.Equal(t, 1, snap.ByInstitution["nubank"].Documents)
	assert.Equal(t, 0, snap.ByInstitution["nubank"].Extractions)
}

// Institution identity is backfilled from the registry when the document
// itself does not carry it.
func TestBackfillFromDetection(t *testing.T) {
	s := newTestService(t)

	// detected as bradesco but with no specialized extractor for it
	result := s.ClassifyAndExtract("Bradesco\ncobrança\n")

	require.NotNil(t, result.Institution)
	assert.Equal(t, "bradesco", result.Institution.Key)
	assert.Equal(t, constants.ExtractorGeneric, result.ExtractorType)
	require.NotNil(t, result.Record.IssuerTaxID)
	assert.Equal(t, "60.746.948/0001-12", *result.Record.IssuerTaxID)
}

func TestTemplateBackedExtraction(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := institution.NewRegistry()
	normalizer := dates.NewNormalizer(2025)

	templateStore, err := template.NewStore(t.TempDir(), template.NewValidator(), logger)
	require.NoError(t, err)

	submission := map[string]any{
		"version":            "1.0",
		"institution_key":    "banco_regional",
		"display_name":       "Banco Regional",
		"tax_id":             "55.666.777/0001-88",
		"detection_patterns": []string{"banco regional"},
		"extraction_patterns": map[string]string{
			"total_amount": `total[:\s]*r\$\s*([\d.,]+)`,
		},
		"author": "maria",
	}
	raw, err := json.Marshal(submission)
	require.NoError(t, err)
	_, err = templateStore.Submit(raw)
	require.NoError(t, err)
	_, err = templateStore.Approve("banco_regional", "admin")
	require.NoError(t, err)

	s := NewService(Options{
		Detector:     institution.NewDetector(registry),
		Registry:     registry,
		Cache:        cache.New(time.Hour, 100, true),
		Classifier:   mlassist.NewClassifier(filepath.Join(t.TempDir(), "missing.json"), 0.70, logger),
		Templates:    template.NewEngine(templateStore, normalizer, logger),
		Generic:      extract.NewGenericExtractor(normalizer),
		Metrics:      metrics.NewAggregator(),
		MaxLineItems: 50,
		Logger:       logger,
	})

	result := s.ClassifyAndExtract("Banco Regional\nTotal: R$ 99,90\n")

	assert.Equal(t, constants.ExtractorTemplate, result.ExtractorType)
	assert.False(t, result.UsedFallback)
	assert.Equal(t, "Banco Regional", *result.Record.IssuerName)
	assert.Equal(t, "99.9", result.Record.TotalAmount.String())
}
