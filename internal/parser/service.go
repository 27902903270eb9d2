// Package parser is the pipeline orchestrator: document type classification,
// institution detection with caching and ML assist, then extraction through
// the specialized, template and generic paths in that order. Parsing never
// fails; the worst case is a sparse generic record with low confidence.
package parser

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/finparse/financial-parser/constants"
	"github.com/finparse/financial-parser/internal/cache"
	"github.com/finparse/financial-parser/internal/doctype"
	"github.com/finparse/financial-parser/internal/entity"
	"github.com/finparse/financial-parser/internal/extract"
	"github.com/finparse/financial-parser/internal/institution"
	"github.com/finparse/financial-parser/internal/metrics"
	"github.com/finparse/financial-parser/internal/mlassist"
	"github.com/finparse/financial-parser/internal/template"
)

// Result is everything one parse produced.
type Result struct {
	RequestID              string                       `json:"request_id"`
	DocumentType           constants.DocumentType       `json:"document_type"`
	DocumentTypeConfidence float64                      `json:"document_type_confidence"`
	Institution            *entity.InstitutionDetection `json:"institution,omitempty"`
	ExtractorType          constants.ExtractorType      `json:"extractor_type"`
	UsedFallback           bool                         `json:"used_fallback"`
	MLOverride             bool                         `json:"ml_override"`
	Record                 *entity.FinancialRecord      `json:"record"`
	Confidence             float64                      `json:"confidence"`
	ElapsedMS              int64                        `json:"elapsed_ms"`
}

// Service wires the pipeline stages together.
type Service struct {
	detector     *institution.Detector
	registry     *institution.Registry
	cache        *cache.DetectionCache
	classifier   *mlassist.Classifier
	templates    *template.Engine
	specialized  []extract.Extractor
	generic      *extract.GenericExtractor
	metrics      *metrics.Aggregator
	maxLineItems int
	logger       *slog.Logger
}

type Options struct {
	Detector     *institution.Detector
	Registry     *institution.Registry
	Cache        *cache.DetectionCache
	Classifier   *mlassist.Classifier
	Templates    *template.Engine
	Specialized  []extract.Extractor
	Generic      *extract.GenericExtractor
	Metrics      *metrics.Aggregator
	MaxLineItems int
	Logger       *slog.Logger
}

func NewService(opts Options) *Service {
	opts.Metrics.SetCacheStatsSource(func() (int64, int64) {
		stats := opts.Cache.Stats()
		return stats.Hits, stats.Misses
	})
	return &Service{
		detector:     opts.Detector,
		registry:     opts.Registry,
		cache:        opts.Cache,
		classifier:   opts.Classifier,
		templates:    opts.Templates,
		specialized:  opts.Specialized,
		generic:      opts.Generic,
		metrics:      opts.Metrics,
		maxLineItems: opts.MaxLineItems,
		logger:       opts.Logger,
	}
}

// ClassifyAndExtract runs the full pipeline over raw document text.
func (s *Service) ClassifyAndExtract(text string) *Result {
	started := time.Now()
	result := &Result{
		RequestID: uuid.NewString(),
	}
	logger := s.logger.With("request_id", result.RequestID)

	result.DocumentType, result.DocumentTypeConfidence = doctype.Classify(text)

	detection, mlOverride := s.detect(text, logger)
	result.Institution = detection
	result.MLOverride = mlOverride

	record, extractorType, fallback, failed := s.extract(text, detection, result.DocumentType, logger)
	s.backfill(record, detection)
	if len(record.Items) > s.maxLineItems {
		record.Items = record.Items[:s.maxLineItems]
	}

	result.Record = record
	result.ExtractorType = extractorType
	result.UsedFallback = fallback

	detectionConf := 0.0
	institutionKey := ""
	if detection != nil {
		detectionConf = detection.Confidence
		institutionKey = detection.Key
	}
	fieldConf := FieldConfidence(record, result.DocumentType)
	result.Confidence = BlendConfidence(result.DocumentTypeConfidence, detectionConf, fieldConf)
	result.ElapsedMS = time.Since(started).Milliseconds()

	s.metrics.Record(metrics.Observation{
		Institution:     institutionKey,
		ExtractorType:   string(extractorType),
		Confidence:      result.Confidence,
		Latency:         time.Since(started),
		FieldsExtracted: countFields(record),
		UsedFallback:    fallback,
		MLOverride:      mlOverride,
		Failed:          failed,
	})
	logger.Info("document parsed",
		"document_type", result.DocumentType,
		"institution", institutionKey,
		"extractor", extractorType,
		"confidence", result.Confidence,
		"elapsed_ms", result.ElapsedMS)
	return result
}

// detect resolves the institution: cache first, then signature scoring, then
// an ML second opinion on low-confidence results. The post-override result is
// what gets cached, so a repeat of the same document skips the ML pass too.
func (s *Service) detect(text string, logger *slog.Logger) (*entity.InstitutionDetection, bool) {
	if cached, ok := s.cache.Get(text); ok {
		logger.Debug("detection cache hit", "institution", cached.Key)
		return &cached, false
	}

	var detection *entity.InstitutionDetection
	if d, ok := s.detector.Detect(text); ok {
		detection = &d
	}

	override := false
	ruleConfidence := 0.0
	if detection != nil {
		ruleConfidence = detection.Confidence
	}
	if s.classifier.ShouldAssist(ruleConfidence) {
		// the second opinion wins only when it is more confident than the rule
		if key, confidence, ok := s.classifier.Predict(text); ok && confidence > ruleConfidence {
			if detection == nil || key != detection.Key {
				logger.Info("ml override",
					"rule_institution", keyOf(detection),
					"ml_institution", key,
					"ml_confidence", confidence)
				detection = &entity.InstitutionDetection{
					Key:         key,
					DisplayName: institution.FriendlyName(key),
					Confidence:  confidence,
				}
				override = true
			}
		}
	}

	if detection != nil {
		s.cache.Put(text, *detection)
	}
	return detection, override
}

// extract tries the specialized extractor for the detected institution, then
// an approved community template, then the generic fallback. failed reports
// that a specialized extractor claimed the document and then errored.
func (s *Service) extract(text string, detection *entity.InstitutionDetection, docType constants.DocumentType, logger *slog.Logger) (record *entity.FinancialRecord, extractorType constants.ExtractorType, fallback, failed bool) {
	if detection != nil {
		for _, ext := range s.specialized {
			if ext.Institution() != detection.Key || !ext.CanHandle(text) {
				continue
			}
			record, err := ext.Extract(text)
			if err == nil {
				return record, constants.ExtractorSpecialized, false, false
			}
			logger.Warn("specialized extractor failed, falling back",
				"institution", detection.Key, "error", err)
			failed = true
			break
		}
	}

	if tpl, ok := s.templates.Match(text); ok {
		logger.Info("template extraction",
			"institution", tpl.InstitutionKey, "hash", shortHash(tpl.TemplateHash))
		return s.templates.Extract(tpl, text), constants.ExtractorTemplate, false, failed
	}

	return s.generic.Extract(text, docType), constants.ExtractorGeneric, true, failed
}

// backfill fills issuer identity from the detection result when extraction
// left it empty.
func (s *Service) backfill(record *entity.FinancialRecord, detection *entity.InstitutionDetection) {
	if detection == nil {
		return
	}
	if record.IssuerName == nil {
		name := detection.DisplayName
		record.IssuerName = &name
	}
	if record.IssuerTaxID == nil {
		if taxID, ok := s.registry.TaxIDFor(detection.Key); ok {
			record.IssuerTaxID = &taxID
		}
	}
}

// Metrics exposes the pipeline aggregator for the stats surface.
func (s *Service) Metrics() *metrics.Aggregator {
	return s.metrics
}

// CacheStats exposes detection-cache effectiveness for the stats surface.
func (s *Service) CacheStats() cache.Stats {
	return s.cache.Stats()
}

// ClearCache drops all cached detections.
func (s *Service) ClearCache() {
	s.cache.Clear()
}

func keyOf(d *entity.InstitutionDetection) string {
	if d == nil {
		return ""
	}
	return d.Key
}

func shortHash(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	return h
}
