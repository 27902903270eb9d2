// retrain rebuilds the ML-assist model from accumulated feedback and
// optionally exports the training set for offline review.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/finparse/financial-parser/internal/common"
	"github.com/finparse/financial-parser/internal/feedback"
	"github.com/finparse/financial-parser/internal/mlassist"
	"github.com/finparse/financial-parser/internal/parser"
)

func main() {
	var (
		configPath = flag.String("config", "", "optional YAML config file")
		exportJSON = flag.String("export-json", "", "also export training samples to this JSON file")
		exportXLSX = flag.String("export-xlsx", "", "also export training samples to this XLSX file")
		statsOnly  = flag.Bool("stats", false, "print feedback stats and exit without training")
	)
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer logger.Sync()
	log := logger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	// internal packages log through slog
	slogger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	store, err := feedback.NewStore(ctx, cfg.Feedback.DBPath, slogger)
	if err != nil {
		log.Fatalf("opening feedback store: %v", err)
	}
	defer store.Close()

	if *statsOnly {
		stats, err := store.Stats(ctx)
		if err != nil {
			log.Fatalf("reading feedback stats: %v", err)
		}
		log.Infow("feedback stats",
			"total", stats.Total,
			"processed", stats.Processed,
			"unprocessed", stats.Unprocessed,
			"by_type", stats.ByType,
			"by_institution", stats.ByInstitution)
		return
	}

	if *exportJSON != "" {
		n, err := store.ExportTrainingJSON(ctx, *exportJSON)
		if err != nil {
			log.Fatalf("exporting training JSON: %v", err)
		}
		log.Infow("training JSON exported", "path", *exportJSON, "samples", n)
	}
	if *exportXLSX != "" {
		n, err := store.ExportTrainingXLSX(ctx, *exportXLSX)
		if err != nil {
			log.Fatalf("exporting training XLSX: %v", err)
		}
		log.Infow("training XLSX exported", "path", *exportXLSX, "samples", n)
	}

	classifier := mlassist.NewClassifier(cfg.ML.WeightsPath, cfg.ML.AssistThreshold, slogger)
	retrainer := parser.NewRetrainer(store, classifier, cfg.ML.MinSamples, slogger)

	result, err := retrainer.Run(ctx)
	if err != nil {
		log.Fatalf("retraining: %v", err)
	}
	log.Infow("retraining complete",
		"samples", result.Samples,
		"institutions", result.Institutions,
		"consumed", result.Consumed)
}
