package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/finparse/financial-parser/internal/cache"
	"github.com/finparse/financial-parser/internal/common"
	"github.com/finparse/financial-parser/internal/dates"
	"github.com/finparse/financial-parser/internal/extract"
	"github.com/finparse/financial-parser/internal/institution"
	"github.com/finparse/financial-parser/internal/metrics"
	"github.com/finparse/financial-parser/internal/mlassist"
	"github.com/finparse/financial-parser/internal/parser"
	"github.com/finparse/financial-parser/internal/template"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		configPath      = flag.String("config", "", "optional YAML config file")
		showMetrics     = flag.Bool("metrics", false, "print pipeline metrics after parsing")
		showCacheStats  = flag.Bool("cache-stats", false, "print detection cache stats after parsing")
		submitTemplate  = flag.String("submit-template", "", "submit a community template JSON file and exit")
		approveTemplate = flag.String("approve-template", "", "approve a pending template by institution key and exit")
		approver        = flag.String("approver", "", "approver name for -approve-template")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		printError("Error: loading config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		printError("Error: invalid config: %v\n", err)
		os.Exit(1)
	}

	templateStore, err := template.NewStore(cfg.Template.Dir, template.NewValidator(), logger)
	if err != nil {
		logger.Error("failed to open template store", "error", err)
		os.Exit(1)
	}

	// template administration short-circuits the parse flow
	if *submitTemplate != "" {
		raw, err := os.ReadFile(*submitTemplate)
		if err != nil {
			printError("Error: reading template file: %v\n", err)
			os.Exit(1)
		}
		tpl, err := templateStore.Submit(raw)
		if err != nil {
			printError("Error: template rejected: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Template submitted: %s (hash %s)\n", tpl.InstitutionKey, tpl.TemplateHash)
		return
	}
	if *approveTemplate != "" {
		if *approver == "" {
			printError("Error: -approver is required with -approve-template\n")
			os.Exit(1)
		}
		tpl, err := templateStore.Approve(*approveTemplate, *approver)
		if err != nil {
			printError("Error: approving template: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Template approved: %s by %s\n", tpl.InstitutionKey, tpl.ApprovedBy)
		return
	}

	files := flag.Args()
	if len(files) == 0 {
		printError("Usage: finparse [flags] <text-file>...\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	service := buildService(cfg, templateStore, logger)

	for _, path := range files {
		raw, err := os.ReadFile(path)
		if err != nil {
			logger.Error("failed to read document", "path", path, "error", err)
			continue
		}
		result := service.ClassifyAndExtract(string(raw))
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			logger.Error("failed to encode result", "path", path, "error", err)
			continue
		}
		fmt.Println(string(out))
	}

	if *showMetrics {
		printJSON(service.Metrics().Snapshot())
	}
	if *showCacheStats {
		printJSON(service.CacheStats())
	}
}

func buildService(cfg *common.Config, templateStore *template.Store, logger *slog.Logger) *parser.Service {
	registry := institution.NewRegistry()
	normalizer := dates.NewNormalizer(0)

	return parser.NewService(parser.Options{
		Detector:   institution.NewDetector(registry),
		Registry:   registry,
		Cache:      cache.New(cfg.Cache.TTL, cfg.Cache.MaxSize, cfg.Cache.Enabled),
		Classifier: mlassist.NewClassifier(cfg.ML.WeightsPath, cfg.ML.AssistThreshold, logger),
		Templates:  template.NewEngine(templateStore, normalizer, logger),
		Specialized: []extract.Extractor{
			extract.NewNubankExtractor(normalizer),
			extract.NewInterExtractor(normalizer),
			extract.NewC6Extractor(normalizer),
			extract.NewPicPayExtractor(normalizer),
		},
		Generic:      extract.NewGenericExtractor(normalizer),
		Metrics:      metrics.NewAggregator(),
		MaxLineItems: cfg.Parser.MaxLineItems,
		Logger:       logger,
	})
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		printError("Error: encoding output: %v\n", err)
		return
	}
	fmt.Println(string(out))
}
