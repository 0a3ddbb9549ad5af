package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino/components/model"
	"github.com/rotisserie/eris"
	"google.golang.org/genai"

	"powersearch/config"
	"powersearch/controllers"
	"powersearch/models"
	"powersearch/scraper"
	"powersearch/scraper/adapters"
	"powersearch/services"
	"powersearch/storage"
	"powersearch/utils"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code so deferred cleanup always happens.
func run() int {
	query := flag.String("q", "", "search query (CLI mode)")
	region := flag.String("region", models.DefaultRegion, "region code, e.g. us, uk, de, global")
	sortMode := flag.String("sort", string(models.SortRelevance), "relevance | price_asc | price_desc | rating | discount")
	minPrice := flag.Float64("min", 0, "minimum price (0 = unbounded)")
	maxPrice := flag.Float64("max", 0, "maximum price (0 = unbounded)")
	page := flag.Int("page", 1, "result page")
	limit := flag.Int("limit", models.DefaultLimit, "results per page")
	writeCSV := flag.Bool("csv", false, "write raw listings to CSV_OUTPUT_PATH")
	serveAPI := flag.Bool("serve", false, "run the HTTP API instead of a single search")
	flag.Parse()

	cfg := config.Load()
	logger := utils.NewLoggerFor(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("=== Product search aggregator starting ===")
	logger.Info("Config: fetch mode %s | concurrency %d | retries %d | deadline %s",
		cfg.FetchMode, cfg.MaxConcurrency, cfg.MaxRetries, cfg.SearchDeadline)

	registry := adapters.NewRegistry()

	var fetcher scraper.Fetcher
	if strings.EqualFold(cfg.FetchMode, "browser") {
		browser := scraper.NewBrowserFetcher(cfg.ChromeBin, logger)
		defer browser.Close()
		fetcher = browser
	} else {
		fetcher = scraper.NewHTTPFetcher(cfg.ScraperAPIKey, cfg.ScraperAPIURL, logger)
	}

	orchestrator := scraper.NewOrchestrator(registry, fetcher, scraper.OrchestratorConfig{
		MaxWorkers:   cfg.Workers(len(registry.Sites())),
		RateLimitMs:  cfg.RateLimitMs,
		MaxAttempts:  cfg.MaxRetries,
		BaseDelay:    cfg.RetryBaseDelay,
		TaskTimeout:  cfg.FetchTimeout,
		Deadline:     cfg.SearchDeadline,
		FetchRetries: 1,
		RenderJS:     cfg.ScraperAPIKey != "",
	}, logger)

	validator := services.NewValidator(logger, services.ValidatorOptions{
		Probe:   cfg.ProbeURLs,
		Retries: cfg.ProbeRetries,
		Timeout: cfg.ProbeTimeout,
	})

	var embedder services.Embedder
	switch strings.ToLower(cfg.EmbeddingProvider) {
	case "openai":
		embedder = services.NewOpenAIEmbedder(cfg.OpenAIAPIKey, "")
		logger.Info("Embedding reconciliation enabled (openai)")
	case "ollama":
		embedder = services.NewOllamaEmbedder(cfg.EmbeddingModel, cfg.OllamaURL)
		logger.Info("Embedding reconciliation enabled (ollama, %s)", cfg.EmbeddingModel)
	default:
		logger.Info("Embedding reconciliation disabled, using fuzzy matching")
	}

	var rewriter *services.QueryRewriter
	if cfg.GeminiAPIKey != "" {
		chat, err := newRewriteModel(ctx, cfg)
		if err != nil {
			logger.Warn("Query rewriting disabled: %v", err)
		} else {
			rewriter = services.NewQueryRewriter(chat, logger)
		}
	}

	var searchLog *storage.PostgresSearchLog
	if cfg.SearchLogEnabled {
		sl, err := storage.NewPostgresSearchLog(ctx, cfg.DSN())
		if err != nil {
			logger.Error("Failed to connect to PostgreSQL, search log disabled: %v", err)
		} else {
			searchLog = sl
			defer searchLog.Close()
		}
	}

	deps := services.SearchDeps{
		Rewriter:     rewriter,
		Orchestrator: orchestrator,
		Validator:    validator,
		Reconciler:   services.NewReconciler(embedder, logger),
		Logger:       logger,
	}
	if searchLog != nil {
		deps.SearchLog = searchLog
	}
	searchSvc := services.NewSearchService(deps)

	if *serveAPI {
		var recent controllers.RecentSearches
		if searchLog != nil {
			recent = searchLog
		}
		if err := serve(ctx, cfg.HTTPAddr, controllers.NewSearchController(searchSvc, recent, logger), logger); err != nil {
			logger.Error("HTTP server failed: %v", err)
			return 1
		}
		return 0
	}

	q := models.SearchQuery{
		Text:   *query,
		Region: *region,
		Sort:   models.SortMode(*sortMode),
		Page:   *page,
		Limit:  *limit,
	}
	if *minPrice > 0 {
		q.MinPrice = minPrice
	}
	if *maxPrice > 0 {
		q.MaxPrice = maxPrice
	}

	result, err := searchSvc.Search(ctx, q)
	if err != nil {
		logger.Error("Search rejected: %v", err)
		flag.Usage()
		return 2
	}

	if *writeCSV {
		exportRaw(cfg.CSVOutputPath, result.RawListings, logger)
	}

	if result.Error != "" {
		logger.Error("Search finished without results: %s", result.Error)
		return 1
	}

	printProducts(result)

	insightSvc := services.NewInsightService(logger)
	insightSvc.Print(os.Stdout, insightSvc.Generate(result.Products))
	return 0
}

func newRewriteModel(ctx context.Context, cfg *config.Config) (model.BaseChatModel, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, eris.Wrap(err, "error creating Gemini client")
	}
	maxTokens := 256
	chat, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       cfg.RewriteModel,
		Temperature: &cfg.RewriteTemp,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return nil, eris.Wrap(err, "error creating Gemini chat model")
	}
	return chat, nil
}

func exportRaw(path string, listings []models.Listing, logger *utils.Logger) {
	csvWriter, err := storage.NewCSVWriter(path)
	if err != nil {
		logger.Error("Failed to create CSV writer: %v", err)
		return
	}
	defer csvWriter.Close()

	if err := csvWriter.WriteRaw(listings); err != nil {
		logger.Error("CSV write failed: %v", err)
		return
	}
	logger.Info("%d raw listings saved to %s", len(listings), path)
}

func printProducts(r *models.SearchResult) {
	fmt.Printf("\n  %q: %d products (page %d, %.2fs)\n", r.Query, r.TotalResults, r.Page, r.SearchTime)
	if r.Rewritten != "" && r.Rewritten != r.Query {
		fmt.Printf("  searched as %q\n", r.Rewritten)
	}
	fmt.Println()
	for i, p := range r.Products {
		price := "n/a"
		if p.Price != nil {
			price = fmt.Sprintf("%.2f %s", *p.Price, p.Currency)
		}
		fmt.Printf("  %2d. %-50.50s %14s  deal %5.1f  rel %5.1f  [%s]\n",
			(r.Page-1)*r.Limit+i+1, p.Title, price, p.DealScore, p.RelevanceScore, strings.Join(p.AllSources, ", "))
	}
}

func serve(ctx context.Context, addr string, c *controllers.SearchController, logger *utils.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           c.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("API listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return eris.Wrapf(err, "listen on %s", addr)
	}
	return nil
}
