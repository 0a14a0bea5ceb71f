// cmd/worker-manager/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"probate-workers/internal/api"
	commonaws "probate-workers/internal/common/aws"
	"probate-workers/internal/common/camunda"
	"probate-workers/internal/common/config"
	"probate-workers/internal/common/database"
	"probate-workers/internal/common/llm"
	"probate-workers/internal/common/logger"
	"probate-workers/internal/common/observability"
	analyzedocument "probate-workers/internal/workers/asset-discovery/analyze-document"
	discovercaseassets "probate-workers/internal/workers/asset-discovery/discover-case-assets"
	searchcaseassets "probate-workers/internal/workers/asset-discovery/search-case-assets"
	advancecasephase "probate-workers/internal/workers/case/advance-case-phase"
	createcaserecord "probate-workers/internal/workers/case/create-case-record"
	generateformletter "probate-workers/internal/workers/case/generate-form-letter"
	notifycasecontact "probate-workers/internal/workers/case/notify-case-contact"
	validateintake "probate-workers/internal/workers/case/validate-intake"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info", "console").Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.NewWithOutput(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	log.Info("starting worker manager", map[string]interface{}{
		"app":         cfg.App.Name,
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()
	if err := obs.EnableTracing(cfg.Tracing); err != nil {
		log.Warn("tracing disabled", map[string]interface{}{"error": err.Error()})
	}

	// --- Stores ---
	var pg *database.PostgresClient
	err = camunda.RetryWithBackoff(ctx, 15, 2*time.Second, log, "postgres connection", func() error {
		var err error
		if pg, err = database.NewPostgres(cfg.Database.Postgres); err != nil {
			return err
		}
		return pg.Ping(ctx)
	})
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	if err := pg.EnsureSchema(ctx); err != nil {
		zapLog.Fatal("postgres schema", zap.Error(err))
	}

	var es *database.ElasticsearchClient
	err = camunda.RetryWithBackoff(ctx, 15, 2*time.Second, log, "elasticsearch connection", func() error {
		var err error
		if es, err = database.NewElasticsearch(cfg.Database.Elasticsearch); err != nil {
			return err
		}
		return es.Ping()
	})
	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	if err := es.EnsureIndex(ctx, cfg.AssetDiscovery.Index, discovercaseassets.IndexMapping); err != nil {
		zapLog.Fatal("elasticsearch index", zap.Error(err), zap.String("index", cfg.AssetDiscovery.Index))
	}

	var rdb *database.RedisClient
	err = camunda.RetryWithBackoff(ctx, 10, 2*time.Second, log, "redis connection", func() error {
		var err error
		if rdb, err = database.NewRedis(cfg.Database.Redis); err != nil {
			return err
		}
		return rdb.Ping(ctx)
	})
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()

	// --- External services ---
	model, err := llm.New(ctx, cfg.APIs.LLM)
	if err != nil {
		zapLog.Fatal("llm client", zap.Error(err))
	}

	var (
		sesClient notifycasecontact.SESService
		snsClient notifycasecontact.SNSService
	)
	awsCfg := cfg.Integrations.AWS
	if awsCfg.SES.Enabled || awsCfg.SNS.Enabled {
		sdkCfg, err := commonaws.LoadConfig(ctx, awsCfg.Region)
		if err != nil {
			zapLog.Fatal("aws config", zap.Error(err))
		}
		if awsCfg.SES.Enabled {
			sesClient = commonaws.NewSESClient(sdkCfg)
		}
		if awsCfg.SNS.Enabled {
			snsClient = commonaws.NewSNSClient(sdkCfg)
		}
	}

	// --- Handlers ---
	analyzer := analyzedocument.NewHandler(&analyzedocument.Config{
		Timeout:          workerTimeout(cfg, analyzedocument.TaskType),
		MaxDocumentChars: cfg.AssetDiscovery.MaxDocumentChars,
	}, model, obs, log)

	discovery := discovercaseassets.NewHandler(&discovercaseassets.Config{
		Timeout:        workerTimeout(cfg, discovercaseassets.TaskType),
		MaxConcurrency: cfg.AssetDiscovery.MaxConcurrency,
		CacheTTL:       config.Seconds(cfg.AssetDiscovery.CacheTTL),
		Index:          cfg.AssetDiscovery.Index,
	}, pg.DB, rdb.Client, es, analyzer, obs, log)

	search := searchcaseassets.NewHandler(&searchcaseassets.Config{
		Timeout: workerTimeout(cfg, searchcaseassets.TaskType),
		Index:   cfg.AssetDiscovery.Index,
	}, es.Client, log)

	phases := advancecasephase.NewHandler(&advancecasephase.Config{
		Timeout:    workerTimeout(cfg, advancecasephase.TaskType),
		SummaryTTL: advancecasephase.LoadConfig().SummaryTTL,
	}, pg.DB, rdb.Client, log)

	intake := validateintake.NewHandler(&validateintake.Config{
		Timeout: workerTimeout(cfg, validateintake.TaskType),
	}, log)

	records := createcaserecord.NewHandler(&createcaserecord.Config{
		Timeout: workerTimeout(cfg, createcaserecord.TaskType),
	}, pg.DB, log)

	letters := generateformletter.NewHandler(&generateformletter.Config{
		Timeout:      workerTimeout(cfg, generateformletter.TaskType),
		RegistryPath: cfg.Letters.RegistryPath,
		CacheTTL:     config.Seconds(cfg.Letters.CacheTTL),
	}, log)

	notifier := notifycasecontact.NewHandler(&notifycasecontact.Config{
		EmailEnabled: awsCfg.SES.Enabled,
		SMSEnabled:   awsCfg.SNS.Enabled,
		FromEmail:    awsCfg.SES.FromEmail,
		Timeout:      workerTimeout(cfg, notifycasecontact.TaskType),
	}, pg.DB, sesClient, snsClient, log)

	// --- Zeebe workers ---
	zeebe, err := camunda.Connect(ctx, camunda.ConfigFrom(cfg.Camunda), 10, log)
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	defer zeebe.Close()

	workers := camunda.NewManager(zeebe.GetClient(), log)
	defer workers.Close()

	workers.Register(analyzedocument.TaskType, config.GetWorkerConfig(cfg, analyzedocument.TaskType), analyzer.Handle)
	workers.Register(discovercaseassets.TaskType, config.GetWorkerConfig(cfg, discovercaseassets.TaskType), discovery.Handle)
	workers.Register(searchcaseassets.TaskType, config.GetWorkerConfig(cfg, searchcaseassets.TaskType), search.Handle)
	workers.Register(validateintake.TaskType, config.GetWorkerConfig(cfg, validateintake.TaskType), intake.Handle)
	workers.Register(createcaserecord.TaskType, config.GetWorkerConfig(cfg, createcaserecord.TaskType), records.Handle)
	workers.Register(advancecasephase.TaskType, config.GetWorkerConfig(cfg, advancecasephase.TaskType), phases.Handle)
	workers.Register(generateformletter.TaskType, config.GetWorkerConfig(cfg, generateformletter.TaskType), letters.Handle)
	workers.Register(notifycasecontact.TaskType, config.GetWorkerConfig(cfg, notifycasecontact.TaskType), notifier.Handle)

	log.Info("workers registered", map[string]interface{}{"taskTypes": workers.TaskTypes()})

	// --- HTTP API ---
	esPing := func(context.Context) error { return es.Ping() }
	server := api.NewServer(cfg.Server, api.Dependencies{
		Analyzer:  analyzer,
		Discovery: discovery,
		Cases:     phases,
		Search:    search,
		Checks: map[string]func(context.Context) error{
			"postgres":      pg.Ping,
			"redis":         rdb.Ping,
			"zeebe":         zeebe.HealthCheck,
			"elasticsearch": esPing,
		},
	}, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		log.Error("api server stopped", map[string]interface{}{"error": err.Error()})
	}
	log.Info("shutdown signal received, stopping workers", nil)
}

func workerTimeout(cfg *config.Config, taskType string) time.Duration {
	return config.GetDuration(config.GetWorkerConfig(cfg, taskType).Timeout)
}
