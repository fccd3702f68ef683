// cmd/portal-server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"

	"assistance-portal/internal/ai"
	"assistance-portal/internal/api"
	"assistance-portal/internal/common/aws"
	"assistance-portal/internal/common/camunda"
	"assistance-portal/internal/common/config"
	"assistance-portal/internal/common/database"
	commonhttp "assistance-portal/internal/common/http"
	"assistance-portal/internal/common/logger"
	"assistance-portal/internal/common/metrics"
	"assistance-portal/internal/common/observability"
	"assistance-portal/internal/form/country"
	"assistance-portal/internal/form/session"
	"assistance-portal/internal/form/submission"
	"assistance-portal/internal/form/validators"
	"assistance-portal/internal/form/wizard"
	"assistance-portal/internal/repository"

	ra "assistance-portal/internal/workers/application/record-application"
	sc "assistance-portal/internal/workers/application/send-confirmation"
)

const (
	serviceName = "assistance-portal"

	// Live controllers idle this long are evicted and rebuilt from the store on
	// the next request.
	sessionIdle   = 30 * time.Minute
	sweepInterval = time.Minute
)

// connect retries op with exponential backoff.
func connect(ctx context.Context, name string, attempts uint, op func() error, log logger.Logger) error {
	return retry.Do(
		op,
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(time.Second),
		retry.MaxDelay(10*time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(attempt uint, err error) {
			log.Warn(name+" connection failed, retrying", map[string]interface{}{
				"attempt":     attempt + 1,
				"maxAttempts": attempts,
				"error":       err.Error(),
			})
		}),
	)
}

// aiRecorder sends provider call outcomes to both metric pipelines.
type aiRecorder struct {
	metrics.Recorder
	obs *observability.Observability
}

func (r aiRecorder) RecordAIRequest(operation, outcome string, elapsed time.Duration) {
	r.Recorder.RecordAIRequest(operation, outcome, elapsed)
	r.obs.RecordAICall(context.Background(), operation, outcome, elapsed)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.NewWithOptions(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{
		"service": serviceName,
		"version": cfg.App.Version,
	})

	log.Info("starting portal server", map[string]interface{}{"environment": cfg.App.Environment})

	obs := observability.New(serviceName, log)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rec := metrics.Recorder{}
	checks := map[string]api.Check{}

	// --- Session storage ---
	ttl := config.GetDuration(cfg.Session.TTL)
	var (
		store   session.Store
		redisDB *database.RedisClient
	)
	redisDB, err = database.NewRedis(cfg.Database.Redis)
	if err == nil {
		err = connect(ctx, "redis", 5, func() error { return redisDB.Ping(ctx) }, log)
	}
	if err != nil {
		log.Warn("redis unavailable, sessions are kept in memory only", map[string]interface{}{"error": err.Error()})
		if redisDB != nil {
			redisDB.Close()
			redisDB = nil
		}
		store = session.NewMemoryStore(ttl)
	} else {
		defer redisDB.Close()
		store = session.NewRedisStore(redisDB.Client, cfg.Session.KeyPrefix, ttl, log)
		checks["redis"] = redisDB.Ping
		log.Info("redis connected", map[string]interface{}{"address": cfg.Database.Redis.Address})
	}
	autosaver := session.NewAutosaver(store, config.GetDuration(cfg.Session.AutosaveInterval), log).
		WithFailureRecorder(rec)

	// --- Back office ---
	var apps *repository.Applications
	if cfg.Database.Postgres.Enabled {
		var pg *database.PostgresClient
		err := connect(ctx, "postgres", 10, func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			return err
		}, log)
		if err != nil {
			zapLog.Fatal("postgres connection failed after retries", zap.Error(err))
		}
		defer pg.Close()

		apps = repository.NewApplications(pg.DB, log)
		if err := apps.Migrate(ctx); err != nil {
			zapLog.Fatal("applications migration failed", zap.Error(err))
		}
		checks["postgres"] = pg.Ping
		log.Info("postgres connected", nil)
	}

	var zeebe *camunda.Client
	if cfg.Camunda.Enabled {
		err := connect(ctx, "zeebe", 10, func() error {
			var err error
			zeebe, err = camunda.NewClientWithConfig(camunda.ConfigFrom(cfg.Camunda), log)
			return err
		}, log)
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		defer zeebe.Close()
		checks["zeebe"] = zeebe.HealthCheck
		log.Info("zeebe client connected", map[string]interface{}{"gateway": cfg.Camunda.BrokerAddress})
	}

	var backend submission.Backend
	switch {
	case zeebe != nil:
		backend = submission.NewProcessBackend(zeebe, cfg.Camunda.ProcessID)
	case apps != nil:
		backend = submission.NewRecordBackend(apps)
	default:
		log.Warn("no back office configured, submissions are only logged", nil)
		backend = submission.NewLogBackend(log)
	}

	// --- Wizard ---
	validator := validators.New(country.Default())
	pipeline := submission.NewPipeline(validator, backend, autosaver, log, submission.WithRecorder(rec))
	registry := wizard.NewRegistry(wizard.Config{
		Validator: validator,
		Store:     autosaver,
		Submitter: pipeline,
		Observer:  rec,
		Logger:    log,
	}, sessionIdle)

	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if n := registry.Sweep(now); n > 0 {
					log.Debug("idle sessions evicted", map[string]interface{}{"count": n})
				}
			}
		}
	}()

	// --- AI helper ---
	aiTimeout := config.GetDuration(cfg.AI.Timeout)
	var provider ai.Provider
	openAI, err := ai.NewOpenAIProvider(ai.OpenAIConfig{
		APIKey:      cfg.AI.OpenAI.APIKey,
		BaseURL:     cfg.AI.OpenAI.BaseURL,
		Model:       cfg.AI.OpenAI.Model,
		Temperature: cfg.AI.OpenAI.Temperature,
		HTTPClient:  commonhttp.NewClient(aiTimeout, log),
	})
	switch {
	case err == nil:
		provider = openAI
	case errors.Is(err, ai.ErrNotConfigured):
		log.Warn("OPENAI_API_KEY not set, AI assistance disabled", nil)
	default:
		zapLog.Fatal("openai provider setup failed", zap.Error(err))
	}
	aiService := ai.NewService(provider, ai.Config{
		MaxRephraseLength:  cfg.AI.MaxRephraseLength,
		MaxTranslateLength: cfg.AI.MaxTranslateLength,
		Timeout:            aiTimeout,
	}, obs, aiRecorder{obs: obs}, log)

	var limiter *api.RedisLimiter
	window := config.GetDuration(cfg.AI.RateLimit.Window)
	if redisDB != nil {
		limiter = api.NewRedisLimiter(redisDB.Client, "", cfg.AI.RateLimit.Requests, window)
	}

	// --- Workers ---
	var workers []*camunda.Worker
	if zeebe != nil {
		workers = startWorkers(ctx, cfg, zeebe, apps, rec, log)
	}

	// --- HTTP ---
	handler := api.NewServer(api.Config{
		ServiceName:     serviceName,
		Version:         cfg.App.Version,
		DefaultLanguage: cfg.Server.DefaultLanguage,
	}, api.Deps{
		AI:        aiService,
		Sessions:  registry,
		RateLimit: api.RateLimit(limiter, cfg.AI.RateLimit.Requests, window, log, rec),
		Checks:    checks,
		Logger:    log,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler,
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}
	go func() {
		log.Info("http server listening", map[string]interface{}{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", map[string]interface{}{"error": err.Error()})
	}
	for _, w := range workers {
		w.Stop()
	}
	if err := autosaver.Flush(shutdownCtx); err != nil {
		log.Warn("pending autosaves not written", map[string]interface{}{"error": err.Error()})
	}
	log.Info("portal server stopped", nil)
}

// startWorkers opens the job workers of the review process.
func startWorkers(ctx context.Context, cfg *config.Config, zeebe *camunda.Client, apps *repository.Applications, rec metrics.Recorder, log logger.Logger) []*camunda.Worker {
	var workers []*camunda.Worker

	if wc := config.GetWorkerConfig(cfg, ra.TaskType); wc.Enabled {
		if apps == nil {
			log.Warn("record-application needs postgres, worker not started", nil)
		} else {
			h := ra.NewHandler(ra.LoadConfig(wc), apps, rec, log)
			workers = append(workers, camunda.NewWorker(zeebe.GetClient(), ra.TaskType, wc, h, log))
		}
	}

	if wc := config.GetWorkerConfig(cfg, sc.TaskType); wc.Enabled {
		nc := cfg.Notifications
		var (
			mailer sc.EmailSender
			texter sc.SMSSender
		)
		if nc.Email.Enabled {
			ses, err := aws.NewSESClient(ctx, nc.AWS.Region, nc.Email.FromEmail)
			if err != nil {
				log.Error("SES client unavailable, confirmation email disabled", map[string]interface{}{"error": err.Error()})
			} else {
				mailer = ses
			}
		}
		if nc.SMS.Enabled {
			sns, err := aws.NewSNSClient(ctx, nc.AWS.Region)
			if err != nil {
				log.Error("SNS client unavailable, confirmation SMS disabled", map[string]interface{}{"error": err.Error()})
			} else {
				texter = sns
			}
		}
		h := sc.NewHandler(sc.LoadConfig(nc, wc), country.Default(), mailer, texter, rec, log)
		workers = append(workers, camunda.NewWorker(zeebe.GetClient(), sc.TaskType, wc, h, log))
	}

	log.Info("workers registered", map[string]interface{}{"count": len(workers)})
	return workers
}
