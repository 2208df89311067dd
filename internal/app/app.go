package app

import (
	"context"
	"time"

	"github.com/NasaVasa/pricewatch/internal/cache"
	"github.com/NasaVasa/pricewatch/internal/config"
	"github.com/NasaVasa/pricewatch/internal/delivery/httpapi"
	"github.com/NasaVasa/pricewatch/internal/delivery/telegram"
	"github.com/NasaVasa/pricewatch/internal/domain"
	"github.com/NasaVasa/pricewatch/internal/infra/db"
	"github.com/NasaVasa/pricewatch/internal/infra/kv"
	"github.com/NasaVasa/pricewatch/internal/infra/log"
	"github.com/NasaVasa/pricewatch/internal/infra/metrics"
	"github.com/NasaVasa/pricewatch/internal/infra/pricefeed"
	"github.com/NasaVasa/pricewatch/internal/infra/webhook"
	"github.com/NasaVasa/pricewatch/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	bot        *telegram.Bot
	httpServer *httpapi.Server
	poller     *usecase.PricePoller
	alertUC    *usecase.AlertUsecase
	resilient  *cache.Resilient
	local      *cache.MemoryStore
	cleanupFns []func() error

	// outbound webhook deliveries started by triggers
	inflight deliveryGroup
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := log.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collectorSet, err := metrics.New(cfg.MetricsNamespace, registry)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, logger: logger}

	redisStore := cache.NewRedisStore(cache.RedisOptions{
		Addr:        cfg.RedisAddr,
		Password:    cfg.RedisPassword,
		DB:          cfg.RedisDB,
		KeyPrefix:   cfg.RedisKeyPrefix,
		DialTimeout: cfg.RedisDialTimeout,
		OpTimeout:   cfg.RedisOpTimeout,
	})
	a.cleanupFns = append(a.cleanupFns, redisStore.Close)

	a.local = cache.NewMemoryStore()
	a.resilient = cache.NewResilient(
		redisStore,
		a.local,
		cache.WithLogger(logger),
		cache.WithMetrics(collectorSet),
		cache.WithRecheckInterval(cfg.CacheRecheckInterval),
	)
	state := a.resilient.Probe(ctx)
	logger.Info("cache backend selected", zap.String("backend", a.resilient.Backend()), zap.Stringer("remote", state))

	var (
		users      domain.UserRepository
		deliveries domain.DeliveryLog
	)
	dispatcherOpts := []webhook.Option{
		webhook.WithMaxAttempts(cfg.WebhookMaxAttempts),
		webhook.WithBackoff(cfg.WebhookBackoff),
		webhook.WithMetrics(collectorSet),
	}
	if cfg.DatabaseEnabled() {
		dbConn, err := db.Open(cfg, logger)
		if err != nil {
			return nil, multierr.Append(err, a.cleanup())
		}
		a.cleanupFns = append(a.cleanupFns, func() error {
			sqlDB, err := dbConn.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		})
		users = db.NewUserRepository(dbConn)
		deliveryRepo := db.NewDeliveryRepository(dbConn)
		deliveries = deliveryRepo
		dispatcherOpts = append(dispatcherOpts, webhook.WithRecorder(deliveryRepo))
	} else {
		logger.Info("database disabled, users and webhook deliveries are not persisted")
	}

	alertRegistry := kv.NewAlertRegistry(a.resilient, logger)
	priceCache := kv.NewPriceCache(a.resilient, cfg.PriceCacheTTL, logger)
	portfolios := kv.NewPortfolioRepository(a.resilient, logger)
	webhooks := kv.NewWebhookRepository(a.resilient, logger)

	provider := pricefeed.NewClient(cfg.PriceAPIBaseURL, cfg.PriceAPIKey, cfg.PriceAPITimeout, cfg.PriceSymbolIDs, logger)
	matcher := usecase.NewAlertMatcher(alertRegistry, priceCache, logger, collectorSet)
	pollerOpts := []usecase.PollerOption{usecase.WithPollerMetrics(collectorSet)}
	if !cfg.PollSkipOverlap {
		pollerOpts = append(pollerOpts, usecase.WithOverlappingTicks())
	}
	a.poller = usecase.NewPricePoller(provider, matcher, cfg.PollInterval, logger, pollerOpts...)
	dispatcher := webhook.NewDispatcher(webhooks, cfg.WebhookTimeout, logger, dispatcherOpts...)

	userUC := usecase.NewUserUsecase(users, logger)
	a.alertUC = usecase.NewAlertUsecase(alertRegistry, a.poller, logger)
	priceUC := usecase.NewPriceUsecase(provider, priceCache, a.resilient, usecase.DefaultBatchTTL, logger)
	portfolioUC := usecase.NewPortfolioUsecase(portfolios, priceUC)
	webhookUC := usecase.NewWebhookUsecase(webhooks, dispatcher, logger)

	api, err := telegram.NewAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, multierr.Append(err, a.cleanup())
	}

	notifier := telegram.NewNotifier(api, userUC, logger)
	a.poller.Subscribe(usecase.AnySymbol, a.fanOut(notifier, dispatcher))

	handlers := telegram.NewHandlers(userUC, a.alertUC, priceUC, portfolioUC, webhookUC, deliveries, logger)
	a.bot = telegram.NewBot(api, handlers, cfg.TelegramPollTimeout)

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httpapi.NewRouter(a.resilient, a.poller, registry, logger)
	a.httpServer = httpapi.NewServer(cfg.HTTPAddr, router, logger)

	return a, nil
}

// fanOut delivers every trigger to the alert owner's chat and webhook. The
// webhook runs in the background so retries never hold up a poll tick.
func (a *App) fanOut(notifier *telegram.Notifier, dispatcher *webhook.Dispatcher) usecase.TriggerHandler {
	return func(ctx context.Context, trigger domain.Trigger) {
		notifier.NotifyTrigger(ctx, trigger)

		started := a.inflight.Go(func() {
			dispatcher.SendPriceAlert(context.WithoutCancel(ctx), trigger)
		})
		if !started {
			a.logger.Warn("webhook delivery skipped during shutdown",
				zap.Int64("user_id", trigger.Alert.UserID),
				zap.String("symbol", trigger.Alert.Symbol))
		}
	}
}

func (a *App) Run(ctx context.Context) error {
	a.logger.Info("pricewatch service starting")

	go a.local.RunJanitor(ctx, a.cfg.CacheSweepInterval)

	symbols, err := a.alertUC.Rehydrate(ctx)
	if err != nil {
		a.logger.Warn("failed to restore monitored symbols", zap.Error(err))
		a.poller.StartMonitoring(ctx)
	} else {
		a.logger.Info("monitored symbols restored", zap.Strings("symbols", symbols))
	}

	go func() {
		if err := a.httpServer.Start(); err != nil {
			a.logger.Error("http server stopped", zap.Error(err))
		}
	}()

	a.logger.Info("pricewatch service started")
	return a.bot.Start(ctx)
}

func (a *App) Shutdown() {
	a.logger.Info("pricewatch service shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	tick := a.poller.StopMonitoring()

	var errs error
	if a.httpServer != nil {
		errs = multierr.Append(errs, a.httpServer.Shutdown(ctx))
	}

	select {
	case <-tick.Done():
	case <-ctx.Done():
		a.logger.Warn("timeout waiting for the running price poll")
	}
	if err := a.inflight.CloseAndWait(ctx); err != nil {
		a.logger.Warn("timeout waiting for webhook deliveries", zap.Error(err))
	}

	errs = multierr.Append(errs, a.cleanup())
	if errs != nil {
		a.logger.Warn("shutdown completed with errors", zap.Error(errs))
	}
	_ = a.logger.Sync()
}

func (a *App) cleanup() error {
	var errs error
	for i := len(a.cleanupFns) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, a.cleanupFns[i]())
	}
	a.cleanupFns = nil
	return errs
}
