package di

import (
	"context"
	"fmt"
	"time"

	"spotwatch/internal/calendar"
	"spotwatch/internal/domain/repository"
	"spotwatch/internal/engine"
	"spotwatch/internal/handler/api"
	"spotwatch/internal/refclose"
	internalrepo "spotwatch/internal/repository"
	"spotwatch/internal/service/feed"
	"spotwatch/internal/service/metrics"
	"spotwatch/internal/usecase"
	"spotwatch/pkg/cache"
	pkgch "spotwatch/pkg/clickhouse"
	"spotwatch/pkg/config"
	pkgkafka "spotwatch/pkg/kafka"
	applogger "spotwatch/pkg/logger"
	"spotwatch/pkg/scheduler"
	"spotwatch/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideLocation loads the exchange timezone. Config validation already
// checked it, so a failure here is a programming error.
func ProvideLocation(cfg *config.Config) (*time.Location, error) {
	return time.LoadLocation(cfg.Calendar.Timezone)
}

// ProvideCalendar creates the trading window calculator.
func ProvideCalendar(cfg *config.Config, loc *time.Location) *calendar.Calculator {
	return calendar.New(calendar.Config{
		Location:       loc,
		OpenHour:       cfg.Calendar.OpenHour,
		CloseHour:      cfg.Calendar.CloseHour,
		BreakStartHour: cfg.Calendar.BreakStartHour,
		BreakEndHour:   cfg.Calendar.BreakEndHour,
	})
}

// ProvideFeedClient creates the spot price provider client.
func ProvideFeedClient(cfg *config.Config, log *applogger.Logger) *feed.Client {
	return feed.New(cfg.Feed, log)
}

// ProvideSpotSource exposes the feed client as the live price source.
func ProvideSpotSource(c *feed.Client) repository.SpotSource { return c }

// ProvideHistorySource exposes the feed client as the daily close source.
func ProvideHistorySource(c *feed.Client) repository.HistorySource { return c }

// ProvideCache builds the close-lookup cache: always an in-process layer,
// with Redis underneath when enabled so restarts keep the warm set.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache(), nil
	}

	redisCache, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(redisCache), nil
}

// ProvideResolver creates the reference close resolver.
func ProvideResolver(src repository.HistorySource, c cache.Service, loc *time.Location, cfg *config.Config, log *applogger.Logger) *refclose.Resolver {
	return refclose.NewResolver(src, c, loc, cfg.Reference.MaxLookback, cfg.Reference.CacheTTL, log)
}

// ProvideSnapshot creates the shared status snapshot.
func ProvideSnapshot() *engine.Snapshot {
	return engine.NewSnapshot()
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(cfg *config.Config) repository.Metrics {
	return metrics.New(cfg.Feed.Symbol)
}

// ProvideKafkaProducer creates a Kafka producer, or nil when disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithTimeouts(cfg.Kafka.WriteTimeout, cfg.Kafka.ReadTimeout),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideClickHouseClient creates a ClickHouse client with the reading
// history schema applied, or nil when disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.ReadingSchema(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideReadingStorage creates reading history storage, or nil when
// ClickHouse is disabled.
func ProvideReadingStorage(chClient *pkgch.Client, cfg *config.Config) *internalrepo.ClickHouseReadingStorage {
	if chClient == nil {
		return nil
	}
	return internalrepo.NewClickHouseReadingStorage(chClient.DB(), cfg.ClickHouse.Database+".spot_readings")
}

// ProvideStatusHub creates the websocket broadcast hub.
func ProvideStatusHub(log *applogger.Logger, snap *engine.Snapshot, cfg *config.Config) *api.StatusHub {
	return api.NewStatusHub(log, snap, cfg.Feed.Symbol)
}

// ProvideEngine creates the status engine with its transition sinks and
// optional reading storage attached.
func ProvideEngine(
	cal *calendar.Calculator,
	spot repository.SpotSource,
	snap *engine.Snapshot,
	m repository.Metrics,
	log *applogger.Logger,
	cfg *config.Config,
	hub *api.StatusHub,
	producer *pkgkafka.Producer,
	storage *internalrepo.ClickHouseReadingStorage,
) *engine.Engine {
	e := engine.New(cal, spot, snap, m, log, cfg.Feed.Symbol, engine.PollingPolicy{
		Interval:         cfg.Polling.Interval,
		ConfirmInterval:  cfg.Polling.ConfirmInterval,
		SameThreshold:    cfg.Polling.SameThreshold,
		ConfirmThreshold: cfg.Polling.ConfirmThreshold,
		Epsilon:          cfg.Polling.Epsilon,
	})
	e.AddListener(hub)
	if producer != nil {
		e.AddListener(internalrepo.NewKafkaTransitionPublisher(producer, cfg.Kafka.Topic, log))
	}
	if storage != nil {
		e.SetReadingStore(storage)
	}
	return e
}

// ProvidePoller creates the polling loop around the engine.
func ProvidePoller(e *engine.Engine, log *applogger.Logger) *engine.Poller {
	return engine.NewPoller(e, log)
}

// ProvideRefresher creates the daily reference refresh job.
func ProvideRefresher(resolver *refclose.Resolver, snap *engine.Snapshot, cfg *config.Config, log *applogger.Logger) *usecase.ReferenceRefresher {
	return usecase.NewReferenceRefresher(resolver, snap, cfg.Reference.Horizons, cfg.Reference.MedianWindow, log)
}

// ProvideScheduler creates the cron scheduler in the exchange timezone.
func ProvideScheduler(loc *time.Location, log *applogger.Logger) *scheduler.Scheduler {
	return scheduler.New(loc, log)
}

// ProvideQuoteCalculator creates the pricing collaborator.
func ProvideQuoteCalculator(snap *engine.Snapshot, cfg *config.Config) *usecase.QuoteCalculator {
	tiers := make([]usecase.PriceTier, 0, len(cfg.Pricing.Tiers))
	for _, t := range cfg.Pricing.Tiers {
		tiers = append(tiers, usecase.PriceTier{MinQuantity: t.MinQuantity, DiscountPct: t.DiscountPct})
	}
	return usecase.NewQuoteCalculator(snap, cfg.Pricing.SpreadPct, tiers)
}

// ProvideStatusHandler creates the HTTP API handler.
func ProvideStatusHandler(
	log *applogger.Logger,
	snap *engine.Snapshot,
	quoter *usecase.QuoteCalculator,
	storage *internalrepo.ClickHouseReadingStorage,
	cfg *config.Config,
) *api.StatusHandler {
	return api.NewStatusHandler(log, snap, quoter, storage, cfg.Feed.Symbol)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	poller *engine.Poller,
	refresher *usecase.ReferenceRefresher,
	sched *scheduler.Scheduler,
	handler *api.StatusHandler,
	hub *api.StatusHub,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
) *server.App {
	return server.New(cfg, log, poller, refresher, sched, handler, hub, producer, chClient)
}
