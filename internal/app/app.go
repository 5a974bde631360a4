package app

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/qpos/internal/domain/auth"
	"github.com/xenking/qpos/internal/domain/catalog"
	"github.com/xenking/qpos/internal/domain/checkout"
	"github.com/xenking/qpos/internal/domain/order"
	"github.com/xenking/qpos/internal/domain/receipt"
	"github.com/xenking/qpos/internal/domain/settings"
	"github.com/xenking/qpos/internal/events"
	"github.com/xenking/qpos/internal/handler"
	"github.com/xenking/qpos/internal/printer"
	"github.com/xenking/qpos/internal/storage/kv"
	"github.com/xenking/qpos/internal/storage/memory"
	"github.com/xenking/qpos/internal/storage/postgres"
	"github.com/xenking/qpos/internal/storage/redis"
	"github.com/xenking/qpos/pkg/health"
	"github.com/xenking/qpos/pkg/httpmiddleware"
)

// syncer is a service that could not read its stored state at startup and
// retries on demand.
type syncer interface {
	Sync(ctx context.Context, store kv.Store) error
}

// storageCheck reports the store as ready only once it answers check and
// every service has read its stored state.
func storageCheck(store kv.Store, check func(context.Context) error, services ...syncer) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := check(ctx); err != nil {
			return err
		}
		for _, svc := range services {
			if err := svc.Sync(ctx, store); err != nil {
				return errors.Wrap(err, "sync")
			}
		}
		return nil
	}
}

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("events", cfg.Events.Driver),
	)

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	// Key-value store and write-behind persistence.
	store, err := OpenStore(ctx, lg, cfg.Storage)
	if err != nil {
		return errors.Wrap(err, "open store")
	}
	defer func() { _ = store.Close() }()
	persist := kv.NewWriteBehind(store, lg.Named("kv"), cfg.Storage.FlushInterval)

	// Order events.
	sink, err := openSink(cfg.Events, lg)
	if err != nil {
		return errors.Wrap(err, "open event sink")
	}
	bus := events.NewBus(sink, lg.Named("events"), events.DefaultBufferSize)

	// Domain services, restored from the store. An unavailable store leaves
	// the defaults in place.
	menu := catalog.NewService(persist, lg.Named("catalog"))
	menu.Load(ctx, store)
	prefs := settings.NewService(persist, lg.Named("settings"), cfg.Currency)
	prefs.Load(ctx, store)
	users := auth.NewDirectory(persist, lg.Named("auth"))
	users.Load(ctx, store)
	orders, err := order.NewStore(persist, bus, lg.Named("order"),
		order.WithLocation(loc),
		order.WithMeterProvider(m.MeterProvider()),
	)
	if err != nil {
		return errors.Wrap(err, "create order store")
	}
	orders.Load(ctx, store)

	// Receipts.
	width, err := receipt.WidthForPaper(cfg.Printer.PaperWidth)
	if err != nil {
		return err
	}
	var opener printer.PortOpener = printer.Unavailable{}
	if cfg.Printer.Enabled {
		opener = printer.NewSerialOpener(cfg.Printer.Device, cfg.Printer.Baud)
	}
	dispatcher, err := printer.NewDispatcher(opener, printer.NewSpoolSurface(cfg.Printer.SpoolDir), lg.Named("printer"),
		printer.WithTimeout(cfg.Printer.Timeout),
		printer.WithMeterProvider(m.MeterProvider()),
	)
	if err != nil {
		return errors.Wrap(err, "create printer")
	}
	till, err := checkout.NewService(orders, menu, prefs,
		receipt.NewFormatter(prefs, receipt.WithLocation(loc)),
		dispatcher, width, lg.Named("checkout"),
	)
	if err != nil {
		return errors.Wrap(err, "create checkout")
	}

	// HTTP handlers.
	authn, err := handler.NewAuthenticator([]byte(cfg.Auth.JWTSecret))
	if err != nil {
		return err
	}
	h := handler.NewHandler(handler.HandlerConfig{Location: loc}, handler.Deps{
		Menu:     menu,
		Settings: prefs,
		Users:    users,
		Orders:   orders,
		Checkout: till,
		Store:    store,
		Flusher:  persist,
	})

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("kv", 5*time.Second, storageCheck(store, store.Check, menu, prefs, users, orders))
	healthSvc.AddReadinessCheck("kv-writes", time.Second, health.PendingWritesCheck(persist.Pending, 0))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", otelhttp.NewHandler(h.Routes(authn), "qpos-api",
		otelhttp.WithMeterProvider(m.MeterProvider()),
		otelhttp.WithTracerProvider(m.TracerProvider()),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	))

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      cfg.Printer.Timeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", "If-None-Match", httpmiddleware.RequestIDHeader},
				ExposeHeaders:    []string{"ETag", "Location", "Content-Disposition", httpmiddleware.RequestIDHeader},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.LogRequests(),
		),
	}

	// Background workers outlive the server so that writes made by the last
	// requests are flushed and published.
	workCtx, stopWorkers := context.WithCancel(context.WithoutCancel(ctx))
	defer stopWorkers()
	var workers errgroup.Group
	workers.Go(func() error { return persist.Run(workCtx) })
	workers.Go(func() error { return bus.Run(workCtx) })

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()

		stopWorkers()
		if err := workers.Wait(); err != nil {
			lg.Error("Background worker error", zap.Error(err))
		}
		lg.Info("Stopped", zap.Int64("events_dropped", bus.Dropped()))
		return nil
	})
	return g.Wait()
}

// Store is a kv.Store with the resources behind it.
type Store struct {
	kv.Store
	close   func() error
	prepare func(ctx context.Context) error

	prepared atomic.Bool
}

// Close releases the backend connections.
func (s *Store) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Check pings the backend. The PostgreSQL schema is applied by the first
// check that reaches the database, so the server can start while it is down.
func (s *Store) Check(ctx context.Context) error {
	if s.prepare != nil && !s.prepared.Load() {
		if err := s.prepare(ctx); err != nil {
			return err
		}
		s.prepared.Store(true)
	}
	return s.Ping(ctx)
}

// OpenStore connects the configured backend.
func OpenStore(ctx context.Context, lg *zap.Logger, cfg StorageConfig) (*Store, error) {
	switch cfg.Driver {
	case StoragePostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, errors.Wrap(err, "create db pool")
		}
		s := &Store{
			Store:   postgres.NewStore(pool),
			close:   func() error { pool.Close(); return nil },
			prepare: func(ctx context.Context) error { return postgres.RunMigrations(ctx, pool) },
		}
		if err := s.Check(ctx); err != nil {
			lg.Warn("PostgreSQL unavailable at startup, using defaults", zap.Error(err))
		}
		return s, nil
	case StorageRedis:
		client := redis.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		return &Store{Store: redis.NewStore(client, cfg.RedisPrefix), close: client.Close}, nil
	default:
		return &Store{Store: memory.New()}, nil
	}
}

func openSink(cfg EventsConfig, lg *zap.Logger) (events.Sink, error) {
	switch cfg.Driver {
	case EventsAMQP:
		s, err := events.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return nil, err
		}
		return s, nil
	case EventsKafka:
		return events.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic), nil
	default:
		return events.NewLogSink(lg.Named("events")), nil
	}
}
