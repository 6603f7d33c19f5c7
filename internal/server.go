package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"time"

	"github.com/2beens/notesapp/internal/config"
	"github.com/2beens/notesapp/internal/db"
	"github.com/2beens/notesapp/internal/middleware"
	"github.com/2beens/notesapp/internal/misc"
	notesBox "github.com/2beens/notesapp/internal/notes_box"
	"github.com/2beens/notesapp/internal/storage"
	"github.com/2beens/notesapp/internal/telemetry/metrics"
	"github.com/2beens/notesapp/internal/telemetry/tracing"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/extra/redisotel/v8"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/multierr"
)

const (
	redisKeyPrefix     = "notes-app:"
	rateLimitKeyPrefix = "notes-api"
	// update payloads carry at most one note
	maxRequestBodyBytes = 4 << 20
)

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server

	config      *config.Config
	versionInfo string
	store       *notesBox.Store
	dbPool      *pgxpool.Pool
	redisClient *redis.Client
	rateLimiter middleware.RequestRateLimiter
	// peers allowed to report the client address in forwarding headers
	trustedProxies []netip.Prefix

	// metrics
	metricsManager   *metrics.Manager
	promRegistry     *prometheus.Registry
	otelShutdown     func()
	unsubscribeGauge func()
}

type NewServerParams struct {
	Config                  *config.Config
	RedisPassword           string
	PostgresPassword        string
	VersionInfo             string
	HoneycombTracingEnabled bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	cfg := params.Config
	if cfg == nil {
		return nil, errors.New("config not set")
	}

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "notes-app")
	if err != nil {
		return nil, err
	}

	s := &Server{
		config:       cfg,
		versionInfo:  params.VersionInfo,
		otelShutdown: otelShutdown,
	}

	backendStorage, collectors, err := s.setupStorage(ctx, params)
	if err != nil {
		_ = s.closeClients()
		otelShutdown()
		return nil, fmt.Errorf("setup %s storage: %w", cfg.StorageBackend, err)
	}

	s.trustedProxies, err = middleware.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		_ = s.closeClients()
		otelShutdown()
		return nil, fmt.Errorf("parse trusted proxies: %w", err)
	}

	if cfg.RateLimitPerMin > 0 {
		if s.redisClient == nil {
			s.redisClient = newRedisClient(ctx, cfg, params.RedisPassword, params.HoneycombTracingEnabled)
		}
		s.rateLimiter = redis_rate.NewLimiter(s.redisClient)
		log.Debugf("rate limiting enabled: %d requests per minute", cfg.RateLimitPerMin)
	}

	s.promRegistry = metrics.SetupPrometheus(collectors...)
	s.metricsManager = metrics.NewManager("notes", "service", s.promRegistry)
	s.metricsManager.GaugeLifeSignal.Set(0)

	s.store = notesBox.NewStore(
		storage.NewTracedStorage(backendStorage, cfg.StorageBackend),
		cfg.StorageKey,
		s.metricsManager,
	)
	s.unsubscribeGauge = s.store.Subscribe(func(notes []notesBox.Note) {
		s.metricsManager.GaugeNotes.Set(float64(len(notes)))
	})
	s.store.LoadFromStorage(ctx)
	s.metricsManager.GaugeNotes.Set(float64(len(s.store.Notes())))

	log.Infof("store ready: backend [%s], key [%s], %d notes", cfg.StorageBackend, cfg.StorageKey, len(s.store.Notes()))

	return s, nil
}

func (s *Server) setupStorage(ctx context.Context, params NewServerParams) (storage.Storage, []prometheus.Collector, error) {
	cfg := s.config

	switch cfg.StorageBackend {
	case storage.BackendDisk:
		ds, err := storage.NewDiskStorage(cfg.StorageDiskPath)
		if err != nil {
			return nil, nil, err
		}
		log.Debugf("using disk storage in: %s", cfg.StorageDiskPath)
		return ds, nil, nil
	case storage.BackendRedis:
		s.redisClient = newRedisClient(ctx, cfg, params.RedisPassword, params.HoneycombTracingEnabled)
		return storage.NewRedisStorage(s.redisClient, redisKeyPrefix), nil, nil
	case storage.BackendPostgres:
		dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
			DBHost:         cfg.PostgresHost,
			DBPort:         cfg.PostgresPort,
			DBName:         cfg.PostgresDBName,
			DBPassword:     params.PostgresPassword,
			TracingEnabled: params.HoneycombTracingEnabled,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("new db pool: %w", err)
		}
		s.dbPool = dbPool

		psqlStorage := storage.NewPsqlStorage(dbPool)
		if err := psqlStorage.EnsureSchema(ctx); err != nil {
			return nil, nil, err
		}

		pgxpoolCollector := pgxpoolprometheus.NewCollector(
			dbPool,
			map[string]string{"db_name": cfg.PostgresDBName},
		)
		return psqlStorage, []prometheus.Collector{pgxpoolCollector}, nil
	case storage.BackendMemory:
		log.Warnln("using memory storage, notes will not survive a restart")
		return storage.NewMemoryStorage(cfg.MemoryMaxEntryKB * 1024), nil, nil
	default:
		return nil, nil, fmt.Errorf("%w: %s", config.ErrUnknownBackend, cfg.StorageBackend)
	}
}

func newRedisClient(ctx context.Context, cfg *config.Config, password string, tracingEnabled bool) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
		Password: password,
		DB:       0, // use default DB
	})
	if tracingEnabled {
		rdb.AddHook(redisotel.NewTracingHook())
	}

	rdbStatus := rdb.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		log.Errorf("--> failed to ping redis: %s", err)
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}

	return rdb
}

func (s *Server) Store() *notesBox.Store {
	return s.store
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("notes-router"))

	notesHandler := notesBox.NewHandler(s.store)
	notesHandler.SetupRoutes(r)

	miscHandler := misc.NewHandler(s.store, s.config.StorageBackend, s.versionInfo)
	miscHandler.SetupRoutes(r)

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "DELETE", "OPTIONS").Name("unknown")

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest(s.trustedProxies))
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors(s.config.AllowedOrigins))
	if s.rateLimiter != nil {
		r.Use(middleware.RateLimit(s.rateLimiter, rateLimitKeyPrefix, s.config.RateLimitPerMin, s.trustedProxies))
	}
	r.Use(middleware.LimitAndDrainBody(maxRequestBodyBytes))

	return r
}

func (s *Server) metricsHandler() http.Handler {
	return promhttp.InstrumentMetricHandler(
		s.promRegistry,
		promhttp.HandlerFor(s.promRegistry, promhttp.HandlerOpts{}),
	)
}

func (s *Server) Serve(host string, port int) {
	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      s.routerSetup(),
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", s.metricsHandler())
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:              metricsAddr,
		Handler:           metricsRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("notes service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() error {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	var err error
	if s.httpServer != nil {
		if shutdownErr := s.httpServer.Shutdown(ctx); shutdownErr != nil {
			err = multierr.Append(err, fmt.Errorf("shutdown http server: %w", shutdownErr))
		}
		log.Warnln("server shut down")
	}
	if s.metricsHttpServer != nil {
		if shutdownErr := s.metricsHttpServer.Shutdown(ctx); shutdownErr != nil {
			err = multierr.Append(err, fmt.Errorf("shutdown metrics server: %w", shutdownErr))
		}
		log.Warnln("metrics server shut down")
	}

	if s.unsubscribeGauge != nil {
		s.unsubscribeGauge()
	}

	s.otelShutdown()
	log.Trace("otel shut down ...")

	err = multierr.Append(err, s.closeClients())

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}

	return err
}

func (s *Server) closeClients() error {
	var err error
	if s.redisClient != nil {
		if closeErr := s.redisClient.Close(); closeErr != nil {
			err = multierr.Append(err, fmt.Errorf("close redis client: %w", closeErr))
		}
		s.redisClient = nil
	}

	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		s.dbPool = nil
		log.Debugln("db pool closed")
	}

	return err
}
