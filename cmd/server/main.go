package main

import (
	"context"
	"database/sql"
	"errors"
	"fastest-route-service/internal/adapters/cache"
	"fastest-route-service/internal/adapters/distance"
	"fastest-route-service/internal/adapters/repositories"
	"fastest-route-service/internal/api"
	"fastest-route-service/internal/api/handlers"
	"fastest-route-service/internal/config"
	"fastest-route-service/internal/platform/db"
	"fastest-route-service/internal/platform/metrics"
	"fastest-route-service/internal/ports"
	"fastest-route-service/internal/services"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

// distanceCacheMaxAge bounds how long provider legs are reused.
const distanceCacheMaxAge = 7 * 24 * time.Hour

// main is the application composition root.
// It wires concrete adapters (Postgres, Redis, Google, ORS) behind ports and starts the HTTP server.
func main() {
	cfg, err := config.Load(config.Get("CONFIG_PATH", ""))
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	checks := map[string]handlers.HealthCheck{}

	// Postgres is optional: without it the provider caches and plan history are disabled.
	var (
		conn          *sql.DB
		plans         ports.PlanRepository
		distanceCache ports.DistanceCache
		geocodeCache  ports.GeocodeCache
	)
	if cfg.Postgres.URL != "" {
		conn, err = db.Open(ctx, cfg.Postgres)
		if err != nil {
			log.Fatal(err)
		}
		defer conn.Close()

		plans = repositories.NewSQLPlanRepository(conn)
		distanceCache = cache.NewSQLDistanceCache(conn, distanceCacheMaxAge)
		geocodeCache = cache.NewSQLGeocodeCache(conn)
		checks["postgres"] = conn.PingContext
	}

	var routeCache ports.RouteCache
	if cfg.Redis.Addr != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal(err)
		}
		defer rdb.Close()

		routeCache = cache.NewRedisRouteCache(rdb, cfg.Redis.CacheTTL)
		checks["redis"] = redisCheck(rdb)
	}

	provider, err := newMatrixProvider(cfg.Provider, distanceCache, geocodeCache, m)
	if err != nil {
		log.Fatal(err)
	}

	planner := &services.RoutePlanner{
		Local: &services.LocalSearchStrategy{
			Provider:           provider,
			MaxExhaustiveStops: cfg.Routing.MaxExhaustiveStops,
			ParallelThreshold:  cfg.Routing.ParallelThreshold,
			Metrics:            m,
		},
		RemoteClosedTours: cfg.Routing.RemoteClosedTours,
		Repo:              plans,
		Cache:             routeCache,
		Metrics:           m,
		MaxAddresses:      cfg.Routing.MaxAddresses,
	}

	if cfg.Provider.GoogleAPIKey != "" {
		remote, err := distance.NewGoogleRouteOptimizer(cfg.Provider.GoogleAPIKey, cfg.Provider.GoogleBaseURL, m)
		if err != nil {
			log.Fatal(err)
		}
		planner.Remote = remote
	}

	router := api.NewRouter(api.Deps{
		Planner:      planner,
		Plans:        plans,
		Metrics:      m,
		HealthChecks: checks,
	})

	// Timeouts are tuned for cold-cache route planning (external API latency).
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server listening addr=:%s provider=%s remote_closed_tours=%t",
			cfg.Server.Port, cfg.Provider.Matrix, cfg.Routing.RemoteClosedTours && planner.Remote != nil)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	case <-ctx.Done():
		log.Println("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("graceful shutdown failed: %v", err)
		}
	}
}

func newMatrixProvider(
	cfg config.ProviderConfig,
	distanceCache ports.DistanceCache,
	geocodeCache ports.GeocodeCache,
	m *metrics.Metrics,
) (ports.TravelTimeMatrixProvider, error) {
	switch cfg.Matrix {
	case "google":
		return distance.NewGoogleMatrixProvider(cfg.GoogleAPIKey, cfg.GoogleBaseURL, m)
	case "ors":
		return distance.NewORSMatrixProvider(cfg.ORSAPIKey, cfg.ORSBaseURL, cfg.ORSProfile, distanceCache, geocodeCache, m)
	default:
		return nil, fmt.Errorf("unknown matrix provider %q", cfg.Matrix)
	}
}

func redisCheck(rdb *redis.Client) handlers.HealthCheck {
	return func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}
}
