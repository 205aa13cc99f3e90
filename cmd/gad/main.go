package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"gad-esmeraldas/internal/access"
	"gad-esmeraldas/pkg/app"
	"gad-esmeraldas/pkg/config"
	"gad-esmeraldas/pkg/handlers"
	"gad-esmeraldas/pkg/metrics"
	"gad-esmeraldas/pkg/module"
	"gad-esmeraldas/pkg/version"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "go.uber.org/automaxprocs"
)

const serviceName = "gad-access"

func main() {
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	appCtx, err := app.InitializeApp(ctx, serviceName)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	slog.Info("Starting access service",
		"version", version.String(),
		"cpus", runtime.NumCPU(),
		"gomaxprocs", runtime.GOMAXPROCS(0))

	accessModule, err := access.NewModule(appCtx.MongoDB, appCtx.Redis)
	if err != nil {
		log.Fatalf("Failed to initialize access module: %v", err)
	}
	modules := []module.Module{accessModule}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(handlers.TracingMiddleware(serviceName))
	r.Use(handlers.RequestLogger)

	r.Get("/health", healthHandler)
	r.Get("/ready", handlers.ReadinessHandler(readinessChecks(appCtx)))
	r.Handle("/metrics", metrics.Handler())

	apiPrefix := config.GetAPIPrefix()
	var api huma.API
	if apiPrefix == "" {
		api = humachi.New(r, app.NewAPIConfig())
	} else {
		r.Route(apiPrefix, func(prefixRouter chi.Router) {
			api = humachi.New(prefixRouter, app.NewAPIConfig())
		})
	}

	for _, mod := range modules {
		r.Route("/modules/"+mod.Name(), mod.Routes)
		mod.RegisterUnifiedRoutes(api)
		go mod.StartBackgroundTasks(ctx)
	}

	srv := &http.Server{
		Addr:         config.GetHost() + ":" + app.GetPort("8080"),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", srv.Addr, "openapi", apiPrefix+"/openapi.json")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Received shutdown signal, initiating graceful shutdown")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server forced to shutdown", "error", err)
	}
	for _, mod := range modules {
		mod.Stop()
	}
	_ = appCtx.Shutdown(shutdownCtx)
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	body := struct {
		Status string `json:"status"`
		version.Info
	}{Status: "healthy", Info: version.Get()}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode health response", "error", err)
	}
}

func readinessChecks(appCtx *app.AppContext) map[string]handlers.HealthCheck {
	checks := map[string]handlers.HealthCheck{
		"mongodb": appCtx.MongoDB.HealthCheck,
	}
	if appCtx.Redis != nil {
		checks["redis"] = appCtx.Redis.HealthCheck
	}
	return checks
}
