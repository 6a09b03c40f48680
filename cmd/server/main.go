package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/janisto/greeting-service/internal/config"
	"github.com/janisto/greeting-service/internal/http/health"
	"github.com/janisto/greeting-service/internal/http/v1/routes"
	applog "github.com/janisto/greeting-service/internal/platform/logging"
	appmiddleware "github.com/janisto/greeting-service/internal/platform/middleware"
	"github.com/janisto/greeting-service/internal/platform/respond"
	"github.com/janisto/greeting-service/internal/server"
)

// Version can be overridden at build time: -ldflags "-X main.Version=1.2.3"
var Version = "dev"

func main() {
	os.Exit(run())
}

// run executes the startup sequence and returns the process exit code.
func run() int {
	ctx := context.Background()
	defer func() {
		if err := applog.Sync(); err != nil {
			applog.LogError(ctx, "logger sync error", err)
		}
	}()
	if err := applog.Err(); err != nil {
		applog.LogError(ctx, "logger init error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		applog.LogError(ctx, "invalid configuration", err)
		return 1
	}
	if err := applog.SetLevel(cfg.LogLevel); err != nil {
		applog.LogError(ctx, "invalid configuration", err)
		return 1
	}

	router, api := newRouter(cfg, time.Now())
	applog.LogInfo(ctx, "routes registered",
		zap.Strings("routes", routes.Table(api)),
		zap.String("version", Version),
	)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.New(cfg, router).Run(ctx); err != nil {
		applog.LogError(ctx, "server failed", err, zap.String("addr", cfg.Addr()))
		return 1
	}
	return 0
}

// newRouter builds the middleware stack, the operational endpoints and the API route table.
func newRouter(cfg config.Config, startedAt time.Time) (chi.Router, huma.API) {
	router := chi.NewRouter()
	router.NotFound(respond.NotFoundHandler())
	router.MethodNotAllowed(respond.MethodNotAllowedHandler())

	router.Use(
		appmiddleware.Security(cfg.DocsPath),
		appmiddleware.Vary(),
		appmiddleware.CORS(cfg.CORSOrigins...),
		appmiddleware.RequestID(),
		// RealIP trusts X-Real-IP / X-Forwarded-For. Only deploy behind a proxy that sets them.
		chimiddleware.RealIP,
		chimiddleware.RequestSize(cfg.MaxRequestBytes),
		applog.RequestLogger(cfg.ProjectID),
		applog.AccessLogger(),
		respond.Recoverer(),
	)

	router.Get("/health", health.NewHandler(Version, startedAt))

	hcfg := huma.DefaultConfig("Greeting Service", Version)
	hcfg.DocsPath = cfg.DocsPath
	api := humachi.New(router, hcfg)

	// Error responses are negotiated, so document problem+cbor wherever problem+json appears.
	api.OpenAPI().OnAddOperation = append(api.OpenAPI().OnAddOperation,
		func(_ *huma.OpenAPI, op *huma.Operation) {
			for _, resp := range op.Responses {
				if resp.Content == nil {
					continue
				}
				if problem, ok := resp.Content["application/problem+json"]; ok {
					resp.Content["application/problem+cbor"] = problem
				}
			}
		},
	)

	routes.Register(api)
	return router, api
}
