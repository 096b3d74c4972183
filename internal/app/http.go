package app

import (
	"database/sql"

	apphttp "github.com/yungbote/fleet-backend/internal/http"
	httpH "github.com/yungbote/fleet-backend/internal/http/handlers"
	httpMW "github.com/yungbote/fleet-backend/internal/http/middleware"
	"github.com/yungbote/fleet-backend/internal/observability"
	"github.com/yungbote/fleet-backend/internal/platform/logger"
)

type Middleware struct {
	Identity *httpMW.IdentityMiddleware
}

type Handlers struct {
	Health *httpH.HealthHandler
	Load   *httpH.LoadHandler
	Boat   *httpH.BoatHandler
}

func wireHandlers(log *logger.Logger, services Services, store *sql.DB) Handlers {
	log.Info("Wiring handlers...")
	h := Handlers{
		Health: httpH.NewHealthHandler(nil),
		Load:   httpH.NewLoadHandler(log, services.Loads),
		Boat:   httpH.NewBoatHandler(log, services.Boats, services.Loads),
	}
	if store != nil {
		h.Health = httpH.NewHealthHandler(store)
	}
	return h
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Identity: httpMW.NewIdentityMiddleware(log, services.Identity),
	}
}

func wireServer(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *apphttp.Server {
	traceService := ""
	if cfg.Tracing.Enabled {
		traceService = cfg.Tracing.ServiceName
	}
	return apphttp.NewServer(apphttp.RouterConfig{
		Log:           log,
		Metrics:       metrics,
		TraceService:  traceService,
		CORSOrigins:   cfg.CORSAllowedOrigins,
		Identity:      middleware.Identity,
		LoadHandler:   handlers.Load,
		BoatHandler:   handlers.Boat,
		HealthHandler: handlers.Health,
	})
}
