package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/fleet-backend/internal/http/handlers"
	httpMW "github.com/yungbote/fleet-backend/internal/http/middleware"
	"github.com/yungbote/fleet-backend/internal/observability"
	"github.com/yungbote/fleet-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log     *logger.Logger
	Metrics *observability.Metrics
	// TraceService names otelgin spans; empty disables request spans.
	TraceService string
	CORSOrigins  []string

	Identity *httpMW.IdentityMiddleware

	LoadHandler   *httpH.LoadHandler
	BoatHandler   *httpH.BoatHandler
	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.TraceService != "" {
		r.Use(otelgin.Middleware(cfg.TraceService))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))
	if cfg.Identity != nil {
		r.Use(cfg.Identity.AttachIdentity())
	}

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	// Loads
	if h := cfg.LoadHandler; h != nil {
		r.GET("/loads", h.ListLoads)
		r.POST("/loads", h.CreateLoad)
		r.PUT("/loads", h.CollectionMethodNotAllowed)
		r.PATCH("/loads", h.CollectionMethodNotAllowed)
		r.DELETE("/loads", h.CollectionMethodNotAllowed)

		r.GET("/loads/:id", h.GetLoad)
		r.PATCH("/loads/:id", h.UpdateLoad)
		r.PUT("/loads/:id", h.UpdateLoad)
		r.DELETE("/loads/:id", h.DeleteLoad)
	}

	// Boats
	if h := cfg.BoatHandler; h != nil {
		create := []gin.HandlerFunc{h.CreateBoat}
		if cfg.Identity != nil {
			create = append([]gin.HandlerFunc{cfg.Identity.RequireIdentity()}, create...)
		}
		r.POST("/boats", create...)
		r.GET("/boats/:id", h.GetBoat)
		r.GET("/boats/:id/loads", h.ListBoatLoads)
		r.PUT("/boats/:id/loads/:load_id", h.AssignLoad)
		r.DELETE("/boats/:id/loads/:load_id", h.UnassignLoad)
	}

	return r
}
