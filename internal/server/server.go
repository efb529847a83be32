package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"

	"github.com/nordvolt/voltra/internal/clock"
	"github.com/nordvolt/voltra/internal/config"
	inboxdomain "github.com/nordvolt/voltra/internal/inbox/domain"
	meteringpointdomain "github.com/nordvolt/voltra/internal/meteringpoint/domain"
	"github.com/nordvolt/voltra/internal/observability"
	obsmiddleware "github.com/nordvolt/voltra/internal/observability/logger"
	obsmetrics "github.com/nordvolt/voltra/internal/observability/metrics"
	obstracing "github.com/nordvolt/voltra/internal/observability/tracing"
	settlementdomain "github.com/nordvolt/voltra/internal/settlement/domain"
	spotpricedomain "github.com/nordvolt/voltra/internal/spotprice/domain"
	supplydomain "github.com/nordvolt/voltra/internal/supply/domain"
	timeseriesdomain "github.com/nordvolt/voltra/internal/timeseries/domain"
	wholesaledomain "github.com/nordvolt/voltra/internal/wholesale/domain"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(registerRoutes),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

// Server exposes the pull API the invoicing system drains, the operational
// read endpoints, and a development-only document submission route. Market
// documents normally arrive through the hub fetcher, not through HTTP.
type Server struct {
	engine           *gin.Engine
	cfg              config.Config
	clock            clock.Clock
	settlementSvc    settlementdomain.Service
	meteringPointSvc meteringpointdomain.Service
	supplySvc        supplydomain.Service
	timeSeriesSvc    timeseriesdomain.Service
	spotPriceSvc     spotpricedomain.Service
	wholesaleSvc     wholesaledomain.Service
	inboxSvc         inboxdomain.Service
}

type ServerParams struct {
	fx.In

	Gin              *gin.Engine
	Cfg              config.Config
	Clock            clock.Clock
	SettlementSvc    settlementdomain.Service
	MeteringPointSvc meteringpointdomain.Service
	SupplySvc        supplydomain.Service
	TimeSeriesSvc    timeseriesdomain.Service
	SpotPriceSvc     spotpricedomain.Service
	WholesaleSvc     wholesaledomain.Service
	InboxSvc         inboxdomain.Service
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:           p.Gin,
		cfg:              p.Cfg,
		clock:            p.Clock,
		settlementSvc:    p.SettlementSvc,
		meteringPointSvc: p.MeteringPointSvc,
		supplySvc:        p.SupplySvc,
		timeSeriesSvc:    p.TimeSeriesSvc,
		spotPriceSvc:     p.SpotPriceSvc,
		wholesaleSvc:     p.WholesaleSvc,
		inboxSvc:         p.InboxSvc,
	}
}

func registerRoutes(s *Server) {
	s.RegisterAPIRoutes()
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) RegisterAPIRoutes() {
	api := s.engine.Group("/api/v1")

	// -------- Settlements --------
	api.GET("/settlements", s.ListSettlements)
	api.GET("/settlements/pending", s.ListPendingSettlements)
	api.GET("/settlements/corrections", s.ListCorrectionSettlements)
	api.GET("/settlements/:id", s.GetSettlementByID)
	api.POST("/settlements/:id/invoice", s.InvoiceSettlement)

	// -------- Settlement Issues --------
	api.GET("/issues", s.ListIssues)
	api.POST("/issues/:id/dismiss", s.DismissIssue)

	// -------- Master Data --------
	api.GET("/metering-points/:gsrn", s.GetMeteringPointByGSRN)
	api.GET("/metering-points/:gsrn/time-series", s.ListTimeSeriesVersions)

	// -------- Spot Prices --------
	api.GET("/spot-prices", s.ListSpotPrices)

	// -------- DataHub Aggregates --------
	api.GET("/wholesale/aggregated", s.ListAggregatedSeries)
	api.GET("/wholesale/settlements", s.ListWholesaleSettlements)

	// Hub documents arrive through the fetcher in production. The direct
	// submission route exists for local development and tests only.
	if s.cfg.Environment != "production" {
		api.POST("/inbox", s.SubmitInboxDocument)
		api.GET("/inbox/:message_id", s.GetInboxMessage)
	}
}
