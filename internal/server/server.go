package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/mockpay/internal/config"
	invoicedomain "github.com/smallbiznis/mockpay/internal/invoice/domain"
	"github.com/smallbiznis/mockpay/internal/observability"
	obsmiddleware "github.com/smallbiznis/mockpay/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/mockpay/internal/observability/metrics"
	obstracing "github.com/smallbiznis/mockpay/internal/observability/tracing"
	"github.com/smallbiznis/mockpay/internal/webhook"
	"go.uber.org/fx"
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
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(CORS())
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

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	profile    *config.ProfileHolder
	invoiceSvc invoicedomain.Service
	deliveries *webhook.DeliveryLog
}

type Params struct {
	fx.In

	Engine     *gin.Engine
	Config     config.Config
	Profile    *config.ProfileHolder
	InvoiceSvc invoicedomain.Service
	Deliveries *webhook.DeliveryLog
}

func NewServer(p Params) *Server {
	return &Server{
		engine:     p.Engine,
		cfg:        p.Config,
		profile:    p.Profile,
		invoiceSvc: p.InvoiceSvc,
		deliveries: p.Deliveries,
	}
}

// RegisterAPIRoutes mounts the acquirer-facing API.
func (s *Server) RegisterAPIRoutes() {
	s.engine.POST("/invoices", s.HandleCreateInvoice)
	s.engine.GET("/invoices/:id", s.HandleGetInvoice)
	s.engine.GET("/invoices/:id/deliveries", s.HandleListDeliveries)
}

func registerRoutes(s *Server) {
	s.RegisterAPIRoutes()
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
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
