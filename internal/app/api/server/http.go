package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/voicemint/billing/docs"
	"github.com/voicemint/billing/internal/app/api/handlers"
	mw "github.com/voicemint/billing/internal/app/api/middleware"
	"github.com/voicemint/billing/internal/app/service/checkout"
	"github.com/voicemint/billing/internal/app/service/ledger"
	"github.com/voicemint/billing/internal/app/service/reconciler"
	"github.com/voicemint/billing/internal/app/service/statistics"
	cfgpkg "github.com/voicemint/billing/pkg/config"
	metrics "github.com/voicemint/billing/pkg/metrics"
)

func newEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	// Add request tracing middleware only; request logger & access log are attached per group in registerRoutes
	r.Use(mw.TraceMiddleware())
	return r
}

func registerRoutes(r *gin.Engine, log *zap.SugaredLogger, cfg *cfgpkg.Config,
	rec *reconciler.Service, co *checkout.Service, ledgerSvc *ledger.Service, stats *statistics.Service) {
	// Prometheus metrics
	if cfg != nil && cfg.MetricsAddr != "" {
		p := metrics.NewPrometheus(metrics.NewPrometheusOptions{
			ReqCntURLLabelMappingFn: func(c *gin.Context) string {
				if fp := c.FullPath(); fp != "" {
					return fp
				}
				return c.Request.URL.Path
			},
			Logger: log,
		})
		p.SetListenAddress(cfg.MetricsAddr)
		p.Use(r)

		log.Infow("metrics started", "addr", cfg.MetricsAddr)
	}

	// Public group: request logger + access log
	pub := r.Group("/")
	pub.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())
	handlers.RegisterHealthRoutes(pub)
	// Swagger UI
	docs.SwaggerInfo.BasePath = "/"
	pub.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Provider callbacks arrive unauthenticated; reconciliation is keyed on
	// transaction ids we issued ourselves.
	callback := r.Group("/api/v1/payment")
	callback.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())
	handlers.RegisterPaymentCallbackRoutes(callback, rec, cfg)

	// User APIs behind bearer auth
	apiV1 := r.Group("/api/v1")
	apiV1.Use(mw.AuthMiddleware(cfg), mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())
	handlers.RegisterCheckoutRoutes(apiV1.Group("/payment"), co)
	handlers.RegisterLedgerRoutes(apiV1.Group("/ledger"), ledgerSvc)

	// Admin APIs require the admin role on top of auth
	admin := apiV1.Group("/admin")
	admin.Use(mw.AdminMiddleware())
	handlers.RegisterAdminRoutes(admin, ledgerSvc, stats)
}

func runServer(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *cfgpkg.Config, r *gin.Engine) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting HTTP server", "addr", addr)
			go func() {
				if err := srv.ListenAndServe(); err != nil {
					log.Errorf("server error: %v", err)
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("stopping HTTP server")
			shutdownCtx, cancel := context.WithTimeout(ctx, 120*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

var Module = fx.Options(
	fx.Provide(newEngine),
	fx.Invoke(registerRoutes),
	fx.Invoke(runServer),
)
