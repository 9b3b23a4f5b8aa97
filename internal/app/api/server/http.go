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
	"gorm.io/gorm"

	"github.com/fatflowers/bookrental/docs"
	"github.com/fatflowers/bookrental/internal/app/api/handlers"
	mw "github.com/fatflowers/bookrental/internal/app/api/middleware"
	"github.com/fatflowers/bookrental/internal/app/service/ebook"
	"github.com/fatflowers/bookrental/internal/app/service/notification"
	"github.com/fatflowers/bookrental/internal/app/service/payment_callback"
	"github.com/fatflowers/bookrental/internal/app/service/plan"
	"github.com/fatflowers/bookrental/internal/app/service/rental"
	"github.com/fatflowers/bookrental/internal/app/service/statistics"
	"github.com/fatflowers/bookrental/internal/app/service/subscription"
	"github.com/fatflowers/bookrental/internal/app/service/sweeper"
	cfgpkg "github.com/fatflowers/bookrental/pkg/config"
	metrics "github.com/fatflowers/bookrental/pkg/metrics"
)

func newEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	// Add request tracing middleware only; user, request logger & access log are attached per group in registerRoutes
	r.Use(mw.TraceMiddleware())
	return r
}

type routeParams struct {
	fx.In

	Log           *zap.SugaredLogger
	Cfg           *cfgpkg.Config
	Plans         *plan.Service
	Rentals       *rental.Service
	Subscriptions *subscription.Service
	Ebooks        *ebook.Service
	Notifications *notification.Service
	Callbacks     *payment_callback.CallbackHandler
	Sweeper       *sweeper.Service
	Stats         *statistics.Service
	DB            *gorm.DB
}

func registerRoutes(r *gin.Engine, p routeParams) error {
	log := p.Log
	// Prometheus metrics
	if p.Cfg.MetricsAddr != "" {
		prom := metrics.NewPrometheus(metrics.NewPrometheusOptions{
			MetricsList: metrics.BusinessMetrics,
			ReqCntURLLabelMappingFn: func(c *gin.Context) string {
				if fp := c.FullPath(); fp != "" {
					return fp
				}
				return c.Request.URL.Path
			},
			Logger: log,
		})
		prom.SetListenAddress(p.Cfg.MetricsAddr)
		prom.Use(r)

		log.Infow("metrics started", "addr", p.Cfg.MetricsAddr)
	}
	// Public group: request logger + access log
	pub := r.Group("/")
	pub.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())
	sqlDB, err := p.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	handlers.RegisterHealthRoutes(pub, sqlDB)
	// Swagger UI
	docs.SwaggerInfo.BasePath = "/"
	pub.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Reader APIs act on behalf of the X-User-ID user
	apiV1 := r.Group("/api/v1")
	user := apiV1.Group("")
	user.Use(mw.UserMiddleware(true), mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())
	handlers.RegisterRentalRoutes(user, p.Rentals, log)
	handlers.RegisterSubscriptionRoutes(user, p.Subscriptions, log)
	handlers.RegisterEbookRoutes(user, p.Ebooks, log)
	handlers.RegisterNotificationRoutes(user, p.Notifications, log)

	// Catalog and webhook need no user
	open := apiV1.Group("")
	open.Use(mw.UserMiddleware(false), mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())
	handlers.RegisterPlanRoutes(open, p.Plans, log)
	handlers.RegisterPaymentWebhookRoutes(open, p.Callbacks, log)

	// Admin APIs; authentication is done by the gateway
	admin := apiV1.Group("/admin")
	admin.Use(mw.UserMiddleware(false), mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())
	handlers.RegisterAdminPlanRoutes(admin, p.Plans, log)
	handlers.RegisterAdminRentalRoutes(admin, p.Rentals, log)
	handlers.RegisterAdminSubscriptionRoutes(admin, p.Subscriptions, log)
	handlers.RegisterAdminEbookRoutes(admin, p.Ebooks, log)
	handlers.RegisterAdminRoutes(admin, p.Sweeper, p.Stats, log)
	return nil
}

func runServer(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *cfgpkg.Config, r *gin.Engine) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting HTTP server", "addr", addr)
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
