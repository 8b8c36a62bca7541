package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Talha654/overlayPix-backend/docs"
	"github.com/Talha654/overlayPix-backend/internal/app/api/handlers"
	mw "github.com/Talha654/overlayPix-backend/internal/app/api/middleware"
	"github.com/Talha654/overlayPix-backend/internal/app/service/audit"
	"github.com/Talha654/overlayPix-backend/internal/app/service/discount"
	"github.com/Talha654/overlayPix-backend/internal/app/service/event"
	"github.com/Talha654/overlayPix-backend/internal/app/service/expiry"
	"github.com/Talha654/overlayPix-backend/internal/app/service/guest"
	"github.com/Talha654/overlayPix-backend/internal/app/service/payment"
	cfgpkg "github.com/Talha654/overlayPix-backend/pkg/config"
	metrics "github.com/Talha654/overlayPix-backend/pkg/metrics"
)

func newEngine(cfg *cfgpkg.Config) *gin.Engine {
	if cfg != nil && cfg.Env == cfgpkg.EnvProd {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	// Add request tracing middleware only; request logger & access log are attached per group in registerRoutes
	r.Use(mw.TraceMiddleware())
	r.MaxMultipartMemory = handlers.MaxUploadBytes
	return r
}

type routeParams struct {
	fx.In

	Lc       fx.Lifecycle
	Engine   *gin.Engine
	Log      *zap.SugaredLogger
	Cfg      *cfgpkg.Config
	DB       *gorm.DB
	Verifier *mw.TokenVerifier
	Events   *event.Service
	Guests   *guest.Service
	Payments payment.Manager
	Discount *discount.Service
	Audit    *audit.Service
	Expiry   *expiry.Service
}

func registerRoutes(p routeParams) {
	r, log, cfg := p.Engine, p.Log, p.Cfg
	// Prometheus metrics
	if cfg != nil && cfg.MetricsAddr != "" {
		prom := metrics.NewPrometheus(metrics.NewPrometheusOptions{
			ReqCntURLLabelMappingFn: func(c *gin.Context) string {
				if fp := c.FullPath(); fp != "" {
					return fp
				}
				return c.Request.URL.Path
			},
			Logger: log,
		})
		prom.SetListenAddress(cfg.MetricsAddr)
		prom.Use(r)
		p.Lc.Append(fx.Hook{OnStop: prom.Shutdown})

		log.Infow("metrics started", "addr", cfg.MetricsAddr)
	}
	// Public group: request logger + access log
	pub := r.Group("/")
	pub.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())
	handlers.RegisterHealthRoutes(pub, p.DB)
	// Swagger UI
	docs.SwaggerInfo.BasePath = "/"
	pub.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Authenticated API
	apiV1 := r.Group("/api/v1")
	apiV1.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware(), mw.AuthMiddleware(p.Verifier))
	handlers.RegisterEventRoutes(apiV1, p.Events)
	handlers.RegisterGuestRoutes(apiV1, p.Guests)
	handlers.RegisterPaymentRoutes(apiV1, p.Payments, p.Discount)

	// Admin APIs
	admin := apiV1.Group("/admin")
	admin.Use(mw.RequireAdmin())
	handlers.RegisterAdminRoutes(admin, p.Payments, p.Audit, p.Expiry)
}

func runServer(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *cfgpkg.Config, r *gin.Engine) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting HTTP server", "addr", addr)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
	fx.Provide(newEngine, mw.NewTokenVerifier),
	fx.Invoke(registerRoutes),
	fx.Invoke(runServer),
)
