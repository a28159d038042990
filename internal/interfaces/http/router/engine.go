package router

import (
	"github.com/gin-gonic/gin"
	"github.com/mfgorder/backend/internal/infrastructure/config"
	"github.com/mfgorder/backend/internal/infrastructure/logger"
	"github.com/mfgorder/backend/internal/interfaces/http/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// EngineConfig holds what NewEngine needs to build the middleware chain
type EngineConfig struct {
	HTTP           config.HTTPConfig
	TracingEnabled bool
	ServiceName    string
	Release        bool
	// Meter records request metrics when set
	Meter metric.Meter
}

// NewEngine builds a gin engine with the ledger middleware chain and mounts
// the given registrars under APIPrefix.
//
// Order: recovery, request ID, tracing span, span enrichment, request
// metrics, access log, security headers, CORS, body limit.
func NewEngine(cfg EngineConfig, log *zap.Logger, registrars ...Registrar) (*gin.Engine, error) {
	if cfg.Release {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		return nil, err
	}

	engine.Use(
		logger.Recovery(log),
		middleware.RequestID(),
		middleware.Tracing(cfg.ServiceName, cfg.TracingEnabled),
		middleware.SpanEnricher(),
	)
	if cfg.Meter != nil {
		metrics, err := middleware.HTTPMetrics(cfg.Meter)
		if err != nil {
			return nil, err
		}
		engine.Use(metrics)
	}
	engine.Use(
		logger.GinMiddleware(log),
		middleware.Secure(),
		middleware.CORSWithConfig(middleware.CORSConfigFrom(cfg.HTTP)),
	)
	if cfg.HTTP.MaxBodyBytes > 0 {
		engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodyBytes))
	}

	Mount(engine, registrars...)
	log.Debug("HTTP routes mounted", zap.Int("routes", len(engine.Routes())))
	return engine, nil
}
