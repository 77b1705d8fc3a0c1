// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/eventkey/internal/app/system/ratelimit"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown stops background work, then tears down Redis and MongoDB.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if svc := deps.App; svc != nil {
		if svc.cleanup != nil {
			svc.cleanup.Stop()
		}
		if svc.stopRelay != nil {
			svc.stopRelay()
		}
		for _, l := range []*ratelimit.Limiter{svc.AuthLimit, svc.ValidateLimit} {
			if l != nil {
				l.Stop()
			}
		}
	}

	if deps.Redis != nil {
		if err := deps.Redis.Close(); err != nil {
			logger.Warn("redis close failed", zap.Error(err))
		}
	}

	if deps.EventKeyMongoClient != nil {
		logger.Info("disconnecting EventKey MongoDB client")
		if err := deps.EventKeyMongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			return err
		}
	}
	return nil
}
