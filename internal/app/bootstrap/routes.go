// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	auditlogfeature "github.com/dalemusser/eventkey/internal/app/features/auditlog"
	authidpfeature "github.com/dalemusser/eventkey/internal/app/features/authidp"
	dashboardfeature "github.com/dalemusser/eventkey/internal/app/features/dashboard"
	errorsfeature "github.com/dalemusser/eventkey/internal/app/features/errors"
	eventsfeature "github.com/dalemusser/eventkey/internal/app/features/events"
	healthfeature "github.com/dalemusser/eventkey/internal/app/features/health"
	logoutfeature "github.com/dalemusser/eventkey/internal/app/features/logout"
	ticketsfeature "github.com/dalemusser/eventkey/internal/app/features/tickets"
	userinfofeature "github.com/dalemusser/eventkey/internal/app/features/userinfo"
	userstore "github.com/dalemusser/eventkey/internal/app/store/users"
	"github.com/dalemusser/eventkey/internal/app/system/auth"
	"github.com/dalemusser/eventkey/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// Startup have completed. It applies session middleware and mounts the
// feature routers: auth, catalog, tickets and dashboards.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	svc := deps.App

	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// LoadSessionUser re-reads the user on each request so role grants
	// take effect without a new sign-in.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(deps.EventKeyMongoDatabase))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if appCfg.TrustProxyHeaders {
		// Behind a proxy RemoteAddr is the proxy; take the client address
		// from X-Forwarded-For / X-Real-IP instead.
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.Recoverer)
	r.Use(sessionMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators
	var redisPinger healthfeature.Pinger
	if deps.Redis != nil {
		redisPinger = deps.Redis
	}
	healthHandler := healthfeature.NewHandler(deps.EventKeyMongoClient, redisPinger, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	r.Handle("/metrics", svc.Metrics.Handler())

	// Authentication
	idpHandler := authidpfeature.NewHandler(authidpfeature.Config{
		ClientID:     appCfg.OIDCClientID,
		ClientSecret: appCfg.OIDCClientSecret,
		AuthURL:      appCfg.OIDCAuthURL,
		TokenURL:     appCfg.OIDCTokenURL,
		UserInfoURL:  appCfg.OIDCUserInfoURL,
		RedirectURL:  appCfg.OIDCRedirectURL,
		DefaultRole:  appCfg.DefaultRole,
		RoleGrants:   roleGrants(appCfg),
	}, sessionMgr, svc.Audit, svc.States, svc.Users, svc.Logins, logger)
	var authRouter http.Handler = authidpfeature.Routes(idpHandler)
	if svc.AuthLimit != nil {
		authRouter = svc.AuthLimit.Middleware("auth", ratelimit.ByIP, logger)(authRouter)
	}
	r.Mount("/auth", authRouter)

	logoutfeature.MountRoutes(r, logoutfeature.NewHandler(sessionMgr, svc.Audit, logger))
	userinfofeature.MountRoutes(r, userinfofeature.NewHandler())

	// Error endpoints
	errorsfeature.MountRoutes(r, errorsfeature.NewHandler())

	// Event catalog
	eventsHandler := eventsfeature.NewHandler(svc.Events, svc.Tickets, svc.Users, svc.Audit, svc.Notifier, logger)
	r.Mount("/events", eventsfeature.Routes(eventsHandler, sessionMgr))

	// Issuance and check-in
	ticketsHandler := ticketsfeature.NewHandler(svc.Ticketing, svc.Tickets, svc.Events, svc.Scans, logger)
	if svc.ValidateLimit != nil {
		ticketsHandler.Throttle = svc.ValidateLimit.Middleware("validate", ratelimit.ByUser, logger)
	}
	r.Mount("/tickets", ticketsfeature.Routes(ticketsHandler, sessionMgr))

	// Role-based dashboards
	dashboardHandler := dashboardfeature.NewHandler(svc.Events, svc.Tickets, svc.Scans, svc.Hub, svc.Metrics, logger)
	r.Mount("/dashboard", dashboardfeature.Routes(dashboardHandler, sessionMgr))

	// Audit views
	auditHandler := auditlogfeature.NewHandler(svc.AuditStore, svc.Events, svc.Users, svc.Logins, logger)
	r.Mount("/audit", auditlogfeature.Routes(auditHandler, sessionMgr))

	return r, nil
}
