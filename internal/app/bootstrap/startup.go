// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/eventkey/internal/app/store/audit"
	eventstore "github.com/dalemusser/eventkey/internal/app/store/events"
	loginstore "github.com/dalemusser/eventkey/internal/app/store/logins"
	"github.com/dalemusser/eventkey/internal/app/store/oauthstate"
	scanstore "github.com/dalemusser/eventkey/internal/app/store/scans"
	ticketstore "github.com/dalemusser/eventkey/internal/app/store/tickets"
	userstore "github.com/dalemusser/eventkey/internal/app/store/users"
	"github.com/dalemusser/eventkey/internal/app/system/auditlog"
	"github.com/dalemusser/eventkey/internal/app/system/metrics"
	"github.com/dalemusser/eventkey/internal/app/system/notify"
	"github.com/dalemusser/eventkey/internal/app/system/ratelimit"
	"github.com/dalemusser/eventkey/internal/app/system/timeouts"
	"github.com/dalemusser/eventkey/internal/app/system/workers"
	"github.com/dalemusser/eventkey/internal/app/ticketing"
	"github.com/dalemusser/eventkey/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Services is the application graph shared by BuildHandler and Shutdown.
type Services struct {
	Metrics    *metrics.Metrics
	Audit      *auditlog.Logger
	AuditStore *audit.Store

	Users   *userstore.Store
	Events  *eventstore.Cached
	Tickets *ticketstore.Store
	Scans   *scanstore.Store
	Logins  *loginstore.Store
	States  *oauthstate.Store

	Ticketing *ticketing.Service

	// Hub fans changes out to this instance's dashboard streams. Notifier
	// is where changes are reported: Redis when configured, else Hub.
	Hub      *notify.Hub
	Notifier ticketing.Notifier

	// Nil when disabled.
	AuthLimit     *ratelimit.Limiter
	ValidateLimit *ratelimit.Limiter

	cleanup   *workers.StateCleanup
	stopRelay context.CancelFunc
}

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Ping:   appCfg.TimeoutPing,
		Short:  appCfg.TimeoutShort,
		Medium: appCfg.TimeoutMedium,
		Long:   appCfg.TimeoutLong,
	}, logger)

	if deps.App == nil {
		return fmt.Errorf("startup: services not initialized by ConnectDB")
	}
	buildServices(deps.App, appCfg, deps, logger)
	svc := deps.App

	if err := grantRoles(ctx, svc, appCfg, logger); err != nil {
		return err
	}

	if deps.Redis != nil {
		relayCtx, cancel := context.WithCancel(context.Background())
		if err := deps.Redis.Relay(relayCtx, svc.Hub); err != nil {
			cancel()
			return fmt.Errorf("startup: %w", err)
		}
		svc.stopRelay = cancel
	}

	if appCfg.StateCleanupInterval > 0 {
		svc.cleanup = workers.NewStateCleanup(svc.States, logger, appCfg.StateCleanupInterval)
		svc.cleanup.Start()
	}

	return nil
}

// buildServices fills svc from the database handles and config.
func buildServices(svc *Services, appCfg AppConfig, deps DBDeps, logger *zap.Logger) {
	db := deps.EventKeyMongoDatabase

	svc.Metrics = metrics.New()
	svc.AuditStore = audit.New(db)
	svc.Audit = auditlog.New(svc.AuditStore, logger, auditlog.Config{
		Auth:    appCfg.AuditLogAuth,
		Catalog: appCfg.AuditLogCatalog,
		Roles:   appCfg.AuditLogRoles,
	})

	svc.Users = userstore.New(db)
	svc.Events = eventstore.NewCached(eventstore.New(db), appCfg.EventCacheSize, appCfg.EventCacheTTL, svc.Metrics)
	svc.Tickets = ticketstore.New(db)
	svc.Scans = scanstore.New(db)
	svc.Logins = loginstore.New(db)
	svc.States = oauthstate.New(db)

	svc.Hub = notify.NewHub()
	svc.Notifier = svc.Hub
	if deps.Redis != nil {
		svc.Notifier = deps.Redis
	}

	svc.Ticketing = ticketing.New(svc.Tickets, svc.Events, svc.Users, logger)
	svc.Ticketing.Metrics = svc.Metrics
	svc.Ticketing.Notify = svc.Notifier

	if appCfg.RateLimitAuth > 0 {
		svc.AuthLimit = ratelimit.New(appCfg.RateLimitAuth, time.Minute)
	}
	if appCfg.RateLimitValidate > 0 {
		svc.ValidateLimit = ratelimit.New(appCfg.RateLimitValidate, time.Minute)
	}
}

// roleGrants maps each configured email to its role. An email listed as
// both organizer and scanner is an organizer.
func roleGrants(appCfg AppConfig) map[string]string {
	grants := make(map[string]string, len(appCfg.OrganizerEmails)+len(appCfg.ScannerEmails))
	for _, e := range appCfg.ScannerEmails {
		grants[strings.ToLower(strings.TrimSpace(e))] = models.RoleScanner
	}
	for _, e := range appCfg.OrganizerEmails {
		grants[strings.ToLower(strings.TrimSpace(e))] = models.RoleOrganizer
	}
	delete(grants, "")
	return grants
}

// grantRoles promotes existing users whose stored email is configured.
// Only provider-verified emails are stored. Users who have not signed in
// yet get the role on first login (see authidp.Config.RoleGrants).
func grantRoles(ctx context.Context, svc *Services, appCfg AppConfig, logger *zap.Logger) error {
	grants := []struct {
		role   string
		emails []string
	}{
		{models.RoleScanner, appCfg.ScannerEmails},
		{models.RoleOrganizer, appCfg.OrganizerEmails},
	}
	for _, g := range grants {
		for _, email := range g.emails {
			cctx, cancel := context.WithTimeout(ctx, timeouts.Short())
			n, err := svc.Users.SetRoleByEmail(cctx, email, g.role)
			cancel()
			if err != nil {
				return fmt.Errorf("grant %s to %s: %w", g.role, email, err)
			}
			if n == 0 {
				logger.Info("role grant pending first login",
					zap.String("email", email), zap.String("role", g.role))
			}
			svc.Audit.RoleGranted(ctx, email, g.role, n)
		}
	}
	return nil
}
