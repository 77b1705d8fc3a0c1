// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dalemusser/eventkey/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for EventKey.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: EVENTKEY_MONGO_URI, EVENTKEY_REDIS_URL, etc.
//   - Command-line flags: --mongo_uri, --redis_url, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "eventkey", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size"},

	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "eventkey-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "24h", Desc: "Session cookie lifetime (e.g., 12h, 168h)"},

	// Identity provider
	{Name: "oidc_client_id", Default: "", Desc: "OIDC client ID (blank disables /auth/login)"},
	{Name: "oidc_client_secret", Default: "", Desc: "OIDC client secret"},
	{Name: "oidc_auth_url", Default: "", Desc: "OIDC authorization endpoint"},
	{Name: "oidc_token_url", Default: "", Desc: "OIDC token endpoint"},
	{Name: "oidc_userinfo_url", Default: "", Desc: "OIDC userinfo endpoint"},
	{Name: "oidc_redirect_url", Default: "http://localhost:3000/auth/callback", Desc: "Callback URL registered with the provider"},

	// Roles
	{Name: "default_role", Default: models.RoleAttendee, Desc: "Role given to users on first login"},
	{Name: "organizer_emails", Default: "", Desc: "Comma-separated emails promoted to organizer on startup"},
	{Name: "scanner_emails", Default: "", Desc: "Comma-separated emails promoted to scanner on startup"},

	// Notifications
	{Name: "redis_url", Default: "", Desc: "Redis URL for cross-instance dashboard updates (blank keeps them in-process)"},

	// Event cache
	{Name: "event_cache_size", Default: 512, Desc: "Events held in the per-instance lookup cache"},
	{Name: "event_cache_ttl", Default: "30s", Desc: "How long a cached event is trusted"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_catalog", Default: "all", Desc: "Event catalog logging: 'all', 'db', 'log', or 'off'"},
	{Name: "audit_log_roles", Default: "all", Desc: "Role grant logging: 'all', 'db', 'log', or 'off'"},

	// Timeouts
	{Name: "timeout_ping", Default: "2s", Desc: "Health check timeout"},
	{Name: "timeout_short", Default: "5s", Desc: "Single-document store timeout"},
	{Name: "timeout_medium", Default: "10s", Desc: "List and aggregate store timeout"},
	{Name: "timeout_long", Default: "30s", Desc: "Startup and schema timeout"},

	{Name: "state_cleanup_interval", Default: "10m", Desc: "How often expired OAuth states are swept"},

	// Rate limits (requests per minute, 0 disables)
	{Name: "rate_limit_auth", Default: 20, Desc: "Sign-in requests per minute per client address"},
	{Name: "rate_limit_validate", Default: 300, Desc: "Validation requests per minute per scanner"},
	{Name: "trust_proxy_headers", Default: false, Desc: "Use X-Forwarded-For / X-Real-IP for client addresses (only behind a trusted proxy)"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig merges .env files, config files,
// EVENTKEY_* environment variables and flags with precedence
// flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "EVENTKEY", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),
		SessionMaxAge: appValues.Duration("session_max_age", 24*time.Hour),

		OIDCClientID:     appValues.String("oidc_client_id"),
		OIDCClientSecret: appValues.String("oidc_client_secret"),
		OIDCAuthURL:      appValues.String("oidc_auth_url"),
		OIDCTokenURL:     appValues.String("oidc_token_url"),
		OIDCUserInfoURL:  appValues.String("oidc_userinfo_url"),
		OIDCRedirectURL:  appValues.String("oidc_redirect_url"),

		DefaultRole:     strings.ToLower(strings.TrimSpace(appValues.String("default_role"))),
		OrganizerEmails: splitList(appValues.String("organizer_emails")),
		ScannerEmails:   splitList(appValues.String("scanner_emails")),

		RedisURL: strings.TrimSpace(appValues.String("redis_url")),

		EventCacheSize: appValues.Int("event_cache_size"),
		EventCacheTTL:  appValues.Duration("event_cache_ttl", 30*time.Second),

		AuditLogAuth:    appValues.String("audit_log_auth"),
		AuditLogCatalog: appValues.String("audit_log_catalog"),
		AuditLogRoles:   appValues.String("audit_log_roles"),

		TimeoutPing:   appValues.Duration("timeout_ping", 0),
		TimeoutShort:  appValues.Duration("timeout_short", 0),
		TimeoutMedium: appValues.Duration("timeout_medium", 0),
		TimeoutLong:   appValues.Duration("timeout_long", 0),

		StateCleanupInterval: appValues.Duration("state_cleanup_interval", 10*time.Minute),

		RateLimitAuth:     appValues.Int("rate_limit_auth"),
		RateLimitValidate: appValues.Int("rate_limit_validate"),
		TrustProxyHeaders: appValues.Bool("trust_proxy_headers"),
	}

	return coreCfg, appCfg, nil
}

// splitList parses a comma-separated config value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ValidateConfig performs app-specific config validation.
//
// It rejects a malformed MongoDB or Redis URI, an unknown default role, and
// a half-configured identity provider before anything tries to connect.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if appCfg.RedisURL != "" {
		u, err := url.Parse(appCfg.RedisURL)
		if err != nil || (u.Scheme != "redis" && u.Scheme != "rediss") {
			return fmt.Errorf("invalid redis_url %q: expected redis:// or rediss://", appCfg.RedisURL)
		}
	}

	if !models.IsValidRole(appCfg.DefaultRole) {
		return fmt.Errorf("default_role %q is not one of attendee, scanner, organizer", appCfg.DefaultRole)
	}

	if appCfg.OIDCClientID != "" {
		var missing []string
		for _, kv := range [][2]string{
			{"oidc_auth_url", appCfg.OIDCAuthURL},
			{"oidc_token_url", appCfg.OIDCTokenURL},
			{"oidc_userinfo_url", appCfg.OIDCUserInfoURL},
			{"oidc_redirect_url", appCfg.OIDCRedirectURL},
		} {
			if kv[1] == "" {
				missing = append(missing, kv[0])
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("oidc_client_id is set but %s missing", strings.Join(missing, ", "))
		}
	} else {
		logger.Warn("oidc_client_id not set; sign-in is disabled")
	}

	if coreCfg != nil && coreCfg.Env == "prod" && strings.HasPrefix(appCfg.SessionKey, "dev-only") {
		return fmt.Errorf("session_key must be set in production")
	}

	return nil
}
