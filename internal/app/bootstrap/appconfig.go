// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// WAFFLE's CoreConfig covers ports, TLS, logging and CORS. Everything the
// ticketing service itself needs lives here and is passed to every
// lifecycle hook.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session cookie
	SessionKey    string        // signing key (must be strong in production)
	SessionName   string        // cookie name (default: eventkey-session)
	SessionDomain string        // blank means current host
	SessionMaxAge time.Duration // cookie lifetime

	// Identity provider (OIDC authorization-code flow)
	OIDCClientID     string
	OIDCClientSecret string
	OIDCAuthURL      string
	OIDCTokenURL     string
	OIDCUserInfoURL  string
	OIDCRedirectURL  string

	// Roles
	DefaultRole     string   // role given on first login
	OrganizerEmails []string // promoted to organizer on startup
	ScannerEmails   []string // promoted to scanner on startup

	// Cross-instance dashboard notifications; blank keeps them in-process.
	RedisURL string

	// Event lookup cache used during check-in bursts
	EventCacheSize int
	EventCacheTTL  time.Duration

	// Audit logging per category: all, db, log or off
	AuditLogAuth    string
	AuditLogCatalog string
	AuditLogRoles   string

	// Store timeouts
	TimeoutPing   time.Duration
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration

	// OAuth state sweeping
	StateCleanupInterval time.Duration

	// Requests per minute; zero disables the limiter.
	RateLimitAuth     int // per client address on /auth
	RateLimitValidate int // per scanner on POST /tickets/validate

	// Take client addresses from X-Forwarded-For / X-Real-IP. Enable only
	// behind a proxy that overwrites them.
	TrustProxyHeaders bool
}
