// Package authidp signs users in through an OpenID Connect identity
// provider using the authorization-code flow with PKCE. Users are
// provisioned on their first successful login.
package authidp

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	uierrors "github.com/dalemusser/eventkey/internal/app/features/errors"
	"github.com/dalemusser/eventkey/internal/app/store/oauthstate"
	userstore "github.com/dalemusser/eventkey/internal/app/store/users"
	"github.com/dalemusser/eventkey/internal/app/system/auditlog"
	"github.com/dalemusser/eventkey/internal/app/system/auth"
	"github.com/dalemusser/eventkey/internal/app/system/timeouts"
	"github.com/dalemusser/eventkey/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// Provider is recorded on login history and audit entries.
const Provider = "oidc"

// stateTTL bounds the round trip through the provider's consent screen.
const stateTTL = 10 * time.Minute

// StateStore keeps state tokens and PKCE verifiers between the two legs.
type StateStore interface {
	Save(ctx context.Context, st oauthstate.State) error
	Consume(ctx context.Context, state string) (oauthstate.State, bool, error)
}

// Provisioner finds or creates the application user for an identity.
type Provisioner interface {
	Provision(ctx context.Context, id userstore.Identity, defaultRole string) (models.User, bool, error)
}

// LoginRecorder keeps login history.
type LoginRecorder interface {
	CreateFrom(ctx context.Context, r *http.Request, userID primitive.ObjectID, provider string, created bool) error
}

// Config describes the identity provider.
type Config struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	RedirectURL  string // e.g. "https://tickets.example.com/auth/callback"
	Scopes       []string
	DefaultRole  string // role given to users on first login

	// RoleGrants maps lower-cased emails to the role they get on first
	// login. Only provider-verified emails are matched.
	RoleGrants map[string]string
}

// Handler handles identity-provider authentication.
type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	AuditLog   *auditlog.Logger
	States     StateStore
	Users      Provisioner
	Logins     LoginRecorder

	cfg    Config
	oauth  *oauth2.Config
	client *http.Client // nil uses the default transport
}

// NewHandler creates a new identity-provider handler.
func NewHandler(
	cfg Config,
	sessionMgr *auth.SessionManager,
	audit *auditlog.Logger,
	states StateStore,
	users Provisioner,
	logins LoginRecorder,
	logger *zap.Logger,
) *Handler {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid", "email", "profile"}
	}
	if cfg.DefaultRole == "" {
		cfg.DefaultRole = models.RoleAttendee
	}
	return &Handler{
		Log:        logger,
		SessionMgr: sessionMgr,
		AuditLog:   audit,
		States:     states,
		Users:      users,
		Logins:     logins,
		cfg:        cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
	}
}

// WithHTTPClient routes token and userinfo calls through c.
func (h *Handler) WithHTTPClient(c *http.Client) *Handler {
	h.client = c
	return h
}

// IsConfigured returns true if the provider is configured.
func (h *Handler) IsConfigured() bool {
	return h.cfg.ClientID != "" && h.cfg.AuthURL != "" && h.cfg.TokenURL != "" && h.cfg.UserInfoURL != ""
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/login                                                              |
| Redirects to the provider's consent screen.                                  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if !h.IsConfigured() {
		h.Log.Warn("identity provider not configured")
		uierrors.Write(w, http.StatusServiceUnavailable, "login is not configured")
		return
	}

	state, err := generateState()
	if err != nil {
		uierrors.Internal(w, h.Log, "failed to generate OAuth state", err)
		return
	}
	verifier := oauth2.GenerateVerifier()

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	st := oauthstate.State{
		State:     state,
		Verifier:  verifier,
		ReturnURL: query.Get(r, "return"),
		ExpiresAt: time.Now().UTC().Add(stateTTL),
	}
	if err := h.States.Save(ctx, st); err != nil {
		uierrors.Internal(w, h.Log, "failed to save OAuth state", err)
		return
	}

	url := h.oauth.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
	h.Log.Debug("initiating identity provider login", zap.String("return_url", st.ReturnURL))
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/callback                                                           |
| Exchanges the code, fetches the identity, provisions the user, and signs in. |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, h.client)
	}

	if errParam := query.Get(r, "error"); errParam != "" {
		h.Log.Warn("identity provider returned error",
			zap.String("error", errParam),
			zap.String("description", query.Get(r, "error_description")))
		h.fail(w, r, http.StatusUnauthorized, "provider_denied", "login was cancelled or denied")
		return
	}

	state := query.Get(r, "state")
	if state == "" {
		h.fail(w, r, http.StatusBadRequest, "invalid_state", "missing state")
		return
	}

	stCtx, cancel := context.WithTimeout(ctx, timeouts.Short())
	st, valid, err := h.States.Consume(stCtx, state)
	cancel()
	if err != nil {
		uierrors.Internal(w, h.Log, "failed to validate OAuth state", err)
		return
	}
	if !valid {
		h.fail(w, r, http.StatusBadRequest, "invalid_state", "login link expired; please try again")
		return
	}

	code := query.Get(r, "code")
	if code == "" {
		h.fail(w, r, http.StatusBadRequest, "invalid_code", "missing authorization code")
		return
	}

	exCtx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()

	token, err := h.oauth.Exchange(exCtx, code, oauth2.VerifierOption(st.Verifier))
	if err != nil {
		h.Log.Error("failed to exchange OAuth code", zap.Error(err))
		h.fail(w, r, http.StatusBadGateway, "token_exchange", "could not complete login")
		return
	}

	info, err := h.fetchUserInfo(exCtx, token)
	if err != nil {
		h.Log.Error("failed to fetch user info", zap.Error(err))
		h.fail(w, r, http.StatusBadGateway, "user_info", "could not complete login")
		return
	}
	if info.Subject == "" {
		h.fail(w, r, http.StatusBadGateway, "missing_subject", "could not complete login")
		return
	}

	// Unverified addresses are not stored: role grants match on email.
	email := ""
	if info.EmailVerified {
		email = strings.ToLower(strings.TrimSpace(info.Email))
	}
	role := h.initialRole(email)

	u, created, err := h.Users.Provision(exCtx, userstore.Identity{
		ExternalID: info.Subject,
		Email:      email,
		Name:       info.Name,
	}, role)
	if err != nil {
		uierrors.Internal(w, h.Log, "failed to provision user", err, zap.String("subject", info.Subject))
		return
	}

	if err := h.SessionMgr.SignIn(w, r, u.ID.Hex()); err != nil {
		uierrors.Internal(w, h.Log, "save session failed", err, zap.String("user_id", u.ID.Hex()))
		return
	}

	if err := h.Logins.CreateFrom(exCtx, r, u.ID, Provider, created); err != nil {
		h.Log.Warn("failed to record login", zap.Error(err), zap.String("user_id", u.ID.Hex()))
	}
	h.AuditLog.LoginSuccess(exCtx, r, u.ID, Provider, created)
	if created && role != h.cfg.DefaultRole {
		h.AuditLog.RoleGranted(exCtx, email, role, 1)
	}

	h.Log.Info("user logged in",
		zap.String("user_id", u.ID.Hex()),
		zap.String("role", u.Role),
		zap.Bool("created", created))

	http.Redirect(w, r, urlutil.SafeReturn(st.ReturnURL, "", "/me"), http.StatusSeeOther)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, status int, reason, msg string) {
	h.AuditLog.LoginFailed(r.Context(), r, reason)
	uierrors.Write(w, status, msg)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Helpers                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

var errUserInfoStatus = errors.New("unexpected userinfo status")

// userInfo holds the standard OIDC claims we use.
type userInfo struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// initialRole is the configured grant for a verified email, else the
// default role.
func (h *Handler) initialRole(email string) string {
	if email == "" {
		return h.cfg.DefaultRole
	}
	if role, ok := h.cfg.RoleGrants[email]; ok && models.IsValidRole(role) {
		return role
	}
	return h.cfg.DefaultRole
}

func (h *Handler) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*userInfo, error) {
	client := h.oauth.Client(ctx, token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.cfg.UserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", errUserInfoStatus, resp.StatusCode)
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode user info: %w", err)
	}
	return &info, nil
}

// generateState creates a cryptographically secure random state string.
func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
