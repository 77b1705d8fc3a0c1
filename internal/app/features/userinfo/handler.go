package userinfo

import (
	"net/http"

	uierrors "github.com/dalemusser/eventkey/internal/app/features/errors"
	"github.com/dalemusser/eventkey/internal/app/system/auth"
)

// Handler serves user information for authenticated sessions.
type Handler struct{}

// NewHandler creates a new userinfo handler.
func NewHandler() *Handler {
	return &Handler{}
}

type meResponse struct {
	IsAuthenticated    bool   `json:"isAuthenticated"`
	ID                 string `json:"id,omitempty"`
	ExternalIdentityID string `json:"externalIdentityId,omitempty"`
	Name               string `json:"name"`
	Email              string `json:"email"`
	Role               string `json:"role,omitempty"`
}

// ServeMe returns the current user's authentication status and identity.
// Anonymous callers get 200 with isAuthenticated=false so clients can check
// without handling a 401.
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		uierrors.JSON(w, http.StatusOK, meResponse{})
		return
	}
	uierrors.JSON(w, http.StatusOK, meResponse{
		IsAuthenticated:    true,
		ID:                 user.ID,
		ExternalIdentityID: user.ExternalID,
		Name:               user.Name,
		Email:              user.Email,
		Role:               user.Role,
	})
}
