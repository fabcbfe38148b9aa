package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"infiagentic.io/internal/auth"
	"infiagentic.io/internal/obs"
)

type registerRequest struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	OrganizationID string `json:"org_id,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type accountResponse struct {
	ID             string     `json:"id"`
	OrganizationID string     `json:"org_id"`
	Email          string     `json:"email"`
	FirstName      string     `json:"first_name,omitempty"`
	LastName       string     `json:"last_name,omitempty"`
	IsActive       bool       `json:"is_active"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

type authResponse struct {
	User   accountResponse `json:"user"`
	Tokens tokenResponse   `json:"tokens"`
}

type organizationResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	acct, pair, err := a.auth.Register(r.Context(), auth.RegisterParams{
		Email:          req.Email,
		Password:       req.Password,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		OrganizationID: req.OrganizationID,
	})
	if err != nil {
		a.handleAuthError(w, r, err)
		return
	}

	obs.AuthEvent("register_success")
	writeJSON(w, http.StatusCreated, authResponse{
		User:   toAccountResponse(acct),
		Tokens: a.toTokenResponse(pair),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	acct, pair, err := a.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		obs.AuthEvent("login_failure")
		a.handleAuthError(w, r, err)
		return
	}

	obs.AuthEvent("login_success")
	writeJSON(w, http.StatusOK, authResponse{
		User:   toAccountResponse(acct),
		Tokens: a.toTokenResponse(pair),
	})
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		writeError(w, r, http.StatusBadRequest, "refresh_token is required")
		return
	}

	pair, err := a.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		a.handleAuthError(w, r, err)
		return
	}

	obs.AuthEvent("token_refreshed")
	writeJSON(w, http.StatusOK, a.toTokenResponse(pair))
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	token, ok := auth.TokenFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "could not validate credentials")
		return
	}

	// The body is optional; when present it may carry the paired refresh
	// token so both credentials die together.
	var req logoutRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.auth.Logout(r.Context(), token, req.RefreshToken); err != nil {
		a.handleAuthError(w, r, err)
		return
	}

	obs.AuthEvent("token_revoked")
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	acct, ok := auth.AccountFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "could not validate credentials")
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(acct))
}

func (a *API) handleOrg(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	acct, ok := auth.AccountFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "could not validate credentials")
		return
	}
	org, err := a.auth.Organization(r.Context(), acct)
	if err != nil {
		a.handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, organizationResponse{
		ID:        org.ID,
		Name:      org.Name,
		Slug:      org.Slug,
		CreatedAt: org.CreatedAt,
	})
}

func (a *API) handleOrgUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	acct, ok := auth.AccountFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "could not validate credentials")
		return
	}
	accounts, err := a.auth.OrgAccounts(r.Context(), acct)
	if err != nil {
		a.handleAuthError(w, r, err)
		return
	}
	items := make([]accountResponse, 0, len(accounts))
	for _, member := range accounts {
		items = append(items, toAccountResponse(member))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// handleAuthError maps service errors to responses. Credential and token
// failures collapse to stable minimal messages so the caller cannot tell
// which check failed; only validation errors are returned verbatim.
func (a *API) handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrEmailTaken):
		writeError(w, r, http.StatusBadRequest, "email already registered")
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, strings.TrimPrefix(err.Error(), "auth: "))
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, "incorrect email or password")
	case errors.Is(err, auth.ErrAccountInactive):
		writeError(w, r, http.StatusForbidden, "user account is inactive")
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenExpired),
		errors.Is(err, auth.ErrTokenRevoked),
		errors.Is(err, auth.ErrWrongTokenType):
		writeError(w, r, http.StatusUnauthorized, "could not validate credentials")
	default:
		obs.Logger().Error("auth operation failed",
			obs.Err(err),
		)
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func toAccountResponse(acct *auth.Account) accountResponse {
	return accountResponse{
		ID:             acct.ID,
		OrganizationID: acct.OrganizationID,
		Email:          acct.Email,
		FirstName:      acct.FirstName,
		LastName:       acct.LastName,
		IsActive:       acct.IsActive,
		LastLoginAt:    acct.LastLoginAt,
		CreatedAt:      acct.CreatedAt,
	}
}

func (a *API) toTokenResponse(pair auth.TokenPair) tokenResponse {
	return tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "bearer",
		ExpiresIn:    int64(a.auth.AccessTTL() / time.Second),
	}
}
