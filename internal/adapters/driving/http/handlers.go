package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/custodia-labs/integra/internal/core/domain"
	"github.com/custodia-labs/integra/internal/core/ports/driving"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"state mismatch"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// closeWindowPage is returned to the popup after the callback completes so
// the handshake driver can detect closure and fetch the credential.
const closeWindowPage = `<html><script>window.close();</script></html>`

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Returns the readiness status of the API (checks the key-value backend)
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Failure      503  {object}  ErrorResponse  "Key-value backend unreachable"
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.kvBackend != nil {
		if err := s.kvBackend.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "key-value backend unreachable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// OAuth flow endpoints

// handleAuthorize godoc
// @Summary      Start an OAuth flow
// @Description  Issues a CSRF state token and returns the provider authorization URL to open in a popup
// @Tags         Integrations
// @Accept       x-www-form-urlencoded
// @Produce      json
// @Param        provider  path      string  true  "Provider (hubspot, notion, airtable)"
// @Param        user_id   formData  string  true  "User identifier"
// @Param        org_id    formData  string  true  "Organization identifier"
// @Success      200       {string}  string  "Authorization URL"
// @Failure      400       {object}  ErrorResponse  "Missing form fields"
// @Failure      404       {object}  ErrorResponse  "Unknown provider"
// @Failure      500       {object}  ErrorResponse  "Provider not configured"
// @Router       /integrations/{provider}/authorize [post]
func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	provider, ok := providerFromPath(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}

	resp, err := s.oauthService.Authorize(r.Context(), driving.AuthorizeRequest{
		Provider: provider,
		UserID:   r.PostFormValue("user_id"),
		OrgID:    r.PostFormValue("org_id"),
	})
	if err != nil {
		writeOAuthError(w, err)
		return
	}

	// The handshake driver expects a bare URL string
	writeJSON(w, http.StatusOK, resp.AuthorizationURL)
}

// handleOAuthCallback godoc
// @Summary      OAuth callback
// @Description  Verifies state, exchanges the code, stores the credential, and returns a self-closing page
// @Tags         Integrations
// @Produce      html
// @Param        provider  path   string  true  "Provider (hubspot, notion, airtable)"
// @Param        code      query  string  true  "Authorization code"
// @Param        state     query  string  true  "State blob from the authorize step"
// @Success      200  {string}  string  "Self-closing confirmation page"
// @Failure      400  {object}  ErrorResponse  "State verification failed"
// @Failure      502  {object}  ErrorResponse  "Token exchange rejected by provider"
// @Router       /integrations/{provider}/oauth2callback [get]
func (s *Server) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	provider, ok := providerFromPath(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	err := s.oauthService.Callback(r.Context(), driving.CallbackRequest{
		Provider:         provider,
		Code:             query.Get("code"),
		State:            query.Get("state"),
		Error:            query.Get("error"),
		ErrorDescription: query.Get("error_description"),
	})
	if err != nil {
		writeOAuthError(w, err)
		return
	}

	// Signal the handshake driver by closing the popup
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(closeWindowPage))
}

// handleGetCredentials godoc
// @Summary      Retrieve a stored credential
// @Description  Returns the credential stored by the callback and deletes it (single delivery)
// @Tags         Integrations
// @Accept       x-www-form-urlencoded
// @Produce      json
// @Param        provider  path      string  true  "Provider (hubspot, notion, airtable)"
// @Param        user_id   formData  string  true  "User identifier"
// @Param        org_id    formData  string  true  "Organization identifier"
// @Success      200  {object}  domain.Credential
// @Failure      404  {object}  ErrorResponse  "No credentials found"
// @Router       /integrations/{provider}/credentials [post]
func (s *Server) handleGetCredentials(w http.ResponseWriter, r *http.Request) {
	provider, ok := providerFromPath(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}

	cred, err := s.oauthService.GetCredentials(r.Context(), driving.CredentialsRequest{
		Provider: provider,
		UserID:   r.PostFormValue("user_id"),
		OrgID:    r.PostFormValue("org_id"),
	})
	if err != nil {
		writeOAuthError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, cred)
}

// handleLoadItems godoc
// @Summary      Load provider records
// @Description  Fetches the provider's records with the supplied credential, normalized as IntegrationItems
// @Tags         Integrations
// @Accept       x-www-form-urlencoded
// @Produce      json
// @Param        provider     path      string  true  "Provider (hubspot, notion, airtable)"
// @Param        credentials  formData  string  true  "Credential JSON as returned by the credentials endpoint"
// @Success      200  {array}   domain.IntegrationItem
// @Failure      400  {object}  ErrorResponse  "Malformed credentials"
// @Router       /integrations/{provider}/load [post]
func (s *Server) handleLoadItems(w http.ResponseWriter, r *http.Request) {
	provider, ok := providerFromPath(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}

	items, err := s.oauthService.LoadItems(r.Context(), driving.LoadRequest{
		Provider:    provider,
		Credentials: r.PostFormValue("credentials"),
	})
	if err != nil {
		writeOAuthError(w, err)
		return
	}

	if items == nil {
		items = []domain.IntegrationItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

// providerFromPath resolves and validates the {provider} path segment.
// Writes a 404 and returns false for unknown providers.
func providerFromPath(w http.ResponseWriter, r *http.Request) (domain.ProviderType, bool) {
	provider := domain.ProviderType(r.PathValue("provider"))
	if !provider.IsValid() {
		writeError(w, http.StatusNotFound, "unknown provider")
		return "", false
	}
	return provider, true
}

// writeOAuthError maps coordinator errors onto the HTTP taxonomy:
// configuration faults are 500s, verification failures 400s, provider
// rejections 502s, and absent credentials 404s.
func writeOAuthError(w http.ResponseWriter, err error) {
	var oauthErr *driving.OAuthError
	if errors.As(err, &oauthErr) {
		switch oauthErr.Code {
		case "exchange_failed":
			writeError(w, http.StatusBadGateway, oauthErr.Error())
		default:
			// Error reported by the provider on the redirect
			writeError(w, http.StatusBadRequest, oauthErr.Error())
		}
		return
	}

	switch {
	case errors.Is(err, domain.ErrProviderNotConfigured):
		writeError(w, http.StatusInternalServerError, err.Error())
	case errors.Is(err, domain.ErrUnsupportedProvider):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrStateMismatch), errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrCredentialNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
