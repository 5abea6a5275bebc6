// Provider HTTP handlers.
//
//   - GET  /providers                 (statuses and the current backend)
//   - PUT  /providers/current         (select a backend)
//   - PUT  /providers/{name}/key      (store or clear an API key)
//   - POST /providers/{name}/test     (check connectivity and credentials)
//   - GET  /providers/{name}/models   (list models)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListProviders godoc
// @ID          listProviders
// @Summary     List AI providers
// @Description Reports availability, key presence and models per backend. API keys themselves are never returned.
// @Tags        Providers
// @Produce     json
//
// @Success     200  {object}  handlers.ProvidersResponse
// @Router      /providers [get]
func (h *Handlers) ListProviders(c *gin.Context) {
	ok(c, http.StatusOK, ProvidersResponse{
		Current:   h.providers.Current(),
		Providers: h.providers.Statuses(c.Request.Context()),
	})
}

// SetCurrentProvider godoc
// @ID          setCurrentProvider
// @Summary     Select the current provider
// @Description Selects the backend used for new replies.
// @Tags        Providers
// @Accept      json
// @Produce     json
//
// @Param       body       body    handlers.SetProviderRequest  true  "Provider name"
//
// @Success     200  {object}  map[string]string
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown provider"
// @Router      /providers/current [put]
func (h *Handlers) SetCurrentProvider(c *gin.Context) {
	var req SetProviderRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.providers.SetCurrent(req.Provider); err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"current": h.providers.Current()})
}

// SetProviderKey godoc
// @ID          setProviderKey
// @Summary     Store a provider API key
// @Description Stores the API key for a backend. An empty key clears it.
// @Tags        Providers
// @Accept      json
// @Produce     json
//
// @Param       name       path    string  true  "Provider name"
// @Param       body       body    handlers.SetAPIKeyRequest  true  "API key (empty clears it)"
//
// @Success     204  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown provider"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /providers/{name}/key [put]
func (h *Handlers) SetProviderKey(c *gin.Context) {
	var req SetAPIKeyRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.providers.SetAPIKey(c.Request.Context(), c.Param("name"), req.APIKey); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}

// TestProvider godoc
// @ID          testProvider
// @Summary     Test a provider connection
// @Description Checks the backend with the supplied key or the stored one.
// @Tags        Providers
// @Accept      json
// @Produce     json
//
// @Param       name       path    string  true  "Provider name"
// @Param       body       body    handlers.TestProviderRequest  false "Key to test instead of the stored one"
//
// @Success     200  {object}  map[string]bool
// @Failure     400  {object}  handlers.ErrorResponse  "Missing API key"
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown provider"
// @Failure     502  {object}  handlers.ErrorResponse  "Provider failed"
// @Failure     503  {object}  handlers.ErrorResponse  "Provider unavailable"
// @Router      /providers/{name}/test [post]
func (h *Handlers) TestProvider(c *gin.Context) {
	var req TestProviderRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	if err := h.providers.TestConnection(c.Request.Context(), c.Param("name"), req.APIKey); err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"ok": true})
}

// ListProviderModels godoc
// @ID          listProviderModels
// @Summary     List provider models
// @Description Returns the models a backend offers.
// @Tags        Providers
// @Produce     json
//
// @Param       name       path    string  true  "Provider name"
//
// @Success     200  {object}  map[string][]string
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown provider"
// @Router      /providers/{name}/models [get]
func (h *Handlers) ListProviderModels(c *gin.Context) {
	models, err := h.providers.Models(c.Param("name"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"models": models})
}
