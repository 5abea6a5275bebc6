// User, tag and search HTTP handlers.
//
//   - GET   /user                (the singleton user)
//   - GET   /user/stats          (usage counters)
//   - PATCH /user/preferences    (partial preferences update)
//   - GET   /tags                (tag index)
//   - GET   /search?q=           (global search)
package handlers

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/character-hub/internal/domain"
	"github.com/tbourn/character-hub/internal/utils"
)

// GetUser godoc
// @ID          getUser
// @Summary     Get the user
// @Description Returns the singleton user.
// @Tags        User
// @Produce     json
//
// @Success     200  {object}  domain.User
// @Router      /user [get]
func (h *Handlers) GetUser(c *gin.Context) {
	ok(c, http.StatusOK, h.store.User())
}

// GetUserStats godoc
// @ID          getUserStats
// @Summary     Get user statistics
// @Description Returns the user's cumulative counters.
// @Tags        User
// @Produce     json
//
// @Success     200  {object}  domain.UserStats
// @Router      /user/stats [get]
func (h *Handlers) GetUserStats(c *gin.Context) {
	ok(c, http.StatusOK, h.store.UserStats())
}

// UpdatePreferences godoc
// @ID          updatePreferences
// @Summary     Update user preferences
// @Description Changes theme, language, NSFW and autosave settings.
// @Tags        User
// @Accept      json
// @Produce     json
//
// @Param       body       body    handlers.UpdatePreferencesRequest  true  "Preferences to change"
//
// @Success     200  {object}  domain.User
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Router      /user/preferences [patch]
func (h *Handlers) UpdatePreferences(c *gin.Context) {
	var req UpdatePreferencesRequest
	if !bindJSON(c, &req) {
		return
	}
	ok(c, http.StatusOK, h.store.UpdatePreferences(domain.PreferencesPatch{
		Theme:       req.Theme,
		Language:    req.Language,
		NSFWEnabled: req.NSFWEnabled,
		AutoSave:    req.AutoSave,
	}))
}

// ListTags godoc
// @ID          listTags
// @Summary     List tags
// @Description Returns every tag ever used, sorted.
// @Tags        Search
// @Produce     json
//
// @Success     200  {object}  map[string][]string
// @Router      /tags [get]
func (h *Handlers) ListTags(c *gin.Context) {
	ok(c, http.StatusOK, gin.H{"tags": h.store.Tags()})
}

// Search godoc
// @ID          search
// @Summary     Search characters, chats and scenarios
// @Description Matches q across characters, chats and scenarios. The optional types parameter (comma separated) restricts the kinds searched and limit caps each list.
// @Tags        Search
// @Produce     json
//
// @Param       q          query   string  true  "Search text"
// @Param       types      query   string  false "Comma separated kinds: characters, chats, scenarios"
// @Param       limit      query   int     false "Maximum results per kind"  default(10)
//
// @Success     200  {object}  domain.SearchResults
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Router      /search [get]
func (h *Handlers) Search(c *gin.Context) {
	q, found := c.GetQuery("q")
	if !found {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "query parameter q is required")
		return
	}
	opts := domain.SearchOptions{Limit: utils.AtoiDefault(c.Query("limit"), domain.DefaultSearchLimit)}
	if types := queryList(c, "types"); len(types) > 0 {
		opts.SkipCharacters = !slices.Contains(types, "characters")
		opts.SkipChats = !slices.Contains(types, "chats")
		opts.SkipScenarios = !slices.Contains(types, "scenarios")
	}
	ok(c, http.StatusOK, h.store.Search(q, opts))
}
