// Character HTTP handlers.
//
//   - GET    /characters              (list, filtered, sorted, paginated)
//   - POST   /characters              (create)
//   - GET    /characters/{id}         (get)
//   - PATCH  /characters/{id}         (partial update)
//   - DELETE /characters/{id}         (delete with cascade)
//   - POST   /characters/{id}/like    (like)
//   - POST   /characters/{id}/chats   (open a chat and post the greeting)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/character-hub/internal/domain"
	"github.com/tbourn/character-hub/internal/utils"
)

// ListCharacters godoc
// @ID          listCharacters
// @Summary     List characters (paginated)
// @Description Filters with search, category, tags (comma separated), nsfw and sort query parameters.
// @Tags        Characters
// @Produce     json
//
// @Param       search     query   string  false "Substring of name, description or tags"
// @Param       category   query   string  false "Category filter (all = any)"
// @Param       tags       query   string  false "Comma separated tags; all must match"
// @Param       nsfw       query   bool    false "Include (true) or exclude (false) NSFW characters"
// @Param       sort       query   string  false "name | created | popular | rating"
// @Param       page       query   int     false "Page number (1-based)"  default(1)
// @Param       page_size  query   int     false "Page size"  default(50)
//
// @Success     200  {object}  handlers.ListCharactersResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /characters [get]
func (h *Handlers) ListCharacters(c *gin.Context) {
	all := h.store.ListCharacters(domain.CharacterFilter{
		Search:   c.Query("search"),
		Category: c.Query("category"),
		Tags:     queryList(c, "tags"),
		NSFW:     queryBool(c, "nsfw"),
		SortBy:   c.Query("sort"),
	})
	page, pageSize := clampPagination(c)
	items, meta := utils.Paginate(all, page, pageSize)
	ok(c, http.StatusOK, ListCharactersResponse{Characters: items, Pagination: meta})
}

// CreateCharacter godoc
// @ID          createCharacter
// @Summary     Create a character
// @Description Validates and registers a character.
// @Tags        Characters
// @Accept      json
// @Produce     json
//
// @Param       body       body    handlers.CreateCharacterRequest  true  "Character payload"
//
// @Success     201  {object}  domain.Character
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /characters [post]
func (h *Handlers) CreateCharacter(c *gin.Context) {
	var req CreateCharacterRequest
	if !bindJSON(c, &req) {
		return
	}
	ok(c, http.StatusCreated, h.store.CreateCharacter(req.input()))
}

// GetCharacter godoc
// @ID          getCharacter
// @Summary     Get a character
// @Description Returns one character.
// @Tags        Characters
// @Produce     json
//
// @Param       id         path    string  true  "Character ID"
//
// @Success     200  {object}  domain.Character
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /characters/{id} [get]
func (h *Handlers) GetCharacter(c *gin.Context) {
	ch, err := h.store.GetCharacter(c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ch)
}

// UpdateCharacter godoc
// @ID          updateCharacter
// @Summary     Update a character
// @Description Applies a partial update.
// @Tags        Characters
// @Accept      json
// @Produce     json
//
// @Param       id         path    string  true  "Character ID"
// @Param       body       body    handlers.UpdateCharacterRequest  true  "Fields to change"
//
// @Success     200  {object}  domain.Character
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /characters/{id} [patch]
func (h *Handlers) UpdateCharacter(c *gin.Context) {
	var req UpdateCharacterRequest
	if !bindJSON(c, &req) {
		return
	}
	ch, err := h.store.UpdateCharacter(c.Param("id"), req.patch())
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ch)
}

// DeleteCharacter godoc
// @ID          deleteCharacter
// @Summary     Delete a character
// @Description Removes a character and every chat it takes part in.
// @Tags        Characters
// @Produce     json
//
// @Param       id         path    string  true  "Character ID"
//
// @Success     204  "No Content"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /characters/{id} [delete]
func (h *Handlers) DeleteCharacter(c *gin.Context) {
	if err := h.store.DeleteCharacter(c.Param("id")); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}

// LikeCharacter godoc
// @ID          likeCharacter
// @Summary     Like a character
// @Description Increments the like counter.
// @Tags        Characters
// @Produce     json
//
// @Param       id         path    string  true  "Character ID"
//
// @Success     200  {object}  domain.Character
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /characters/{id}/like [post]
func (h *Handlers) LikeCharacter(c *gin.Context) {
	ch, err := h.store.LikeCharacter(c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ch)
}

// StartChat godoc
// @ID          startChat
// @Summary     Start a chat with a character
// @Description Opens a single chat with the character.
// @Tags        Characters
// @Produce     json
//
// @Param       id         path    string  true  "Character ID"
//
// @Success     201  {object}  handlers.StartChatResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /characters/{id}/chats [post]
func (h *Handlers) StartChat(c *gin.Context) {
	chat, greeting, err := h.chats.StartChat(c.Request.Context(), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, StartChatResponse{Chat: chat, Greeting: greeting})
}
