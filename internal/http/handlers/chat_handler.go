// Chat HTTP handlers.
//
//   - GET    /chats                  (list, newest activity first)
//   - POST   /chats                  (create)
//   - GET    /chats/{id}             (get)
//   - PATCH  /chats/{id}             (partial update)
//   - DELETE /chats/{id}             (delete with messages)
//   - GET    /chats/{id}/messages    (list messages)
//   - POST   /chats/{id}/messages    (send and wait for the reply)
//   - POST   /chats/{id}/stream      (send and stream the reply as SSE)
//   - GET    /chats/{id}/export      (download a transcript)
package handlers

import (
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/character-hub/internal/domain"
	"github.com/tbourn/character-hub/internal/http/middleware"
	"github.com/tbourn/character-hub/internal/utils"
)

// SSE event names used by StreamMessage.
const (
	EventDelta = "delta"
	EventDone  = "done"
	EventError = "error"
)

// ListChats godoc
// @ID          listChats
// @Summary     List chats (paginated)
// @Description Filters by type and participant query parameters.
// @Tags        Chats
// @Produce     json
//
// @Param       type        query   string  false "single | group | scenario"
// @Param       participant query   string  false "Character ID taking part"
// @Param       page       query   int     false "Page number (1-based)"  default(1)
// @Param       page_size  query   int     false "Page size"  default(50)
//
// @Success     200  {object}  handlers.ListChatsResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /chats [get]
func (h *Handlers) ListChats(c *gin.Context) {
	all := h.store.ListChats(domain.ChatFilter{
		Type:        domain.ChatType(c.Query("type")),
		Participant: c.Query("participant"),
	})
	page, pageSize := clampPagination(c)
	items, meta := utils.Paginate(all, page, pageSize)
	ok(c, http.StatusOK, ListChatsResponse{Chats: items, Pagination: meta})
}

// CreateChat godoc
// @ID          createChat
// @Summary     Create a chat
// @Description Registers a chat without posting a greeting.
// @Tags        Chats
// @Accept      json
// @Produce     json
//
// @Param       body       body    handlers.CreateChatRequest  true  "Chat payload"
//
// @Success     201  {object}  domain.Chat
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /chats [post]
func (h *Handlers) CreateChat(c *gin.Context) {
	var req CreateChatRequest
	if !bindJSON(c, &req) {
		return
	}
	ok(c, http.StatusCreated, h.store.CreateChat(domain.ChatInput{
		Name:         req.Name,
		Type:         req.Type,
		Participants: req.Participants,
		Scenario:     req.Scenario,
		Settings:     req.Settings.settings(),
	}))
}

// GetChat godoc
// @ID          getChat
// @Summary     Get a chat
// @Description Returns one chat.
// @Tags        Chats
// @Produce     json
//
// @Param       id         path    string  true  "Chat ID"
//
// @Success     200  {object}  domain.Chat
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /chats/{id} [get]
func (h *Handlers) GetChat(c *gin.Context) {
	ch, err := h.store.GetChat(c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ch)
}

// UpdateChat godoc
// @ID          updateChat
// @Summary     Update a chat
// @Description Applies a partial update.
// @Tags        Chats
// @Accept      json
// @Produce     json
//
// @Param       id         path    string  true  "Chat ID"
// @Param       body       body    handlers.UpdateChatRequest  true  "Fields to change"
//
// @Success     200  {object}  domain.Chat
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /chats/{id} [patch]
func (h *Handlers) UpdateChat(c *gin.Context) {
	var req UpdateChatRequest
	if !bindJSON(c, &req) {
		return
	}
	ch, err := h.store.UpdateChat(c.Param("id"), domain.ChatPatch{
		Name:     req.Name,
		Type:     req.Type,
		Scenario: req.Scenario,
		Settings: req.Settings.settings(),
	})
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ch)
}

// DeleteChat godoc
// @ID          deleteChat
// @Summary     Delete a chat
// @Description Removes a chat and its messages.
// @Tags        Chats
// @Produce     json
//
// @Param       id         path    string  true  "Chat ID"
//
// @Success     204  "No Content"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /chats/{id} [delete]
func (h *Handlers) DeleteChat(c *gin.Context) {
	if err := h.store.DeleteChat(c.Param("id")); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}

// ListMessages godoc
// @ID          listMessages
// @Summary     List chat messages (paginated)
// @Description Returns the chat's messages in creation order.
// @Tags        Messages
// @Produce     json
//
// @Param       id         path    string  true  "Chat ID"
// @Param       page       query   int     false "Page number (1-based)"  default(1)
// @Param       page_size  query   int     false "Page size"  default(50)
//
// @Success     200  {object}  handlers.ListMessagesResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /chats/{id}/messages [get]
func (h *Handlers) ListMessages(c *gin.Context) {
	msgs, err := h.store.ChatMessages(c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	page, pageSize := clampPagination(c)
	items, meta := utils.Paginate(msgs, page, pageSize)
	ok(c, http.StatusOK, ListMessagesResponse{Messages: items, Pagination: meta})
}

// PostMessage godoc
// @ID          postMessage
// @Summary     Send a message and get the reply
// @Description Stores the user message and responds with the exchange once the character has replied.
// @Tags        Messages
// @Accept      json
// @Produce     json
//
// @Param       id         path    string  true  "Chat ID"
// @Param       body       body    handlers.PostMessageRequest  true  "Message payload"
//
// @Success     201  {object}  services.Exchange
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Failure     502  {object}  handlers.ErrorResponse  "Provider failed"
// @Failure     504  {object}  handlers.ErrorResponse  "Provider timeout"
// @Router      /chats/{id}/messages [post]
func (h *Handlers) PostMessage(c *gin.Context) {
	var req PostMessageRequest
	if !bindJSON(c, &req) {
		return
	}
	ex, err := h.chats.Send(c.Request.Context(), c.Param("id"), req.Content)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, ex)
}

// StreamMessage godoc
// @ID          streamMessage
// @Summary     Send a message and stream the reply (SSE)
// @Description Same as PostMessage but over server-sent events. Each chunk of the reply is a "delta" event with {"text": ...}; the stored exchange follows as a "done" event. Failures before the first event get the usual JSON error envelope; later failures are sent as an "error" event.
// @Tags        Messages
// @Accept      json
// @Produce     text/event-stream
//
// @Param       id         path    string  true  "Chat ID"
// @Param       body       body    handlers.PostMessageRequest  true  "Message payload"
//
// @Success     200  {string}  string  "text/event-stream of delta, done and error events"
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Failure     502  {object}  handlers.ErrorResponse  "Provider failed"
// @Router      /chats/{id}/stream [post]
func (h *Handlers) StreamMessage(c *gin.Context) {
	var req PostMessageRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ex, err := h.chats.Stream(ctx, c.Param("id"), req.Content, func(delta string) error {
		c.SSEvent(EventDelta, gin.H{"text": delta})
		c.Writer.Flush()
		return ctx.Err()
	})
	if err != nil {
		if !c.Writer.Written() {
			failErr(c, err)
			return
		}
		status, code := classify(err)
		middleware.LoggerFrom(c).Warn().Err(err).Int("status", status).Msg("stream aborted")
		c.SSEvent(EventError, ErrorResponse{
			RequestID: c.Writer.Header().Get("X-Request-ID"),
			Code:      code,
			Message:   err.Error(),
		})
		c.Writer.Flush()
		return
	}
	c.SSEvent(EventDone, ex)
	c.Writer.Flush()
}

// ExportChat godoc
// @ID          exportChat
// @Summary     Export a chat transcript
// @Description Downloads the chat transcript in the format query parameter (json, txt, md, html or csv; json by default).
// @Tags        Chats
// @Produce     json,plain,html,text/markdown,text/csv
//
// @Param       id         path    string  true  "Chat ID"
// @Param       format     query   string  false "json | txt | md | html | csv"  default(json)
//
// @Success     200  {file}    file  "Transcript attachment"
// @Failure     400  {object}  handlers.ErrorResponse  "Unsupported format"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /chats/{id}/export [get]
func (h *Handlers) ExportChat(c *gin.Context) {
	tr, err := h.transcripts.Export(c.Param("id"), c.Query("format"))
	if err != nil {
		failErr(c, err)
		return
	}
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": tr.Filename}))
	c.Data(http.StatusOK, tr.ContentType, tr.Body)
}
