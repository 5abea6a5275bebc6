// Message HTTP handlers.
//
//   - PATCH  /messages/{id}              (edit content or attachments)
//   - DELETE /messages/{id}              (delete)
//   - POST   /messages/{id}/regenerate   (replace a character reply)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/character-hub/internal/domain"
)

// UpdateMessage godoc
// @ID          updateMessage
// @Summary     Edit a message
// @Description Edits a message and marks it as edited.
// @Tags        Messages
// @Accept      json
// @Produce     json
//
// @Param       id         path    string  true  "Message ID"
// @Param       body       body    handlers.UpdateMessageRequest  true  "Fields to change"
//
// @Success     200  {object}  domain.Message
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /messages/{id} [patch]
func (h *Handlers) UpdateMessage(c *gin.Context) {
	var req UpdateMessageRequest
	if !bindJSON(c, &req) {
		return
	}
	m, err := h.store.UpdateMessage(c.Param("id"), domain.MessagePatch{
		Content:     req.Content,
		Attachments: req.Attachments,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, m)
}

// DeleteMessage godoc
// @ID          deleteMessage
// @Summary     Delete a message
// @Description Removes a message from its chat.
// @Tags        Messages
// @Produce     json
//
// @Param       id         path    string  true  "Message ID"
//
// @Success     204  "No Content"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /messages/{id} [delete]
func (h *Handlers) DeleteMessage(c *gin.Context) {
	if err := h.store.DeleteMessage(c.Param("id")); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}

// RegenerateMessage godoc
// @ID          regenerateMessage
// @Summary     Regenerate a character reply
// @Description Replaces a character reply with a fresh one.
// @Tags        Messages
// @Produce     json
//
// @Param       id         path    string  true  "Message ID"
//
// @Success     201  {object}  services.Exchange
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Message cannot be regenerated"
// @Failure     502  {object}  handlers.ErrorResponse  "Provider failed"
// @Router      /messages/{id}/regenerate [post]
func (h *Handlers) RegenerateMessage(c *gin.Context) {
	ex, err := h.chats.Regenerate(c.Request.Context(), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, ex)
}
