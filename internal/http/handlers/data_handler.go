// Data HTTP handlers.
//
//   - GET    /data/export   (download a snapshot backup)
//   - POST   /data/import   (replace everything with an uploaded snapshot)
//   - POST   /data/save     (persist now)
//   - GET    /data/status   (counts, stored keys, last save)
//   - DELETE /data          (clear everything but the default user)
package handlers

import (
	"bytes"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// ExportData godoc
// @ID          exportData
// @Summary     Download a backup of all data
// @Description Sends an indented snapshot as a JSON attachment.
// @Tags        Data
// @Produce     json
//
// @Success     200  {file}    file  "Snapshot JSON attachment"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /data/export [get]
func (h *Handlers) ExportData(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.data.Export(c.Request.Context(), &buf); err != nil {
		failErr(c, err)
		return
	}
	name := "ai-character-hub-backup-" + time.Now().UTC().Format("2006-01-02") + ".json"
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	c.Data(http.StatusOK, "application/json; charset=utf-8", buf.Bytes())
}

// ImportData godoc
// @ID          importData
// @Summary     Restore all data from a backup
// @Description Accepts the snapshot as the raw JSON body or as the "file" field of a multipart form.
// @Tags        Data
// @Accept      json,mpfd
// @Produce     json
//
// @Param       file       formData file   false "Snapshot file (multipart); otherwise the raw body is used"
//
// @Success     200  {object}  map[string]domain.Counts
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid format"
// @Failure     413  {object}  handlers.ErrorResponse  "Payload too large"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /data/import [post]
func (h *Handlers) ImportData(c *gin.Context) {
	var body io.Reader = c.Request.Body
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("file")
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "multipart upload needs a file field")
			return
		}
		f, err := fh.Open()
		if err != nil {
			failErr(c, err)
			return
		}
		defer f.Close()
		body = f
	}
	counts, err := h.data.Import(c.Request.Context(), body)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"imported": counts})
}

// SaveData godoc
// @ID          saveData
// @Summary     Persist the store now
// @Description Persists the store immediately.
// @Tags        Data
// @Produce     json
//
// @Success     204  "No Content"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /data/save [post]
func (h *Handlers) SaveData(c *gin.Context) {
	if err := h.data.Save(c.Request.Context()); err != nil {
		failErr(c, err)
		return
	}
	h.DataStatus(c)
}

// DataStatus godoc
// @ID          dataStatus
// @Summary     Storage status
// @Description Reports what is held in memory and on disk.
// @Tags        Data
// @Produce     json
//
// @Success     200  {object}  services.DataStatus
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /data/status [get]
func (h *Handlers) DataStatus(c *gin.Context) {
	st, err := h.data.Status(c.Request.Context())
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, st)
}

// ClearData godoc
// @ID          clearData
// @Summary     Delete all data
// @Description Empties the store and deletes the saved snapshot.
// @Tags        Data
// @Produce     json
//
// @Success     204  "No Content"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /data [delete]
func (h *Handlers) ClearData(c *gin.Context) {
	if err := h.data.Clear(c.Request.Context()); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}
