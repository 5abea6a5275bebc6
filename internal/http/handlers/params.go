package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/tbourn/character-hub/internal/utils"
)

// clampPagination parses page and page_size, bounded to sane limits.
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 50
		maxPageSize     = 200
	)
	page = max(utils.AtoiDefault(c.Query("page"), defaultPage), 1)
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	return page, min(max(pageSize, 1), maxPageSize)
}

// queryBool returns nil when key is absent or not a boolean.
func queryBool(c *gin.Context, key string) *bool {
	v, ok := c.GetQuery(key)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return nil
	}
	return &b
}

// queryList splits a comma-separated query value, dropping blanks.
func queryList(c *gin.Context, key string) []string {
	var out []string
	for _, p := range strings.Split(c.Query(key), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// bindJSON binds the body into dst. On failure it writes 400
// validation_failed for rule violations, 413 for oversized bodies and 400
// bad_request for malformed JSON, and reports false.
func bindJSON(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &verrs):
		fail(c, http.StatusBadRequest, ErrCodeValidation, verrs.Error())
	case errors.As(err, &tooLarge):
		fail(c, http.StatusRequestEntityTooLarge, ErrCodeTooLarge, "request body too large")
	default:
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
	}
	return false
}
