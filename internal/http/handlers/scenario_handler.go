// Scenario HTTP handlers.
//
//   - GET    /scenarios             (list; search, character, nsfw filters)
//   - POST   /scenarios             (create)
//   - GET    /scenarios/{id}        (get)
//   - PATCH  /scenarios/{id}        (partial update)
//   - DELETE /scenarios/{id}        (delete)
//   - POST   /scenarios/{id}/play   (count a play or completion)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/character-hub/internal/domain"
)

// ListScenarios godoc
// @ID          listScenarios
// @Summary     List scenarios
// @Description Returns scenarios in creation order.
// @Tags        Scenarios
// @Produce     json
//
// @Param       search     query   string  false "Substring of name or description"
// @Param       character  query   string  false "Character ID featured in the scenario"
// @Param       nsfw       query   bool    false "Include (true) or exclude (false) NSFW scenarios"
//
// @Success     200  {object}  map[string][]domain.Scenario
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /scenarios [get]
func (h *Handlers) ListScenarios(c *gin.Context) {
	ok(c, http.StatusOK, gin.H{"scenarios": h.store.ListScenarios(domain.ScenarioFilter{
		Search:    c.Query("search"),
		Character: c.Query("character"),
		NSFW:      queryBool(c, "nsfw"),
	})})
}

// CreateScenario godoc
// @ID          createScenario
// @Summary     Create a scenario
// @Description Validates and registers a scenario.
// @Tags        Scenarios
// @Accept      json
// @Produce     json
//
// @Param       body       body    handlers.CreateScenarioRequest  true  "Scenario payload"
//
// @Success     201  {object}  domain.Scenario
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /scenarios [post]
func (h *Handlers) CreateScenario(c *gin.Context) {
	var req CreateScenarioRequest
	if !bindJSON(c, &req) {
		return
	}
	ok(c, http.StatusCreated, h.store.CreateScenario(req.input()))
}

// GetScenario godoc
// @ID          getScenario
// @Summary     Get a scenario
// @Description Returns one scenario.
// @Tags        Scenarios
// @Produce     json
//
// @Param       id         path    string  true  "Scenario ID"
//
// @Success     200  {object}  domain.Scenario
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /scenarios/{id} [get]
func (h *Handlers) GetScenario(c *gin.Context) {
	sc, err := h.store.GetScenario(c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, sc)
}

// UpdateScenario godoc
// @ID          updateScenario
// @Summary     Update a scenario
// @Description Applies a partial update.
// @Tags        Scenarios
// @Accept      json
// @Produce     json
//
// @Param       id         path    string  true  "Scenario ID"
// @Param       body       body    handlers.UpdateScenarioRequest  true  "Fields to change"
//
// @Success     200  {object}  domain.Scenario
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /scenarios/{id} [patch]
func (h *Handlers) UpdateScenario(c *gin.Context) {
	var req UpdateScenarioRequest
	if !bindJSON(c, &req) {
		return
	}
	sc, err := h.store.UpdateScenario(c.Param("id"), req.patch())
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, sc)
}

// DeleteScenario godoc
// @ID          deleteScenario
// @Summary     Delete a scenario
// @Description Removes a scenario. Chats that used it keep their history.
// @Tags        Scenarios
// @Produce     json
//
// @Param       id         path    string  true  "Scenario ID"
//
// @Success     204  "No Content"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /scenarios/{id} [delete]
func (h *Handlers) DeleteScenario(c *gin.Context) {
	if err := h.store.DeleteScenario(c.Param("id")); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}

// PlayScenario godoc
// @ID          playScenario
// @Summary     Record a scenario play
// @Description Records a play. An empty body counts a plain play.
// @Tags        Scenarios
// @Accept      json
// @Produce     json
//
// @Param       id         path    string  true  "Scenario ID"
// @Param       body       body    handlers.PlayScenarioRequest  false "Completion flag"
//
// @Success     200  {object}  domain.Scenario
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /scenarios/{id}/play [post]
func (h *Handlers) PlayScenario(c *gin.Context) {
	var req PlayScenarioRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	sc, err := h.store.PlayScenario(c.Param("id"), req.Completed)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, sc)
}
