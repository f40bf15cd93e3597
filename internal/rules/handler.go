package rules

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tagwright/internal/logger"
	"tagwright/pkg/errors"
)

type BaseHandler struct {
	Service Service
	Logger  logger.Logger
}

func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	h.Logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)

	status := errors.ToHTTPStatus(err)
	response := errors.ToErrorResponse(err)

	c.JSON(status, response)
}

type Handler struct {
	BaseHandler
}

func NewHandler(service Service, log logger.Logger) *Handler {
	return &Handler{
		BaseHandler: BaseHandler{
			Service: service,
			Logger:  log,
		},
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		shops := v1.Group("/shops/:shop")
		{
			shops.GET("/rules", h.ListRules)
			shops.POST("/rules", h.CreateRule)
			shops.GET("/rules/:id", h.GetRule)
			shops.PATCH("/rules/:id", h.ToggleRule)
			shops.DELETE("/rules/:id", h.DeleteRule)
			shops.GET("/audit", h.ListAuditLogs)
		}
	}
}

// ListRules godoc
// @Summary      List tag rules for a shop
// @Description  Get all tag rules for the shop, enabled and disabled, in creation order
// @Tags         tag-rules
// @Accept       json
// @Produce      json
// @Param        shop  path      string  true  "Shop domain"
// @Success      200   {array}   Rule
// @Failure      500   {object}  map[string]interface{}
// @Router       /shops/{shop}/rules [get]
func (h *Handler) ListRules(c *gin.Context) {
	result, err := h.Service.ListRules(c.Request.Context(), c.Param("shop"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if result == nil {
		result = []Rule{}
	}
	c.JSON(http.StatusOK, result)
}

// CreateRule godoc
// @Summary      Create a tag rule
// @Description  Create a new tag rule for the shop
// @Tags         tag-rules
// @Accept       json
// @Produce      json
// @Param        shop  path      string             true  "Shop domain"
// @Param        rule  body      CreateRuleRequest  true  "Rule definition"
// @Success      201   {object}  Rule
// @Failure      400   {object}  map[string]interface{}
// @Failure      500   {object}  map[string]interface{}
// @Router       /shops/{shop}/rules [post]
func (h *Handler) CreateRule(c *gin.Context) {
	var req CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	rule, err := h.Service.CreateRule(c.Request.Context(), c.Param("shop"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, rule)
}

// GetRule godoc
// @Summary      Get a tag rule
// @Description  Get a single tag rule by id
// @Tags         tag-rules
// @Accept       json
// @Produce      json
// @Param        shop  path      string  true  "Shop domain"
// @Param        id    path      string  true  "Rule ID"
// @Success      200   {object}  Rule
// @Failure      404   {object}  map[string]interface{}
// @Failure      500   {object}  map[string]interface{}
// @Router       /shops/{shop}/rules/{id} [get]
func (h *Handler) GetRule(c *gin.Context) {
	rule, err := h.Service.GetRule(c.Request.Context(), c.Param("shop"), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, rule)
}

// ToggleRule godoc
// @Summary      Enable or disable a tag rule
// @Description  Set the enabled flag on a tag rule; definition fields are immutable
// @Tags         tag-rules
// @Accept       json
// @Produce      json
// @Param        shop   path      string             true  "Shop domain"
// @Param        id     path      string             true  "Rule ID"
// @Param        state  body      ToggleRuleRequest  true  "Enabled flag"
// @Success      200    {object}  Rule
// @Failure      400    {object}  map[string]interface{}
// @Failure      404    {object}  map[string]interface{}
// @Failure      500    {object}  map[string]interface{}
// @Router       /shops/{shop}/rules/{id} [patch]
func (h *Handler) ToggleRule(c *gin.Context) {
	var req ToggleRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	rule, err := h.Service.ToggleRule(c.Request.Context(), c.Param("shop"), c.Param("id"), *req.Enabled)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, rule)
}

// DeleteRule godoc
// @Summary      Delete a tag rule
// @Description  Permanently remove a tag rule from the shop
// @Tags         tag-rules
// @Accept       json
// @Produce      json
// @Param        shop  path  string  true  "Shop domain"
// @Param        id    path  string  true  "Rule ID"
// @Success      204
// @Failure      404   {object}  map[string]interface{}
// @Failure      500   {object}  map[string]interface{}
// @Router       /shops/{shop}/rules/{id} [delete]
func (h *Handler) DeleteRule(c *gin.Context) {
	if err := h.Service.DeleteRule(c.Request.Context(), c.Param("shop"), c.Param("id")); err != nil {
		h.HandleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListAuditLogs godoc
// @Summary      List rule change history
// @Description  Get recent rule changes for the shop, newest first
// @Tags         audit
// @Accept       json
// @Produce      json
// @Param        shop   path      string  true   "Shop domain"
// @Param        limit  query     int     false  "Max entries to return"
// @Success      200    {array}   AuditLog
// @Failure      500    {object}  map[string]interface{}
// @Router       /shops/{shop}/audit [get]
func (h *Handler) ListAuditLogs(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, errors.ToErrorResponse(
				errors.ErrValidation.WithDetail("message", "limit must be an integer")))
			return
		}
		limit = parsed
	}

	result, err := h.Service.ListAuditLogs(c.Request.Context(), c.Param("shop"), limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if result == nil {
		result = []AuditLog{}
	}
	c.JSON(http.StatusOK, result)
}
