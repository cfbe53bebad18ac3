package handler

import (
	"net/http"
	"strconv"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type InventoryHandler struct {
	inventoryService service.InventoryService
}

// NewInventoryHandler sets up the routing dependencies for stock endpoints
func NewInventoryHandler(inventoryService service.InventoryService) *InventoryHandler {
	return &InventoryHandler{inventoryService: inventoryService}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *InventoryHandler) RegisterRoutes(router *gin.RouterGroup) {
	items := router.Group("/items")
	{
		items.GET("", middleware.RequirePermission("stock.read"), h.ListItems)
		items.POST("", middleware.RequirePermission("stock.write"), h.CreateItem)
		items.PUT("/:id", middleware.RequirePermission("stock.write"), h.UpdateItem)
		items.DELETE("/:id", middleware.RequirePermission("stock.write"), h.DeleteItem)
		items.POST("/:id/adjust", middleware.RequirePermission("stock.adjust"), h.AdjustItemStock)
	}

	supplies := router.Group("/supplies")
	{
		supplies.GET("", middleware.RequirePermission("stock.read"), h.ListSupplies)
		supplies.POST("", middleware.RequirePermission("stock.write"), h.CreateSupply)
		supplies.PUT("/:id", middleware.RequirePermission("stock.write"), h.UpdateSupply)
		supplies.DELETE("/:id", middleware.RequirePermission("stock.write"), h.DeleteSupply)
		supplies.POST("/:id/adjust", middleware.RequirePermission("stock.adjust"), h.AdjustSupplyStock)
	}

	router.GET("/stock-movements", middleware.RequirePermission("stock.read"), h.ListMovements)
}

// ListItems handles GET /items with search and pagination
// @Summary      List durable items
// @Description  Retrieves a paginated list of durable asset items, optionally filtered by a search term
// @Tags         stock
// @Produce      json
// @Security     BearerAuth
// @Param        search  query     string  false  "Search by code or name"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Success      200     {object}  response.Response{data=object}
// @Failure      500     {object}  response.Response
// @Router       /items [get]
func (h *InventoryHandler) ListItems(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	items, total, err := h.inventoryService.ListItems(c.Request.Context(), page, limit, c.Query("search"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to fetch items"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"items": items,
		"total": total,
		"page":  page,
		"limit": limit,
	}))
}

// CreateItem handles POST /items
// @Summary      Create a durable item
// @Tags         stock
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateStockEntityRequest  true  "Item Payload"
// @Success      201      {object}  response.Response{data=service.StockEntityResponse}
// @Failure      400      {object}  response.Response
// @Router       /items [post]
func (h *InventoryHandler) CreateItem(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var req service.CreateStockEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	item, err := h.inventoryService.CreateItem(c.Request.Context(), actor, req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, item))
}

// UpdateItem handles PUT /items/:id. Quantity is never updated here; use the
// adjust endpoint so every change leaves a movement record.
// @Summary      Update a durable item
// @Tags         stock
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                            true  "Item ID"
// @Param        payload  body      service.UpdateStockEntityRequest  true  "Item Payload"
// @Success      200      {object}  response.Response{data=service.StockEntityResponse}
// @Failure      400      {object}  response.Response
// @Router       /items/{id} [put]
func (h *InventoryHandler) UpdateItem(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var req service.UpdateStockEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	item, err := h.inventoryService.UpdateItem(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// DeleteItem handles DELETE /items/:id
// @Summary      Delete a durable item
// @Tags         stock
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Item ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /items/{id} [delete]
func (h *InventoryHandler) DeleteItem(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	if err := h.inventoryService.DeleteItem(c.Request.Context(), actor, c.Param("id")); err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Item deleted successfully"))
}

// AdjustItemStock handles POST /items/:id/adjust
// @Summary      Adjust item stock
// @Description  Applies a signed quantity delta, records a stock movement, and may raise a reorder alert
// @Tags         stock
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                      true  "Item ID"
// @Param        payload  body      service.AdjustStockRequest  true  "Adjustment Payload"
// @Success      200      {object}  response.Response{data=service.StockEntityResponse}
// @Failure      400      {object}  response.Response
// @Router       /items/{id}/adjust [post]
func (h *InventoryHandler) AdjustItemStock(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var req service.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	item, err := h.inventoryService.AdjustItemStock(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// ListSupplies handles GET /supplies with search and pagination
// @Summary      List office supplies
// @Tags         stock
// @Produce      json
// @Security     BearerAuth
// @Param        search  query     string  false  "Search by code or name"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Success      200     {object}  response.Response{data=object}
// @Failure      500     {object}  response.Response
// @Router       /supplies [get]
func (h *InventoryHandler) ListSupplies(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	supplies, total, err := h.inventoryService.ListSupplies(c.Request.Context(), page, limit, c.Query("search"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to fetch supplies"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"supplies": supplies,
		"total":    total,
		"page":     page,
		"limit":    limit,
	}))
}

// CreateSupply handles POST /supplies
// @Summary      Create an office supply
// @Tags         stock
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateStockEntityRequest  true  "Supply Payload"
// @Success      201      {object}  response.Response{data=service.StockEntityResponse}
// @Failure      400      {object}  response.Response
// @Router       /supplies [post]
func (h *InventoryHandler) CreateSupply(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var req service.CreateStockEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	supply, err := h.inventoryService.CreateSupply(c.Request.Context(), actor, req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, supply))
}

// UpdateSupply handles PUT /supplies/:id
// @Summary      Update an office supply
// @Tags         stock
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                            true  "Supply ID"
// @Param        payload  body      service.UpdateStockEntityRequest  true  "Supply Payload"
// @Success      200      {object}  response.Response{data=service.StockEntityResponse}
// @Failure      400      {object}  response.Response
// @Router       /supplies/{id} [put]
func (h *InventoryHandler) UpdateSupply(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var req service.UpdateStockEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	supply, err := h.inventoryService.UpdateSupply(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, supply))
}

// DeleteSupply handles DELETE /supplies/:id
// @Summary      Delete an office supply
// @Tags         stock
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Supply ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /supplies/{id} [delete]
func (h *InventoryHandler) DeleteSupply(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	if err := h.inventoryService.DeleteSupply(c.Request.Context(), actor, c.Param("id")); err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Supply deleted successfully"))
}

// AdjustSupplyStock handles POST /supplies/:id/adjust
// @Summary      Adjust supply stock
// @Tags         stock
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                      true  "Supply ID"
// @Param        payload  body      service.AdjustStockRequest  true  "Adjustment Payload"
// @Success      200      {object}  response.Response{data=service.StockEntityResponse}
// @Failure      400      {object}  response.Response
// @Router       /supplies/{id}/adjust [post]
func (h *InventoryHandler) AdjustSupplyStock(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var req service.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	supply, err := h.inventoryService.AdjustSupplyStock(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, supply))
}

// ListMovements handles GET /stock-movements filtered by entity
// @Summary      List stock movements
// @Description  Retrieves the movement history for an item or supply
// @Tags         stock
// @Produce      json
// @Security     BearerAuth
// @Param        kind       query     string  true   "Entity kind: ITEM or SUPPLY"
// @Param        entity_id  query     string  true   "Entity UUID"
// @Param        page       query     int     false  "Page number (default 1)"
// @Param        limit      query     int     false  "Number of items per page (default 20)"
// @Success      200        {object}  response.Response{data=object}
// @Failure      400        {object}  response.Response
// @Router       /stock-movements [get]
func (h *InventoryHandler) ListMovements(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	movements, total, err := h.inventoryService.ListMovements(
		c.Request.Context(), c.Query("kind"), c.Query("entity_id"), page, limit)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"movements": movements,
		"total":     total,
		"page":      page,
		"limit":     limit,
	}))
}
