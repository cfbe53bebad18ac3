package handler

import (
	"net/http"
	"strconv"

	"backend/internal/middleware"
	"backend/internal/model"
	"backend/internal/service"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type SupplyRequestHandler struct {
	requestService service.SupplyRequestService
}

// NewSupplyRequestHandler sets up the routing dependencies for office-supply request endpoints
func NewSupplyRequestHandler(requestService service.SupplyRequestService) *SupplyRequestHandler {
	return &SupplyRequestHandler{requestService: requestService}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *SupplyRequestHandler) RegisterRoutes(router *gin.RouterGroup) {
	requests := router.Group("/supply-requests")
	{
		requests.GET("", middleware.RequirePermission("requests.read"), h.ListRequests)
		requests.GET("/:id", middleware.RequirePermission("requests.read"), h.GetRequest)
		requests.POST("", middleware.RequirePermission("requests.create"), h.CreateRequest)
		requests.POST("/:id/approve", middleware.RequirePermission("requests.approve_level_1"), h.Approve)
		requests.POST("/:id/reject", middleware.RequirePermission("requests.approve_level_1"), h.Reject)
		requests.POST("/:id/complete", middleware.RequirePermission("requests.complete"), h.Complete)
	}
}

// CreateRequest handles POST /supply-requests
// @Summary      Submit an office-supply request
// @Description  Creates an office-supply request with its lines. Single approval gate.
// @Tags         supply-requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateSupplyRequestDTO  true  "Request Payload"
// @Success      201      {object}  response.Response{data=service.SupplyRequestResponse}
// @Failure      400      {object}  response.Response
// @Router       /supply-requests [post]
func (h *SupplyRequestHandler) CreateRequest(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var req service.CreateSupplyRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.requestService.CreateRequest(c.Request.Context(), actor, req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// ListRequests handles GET /supply-requests with status and requester filters
// @Summary      List office-supply requests
// @Description  Retrieves a paginated list of office-supply requests
// @Tags         supply-requests
// @Produce      json
// @Security     BearerAuth
// @Param        status        query     string  false  "Filter by status"
// @Param        requester_id  query     string  false  "Filter by requester UUID"
// @Param        page          query     int     false  "Page number (default 1)"
// @Param        limit         query     int     false  "Number of items per page (default 20)"
// @Success      200           {object}  response.Response{data=object}
// @Failure      500           {object}  response.Response
// @Router       /supply-requests [get]
func (h *SupplyRequestHandler) ListRequests(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	filter := service.RequestFilter{
		Status:      c.Query("status"),
		RequesterID: c.Query("requester_id"),
		Page:        page,
		Limit:       limit,
	}

	// Staff only ever see their own requests
	if c.GetString("userRole") == model.RoleStaff {
		filter.RequesterID = c.GetString("userID")
	}

	requests, total, err := h.requestService.ListRequests(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to fetch requests"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"requests": requests,
		"total":    total,
		"page":     page,
		"limit":    limit,
	}))
}

// GetRequest handles GET /supply-requests/:id
// @Summary      Get office-supply request by ID
// @Tags         supply-requests
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=service.SupplyRequestResponse}
// @Failure      404  {object}  response.Response
// @Router       /supply-requests/{id} [get]
func (h *SupplyRequestHandler) GetRequest(c *gin.Context) {
	result, err := h.requestService.GetRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// Approve handles POST /supply-requests/:id/approve
// @Summary      Approve an office-supply request
// @Tags         supply-requests
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=service.SupplyRequestResponse}
// @Failure      403  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /supply-requests/{id}/approve [post]
func (h *SupplyRequestHandler) Approve(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	result, err := h.requestService.Approve(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// Reject handles POST /supply-requests/:id/reject
// @Summary      Reject an office-supply request
// @Tags         supply-requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                    true  "Request ID"
// @Param        payload  body      service.RejectRequestDTO  true  "Rejection Payload"
// @Success      200      {object}  response.Response{data=service.SupplyRequestResponse}
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /supply-requests/{id}/reject [post]
func (h *SupplyRequestHandler) Reject(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var req service.RejectRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Rejection reason is required"))
		return
	}

	result, err := h.requestService.Reject(c.Request.Context(), actor, c.Param("id"), req.Reason)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// Complete handles POST /supply-requests/:id/complete
// @Summary      Fulfill an approved office-supply request
// @Tags         supply-requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                      true   "Request ID"
// @Param        payload  body      service.CompleteRequestDTO  false  "Fulfillment Payload"
// @Success      200      {object}  response.Response{data=service.SupplyRequestResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /supply-requests/{id}/complete [post]
func (h *SupplyRequestHandler) Complete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var req service.CompleteRequestDTO
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
			return
		}
	}

	result, err := h.requestService.Complete(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
