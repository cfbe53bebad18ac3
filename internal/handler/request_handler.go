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

type RequestHandler struct {
	requestService service.ItemRequestService
}

// NewRequestHandler sets up the routing dependencies for asset request endpoints
func NewRequestHandler(requestService service.ItemRequestService) *RequestHandler {
	return &RequestHandler{requestService: requestService}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *RequestHandler) RegisterRoutes(router *gin.RouterGroup) {
	requests := router.Group("/item-requests")
	{
		requests.GET("", middleware.RequirePermission("requests.read"), h.ListRequests)
		requests.GET("/:id", middleware.RequirePermission("requests.read"), h.GetRequest)
		requests.POST("", middleware.RequirePermission("requests.create"), h.CreateRequest)
		// Approval level is resolved from the request state, so the route only
		// requires authentication; the service enforces the level role.
		requests.POST("/:id/approve", middleware.RequirePermission(), h.Approve)
		requests.POST("/:id/reject", middleware.RequirePermission(), h.Reject)
		requests.POST("/:id/complete", middleware.RequirePermission("requests.complete"), h.Complete)
	}
}

// CreateRequest handles POST /item-requests
// @Summary      Submit an asset request
// @Description  Creates an asset request with its lines and routes it into the approval chain
// @Tags         item-requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateItemRequestDTO  true  "Request Payload"
// @Success      201      {object}  response.Response{data=service.ItemRequestResponse}
// @Failure      400      {object}  response.Response
// @Router       /item-requests [post]
func (h *RequestHandler) CreateRequest(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var req service.CreateItemRequestDTO
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

// ListRequests handles GET /item-requests with status and requester filters
// @Summary      List asset requests
// @Description  Retrieves a paginated list of asset requests, optionally filtered by status or requester
// @Tags         item-requests
// @Produce      json
// @Security     BearerAuth
// @Param        status        query     string  false  "Filter by status"
// @Param        requester_id  query     string  false  "Filter by requester UUID"
// @Param        page          query     int     false  "Page number (default 1)"
// @Param        limit         query     int     false  "Number of items per page (default 20)"
// @Success      200           {object}  response.Response{data=object}
// @Failure      500           {object}  response.Response
// @Router       /item-requests [get]
func (h *RequestHandler) ListRequests(c *gin.Context) {
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

// GetRequest handles GET /item-requests/:id
// @Summary      Get asset request by ID
// @Description  Fetch a single asset request with its lines and approval trail
// @Tags         item-requests
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=service.ItemRequestResponse}
// @Failure      404  {object}  response.Response
// @Router       /item-requests/{id} [get]
func (h *RequestHandler) GetRequest(c *gin.Context) {
	result, err := h.requestService.GetRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// Approve handles POST /item-requests/:id/approve
// @Summary      Approve an asset request
// @Description  Records the current pending level's approval and advances the request
// @Tags         item-requests
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=service.ItemRequestResponse}
// @Failure      403  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /item-requests/{id}/approve [post]
func (h *RequestHandler) Approve(c *gin.Context) {
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

// Reject handles POST /item-requests/:id/reject
// @Summary      Reject an asset request
// @Description  Rejects a pending request with a mandatory reason. Terminal.
// @Tags         item-requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                    true  "Request ID"
// @Param        payload  body      service.RejectRequestDTO  true  "Rejection Payload"
// @Success      200      {object}  response.Response{data=service.ItemRequestResponse}
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /item-requests/{id}/reject [post]
func (h *RequestHandler) Reject(c *gin.Context) {
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

// Complete handles POST /item-requests/:id/complete
// @Summary      Fulfill an approved asset request
// @Description  Issues stock for an approved request, recording movements and fulfilled quantities
// @Tags         item-requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                      true   "Request ID"
// @Param        payload  body      service.CompleteRequestDTO  false  "Fulfillment Payload"
// @Success      200      {object}  response.Response{data=service.ItemRequestResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /item-requests/{id}/complete [post]
func (h *RequestHandler) Complete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	// Body is optional: omitting lines fulfills every line at its approved quantity
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
