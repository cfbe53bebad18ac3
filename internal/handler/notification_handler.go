package handler

import (
	"net/http"
	"strconv"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notificationService service.NotificationService
}

// NewNotificationHandler sets up the routing dependencies for notification endpoints
func NewNotificationHandler(notificationService service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *NotificationHandler) RegisterRoutes(router *gin.RouterGroup) {
	notifications := router.Group("/notifications")
	{
		// Preferences are self-service, any authenticated user
		notifications.GET("/preferences", middleware.RequirePermission(), h.GetPreference)
		notifications.PUT("/preferences", middleware.RequirePermission(), h.UpdatePreference)

		notifications.GET("/logs", middleware.RequirePermission("notifications.read"), h.ListLogs)
		notifications.GET("/logs/me", middleware.RequirePermission(), h.ListMyLogs)
	}
}

// GetPreference handles GET /notifications/preferences for the current user
// @Summary      Get notification preferences
// @Description  Returns the caller's notification preferences, creating defaults if none exist
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=model.NotificationPreference}
// @Failure      401  {object}  response.Response
// @Router       /notifications/preferences [get]
func (h *NotificationHandler) GetPreference(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	pref, err := h.notificationService.GetPreference(c.Request.Context(), actor.ID.String())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to fetch preferences"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, pref))
}

// UpdatePreference handles PUT /notifications/preferences for the current user
// @Summary      Update notification preferences
// @Description  Updates the caller's master switch, per-category toggles, and quiet hours
// @Tags         notifications
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.UpdatePreferenceRequest  true  "Preference Payload"
// @Success      200      {object}  response.Response{data=model.NotificationPreference}
// @Failure      400      {object}  response.Response
// @Router       /notifications/preferences [put]
func (h *NotificationHandler) UpdatePreference(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var req service.UpdatePreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	pref, err := h.notificationService.UpdatePreference(c.Request.Context(), actor.ID.String(), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, pref))
}

// ListLogs handles GET /notifications/logs for administrators
// @Summary      List delivery logs
// @Description  Retrieves a paginated list of notification delivery attempts, optionally filtered by status
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "Filter by delivery status (SENT or FAILED)"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Success      200     {object}  response.Response{data=object}
// @Failure      500     {object}  response.Response
// @Router       /notifications/logs [get]
func (h *NotificationHandler) ListLogs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	logs, total, err := h.notificationService.ListLogs(c.Request.Context(), c.Query("status"), page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to fetch delivery logs"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"logs":  logs,
		"total": total,
		"page":  page,
		"limit": limit,
	}))
}

// ListMyLogs handles GET /notifications/logs/me for the current user
// @Summary      List own delivery logs
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Failure      500    {object}  response.Response
// @Router       /notifications/logs/me [get]
func (h *NotificationHandler) ListMyLogs(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	logs, total, err := h.notificationService.ListLogsByUser(c.Request.Context(), actor.ID.String(), page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to fetch delivery logs"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"logs":  logs,
		"total": total,
		"page":  page,
		"limit": limit,
	}))
}
