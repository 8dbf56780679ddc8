package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ioc-radar/backend/internal/model"
)

// dashboardService - *service.DashboardService
type dashboardService interface {
	Personalized(ctx context.Context, user *model.AuthUser, q model.DashboardQuery) (*model.DashboardResponse, error)
}

type DashboardHandler struct {
	svc dashboardService
}

func NewDashboardHandler(svc dashboardService) *DashboardHandler {
	return &DashboardHandler{svc: svc}
}

// GetDashboard godoc
// @Summary Personalized dashboard
// @Description Alerts ranked by relevance to the caller's IOCs and industry. degraded lists sources that failed and were treated as empty.
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Param range query string false "Date range" Enums(today, week, month, year, all)
// @Param page query int false "Page (1-based)"
// @Param pageSize query int false "Page size (max 100)"
// @Success 200 {object} model.DashboardResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/dashboard [get]
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	var q model.DashboardQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "invalid query")
		return
	}
	resp, err := h.svc.Personalized(c.Request.Context(), GetAuthUser(c), q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
