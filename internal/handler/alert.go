// 공유 알림 피드 핸들러
//
// 요청 흐름:
//  1. 쿼리 파라미터(industry, range, page, pageSize) 바인딩
//  2. AlertService가 캐시 확인 후 저장소 조회, 기간 필터, 페이지네이션
//  3. POST는 관리자만 가능하며 저장 후 관련 고객에게 비동기 알림

package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ioc-radar/backend/internal/model"
)

// alertService - *service.AlertService
type alertService interface {
	List(ctx context.Context, filter model.AlertFilter) (*model.AlertListResponse, error)
	Get(ctx context.Context, id string) (*model.Alert, error)
	Stats(ctx context.Context, rangeValue string) (*model.AlertStatsResponse, error)
	Ingest(ctx context.Context, req model.CreateAlertRequest) (*model.Alert, error)
}

// Alert 핸들러 구조체 정의
type AlertHandler struct {
	svc alertService
}

// Alert 핸들러 객체 생성
func NewAlertHandler(svc alertService) *AlertHandler {
	return &AlertHandler{svc: svc}
}

// ListAlerts godoc
// @Summary List shared cyber alerts
// @Description Newest first. industry filters by industry keywords, range is today|week|month|year|all.
// @Tags alerts
// @Produce json
// @Security BearerAuth
// @Param industry query string false "Industry (English or French name)"
// @Param range query string false "Date range" Enums(today, week, month, year, all)
// @Param page query int false "Page (1-based)"
// @Param pageSize query int false "Page size (max 100)"
// @Success 200 {object} model.AlertListResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/alerts [get]
func (h *AlertHandler) ListAlerts(c *gin.Context) {
	var filter model.AlertFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		badRequest(c, "invalid query")
		return
	}
	resp, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetAlertStats godoc
// @Summary Alert statistics
// @Description Severity buckets, per-day timeline and integer CVSS distribution.
// @Tags alerts
// @Produce json
// @Security BearerAuth
// @Param range query string false "Date range" Enums(today, week, month, year, all)
// @Success 200 {object} model.AlertStatsResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/alerts/stats [get]
func (h *AlertHandler) GetAlertStats(c *gin.Context) {
	resp, err := h.svc.Stats(c.Request.Context(), c.Query("range"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetAlert godoc
// @Summary Get an alert by ID
// @Tags alerts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Alert ID"
// @Success 200 {object} model.Alert
// @Failure 404 {object} model.ErrorResponse
// @Router /api/v1/alerts/{id} [get]
func (h *AlertHandler) GetAlert(c *gin.Context) {
	alert, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, alert)
}

// CreateAlert godoc
// @Summary Ingest a new alert
// @Description Admin only. id is optional (UUID) and makes retries idempotent.
// @Tags alerts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.CreateAlertRequest true "Alert"
// @Success 201 {object} model.Alert
// @Failure 400 {object} model.ErrorResponse
// @Failure 403 {object} model.ErrorResponse
// @Failure 409 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/alerts [post]
func (h *AlertHandler) CreateAlert(c *gin.Context) {
	var req model.CreateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	alert, err := h.svc.Ingest(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, alert)
}
