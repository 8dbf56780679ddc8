package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ioc-radar/backend/internal/model"
	"github.com/ioc-radar/backend/internal/service"
)

// iocService - *service.IOCService
type iocService interface {
	List(ctx context.Context, userID int64) ([]model.IOC, error)
	Create(ctx context.Context, userID int64, req model.IOCRequest) (*model.IOC, error)
	Update(ctx context.Context, userID int64, id string, req model.IOCRequest) (*model.IOC, error)
	Delete(ctx context.Context, userID int64, id string) error
}

// IOCHandler - 로그인한 고객 본인의 IOC만 다룸
type IOCHandler struct {
	svc iocService
}

func NewIOCHandler(svc iocService) *IOCHandler {
	return &IOCHandler{svc: svc}
}

// ListIOCs godoc
// @Summary List my IOCs
// @Tags iocs
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.IOC
// @Failure 401 {object} model.ErrorResponse
// @Router /api/v1/iocs [get]
func (h *IOCHandler) ListIOCs(c *gin.Context) {
	user := GetAuthUser(c)
	if user == nil {
		writeError(c, service.ErrUnauthorized)
		return
	}
	iocs, err := h.svc.List(c.Request.Context(), user.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, iocs)
}

// CreateIOC godoc
// @Summary Register an IOC
// @Description At least one of ip, server, os, security_solutions is required. Comma or space separated values become separate keywords.
// @Tags iocs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.IOCRequest true "IOC"
// @Success 201 {object} model.IOC
// @Failure 400 {object} model.ErrorResponse
// @Router /api/v1/iocs [post]
func (h *IOCHandler) CreateIOC(c *gin.Context) {
	user := GetAuthUser(c)
	if user == nil {
		writeError(c, service.ErrUnauthorized)
		return
	}
	var req model.IOCRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	ioc, err := h.svc.Create(c.Request.Context(), user.ID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ioc)
}

// UpdateIOC godoc
// @Summary Update an IOC
// @Tags iocs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "IOC ID"
// @Param request body model.IOCRequest true "IOC"
// @Success 200 {object} model.IOC
// @Failure 400,404 {object} model.ErrorResponse
// @Router /api/v1/iocs/{id} [put]
func (h *IOCHandler) UpdateIOC(c *gin.Context) {
	user := GetAuthUser(c)
	if user == nil {
		writeError(c, service.ErrUnauthorized)
		return
	}
	var req model.IOCRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	ioc, err := h.svc.Update(c.Request.Context(), user.ID, c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ioc)
}

// DeleteIOC godoc
// @Summary Delete an IOC
// @Tags iocs
// @Produce json
// @Security BearerAuth
// @Param id path string true "IOC ID"
// @Success 200 {object} model.MessageResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /api/v1/iocs/{id} [delete]
func (h *IOCHandler) DeleteIOC(c *gin.Context) {
	user := GetAuthUser(c)
	if user == nil {
		writeError(c, service.ErrUnauthorized)
		return
	}
	if err := h.svc.Delete(c.Request.Context(), user.ID, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.MessageResponse{Message: "IOC deleted"})
}
