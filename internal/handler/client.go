package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ioc-radar/backend/internal/model"
	"github.com/ioc-radar/backend/internal/service"
)

// clientService - *service.ClientService
type clientService interface {
	List(ctx context.Context) ([]model.ClientProfile, error)
	Get(ctx context.Context, id string) (*model.ClientProfile, error)
	Create(ctx context.Context, req model.CreateClientRequest) (*model.ClientProfile, error)
	Update(ctx context.Context, id string, req model.UpdateClientRequest) (*model.ClientProfile, error)
	SetActive(ctx context.Context, req model.SetClientActiveRequest) (*model.ClientProfile, error)
	Delete(ctx context.Context, id string) (int64, error)
	GetProfile(ctx context.Context, userID int64) (*model.ClientProfile, error)
	UpdateProfile(ctx context.Context, userID int64, req model.UpdateClientRequest) (*model.ClientProfile, error)
}

// ClientHandler - 관리자 고객 관리와 본인 프로필
type ClientHandler struct {
	svc clientService
}

func NewClientHandler(svc clientService) *ClientHandler {
	return &ClientHandler{svc: svc}
}

// ListClients godoc
// @Summary List client profiles
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.ClientProfile
// @Failure 403 {object} model.ErrorResponse
// @Router /api/v1/admin/clients [get]
func (h *ClientHandler) ListClients(c *gin.Context) {
	clients, err := h.svc.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, clients)
}

// GetClient godoc
// @Summary Get a client profile
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Client profile ID"
// @Success 200 {object} model.ClientProfile
// @Failure 403,404 {object} model.ErrorResponse
// @Router /api/v1/admin/clients/{id} [get]
func (h *ClientHandler) GetClient(c *gin.Context) {
	p, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// CreateClient godoc
// @Summary Create a client profile
// @Description company_name and contact_name are required. subscription_plan defaults to basic, is_active to true.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.CreateClientRequest true "Client profile"
// @Success 201 {object} model.ClientProfile
// @Failure 400,403,409 {object} model.ErrorResponse
// @Router /api/v1/admin/clients [post]
func (h *ClientHandler) CreateClient(c *gin.Context) {
	var req model.CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	p, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// UpdateClient godoc
// @Summary Update a client profile
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Client profile ID"
// @Param request body model.UpdateClientRequest true "Client profile"
// @Success 200 {object} model.ClientProfile
// @Failure 400,403,404 {object} model.ErrorResponse
// @Router /api/v1/admin/clients/{id} [put]
func (h *ClientHandler) UpdateClient(c *gin.Context) {
	var req model.UpdateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	p, err := h.svc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// SetClientActive godoc
// @Summary Activate or deactivate a client
// @Description Inactive clients keep their data but receive no notifications.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.SetClientActiveRequest true "user_id and is_active"
// @Success 200 {object} model.ClientProfile
// @Failure 400,403,404 {object} model.ErrorResponse
// @Router /api/v1/admin/clients [put]
func (h *ClientHandler) SetClientActive(c *gin.Context) {
	var req model.SetClientActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	p, err := h.svc.SetActive(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// DeleteClient godoc
// @Summary Delete a client profile
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Client profile ID"
// @Success 200 {object} model.DeleteClientResponse
// @Failure 403,404 {object} model.ErrorResponse
// @Router /api/v1/admin/clients/{id} [delete]
func (h *ClientHandler) DeleteClient(c *gin.Context) {
	userID, err := h.svc.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.DeleteClientResponse{Message: "client deleted", UserID: userID})
}

// GetProfile godoc
// @Summary Get my client profile
// @Tags profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.ClientProfile
// @Failure 401,404 {object} model.ErrorResponse
// @Router /api/v1/profile [get]
func (h *ClientHandler) GetProfile(c *gin.Context) {
	user := GetAuthUser(c)
	if user == nil {
		writeError(c, service.ErrUnauthorized)
		return
	}
	p, err := h.svc.GetProfile(c.Request.Context(), user.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// UpdateProfile godoc
// @Summary Update my client profile
// @Description subscription_plan is ignored; only admins change plans.
// @Tags profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.UpdateClientRequest true "Profile"
// @Success 200 {object} model.ClientProfile
// @Failure 400,401,404 {object} model.ErrorResponse
// @Router /api/v1/profile [put]
func (h *ClientHandler) UpdateProfile(c *gin.Context) {
	user := GetAuthUser(c)
	if user == nil {
		writeError(c, service.ErrUnauthorized)
		return
	}
	var req model.UpdateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	p, err := h.svc.UpdateProfile(c.Request.Context(), user.ID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
