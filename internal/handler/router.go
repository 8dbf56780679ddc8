package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/ioc-radar/backend/internal/metrics"
)

// Handlers - 라우터에 연결할 핸들러 묶음
type Handlers struct {
	Auth       *AuthHandler
	Alerts     *AlertHandler
	IOCs       *IOCHandler
	Dashboard  *DashboardHandler
	Clients    *ClientHandler
	Webhooks   *WebhookSettingsHandler
	Cache      *CacheHandler
	Health     pinger
	Authn      authenticator
	CORSOrigin []string
}

// NewRouter - 전체 라우트 등록
// /api/v1 아래는 auth의 공개 엔드포인트를 제외하고 Bearer 토큰 필요
func NewRouter(h Handlers, logger *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(logger), CORSMiddleware(h.CORSOrigin, true))

	router.GET("/", Root)
	router.GET("/ping", Ping)
	router.GET("/healthz", Healthz(h.Health))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/openapi.json", OpenAPIDoc)

	api := router.Group("/api/v1")

	auth := api.Group("/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.POST("/logout", h.Auth.Logout)
	auth.GET("/config", h.Auth.Config)

	protected := api.Group("")
	protected.Use(AuthMiddleware(h.Authn))
	protected.GET("/auth/me", h.Auth.Me)

	protected.GET("/alerts", h.Alerts.ListAlerts)
	protected.GET("/alerts/stats", h.Alerts.GetAlertStats)
	protected.GET("/alerts/:id", h.Alerts.GetAlert)
	protected.POST("/alerts", RequireAdmin(), h.Alerts.CreateAlert)

	protected.GET("/iocs", h.IOCs.ListIOCs)
	protected.POST("/iocs", h.IOCs.CreateIOC)
	protected.PUT("/iocs/:id", h.IOCs.UpdateIOC)
	protected.DELETE("/iocs/:id", h.IOCs.DeleteIOC)

	protected.GET("/dashboard", h.Dashboard.GetDashboard)

	protected.GET("/profile", h.Clients.GetProfile)
	protected.PUT("/profile", h.Clients.UpdateProfile)

	admin := protected.Group("/admin")
	admin.Use(RequireAdmin())
	admin.GET("/clients", h.Clients.ListClients)
	admin.POST("/clients", h.Clients.CreateClient)
	admin.PUT("/clients", h.Clients.SetClientActive)
	admin.GET("/clients/:id", h.Clients.GetClient)
	admin.PUT("/clients/:id", h.Clients.UpdateClient)
	admin.DELETE("/clients/:id", h.Clients.DeleteClient)
	admin.POST("/cache/invalidate", h.Cache.InvalidateCache)

	settings := protected.Group("/settings")
	settings.Use(RequireAdmin())
	settings.GET("/webhooks", h.Webhooks.ListWebhookConfigs)
	settings.POST("/webhooks", h.Webhooks.CreateWebhookConfig)
	settings.GET("/webhooks/:id", h.Webhooks.GetWebhookConfig)
	settings.PUT("/webhooks/:id", h.Webhooks.UpdateWebhookConfig)
	settings.DELETE("/webhooks/:id", h.Webhooks.DeleteWebhookConfig)
	settings.POST("/webhooks/:id/test", h.Webhooks.TestWebhookConfig)

	return router
}
