package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/ioc-radar/backend/internal/handler"
	"github.com/ioc-radar/backend/internal/relevance"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runServe(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	a, err := newApp(ctx, "api")
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.ensureSchema(ctx); err != nil {
		return err
	}

	svc, err := a.buildServices(ctx)
	if err != nil {
		return err
	}

	if a.cfg.Auth.AdminUsername != "" {
		if err := svc.auth.EnsureAdmin(ctx, a.cfg.Auth.AdminUsername, a.cfg.Auth.AdminPassword); err != nil {
			return err
		}
	}

	if a.cfg.Scoring.ProfilePath != "" && a.cfg.Scoring.WatchProfile {
		go func() {
			if err := relevance.WatchProfile(ctx, a.cfg.Scoring.ProfilePath, svc.profiles, a.log); err != nil {
				a.log.Error("scoring profile watcher stopped", "error", err)
			}
		}()
	}

	gin.SetMode(gin.ReleaseMode)
	router := handler.NewRouter(handler.Handlers{
		Auth:       handler.NewAuthHandler(svc.auth),
		Alerts:     handler.NewAlertHandler(svc.alerts),
		IOCs:       handler.NewIOCHandler(svc.iocs),
		Dashboard:  handler.NewDashboardHandler(svc.dashboard),
		Clients:    handler.NewClientHandler(svc.clients),
		Webhooks:   handler.NewWebhookSettingsHandler(svc.webhooks),
		Cache:      handler.NewCacheHandler(a.cache),
		Health:     a.pg,
		Authn:      svc.auth,
		CORSOrigin: a.cfg.Server.CORSAllowedOrigins,
	}, a.log)

	srv := &http.Server{
		Addr:    ":" + a.cfg.Server.Port,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.log.Info("shutting down http server", "timeout", a.cfg.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
