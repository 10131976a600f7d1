package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskr/internal/handler"
	"github.com/BuzzLyutic/taskr/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web application",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()
			return app.serve(ctx)
		},
	}
	cmd.Flags().String("port", "", "Port to listen on")
	_ = app.v.BindPFlag("port", cmd.Flags().Lookup("port"))
	return cmd
}

func (app *App) serve(ctx context.Context) error {
	cfg, logger := app.cfg, app.logger

	secret := cfg.SessionSecret
	if secret == "" {
		if cfg.Production() {
			return errors.New("session_secret is required in production")
		}
		secret = uuid.NewString()
		logger.Warn("session_secret not set, cookies will not survive a restart")
	}

	be, err := app.openBackend(app)
	if err != nil {
		return err
	}
	defer be.close() // Запланированное закрытие соединения

	registry := handler.NewRegistry(handler.RegistryOptions{
		NewClient:   be.newClient,
		Scope:       scope(cfg),
		RecoveryURL: cfg.RecoveryURL(),
		IdleTTL:     cfg.ClientTTL,
		Logger:      logger,
	})
	h := handler.New(handler.Options{
		Registry:      registry,
		SessionSecret: []byte(secret),
		SessionTTL:    cfg.ClientTTL,
		SecureCookies: cfg.Production(),
		Logger:        logger,
	})

	// Фоновая очистка состояний браузеров и истекших сессий
	janitor := worker.NewJanitor(logger, cfg.JanitorInterval)
	janitor.Register("browsers", registry)
	for name, e := range be.evicters {
		janitor.Register(name, e)
	}
	janitor.Start(ctx)
	defer janitor.Stop()

	srv := http.Server{ // Создаем сервер
		Addr:         ":" + cfg.Port,
		Handler:      h.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { // Запуск сервера и обработка ошибок
		logger.Info("Server started", zap.String("addr", srv.Addr), zap.String("backend", cfg.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	// Graceful shutdown
	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("Server stopped successfully!")
	return nil
}
