package cli

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskr/internal/config"
	"github.com/BuzzLyutic/taskr/internal/dashboard"
	"github.com/BuzzLyutic/taskr/internal/remote"
	"github.com/BuzzLyutic/taskr/internal/repo"
	"github.com/BuzzLyutic/taskr/internal/worker"
)

// backend hands out remote clients for the configured backend.
type backend struct {
	newClient func() remote.Client
	// evicters are periodic cleanups owned by the backend.
	evicters map[string]worker.Evicter
	close    func()
}

func openBackend(app *App) (*backend, error) {
	cfg := app.cfg
	switch cfg.Backend {
	case config.BackendPostgres:
		pool, err := connect(context.Background(), cfg.DatabaseURL, app.logger)
		if err != nil {
			return nil, err
		}
		b := repo.NewBackend(repo.NewAccountRepo(pool), repo.NewTaskRepo(pool), repo.NewLogMailer(app.logger), app.logger)
		return &backend{
			newClient: func() remote.Client { return b.NewClient() },
			evicters:  map[string]worker.Evicter{"sessions": b},
			close:     pool.Close,
		}, nil
	default:
		ac := remote.AppwriteConfig{
			Endpoint:  cfg.APIEndpoint,
			ProjectID: cfg.ProjectID,
			Timeout:   cfg.HTTPTimeout,
		}
		return &backend{
			newClient: func() remote.Client { return remote.NewAppwriteClient(ac, app.logger) },
			close:     func() {},
		}, nil
	}
}

// connect opens the pool and checks the database is reachable.
func connect(ctx context.Context, dsn string, logger *zap.Logger) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn) // Создаем новое соединение к БД
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil { // Пытаемся пингануть БД
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	logger.Info("Successfully connected to the Database!")
	return pool, nil
}

func scope(cfg config.Config) dashboard.Scope {
	return dashboard.Scope{DatabaseID: cfg.DatabaseID, CollectionID: cfg.CollectionID}
}
