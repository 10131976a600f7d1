package repo

import (
	"context"
	"time"

	"github.com/BuzzLyutic/taskr/internal/model"
	"github.com/BuzzLyutic/taskr/internal/remote"
)

// TaskRepository определяет интерфейс для работы с задачами
type TaskRepository interface {
	Create(ctx context.Context, scope Scope, id string, d model.TaskData) (model.Task, error)
	Get(ctx context.Context, scope Scope, id string) (model.Task, error)
	List(ctx context.Context, scope Scope, queries []remote.Query) ([]model.Task, int, error)
	Update(ctx context.Context, scope Scope, id string, p model.TaskPatch) (model.Task, error)
	Delete(ctx context.Context, scope Scope, id string) error
}

// AccountRepository хранит пользователей, сессии и восстановление пароля
type AccountRepository interface {
	CreateUser(ctx context.Context, id, name, email string, cred Credentials) (model.User, error)
	UserByID(ctx context.Context, id string) (model.User, error)
	UserByEmail(ctx context.Context, email string) (model.User, Credentials, error)
	CreateSession(ctx context.Context, s model.Session, secretHash string) (model.Session, error)
	SessionUser(ctx context.Context, secretHash string, now time.Time) (model.User, error)
	DeleteSession(ctx context.Context, secretHash string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
	CreateRecovery(ctx context.Context, t model.Token, secretHash string) (model.Token, error)
	ResetPassword(ctx context.Context, userID, secretHash string, now time.Time, cred Credentials) (model.Token, error)
}

var (
	_ TaskRepository    = (*TaskRepo)(nil)
	_ AccountRepository = (*AccountRepo)(nil)
)
