package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BuzzLyutic/taskr/internal/model"
	"github.com/BuzzLyutic/taskr/internal/remote"
)

var (
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("conflict")
	ErrorInvalid  = errors.New("invalid")
)

// Scope selects the documents of one collection visible to one owner.
type Scope struct {
	DatabaseID   string
	CollectionID string
	OwnerID      string
}

const taskColumns = `id, user_id, username, title, tag, completed, serial, created_at, updated_at`

type TaskRepo struct { // Репозиторий для работы непосредственно с БД
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo { // Конструктор
	return &TaskRepo{
		pool: pool,
	}
}

func scanTask(row pgx.Row) (model.Task, error) {
	var t model.Task
	err := row.Scan(&t.ID, &t.UserID, &t.Username, &t.Title, &t.Tag, &t.Completed, &t.Serial, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (r *TaskRepo) Create(ctx context.Context, scope Scope, id string, d model.TaskData) (model.Task, error) {
	t, err := scanTask(r.pool.QueryRow(ctx, `
		INSERT INTO tasks (id, database_id, collection_id, owner_id, user_id, username, title, tag, completed, serial)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+taskColumns,
		id, scope.DatabaseID, scope.CollectionID, scope.OwnerID, d.UserID, d.Username, d.Title, d.Tag, d.Completed, d.Serial,
	))
	return t, mapError(err)
}

func (r *TaskRepo) Get(ctx context.Context, scope Scope, id string) (model.Task, error) {
	t, err := scanTask(r.pool.QueryRow(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE id = $1 AND database_id = $2 AND collection_id = $3 AND owner_id = $4
	`, id, scope.DatabaseID, scope.CollectionID, scope.OwnerID))
	return t, mapError(err)
}

// List returns the documents of the scope matching the queries and the total
// number of matches ignoring the limit.
func (r *TaskRepo) List(ctx context.Context, scope Scope, queries []remote.Query) ([]model.Task, int, error) {
	lq, err := buildListQuery(3, queries)
	if err != nil {
		return nil, 0, err
	}

	where := append([]string{"database_id = $1", "collection_id = $2", "owner_id = $3"}, lq.where...)
	args := append([]any{scope.DatabaseID, scope.CollectionID, scope.OwnerID}, lq.args...)
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM tasks WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, mapError(err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM tasks
		WHERE %s
		ORDER BY %s
		LIMIT %d OFFSET %d
	`, taskColumns, cond, lq.orderBy(), lq.limit, lq.offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, mapError(err)
	}
	defer rows.Close()

	tasks := make([]model.Task, 0, max(0, min(lq.limit, total-lq.offset)))
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, err
		}
		tasks = append(tasks, t)
	}
	return tasks, total, rows.Err()
}

func (r *TaskRepo) Update(ctx context.Context, scope Scope, id string, p model.TaskPatch) (model.Task, error) {
	t, err := scanTask(r.pool.QueryRow(ctx, `
		UPDATE tasks
		SET title = COALESCE($5, title),
		    tag = COALESCE($6, tag),
		    completed = COALESCE($7, completed),
		    updated_at = now()
		WHERE id = $1 AND database_id = $2 AND collection_id = $3 AND owner_id = $4
		RETURNING `+taskColumns,
		id, scope.DatabaseID, scope.CollectionID, scope.OwnerID, p.Title, p.Tag, p.Completed,
	))
	return t, mapError(err)
}

func (r *TaskRepo) Delete(ctx context.Context, scope Scope, id string) error {
	cmd, err := r.pool.Exec(ctx, `
		DELETE FROM tasks
		WHERE id = $1 AND database_id = $2 AND collection_id = $3 AND owner_id = $4
	`, id, scope.DatabaseID, scope.CollectionID, scope.OwnerID)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrorNotFound
	}
	return nil
}

// mapError converts driver errors to the package sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrorNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return ErrorConflict
		case "23514", "23503": // check_violation, foreign_key_violation
			return fmt.Errorf("%w: %s", ErrorInvalid, pgErr.Message)
		}
	}
	return err
}
