package repo_test

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BuzzLyutic/taskr/internal/model"
	"github.com/BuzzLyutic/taskr/internal/remote"
	"github.com/BuzzLyutic/taskr/internal/repo"
	"github.com/BuzzLyutic/taskr/internal/testutil"
)

type captureMailer struct {
	link string
}

func (m *captureMailer) SendRecovery(ctx context.Context, user model.User, link string) error {
	m.link = link
	return nil
}

func TestPostgresBackend(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	ctx := context.Background()
	tasks := repo.NewTaskRepo(pool)
	mailer := &captureMailer{}
	backend := repo.NewBackend(repo.NewAccountRepo(pool), tasks, mailer, nil)

	signup := func(t *testing.T, email string) (*repo.Client, model.User) {
		t.Helper()
		c := backend.NewClient()
		u, err := c.Create(ctx, remote.UniqueID(), email, "password1", "janedoe")
		require.NoError(t, err)
		_, err = c.CreateEmailSession(ctx, email, "password1")
		require.NoError(t, err)
		return c, u
	}

	t.Run("account lifecycle", func(t *testing.T) {
		testutil.TruncateTables(t, pool)
		c, u := signup(t, "jane@example.com")

		_, err := backend.NewClient().Create(ctx, remote.UniqueID(), "jane@example.com", "password1", "other")
		assert.ErrorIs(t, err, remote.ErrUserAlreadyExists)

		got, err := c.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
		assert.True(t, got.Status)

		resumed := backend.NewClient()
		resumed.SetSession(c.Session())
		got, err = resumed.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)

		require.NoError(t, c.DeleteSession(ctx, remote.CurrentSession))
		_, err = resumed.Get(ctx)
		assert.ErrorIs(t, err, remote.ErrUnauthorizedScope)

		_, err = backend.NewClient().CreateEmailSession(ctx, "jane@example.com", "wrong-password")
		assert.ErrorIs(t, err, remote.ErrUserInvalidCredentials)
	})

	t.Run("password recovery", func(t *testing.T) {
		testutil.TruncateTables(t, pool)
		_, u := signup(t, "jane@example.com")
		c := backend.NewClient()

		_, err := c.CreateRecovery(ctx, "jane@example.com", "http://localhost:8080/reset-password")
		require.NoError(t, err)
		link, err := url.Parse(mailer.link)
		require.NoError(t, err)
		secret := link.Query().Get("secret")

		_, err = c.UpdateRecovery(ctx, u.ID, secret, "newpassword", "newpassword")
		require.NoError(t, err)
		_, err = c.UpdateRecovery(ctx, u.ID, secret, "newpassword", "newpassword")
		assert.ErrorIs(t, err, remote.ErrUserInvalidToken)

		_, err = c.CreateEmailSession(ctx, "jane@example.com", "newpassword")
		assert.NoError(t, err)
	})

	t.Run("documents are owner scoped", func(t *testing.T) {
		testutil.TruncateTables(t, pool)
		jane, janeUser := signup(t, "jane@example.com")
		bob, _ := signup(t, "bob@example.com")

		created, err := jane.CreateDocument(ctx, "db", "tasks", remote.UniqueID(), model.TaskData{
			UserID: janeUser.ID, Username: "janedoe", Title: "Write report", Tag: model.TagTodo, Serial: "T 7",
		})
		require.NoError(t, err)
		assert.False(t, created.Completed)
		assert.Equal(t, "T 7", created.Serial)

		list, err := bob.ListDocuments(ctx, "db", "tasks")
		require.NoError(t, err)
		assert.Zero(t, list.Total)

		_, err = bob.UpdateDocument(ctx, "db", "tasks", created.ID, model.TaskPatch{})
		assert.ErrorIs(t, err, remote.ErrDocumentNotFound)
		assert.ErrorIs(t, bob.DeleteDocument(ctx, "db", "tasks", created.ID), remote.ErrDocumentNotFound)

		done := true
		updated, err := jane.UpdateDocument(ctx, "db", "tasks", created.ID, model.TaskPatch{Completed: &done})
		require.NoError(t, err)
		assert.True(t, updated.Completed)
		assert.Equal(t, "Write report", updated.Title)
		assert.Equal(t, model.TagTodo, updated.Tag)

		_, err = jane.CreateDocument(ctx, "db", "tasks", created.ID, model.TaskData{UserID: janeUser.ID, Title: "dup", Tag: model.TagBug})
		assert.ErrorIs(t, err, remote.ErrDocumentAlreadyExists)

		_, err = jane.CreateDocument(ctx, "db", "tasks", "", model.TaskData{UserID: janeUser.ID, Title: "bad", Tag: "chore"})
		assert.ErrorIs(t, err, remote.ErrGeneralArgumentInvalid)

		require.NoError(t, jane.DeleteDocument(ctx, "db", "tasks", created.ID))
		list, err = jane.ListDocuments(ctx, "db", "tasks")
		require.NoError(t, err)
		assert.Empty(t, list.Documents)
	})

	t.Run("list queries", func(t *testing.T) {
		testutil.TruncateTables(t, pool)
		jane, janeUser := signup(t, "jane@example.com")
		scope := repo.Scope{DatabaseID: "db", CollectionID: "tasks", OwnerID: janeUser.ID}
		seeded := testutil.SeedTasks(t, tasks, scope, 7)

		list, err := jane.ListDocuments(ctx, "db", "tasks",
			remote.Equal(remote.AttrUserID, janeUser.ID),
			remote.OrderDesc(remote.AttrSerial),
			remote.Limit(3),
		)
		require.NoError(t, err)
		assert.Equal(t, 7, list.Total)
		require.Len(t, list.Documents, 3)
		assert.Equal(t, seeded[6].ID, list.Documents[0].ID)

		list, err = jane.ListDocuments(ctx, "db", "tasks",
			remote.Equal(remote.AttrUserID, janeUser.ID),
			remote.OrderDesc(remote.AttrSerial),
			remote.Limit(3),
			remote.Offset(6),
		)
		require.NoError(t, err)
		assert.Equal(t, 7, list.Total)
		require.Len(t, list.Documents, 1)
		assert.Equal(t, seeded[0].ID, list.Documents[0].ID)

		list, err = jane.ListDocuments(ctx, "db", "tasks", remote.Equal(remote.AttrTag, string(model.TagBug), string(model.TagFix)))
		require.NoError(t, err)
		for _, d := range list.Documents {
			assert.Contains(t, []model.Tag{model.TagBug, model.TagFix}, d.Tag)
		}
		assert.Equal(t, 2, list.Total)

		_, err = jane.ListDocuments(ctx, "db", "tasks", remote.Equal("owner_id", janeUser.ID))
		assert.ErrorIs(t, err, remote.ErrGeneralArgumentInvalid)
	})

	t.Run("concurrent creates with one id", func(t *testing.T) {
		testutil.TruncateTables(t, pool)
		_, u := signup(t, "jane@example.com")
		scope := repo.Scope{DatabaseID: "db", CollectionID: "tasks", OwnerID: u.ID}

		const goroutines = 10
		id := remote.UniqueID()

		var wg sync.WaitGroup
		errs := make([]error, goroutines)
		for i := 0; i < goroutines; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				_, errs[idx] = tasks.Create(ctx, scope, id, model.TaskData{
					UserID: u.ID,
					Title:  fmt.Sprintf("Concurrent Task %d", idx),
					Tag:    model.TagTodo,
					Serial: "T 1",
				})
			}(i)
		}
		wg.Wait()

		successCount, conflictCount := 0, 0
		for i, err := range errs {
			switch {
			case err == nil:
				successCount++
			case errors.Is(err, repo.ErrorConflict):
				conflictCount++
			default:
				t.Errorf("unexpected error at %d: %v", i, err)
			}
		}
		assert.Equal(t, 1, successCount, "exactly one create should succeed")
		assert.Equal(t, goroutines-1, conflictCount, "others should conflict")

		_, total, err := tasks.List(ctx, scope, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, total)
	})
}
