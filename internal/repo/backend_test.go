package repo

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/BuzzLyutic/taskr/internal/model"
	"github.com/BuzzLyutic/taskr/internal/remote"
)

// MockAccountRepository - мок репозитория аккаунтов
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) CreateUser(ctx context.Context, id, name, email string, cred Credentials) (model.User, error) {
	args := m.Called(ctx, id, name, email, cred)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockAccountRepository) UserByID(ctx context.Context, id string) (model.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockAccountRepository) UserByEmail(ctx context.Context, email string) (model.User, Credentials, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(model.User), args.Get(1).(Credentials), args.Error(2)
}

func (m *MockAccountRepository) CreateSession(ctx context.Context, s model.Session, secretHash string) (model.Session, error) {
	args := m.Called(ctx, s, secretHash)
	return args.Get(0).(model.Session), args.Error(1)
}

func (m *MockAccountRepository) SessionUser(ctx context.Context, secretHash string, now time.Time) (model.User, error) {
	args := m.Called(ctx, secretHash, now)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockAccountRepository) DeleteSession(ctx context.Context, secretHash string) error {
	return m.Called(ctx, secretHash).Error(0)
}

func (m *MockAccountRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAccountRepository) CreateRecovery(ctx context.Context, t model.Token, secretHash string) (model.Token, error) {
	args := m.Called(ctx, t, secretHash)
	return args.Get(0).(model.Token), args.Error(1)
}

func (m *MockAccountRepository) ResetPassword(ctx context.Context, userID, secretHash string, now time.Time, cred Credentials) (model.Token, error) {
	args := m.Called(ctx, userID, secretHash, now, cred)
	return args.Get(0).(model.Token), args.Error(1)
}

// MockTaskRepository - мок репозитория задач
type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) Create(ctx context.Context, scope Scope, id string, d model.TaskData) (model.Task, error) {
	args := m.Called(ctx, scope, id, d)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskRepository) Get(ctx context.Context, scope Scope, id string) (model.Task, error) {
	args := m.Called(ctx, scope, id)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskRepository) List(ctx context.Context, scope Scope, queries []remote.Query) ([]model.Task, int, error) {
	args := m.Called(ctx, scope, queries)
	return args.Get(0).([]model.Task), args.Int(1), args.Error(2)
}

func (m *MockTaskRepository) Update(ctx context.Context, scope Scope, id string, p model.TaskPatch) (model.Task, error) {
	args := m.Called(ctx, scope, id, p)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskRepository) Delete(ctx context.Context, scope Scope, id string) error {
	return m.Called(ctx, scope, id).Error(0)
}

type recordingMailer struct {
	user model.User
	link string
	err  error
}

func (m *recordingMailer) SendRecovery(ctx context.Context, user model.User, link string) error {
	m.user, m.link = user, link
	return m.err
}

var fixedNow = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestBackend() (*Backend, *MockAccountRepository, *MockTaskRepository, *recordingMailer) {
	accounts := new(MockAccountRepository)
	tasks := new(MockTaskRepository)
	mailer := &recordingMailer{}
	b := NewBackend(accounts, tasks, mailer, nil)
	b.now = func() time.Time { return fixedNow }
	return b, accounts, tasks, mailer
}

// authenticated returns a client whose session resolves to user.
func authenticated(b *Backend, accounts *MockAccountRepository, user model.User) *Client {
	c := b.NewClient()
	c.SetSession("secret-1")
	accounts.On("SessionUser", mock.Anything, hashSecret("secret-1"), fixedNow).Return(user, nil)
	return c
}

func TestClient_Create(t *testing.T) {
	tests := []struct {
		name      string
		password  string
		setupMock func(*MockAccountRepository)
		wantErr   error
	}{
		{
			name:     "successful creation",
			password: "password1",
			setupMock: func(m *MockAccountRepository) {
				m.On("CreateUser", mock.Anything, "u1", "janedoe", "jane@example.com", mock.MatchedBy(func(c Credentials) bool {
					return len(c.Hash) == 32 && len(c.Salt) == saltSize && verifyPassword("password1", c)
				})).Return(model.User{ID: "u1", Name: "janedoe", Email: "jane@example.com"}, nil)
			},
		},
		{
			name:     "email taken",
			password: "password1",
			setupMock: func(m *MockAccountRepository) {
				m.On("CreateUser", mock.Anything, "u1", "janedoe", "jane@example.com", mock.Anything).
					Return(model.User{}, ErrorConflict)
			},
			wantErr: remote.ErrUserAlreadyExists,
		},
		{
			name:      "short password",
			password:  "short",
			setupMock: func(m *MockAccountRepository) {},
			wantErr:   remote.ErrGeneralArgumentInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, accounts, _, _ := newTestBackend()
			tt.setupMock(accounts)

			u, err := b.NewClient().Create(context.Background(), "u1", "jane@example.com", tt.password, "janedoe")

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "u1", u.ID)
			}
			accounts.AssertExpectations(t)
		})
	}
}

func TestClient_CreateEmailSession(t *testing.T) {
	cred, err := hashPassword("password1")
	require.NoError(t, err)
	user := model.User{ID: "u1", Email: "jane@example.com"}

	t.Run("success", func(t *testing.T) {
		b, accounts, _, _ := newTestBackend()
		accounts.On("UserByEmail", mock.Anything, "jane@example.com").Return(user, cred, nil)
		var storedHash string
		accounts.On("CreateSession", mock.Anything, mock.MatchedBy(func(s model.Session) bool {
			return s.UserID == "u1" && s.ExpiresAt.Equal(fixedNow.Add(SessionTTL))
		}), mock.Anything).Run(func(args mock.Arguments) {
			storedHash = args.String(2)
		}).Return(model.Session{ID: "s1", UserID: "u1", CreatedAt: fixedNow}, nil)

		c := b.NewClient()
		s, err := c.CreateEmailSession(context.Background(), "jane@example.com", "password1")

		require.NoError(t, err)
		assert.NotEmpty(t, s.Secret)
		assert.Equal(t, s.Secret, c.Session())
		assert.Equal(t, hashSecret(s.Secret), storedHash)
		assert.NotEqual(t, s.Secret, storedHash)
	})

	t.Run("wrong password", func(t *testing.T) {
		b, accounts, _, _ := newTestBackend()
		accounts.On("UserByEmail", mock.Anything, "jane@example.com").Return(user, cred, nil)

		c := b.NewClient()
		_, err := c.CreateEmailSession(context.Background(), "jane@example.com", "password2")

		assert.ErrorIs(t, err, remote.ErrUserInvalidCredentials)
		assert.Empty(t, c.Session())
		accounts.AssertNotCalled(t, "CreateSession", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown email", func(t *testing.T) {
		b, accounts, _, _ := newTestBackend()
		accounts.On("UserByEmail", mock.Anything, "ghost@example.com").Return(model.User{}, Credentials{}, ErrorNotFound)

		_, err := b.NewClient().CreateEmailSession(context.Background(), "ghost@example.com", "password1")

		assert.ErrorIs(t, err, remote.ErrUserInvalidCredentials)
	})
}

func TestClient_Get(t *testing.T) {
	b, accounts, _, _ := newTestBackend()

	_, err := b.NewClient().Get(context.Background())
	assert.ErrorIs(t, err, remote.ErrUnauthorizedScope)

	c := b.NewClient()
	c.SetSession("stale")
	accounts.On("SessionUser", mock.Anything, hashSecret("stale"), fixedNow).Return(model.User{}, ErrorNotFound)
	_, err = c.Get(context.Background())
	assert.ErrorIs(t, err, remote.ErrUnauthorizedScope)

	c = authenticated(b, accounts, model.User{ID: "u1"})
	u, err := c.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
}

func TestClient_DeleteSession(t *testing.T) {
	b, accounts, _, _ := newTestBackend()
	c := b.NewClient()
	c.SetSession("secret-1")

	assert.ErrorIs(t, c.DeleteSession(context.Background(), "s1"), remote.ErrGeneralArgumentInvalid)

	accounts.On("DeleteSession", mock.Anything, hashSecret("secret-1")).Return(nil)
	require.NoError(t, c.DeleteSession(context.Background(), remote.CurrentSession))
	assert.Empty(t, c.Session())

	assert.ErrorIs(t, c.DeleteSession(context.Background(), remote.CurrentSession), remote.ErrUnauthorizedScope)
}

func TestClient_Recovery(t *testing.T) {
	b, accounts, _, mailer := newTestBackend()
	user := model.User{ID: "u1", Email: "jane@example.com"}
	accounts.On("UserByEmail", mock.Anything, "jane@example.com").Return(user, Credentials{}, nil)
	accounts.On("CreateRecovery", mock.Anything, mock.MatchedBy(func(tok model.Token) bool {
		return tok.UserID == "u1" && tok.ExpiresAt.Equal(fixedNow.Add(RecoveryTTL))
	}), mock.Anything).Return(model.Token{ID: "t1", UserID: "u1", ExpiresAt: fixedNow.Add(RecoveryTTL)}, nil)

	c := b.NewClient()
	tok, err := c.CreateRecovery(context.Background(), "jane@example.com", "https://taskr.example.com/reset-password")
	require.NoError(t, err)
	assert.Equal(t, "t1", tok.ID)

	link, err := url.Parse(mailer.link)
	require.NoError(t, err)
	assert.Equal(t, "/reset-password", link.Path)
	assert.Equal(t, "u1", link.Query().Get("userId"))
	secret := link.Query().Get("secret")
	require.NotEmpty(t, secret)
	assert.Equal(t, user, mailer.user)

	_, err = c.UpdateRecovery(context.Background(), "u1", secret, "newpassword", "different1")
	assert.ErrorIs(t, err, remote.ErrUserPasswordMismatch)

	accounts.On("ResetPassword", mock.Anything, "u1", hashSecret("bogus"), fixedNow, mock.Anything).
		Return(model.Token{}, ErrorNotFound)
	_, err = c.UpdateRecovery(context.Background(), "u1", "bogus", "newpassword", "newpassword")
	assert.ErrorIs(t, err, remote.ErrUserInvalidToken)

	accounts.On("ResetPassword", mock.Anything, "u1", hashSecret(secret), fixedNow, mock.MatchedBy(func(c Credentials) bool {
		return verifyPassword("newpassword", c)
	})).Return(model.Token{ID: "t1", UserID: "u1"}, nil)
	_, err = c.UpdateRecovery(context.Background(), "u1", secret, "newpassword", "newpassword")
	assert.NoError(t, err)
}

func TestClient_CreateRecoveryErrors(t *testing.T) {
	b, accounts, _, mailer := newTestBackend()

	_, err := b.NewClient().CreateRecovery(context.Background(), "jane@example.com", "/relative")
	assert.ErrorIs(t, err, remote.ErrGeneralArgumentInvalid)

	accounts.On("UserByEmail", mock.Anything, "ghost@example.com").Return(model.User{}, Credentials{}, ErrorNotFound)
	_, err = b.NewClient().CreateRecovery(context.Background(), "ghost@example.com", "http://localhost/reset")
	assert.ErrorIs(t, err, remote.ErrUserNotFound)
	assert.Empty(t, mailer.link)
}

func TestClient_Documents(t *testing.T) {
	b, accounts, tasks, _ := newTestBackend()
	c := authenticated(b, accounts, model.User{ID: "u1", Name: "janedoe"})
	scope := Scope{DatabaseID: "db", CollectionID: "tasks", OwnerID: "u1"}
	ctx := context.Background()

	queries := []remote.Query{remote.Equal(remote.AttrUserID, "u1")}
	tasks.On("List", mock.Anything, scope, queries).Return([]model.Task{{ID: "t1"}}, 1, nil)
	list, err := c.ListDocuments(ctx, "db", "tasks", queries...)
	require.NoError(t, err)
	assert.Equal(t, 1, list.Total)
	assert.Equal(t, "t1", list.Documents[0].ID)

	data := model.TaskData{UserID: "u1", Title: "x", Tag: model.TagBug}
	tasks.On("Create", mock.Anything, scope, "t1", data).Return(model.Task{}, ErrorConflict)
	_, err = c.CreateDocument(ctx, "db", "tasks", "t1", data)
	assert.ErrorIs(t, err, remote.ErrDocumentAlreadyExists)

	tasks.On("Create", mock.Anything, scope, "t2", data).Return(model.Task{}, errors.Join(ErrorInvalid, errors.New("check")))
	_, err = c.CreateDocument(ctx, "db", "tasks", "t2", data)
	assert.ErrorIs(t, err, remote.ErrGeneralArgumentInvalid)

	done := true
	tasks.On("Update", mock.Anything, scope, "missing", model.TaskPatch{Completed: &done}).Return(model.Task{}, ErrorNotFound)
	_, err = c.UpdateDocument(ctx, "db", "tasks", "missing", model.TaskPatch{Completed: &done})
	assert.ErrorIs(t, err, remote.ErrDocumentNotFound)

	tasks.On("Get", mock.Anything, scope, "t1").Return(model.Task{ID: "t1"}, nil)
	got, err := c.UpdateDocument(ctx, "db", "tasks", "t1", model.TaskPatch{})
	require.NoError(t, err)
	assert.Equal(t, "t1", got.ID)

	tasks.On("Delete", mock.Anything, scope, "gone").Return(ErrorNotFound)
	assert.ErrorIs(t, c.DeleteDocument(ctx, "db", "tasks", "gone"), remote.ErrDocumentNotFound)

	tasks.AssertExpectations(t)
}

func TestClient_DocumentsRequireSession(t *testing.T) {
	b, _, tasks, _ := newTestBackend()

	_, err := b.NewClient().ListDocuments(context.Background(), "db", "tasks")

	assert.ErrorIs(t, err, remote.ErrUnauthorizedScope)
	tasks.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything)
}

func TestBackend_Evict(t *testing.T) {
	b, accounts, _, _ := newTestBackend()
	accounts.On("DeleteExpiredSessions", mock.Anything, fixedNow).Return(int64(3), nil).Once()
	accounts.On("DeleteExpiredSessions", mock.Anything, fixedNow).Return(int64(0), errors.New("conn closed")).Once()

	n, err := b.Evict(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = b.Evict(context.Background())
	assert.Error(t, err)
}
