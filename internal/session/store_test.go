package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/BuzzLyutic/taskr/internal/model"
	"github.com/BuzzLyutic/taskr/internal/remote"
	"github.com/BuzzLyutic/taskr/internal/testutil"
	"github.com/BuzzLyutic/taskr/internal/ui"
)

// MockMarker - мок маркера сессии
type MockMarker struct {
	mock.Mock
}

func (m *MockMarker) Load(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockMarker) Save(ctx context.Context, value string) error {
	return m.Called(ctx, value).Error(0)
}

func (m *MockMarker) Clear(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type fixture struct {
	backend *testutil.FakeBackend
	client  *testutil.FakeClient
	marker  *testutil.MemoryMarker
	toaster *ui.Toaster
	router  *ui.Router
	store   *Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		backend: testutil.NewFakeBackend(),
		marker:  &testutil.MemoryMarker{},
		toaster: ui.NewToaster(),
		router:  ui.NewRouter(),
	}
	f.client = f.backend.NewClient()
	f.store = New(Options{
		Client:      f.client,
		Marker:      f.marker,
		Notifier:    f.toaster,
		Navigator:   f.router,
		RecoveryURL: "http://localhost:8080/reset-password",
	})
	return f
}

func TestStore_SignupUser(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		username string
		setup    func(*fixture)
		wantOK   bool
		wantDesc string
	}{
		{
			name:     "successful signup",
			email:    "jane@example.com",
			password: "password1",
			username: "janedoe",
			wantOK:   true,
			wantDesc: "Account created successfully",
		},
		{
			name:     "email already registered",
			email:    "jane@example.com",
			password: "password1",
			username: "janedoe",
			setup: func(f *fixture) {
				f.backend.AddUser("jane@example.com", "other-pass", "jane")
			},
			wantDesc: remote.ErrUserAlreadyExists.Message,
		},
		{
			name:     "short password",
			email:    "jane@example.com",
			password: "short",
			username: "janedoe",
			wantDesc: "Password must be at least 8 characters.",
		},
		{
			name:     "short name",
			email:    "jane@example.com",
			password: "password1",
			username: "jd",
			wantDesc: "Username must be at least 4 characters.",
		},
		{
			name:     "remote unavailable",
			email:    "jane@example.com",
			password: "password1",
			username: "janedoe",
			setup: func(f *fixture) {
				f.backend.CreateErr = errors.New("connection refused")
			},
			wantDesc: "connection refused",
		},
		{
			name:     "session creation fails",
			email:    "jane@example.com",
			password: "password1",
			username: "janedoe",
			setup: func(f *fixture) {
				f.backend.CreateEmailSessionErr = remote.ErrUserInvalidCredentials
			},
			wantDesc: remote.ErrUserInvalidCredentials.Message,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.setup != nil {
				tt.setup(f)
			}

			n := f.store.SignupUser(context.Background(), tt.email, tt.password, tt.username)

			assert.Equal(t, tt.wantOK, n.OK())
			assert.Equal(t, tt.wantDesc, n.Description)
			assert.Equal(t, []model.Notification{n}, f.toaster.Drain())
			assert.False(t, f.store.Loading())

			user, ok := f.store.User()
			target, navigated := f.router.Take()
			if tt.wantOK {
				require.True(t, ok)
				assert.Equal(t, tt.email, user.Email)
				assert.Equal(t, tt.username, user.Name)
				assert.NotEmpty(t, f.marker.Value)
				assert.True(t, navigated)
				assert.Equal(t, ui.RouteDashboard, target)
			} else {
				assert.False(t, ok)
				assert.False(t, navigated)
				assert.Equal(t, model.FailureTitle, n.Title)
			}
		})
	}
}

func TestStore_LoginUser(t *testing.T) {
	t.Run("registered user", func(t *testing.T) {
		f := newFixture(t)
		registered := f.backend.AddUser("jane@example.com", "password1", "janedoe")

		n := f.store.LoginUser(context.Background(), "jane@example.com", "password1")

		assert.True(t, n.OK())
		assert.Equal(t, "Login successful", n.Description)
		user, ok := f.store.User()
		require.True(t, ok)
		assert.Equal(t, registered.ID, user.ID)
		assert.Equal(t, f.client.Session(), f.marker.Value)
		target, _ := f.router.Take()
		assert.Equal(t, ui.RouteDashboard, target)
		assert.False(t, f.store.Loading())
	})

	t.Run("unregistered email", func(t *testing.T) {
		f := newFixture(t)

		n := f.store.LoginUser(context.Background(), "ghost@example.com", "password1")

		assert.False(t, n.OK())
		assert.Equal(t, remote.ErrUserInvalidCredentials.Message, n.Description)
		_, ok := f.store.User()
		assert.False(t, ok)
		assert.Len(t, f.toaster.Drain(), 1)
		assert.False(t, f.store.Loading())
		assert.Empty(t, f.marker.Value)
	})

	t.Run("invalid email", func(t *testing.T) {
		f := newFixture(t)

		n := f.store.LoginUser(context.Background(), "not-an-email", "password1")

		assert.False(t, n.OK())
		assert.Equal(t, "Please enter a valid email.", n.Description)
	})

	t.Run("marker cannot be saved", func(t *testing.T) {
		f := newFixture(t)
		f.backend.AddUser("jane@example.com", "password1", "janedoe")
		marker := new(MockMarker)
		marker.On("Save", mock.Anything, mock.AnythingOfType("string")).Return(errors.New("disk full"))
		f.store.marker = marker

		n := f.store.LoginUser(context.Background(), "jane@example.com", "password1")

		assert.False(t, n.OK())
		assert.Equal(t, "disk full", n.Description)
		_, ok := f.store.User()
		assert.False(t, ok)
		marker.AssertExpectations(t)
		assert.Equal(t, 0, f.backend.SessionCount())
		assert.Empty(t, f.client.Session())
	})

	t.Run("account cannot be loaded", func(t *testing.T) {
		f := newFixture(t)
		f.backend.AddUser("jane@example.com", "password1", "janedoe")
		f.backend.GetErr = errors.New("network down")

		n := f.store.LoginUser(context.Background(), "jane@example.com", "password1")

		assert.False(t, n.OK())
		assert.Equal(t, "network down", n.Description)
		_, ok := f.store.User()
		assert.False(t, ok)
		// созданная сессия удалена, маркер не записан
		assert.Empty(t, f.marker.Value)
		assert.Empty(t, f.client.Session())
		assert.Equal(t, 0, f.backend.SessionCount())
	})
}

func TestStore_FailedLoginKeepsCurrentUser(t *testing.T) {
	setup := func(t *testing.T) (*fixture, model.User, string) {
		t.Helper()
		f := newFixture(t)
		jane := f.backend.AddUser("jane@example.com", "password1", "janedoe")
		f.backend.AddUser("bob@example.com", "password2", "bobsmith")
		require.True(t, f.store.LoginUser(context.Background(), "jane@example.com", "password1").OK())
		f.toaster.Drain()
		f.router.Take()
		return f, jane, f.marker.Value
	}

	assertJane := func(t *testing.T, f *fixture, jane model.User, marker string) {
		t.Helper()
		user, ok := f.store.User()
		require.True(t, ok)
		assert.Equal(t, jane.ID, user.ID)
		assert.Equal(t, marker, f.marker.Value)
		assert.Equal(t, marker, f.client.Session())
		assert.Equal(t, 1, f.backend.SessionCount())
		_, navigated := f.router.Take()
		assert.False(t, navigated)
	}

	t.Run("wrong password", func(t *testing.T) {
		f, jane, marker := setup(t)

		n := f.store.LoginUser(context.Background(), "bob@example.com", "wrongpass")

		assert.False(t, n.OK())
		assertJane(t, f, jane, marker)
	})

	t.Run("new account cannot be loaded", func(t *testing.T) {
		f, jane, marker := setup(t)
		f.backend.GetErr = errors.New("network down")

		n := f.store.LoginUser(context.Background(), "bob@example.com", "password2")

		assert.False(t, n.OK())
		assertJane(t, f, jane, marker)
	})

	t.Run("signup fails", func(t *testing.T) {
		f, jane, marker := setup(t)

		n := f.store.SignupUser(context.Background(), "jane@example.com", "password1", "janedoe")

		assert.False(t, n.OK())
		assert.Equal(t, remote.ErrUserAlreadyExists.Message, n.Description)
		assertJane(t, f, jane, marker)
	})
}

func TestStore_LogoutUser(t *testing.T) {
	t.Run("authenticated", func(t *testing.T) {
		f := newFixture(t)
		f.backend.AddUser("jane@example.com", "password1", "janedoe")
		require.True(t, f.store.LoginUser(context.Background(), "jane@example.com", "password1").OK())
		f.toaster.Drain()
		f.router.Take()

		n := f.store.LogoutUser(context.Background())

		assert.True(t, n.OK())
		assert.Equal(t, "Logout successful", n.Description)
		_, ok := f.store.User()
		assert.False(t, ok)
		assert.Empty(t, f.marker.Value)
		assert.Empty(t, f.client.Session())
		assert.Zero(t, f.backend.SessionCount())
		target, _ := f.router.Take()
		assert.Equal(t, ui.RouteLogin, target)
	})

	t.Run("remote failure keeps user", func(t *testing.T) {
		f := newFixture(t)
		f.backend.AddUser("jane@example.com", "password1", "janedoe")
		require.True(t, f.store.LoginUser(context.Background(), "jane@example.com", "password1").OK())
		f.router.Take()
		f.backend.DeleteSessionErr = errors.New("network is unreachable")

		n := f.store.LogoutUser(context.Background())

		assert.False(t, n.OK())
		_, ok := f.store.User()
		assert.True(t, ok)
		assert.NotEmpty(t, f.marker.Value)
		_, navigated := f.router.Take()
		assert.False(t, navigated)
	})

	t.Run("marker clear failure still logs out", func(t *testing.T) {
		f := newFixture(t)
		f.backend.AddUser("jane@example.com", "password1", "janedoe")
		marker := new(MockMarker)
		marker.On("Save", mock.Anything, mock.Anything).Return(nil)
		marker.On("Clear", mock.Anything).Return(errors.New("read-only file system"))
		f.store.marker = marker
		require.True(t, f.store.LoginUser(context.Background(), "jane@example.com", "password1").OK())

		n := f.store.LogoutUser(context.Background())

		assert.True(t, n.OK())
		_, ok := f.store.User()
		assert.False(t, ok)
		marker.AssertExpectations(t)
	})
}

func TestStore_Init(t *testing.T) {
	t.Run("no marker", func(t *testing.T) {
		f := newFixture(t)

		f.store.Init(context.Background())

		_, ok := f.store.User()
		assert.False(t, ok)
		assert.Zero(t, f.toaster.Len())
	})

	t.Run("valid marker resumes session", func(t *testing.T) {
		f := newFixture(t)
		u := f.backend.AddUser("jane@example.com", "password1", "janedoe")
		f.marker.Value = f.backend.AddSession(u.ID)

		f.store.Init(context.Background())

		user, ok := f.store.User()
		require.True(t, ok)
		assert.Equal(t, u.ID, user.ID)
		assert.Equal(t, f.marker.Value, f.client.Session())
		assert.Zero(t, f.toaster.Len())
	})

	t.Run("stale marker notifies", func(t *testing.T) {
		f := newFixture(t)
		f.marker.Value = "expired"

		f.store.Init(context.Background())

		_, ok := f.store.User()
		assert.False(t, ok)
		got := f.toaster.Drain()
		require.Len(t, got, 1)
		assert.Equal(t, remote.ErrUnauthorizedScope.Message, got[0].Description)
	})

	t.Run("marker load error notifies", func(t *testing.T) {
		f := newFixture(t)
		f.marker.LoadErr = errors.New("database is locked")

		f.store.Init(context.Background())

		got := f.toaster.Drain()
		require.Len(t, got, 1)
		assert.Equal(t, model.NotificationFailure, got[0].Kind)
	})
}

func TestStore_PasswordRecovery(t *testing.T) {
	f := newFixture(t)
	u := f.backend.AddUser("jane@example.com", "password1", "janedoe")

	n := f.store.CreatePasswordRecovery(context.Background(), "jane@example.com")
	require.True(t, n.OK())
	assert.Equal(t, "Password recovery email sent to your email inbox or spam", n.Description)
	assert.Equal(t, "http://localhost:8080/reset-password", f.backend.LastRecoveryURL)
	target, _ := f.router.Take()
	assert.Equal(t, ui.RouteLogin, target)

	secret := f.backend.RecoverySecret(u.ID)
	require.NotEmpty(t, secret)

	n = f.store.UpdatePasswordRecovery(context.Background(), u.ID, secret, "newpassword", "other-password")
	assert.False(t, n.OK())
	assert.Equal(t, "Passwords do not match.", n.Description)

	n = f.store.UpdatePasswordRecovery(context.Background(), u.ID, "wrong-secret", "newpassword", "newpassword")
	assert.False(t, n.OK())
	assert.Equal(t, remote.ErrUserInvalidToken.Message, n.Description)

	n = f.store.UpdatePasswordRecovery(context.Background(), u.ID, secret, "newpassword", "newpassword")
	assert.True(t, n.OK())
	assert.Equal(t, "Password reset successfully", n.Description)

	assert.True(t, f.store.LoginUser(context.Background(), "jane@example.com", "newpassword").OK())
}

func TestStore_CreatePasswordRecoveryUnknownEmail(t *testing.T) {
	f := newFixture(t)

	n := f.store.CreatePasswordRecovery(context.Background(), "ghost@example.com")

	assert.False(t, n.OK())
	assert.Equal(t, remote.ErrUserNotFound.Message, n.Description)
	_, navigated := f.router.Take()
	assert.False(t, navigated)
}
