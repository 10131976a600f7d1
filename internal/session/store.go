// Package session holds the authentication state of one user agent: the
// current user, a loading flag, and the account operations. Every operation
// reports its outcome as exactly one notification; failures never escape.
package session

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskr/internal/model"
	"github.com/BuzzLyutic/taskr/internal/remote"
	"github.com/BuzzLyutic/taskr/internal/ui"
)

const (
	msgSignup          = "Account created successfully"
	msgLogin           = "Login successful"
	msgLogout          = "Logout successful"
	msgRecoveryCreated = "Password recovery email sent to your email inbox or spam"
	msgRecoveryDone    = "Password reset successfully"
)

// Marker is the locally persisted session value. Load returns "" when absent.
type Marker interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, value string) error
	Clear(ctx context.Context) error
}

// Store is not safe for concurrent use; callers serialise access per user agent.
type Store struct {
	client      remote.Account
	sessions    sessionHolder
	marker      Marker
	notifier    ui.Notifier
	nav         ui.Navigator
	logger      *zap.Logger
	recoveryURL string

	user    *model.User
	loading bool
}

type sessionHolder interface {
	SetSession(value string)
	Session() string
}

type Options struct {
	Client      remote.Client
	Marker      Marker
	Notifier    ui.Notifier
	Navigator   ui.Navigator
	Logger      *zap.Logger
	RecoveryURL string
}

func New(opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		client:      opts.Client,
		sessions:    opts.Client,
		marker:      opts.Marker,
		notifier:    opts.Notifier,
		nav:         opts.Navigator,
		logger:      logger,
		recoveryURL: opts.RecoveryURL,
	}
}

// User returns the current user, if any.
func (s *Store) User() (model.User, bool) {
	if s.user == nil {
		return model.User{}, false
	}
	return *s.user, true
}

func (s *Store) Loading() bool {
	return s.loading
}

// Init resumes a persisted session. Without a marker it does nothing; a failed
// resume produces a failure notification and leaves the store unauthenticated.
func (s *Store) Init(ctx context.Context) {
	value, err := s.marker.Load(ctx)
	if err != nil {
		s.fail(err)
		return
	}
	if value == "" {
		return
	}

	s.sessions.SetSession(value)
	user, err := s.client.Get(ctx)
	if err != nil {
		s.logger.Info("persisted session not resumed", zap.Error(err))
		s.fail(err)
		return
	}
	s.user = &user
}

func (s *Store) SignupUser(ctx context.Context, email, password, name string) model.Notification {
	s.loading = true
	defer func() { s.loading = false }()

	if err := (model.SignupForm{Name: name, Email: email, Password: password}).Validate(); err != nil {
		return s.fail(err)
	}
	if _, err := s.client.Create(ctx, remote.UniqueID(), email, password, name); err != nil {
		return s.fail(err)
	}
	if err := s.establish(ctx, email, password); err != nil {
		return s.fail(err)
	}

	s.logger.Info("user signed up", zap.String("user_id", s.user.ID))
	n := s.succeed(msgSignup)
	s.nav.Navigate(ui.RouteDashboard)
	return n
}

func (s *Store) LoginUser(ctx context.Context, email, password string) model.Notification {
	s.loading = true
	defer func() { s.loading = false }()

	if err := (model.LoginForm{Email: email, Password: password}).Validate(); err != nil {
		return s.fail(err)
	}
	if err := s.establish(ctx, email, password); err != nil {
		return s.fail(err)
	}

	s.logger.Info("user logged in", zap.String("user_id", s.user.ID))
	n := s.succeed(msgLogin)
	s.nav.Navigate(ui.RouteDashboard)
	return n
}

// establish opens an email session, loads the account and persists the
// marker. When a step after session creation fails the new session is
// deleted and the previous client session, if any, is restored.
func (s *Store) establish(ctx context.Context, email, password string) error {
	prev := s.sessions.Session()
	sess, err := s.client.CreateEmailSession(ctx, email, password)
	if err != nil {
		return err
	}
	user, err := s.client.Get(ctx)
	if err != nil {
		s.discard(ctx, prev)
		return err
	}
	if err := s.marker.Save(ctx, sess.Secret); err != nil {
		s.discard(ctx, prev)
		return err
	}
	s.user = &user
	return nil
}

// discard drops a half-established session. The marker was not written, so
// it still holds prev.
func (s *Store) discard(ctx context.Context, prev string) {
	if err := s.client.DeleteSession(ctx, remote.CurrentSession); err != nil {
		s.logger.Warn("orphaned session not deleted", zap.Error(err))
	}
	s.sessions.SetSession(prev)
}

func (s *Store) LogoutUser(ctx context.Context) model.Notification {
	s.loading = true
	defer func() { s.loading = false }()

	if err := s.client.DeleteSession(ctx, remote.CurrentSession); err != nil {
		return s.fail(err)
	}
	s.sessions.SetSession("")
	if err := s.marker.Clear(ctx); err != nil {
		s.logger.Warn("session marker not cleared", zap.Error(err))
	}
	s.user = nil

	n := s.succeed(msgLogout)
	s.nav.Navigate(ui.RouteLogin)
	return n
}

func (s *Store) CreatePasswordRecovery(ctx context.Context, email string) model.Notification {
	s.loading = true
	defer func() { s.loading = false }()

	if err := (model.RecoveryForm{Email: email}).Validate(); err != nil {
		return s.fail(err)
	}
	if _, err := s.client.CreateRecovery(ctx, email, s.recoveryURL); err != nil {
		return s.fail(err)
	}

	n := s.succeed(msgRecoveryCreated)
	s.nav.Navigate(ui.RouteLogin)
	return n
}

func (s *Store) UpdatePasswordRecovery(ctx context.Context, userID, secret, password, passwordAgain string) model.Notification {
	s.loading = true
	defer func() { s.loading = false }()

	form := model.ResetPasswordForm{UserID: userID, Secret: secret, Password: password, ConfirmPassword: passwordAgain}
	if err := form.Validate(); err != nil {
		return s.fail(err)
	}
	if _, err := s.client.UpdateRecovery(ctx, userID, secret, password, passwordAgain); err != nil {
		return s.fail(err)
	}

	n := s.succeed(msgRecoveryDone)
	s.nav.Navigate(ui.RouteLogin)
	return n
}

func (s *Store) succeed(msg string) model.Notification {
	n := model.Success(msg)
	s.notifier.Notify(n)
	return n
}

func (s *Store) fail(err error) model.Notification {
	if !errors.Is(err, model.ErrValidation) && remote.ErrorCode(err) == 0 {
		s.logger.Error("session operation failed", zap.Error(err))
	}
	n := model.Failure(err)
	s.notifier.Notify(n)
	return n
}
