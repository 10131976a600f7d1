package repo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskr/internal/model"
	"github.com/BuzzLyutic/taskr/internal/remote"
)

const (
	SessionTTL  = 365 * 24 * time.Hour
	RecoveryTTL = time.Hour

	minPasswordLength = 8
)

// Backend serves the account and document contract of the hosted service from
// PostgreSQL. Each user agent talks to it through its own Client.
type Backend struct {
	accounts AccountRepository
	tasks    TaskRepository
	mailer   Mailer
	logger   *zap.Logger
	now      func() time.Time
}

func NewBackend(accounts AccountRepository, tasks TaskRepository, mailer Mailer, logger *zap.Logger) *Backend {
	if logger == nil {
		logger = zap.NewNop()
	}
	if mailer == nil {
		mailer = NewLogMailer(logger)
	}
	return &Backend{
		accounts: accounts,
		tasks:    tasks,
		mailer:   mailer,
		logger:   logger,
		now:      time.Now,
	}
}

// NewClient returns an unauthenticated client.
func (b *Backend) NewClient() *Client {
	return &Client{b: b}
}

// Evict removes expired sessions and recovery tokens.
func (b *Backend) Evict(ctx context.Context) (int, error) {
	n, err := b.accounts.DeleteExpiredSessions(ctx, b.now())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return int(n), nil
}

// Client is one user agent's connection to a Backend.
type Client struct {
	b *Backend

	mu      sync.RWMutex
	session string
}

var _ remote.Client = (*Client)(nil)

func (c *Client) SetSession(value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = value
}

func (c *Client) Session() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// translate maps repository errors onto service errors.
func translate(err error, notFound, conflict *remote.Error) error {
	var re *remote.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &re):
		return err
	case errors.Is(err, ErrorNotFound) && notFound != nil:
		return notFound
	case errors.Is(err, ErrorConflict) && conflict != nil:
		return conflict
	case errors.Is(err, ErrorInvalid):
		return remote.Invalid(err.Error())
	}
	return err
}

func validPassword(password string) error {
	if len(password) < minPasswordLength {
		return remote.Invalid("Invalid `password` param: Password must be at least 8 characters and should not be one of the commonly used password.")
	}
	return nil
}

func (c *Client) Create(ctx context.Context, userID, email, password, name string) (model.User, error) {
	if err := validPassword(password); err != nil {
		return model.User{}, err
	}
	if userID == "" || userID == "unique()" {
		userID = remote.UniqueID()
	}
	cred, err := hashPassword(password)
	if err != nil {
		return model.User{}, err
	}
	u, err := c.b.accounts.CreateUser(ctx, userID, name, email, cred)
	if err != nil {
		return model.User{}, translate(err, nil, remote.ErrUserAlreadyExists)
	}
	c.b.logger.Info("account created", zap.String("user_id", u.ID))
	return u, nil
}

func (c *Client) CreateEmailSession(ctx context.Context, email, password string) (model.Session, error) {
	u, cred, err := c.b.accounts.UserByEmail(ctx, email)
	if err != nil {
		return model.Session{}, translate(err, remote.ErrUserInvalidCredentials, nil)
	}
	if !verifyPassword(password, cred) {
		return model.Session{}, remote.ErrUserInvalidCredentials
	}

	secret := newSecret()
	s, err := c.b.accounts.CreateSession(ctx, model.Session{
		ID:        remote.UniqueID(),
		UserID:    u.ID,
		ExpiresAt: c.b.now().Add(SessionTTL),
	}, hashSecret(secret))
	if err != nil {
		return model.Session{}, translate(err, nil, nil)
	}
	s.Secret = secret
	c.SetSession(secret)
	return s, nil
}

func (c *Client) current(ctx context.Context) (model.User, error) {
	secret := c.Session()
	if secret == "" {
		return model.User{}, remote.ErrUnauthorizedScope
	}
	u, err := c.b.accounts.SessionUser(ctx, hashSecret(secret), c.b.now())
	if err != nil {
		return model.User{}, translate(err, remote.ErrUnauthorizedScope, nil)
	}
	return u, nil
}

func (c *Client) Get(ctx context.Context) (model.User, error) {
	return c.current(ctx)
}

// DeleteSession only supports the current session.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	if sessionID != remote.CurrentSession {
		return remote.Invalid("Only the current session can be deleted.")
	}
	secret := c.Session()
	if secret == "" {
		return remote.ErrUnauthorizedScope
	}
	if err := c.b.accounts.DeleteSession(ctx, hashSecret(secret)); err != nil {
		return translate(err, remote.ErrUnauthorizedScope, nil)
	}
	c.SetSession("")
	return nil
}

func (c *Client) CreateRecovery(ctx context.Context, email, redirectURL string) (model.Token, error) {
	link, err := url.Parse(redirectURL)
	if err != nil || !link.IsAbs() {
		return model.Token{}, remote.Invalid("Invalid `url` param: URL must be absolute.")
	}
	u, _, err := c.b.accounts.UserByEmail(ctx, email)
	if err != nil {
		return model.Token{}, translate(err, remote.ErrUserNotFound, nil)
	}

	secret := newSecret()
	t, err := c.b.accounts.CreateRecovery(ctx, model.Token{
		ID:        remote.UniqueID(),
		UserID:    u.ID,
		ExpiresAt: c.b.now().Add(RecoveryTTL),
	}, hashSecret(secret))
	if err != nil {
		return model.Token{}, translate(err, nil, nil)
	}

	q := link.Query()
	q.Set("userId", u.ID)
	q.Set("secret", secret)
	q.Set("expire", t.ExpiresAt.UTC().Format(time.RFC3339))
	link.RawQuery = q.Encode()
	if err := c.b.mailer.SendRecovery(ctx, u, link.String()); err != nil {
		return model.Token{}, fmt.Errorf("send recovery: %w", err)
	}
	return t, nil
}

func (c *Client) UpdateRecovery(ctx context.Context, userID, secret, password, passwordAgain string) (model.Token, error) {
	if password != passwordAgain {
		return model.Token{}, remote.ErrUserPasswordMismatch
	}
	if err := validPassword(password); err != nil {
		return model.Token{}, err
	}
	cred, err := hashPassword(password)
	if err != nil {
		return model.Token{}, err
	}
	t, err := c.b.accounts.ResetPassword(ctx, userID, hashSecret(secret), c.b.now(), cred)
	if err != nil {
		return model.Token{}, translate(err, remote.ErrUserInvalidToken, nil)
	}
	c.b.logger.Info("password reset", zap.String("user_id", userID))
	return t, nil
}

func (c *Client) scope(ctx context.Context, databaseID, collectionID string) (Scope, error) {
	u, err := c.current(ctx)
	if err != nil {
		return Scope{}, err
	}
	return Scope{DatabaseID: databaseID, CollectionID: collectionID, OwnerID: u.ID}, nil
}

func (c *Client) ListDocuments(ctx context.Context, databaseID, collectionID string, queries ...remote.Query) (remote.DocumentList, error) {
	scope, err := c.scope(ctx, databaseID, collectionID)
	if err != nil {
		return remote.DocumentList{}, err
	}
	tasks, total, err := c.b.tasks.List(ctx, scope, queries)
	if err != nil {
		return remote.DocumentList{}, translate(err, nil, nil)
	}
	return remote.DocumentList{Total: total, Documents: tasks}, nil
}

func (c *Client) CreateDocument(ctx context.Context, databaseID, collectionID, documentID string, data model.TaskData) (model.Task, error) {
	scope, err := c.scope(ctx, databaseID, collectionID)
	if err != nil {
		return model.Task{}, err
	}
	if documentID == "" || documentID == "unique()" {
		documentID = remote.UniqueID()
	}
	t, err := c.b.tasks.Create(ctx, scope, documentID, data)
	if err != nil {
		return model.Task{}, translate(err, nil, remote.ErrDocumentAlreadyExists)
	}
	return t, nil
}

func (c *Client) UpdateDocument(ctx context.Context, databaseID, collectionID, documentID string, patch model.TaskPatch) (model.Task, error) {
	scope, err := c.scope(ctx, databaseID, collectionID)
	if err != nil {
		return model.Task{}, err
	}
	var t model.Task
	if patch.Empty() {
		t, err = c.b.tasks.Get(ctx, scope, documentID)
	} else {
		t, err = c.b.tasks.Update(ctx, scope, documentID, patch)
	}
	if err != nil {
		return model.Task{}, translate(err, remote.ErrDocumentNotFound, nil)
	}
	return t, nil
}

func (c *Client) DeleteDocument(ctx context.Context, databaseID, collectionID, documentID string) error {
	scope, err := c.scope(ctx, databaseID, collectionID)
	if err != nil {
		return err
	}
	return translate(c.b.tasks.Delete(ctx, scope, documentID), remote.ErrDocumentNotFound, nil)
}
