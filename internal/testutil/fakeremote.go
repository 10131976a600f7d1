// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/BuzzLyutic/taskr/internal/model"
	"github.com/BuzzLyutic/taskr/internal/remote"
)

type fakeUser struct {
	user     model.User
	password string
}

type fakeDocument struct {
	scope string
	owner string
	task  model.Task
}

// FakeBackend is an in-memory stand-in for the remote service. Clients created
// from one backend share its users, sessions and documents.
// DefaultListLimit is the page size of a listing without a limit query, as on
// the hosted service.
const DefaultListLimit = 25

type FakeBackend struct {
	mu         sync.Mutex
	users      map[string]*fakeUser
	sessions   map[string]string // session value -> user id
	recoveries map[string]string // user id -> secret
	docs       []fakeDocument
	clock      time.Time
	seq        int

	// Error injection for testing
	CreateErr             error
	CreateEmailSessionErr error
	GetErr                error
	DeleteSessionErr      error
	CreateRecoveryErr     error
	UpdateRecoveryErr     error
	ListDocumentsErr      error
	CreateDocumentErr     error
	UpdateDocumentErr     error
	DeleteDocumentErr     error

	// LastRecoveryURL is the redirect URL of the last recovery request.
	LastRecoveryURL string
	// ListCalls counts ListDocuments calls.
	ListCalls int
}

func NewFakeBackend() *FakeBackend {
	return &FakeBackend{
		users:      make(map[string]*fakeUser),
		sessions:   make(map[string]string),
		recoveries: make(map[string]string),
		clock:      time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (b *FakeBackend) NewClient() *FakeClient {
	return &FakeClient{b: b}
}

func (b *FakeBackend) tick() time.Time {
	b.seq++
	return b.clock.Add(time.Duration(b.seq) * time.Second)
}

// AddUser registers an account directly.
func (b *FakeBackend) AddUser(email, password, name string) model.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	u := model.User{ID: fmt.Sprintf("user-%d", len(b.users)+1), Name: name, Email: email, Status: true, CreatedAt: b.tick()}
	u.UpdatedAt = u.CreatedAt
	b.users[u.ID] = &fakeUser{user: u, password: password}
	return u
}

// AddSession opens a session for userID and returns its value.
func (b *FakeBackend) AddSession(userID string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	value := fmt.Sprintf("session-%d", b.tick().Unix())
	b.sessions[value] = userID
	return value
}

// AddTask stores a document owned by the given user in the given scope.
func (b *FakeBackend) AddTask(databaseID, collectionID string, t model.Task) model.Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t.ID == "" {
		t.ID = remote.UniqueID()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = b.tick()
	}
	t.UpdatedAt = t.CreatedAt
	b.docs = append(b.docs, fakeDocument{scope: databaseID + "/" + collectionID, owner: t.UserID, task: t})
	return t
}

// Tasks returns every stored document.
func (b *FakeBackend) Tasks() []model.Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]model.Task, 0, len(b.docs))
	for _, d := range b.docs {
		out = append(out, d.task)
	}
	return out
}

// SessionCount reports the number of open sessions.
func (b *FakeBackend) SessionCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sessions)
}

// RecoverySecret returns the pending recovery secret of a user.
func (b *FakeBackend) RecoverySecret(userID string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.recoveries[userID]
}

// FakeClient implements remote.Client against a FakeBackend.
type FakeClient struct {
	b       *FakeBackend
	session string
}

var _ remote.Client = (*FakeClient)(nil)

func (c *FakeClient) SetSession(value string) { c.session = value }
func (c *FakeClient) Session() string         { return c.session }

func (c *FakeClient) currentUser() (*fakeUser, error) {
	id, ok := c.b.sessions[c.session]
	if !ok || c.session == "" {
		return nil, remote.ErrUnauthorizedScope
	}
	u, ok := c.b.users[id]
	if !ok {
		return nil, remote.ErrUnauthorizedScope
	}
	return u, nil
}

func (c *FakeClient) Create(ctx context.Context, userID, email, password, name string) (model.User, error) {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	if c.b.CreateErr != nil {
		return model.User{}, c.b.CreateErr
	}
	for _, u := range c.b.users {
		if u.user.Email == email || u.user.ID == userID {
			return model.User{}, remote.ErrUserAlreadyExists
		}
	}
	u := model.User{ID: userID, Name: name, Email: email, Status: true, CreatedAt: c.b.tick()}
	u.UpdatedAt = u.CreatedAt
	c.b.users[userID] = &fakeUser{user: u, password: password}
	return u, nil
}

func (c *FakeClient) CreateEmailSession(ctx context.Context, email, password string) (model.Session, error) {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	if c.b.CreateEmailSessionErr != nil {
		return model.Session{}, c.b.CreateEmailSessionErr
	}
	for _, u := range c.b.users {
		if u.user.Email == email && u.password == password {
			now := c.b.tick()
			s := model.Session{
				ID:        fmt.Sprintf("sess-%d", c.b.seq),
				UserID:    u.user.ID,
				Secret:    fmt.Sprintf("secret-%d", c.b.seq),
				CreatedAt: now,
				ExpiresAt: now.Add(365 * 24 * time.Hour),
			}
			c.b.sessions[s.Secret] = u.user.ID
			c.session = s.Secret
			return s, nil
		}
	}
	return model.Session{}, remote.ErrUserInvalidCredentials
}

func (c *FakeClient) Get(ctx context.Context) (model.User, error) {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	if c.b.GetErr != nil {
		return model.User{}, c.b.GetErr
	}
	u, err := c.currentUser()
	if err != nil {
		return model.User{}, err
	}
	return u.user, nil
}

func (c *FakeClient) DeleteSession(ctx context.Context, sessionID string) error {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	if c.b.DeleteSessionErr != nil {
		return c.b.DeleteSessionErr
	}
	if _, err := c.currentUser(); err != nil {
		return err
	}
	delete(c.b.sessions, c.session)
	c.session = ""
	return nil
}

func (c *FakeClient) CreateRecovery(ctx context.Context, email, url string) (model.Token, error) {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	if c.b.CreateRecoveryErr != nil {
		return model.Token{}, c.b.CreateRecoveryErr
	}
	for _, u := range c.b.users {
		if u.user.Email == email {
			secret := fmt.Sprintf("recovery-%d", c.b.tick().Unix())
			c.b.recoveries[u.user.ID] = secret
			c.b.LastRecoveryURL = url
			return model.Token{ID: "tok-" + u.user.ID, UserID: u.user.ID}, nil
		}
	}
	return model.Token{}, remote.ErrUserNotFound
}

func (c *FakeClient) UpdateRecovery(ctx context.Context, userID, secret, password, passwordAgain string) (model.Token, error) {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	if c.b.UpdateRecoveryErr != nil {
		return model.Token{}, c.b.UpdateRecoveryErr
	}
	if password != passwordAgain {
		return model.Token{}, remote.ErrUserPasswordMismatch
	}
	if want, ok := c.b.recoveries[userID]; !ok || want != secret {
		return model.Token{}, remote.ErrUserInvalidToken
	}
	delete(c.b.recoveries, userID)
	c.b.users[userID].password = password
	return model.Token{ID: "tok-" + userID, UserID: userID}, nil
}

func (c *FakeClient) ListDocuments(ctx context.Context, databaseID, collectionID string, queries ...remote.Query) (remote.DocumentList, error) {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	c.b.ListCalls++
	if c.b.ListDocumentsErr != nil {
		return remote.DocumentList{}, c.b.ListDocumentsErr
	}
	u, err := c.currentUser()
	if err != nil {
		return remote.DocumentList{}, err
	}

	scope := databaseID + "/" + collectionID
	var out []model.Task
	for _, d := range c.b.docs {
		if d.scope != scope || d.owner != u.user.ID || !matches(d.task, queries) {
			continue
		}
		out = append(out, d.task)
	}
	for _, q := range queries {
		if q.Method == remote.MethodOrderDesc && q.Attribute == remote.AttrCreatedAt {
			slices.SortStableFunc(out, func(a, b model.Task) int { return b.CreatedAt.Compare(a.CreatedAt) })
		}
	}
	total := len(out)
	limit, offset := DefaultListLimit, 0
	for _, q := range queries {
		switch q.Method {
		case remote.MethodLimit:
			limit = q.Values[0].(int)
		case remote.MethodOffset:
			offset = q.Values[0].(int)
		}
	}
	out = out[min(offset, total):min(offset+limit, total)]
	if len(out) == 0 {
		out = []model.Task{}
	}
	return remote.DocumentList{Total: total, Documents: out}, nil
}

func matches(t model.Task, queries []remote.Query) bool {
	for _, q := range queries {
		if q.Method != remote.MethodEqual {
			continue
		}
		var value any
		switch q.Attribute {
		case remote.AttrUserID:
			value = t.UserID
		case remote.AttrTag:
			value = string(t.Tag)
		case remote.AttrTitle:
			value = t.Title
		default:
			continue
		}
		if !slices.Contains(q.Values, value) {
			return false
		}
	}
	return true
}

func (c *FakeClient) CreateDocument(ctx context.Context, databaseID, collectionID, documentID string, data model.TaskData) (model.Task, error) {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	if c.b.CreateDocumentErr != nil {
		return model.Task{}, c.b.CreateDocumentErr
	}
	u, err := c.currentUser()
	if err != nil {
		return model.Task{}, err
	}
	for _, d := range c.b.docs {
		if d.task.ID == documentID {
			return model.Task{}, remote.ErrDocumentAlreadyExists
		}
	}
	now := c.b.tick()
	t := model.Task{
		ID:        documentID,
		UserID:    data.UserID,
		Username:  data.Username,
		Title:     data.Title,
		Tag:       data.Tag,
		Completed: data.Completed,
		Serial:    data.Serial,
		CreatedAt: now,
		UpdatedAt: now,
	}
	c.b.docs = append(c.b.docs, fakeDocument{scope: databaseID + "/" + collectionID, owner: u.user.ID, task: t})
	return t, nil
}

func (c *FakeClient) UpdateDocument(ctx context.Context, databaseID, collectionID, documentID string, patch model.TaskPatch) (model.Task, error) {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	if c.b.UpdateDocumentErr != nil {
		return model.Task{}, c.b.UpdateDocumentErr
	}
	i, err := c.find(databaseID, collectionID, documentID)
	if err != nil {
		return model.Task{}, err
	}
	t := patch.Apply(c.b.docs[i].task)
	t.UpdatedAt = c.b.tick()
	c.b.docs[i].task = t
	return t, nil
}

func (c *FakeClient) DeleteDocument(ctx context.Context, databaseID, collectionID, documentID string) error {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	if c.b.DeleteDocumentErr != nil {
		return c.b.DeleteDocumentErr
	}
	i, err := c.find(databaseID, collectionID, documentID)
	if err != nil {
		return err
	}
	c.b.docs = slices.Delete(c.b.docs, i, i+1)
	return nil
}

func (c *FakeClient) find(databaseID, collectionID, documentID string) (int, error) {
	u, err := c.currentUser()
	if err != nil {
		return 0, err
	}
	scope := databaseID + "/" + collectionID
	for i, d := range c.b.docs {
		if d.scope == scope && d.task.ID == documentID && d.owner == u.user.ID {
			return i, nil
		}
	}
	return 0, remote.ErrDocumentNotFound
}
