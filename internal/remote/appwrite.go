package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskr/internal/model"
)

const (
	headerProject         = "X-Appwrite-Project"
	headerFallbackCookies = "X-Fallback-Cookies"
	sessionCookiePrefix   = "a_session_"

	// DefaultTimeout bounds one request when the caller configures none.
	DefaultTimeout = 30 * time.Second
)

type AppwriteConfig struct {
	Endpoint   string
	ProjectID  string
	Timeout    time.Duration
	HTTPClient *http.Client
}

var _ Client = (*AppwriteClient)(nil)

// AppwriteClient implements Client over the Appwrite REST API.
type AppwriteClient struct {
	endpoint string
	project  string
	http     *http.Client
	logger   *zap.Logger

	mu      sync.RWMutex
	session string
}

func NewAppwriteClient(cfg AppwriteConfig, logger *zap.Logger) *AppwriteClient {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &AppwriteClient{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		project:  cfg.ProjectID,
		http:     httpClient,
		logger:   logger,
	}
}

func (c *AppwriteClient) SetSession(value string) {
	c.mu.Lock()
	c.session = value
	c.mu.Unlock()
}

func (c *AppwriteClient) Session() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

type userDocument struct {
	ID                string    `json:"$id"`
	CreatedAt         time.Time `json:"$createdAt"`
	UpdatedAt         time.Time `json:"$updatedAt"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	Status            bool      `json:"status"`
	EmailVerification bool      `json:"emailVerification"`
	PhoneVerification bool      `json:"phoneVerification"`
}

func (d userDocument) model() model.User {
	return model.User{
		ID:                d.ID,
		Name:              d.Name,
		Email:             d.Email,
		Status:            d.Status,
		EmailVerification: d.EmailVerification,
		PhoneVerification: d.PhoneVerification,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}

type sessionDocument struct {
	ID        string    `json:"$id"`
	CreatedAt time.Time `json:"$createdAt"`
	UserID    string    `json:"userId"`
	Secret    string    `json:"secret"`
	Expire    time.Time `json:"expire"`
}

type tokenDocument struct {
	ID        string    `json:"$id"`
	CreatedAt time.Time `json:"$createdAt"`
	UserID    string    `json:"userId"`
	Secret    string    `json:"secret"`
	Expire    time.Time `json:"expire"`
}

func (d tokenDocument) model() model.Token {
	return model.Token{ID: d.ID, UserID: d.UserID, Secret: d.Secret, CreatedAt: d.CreatedAt, ExpiresAt: d.Expire}
}

type taskDocument struct {
	ID        string    `json:"$id"`
	CreatedAt time.Time `json:"$createdAt"`
	UpdatedAt time.Time `json:"$updatedAt"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Title     string    `json:"title"`
	Tag       string    `json:"tag"`
	Completed bool      `json:"completed"`
	Serial    string    `json:"taskSN"`
}

func (d taskDocument) model() model.Task {
	return model.Task{
		ID:        d.ID,
		UserID:    d.UserID,
		Username:  d.Username,
		Title:     d.Title,
		Tag:       model.Tag(d.Tag),
		Completed: d.Completed,
		Serial:    d.Serial,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type taskAttributes struct {
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	Title     string `json:"title"`
	Tag       string `json:"tag"`
	Completed bool   `json:"completed"`
	Serial    string `json:"taskSN"`
}

type taskPatchAttributes struct {
	Title     *string    `json:"title,omitempty"`
	Tag       *model.Tag `json:"tag,omitempty"`
	Completed *bool      `json:"completed,omitempty"`
}

func (c *AppwriteClient) Create(ctx context.Context, userID, email, password, name string) (model.User, error) {
	var doc userDocument
	_, err := c.call(ctx, http.MethodPost, "/account", nil, map[string]string{
		"userId":   userID,
		"email":    email,
		"password": password,
		"name":     name,
	}, &doc)
	if err != nil {
		return model.User{}, err
	}
	return doc.model(), nil
}

// CreateEmailSession authenticates and binds the resulting session to the client.
func (c *AppwriteClient) CreateEmailSession(ctx context.Context, email, password string) (model.Session, error) {
	var doc sessionDocument
	header, err := c.call(ctx, http.MethodPost, "/account/sessions/email", nil, map[string]string{
		"email":    email,
		"password": password,
	}, &doc)
	if err != nil {
		return model.Session{}, err
	}

	value := c.sessionValue(header, doc.Secret)
	c.SetSession(value)

	return model.Session{
		ID:        doc.ID,
		UserID:    doc.UserID,
		Secret:    value,
		CreatedAt: doc.CreatedAt,
		ExpiresAt: doc.Expire,
	}, nil
}

// sessionValue extracts what has to be presented on later requests: the
// fallback cookie header when the service sends one, else the session cookie,
// else the secret from the body.
func (c *AppwriteClient) sessionValue(header http.Header, secret string) string {
	if v := header.Get(headerFallbackCookies); v != "" {
		return v
	}
	name := sessionCookiePrefix + c.project
	resp := http.Response{Header: header}
	for _, ck := range resp.Cookies() {
		if ck.Name == name && ck.Value != "" {
			return fallbackCookies(name, ck.Value)
		}
	}
	if secret != "" {
		return fallbackCookies(name, secret)
	}
	return ""
}

func fallbackCookies(name, value string) string {
	b, _ := json.Marshal(map[string]string{name: value})
	return string(b)
}

func (c *AppwriteClient) Get(ctx context.Context) (model.User, error) {
	var doc userDocument
	if _, err := c.call(ctx, http.MethodGet, "/account", nil, nil, &doc); err != nil {
		return model.User{}, err
	}
	return doc.model(), nil
}

func (c *AppwriteClient) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := c.call(ctx, http.MethodDelete, "/account/sessions/"+url.PathEscape(sessionID), nil, nil, nil); err != nil {
		return err
	}
	if sessionID == CurrentSession {
		c.SetSession("")
	}
	return nil
}

func (c *AppwriteClient) CreateRecovery(ctx context.Context, email, redirectURL string) (model.Token, error) {
	var doc tokenDocument
	_, err := c.call(ctx, http.MethodPost, "/account/recovery", nil, map[string]string{
		"email": email,
		"url":   redirectURL,
	}, &doc)
	if err != nil {
		return model.Token{}, err
	}
	return doc.model(), nil
}

func (c *AppwriteClient) UpdateRecovery(ctx context.Context, userID, secret, password, passwordAgain string) (model.Token, error) {
	var doc tokenDocument
	_, err := c.call(ctx, http.MethodPut, "/account/recovery", nil, map[string]string{
		"userId":        userID,
		"secret":        secret,
		"password":      password,
		"passwordAgain": passwordAgain,
	}, &doc)
	if err != nil {
		return model.Token{}, err
	}
	return doc.model(), nil
}

func documentsPath(databaseID, collectionID string) string {
	return "/databases/" + url.PathEscape(databaseID) + "/collections/" + url.PathEscape(collectionID) + "/documents"
}

func (c *AppwriteClient) ListDocuments(ctx context.Context, databaseID, collectionID string, queries ...Query) (DocumentList, error) {
	params := url.Values{}
	for _, q := range queries {
		params.Add("queries[]", q.String())
	}

	var resp struct {
		Total     int            `json:"total"`
		Documents []taskDocument `json:"documents"`
	}
	if _, err := c.call(ctx, http.MethodGet, documentsPath(databaseID, collectionID), params, nil, &resp); err != nil {
		return DocumentList{}, err
	}

	list := DocumentList{Total: resp.Total, Documents: make([]model.Task, 0, len(resp.Documents))}
	for _, d := range resp.Documents {
		list.Documents = append(list.Documents, d.model())
	}
	return list, nil
}

func (c *AppwriteClient) CreateDocument(ctx context.Context, databaseID, collectionID, documentID string, data model.TaskData) (model.Task, error) {
	body := struct {
		DocumentID string         `json:"documentId"`
		Data       taskAttributes `json:"data"`
	}{
		DocumentID: documentID,
		Data: taskAttributes{
			UserID:    data.UserID,
			Username:  data.Username,
			Title:     data.Title,
			Tag:       string(data.Tag),
			Completed: data.Completed,
			Serial:    data.Serial,
		},
	}

	var doc taskDocument
	if _, err := c.call(ctx, http.MethodPost, documentsPath(databaseID, collectionID), nil, body, &doc); err != nil {
		return model.Task{}, err
	}
	return doc.model(), nil
}

func (c *AppwriteClient) UpdateDocument(ctx context.Context, databaseID, collectionID, documentID string, patch model.TaskPatch) (model.Task, error) {
	body := struct {
		Data taskPatchAttributes `json:"data"`
	}{
		Data: taskPatchAttributes{Title: patch.Title, Tag: patch.Tag, Completed: patch.Completed},
	}

	var doc taskDocument
	path := documentsPath(databaseID, collectionID) + "/" + url.PathEscape(documentID)
	if _, err := c.call(ctx, http.MethodPatch, path, nil, body, &doc); err != nil {
		return model.Task{}, err
	}
	return doc.model(), nil
}

func (c *AppwriteClient) DeleteDocument(ctx context.Context, databaseID, collectionID, documentID string) error {
	path := documentsPath(databaseID, collectionID) + "/" + url.PathEscape(documentID)
	_, err := c.call(ctx, http.MethodDelete, path, nil, nil, nil)
	return err
}

func (c *AppwriteClient) call(ctx context.Context, method, path string, params url.Values, body, out any) (http.Header, error) {
	target := c.endpoint + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set(headerProject, c.project)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if session := c.Session(); session != "" {
		req.Header.Set(headerFallbackCookies, session)
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("remote request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	c.logger.Debug("remote request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(started)),
	)

	if resp.StatusCode >= http.StatusBadRequest {
		return resp.Header, decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return resp.Header, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.Header, fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return resp.Header, nil
}

func decodeError(resp *http.Response) error {
	e := &Error{}
	if err := json.NewDecoder(resp.Body).Decode(e); err != nil || e.Message == "" {
		e.Message = http.StatusText(resp.StatusCode)
	}
	if e.Code == 0 {
		e.Code = resp.StatusCode
	}
	return e
}
