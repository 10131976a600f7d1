// Package remote defines the contract of the hosted task/account service the
// application consumes, and an HTTP client speaking its REST protocol.
package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/BuzzLyutic/taskr/internal/model"
)

// CurrentSession addresses the session the client is authenticated with.
const CurrentSession = "current"

// Document attributes understood by queries.
const (
	AttrID        = "$id"
	AttrCreatedAt = "$createdAt"
	AttrUpdatedAt = "$updatedAt"
	AttrUserID    = "userId"
	AttrUsername  = "username"
	AttrTitle     = "title"
	AttrTag       = "tag"
	AttrCompleted = "completed"
	AttrSerial    = "taskSN"
)

type Account interface {
	Create(ctx context.Context, userID, email, password, name string) (model.User, error)
	CreateEmailSession(ctx context.Context, email, password string) (model.Session, error)
	Get(ctx context.Context) (model.User, error)
	DeleteSession(ctx context.Context, sessionID string) error
	CreateRecovery(ctx context.Context, email, url string) (model.Token, error)
	UpdateRecovery(ctx context.Context, userID, secret, password, passwordAgain string) (model.Token, error)
}

type DocumentList struct {
	Total     int
	Documents []model.Task
}

type Databases interface {
	ListDocuments(ctx context.Context, databaseID, collectionID string, queries ...Query) (DocumentList, error)
	CreateDocument(ctx context.Context, databaseID, collectionID, documentID string, data model.TaskData) (model.Task, error)
	UpdateDocument(ctx context.Context, databaseID, collectionID, documentID string, patch model.TaskPatch) (model.Task, error)
	DeleteDocument(ctx context.Context, databaseID, collectionID, documentID string) error
}

// Client is the connection of one user agent. It carries the session value the
// agent obtained from CreateEmailSession, which is also what the agent persists
// locally to resume later.
type Client interface {
	Account
	Databases
	SetSession(value string)
	Session() string
}

// Error is a failure reported by the service.
type Error struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("remote error %d (%s)", e.Code, e.Type)
}

// ErrorCode returns the service error code carried by err, or 0.
func ErrorCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}

// UniqueID generates a document or user identifier.
func UniqueID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:20]
}
