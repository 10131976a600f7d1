// Package dashboard is the view-state behind the task list page: the cached
// tasks of the current user, the filter text, the form drafts and the task
// operations.
package dashboard

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskr/internal/model"
	"github.com/BuzzLyutic/taskr/internal/remote"
	"github.com/BuzzLyutic/taskr/internal/ui"
)

const (
	msgCreated = "Task created successfully"
	msgDeleted = "Task deleted successfully"
	msgDone    = "Task marked as done successfully"
	msgUndone  = "Task marked as undone successfully"
	msgEdited  = "Task edited successfully"
)

// fetchPageSize is the number of tasks requested per listing call.
const fetchPageSize = 100

// Scope addresses the task collection in the remote document service.
type Scope struct {
	DatabaseID   string
	CollectionID string
}

// UserSource provides the current user; session.Store implements it.
type UserSource interface {
	User() (model.User, bool)
}

// EditDraft is the state of the edit form of one task.
type EditDraft struct {
	TaskID string         `json:"task_id"`
	Form   model.TaskForm `json:"form"`
}

type Options struct {
	Databases remote.Databases
	Scope     Scope
	Users     UserSource
	Notifier  ui.Notifier
	Navigator ui.Navigator
	Logger    *zap.Logger
	// Serial draws display serials; defaults to model.RandomSerial.
	Serial func() string
}

// View is not safe for concurrent use; callers serialise access per user agent.
type View struct {
	db     remote.Databases
	scope  Scope
	users  UserSource
	notify ui.Notifier
	nav    ui.Navigator
	logger *zap.Logger
	serial func() string

	tasks       []model.Task
	loading     bool
	filterText  string
	createDraft model.TaskForm
	editDraft   *EditDraft
}

func New(opts Options) *View {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	serial := opts.Serial
	if serial == nil {
		serial = model.RandomSerial
	}
	return &View{
		db:     opts.Databases,
		scope:  opts.Scope,
		users:  opts.Users,
		notify: opts.Notifier,
		nav:    opts.Navigator,
		logger: logger,
		serial: serial,
		tasks:  []model.Task{},
	}
}

// Mount runs when the dashboard is shown. Without a user it redirects to the
// login page and fetches nothing.
func (v *View) Mount(ctx context.Context) {
	if _, ok := v.users.User(); !ok {
		v.nav.Navigate(ui.RouteLogin)
		return
	}
	v.GetTasks(ctx)
}

// GetTasks replaces the cache with the user's tasks, newest first. On failure
// the cache is left untouched.
func (v *View) GetTasks(ctx context.Context) {
	user, ok := v.users.User()
	if !ok {
		v.fail(remote.ErrUnauthorizedScope)
		return
	}

	v.loading = true
	defer func() { v.loading = false }()

	if err := v.fetch(ctx, user.ID); err != nil {
		v.fail(err)
	}
}

// fetch pages through the user's tasks until the reported total is reached.
func (v *View) fetch(ctx context.Context, userID string) error {
	tasks := []model.Task{}
	for {
		list, err := v.db.ListDocuments(ctx, v.scope.DatabaseID, v.scope.CollectionID,
			remote.Equal(remote.AttrUserID, userID),
			remote.OrderDesc(remote.AttrCreatedAt),
			remote.Limit(fetchPageSize),
			remote.Offset(len(tasks)),
		)
		if err != nil {
			return err
		}
		tasks = append(tasks, list.Documents...)
		if len(list.Documents) == 0 || len(tasks) >= list.Total {
			break
		}
	}
	v.tasks = tasks
	return nil
}

func (v *View) CreateTask(ctx context.Context, form model.TaskForm) model.Notification {
	v.createDraft = form
	user, ok := v.users.User()
	if !ok {
		return v.fail(remote.ErrUnauthorizedScope)
	}
	if err := form.Validate(); err != nil {
		return v.fail(err)
	}

	created, err := v.db.CreateDocument(ctx, v.scope.DatabaseID, v.scope.CollectionID, remote.UniqueID(), model.TaskData{
		UserID:    user.ID,
		Username:  user.Name,
		Title:     form.Title,
		Tag:       form.Tag,
		Completed: false,
		Serial:    v.serial(),
	})
	if err != nil {
		return v.fail(err)
	}
	v.tasks = append(v.tasks, created)
	v.createDraft = model.TaskForm{}

	// Повторная загрузка: сервер определяет порядок списка
	if err := v.fetch(ctx, user.ID); err != nil {
		v.logger.Warn("refetch after create failed", zap.Error(err))
	}
	v.logger.Info("task created", zap.String("task_id", created.ID), zap.String("serial", created.Serial))
	return v.succeed(msgCreated)
}

func (v *View) DeleteTask(ctx context.Context, id string) model.Notification {
	if err := v.db.DeleteDocument(ctx, v.scope.DatabaseID, v.scope.CollectionID, id); err != nil {
		return v.fail(err)
	}
	for i, t := range v.tasks {
		if t.ID == id {
			v.tasks = append(v.tasks[:i:i], v.tasks[i+1:]...)
			break
		}
	}
	if v.editDraft != nil && v.editDraft.TaskID == id {
		v.editDraft = nil
	}
	return v.succeed(msgDeleted)
}

func (v *View) MarkTaskAsDone(ctx context.Context, id string) model.Notification {
	return v.setCompleted(ctx, id, true, msgDone)
}

func (v *View) MarkTaskAsUnDone(ctx context.Context, id string) model.Notification {
	return v.setCompleted(ctx, id, false, msgUndone)
}

func (v *View) setCompleted(ctx context.Context, id string, completed bool, msg string) model.Notification {
	updated, err := v.db.UpdateDocument(ctx, v.scope.DatabaseID, v.scope.CollectionID, id, model.TaskPatch{Completed: &completed})
	if err != nil {
		return v.fail(err)
	}
	v.replace(updated)
	return v.succeed(msg)
}

// EditTask updates title and tag of a task, then reloads the list.
func (v *View) EditTask(ctx context.Context, form model.TaskForm, id string) model.Notification {
	v.editDraft = &EditDraft{TaskID: id, Form: form}
	if err := form.Validate(); err != nil {
		return v.fail(err)
	}

	updated, err := v.db.UpdateDocument(ctx, v.scope.DatabaseID, v.scope.CollectionID, id, model.TaskPatch{Title: &form.Title, Tag: &form.Tag})
	if err != nil {
		return v.fail(err)
	}
	v.replace(updated)
	v.editDraft = nil

	if user, ok := v.users.User(); ok {
		if err := v.fetch(ctx, user.ID); err != nil {
			v.logger.Warn("refetch after edit failed", zap.Error(err))
		}
	}
	return v.succeed(msgEdited)
}

// StartEdit prefills the edit draft from the cached task.
func (v *View) StartEdit(id string) bool {
	for _, t := range v.tasks {
		if t.ID == id {
			v.editDraft = &EditDraft{TaskID: id, Form: model.TaskForm{Title: t.Title, Tag: t.Tag}}
			return true
		}
	}
	return false
}

func (v *View) replace(updated model.Task) {
	for i, t := range v.tasks {
		if t.ID == updated.ID {
			v.tasks[i] = updated
			return
		}
	}
}

// FilterTasks records the filter text and moves the browser to the matching
// dashboard location.
func (v *View) FilterTasks(text string) {
	v.filterText = text
	v.nav.Navigate(ui.DashboardURL(text))
}

// SyncSearch applies a search value taken from the dashboard URL when it
// differs from the current filter text.
func (v *View) SyncSearch(search string) {
	if search != v.filterText {
		v.filterText = search
	}
}

func (v *View) Tasks() []model.Task {
	return v.tasks
}

// Filtered is derived from the cache on every call.
func (v *View) Filtered() []model.Task {
	return model.FilterByTitle(v.tasks, v.filterText)
}

// Visible is the list the page shows: the filtered list while a filter is applied.
func (v *View) Visible() []model.Task {
	if v.filterText != "" {
		return v.Filtered()
	}
	return v.tasks
}

func (v *View) FilterText() string {
	return v.filterText
}

func (v *View) TasksLoading() bool {
	return v.loading
}

func (v *View) CreateDraft() model.TaskForm {
	return v.createDraft
}

func (v *View) EditDraft() (EditDraft, bool) {
	if v.editDraft == nil {
		return EditDraft{}, false
	}
	return *v.editDraft, true
}

// Reset forgets all cached state, e.g. after logout.
func (v *View) Reset() {
	v.tasks = []model.Task{}
	v.filterText = ""
	v.createDraft = model.TaskForm{}
	v.editDraft = nil
}

func (v *View) succeed(msg string) model.Notification {
	n := model.Success(msg)
	v.notify.Notify(n)
	return n
}

func (v *View) fail(err error) model.Notification {
	if !errors.Is(err, model.ErrValidation) && remote.ErrorCode(err) == 0 {
		v.logger.Error("task operation failed", zap.Error(err))
	}
	n := model.Failure(err)
	v.notify.Notify(n)
	return n
}
