package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/BuzzLyutic/taskr/internal/model"
	"github.com/BuzzLyutic/taskr/internal/ui"
)

type filterRequest struct {
	Search string `json:"search"`
}

func (h *Handler) dashboardPage(ctx context.Context, b *Browser, r *http.Request) func() any {
	q := r.URL.Query()
	b.Dashboard.SyncSearch(q.Get(ui.SearchParam))
	b.Dashboard.Mount(ctx)
	if id := q.Get("edit"); id != "" {
		b.Dashboard.StartEdit(id)
	}
	return func() any { return newDashboardView(b) }
}

// back returns to the dashboard keeping the applied filter.
func back(b *Browser) string {
	if text := b.Dashboard.FilterText(); text != "" {
		return ui.DashboardURL(text)
	}
	return ui.RouteDashboard
}

func (h *Handler) filter(ctx context.Context, b *Browser, r *http.Request) (string, error) {
	var req filterRequest
	if err := bind(r, &req); err != nil {
		return "", err
	}
	b.Dashboard.FilterTasks(req.Search)
	return back(b), nil
}

func (h *Handler) createTask(ctx context.Context, b *Browser, r *http.Request) (string, error) {
	var form model.TaskForm
	if err := bind(r, &form); err != nil {
		return "", err
	}
	b.Dashboard.CreateTask(ctx, form)
	return back(b), nil
}

func (h *Handler) editTask(ctx context.Context, b *Browser, r *http.Request) (string, error) {
	var form model.TaskForm
	if err := bind(r, &form); err != nil {
		return "", err
	}
	b.Dashboard.EditTask(ctx, form, chi.URLParam(r, "id"))
	return back(b), nil
}

func (h *Handler) markDone(ctx context.Context, b *Browser, r *http.Request) (string, error) {
	b.Dashboard.MarkTaskAsDone(ctx, chi.URLParam(r, "id"))
	return back(b), nil
}

func (h *Handler) markUndone(ctx context.Context, b *Browser, r *http.Request) (string, error) {
	b.Dashboard.MarkTaskAsUnDone(ctx, chi.URLParam(r, "id"))
	return back(b), nil
}

func (h *Handler) deleteTask(ctx context.Context, b *Browser, r *http.Request) (string, error) {
	b.Dashboard.DeleteTask(ctx, chi.URLParam(r, "id"))
	return back(b), nil
}
