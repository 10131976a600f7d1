// Package ui holds the presentation-facing seams shared by the session store
// and the dashboard: where notifications go and where navigation is requested.
package ui

import (
	"net/url"

	"github.com/BuzzLyutic/taskr/internal/model"
)

const (
	RouteHome           = "/"
	RouteLogin          = "/login"
	RouteSignup         = "/signup"
	RouteForgotPassword = "/forgot-password"
	RouteResetPassword  = "/reset-password"
	RouteDashboard      = "/dashboard"

	SearchParam = "search"
)

type Notifier interface {
	Notify(n model.Notification)
}

type Navigator interface {
	Navigate(target string)
}

// DashboardURL is the dashboard location carrying filter text in its query.
func DashboardURL(search string) string {
	return RouteDashboard + "?" + SearchParam + "=" + url.QueryEscape(search)
}

// Toaster queues notifications until the presentation layer drains them.
// It is not safe for concurrent use.
type Toaster struct {
	items []model.Notification
}

func NewToaster() *Toaster {
	return &Toaster{}
}

func (t *Toaster) Notify(n model.Notification) {
	t.items = append(t.items, n)
}

// Drain returns the queued notifications in order and empties the queue.
func (t *Toaster) Drain() []model.Notification {
	out := t.items
	t.items = nil
	if out == nil {
		return []model.Notification{}
	}
	return out
}

func (t *Toaster) Len() int {
	return len(t.items)
}

// Router remembers the last navigation request.
type Router struct {
	target string
	set    bool
}

func NewRouter() *Router {
	return &Router{}
}

func (r *Router) Navigate(target string) {
	r.target = target
	r.set = true
}

// Take returns the pending target, if any, and forgets it.
func (r *Router) Take() (string, bool) {
	target, ok := r.target, r.set
	r.target, r.set = "", false
	return target, ok
}
