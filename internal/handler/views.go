package handler

import (
	"time"

	"github.com/BuzzLyutic/taskr/internal/dashboard"
	"github.com/BuzzLyutic/taskr/internal/model"
)

type userView struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	EmailVerification bool      `json:"email_verification"`
	CreatedAt         time.Time `json:"created_at"`
	Initial           string    `json:"initial"`
}

type pageView struct {
	Page          string               `json:"page"`
	User          *userView            `json:"user"`
	Loading       bool                 `json:"loading"`
	Notifications []model.Notification `json:"notifications"`
}

type resetPasswordView struct {
	pageView
	UserID string `json:"user_id"`
	Secret string `json:"secret"`
}

type dashboardView struct {
	pageView
	Tasks        []model.Task         `json:"tasks"`
	Visible      []model.Task         `json:"visible"`
	FilterText   string               `json:"filter_text"`
	TasksLoading bool                 `json:"tasks_loading"`
	Tags         []model.Tag          `json:"tags"`
	CreateDraft  model.TaskForm       `json:"create_draft"`
	EditDraft    *dashboard.EditDraft `json:"edit_draft,omitempty"`
}

// basePage drains the browser's notifications into a page view.
func basePage(name string, b *Browser) pageView {
	v := pageView{
		Page:          name,
		Loading:       b.Session.Loading(),
		Notifications: b.toaster.Drain(),
	}
	if u, ok := b.Session.User(); ok {
		v.User = &userView{
			ID:                u.ID,
			Name:              u.Name,
			Email:             u.Email,
			EmailVerification: u.EmailVerification,
			CreatedAt:         u.CreatedAt,
			Initial:           u.Initial(),
		}
	}
	return v
}

func newDashboardView(b *Browser) dashboardView {
	v := dashboardView{
		pageView:     basePage("dashboard", b),
		Tasks:        b.Dashboard.Tasks(),
		Visible:      b.Dashboard.Visible(),
		FilterText:   b.Dashboard.FilterText(),
		TasksLoading: b.Dashboard.TasksLoading(),
		Tags:         model.Tags,
		CreateDraft:  b.Dashboard.CreateDraft(),
	}
	if d, ok := b.Dashboard.EditDraft(); ok {
		v.EditDraft = &d
	}
	return v
}
