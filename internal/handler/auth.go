package handler

import (
	"context"
	"net/http"
	"net/url"

	"github.com/BuzzLyutic/taskr/internal/model"
	"github.com/BuzzLyutic/taskr/internal/ui"
)

func (h *Handler) home(ctx context.Context, b *Browser, r *http.Request) func() any {
	if _, ok := b.Session.User(); ok {
		b.router.Navigate(ui.RouteDashboard)
	}
	return func() any { return basePage("home", b) }
}

func (h *Handler) loginPage(ctx context.Context, b *Browser, r *http.Request) func() any {
	if _, ok := b.Session.User(); ok {
		b.router.Navigate(ui.RouteDashboard)
	}
	return func() any { return basePage("login", b) }
}

func (h *Handler) login(ctx context.Context, b *Browser, r *http.Request) (string, error) {
	var form model.LoginForm
	if err := bind(r, &form); err != nil {
		return "", err
	}
	b.Session.LoginUser(ctx, form.Email, form.Password)
	return ui.RouteLogin, nil
}

func (h *Handler) signupPage(ctx context.Context, b *Browser, r *http.Request) func() any {
	return func() any { return basePage("signup", b) }
}

func (h *Handler) signup(ctx context.Context, b *Browser, r *http.Request) (string, error) {
	var form model.SignupForm
	if err := bind(r, &form); err != nil {
		return "", err
	}
	b.Session.SignupUser(ctx, form.Email, form.Password, form.Name)
	return ui.RouteSignup, nil
}

func (h *Handler) logout(ctx context.Context, b *Browser, r *http.Request) (string, error) {
	if n := b.Session.LogoutUser(ctx); n.OK() {
		b.Dashboard.Reset()
	}
	return ui.RouteDashboard, nil
}

func (h *Handler) forgotPasswordPage(ctx context.Context, b *Browser, r *http.Request) func() any {
	return func() any { return basePage("forgot-password", b) }
}

func (h *Handler) forgotPassword(ctx context.Context, b *Browser, r *http.Request) (string, error) {
	var form model.RecoveryForm
	if err := bind(r, &form); err != nil {
		return "", err
	}
	b.Session.CreatePasswordRecovery(ctx, form.Email)
	return ui.RouteForgotPassword, nil
}

func (h *Handler) resetPasswordPage(ctx context.Context, b *Browser, r *http.Request) func() any {
	q := r.URL.Query()
	return func() any {
		return resetPasswordView{
			pageView: basePage("reset-password", b),
			UserID:   q.Get("userId"),
			Secret:   q.Get("secret"),
		}
	}
}

func (h *Handler) resetPassword(ctx context.Context, b *Browser, r *http.Request) (string, error) {
	var form model.ResetPasswordForm
	if err := bind(r, &form); err != nil {
		return "", err
	}
	// the link parameters may stay in the query of the form action
	q := r.URL.Query()
	if form.UserID == "" {
		form.UserID = q.Get("userId")
	}
	if form.Secret == "" {
		form.Secret = q.Get("secret")
	}
	b.Session.UpdatePasswordRecovery(ctx, form.UserID, form.Secret, form.Password, form.ConfirmPassword)
	return resetPasswordURL(form.UserID, form.Secret), nil
}

func resetPasswordURL(userID, secret string) string {
	q := url.Values{}
	q.Set("userId", userID)
	q.Set("secret", secret)
	return ui.RouteResetPassword + "?" + q.Encode()
}
