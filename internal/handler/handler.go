package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskr/internal/ui"
	"github.com/BuzzLyutic/taskr/pkg/respond"
)

type Options struct {
	Registry      *Registry
	SessionSecret []byte
	// SessionTTL bounds the lifetime of the session cookie.
	SessionTTL time.Duration
	// SecureCookies marks cookies Secure; set behind TLS.
	SecureCookies bool
	Logger        *zap.Logger
}

type Handler struct {
	browsers *Registry
	codec    markerCodec
	secure   bool
	logger   *zap.Logger
}

func New(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = 365 * 24 * time.Hour
	}
	return &Handler{
		browsers: opts.Registry,
		codec:    markerCodec{secret: opts.SessionSecret, ttl: ttl},
		secure:   opts.SecureCookies,
		logger:   logger,
	}
}

// Routes builds the router of the web surface.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter() // Создаем роутер
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(h.logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get(ui.RouteHome, h.page(h.home))
	r.Get(ui.RouteLogin, h.page(h.loginPage))
	r.Post(ui.RouteLogin, h.action(h.login))
	r.Get(ui.RouteSignup, h.page(h.signupPage))
	r.Post(ui.RouteSignup, h.action(h.signup))
	r.Get(ui.RouteForgotPassword, h.page(h.forgotPasswordPage))
	r.Post(ui.RouteForgotPassword, h.action(h.forgotPassword))
	r.Get(ui.RouteResetPassword, h.page(h.resetPasswordPage))
	r.Post(ui.RouteResetPassword, h.action(h.resetPassword))
	r.Post("/logout", h.action(h.logout))

	r.Route(ui.RouteDashboard, func(r chi.Router) {
		r.Get("/", h.page(h.dashboardPage))
		r.Post("/filter", h.action(h.requireUser(h.filter)))
		r.Post("/tasks", h.action(h.requireUser(h.createTask)))
		r.Post("/tasks/{id}/edit", h.action(h.requireUser(h.editTask)))
		r.Post("/tasks/{id}/done", h.action(h.requireUser(h.markDone)))
		r.Post("/tasks/{id}/undone", h.action(h.requireUser(h.markUndone)))
		r.Post("/tasks/{id}/delete", h.action(h.requireUser(h.deleteTask)))
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respond.Error(w, r, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respond.Error(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

// pageFunc runs the effects of a page and returns its renderer. A navigation
// requested by the effects wins over the view, which is then not rendered so
// pending notifications survive the redirect.
type pageFunc func(ctx context.Context, b *Browser, r *http.Request) func() any

// actionFunc runs a form submission and returns where to go when the
// operation did not navigate.
type actionFunc func(ctx context.Context, b *Browser, r *http.Request) (string, error)

func (h *Handler) page(fn pageFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.withBrowser(w, r, func(b *Browser) {
			render := fn(r.Context(), b, r)
			if target, ok := b.router.Take(); ok {
				h.finish(w, b)
				respond.Redirect(w, r, target)
				return
			}
			view := render()
			h.finish(w, b)
			respond.JSON(w, r, http.StatusOK, view)
		})
	}
}

func (h *Handler) action(fn actionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.withBrowser(w, r, func(b *Browser) {
			fallback, err := fn(r.Context(), b, r)
			if err != nil {
				h.finish(w, b)
				h.handleErrors(w, r, err)
				return
			}
			target, ok := b.router.Take()
			if !ok {
				target = fallback
			}
			h.finish(w, b)
			respond.Redirect(w, r, target)
		})
	}
}

// withBrowser identifies the browser, locks its state for the request and
// resumes its session on first use.
func (h *Handler) withBrowser(w http.ResponseWriter, r *http.Request, fn func(b *Browser)) {
	id := ""
	if c, err := r.Cookie(clientCookie); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			id = c.Value
		}
	}
	if id == "" {
		id = uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     clientCookie,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			Secure:   h.secure,
			SameSite: http.SameSiteLaxMode,
		})
	}

	b := h.browsers.Acquire(id)
	defer h.browsers.touch(b)
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialised {
		if err := b.marker.readCookie(r, h.codec); err != nil {
			h.logger.Info("session cookie rejected", zap.String("browser", id), zap.Error(err))
			b.marker.changed = true
		}
		b.Session.Init(r.Context())
		b.initialised = true
	}
	fn(b)
}

// finish writes the session cookie if the marker changed. It must run before
// the response status is written.
func (h *Handler) finish(w http.ResponseWriter, b *Browser) {
	if err := b.marker.writeCookie(w, h.codec, h.secure); err != nil {
		h.logger.Error("failed to write session cookie", zap.String("browser", b.ID), zap.Error(err))
	}
}

// requireUser sends browsers without a user to the login page.
func (h *Handler) requireUser(fn actionFunc) actionFunc {
	return func(ctx context.Context, b *Browser, r *http.Request) (string, error) {
		if _, ok := b.Session.User(); !ok {
			return ui.RouteLogin, nil
		}
		return fn(ctx, b, r)
	}
}

// RequestLogger logs every request with zap.
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
